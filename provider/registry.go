package provider

// ModelSpec maps a logical model name to a concrete vendor model plus
// per-model generation limits.
type ModelSpec struct {
	Name               string
	MaxTokens          int
	DefaultTemperature float64
}

const (
	defaultMaxTokens   = 8192
	defaultTemperature = 0.7
)

// LogicalChatModel is the logical name the IDE asks for by default.
const LogicalChatModel = "ide-chat"

// logicalModels is the per-vendor registry of logical model names.
var logicalModels = map[ProviderType]map[string]ModelSpec{
	ProviderGLM: {
		LogicalChatModel: {Name: "glm-4.6", MaxTokens: 8192, DefaultTemperature: 0.7},
	},
	ProviderKimi: {
		LogicalChatModel: {Name: "kimi-k2-turbo-preview", MaxTokens: 8192, DefaultTemperature: 0.7},
	},
	ProviderOpenAI: {
		LogicalChatModel: {Name: "gpt-4o-mini", MaxTokens: 8192, DefaultTemperature: 0.7},
	},
	ProviderAnthropic: {
		LogicalChatModel: {Name: "claude-sonnet-4-5-20250929", MaxTokens: 8192, DefaultTemperature: 0.7},
	},
	ProviderOllama: {
		LogicalChatModel: {Name: "llama3.1:latest", MaxTokens: 8192, DefaultTemperature: 0.7},
	},
}

// ResolveModel turns a logical model name into the vendor's concrete
// model spec. Names absent from the registry pass through unchanged so
// callers can address vendor models directly.
func ResolveModel(pt ProviderType, logical string) ModelSpec {
	if vendorModels, ok := logicalModels[pt]; ok {
		if spec, ok := vendorModels[logical]; ok {
			return spec
		}
	}
	return ModelSpec{
		Name:               logical,
		MaxTokens:          defaultMaxTokens,
		DefaultTemperature: defaultTemperature,
	}
}

// effectiveTemperature picks the request temperature, falling back to
// the model's default.
func effectiveTemperature(reqTemp *float64, spec ModelSpec) float64 {
	if reqTemp != nil {
		return *reqTemp
	}
	return spec.DefaultTemperature
}

// effectiveMaxTokens picks the request token cap, falling back to the
// model's cap.
func effectiveMaxTokens(reqMax int, spec ModelSpec) int {
	if reqMax > 0 {
		return reqMax
	}
	return spec.MaxTokens
}
