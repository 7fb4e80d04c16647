package provider

import "time"

// DefaultGLMBaseURL is BigModel's OpenAI-compatible endpoint root.
const DefaultGLMBaseURL = "https://open.bigmodel.cn/api/paas/v4"

// NewGLMProvider creates the BigModel (GLM) adapter.
func NewGLMProvider(baseURL, apiKey string, timeout time.Duration) Provider {
	if baseURL == "" {
		baseURL = DefaultGLMBaseURL
	}
	return newHTTPProvider(ProviderGLM, "glm", baseURL, apiKey, "GLM_API_KEY", timeout)
}
