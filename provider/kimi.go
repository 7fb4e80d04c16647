package provider

import "time"

// DefaultKimiBaseURL is Moonshot's OpenAI-compatible endpoint root.
const DefaultKimiBaseURL = "https://api.moonshot.cn/v1"

// NewKimiProvider creates the Moonshot (Kimi) adapter.
func NewKimiProvider(baseURL, apiKey string, timeout time.Duration) Provider {
	if baseURL == "" {
		baseURL = DefaultKimiBaseURL
	}
	return newHTTPProvider(ProviderKimi, "kimi", baseURL, apiKey, "KIMI_API_KEY", timeout)
}
