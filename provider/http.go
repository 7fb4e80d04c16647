package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sidekick/chat"
)

// httpProvider is the raw adapter for vendors that speak the OpenAI
// chat-completions wire format over plain HTTP. One POST per Chat
// call, no internal retries.
type httpProvider struct {
	name    string
	pt      ProviderType
	baseURL string
	apiKey  string
	envVar  string
	fields  FieldMap
	client  *http.Client
}

func newHTTPProvider(pt ProviderType, name, baseURL, apiKey, envVar string, timeout time.Duration) *httpProvider {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &httpProvider{
		name:    name,
		pt:      pt,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		envVar:  envVar,
		fields:  openAIFieldMap(name),
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *httpProvider) Name() string { return p.name }

func (p *httpProvider) Chat(ctx context.Context, req chat.ChatRequest) (*chat.ChatResult, error) {
	if p.apiKey == "" {
		return nil, missingKeyError(p.name, p.envVar)
	}

	spec := ResolveModel(p.pt, req.Model)
	payload := map[string]any{
		"model":       spec.Name,
		"messages":    wireMessages(req.Messages),
		"temperature": effectiveTemperature(req.Temperature, spec),
		"max_tokens":  effectiveMaxTokens(req.MaxTokens, spec),
		"stream":      false,
	}
	if req.TopP != nil {
		payload["top_p"] = *req.TopP
	}
	if tools := wireTools(req.Tools); tools != nil {
		payload["tools"] = tools
		choice := req.ToolChoice
		if choice == "" {
			choice = chat.ToolChoiceAuto
		}
		payload["tool_choice"] = string(choice)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", p.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", p.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, transportError(p.name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(p.name, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyBody(p.name, resp.StatusCode, respBody)
	}

	return Normalize(respBody, p.fields, spec.Name)
}
