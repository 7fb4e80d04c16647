package provider

import (
	"encoding/json"
	"fmt"
	"net/http"

	"sidekick/chat"
)

// vendorErrorEnvelope is the common error body of the OpenAI wire
// family: {"error": {"type": ..., "code": ..., "message": ...}}.
type vendorErrorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// classifyStatus maps a vendor failure to an error kind. The vendor's
// own type string wins when recognized; otherwise the HTTP status
// decides; anything left is a plain vendor error.
func classifyStatus(vendor string, status int, errType, message string) *chat.Error {
	kind := kindForType(errType)
	if kind == "" {
		kind = kindForStatus(status)
	}
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}
	return &chat.Error{Kind: kind, Vendor: vendor, Message: message, HTTPStatus: status}
}

func kindForType(errType string) chat.Kind {
	switch errType {
	case "authentication_error", "invalid_api_key", "invalid_authentication":
		return chat.KindUnauthenticated
	case "invalid_request_error", "invalid_request", "validation_error", "not_found_error":
		return chat.KindInvalidRequest
	case "rate_limit_error", "rate_limit_exceeded", "exceeded_quota":
		return chat.KindRateLimited
	case "overloaded_error", "server_error", "api_error", "engine_overloaded_error":
		// Server-side faults got an HTTP answer, so they are vendor
		// verdicts, not availability problems. Terminal.
		return chat.KindVendor
	}
	return ""
}

// kindForStatus never yields KindUnavailable: any response that
// carried an HTTP status came from the vendor, so only RateLimited is
// retryable. Unavailable is reserved for transport failures that never
// produced a status (see transportError).
func kindForStatus(status int) chat.Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return chat.KindUnauthenticated
	case status == http.StatusTooManyRequests:
		return chat.KindRateLimited
	case status == http.StatusBadRequest ||
		status == http.StatusNotFound ||
		status == http.StatusUnprocessableEntity:
		return chat.KindInvalidRequest
	}
	return chat.KindVendor
}

// classifyBody parses a non-2xx response body and classifies it. An
// unparseable body still classifies by status alone.
func classifyBody(vendor string, status int, body []byte) *chat.Error {
	var envelope vendorErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return classifyStatus(vendor, status, envelope.Error.Type, envelope.Error.Message)
	}
	message := ""
	if len(body) > 0 {
		message = string(body)
	}
	return classifyStatus(vendor, status, "", message)
}

// transportError wraps a failure that never produced an HTTP status:
// connection refused, DNS, timeout, canceled context. All of them are
// availability problems from the caller's point of view.
func transportError(vendor string, err error) *chat.Error {
	return &chat.Error{Kind: chat.KindUnavailable, Vendor: vendor, Message: err.Error()}
}

// missingKeyError reports an adapter constructed without credentials.
func missingKeyError(vendor, envVar string) *chat.Error {
	return &chat.Error{
		Kind:    chat.KindUnauthenticated,
		Vendor:  vendor,
		Message: fmt.Sprintf("API key not configured (set %s)", envVar),
	}
}
