// internal/provider/descriptor.go
package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// AuthStyle controls where a probe injects the API key.
type AuthStyle int

const (
	// AuthBearer sends the key as "Authorization: Bearer <key>".
	AuthBearer AuthStyle = iota
	// AuthXAPIKey sends the key in an "x-api-key" header.
	AuthXAPIKey
	// AuthQueryKey sends the key as a "?key=<key>" query parameter.
	AuthQueryKey
)

// Path labels which class of probe produced a validation outcome.
type Path string

const (
	PathModels     Path = "models"
	PathCompletion Path = "completion"
)

// Endpoint is a single probe target with its own timeout. Body is nil for
// list-style probes; Model carries the model a completion probe exercises.
type Endpoint struct {
	Method  string
	URL     string
	Path    Path
	Timeout time.Duration
	Body    any
	Model   string
}

// Descriptor describes how to probe one provider family: where the model
// list lives, how completion probes are addressed and shaped, how the key
// travels, and how many attempts a probe deserves. Descriptors are immutable
// after construction.
type Descriptor struct {
	Type         Type
	Label        string
	BaseURL      string
	ModelsURL    string
	Auth         AuthStyle
	ExtraHeaders map[string]string
	Retries      int
	DefaultModel string
	// SniffKeyText marks providers whose 400 responses must be inspected for
	// "API key" text to tell bad keys apart from bad requests.
	SniffKeyText bool

	completionURL  func(model string) string
	completionBody func(model string) any
}

const (
	primaryProbeTimeout    = 10 * time.Second
	completionProbeTimeout = 15 * time.Second
)

var (
	// ErrConfigMissing reports a custom endpoint without base URL or model.
	ErrConfigMissing = errors.New("custom endpoint requires both base URL and model")
	// ErrInvalidBase reports a custom base URL that does not end in /v1.
	ErrInvalidBase = errors.New("custom base URL must end in /v1")
)

// Primary returns the models-list probe endpoint.
func (d *Descriptor) Primary() Endpoint {
	return Endpoint{
		Method:  http.MethodGet,
		URL:     d.ModelsURL,
		Path:    PathModels,
		Timeout: primaryProbeTimeout,
	}
}

// Completion returns the completion probe endpoint for model. The second
// return is false when the provider has no completion probe. An empty model
// falls back to the descriptor default.
func (d *Descriptor) Completion(model string) (Endpoint, bool) {
	if d.completionURL == nil {
		return Endpoint{}, false
	}
	if model == "" {
		model = d.DefaultModel
	}
	ep := Endpoint{
		Method:  http.MethodPost,
		URL:     d.completionURL(model),
		Path:    PathCompletion,
		Timeout: completionProbeTimeout,
		Model:   model,
	}
	if d.completionBody != nil {
		ep.Body = d.completionBody(model)
	}
	return ep, true
}

// AuthHeaders returns the request headers carrying the key plus any fixed
// extras the provider requires.
func (d *Descriptor) AuthHeaders(key string) map[string]string {
	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range d.ExtraHeaders {
		headers[k] = v
	}
	switch d.Auth {
	case AuthBearer:
		headers["Authorization"] = "Bearer " + key
	case AuthXAPIKey:
		headers["x-api-key"] = key
	}
	return headers
}

// AuthQuery returns the query parameters carrying the key, or nil when the
// key travels in headers.
func (d *Descriptor) AuthQuery(key string) map[string]string {
	if d.Auth != AuthQueryKey {
		return nil
	}
	return map[string]string{"key": key}
}

func chatCompletionBody(model string) any {
	return map[string]any{
		"model":      model,
		"messages":   []map[string]string{{"role": "user", "content": "Hello"}},
		"max_tokens": 1,
	}
}

var builtin = map[Type]*Descriptor{
	TypeOpenAI: {
		Type:         TypeOpenAI,
		Label:        "OpenAI",
		BaseURL:      "https://api.openai.com/v1",
		ModelsURL:    "https://api.openai.com/v1/models",
		Auth:         AuthBearer,
		Retries:      2,
		DefaultModel: "gpt-3.5-turbo",
		completionURL: func(string) string {
			return "https://api.openai.com/v1/chat/completions"
		},
		completionBody: chatCompletionBody,
	},
	TypeClaude: {
		Type:         TypeClaude,
		Label:        "Claude",
		BaseURL:      "https://api.anthropic.com/v1",
		ModelsURL:    "https://api.anthropic.com/v1/models",
		Auth:         AuthXAPIKey,
		ExtraHeaders: map[string]string{"anthropic-version": "2023-06-01"},
		Retries:      2,
		DefaultModel: "claude-3-haiku-20240307",
		completionURL: func(string) string {
			return "https://api.anthropic.com/v1/messages"
		},
		completionBody: func(model string) any {
			return map[string]any{
				"model":      model,
				"max_tokens": 1,
				"messages":   []map[string]string{{"role": "user", "content": "Hello"}},
			}
		},
	},
	TypeGemini: {
		Type:         TypeGemini,
		Label:        "Gemini",
		BaseURL:      "https://generativelanguage.googleapis.com/v1beta",
		ModelsURL:    "https://generativelanguage.googleapis.com/v1beta/models",
		Auth:         AuthQueryKey,
		Retries:      2,
		DefaultModel: "gemini-2.5-flash-preview-04-17",
		SniffKeyText: true,
		completionURL: func(model string) string {
			return fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", model)
		},
		completionBody: func(string) any {
			return map[string]any{
				"contents": []map[string]any{
					{"parts": []map[string]string{{"text": "Hello"}}},
				},
			}
		},
	},
	TypeCohere: {
		Type:      TypeCohere,
		Label:     "Cohere",
		BaseURL:   "https://api.cohere.ai/v1",
		ModelsURL: "https://api.cohere.ai/v1/models",
		Auth:      AuthBearer,
		Retries:   2,
	},
	TypeMistral: {
		Type:      TypeMistral,
		Label:     "Mistral",
		BaseURL:   "https://api.mistral.ai/v1",
		ModelsURL: "https://api.mistral.ai/v1/models",
		Auth:      AuthBearer,
		Retries:   2,
	},
}

// Lookup returns the built-in descriptor for t.
func Lookup(t Type) (*Descriptor, bool) {
	d, ok := builtin[t]
	return d, ok
}

// Descriptors returns the built-in descriptors in stable display order.
func Descriptors() []*Descriptor {
	order := []Type{TypeOpenAI, TypeClaude, TypeGemini, TypeCohere, TypeMistral}
	out := make([]*Descriptor, 0, len(order))
	for _, t := range order {
		out = append(out, builtin[t])
	}
	return out
}

// CompatibleBase normalizes a caller-supplied OpenAI-compatible base URL.
// It must end in /v1 because the probes assume the OpenAI path layout
// under it.
func CompatibleBase(baseURL string) (string, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return "", ErrConfigMissing
	}
	if !strings.HasSuffix(baseURL, "/v1") {
		return "", ErrInvalidBase
	}
	return baseURL, nil
}

// CompatibleDescriptor builds the descriptor for a caller-supplied
// OpenAI-compatible endpoint. Validation probes need a model, so both
// pieces are mandatory here; listing-only callers use CompatibleBase.
func CompatibleDescriptor(baseURL, model string) (*Descriptor, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, ErrConfigMissing
	}
	base, err := CompatibleBase(baseURL)
	if err != nil {
		return nil, err
	}
	return &Descriptor{
		Type:         TypeCustom,
		Label:        "OpenAI-compatible",
		BaseURL:      base,
		ModelsURL:    base + "/models",
		Auth:         AuthBearer,
		Retries:      3,
		DefaultModel: model,
		completionURL: func(string) string {
			return base + "/chat/completions"
		},
		completionBody: chatCompletionBody,
	}, nil
}
