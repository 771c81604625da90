package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/evanxz0/apikey-validation-service/internal/provider"
)

const (
	listModelsTimeout   = 15 * time.Second
	subscriptionTimeout = 10 * time.Second

	openAISubscriptionURL = "https://api.openai.com/dashboard/billing/subscription"
)

// Subscription is the slice of OpenAI's billing subscription endpoint the
// analyzer cares about. The endpoint is undocumented and best-effort.
type Subscription struct {
	HardLimitUSD float64 `json:"hard_limit_usd"`
	AccessUntil  int64   `json:"access_until"`
	Plan         struct {
		Title string `json:"title"`
	} `json:"plan"`
}

// providerAPIClient is the unexported concrete implementation of ProviderAPI.
type providerAPIClient struct {
	probes Prober
}

// NewProviderAPI creates the typed provider-API client used for model
// listings and quota lookups. It rides the same probe transport as the
// validators; the concrete returned type is unexported, callers work with
// the ProviderAPI interface.
func NewProviderAPI(probes Prober) ProviderAPI {
	return &providerAPIClient{probes: probes}
}

// ListModels fetches the provider's model list with the given key and
// returns the model identifiers. Non-2xx responses come back as *HTTPError;
// transport failures as *ProbeError.
func (c *providerAPIClient) ListModels(ctx context.Context, desc *provider.Descriptor, key string) ([]string, error) {
	resp, err := c.probes.Probe(ctx, ProbeRequest{
		Method:  http.MethodGet,
		URL:     desc.ModelsURL,
		Headers: desc.AuthHeaders(key),
		Query:   desc.AuthQuery(key),
		Timeout: listModelsTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s models: %w", desc.Type, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	models, err := ParseModelIDs(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("list %s models: failed to unmarshal response: %w", desc.Type, err)
	}
	return models, nil
}

// OpenAISubscription fetches billing metadata for an OpenAI key. Only valid
// keys can reach this endpoint, so callers treat failures as "no quota
// information", not as a verdict on the key.
func (c *providerAPIClient) OpenAISubscription(ctx context.Context, key string) (*Subscription, error) {
	resp, err := c.probes.Probe(ctx, ProbeRequest{
		Method:  http.MethodGet,
		URL:     openAISubscriptionURL,
		Headers: map[string]string{"Authorization": "Bearer " + key},
		Timeout: subscriptionTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch subscription: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	var sub Subscription
	if err := json.Unmarshal([]byte(resp.Body), &sub); err != nil {
		return nil, fmt.Errorf("fetch subscription: failed to unmarshal response: %w", err)
	}
	return &sub, nil
}

// ParseModelIDs extracts model identifiers from the two envelope shapes the
// providers use: OpenAI-style {"data": [{"id": …}]} and Gemini-style
// {"models": [{"name": "models/…"}]} (or a plain string list).
func ParseModelIDs(body string) ([]string, error) {
	var openAIShape struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &openAIShape); err == nil && len(openAIShape.Data) > 0 {
		ids := make([]string, 0, len(openAIShape.Data))
		for _, m := range openAIShape.Data {
			if m.ID != "" {
				ids = append(ids, m.ID)
			}
		}
		return ids, nil
	}

	var geminiShape struct {
		Models []json.RawMessage `json:"models"`
	}
	if err := json.Unmarshal([]byte(body), &geminiShape); err == nil && len(geminiShape.Models) > 0 {
		ids := make([]string, 0, len(geminiShape.Models))
		for _, raw := range geminiShape.Models {
			var obj struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(raw, &obj); err == nil && obj.Name != "" {
				ids = append(ids, strings.TrimPrefix(obj.Name, "models/"))
				continue
			}
			var plain string
			if err := json.Unmarshal(raw, &plain); err == nil && plain != "" {
				ids = append(ids, plain)
			}
		}
		return ids, nil
	}

	// An empty-but-valid envelope is fine; anything else is malformed.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &probe); err != nil {
		return nil, err
	}
	return nil, nil
}
