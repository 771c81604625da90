// internal/service/analyzer.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/evanxz0/apikey-validation-service/internal/client"
	"github.com/evanxz0/apikey-validation-service/internal/provider"
	"github.com/evanxz0/apikey-validation-service/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	analysisProbeTimeout = 15 * time.Second
	// analyzeConcurrency bounds AnalyzeKeys fan-out. Deep analysis fires
	// several requests per key, so this stays below the validator's cap logic.
	analyzeConcurrency = 5
	// geminiAnalysisModel is the completion target for Gemini analysis when
	// the caller names no model.
	geminiAnalysisModel = "gemini-pro"
)

// KeyAnalyzer digs deeper than the validator: besides a validity verdict it
// collects the models a key can reach, inferred capabilities, and (for
// OpenAI) billing quota and expiration.
type KeyAnalyzer struct {
	probes client.Prober
	api    client.ProviderAPI

	now func() time.Time
}

// NewKeyAnalyzer wires an analyzer over the probe transport and the typed
// provider-API client.
func NewKeyAnalyzer(probes client.Prober, api client.ProviderAPI) *KeyAnalyzer {
	return &KeyAnalyzer{
		probes: probes,
		api:    api,
		now:    time.Now,
	}
}

// AnalyzeKey inspects one key in depth. The returned record always carries
// the masked key; unlike validation results, Error can coexist with
// Valid == true as a low-confidence advisory.
func (ka *KeyAnalyzer) AnalyzeKey(ctx context.Context, rawKey, preferredModel string) *KeyAnalysis {
	key := utils.SanitizeKey(rawKey)
	analysis := &KeyAnalysis{
		Key:           utils.MaskKey(key),
		SelectedModel: preferredModel,
		Timestamp:     ka.now().UTC(),
	}

	ptype, ok := provider.Detect(key)
	if !ok {
		analysis.Error = "unable to identify API type"
		return analysis
	}
	desc, ok := provider.Lookup(ptype)
	if !ok {
		analysis.Error = fmt.Sprintf("unsupported provider '%s'", ptype)
		return analysis
	}
	analysis.APIType = desc.Label

	switch ptype {
	case provider.TypeOpenAI:
		ka.analyzeOpenAI(ctx, desc, key, preferredModel, analysis)
	case provider.TypeClaude:
		ka.analyzeClaude(ctx, desc, key, preferredModel, analysis)
	case provider.TypeGemini:
		ka.analyzeGemini(ctx, desc, key, preferredModel, analysis)
	default:
		ka.analyzeGeneric(ctx, desc, key, analysis)
	}

	if analysis.Valid && analysis.EffectiveModel != "" {
		analysis.CostPer1K = provider.EstimateCost(ptype, analysis.EffectiveModel, 1000)
	}

	utils.WithComponent("key_analyzer").Info("key analyzed",
		zap.String(utils.FieldKey, analysis.Key),
		zap.String("api_type", analysis.APIType),
		zap.Bool("valid", analysis.Valid))
	return analysis
}

// AnalyzeKeys runs deep analysis over a set of keys with bounded
// concurrency. Results are positional: results[i] belongs to keys[i].
func (ka *KeyAnalyzer) AnalyzeKeys(ctx context.Context, keys []string) []*KeyAnalysis {
	results := make([]*KeyAnalysis, len(keys))
	sem := semaphore.NewWeighted(analyzeConcurrency)
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = &KeyAnalysis{
					Key:       utils.MaskKey(utils.SanitizeKey(key)),
					Error:     fmt.Sprintf("analysis aborted: %v", err),
					Timestamp: ka.now().UTC(),
				}
				return
			}
			defer sem.Release(1)
			results[i] = ka.AnalyzeKey(ctx, key, "")
		}(i, key)
	}
	wg.Wait()
	return results
}

// analyzeOpenAI lists models with the key, verifies the preferred model via
// a completion probe, and fetches billing metadata. The billing lookup is
// best-effort; its failure never changes the verdict.
func (ka *KeyAnalyzer) analyzeOpenAI(ctx context.Context, desc *provider.Descriptor, key, preferredModel string, analysis *KeyAnalysis) {
	models, err := ka.api.ListModels(ctx, desc, key)
	if err != nil {
		var herr *client.HTTPError
		switch {
		case errors.As(err, &herr) && herr.StatusCode == 401:
			analysis.Error = "invalid API key"
		case errors.As(err, &herr) && herr.StatusCode == 429:
			// Throttled keys are live keys.
			analysis.Valid = true
			analysis.Error = "rate limited"
		case errors.As(err, &herr):
			analysis.Error = fmt.Sprintf("API error: %d", herr.StatusCode)
		default:
			analysis.Error = fmt.Sprintf("connection error: %v", err)
		}
	} else {
		analysis.Valid = true
		if len(models) > 20 {
			models = models[:20]
		}
		analysis.Models = models
		analysis.Capabilities = provider.InferCapabilities(provider.TypeOpenAI, models)
		if preferredModel != "" {
			analysis.EffectiveModel = preferredModel
		}
	}
	if !analysis.Valid {
		return
	}

	if preferredModel != "" {
		ka.checkOpenAIModel(ctx, desc, key, preferredModel, analysis)
	}

	sub, err := ka.api.OpenAISubscription(ctx, key)
	if err == nil {
		if sub.HardLimitUSD > 0 {
			analysis.Quota = fmt.Sprintf("$%g/month", sub.HardLimitUSD)
		}
		if sub.AccessUntil > 0 {
			analysis.Expiration = time.Unix(sub.AccessUntil, 0).UTC().Format("2006-01-02")
		}
	}
}

// checkOpenAIModel confirms the preferred model answers a minimal
// completion. Transport trouble is not a model verdict and leaves the
// analysis untouched.
func (ka *KeyAnalyzer) checkOpenAIModel(ctx context.Context, desc *provider.Descriptor, key, model string, analysis *KeyAnalysis) {
	ep, ok := desc.Completion(model)
	if !ok {
		return
	}
	resp, err := ka.probes.Probe(ctx, client.ProbeRequest{
		Method:  ep.Method,
		URL:     ep.URL,
		Headers: desc.AuthHeaders(key),
		Body:    ep.Body,
		Timeout: ep.Timeout,
	})
	if err != nil {
		return
	}
	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case resp.StatusCode == http.StatusNotFound:
		analysis.Valid = false
		analysis.Error = "model not available: " + model
	case resp.StatusCode == http.StatusBadRequest:
		if strings.Contains(strings.ToLower(providerErrorMessage(resp.Body)), "model") {
			analysis.Valid = false
			analysis.Error = "model not available: " + model
		}
	}
}

// analyzeClaude probes the messages endpoint. Claude has no free model
// listing, so valid keys get the static catalog. A 400 without key-related
// text is reported as probably valid: the request shape, not the key, was
// rejected.
func (ka *KeyAnalyzer) analyzeClaude(ctx context.Context, desc *provider.Descriptor, key, preferredModel string, analysis *KeyAnalysis) {
	ep, ok := desc.Completion(preferredModel)
	if !ok {
		analysis.Error = fmt.Sprintf("provider '%s' has no completion probe", desc.Type)
		return
	}
	analysis.EffectiveModel = ep.Model

	resp, err := ka.probes.Probe(ctx, client.ProbeRequest{
		Method:  ep.Method,
		URL:     ep.URL,
		Headers: desc.AuthHeaders(key),
		Body:    ep.Body,
		Timeout: ep.Timeout,
	})
	if err != nil {
		analysis.Error = fmt.Sprintf("connection error: %v", err)
		return
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		analysis.Valid = true
		analysis.Models = provider.Catalog(provider.TypeClaude)
		analysis.Capabilities = provider.InferCapabilities(provider.TypeClaude, analysis.Models)
	case resp.StatusCode == http.StatusUnauthorized:
		analysis.Error = "invalid API key"
	case resp.StatusCode == http.StatusTooManyRequests:
		analysis.Valid = true
		analysis.Error = "rate limited"
	case resp.StatusCode == http.StatusBadRequest:
		msg := providerErrorMessage(resp.Body)
		switch {
		case preferredModel != "" && strings.Contains(strings.ToLower(msg), "model"):
			analysis.Error = "model not available: " + preferredModel
		case strings.Contains(msg, "API key") && strings.Contains(strings.ToLower(msg), "invalid"):
			analysis.Error = "invalid API key"
		default:
			analysis.Valid = true
			analysis.Models = provider.Catalog(provider.TypeClaude)
			analysis.Error = "request validation error, key probably valid"
		}
	default:
		analysis.Error = fmt.Sprintf("API error: %d - %s", resp.StatusCode, providerErrorMessage(resp.Body))
	}
}

// analyzeGemini probes generateContent with the key in the query string. A
// 400 whose status is INVALID_ARGUMENT usually means the request shape was
// rejected after the key passed, so it is reported as probably valid.
func (ka *KeyAnalyzer) analyzeGemini(ctx context.Context, desc *provider.Descriptor, key, preferredModel string, analysis *KeyAnalysis) {
	model := preferredModel
	if model == "" {
		model = geminiAnalysisModel
	}
	analysis.EffectiveModel = model

	ep, ok := desc.Completion(model)
	if !ok {
		analysis.Error = fmt.Sprintf("provider '%s' has no completion probe", desc.Type)
		return
	}
	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": "Hello"}}},
		},
		"generationConfig": map[string]int{"maxOutputTokens": 1},
	}

	resp, err := ka.probes.Probe(ctx, client.ProbeRequest{
		Method:  ep.Method,
		URL:     ep.URL,
		Headers: map[string]string{"Content-Type": "application/json"},
		Query:   desc.AuthQuery(key),
		Body:    body,
		Timeout: analysisProbeTimeout,
	})
	if err != nil {
		analysis.Error = fmt.Sprintf("connection error: %v", err)
		return
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		analysis.Valid = true
		analysis.Models = provider.Catalog(provider.TypeGemini)
		analysis.Capabilities = provider.InferCapabilities(provider.TypeGemini, analysis.Models)
	case resp.StatusCode == http.StatusBadRequest:
		msg := providerErrorMessage(resp.Body)
		switch {
		case preferredModel != "" && strings.Contains(strings.ToLower(msg), "model"):
			analysis.Error = "model not available: " + preferredModel
		case geminiErrorStatus(resp.Body) == "INVALID_ARGUMENT":
			analysis.Valid = true
			analysis.Models = provider.Catalog(provider.TypeGemini)
			analysis.Error = "request parameter error, key probably valid"
		default:
			analysis.Error = "API error: " + msg
		}
	case resp.StatusCode == http.StatusForbidden:
		analysis.Error = "invalid key or missing permission"
	default:
		analysis.Error = fmt.Sprintf("API error: %d", resp.StatusCode)
	}
}

// analyzeGeneric handles providers without a dedicated path by walking the
// common auth header shapes against the models endpoint. The first 2xx wins;
// auth rejections just move on to the next shape.
func (ka *KeyAnalyzer) analyzeGeneric(ctx context.Context, desc *provider.Descriptor, key string, analysis *KeyAnalysis) {
	variants := []map[string]string{
		{"Authorization": "Bearer " + key},
		{"api-key": key},
		{"X-API-Key": key},
	}
	for _, variant := range variants {
		headers := map[string]string{"Content-Type": "application/json"}
		for k, v := range variant {
			headers[k] = v
		}
		resp, err := ka.probes.Probe(ctx, client.ProbeRequest{
			Method:  http.MethodGet,
			URL:     desc.ModelsURL,
			Headers: headers,
			Timeout: analysisProbeTimeout,
		})
		if err != nil {
			if ctx.Err() != nil {
				analysis.Error = fmt.Sprintf("analysis aborted: %v", ctx.Err())
				return
			}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			continue
		}

		analysis.Valid = true
		models, err := client.ParseModelIDs(resp.Body)
		if err != nil || len(models) == 0 {
			models = provider.Catalog(desc.Type)
		}
		if len(models) > 10 {
			models = models[:10]
		}
		analysis.Models = models
		analysis.Capabilities = provider.InferCapabilities(desc.Type, models)
		return
	}
	if analysis.Error == "" {
		analysis.Error = "unable to validate API key"
	}
}

// geminiErrorStatus pulls the symbolic status out of a Gemini error
// envelope ({"error": {"status": "INVALID_ARGUMENT", …}}).
func geminiErrorStatus(body string) string {
	var envelope struct {
		Error struct {
			Status string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return ""
	}
	return envelope.Error.Status
}
