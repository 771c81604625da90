// internal/service/types.go
// Package service implements the key validation engine: the per-key probe
// pipeline, the batch orchestrator, provider health checks, and deep key
// analysis.
package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/evanxz0/apikey-validation-service/internal/provider"
)

// Validation error codes. INVALID_KEY and INVALID_MODEL are terminal
// classifications; the connection-class codes (CONNECTION_ERROR, TIMEOUT,
// NETWORK_ERROR) mark transient transport trouble and are the only codes
// that trigger the backup-endpoint fallback.
const (
	CodeInvalidKey      = "INVALID_KEY"
	CodeRateLimit       = "RATE_LIMIT"
	CodeConnectionError = "CONNECTION_ERROR"
	CodeNetworkError    = "NETWORK_ERROR"
	CodeTimeout         = "TIMEOUT"
	CodeUnknownError    = "UNKNOWN_ERROR"
	CodeInvalidModel    = "INVALID_MODEL"
	CodeException       = "EXCEPTION"
	CodeConfigMissing   = "CONFIG_MISSING"
	CodeInvalidConfig   = "INVALID_CONFIG"
	CodeUnknownProvider = "UNKNOWN_PROVIDER"
)

// HTTPCode renders an HTTP status as an error code, e.g. "HTTP_503".
func HTTPCode(status int) string {
	return fmt.Sprintf("HTTP_%d", status)
}

// connectionClassCodes are the failures that mean "the provider was never
// reached", as opposed to "the provider rejected the key".
var connectionClassCodes = map[string]bool{
	CodeConnectionError: true,
	CodeTimeout:         true,
	CodeNetworkError:    true,
}

// ValidationResult is the outcome of validating one key. Valid == true
// implies ErrorCode == "".
type ValidationResult struct {
	Key            string
	Valid          bool
	ErrorCode      string
	ErrorMessage   string
	SelectedModel  string
	EffectiveModel string
	ValidationPath provider.Path
	LatencyMS      int64
	CheckedAt      time.Time
}

// BatchRequest is one bulk validation run. Keys must be non-empty; the
// HTTP layer enforces the count cap before the request reaches the
// orchestrator.
type BatchRequest struct {
	Keys []string
	// Provider pins every key to one provider family; empty means per-key
	// detection from key shape.
	Provider    provider.Type
	Concurrency int
	// Model switches every key to model-scoped validation.
	Model string
	// CustomAPIURL and CustomModel configure the OpenAI-compatible provider.
	CustomAPIURL string
	CustomModel  string
}

// Options projects the per-key knobs out of a BatchRequest.
func (r BatchRequest) Options() Options {
	return Options{
		Provider:     r.Provider,
		Model:        r.Model,
		CustomAPIURL: r.CustomAPIURL,
		CustomModel:  r.CustomModel,
	}
}

// AdvisoryAllNetworkErrors flags a batch whose every result is a
// connection-class failure: the keys were never actually judged, so the
// caller may want to retry later or try the completion-probe path.
const AdvisoryAllNetworkErrors = "all_network_errors"

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	Total    int
	Valid    int
	Invalid  int
	Advisory string
}

// Summarize counts valid and invalid results and raises the all-network-
// errors advisory when not a single key produced a real verdict.
func Summarize(results []ValidationResult) BatchSummary {
	summary := BatchSummary{Total: len(results)}
	allNetwork := len(results) > 0
	for _, res := range results {
		if res.Valid {
			summary.Valid++
		} else {
			summary.Invalid++
		}
		if !connectionClassCodes[res.ErrorCode] {
			allNetwork = false
		}
	}
	if allNetwork {
		summary.Advisory = AdvisoryAllNetworkErrors
	}
	return summary
}

// ModelsReport is the outcome of listing models for one key.
type ModelsReport struct {
	Success  bool
	Provider string
	Models   []string
	Error    string
}

// Provider health statuses.
const (
	StatusOperational = "operational"
	StatusDegraded    = "degraded"
	StatusDown        = "down"
)

// LatencyStats summarizes probe latencies in milliseconds, computed over
// successful probes only.
type LatencyStats struct {
	Min    float64
	Max    float64
	Avg    float64
	Median float64
}

// ProviderHealth is the health record for one provider.
type ProviderHealth struct {
	Status      string
	LatencyMS   *LatencyStats
	SuccessRate float64
	Error       string
	LastChecked time.Time
}

// HealthReport is the multi-provider snapshot returned by CheckAll. Cached
// snapshots come back with FromCache set and CacheAge in seconds.
type HealthReport struct {
	Timestamp     time.Time
	FromCache     bool
	CacheAge      int
	Providers     map[string]*ProviderHealth
	OverallStatus string
}

// ProviderReport wraps a single provider's fresh health record.
type ProviderReport struct {
	Provider  string
	Timestamp time.Time
	Health    *ProviderHealth
}

// RegionalProviderStatus is one provider's reachability from one region.
type RegionalProviderStatus struct {
	Status      string
	LatencyMS   float64
	SuccessRate float64
}

// RegionStatus aggregates provider reachability for one region.
type RegionStatus struct {
	Status    string
	Providers map[string]*RegionalProviderStatus
}

// RegionalReport is the multi-region connectivity report. The data is
// currently simulated; real per-region probes would need agents outside
// this process.
type RegionalReport struct {
	Timestamp time.Time
	Regions   map[string]*RegionStatus
}

// KeyAnalysis is the deep-analysis record for one key. Unlike
// ValidationResult, Error here can coexist with Valid == true: it then
// carries a low-confidence advisory such as "request malformed, key
// probably valid" or a rate-limit note.
type KeyAnalysis struct {
	Key            string
	Valid          bool
	APIType        string
	Models         []string
	Quota          string
	Expiration     string
	Capabilities   []string
	Error          string
	SelectedModel  string
	EffectiveModel string
	CostPer1K      float64
	Timestamp      time.Time
}

// providerErrorMessage digs the human-readable message out of a provider
// error envelope ({"error": {"message": …}} or {"error": "…"}); bodies that
// don't parse come back truncated raw.
func providerErrorMessage(body string) string {
	var envelope struct {
		Error json.RawMessage
	}
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && len(envelope.Error) > 0 {
		var obj struct {
			Message string
		}
		if err := json.Unmarshal(envelope.Error, &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
		var msg string
		if err := json.Unmarshal(envelope.Error, &msg); err == nil && msg != "" {
			return msg
		}
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return "unknown error"
	}
	if len(body) > 120 {
		body = body[:120]
	}
	return body
}
