// internal/server/response_builder.go
package server

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/evanxz0/apikey-validation-service/internal/service"
)

// ResponseBuilder renders service records into the wire shape. Service
// types carry no JSON tags; the builder converts exported field names to
// snake_case so the wire format stays in one place.
type ResponseBuilder struct{}

// newResponseBuilder creates a new response builder instance.
func newResponseBuilder() *ResponseBuilder { return &ResponseBuilder{} }

// batchResponse is the POST /api/validate payload.
type batchResponse struct {
	Total    int
	Valid    int
	Invalid  int
	Advisory string
	Results  []service.ValidationResult
}

// errorResponse standardizes error payloads.
type errorResponse struct {
	Success bool
	Error   errorBody
}

type errorBody struct {
	Code    string
	Message string
	Details any
}

// BuildValidationResponse aggregates batch results into the wire shape. The
// advisory key appears only when the batch raised one.
func (rb *ResponseBuilder) BuildValidationResponse(results []service.ValidationResult) any {
	summary := service.Summarize(results)
	resp := toSnakeCaseMap(batchResponse{
		Total:    summary.Total,
		Valid:    summary.Valid,
		Invalid:  summary.Invalid,
		Advisory: summary.Advisory,
		Results:  results,
	})
	if m, ok := resp.(map[string]any); ok && summary.Advisory == "" {
		delete(m, "advisory")
	}
	return resp
}

// BuildModelsResponse renders a models report flat: {success, provider,
// models} on success, {success, error} on failure.
func (rb *ResponseBuilder) BuildModelsResponse(report *service.ModelsReport) any {
	resp := toSnakeCaseMap(report)
	m, ok := resp.(map[string]any)
	if !ok {
		return resp
	}
	if report.Success {
		delete(m, "error")
	} else {
		delete(m, "models")
		if report.Provider == "" {
			delete(m, "provider")
		}
	}
	return m
}

// BuildAnalysisResponse wraps a deep-analysis record. The models and
// quota/expiration fields are elided when the caller turned those checks
// off.
func (rb *ResponseBuilder) BuildAnalysisResponse(analysis *service.KeyAnalysis, includeModels, includeQuota bool) any {
	result, ok := toSnakeCaseMap(analysis).(map[string]any)
	if ok {
		if !includeModels {
			delete(result, "models")
		}
		if !includeQuota {
			delete(result, "quota")
			delete(result, "expiration")
		}
	}
	return map[string]any{"success": true, "result": result}
}

// BuildHealthResponse wraps the multi-provider snapshot. Fresh snapshots
// carry no cache annotations.
func (rb *ResponseBuilder) BuildHealthResponse(report *service.HealthReport) any {
	health, ok := toSnakeCaseMap(report).(map[string]any)
	if ok && !report.FromCache {
		delete(health, "from_cache")
		delete(health, "cache_age")
	}
	return map[string]any{"success": true, "health": health}
}

// BuildProviderHealthResponse wraps a single provider's health record.
func (rb *ResponseBuilder) BuildProviderHealthResponse(report *service.ProviderReport) any {
	return map[string]any{"success": true, "health": toSnakeCaseMap(report)}
}

// BuildGlobalHealthResponse wraps the multi-region connectivity report.
func (rb *ResponseBuilder) BuildGlobalHealthResponse(report *service.RegionalReport) any {
	return map[string]any{"success": true, "global_health": toSnakeCaseMap(report)}
}

// BuildErrorResponse constructs a standardized error response.
func (rb *ResponseBuilder) BuildErrorResponse(code, message string, details any) any {
	resp := toSnakeCaseMap(errorResponse{
		Error: errorBody{Code: code, Message: message, Details: details},
	})
	if m, ok := resp.(map[string]any); ok && details == nil {
		if errObj, ok := m["error"].(map[string]any); ok {
			delete(errObj, "details")
		}
	}
	return resp
}

// toSnakeCaseMap recursively converts structs into maps keyed by the
// snake_case form of each exported field name. Timestamps pass through
// untouched so they marshal as RFC 3339 strings.
func toSnakeCaseMap(data any) any {
	if t, ok := data.(time.Time); ok {
		return t
	}

	val := reflect.ValueOf(data)

	// Handle pointers
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		return toSnakeCaseMap(val.Elem().Interface())
	}

	// Handle slices/arrays
	if val.Kind() == reflect.Slice || val.Kind() == reflect.Array {
		out := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			out[i] = toSnakeCaseMap(val.Index(i).Interface())
		}
		return out
	}

	// Handle string-keyed maps (provider and region tables)
	if val.Kind() == reflect.Map {
		out := make(map[string]any, val.Len())
		for _, k := range val.MapKeys() {
			out[fmt.Sprint(k.Interface())] = toSnakeCaseMap(val.MapIndex(k).Interface())
		}
		return out
	}

	// Handle structs
	if val.Kind() == reflect.Struct {
		out := make(map[string]any)
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			// Skip unexported fields
			if field.PkgPath != "" {
				continue
			}
			out[snakeCase(field.Name)] = toSnakeCaseMap(val.Field(i).Interface())
		}
		return out
	}

	// Return primitives as-is
	return data
}

// snakeCase converts an exported Go field name to snake_case, keeping
// acronym runs together: "ErrorCode" -> "error_code", "APIType" ->
// "api_type", "LatencyMS" -> "latency_ms", "CostPer1K" -> "cost_per_1k".
func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(runes) + 4)
	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || nextLower) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsDigit(r):
			if i > 0 && unicode.IsLower(runes[i-1]) {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
