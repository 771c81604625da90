package server

import (
	"testing"
	"time"

	"github.com/evanxz0/apikey-validation-service/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"SimpleField", "simple_field"},
		{"ID", "id"},
		{"Key", "key"},
		{"ErrorCode", "error_code"},
		{"ErrorMessage", "error_message"},
		{"APIType", "api_type"},
		{"LatencyMS", "latency_ms"},
		{"CostPer1K", "cost_per_1k"},
		{"CheckedAt", "checked_at"},
		{"ValidationPath", "validation_path"},
		{"OverallStatus", "overall_status"},
		{"FromCache", "from_cache"},
		{"SuccessRate", "success_rate"},
		{"EffectiveModel", "effective_model"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, snakeCase(tt.in), "snakeCase(%q)", tt.in)
	}
}

func TestToSnakeCaseMap(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	input := struct {
		SimpleField  string
		ErrorCode    string
		LatencyMS    int64
		CheckedAt    time.Time
		NestedStruct struct {
			InnerField int
		}
	}{
		SimpleField: "value",
		ErrorCode:   "INVALID_KEY",
		LatencyMS:   42,
		CheckedAt:   ts,
	}
	input.NestedStruct.InnerField = 7

	output := toSnakeCaseMap(input)
	outMap, ok := output.(map[string]any)
	assert.True(t, ok)

	assert.Equal(t, "value", outMap["simple_field"])
	assert.Equal(t, "INVALID_KEY", outMap["error_code"])
	assert.Equal(t, int64(42), outMap["latency_ms"])
	assert.Equal(t, ts, outMap["checked_at"])

	nested, ok := outMap["nested_struct"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, 7, nested["inner_field"])
}

func TestToSnakeCaseMap_PointersAndCollections(t *testing.T) {
	stats := &service.LatencyStats{Min: 10, Max: 30, Avg: 20, Median: 20}
	input := struct {
		WithStats *service.LatencyStats
		NoStats   *service.LatencyStats
		Models    []string
		Empty     []string
		Table     map[string]*service.ProviderHealth
	}{
		WithStats: stats,
		Models:    []string{"gpt-4o"},
		Table: map[string]*service.ProviderHealth{
			"OpenAI": {Status: service.StatusOperational, SuccessRate: 100},
		},
	}

	outMap, ok := toSnakeCaseMap(input).(map[string]any)
	assert.True(t, ok)

	withStats, ok := outMap["with_stats"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, 20.0, withStats["median"])

	assert.Nil(t, outMap["no_stats"])
	assert.Equal(t, []any{"gpt-4o"}, outMap["models"])
	assert.Equal(t, []any{}, outMap["empty"])

	table, ok := outMap["table"].(map[string]any)
	assert.True(t, ok)
	openai, ok := table["OpenAI"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, service.StatusOperational, openai["status"])
}

func TestBuildValidationResponse(t *testing.T) {
	rb := newResponseBuilder()

	t.Run("Mixed Results", func(t *testing.T) {
		results := []service.ValidationResult{
			{Key: "sk-a", Valid: true, LatencyMS: 12},
			{Key: "sk-b", ErrorCode: service.CodeInvalidKey, ErrorMessage: "invalid API key"},
		}

		resp, ok := rb.BuildValidationResponse(results).(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, 2, resp["total"])
		assert.Equal(t, 1, resp["valid"])
		assert.Equal(t, 1, resp["invalid"])
		assert.NotContains(t, resp, "advisory")

		list, ok := resp["results"].([]any)
		assert.True(t, ok)
		first, ok := list[0].(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, "sk-a", first["key"])
		assert.Equal(t, int64(12), first["latency_ms"])
	})

	t.Run("All Network Errors", func(t *testing.T) {
		results := []service.ValidationResult{
			{Key: "sk-a", ErrorCode: service.CodeTimeout},
			{Key: "sk-b", ErrorCode: service.CodeConnectionError},
		}

		resp, ok := rb.BuildValidationResponse(results).(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, service.AdvisoryAllNetworkErrors, resp["advisory"])
	})
}

func TestBuildModelsResponse(t *testing.T) {
	rb := newResponseBuilder()

	t.Run("Success", func(t *testing.T) {
		report := &service.ModelsReport{
			Success:  true,
			Provider: "claude",
			Models:   []string{"claude-3-5-sonnet-20241022"},
		}

		resp, ok := rb.BuildModelsResponse(report).(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, "claude", resp["provider"])
		assert.NotContains(t, resp, "error")
	})

	t.Run("Failure Without Provider", func(t *testing.T) {
		report := &service.ModelsReport{Error: "unrecognized API key format"}

		resp, ok := rb.BuildModelsResponse(report).(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "unrecognized API key format", resp["error"])
		assert.NotContains(t, resp, "models")
		assert.NotContains(t, resp, "provider")
	})
}

func TestBuildAnalysisResponse(t *testing.T) {
	rb := newResponseBuilder()
	analysis := &service.KeyAnalysis{
		Key:        "sk-t...world",
		Valid:      true,
		APIType:    "OpenAI",
		Models:     []string{"gpt-4o"},
		Quota:      "$50/month",
		Expiration: "2026-03-01",
	}

	t.Run("Everything Included", func(t *testing.T) {
		resp, ok := rb.BuildAnalysisResponse(analysis, true, true).(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, true, resp["success"])
		result, ok := resp["result"].(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, "OpenAI", result["api_type"])
		assert.Contains(t, result, "models")
		assert.Contains(t, result, "quota")
		assert.Contains(t, result, "expiration")
	})

	t.Run("Sections Stripped", func(t *testing.T) {
		resp, ok := rb.BuildAnalysisResponse(analysis, false, false).(map[string]any)
		assert.True(t, ok)
		result, ok := resp["result"].(map[string]any)
		assert.True(t, ok)
		assert.NotContains(t, result, "models")
		assert.NotContains(t, result, "quota")
		assert.NotContains(t, result, "expiration")
		assert.Equal(t, true, result["valid"])
	})
}

func TestBuildHealthResponse(t *testing.T) {
	rb := newResponseBuilder()

	t.Run("Fresh Snapshot", func(t *testing.T) {
		report := &service.HealthReport{
			Timestamp: time.Now().UTC(),
			Providers: map[string]*service.ProviderHealth{
				"Gemini": {Status: service.StatusDown, Error: "connection failed"},
			},
			OverallStatus: service.OverallAllDown,
		}

		resp, ok := rb.BuildHealthResponse(report).(map[string]any)
		assert.True(t, ok)
		health, ok := resp["health"].(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, service.OverallAllDown, health["overall_status"])
		assert.NotContains(t, health, "from_cache")
		assert.NotContains(t, health, "cache_age")
	})

	t.Run("Cached Snapshot", func(t *testing.T) {
		report := &service.HealthReport{
			Timestamp:     time.Now().UTC(),
			FromCache:     true,
			CacheAge:      42,
			Providers:     map[string]*service.ProviderHealth{},
			OverallStatus: service.OverallAllOperational,
		}

		resp, ok := rb.BuildHealthResponse(report).(map[string]any)
		assert.True(t, ok)
		health, ok := resp["health"].(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, true, health["from_cache"])
		assert.Equal(t, 42, health["cache_age"])
	})
}

func TestBuildErrorResponse(t *testing.T) {
	rb := newResponseBuilder()

	t.Run("Without Details", func(t *testing.T) {
		resp, ok := rb.BuildErrorResponse(ErrorCodeValidationFailed, MessageNoKeys, nil).(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, false, resp["success"])
		errObj, ok := resp["error"].(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, ErrorCodeValidationFailed, errObj["code"])
		assert.Equal(t, MessageNoKeys, errObj["message"])
		assert.NotContains(t, errObj, "details")
	})

	t.Run("With Details", func(t *testing.T) {
		resp, ok := rb.BuildErrorResponse(ErrorCodeInvalidRequestBody, MessageInvalidRequestBody, "unexpected EOF").(map[string]any)
		assert.True(t, ok)
		errObj, ok := resp["error"].(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, "unexpected EOF", errObj["details"])
	})
}
