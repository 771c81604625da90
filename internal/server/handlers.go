package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/evanxz0/apikey-validation-service/internal/config"
	"github.com/evanxz0/apikey-validation-service/internal/provider"
	"github.com/evanxz0/apikey-validation-service/internal/service"
	"github.com/evanxz0/apikey-validation-service/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler bundles request-time dependencies for the API routes.
type Handler struct {
	cfg      *config.Config
	batch    service.BatchRunner
	models   service.ModelLister
	health   service.HealthMonitor
	analyzer service.Analyzer
}

// newHandler constructs a Handler with attached dependencies.
func newHandler(cfg *config.Config, batch service.BatchRunner, models service.ModelLister, health service.HealthMonitor, analyzer service.Analyzer) *Handler {
	return &Handler{
		cfg:      cfg,
		batch:    batch,
		models:   models,
		health:   health,
		analyzer: analyzer,
	}
}

func (h *Handler) liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "status": StatusHealthy})
}

// validate runs a bulk validation over the merged key list.
func (h *Handler) validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.WithComponent("server").Error("invalid request body", zap.Error(err))
		respBuilder := newResponseBuilder()
		c.JSON(http.StatusUnprocessableEntity, respBuilder.BuildErrorResponse(
			ErrorCodeInvalidRequestBody,
			MessageInvalidRequestBody,
			err.Error(),
		))
		return
	}

	keys := mergeKeys(req.Keys, req.Text)
	respBuilder := newResponseBuilder()
	if len(keys) == 0 {
		c.JSON(http.StatusUnprocessableEntity, respBuilder.BuildErrorResponse(
			ErrorCodeValidationFailed,
			MessageNoKeys,
			nil,
		))
		return
	}
	if len(keys) > h.cfg.MaxBatchKeys {
		c.JSON(http.StatusUnprocessableEntity, respBuilder.BuildErrorResponse(
			ErrorCodeBatchTooLarge,
			fmt.Sprintf(TooManyKeysMessageFmt, h.cfg.MaxBatchKeys),
			nil,
		))
		return
	}

	ptype, ok := provider.ParseType(req.Provider)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, respBuilder.BuildErrorResponse(
			ErrorCodeUnknownProvider,
			fmt.Sprintf("unsupported provider '%s'", req.Provider),
			nil,
		))
		return
	}

	results, err := h.batch.ValidateKeys(c.Request.Context(), service.BatchRequest{
		Keys:         keys,
		Provider:     ptype,
		Concurrency:  req.Concurrency,
		Model:        req.Model,
		CustomAPIURL: req.CustomAPIURL,
		CustomModel:  req.CustomModel,
	})
	if err != nil {
		utils.WithComponent("server").Warn("batch aborted", zap.Error(err))
		c.JSON(http.StatusInternalServerError, respBuilder.BuildErrorResponse(
			ErrorCodeBatchAborted,
			err.Error(),
			nil,
		))
		return
	}
	c.JSON(http.StatusOK, respBuilder.BuildValidationResponse(results))
}

// validateFile runs a bulk validation over keys uploaded as a file. CSV files
// contribute their first column; anything else is read line by line. The
// remaining batch options arrive as ordinary form fields.
func (h *Handler) validateFile(c *gin.Context) {
	respBuilder := newResponseBuilder()
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, respBuilder.BuildErrorResponse(
			ErrorCodeInvalidRequestBody,
			MessageNoFile,
			err.Error(),
		))
		return
	}
	if fileHeader.Size > MaxUploadBytes {
		c.JSON(http.StatusUnprocessableEntity, respBuilder.BuildErrorResponse(
			ErrorCodeInvalidRequestBody,
			MessageFileTooLarge,
			nil,
		))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, respBuilder.BuildErrorResponse(
			ErrorCodeInvalidRequestBody,
			MessageNoFile,
			err.Error(),
		))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, respBuilder.BuildErrorResponse(
			ErrorCodeInvalidRequestBody,
			MessageNoFile,
			err.Error(),
		))
		return
	}

	var keys []string
	if strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".csv") {
		keys = utils.ParseCSVKeys(data)
	} else {
		keys = utils.ParseKeyLines(string(data))
	}
	if len(keys) == 0 {
		c.JSON(http.StatusUnprocessableEntity, respBuilder.BuildErrorResponse(
			ErrorCodeValidationFailed,
			MessageNoKeys,
			nil,
		))
		return
	}
	if len(keys) > h.cfg.MaxBatchKeys {
		c.JSON(http.StatusUnprocessableEntity, respBuilder.BuildErrorResponse(
			ErrorCodeBatchTooLarge,
			fmt.Sprintf(TooManyKeysMessageFmt, h.cfg.MaxBatchKeys),
			nil,
		))
		return
	}

	ptype, ok := provider.ParseType(c.PostForm("provider"))
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, respBuilder.BuildErrorResponse(
			ErrorCodeUnknownProvider,
			fmt.Sprintf("unsupported provider '%s'", c.PostForm("provider")),
			nil,
		))
		return
	}
	concurrency, _ := strconv.Atoi(c.PostForm("concurrency"))

	utils.WithComponent("server").Info("file upload accepted",
		zap.String("filename", fileHeader.Filename),
		zap.Int(utils.FieldCount, len(keys)))

	results, err := h.batch.ValidateKeys(c.Request.Context(), service.BatchRequest{
		Keys:         keys,
		Provider:     ptype,
		Concurrency:  concurrency,
		Model:        c.PostForm("model"),
		CustomAPIURL: c.PostForm("custom_api_url"),
		CustomModel:  c.PostForm("custom_model"),
	})
	if err != nil {
		utils.WithComponent("server").Warn("batch aborted", zap.Error(err))
		c.JSON(http.StatusInternalServerError, respBuilder.BuildErrorResponse(
			ErrorCodeBatchAborted,
			err.Error(),
			nil,
		))
		return
	}
	c.JSON(http.StatusOK, respBuilder.BuildValidationResponse(results))
}

// listModels resolves the provider for one key and lists its models.
func (h *Handler) listModels(c *gin.Context) {
	var req modelsRequest
	respBuilder := newResponseBuilder()
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, respBuilder.BuildErrorResponse(
			ErrorCodeInvalidRequestBody,
			MessageInvalidRequestBody,
			err.Error(),
		))
		return
	}

	ptype, ok := provider.ParseType(req.Provider)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, respBuilder.BuildErrorResponse(
			ErrorCodeUnknownProvider,
			fmt.Sprintf("unsupported provider '%s'", req.Provider),
			nil,
		))
		return
	}

	report := h.models.ListModels(c.Request.Context(), req.Key, service.Options{
		Provider:     ptype,
		CustomAPIURL: req.CustomAPIURL,
		CustomModel:  req.CustomModel,
	})
	c.JSON(http.StatusOK, respBuilder.BuildModelsResponse(report))
}

// analyze runs a deep analysis of one key.
func (h *Handler) analyze(c *gin.Context) {
	var req analyzeRequest
	respBuilder := newResponseBuilder()
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, respBuilder.BuildErrorResponse(
			ErrorCodeInvalidRequestBody,
			MessageInvalidRequestBody,
			err.Error(),
		))
		return
	}

	analysis := h.analyzer.AnalyzeKey(c.Request.Context(), req.APIKey, req.PreferredModel)
	includeModels := req.CheckModels == nil || *req.CheckModels
	includeQuota := req.CheckQuota == nil || *req.CheckQuota
	c.JSON(http.StatusOK, respBuilder.BuildAnalysisResponse(analysis, includeModels, includeQuota))
}

// providersHealth returns the multi-provider snapshot, cached or fresh.
func (h *Handler) providersHealth(c *gin.Context) {
	report := h.health.CheckAll(c.Request.Context())
	c.JSON(http.StatusOK, newResponseBuilder().BuildHealthResponse(report))
}

// providerHealth probes a single provider by name.
func (h *Handler) providerHealth(c *gin.Context) {
	name := c.Param("provider")
	report, err := h.health.CheckProvider(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusNotFound, newResponseBuilder().BuildErrorResponse(
			ErrorCodeUnknownProvider,
			err.Error(),
			nil,
		))
		return
	}
	c.JSON(http.StatusOK, newResponseBuilder().BuildProviderHealthResponse(report))
}

// globalHealth returns the multi-region connectivity report.
func (h *Handler) globalHealth(c *gin.Context) {
	c.JSON(http.StatusOK, newResponseBuilder().BuildGlobalHealthResponse(h.health.RegionalStatus()))
}

func authMiddleware(expectedToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		expectedAuth := fmt.Sprintf("Bearer %s", expectedToken)
		if authHeader != expectedAuth {
			utils.WithComponent("server").Warn("unauthorized access attempt",
				zap.String(utils.FieldPath, c.Request.URL.Path))
			c.JSON(http.StatusUnauthorized, gin.H{"error": MessageInvalidToken})
			c.Abort()
			return
		}
		c.Next()
	}
}

// mergeKeys joins the explicit key array with parsed text lines, trimming
// and deduping while preserving first-seen order.
func mergeKeys(keys []string, text string) []string {
	merged := make([]string, 0, len(keys))
	merged = append(merged, keys...)
	merged = append(merged, utils.ParseKeyLines(text)...)

	seen := make(map[string]struct{}, len(merged))
	out := make([]string, 0, len(merged))
	for _, k := range merged {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
