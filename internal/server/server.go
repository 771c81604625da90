package server

import (
	"github.com/evanxz0/apikey-validation-service/internal/config"
	"github.com/evanxz0/apikey-validation-service/internal/service"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the Gin router with the configured API handlers. The
// bearer-token middleware guards the /api routes only when a token is
// configured; the liveness endpoint is always open.
func NewRouter(cfg *config.Config, batch service.BatchRunner, models service.ModelLister, health service.HealthMonitor, analyzer service.Analyzer) *gin.Engine {
	router := gin.Default()

	handler := newHandler(cfg, batch, models, health, analyzer)

	router.GET(HealthEndpoint, handler.liveness)

	api := router.Group(APIGroup)
	if cfg.APIToken != "" {
		api.Use(authMiddleware(cfg.APIToken))
	}
	api.POST(ValidateRoute, handler.validate)
	api.POST(ValidateFileRoute, handler.validateFile)
	api.POST(ModelsRoute, handler.listModels)

	advanced := api.Group(AdvancedGroup)
	advanced.POST(AnalyzeRoute, handler.analyze)
	advanced.GET(ProvidersHealthRoute, handler.providersHealth)
	advanced.GET(GlobalHealthRoute, handler.globalHealth)
	advanced.GET(ProviderHealthRoute, handler.providerHealth)

	return router
}
