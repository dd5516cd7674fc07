package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/gridiron-projections/internal/api/handlers"
	"github.com/jstittsworth/gridiron-projections/internal/api/middleware"
	"github.com/jstittsworth/gridiron-projections/internal/engine"
	"github.com/jstittsworth/gridiron-projections/internal/services"
	"github.com/jstittsworth/gridiron-projections/pkg/config"
	"github.com/jstittsworth/gridiron-projections/pkg/database"
)

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, db *database.DB, cache *services.CacheService, wsHub *services.WebSocketHub, cfg *config.Config, eng *engine.Engine, ingest *services.IngestService, refresher *services.Refresher) {
	// Initialize handlers
	projectionHandler := handlers.NewProjectionHandler(db, cache, eng, wsHub)
	teamHandler := handlers.NewTeamHandler(db, cache, eng, wsHub)
	scenarioHandler := handlers.NewScenarioHandler(cache, eng, wsHub)
	overrideHandler := handlers.NewOverrideHandler(db, cache, eng, wsHub)
	rookieHandler := handlers.NewRookieHandler(cache, eng, wsHub)
	playerHandler := handlers.NewPlayerHandler(db, cache)
	exportHandler := handlers.NewExportHandler(db)
	referenceHandler := handlers.NewReferenceHandler()
	adminHandler := handlers.NewAdminHandler(ingest, refresher)

	// Batch and export routes carry a per-client budget; everything else is
	// cheap enough to leave unmetered.
	heavyLimiter := middleware.NewRateLimiter(float64(cfg.RateLimitRPS), cfg.RateLimitBurst)

	// Projection endpoints
	group.POST("/projections", projectionHandler.CreateProjection)
	group.GET("/projections", projectionHandler.ListProjections)
	group.GET("/projections/:id", projectionHandler.GetProjection)
	group.PUT("/projections/:id/adjust", projectionHandler.AdjustProjection)
	group.GET("/projections/:id/variance", projectionHandler.GetVariance)
	group.GET("/projections/:id/range", projectionHandler.GetRange)
	group.GET("/projections/:id/overrides", projectionHandler.ListProjectionOverrides)
	group.POST("/projections/batch", heavyLimiter.Middleware(), projectionHandler.BatchCreateProjections)
	group.PUT("/projections/batch-adjust", heavyLimiter.Middleware(), projectionHandler.BatchAdjustProjections)

	// Team endpoints
	group.POST("/teams/:team/adjustments", teamHandler.ApplyAdjustments)
	group.POST("/teams/:team/fill", teamHandler.ReconcileTeam)
	group.GET("/teams/:team/stats", teamHandler.GetTeamStats)

	// Scenario endpoints
	group.POST("/scenarios", scenarioHandler.CreateScenario)
	group.GET("/scenarios", scenarioHandler.ListScenarios)
	group.GET("/scenarios/compare", scenarioHandler.CompareScenarios)
	group.GET("/scenarios/:id", scenarioHandler.GetScenario)
	group.POST("/scenarios/:id/clone", scenarioHandler.CloneScenario)
	group.DELETE("/scenarios/:id", scenarioHandler.DeleteScenario)
	group.POST("/scenarios/batch", heavyLimiter.Middleware(), scenarioHandler.BatchCreateScenarios)

	// Override endpoints
	group.POST("/overrides", overrideHandler.CreateOverride)
	group.GET("/overrides", overrideHandler.ListOverrides)
	group.DELETE("/overrides/:id", overrideHandler.DeleteOverride)
	group.POST("/overrides/batch", heavyLimiter.Middleware(), overrideHandler.BatchCreateOverrides)

	// Rookie endpoints
	group.GET("/rookies/templates", rookieHandler.ListTemplates)
	group.POST("/rookies/projections", rookieHandler.CreateRookieProjection)

	// Player endpoints
	group.GET("/players", playerHandler.GetPlayers)
	group.GET("/players/:id", playerHandler.GetPlayer)

	// Export endpoints
	group.GET("/export/projections", heavyLimiter.Middleware(), exportHandler.ExportProjections)

	// Reference endpoints
	group.GET("/reference/stats", referenceHandler.ListStats)
	group.GET("/reference/stats/:name", referenceHandler.GetStat)
	group.GET("/reference/factors", referenceHandler.ListFactors)
	group.GET("/reference/scoring", referenceHandler.GetScoring)

	// Admin endpoints
	admin := group.Group("/admin")
	admin.Use(middleware.AuthRequired(cfg.JWTSecret))
	{
		admin.POST("/sync/:season", adminHandler.TriggerSync)
		admin.POST("/refresh", adminHandler.TriggerRefresh)
	}
}
