package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/feature-engine/internal/api/handlers"
	"github.com/stitts-dev/feature-engine/internal/api/middleware"
	"github.com/stitts-dev/feature-engine/internal/features"
	"github.com/stitts-dev/feature-engine/internal/league"
	"github.com/stitts-dev/feature-engine/internal/services"
	"github.com/stitts-dev/feature-engine/pkg/config"
)

// SetupRoutes configures all API routes on the given router group. The
// resolver, registry, and evaluator are passed in explicitly; nothing is
// resolved from ambient globals.
func SetupRoutes(
	group *gin.RouterGroup,
	resolver *features.Resolver,
	registry features.Registry,
	evaluator features.Evaluator,
	store *league.Store,
	refresh *league.RefreshService,
	cache *services.CacheService,
	cfg *config.Config,
	logger *logrus.Logger,
) {
	group.Use(middleware.CorrelationID())

	featureHandler := handlers.NewFeatureHandler(resolver, registry, logger)
	blendHandler := handlers.NewBlendHandler(evaluator, cache, cfg.BlendCacheTTL, logger)
	leagueHandler := handlers.NewLeagueHandler(store, refresh, logger)

	// Feature identifier endpoints
	group.POST("/features/resolve", featureHandler.ResolveFeatures)
	group.POST("/features/validate", featureHandler.ValidateFeatures)
	group.POST("/features/dependents", featureHandler.GetDependentFeatures)

	// Blend endpoints
	group.POST("/blends/validate", blendHandler.ValidateBlends)
	group.POST("/blends/evaluate", blendHandler.EvaluateBlends)

	// League normalization endpoints
	group.GET("/league/:season/constants", leagueHandler.GetSeasonConstants)
	group.POST("/league/:season/refresh", leagueHandler.RefreshSeason)
}
