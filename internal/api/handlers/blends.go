package handlers

import (
	"fmt"
	"math"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/feature-engine/internal/features"
	"github.com/stitts-dev/feature-engine/internal/services"
	"github.com/stitts-dev/feature-engine/pkg/utils"
)

// BlendHandler serves blend configuration validation and evaluation.
type BlendHandler struct {
	evaluator features.Evaluator
	cache     *services.CacheService
	cacheTTL  time.Duration
	logger    *logrus.Logger
}

func NewBlendHandler(evaluator features.Evaluator, cache *services.CacheService, cacheTTL time.Duration, logger *logrus.Logger) *BlendHandler {
	return &BlendHandler{
		evaluator: evaluator,
		cache:     cache,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

type blendConfigsRequest struct {
	BaseStat    string                      `json:"base_stat" binding:"required"`
	Perspective string                      `json:"perspective" binding:"required"`
	Configs     [][]features.BlendComponent `json:"configs" binding:"required"`
}

type blendValidateResponse struct {
	Valid   []features.ValidatedBlend   `json:"valid"`
	Invalid []features.BlendConfigError `json:"invalid"`
}

// ValidateBlends validates every candidate configuration independently
// and returns canonical names for the valid ones.
func (h *BlendHandler) ValidateBlends(c *gin.Context) {
	var req blendConfigsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid blend validation request", err.Error())
		return
	}

	valid, invalid := features.ValidateBlendConfigs(req.BaseStat, req.Perspective, req.Configs)
	utils.SendSuccess(c, blendValidateResponse{Valid: valid, Invalid: invalid})
}

type blendEvaluateRequest struct {
	blendConfigsRequest
	Game features.GameContext `json:"game" binding:"required"`
}

type blendValue struct {
	Name string `json:"name"`
	// Value is null when any component is missing; missing never
	// becomes zero.
	Value *float64 `json:"value"`
	Error string   `json:"error,omitempty"`
}

type blendEvaluateResponse struct {
	Values  []blendValue                `json:"values"`
	Invalid []features.BlendConfigError `json:"invalid"`
}

// EvaluateBlends evaluates every valid configuration against one game.
// Component values are memoized per tuple, so dozens of weight variants
// over the same component set hit the evaluator once per component.
func (h *BlendHandler) EvaluateBlends(c *gin.Context) {
	var req blendEvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid blend evaluation request", err.Error())
		return
	}

	valid, invalid := features.ValidateBlendConfigs(req.BaseStat, req.Perspective, req.Configs)

	// One memoizer per request: every config shares component values.
	memo := features.NewMemoEvaluator(h.evaluator)
	gameKey := gameCacheKey(req.Game)

	values := make([]blendValue, 0, len(valid))
	for _, vb := range valid {
		cacheKey := services.BlendValueCacheKey(vb.Name, gameKey)
		if h.cache != nil {
			var cached float64
			if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil {
				values = append(values, blendValue{Name: vb.Name, Value: &cached})
				continue
			}
		}

		value, err := vb.Spec.Evaluate(c.Request.Context(), memo, req.Game)
		if err != nil || math.IsNaN(value) {
			bv := blendValue{Name: vb.Name}
			if err != nil {
				bv.Error = err.Error()
			}
			values = append(values, bv)
			continue
		}

		if h.cache != nil {
			if err := h.cache.Set(c.Request.Context(), cacheKey, value, h.cacheTTL); err != nil {
				h.logger.WithError(err).WithField("blend", vb.Name).Warn("Failed to cache blend value")
			}
		}
		values = append(values, blendValue{Name: vb.Name, Value: &value})
	}

	hits, misses := memo.Stats()
	h.logger.WithFields(logrus.Fields{
		"configs":     len(req.Configs),
		"memo_hits":   hits,
		"memo_misses": misses,
	}).Debug("Blend evaluation completed")

	utils.SendSuccess(c, blendEvaluateResponse{Values: values, Invalid: invalid})
}

func gameCacheKey(game features.GameContext) string {
	return fmt.Sprintf("%s:%s:%s:%04d-%02d-%02d",
		game.HomeTeam, game.AwayTeam, game.Season, game.Year, game.Month, game.Day)
}
