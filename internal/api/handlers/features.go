package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/feature-engine/internal/features"
	"github.com/stitts-dev/feature-engine/pkg/utils"
)

// FeatureHandler serves identifier validation and dependency resolution.
type FeatureHandler struct {
	resolver *features.Resolver
	registry features.Registry
	logger   *logrus.Logger
}

func NewFeatureHandler(resolver *features.Resolver, registry features.Registry, logger *logrus.Logger) *FeatureHandler {
	return &FeatureHandler{
		resolver: resolver,
		registry: registry,
		logger:   logger,
	}
}

type resolveRequest struct {
	Features          []string `json:"features" binding:"required"`
	IncludeTransitive *bool    `json:"include_transitive"`
}

type resolveResponse struct {
	Requested    []string            `json:"requested"`
	Dependencies []string            `json:"dependencies"`
	All          []string            `json:"all"`
	DirectDeps   map[string][]string `json:"direct_deps"`
}

// ResolveFeatures expands the requested identifiers to the full
// evaluation set and reports which columns the caller asked for versus
// which were pulled in as dependencies.
func (h *FeatureHandler) ResolveFeatures(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid resolve request", err.Error())
		return
	}
	if len(req.Features) == 0 {
		utils.SendValidationError(c, "No features requested", "")
		return
	}

	includeTransitive := true
	if req.IncludeTransitive != nil {
		includeTransitive = *req.IncludeTransitive
	}

	resolution := h.resolver.Resolve(req.Features, includeTransitive)
	sets := features.CategorizeFeatures(req.Features, resolution.All)

	utils.SendSuccess(c, resolveResponse{
		Requested:    sets.Requested,
		Dependencies: sets.Dependencies,
		All:          sets.All,
		DirectDeps:   resolution.DirectDeps,
	})
}

type validateRequest struct {
	Features []string `json:"features" binding:"required"`
}

type featureValidation struct {
	Feature  string            `json:"feature"`
	Valid    bool              `json:"valid"`
	Category features.Category `json:"category,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// ValidateFeatures runs strict registry-backed validation per feature.
// Invalid entries come back as rejected configurations, not errors.
func (h *FeatureHandler) ValidateFeatures(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid validate request", err.Error())
		return
	}

	results := make([]featureValidation, 0, len(req.Features))
	for _, raw := range req.Features {
		id, err := features.Parse(raw)
		if err != nil {
			results = append(results, featureValidation{Feature: raw, Valid: false, Error: err.Error()})
			continue
		}

		ok, msg := features.ValidateStrict(id, h.registry)
		result := featureValidation{Feature: raw, Valid: ok, Error: msg}
		if ok {
			result.Category = features.Categorize(id, h.registry)
		}
		results = append(results, result)
	}

	utils.SendSuccess(c, results)
}

type dependentsRequest struct {
	Feature  string   `json:"feature" binding:"required"`
	Universe []string `json:"universe" binding:"required"`
}

// GetDependentFeatures returns every identifier in the universe that
// directly depends on the given feature, for impact analysis before a
// delete or rename.
func (h *FeatureHandler) GetDependentFeatures(c *gin.Context) {
	var req dependentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid dependents request", err.Error())
		return
	}

	dependents := h.resolver.DependentFeatures(req.Feature, req.Universe)
	utils.SendSuccess(c, gin.H{
		"feature":    req.Feature,
		"dependents": dependents,
	})
}
