package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/feature-engine/internal/league"
	"github.com/stitts-dev/feature-engine/pkg/utils"
)

// LeagueHandler serves league normalization records.
type LeagueHandler struct {
	store   *league.Store
	refresh *league.RefreshService
	logger  *logrus.Logger
}

func NewLeagueHandler(store *league.Store, refresh *league.RefreshService, logger *logrus.Logger) *LeagueHandler {
	return &LeagueHandler{
		store:   store,
		refresh: refresh,
		logger:  logger,
	}
}

// GetSeasonConstants returns the persisted record for a season.
func (h *LeagueHandler) GetSeasonConstants(c *gin.Context) {
	season := c.Param("season")

	record, err := h.store.Get(c.Request.Context(), season)
	if err != nil {
		if errors.Is(err, league.ErrSeasonNotFound) {
			utils.SendNotFound(c, "No league stats computed for season "+season)
			return
		}
		h.logger.WithError(err).WithField("season", season).Error("Failed to load league stats")
		utils.SendInternalError(c, "Failed to load league stats")
		return
	}

	utils.SendSuccess(c, record)
}

// RefreshSeason recomputes and persists the record for a season. Without
// force=true an existing record is left alone.
func (h *LeagueHandler) RefreshSeason(c *gin.Context) {
	season := c.Param("season")
	force := c.Query("force") == "true"

	record, err := h.refresh.Refresh(c.Request.Context(), season, force)
	if err != nil {
		switch {
		case errors.Is(err, league.ErrAlreadyComputed):
			utils.SendConflict(c, "League stats already computed for season "+season+"; pass force=true to recompute")
		case errors.Is(err, league.ErrNoEligibleGames), errors.Is(err, league.ErrZeroDenominator):
			utils.SendError(c, http.StatusUnprocessableEntity,
				utils.NewAppError(utils.ErrCodeLeagueComputation, "League computation abandoned", err.Error()))
		default:
			h.logger.WithError(err).WithField("season", season).Error("League refresh failed")
			utils.SendInternalError(c, "League refresh failed")
		}
		return
	}

	utils.SendSuccess(c, record)
}
