package league

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/feature-engine/internal/models"
)

// ErrAlreadyComputed is returned when a season already has a record and
// the caller did not force recomputation.
var ErrAlreadyComputed = errors.New("league stats already computed for season")

// RefreshService recomputes and persists league normalization records.
// Each season is either written in full or not at all.
type RefreshService struct {
	store  *Store
	logger *logrus.Logger
	cron   *cron.Cron
}

func NewRefreshService(store *Store, logger *logrus.Logger) *RefreshService {
	return &RefreshService{
		store:  store,
		logger: logger,
	}
}

// Refresh recomputes the record for one season. Unless force is set, an
// existing record short-circuits with ErrAlreadyComputed. Zero
// denominators abandon the computation with a warning; the prior record
// (and every other season) is untouched.
func (s *RefreshService) Refresh(ctx context.Context, season string, force bool) (*models.LeagueSeasonStats, error) {
	log := s.logger.WithField("season", season)

	if !force {
		exists, err := s.store.Exists(ctx, season)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyComputed, season)
		}
	}

	rows, err := s.store.LoadTeamGames(ctx, season)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	record, err := ComputeSeasonStats(season, rows)
	if err != nil {
		log.WithError(err).Warn("League normalization computation abandoned, no record written")
		return nil, err
	}

	if err := s.store.Upsert(ctx, record); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"rows":       len(rows),
		"game_count": record.GameCount,
		"lg_pace":    record.LgPace,
		"vop":        record.LeagueConstants.VOP,
		"duration":   time.Since(started).String(),
	}).Info("League normalization record refreshed")

	return record, nil
}

// StartScheduled refreshes the given season on a cron schedule, for
// keeping the in-progress season's constants current as new box scores
// land. Returns an error for an invalid schedule expression.
func (s *RefreshService) StartScheduled(schedule, season string) error {
	if s.cron != nil {
		return errors.New("scheduled refresh already started")
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := s.Refresh(ctx, season, true); err != nil {
			s.logger.WithError(err).WithField("season", season).Error("Scheduled league refresh failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid league refresh schedule %q: %w", schedule, err)
	}

	c.Start()
	s.cron = c
	s.logger.WithFields(logrus.Fields{
		"schedule": schedule,
		"season":   season,
	}).Info("Scheduled league refresh started")
	return nil
}

// Stop halts the scheduled refresh, waiting for a running job to finish.
func (s *RefreshService) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
	}
}
