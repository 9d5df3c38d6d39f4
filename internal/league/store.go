package league

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stitts-dev/feature-engine/internal/models"
	"github.com/stitts-dev/feature-engine/internal/services"
	"github.com/stitts-dev/feature-engine/pkg/database"
)

// ErrSeasonNotFound means no record exists for the requested season.
var ErrSeasonNotFound = errors.New("league season stats not found")

// Store persists league season stats: postgres as the source of truth,
// redis in front for read traffic from the evaluator.
type Store struct {
	db       *database.DB
	cache    *services.CacheService
	cacheTTL time.Duration
	logger   *logrus.Logger
}

func NewStore(db *database.DB, cache *services.CacheService, cacheTTL time.Duration, logger *logrus.Logger) *Store {
	return &Store{
		db:       db,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Get returns the record for a season, from cache when possible.
func (s *Store) Get(ctx context.Context, season string) (*models.LeagueSeasonStats, error) {
	cacheKey := services.LeagueStatsCacheKey(season)

	if s.cache != nil {
		var cached models.LeagueSeasonStats
		err := s.cache.Get(ctx, cacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, services.ErrCacheMiss) {
			s.logger.WithError(err).WithField("season", season).Warn("League stats cache read failed, falling back to database")
		}
	}

	var record models.LeagueSeasonStats
	if err := s.db.WithContext(ctx).Where("season = ?", season).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSeasonNotFound, season)
		}
		return nil, fmt.Errorf("failed to load league stats for season %s: %w", season, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, &record, s.cacheTTL); err != nil {
			s.logger.WithError(err).WithField("season", season).Warn("Failed to cache league stats")
		}
	}

	return &record, nil
}

// Exists reports whether a record is already persisted for the season.
func (s *Store) Exists(ctx context.Context, season string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.LeagueSeasonStats{}).
		Where("season = ?", season).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check league stats for season %s: %w", season, err)
	}
	return count > 0, nil
}

// Upsert writes the full record atomically, keyed by season. A single
// ON CONFLICT statement keeps writes last-writer-wins with no partial
// in-place mutation. The cache entry is replaced on success.
func (s *Store) Upsert(ctx context.Context, record *models.LeagueSeasonStats) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "season"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"league_totals", "league_constants", "lg_pace",
			"team_pace", "team_games", "game_count",
			"computed_at", "version", "updated_at",
		}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert league stats for season %s: %w", record.Season, err)
	}

	if s.cache != nil {
		cacheKey := services.LeagueStatsCacheKey(record.Season)
		if err := s.cache.Set(ctx, cacheKey, record, s.cacheTTL); err != nil {
			s.logger.WithError(err).WithField("season", record.Season).Warn("Failed to refresh league stats cache after upsert")
		}
	}

	return nil
}

// LoadTeamGames reads every completed regular-season team-game row for a
// season, the input set for ComputeSeasonStats.
func (s *Store) LoadTeamGames(ctx context.Context, season string) ([]models.TeamGame, error) {
	var rows []models.TeamGame
	err := s.db.WithContext(ctx).
		Where("season = ? AND status = ? AND game_type = ?", season, models.GameStatusFinal, models.GameTypeRegular).
		Order("game_date, team").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load team games for season %s: %w", season, err)
	}
	return rows, nil
}
