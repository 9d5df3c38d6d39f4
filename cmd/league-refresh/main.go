package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/feature-engine/internal/league"
	"github.com/stitts-dev/feature-engine/internal/models"
	"github.com/stitts-dev/feature-engine/pkg/config"
	"github.com/stitts-dev/feature-engine/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: league-refresh [migrate|<season>] [--force]")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	if command == "migrate" {
		if err := db.AutoMigrate(&models.TeamGame{}, &models.LeagueSeasonStats{}); err != nil {
			logrus.Fatalf("Failed to migrate models: %v", err)
		}
		logrus.Info("Migrations completed successfully")
		return
	}

	season := command
	force := len(os.Args) > 2 && os.Args[2] == "--force"

	// No redis here: a one-shot refresh goes straight to postgres.
	store := league.NewStore(db, nil, 0, logrus.StandardLogger())
	refresh := league.NewRefreshService(store, logrus.StandardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	record, err := refresh.Refresh(ctx, season, force)
	if err != nil {
		logrus.Fatalf("League refresh failed for season %s: %v", season, err)
	}

	logrus.WithFields(logrus.Fields{
		"season":     record.Season,
		"game_count": record.GameCount,
		"lg_pace":    record.LgPace,
		"factor":     record.LeagueConstants.Factor,
		"vop":        record.LeagueConstants.VOP,
		"drb_pct":    record.LeagueConstants.DRBPct,
	}).Info("League normalization record refreshed")
}
