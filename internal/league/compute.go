package league

import (
	"errors"
	"fmt"
	"time"

	"github.com/stitts-dev/feature-engine/internal/models"
)

// Free-throw possession coefficient in the standard possessions formula.
const ftaPossessionWeight = 0.44

var (
	// ErrNoEligibleGames means no completed regular-season rows existed
	// for the season.
	ErrNoEligibleGames = errors.New("no eligible team-game rows for season")

	// ErrZeroDenominator means a league constant's denominator was
	// exactly zero. The whole season computation is abandoned; no
	// partial record is produced.
	ErrZeroDenominator = errors.New("zero denominator in league constant")
)

// ComputeSeasonStats derives the league normalization record for one
// season from raw team-game rows. Ineligible rows (preseason, all-star,
// unfinished) are skipped. On any zero denominator the computation
// fails as a whole and returns no record.
func ComputeSeasonStats(season string, rows []models.TeamGame) (*models.LeagueSeasonStats, error) {
	totals := models.StatTotals{
		"ast": 0, "fg": 0, "fga": 0, "ft": 0, "fta": 0,
		"pts": 0, "trb": 0, "orb": 0, "tov": 0, "pf": 0,
		"possessions": 0, "team_games": 0,
	}
	teamPossessions := make(map[string]float64)
	teamGames := models.IntByTeam{}

	for i := range rows {
		row := &rows[i]
		if !row.Eligible() {
			continue
		}

		poss := row.Possessions()
		totals["ast"] += row.AST
		totals["fg"] += row.FG
		totals["fga"] += row.FGA
		totals["ft"] += row.FT
		totals["fta"] += row.FTA
		totals["pts"] += row.PTS
		totals["trb"] += row.TRB
		totals["orb"] += row.ORB
		totals["tov"] += row.TOV
		totals["pf"] += row.PF
		totals["possessions"] += poss
		totals["team_games"]++

		teamPossessions[row.Team] += poss
		teamGames[row.Team]++
	}

	lgTeamGames := totals["team_games"]
	if lgTeamGames == 0 {
		return nil, fmt.Errorf("%w: season %s", ErrNoEligibleGames, season)
	}

	constants, err := deriveConstants(totals)
	if err != nil {
		return nil, fmt.Errorf("season %s: %w", season, err)
	}

	lgPace := totals["possessions"] / lgTeamGames

	teamPace := models.FloatByTeam{}
	for team, poss := range teamPossessions {
		if games := teamGames[team]; games > 0 {
			teamPace[team] = poss / float64(games)
		} else {
			// A team with no recorded games still gets an entry.
			teamPace[team] = lgPace
		}
	}

	return &models.LeagueSeasonStats{
		Season:          season,
		LeagueTotals:    totals,
		LeagueConstants: *constants,
		LgPace:          lgPace,
		TeamPace:        teamPace,
		TeamGames:       teamGames,
		GameCount:       int(lgTeamGames) / 2,
		ComputedAt:      time.Now().UTC(),
		Version:         models.LeagueSeasonStatsVersion,
	}, nil
}

// deriveConstants computes factor, VOP, and DRB% from league totals.
// Formulas follow the standard PER normalization:
//
//	factor  = 2/3 − 0.5·(lg_AST/lg_FG) / (2·(lg_FG/lg_FT))
//	VOP     = lg_PTS / (lg_FGA − lg_ORB + lg_TOV + 0.44·lg_FTA)
//	DRB_pct = (lg_TRB − lg_ORB) / lg_TRB
func deriveConstants(totals models.StatTotals) (*models.LeagueConstants, error) {
	if totals["fg"] == 0 {
		return nil, fmt.Errorf("%w: lg_FG", ErrZeroDenominator)
	}
	if totals["ft"] == 0 {
		return nil, fmt.Errorf("%w: lg_FT", ErrZeroDenominator)
	}
	factor := 2.0/3.0 - 0.5*(totals["ast"]/totals["fg"])/(2.0*(totals["fg"]/totals["ft"]))

	vopDenom := totals["fga"] - totals["orb"] + totals["tov"] + ftaPossessionWeight*totals["fta"]
	if vopDenom == 0 {
		return nil, fmt.Errorf("%w: lg_FGA − lg_ORB + lg_TOV + 0.44·lg_FTA", ErrZeroDenominator)
	}
	vop := totals["pts"] / vopDenom

	if totals["trb"] == 0 {
		return nil, fmt.Errorf("%w: lg_TRB", ErrZeroDenominator)
	}
	drbPct := (totals["trb"] - totals["orb"]) / totals["trb"]

	return &models.LeagueConstants{
		Factor: factor,
		VOP:    vop,
		DRBPct: drbPct,
	}, nil
}
