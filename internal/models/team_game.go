package models

import "time"

// Game type and status values for eligibility filtering.
const (
	GameTypeRegular   = "regular"
	GameTypePreseason = "preseason"
	GameTypeAllStar   = "allstar"
	GameTypePlayoff   = "playoff"

	GameStatusFinal     = "final"
	GameStatusScheduled = "scheduled"
	GameStatusLive      = "live"
)

// TeamGame is one team's box-score line for one game, as ingested by the
// scraping pipeline. The engine only reads these rows.
type TeamGame struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Season   string    `gorm:"index;not null" json:"season"`
	GameDate time.Time `gorm:"not null" json:"game_date"`
	GameID   string    `gorm:"index" json:"game_id"`
	Team     string    `gorm:"not null" json:"team"` // abbreviation, e.g. "BOS"
	Opponent string    `json:"opponent"`
	Home     bool      `json:"home"`
	GameType string    `gorm:"default:regular" json:"game_type"`
	Status   string    `gorm:"default:scheduled" json:"status"`

	PTS float64 `json:"pts"`
	FG  float64 `json:"fg"`
	FGA float64 `json:"fga"`
	FT  float64 `json:"ft"`
	FTA float64 `json:"fta"`
	ORB float64 `json:"orb"`
	TRB float64 `json:"trb"`
	AST float64 `json:"ast"`
	TOV float64 `json:"tov"`
	PF  float64 `json:"pf"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (TeamGame) TableName() string {
	return "team_games"
}

// Eligible reports whether the row counts toward league normalization:
// completed regular-season games only.
func (g *TeamGame) Eligible() bool {
	return g.Status == GameStatusFinal && g.GameType == GameTypeRegular
}

// Possessions estimates the team's possessions in this game using the
// standard FGA − ORB + TOV + 0.44·FTA formula.
func (g *TeamGame) Possessions() float64 {
	return g.FGA - g.ORB + g.TOV + 0.44*g.FTA
}
