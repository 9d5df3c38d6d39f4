package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// LeagueSeasonStatsVersion is the current schema version written into
// new records, for forward schema evolution.
const LeagueSeasonStatsVersion = 1

// LeagueSeasonStats is the persisted league normalization record: one
// row per season, always written as a complete unit. Recomputation
// replaces the whole record.
type LeagueSeasonStats struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Season string `gorm:"uniqueIndex;not null" json:"season"`

	// League-wide sums of raw counting stats, plus possessions and
	// team_games counters.
	LeagueTotals StatTotals `gorm:"type:jsonb" json:"league_totals"`

	// Derived constants consumed by PER-family features.
	LeagueConstants LeagueConstants `gorm:"type:jsonb" json:"league_constants"`

	LgPace    float64     `json:"lg_pace"`
	TeamPace  FloatByTeam `gorm:"type:jsonb" json:"team_pace"`
	TeamGames IntByTeam   `gorm:"type:jsonb" json:"team_games"`
	GameCount int         `json:"game_count"`

	ComputedAt time.Time `json:"computed_at"`
	Version    int       `gorm:"default:1" json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (LeagueSeasonStats) TableName() string {
	return "league_season_stats"
}

// LeagueConstants holds the derived normalization constants.
type LeagueConstants struct {
	Factor float64 `json:"factor"`
	VOP    float64 `json:"vop"`
	DRBPct float64 `json:"drb_pct"`
}

// Scan implements the sql.Scanner interface for JSONB
func (lc *LeagueConstants) Scan(value interface{}) error {
	if value == nil {
		*lc = LeagueConstants{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into LeagueConstants", value)
	}
	return json.Unmarshal(bytes, lc)
}

// Value implements the driver.Valuer interface for JSONB
func (lc LeagueConstants) Value() (driver.Value, error) {
	return json.Marshal(lc)
}

// StatTotals maps raw counting-stat names to summed values.
type StatTotals map[string]float64

// Scan implements the sql.Scanner interface for JSONB
func (st *StatTotals) Scan(value interface{}) error {
	if value == nil {
		*st = make(StatTotals)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into StatTotals", value)
	}
	var result map[string]float64
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*st = StatTotals(result)
	return nil
}

// Value implements the driver.Valuer interface for JSONB
func (st StatTotals) Value() (driver.Value, error) {
	if st == nil {
		return nil, nil
	}
	return json.Marshal(st)
}

// FloatByTeam maps team abbreviations to float values (pace).
type FloatByTeam map[string]float64

// Scan implements the sql.Scanner interface for JSONB
func (ft *FloatByTeam) Scan(value interface{}) error {
	if value == nil {
		*ft = make(FloatByTeam)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into FloatByTeam", value)
	}
	var result map[string]float64
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*ft = FloatByTeam(result)
	return nil
}

// Value implements the driver.Valuer interface for JSONB
func (ft FloatByTeam) Value() (driver.Value, error) {
	if ft == nil {
		return nil, nil
	}
	return json.Marshal(ft)
}

// IntByTeam maps team abbreviations to counters (games played).
type IntByTeam map[string]int

// Scan implements the sql.Scanner interface for JSONB
func (it *IntByTeam) Scan(value interface{}) error {
	if value == nil {
		*it = make(IntByTeam)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into IntByTeam", value)
	}
	var result map[string]int
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*it = IntByTeam(result)
	return nil
}

// Value implements the driver.Valuer interface for JSONB
func (it IntByTeam) Value() (driver.Value, error) {
	if it == nil {
		return nil, nil
	}
	return json.Marshal(it)
}
