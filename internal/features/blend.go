package features

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// blendWeightTolerance is the absolute tolerance on the component weight
// sum when validating a caller-supplied blend configuration.
const blendWeightTolerance = 0.01

// ErrInvalidBlend is wrapped by every blend parse/validation failure.
var ErrInvalidBlend = errors.New("invalid blend")

// ErrMissingComponent is returned when a blend component evaluates to
// NaN. The blend value is then NaN; missing never becomes zero.
var ErrMissingComponent = errors.New("missing blend component value")

// BlendComponent is one weighted time period of a blend feature.
type BlendComponent struct {
	TimePeriod string  `json:"time_period"`
	Weight     float64 `json:"weight"`
}

// BlendSpec is a fully decoded blend feature: the same base stat
// evaluated over several time periods and combined as a weighted sum.
type BlendSpec struct {
	BaseStatName string           `json:"base_stat_name"`
	Perspective  string           `json:"perspective"`
	Components   []BlendComponent `json:"components"`
}

// ParseBlendIdentifier decodes a blend identifier string such as
// pts_blend|blend:season:0.6/games_10:0.4|avg|diff. Only identifiers
// whose stat name ends in _blend and whose time period starts with
// blend: qualify. Weights are range-checked here; the sum check applies
// only to caller-supplied configurations (Validate).
func ParseBlendIdentifier(raw string) (BlendSpec, error) {
	segments := strings.Split(raw, "|")
	if len(segments) < 4 {
		return BlendSpec{}, fmt.Errorf("%w: %q has %d segments, need at least 4", ErrInvalidBlend, raw, len(segments))
	}

	statName, timePeriod, perspective := segments[0], segments[1], segments[3]
	if !strings.HasSuffix(statName, blendSuffix) {
		return BlendSpec{}, fmt.Errorf("%w: stat %q lacks the %s suffix", ErrInvalidBlend, statName, blendSuffix)
	}
	expr, ok := strings.CutPrefix(timePeriod, blendPrefix)
	if !ok {
		return BlendSpec{}, fmt.Errorf("%w: time period %q lacks the %s prefix", ErrInvalidBlend, timePeriod, blendPrefix)
	}

	spec := BlendSpec{
		BaseStatName: BlendableBase(statName),
		Perspective:  perspective,
	}

	for _, pair := range strings.Split(expr, "/") {
		tp, weightStr, found := strings.Cut(pair, ":")
		if !found {
			return BlendSpec{}, fmt.Errorf("%w: component %q lacks a time_period:weight separator", ErrInvalidBlend, pair)
		}
		weight, err := strconv.ParseFloat(weightStr, 64)
		if err != nil {
			return BlendSpec{}, fmt.Errorf("%w: component %q has non-numeric weight: %v", ErrInvalidBlend, pair, err)
		}
		if weight < 0 || weight > 1 {
			return BlendSpec{}, fmt.Errorf("%w: component %q weight %v outside [0,1]", ErrInvalidBlend, pair, weight)
		}
		spec.Components = append(spec.Components, BlendComponent{TimePeriod: tp, Weight: weight})
	}

	return spec, nil
}

// Validate checks a caller-supplied blend configuration: at least one
// component, legal time periods, weights in [0,1], and a weight sum
// within 0.01 of 1.0.
func (s BlendSpec) Validate() error {
	if len(s.Components) == 0 {
		return fmt.Errorf("%w: no components", ErrInvalidBlend)
	}

	sum := 0.0
	for _, comp := range s.Components {
		if !ValidTimePeriod(comp.TimePeriod) {
			return fmt.Errorf("%w: invalid component time period %q", ErrInvalidBlend, comp.TimePeriod)
		}
		if comp.Weight < 0 || comp.Weight > 1 {
			return fmt.Errorf("%w: component %q weight %v outside [0,1]", ErrInvalidBlend, comp.TimePeriod, comp.Weight)
		}
		sum += comp.Weight
	}

	if math.Abs(sum-1.0) > blendWeightTolerance {
		return fmt.Errorf("%w: component weights sum to %.4f, must equal 1.0 within %.2f", ErrInvalidBlend, sum, blendWeightTolerance)
	}
	return nil
}

// componentCalcWeights maps a blendable base stat to the calc weight its
// components are evaluated under. The calc weight is not carried in the
// blend identifier; stats averaged per game use avg, rate/efficiency
// stats use raw. New blendable stats get an entry here.
var componentCalcWeights = map[string]string{
	"pts":        "avg",
	"wins":       "avg",
	"trb":        "avg",
	"ast":        "avg",
	"tov":        "avg",
	"efg_pct":    "raw",
	"ts_pct":     "raw",
	"off_rtg":    "raw",
	"def_rtg":    "raw",
	"pace":       "raw",
	"inj_impact": "raw",
}

// ComponentCalcWeight returns the calc weight components of baseStat are
// evaluated under. Unknown base stats default to avg.
func ComponentCalcWeight(baseStat string) string {
	if cw, ok := componentCalcWeights[baseStat]; ok {
		return cw
	}
	return "avg"
}

// ComponentIdentifiers returns the full per-component identifiers the
// blend depends on, in component order.
func (s BlendSpec) ComponentIdentifiers() []string {
	cw := ComponentCalcWeight(s.BaseStatName)
	ids := make([]string, 0, len(s.Components))
	for _, comp := range s.Components {
		id := Identifier{
			StatName:    s.BaseStatName,
			TimePeriod:  comp.TimePeriod,
			CalcWeight:  cw,
			Perspective: s.Perspective,
		}
		ids = append(ids, id.String())
	}
	return ids
}

// Identifier serializes the spec back into a blend identifier string.
func (s BlendSpec) Identifier() string {
	pairs := make([]string, 0, len(s.Components))
	for _, comp := range s.Components {
		pairs = append(pairs, fmt.Sprintf("%s:%s", comp.TimePeriod, strconv.FormatFloat(comp.Weight, 'g', -1, 64)))
	}
	id := Identifier{
		StatName:    s.BaseStatName + blendSuffix,
		TimePeriod:  blendPrefix + strings.Join(pairs, "/"),
		CalcWeight:  ComponentCalcWeight(s.BaseStatName),
		Perspective: s.Perspective,
	}
	return id.String()
}

// GameContext identifies the matchup a blend is evaluated for.
type GameContext struct {
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
	Season   string `json:"season"`
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	Day      int    `json:"day"`
}

// Evaluate computes the weighted sum of the blend's components for one
// game. A NaN component makes the whole blend NaN with
// ErrMissingComponent; missing values are never coerced to zero. Wrap
// the evaluator with NewMemoEvaluator so component values are computed
// once per distinct tuple across blend variants.
func (s BlendSpec) Evaluate(ctx context.Context, ev Evaluator, game GameContext) (float64, error) {
	cw := ComponentCalcWeight(s.BaseStatName)
	isNet := strings.HasSuffix(s.BaseStatName, netSuffix)
	statName := strings.TrimSuffix(s.BaseStatName, netSuffix)

	total := 0.0
	for _, comp := range s.Components {
		req := ComponentRequest{
			StatName:    statName,
			IsNet:       isNet,
			TimePeriod:  comp.TimePeriod,
			CalcWeight:  cw,
			Perspective: s.Perspective,
			HomeTeam:    game.HomeTeam,
			AwayTeam:    game.AwayTeam,
			Season:      game.Season,
			Year:        game.Year,
			Month:       game.Month,
			Day:         game.Day,
		}
		value, err := ev.EvaluateComponent(ctx, req)
		if err != nil {
			return math.NaN(), fmt.Errorf("%w: %s: %v", ErrMissingComponent, comp.TimePeriod, err)
		}
		if math.IsNaN(value) {
			return math.NaN(), fmt.Errorf("%w: %s evaluated to NaN", ErrMissingComponent, comp.TimePeriod)
		}
		total += comp.Weight * value
	}
	return total, nil
}

// CanonicalBlendName produces the deterministic cache-addressable name
// for a blend configuration: <stat>_blend_<tp>_<weight>_... with weights
// formatted to two decimals and components in canonical order (season
// first, then games_N by descending N, then none).
func CanonicalBlendName(baseStat string, components []BlendComponent) string {
	ordered := make([]BlendComponent, len(components))
	copy(ordered, components)
	sort.SliceStable(ordered, func(i, j int) bool {
		return componentRank(ordered[i].TimePeriod) < componentRank(ordered[j].TimePeriod)
	})

	parts := []string{baseStat + blendSuffix}
	for _, comp := range ordered {
		parts = append(parts, comp.TimePeriod, fmt.Sprintf("%.2f", comp.Weight))
	}
	return strings.Join(parts, "_")
}

// componentRank orders time periods canonically: season, games_N by
// descending window size, none last.
func componentRank(tp string) int {
	switch {
	case tp == TimePeriodSeason:
		return 0
	case strings.HasPrefix(tp, gamesPrefix):
		if n, err := strconv.Atoi(strings.TrimPrefix(tp, gamesPrefix)); err == nil {
			return 1_000_000 - n
		}
		return 1_000_000
	default:
		return 2_000_000
	}
}

// BlendConfigError reports one invalid entry from a batch of candidate
// configurations.
type BlendConfigError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// ValidatedBlend pairs a valid configuration with its canonical name.
type ValidatedBlend struct {
	Name string    `json:"name"`
	Spec BlendSpec `json:"spec"`
}

// ValidateBlendConfigs validates every candidate configuration
// independently. Valid entries come back with canonical names; each
// malformed entry produces its own error instead of failing the batch.
func ValidateBlendConfigs(baseStat, perspective string, configs [][]BlendComponent) ([]ValidatedBlend, []BlendConfigError) {
	var valid []ValidatedBlend
	var invalid []BlendConfigError

	for i, components := range configs {
		spec := BlendSpec{
			BaseStatName: baseStat,
			Perspective:  perspective,
			Components:   components,
		}
		if err := spec.Validate(); err != nil {
			invalid = append(invalid, BlendConfigError{Index: i, Error: err.Error()})
			continue
		}
		valid = append(valid, ValidatedBlend{
			Name: CanonicalBlendName(baseStat, components),
			Spec: spec,
		})
	}
	return valid, invalid
}
