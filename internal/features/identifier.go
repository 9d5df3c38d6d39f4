package features

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Perspective tokens for the fourth identifier segment.
const (
	PerspectiveHome = "home"
	PerspectiveAway = "away"
	PerspectiveDiff = "diff"
	PerspectiveNone = "none"
)

// Time period tokens. Rolling windows use the games_<N> form.
const (
	TimePeriodSeason = "season"
	TimePeriodNone   = "none"

	gamesPrefix = "games_"
	blendPrefix = "blend:"
)

// sideSegment is the only value the strict parser accepts in segment 5.
const sideSegment = "side"

// netSuffix marks a home-minus-away differential of a base stat.
const netSuffix = "_net"

// perAvailableStat is allowed to carry perspective "none" where other
// stats are not.
const perAvailableStat = "per_available"

// ErrInvalidIdentifier is wrapped by every parse failure so callers can
// test with errors.Is.
var ErrInvalidIdentifier = errors.New("invalid feature identifier")

// Identifier is the parsed form of the pipe-delimited feature grammar
// <stat_name>|<time_period>|<calc_weight>|<perspective>[|side].
type Identifier struct {
	StatName    string `json:"stat_name"`
	TimePeriod  string `json:"time_period"`
	CalcWeight  string `json:"calc_weight"`
	Perspective string `json:"perspective"`
	IsSide      bool   `json:"is_side"`
}

// Parse parses an identifier string in strict mode. A fifth segment must
// be exactly "side"; anything else fails, as do extra segments.
func Parse(raw string) (Identifier, error) {
	return parse(raw, true)
}

// ParseLenient parses an identifier string in the permissive legacy mode:
// an unrecognized fifth segment (or trailing extras) is treated as absent
// rather than rejected. Retained for CSV headers written before the side
// marker was standardized; new call sites must use Parse.
func ParseLenient(raw string) (Identifier, error) {
	return parse(raw, false)
}

func parse(raw string, strict bool) (Identifier, error) {
	segments := strings.Split(raw, "|")
	if len(segments) < 4 {
		return Identifier{}, fmt.Errorf("%w: %q has %d segments, need at least 4", ErrInvalidIdentifier, raw, len(segments))
	}
	if strict && len(segments) > 5 {
		return Identifier{}, fmt.Errorf("%w: %q has %d segments, at most 5 allowed", ErrInvalidIdentifier, raw, len(segments))
	}

	id := Identifier{
		StatName:    segments[0],
		TimePeriod:  segments[1],
		CalcWeight:  segments[2],
		Perspective: segments[3],
	}

	if len(segments) >= 5 {
		switch {
		case segments[4] == sideSegment:
			id.IsSide = true
		case strict:
			return Identifier{}, fmt.Errorf("%w: %q has unrecognized fifth segment %q", ErrInvalidIdentifier, raw, segments[4])
		}
	}

	if err := id.checkStructure(); err != nil {
		return Identifier{}, err
	}
	return id, nil
}

// checkStructure enforces the perspective token set, with the
// per_available exception for "none".
func (id Identifier) checkStructure() error {
	switch id.Perspective {
	case PerspectiveHome, PerspectiveAway, PerspectiveDiff:
		return nil
	case PerspectiveNone:
		if id.StatName == perAvailableStat {
			return nil
		}
		return fmt.Errorf("%w: stat %q may not use perspective %q", ErrInvalidIdentifier, id.StatName, PerspectiveNone)
	default:
		return fmt.Errorf("%w: unknown perspective %q", ErrInvalidIdentifier, id.Perspective)
	}
}

// String formats the identifier back into the pipe-delimited wire form.
// For any string accepted by Parse, Parse(s).String() == s.
func (id Identifier) String() string {
	fields := []string{id.StatName, id.TimePeriod, id.CalcWeight, id.Perspective}
	if id.IsSide {
		fields = append(fields, sideSegment)
	}
	return strings.Join(fields, "|")
}

// IsBlend reports whether the identifier carries an embedded blend spec.
func (id Identifier) IsBlend() bool {
	return strings.HasSuffix(id.StatName, blendSuffix) && strings.HasPrefix(id.TimePeriod, blendPrefix)
}

// IsNet reports whether the stat name carries the _net differential suffix.
func (id Identifier) IsNet() bool {
	return strings.HasSuffix(id.StatName, netSuffix)
}

// BaseStatName strips the _net suffix, if present.
func (id Identifier) BaseStatName() string {
	return strings.TrimSuffix(id.StatName, netSuffix)
}

// ValidTimePeriod reports whether tp is a legal non-blend time period:
// season, none, or games_<N> with N a positive integer.
func ValidTimePeriod(tp string) bool {
	switch tp {
	case TimePeriodSeason, TimePeriodNone:
		return true
	}
	if rest, ok := strings.CutPrefix(tp, gamesPrefix); ok {
		n, err := strconv.Atoi(rest)
		return err == nil && n > 0
	}
	return false
}

// ValidateStrict performs full single-source-of-truth validation: the
// identifier must be structurally valid, the stat must be a recognized
// family, and the time period / calc weight / perspective combination
// must be legal for that family per the registry.
func ValidateStrict(id Identifier, reg Registry) (bool, string) {
	if err := id.checkStructure(); err != nil {
		return false, err.Error()
	}
	return reg.ValidateFeature(id)
}

// Category classifies what kind of feature an identifier names.
type Category string

const (
	CategoryBasic   Category = "basic"
	CategoryRate    Category = "rate"
	CategoryNet     Category = "net"
	CategoryDerived Category = "derived"
	CategorySpecial Category = "special"
	CategoryPer     Category = "per"
	CategoryInjury  Category = "injury"
	CategoryUnknown Category = "unknown"
)

// Categorize classifies a parsed identifier. Resolution order: explicit
// registry definition, _net suffix against net-able base stats, then
// registry set membership, else unknown.
func Categorize(id Identifier, reg Registry) Category {
	if cat, ok := reg.StatDefinition(id.StatName); ok {
		return cat
	}

	if id.IsNet() {
		base := id.BaseStatName()
		for _, s := range reg.NetStats() {
			if s == base {
				return CategoryNet
			}
		}
	}

	if containsStat(reg.BasicStats(), id.StatName) {
		return CategoryBasic
	}
	if containsStat(reg.RateStats(), id.StatName) {
		return CategoryRate
	}
	if containsStat(reg.DerivedStats(), id.StatName) {
		return CategoryDerived
	}
	if containsStat(reg.SpecialStats(), id.StatName) {
		return CategorySpecial
	}

	return CategoryUnknown
}

func containsStat(stats []string, name string) bool {
	for _, s := range stats {
		if s == name {
			return true
		}
	}
	return false
}
