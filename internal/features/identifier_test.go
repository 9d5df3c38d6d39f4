package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RoundTrip(t *testing.T) {
	// Format must be the left-inverse of Parse for anything Parse accepts.
	inputs := []string{
		"pts|season|avg|diff",
		"wins|games_10|avg|home",
		"efg_pct|season|raw|away",
		"per_available|none|raw|none",
		"pts|season|avg|diff|side",
		"pts_blend|blend:season:0.6/games_10:0.4|avg|diff",
	}

	for _, raw := range inputs {
		id, err := Parse(raw)
		require.NoError(t, err, "Parse(%q)", raw)
		assert.Equal(t, raw, id.String(), "round trip for %q", raw)
	}
}

func TestParse_SegmentCount(t *testing.T) {
	cases := []string{
		"",
		"pts",
		"pts|season",
		"pts|season|avg",
	}
	for _, raw := range cases {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidIdentifier, "Parse(%q)", raw)
	}

	id, err := Parse("pts|season|avg|diff")
	require.NoError(t, err)
	assert.Equal(t, "pts", id.StatName)
	assert.Equal(t, "season", id.TimePeriod)
	assert.Equal(t, "avg", id.CalcWeight)
	assert.Equal(t, "diff", id.Perspective)
	assert.False(t, id.IsSide)
}

func TestParse_Perspectives(t *testing.T) {
	for _, p := range []string{"home", "away", "diff"} {
		_, err := Parse("pts|season|avg|" + p)
		assert.NoError(t, err, "perspective %s", p)
	}

	_, err := Parse("pts|season|avg|sideways")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	// Only per_available may use perspective none.
	_, err = Parse("pts|season|avg|none")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = Parse("per_available|none|raw|none")
	assert.NoError(t, err)
}

func TestParse_SideSegment(t *testing.T) {
	id, err := Parse("pts|season|avg|diff|side")
	require.NoError(t, err)
	assert.True(t, id.IsSide)

	// Strict mode rejects anything else in segment 5.
	_, err = Parse("pts|season|avg|diff|bogus")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	// Lenient mode treats an unrecognized fifth segment as absent.
	lenient, err := ParseLenient("pts|season|avg|diff|bogus")
	require.NoError(t, err)
	assert.False(t, lenient.IsSide)
	assert.Equal(t, "pts|season|avg|diff", lenient.String())

	lenientSide, err := ParseLenient("pts|season|avg|diff|side")
	require.NoError(t, err)
	assert.True(t, lenientSide.IsSide)
}

func TestValidTimePeriod(t *testing.T) {
	assert.True(t, ValidTimePeriod("season"))
	assert.True(t, ValidTimePeriod("none"))
	assert.True(t, ValidTimePeriod("games_1"))
	assert.True(t, ValidTimePeriod("games_20"))

	assert.False(t, ValidTimePeriod("games_0"))
	assert.False(t, ValidTimePeriod("games_-3"))
	assert.False(t, ValidTimePeriod("games_x"))
	assert.False(t, ValidTimePeriod("week"))
	assert.False(t, ValidTimePeriod("blend:season:1.0"))
}

func TestValidateStrict(t *testing.T) {
	reg := DefaultRegistry()

	cases := []struct {
		raw   string
		valid bool
	}{
		{"pts|season|avg|diff", true},
		{"wins|games_10|avg|home", true},
		{"efg_pct|season|raw|away", true},
		{"pts_net|season|avg|diff", true},
		{"inj_per|none|top1_avg|diff", true},
		{"nosuchstat|season|avg|diff", false},
		{"efg_pct|season|avg|diff", false},     // efg_pct is raw-only
		{"inj_severity|season|raw|diff", false}, // injury stats are none-window
		{"pts|weekly|avg|diff", false},
		{"pts|season|bogus|diff", false},
		{"orb_net|season|avg|diff", false}, // orb has no net counterpart
	}

	for _, tc := range cases {
		id, err := Parse(tc.raw)
		require.NoError(t, err, "Parse(%q)", tc.raw)
		ok, msg := ValidateStrict(id, reg)
		assert.Equal(t, tc.valid, ok, "ValidateStrict(%q): %s", tc.raw, msg)
		if !tc.valid {
			assert.NotEmpty(t, msg, "rejection for %q must carry a message", tc.raw)
		}
	}
}

func TestCategorize(t *testing.T) {
	reg := DefaultRegistry()

	cases := []struct {
		raw  string
		want Category
	}{
		{"pts|season|avg|diff", CategoryBasic},
		{"efg_pct|season|raw|diff", CategoryRate},
		{"pts_net|season|avg|diff", CategoryNet},
		{"four_factors|season|raw|diff", CategoryDerived},
		{"per|season|raw|diff", CategoryPer},
		{"inj_impact|blend|raw|diff", CategoryInjury},
		{"rest_days|none|raw|diff", CategorySpecial},
		{"mystery_stat|season|avg|diff", CategoryUnknown},
		{"orb_net|season|avg|diff", CategoryUnknown}, // no net counterpart registered
	}

	for _, tc := range cases {
		id, err := ParseLenient(tc.raw)
		require.NoError(t, err)
		assert.Equal(t, tc.want, Categorize(id, reg), "Categorize(%q)", tc.raw)
	}
}

func TestIdentifier_NetHelpers(t *testing.T) {
	id, err := Parse("pts_net|season|avg|diff")
	require.NoError(t, err)
	assert.True(t, id.IsNet())
	assert.Equal(t, "pts", id.BaseStatName())

	plain, err := Parse("pts|season|avg|diff")
	require.NoError(t, err)
	assert.False(t, plain.IsNet())
	assert.Equal(t, "pts", plain.BaseStatName())
}
