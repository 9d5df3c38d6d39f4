package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_Listings(t *testing.T) {
	reg := DefaultRegistry()

	assert.Contains(t, reg.BasicStats(), "pts")
	assert.Contains(t, reg.BasicStats(), "wins")
	assert.Contains(t, reg.RateStats(), "efg_pct")
	assert.Contains(t, reg.DerivedStats(), "four_factors")
	assert.Contains(t, reg.SpecialStats(), "rest_days")
	assert.Contains(t, reg.NetStats(), "pts")
	assert.NotContains(t, reg.NetStats(), "orb")

	cat, ok := reg.StatDefinition("pts")
	require.True(t, ok)
	assert.Equal(t, CategoryBasic, cat)

	_, ok = reg.StatDefinition("nosuchstat")
	assert.False(t, ok)

	// AllStatNames is sorted and complete.
	names := reg.AllStatNames()
	assert.Contains(t, names, "inj_impact")
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i], "AllStatNames must be sorted")
	}
}

func TestValidateFeature_BlendPath(t *testing.T) {
	reg := DefaultRegistry()

	id, err := Parse("pts_blend|blend:season:0.6/games_10:0.4|avg|diff")
	require.NoError(t, err)
	ok, msg := reg.ValidateFeature(id)
	assert.True(t, ok, msg)

	// A blend over an unregistered base stat is rejected.
	id, err = Parse("mystery_blend|blend:season:1.0|avg|diff")
	require.NoError(t, err)
	ok, msg = reg.ValidateFeature(id)
	assert.False(t, ok)
	assert.Contains(t, msg, "mystery")

	// Components with illegal time periods fail strict validation even
	// though the blend expression itself decodes.
	id, err = Parse("pts_blend|blend:fortnight:0.5/season:0.5|avg|diff")
	require.NoError(t, err)
	ok, msg = reg.ValidateFeature(id)
	assert.False(t, ok)
	assert.Contains(t, msg, "fortnight")

	id, err = Parse("pts_blend|blend:games_0:1.0|avg|diff")
	require.NoError(t, err)
	ok, _ = reg.ValidateFeature(id)
	assert.False(t, ok)

	// Components also honor the base stat's own window constraint.
	id, err = Parse("inj_impact_blend|blend:season:1.0|raw|diff")
	require.NoError(t, err)
	ok, msg = reg.ValidateFeature(id)
	assert.False(t, ok)
	assert.Contains(t, msg, "not allowed")
}

func TestValidateFeature_NetPath(t *testing.T) {
	reg := DefaultRegistry()

	id, err := Parse("efg_pct_net|season|raw|diff")
	require.NoError(t, err)
	ok, msg := reg.ValidateFeature(id)
	assert.True(t, ok, msg)

	// orb is registered but has no net counterpart.
	id, err = Parse("orb_net|season|avg|diff")
	require.NoError(t, err)
	ok, _ = reg.ValidateFeature(id)
	assert.False(t, ok)

	// Net identifiers still honor the base stat's constraints.
	id, err = Parse("efg_pct_net|season|avg|diff")
	require.NoError(t, err)
	ok, msg = reg.ValidateFeature(id)
	assert.False(t, ok)
	assert.Contains(t, msg, "calc weight")
}

func TestValidateFeature_ConstraintChecks(t *testing.T) {
	reg := DefaultRegistry()

	cases := []struct {
		raw   string
		valid bool
	}{
		{"inj_per|none|top1_avg|diff", true},
		{"inj_per|season|top1_avg|diff", false},  // injury stats are none-window
		{"inj_severity|none|avg|diff", false},    // raw-only
		{"per_available|none|raw|none", true},    // the one stat allowed perspective none
		{"rest_days|none|raw|home", true},
		{"rest_days|games_5|raw|home", false},
		{"pts|games_7|linear|home", true},        // model token on unconstrained stat
	}

	for _, tc := range cases {
		id, err := Parse(tc.raw)
		require.NoError(t, err, "Parse(%q)", tc.raw)
		ok, msg := reg.ValidateFeature(id)
		assert.Equal(t, tc.valid, ok, "ValidateFeature(%q): %s", tc.raw, msg)
	}
}

func TestBlendableBase(t *testing.T) {
	assert.Equal(t, "pts", BlendableBase("pts_blend"))
	assert.Equal(t, "pts", BlendableBase("pts"))
}
