package features

import (
	"fmt"
	"sort"
	"strings"
)

// Registry is the single source of truth for which stat families exist
// and which time period / calc weight / perspective combinations are
// legal for each. The engine only consumes this contract; callers may
// supply their own implementation backed by whatever store they use.
type Registry interface {
	// StatDefinition returns the category for a recognized stat family.
	StatDefinition(statName string) (Category, bool)
	AllStatNames() []string
	BasicStats() []string
	RateStats() []string
	DerivedStats() []string
	SpecialStats() []string
	// NetStats returns the base stats that have a _net counterpart.
	NetStats() []string
	// ValidateFeature performs strict validation of a parsed identifier.
	ValidateFeature(id Identifier) (bool, string)
}

// StatDef describes one stat family in the static registry. Empty
// constraint slices mean "any structurally valid value".
type StatDef struct {
	Category     Category
	TimePeriods  []string
	CalcWeights  []string
	Perspectives []string
	HasNet       bool
}

// StaticRegistry is an immutable in-memory Registry built from a
// definition table at construction time.
type StaticRegistry struct {
	defs map[string]StatDef
}

// NewStaticRegistry copies defs into an immutable registry.
func NewStaticRegistry(defs map[string]StatDef) *StaticRegistry {
	copied := make(map[string]StatDef, len(defs))
	for name, def := range defs {
		copied[name] = def
	}
	return &StaticRegistry{defs: copied}
}

// calcWeightTokens are the calc weights accepted when a stat definition
// does not constrain them. Model-type tokens identify prediction-output
// features whose value comes from a trained model.
var calcWeightTokens = map[string]struct{}{
	"raw":      {},
	"avg":      {},
	"top1_avg": {},
	"linear":   {},
	"logistic": {},
	"forest":   {},
}

func (r *StaticRegistry) StatDefinition(statName string) (Category, bool) {
	def, ok := r.defs[statName]
	if !ok {
		return CategoryUnknown, false
	}
	return def.Category, true
}

func (r *StaticRegistry) AllStatNames() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *StaticRegistry) statsInCategory(cat Category) []string {
	var names []string
	for name, def := range r.defs {
		if def.Category == cat {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (r *StaticRegistry) BasicStats() []string   { return r.statsInCategory(CategoryBasic) }
func (r *StaticRegistry) RateStats() []string    { return r.statsInCategory(CategoryRate) }
func (r *StaticRegistry) DerivedStats() []string { return r.statsInCategory(CategoryDerived) }
func (r *StaticRegistry) SpecialStats() []string { return r.statsInCategory(CategorySpecial) }

func (r *StaticRegistry) NetStats() []string {
	var names []string
	for name, def := range r.defs {
		if def.HasNet {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ValidateFeature checks the identifier against the definition table.
// Net identifiers validate against their base stat's definition; blend
// identifiers validate their base stat and every embedded component.
func (r *StaticRegistry) ValidateFeature(id Identifier) (bool, string) {
	statName := id.StatName

	if id.IsBlend() {
		spec, err := ParseBlendIdentifier(id.String())
		if err != nil {
			return false, err.Error()
		}
		def, ok := r.defs[spec.BaseStatName]
		if !ok {
			return false, fmt.Sprintf("unknown blend base stat %q", spec.BaseStatName)
		}
		for _, comp := range spec.Components {
			if !ValidTimePeriod(comp.TimePeriod) {
				return false, fmt.Sprintf("invalid blend component time period %q", comp.TimePeriod)
			}
			if len(def.TimePeriods) > 0 && !containsStat(def.TimePeriods, comp.TimePeriod) {
				return false, fmt.Sprintf("component time period %q not allowed for stat %q", comp.TimePeriod, spec.BaseStatName)
			}
		}
		return true, ""
	}

	if id.IsNet() {
		base := id.BaseStatName()
		def, ok := r.defs[base]
		if !ok || !def.HasNet {
			return false, fmt.Sprintf("stat %q has no registered net counterpart", base)
		}
		statName = base
	}

	def, ok := r.defs[statName]
	if !ok {
		return false, fmt.Sprintf("unknown stat %q", statName)
	}

	if len(def.TimePeriods) > 0 {
		if !containsStat(def.TimePeriods, id.TimePeriod) {
			return false, fmt.Sprintf("time period %q not allowed for stat %q", id.TimePeriod, statName)
		}
	} else if !ValidTimePeriod(id.TimePeriod) {
		return false, fmt.Sprintf("invalid time period %q", id.TimePeriod)
	}

	if len(def.CalcWeights) > 0 {
		if !containsStat(def.CalcWeights, id.CalcWeight) {
			return false, fmt.Sprintf("calc weight %q not allowed for stat %q", id.CalcWeight, statName)
		}
	} else if _, ok := calcWeightTokens[id.CalcWeight]; !ok {
		return false, fmt.Sprintf("unknown calc weight %q", id.CalcWeight)
	}

	if len(def.Perspectives) > 0 && !containsStat(def.Perspectives, id.Perspective) {
		return false, fmt.Sprintf("perspective %q not allowed for stat %q", id.Perspective, statName)
	}

	return true, ""
}

// DefaultRegistry returns the stock NBA stat registry used by the
// service binaries and tests. Production deployments can substitute a
// database-backed Registry without touching the engine.
func DefaultRegistry() *StaticRegistry {
	defs := map[string]StatDef{
		// Counting stats
		"pts":  {Category: CategoryBasic, HasNet: true},
		"fg":   {Category: CategoryBasic},
		"fga":  {Category: CategoryBasic},
		"ft":   {Category: CategoryBasic},
		"fta":  {Category: CategoryBasic},
		"orb":  {Category: CategoryBasic},
		"trb":  {Category: CategoryBasic, HasNet: true},
		"ast":  {Category: CategoryBasic, HasNet: true},
		"tov":  {Category: CategoryBasic, HasNet: true},
		"pf":   {Category: CategoryBasic},
		"wins": {Category: CategoryBasic, HasNet: true},

		// Rate / efficiency stats
		"efg_pct": {Category: CategoryRate, HasNet: true, CalcWeights: []string{"raw"}},
		"ts_pct":  {Category: CategoryRate, CalcWeights: []string{"raw"}},
		"off_rtg": {Category: CategoryRate, HasNet: true},
		"def_rtg": {Category: CategoryRate},
		"pace":    {Category: CategoryRate},

		// Derived composites
		"four_factors": {Category: CategoryDerived},
		"sos":          {Category: CategoryDerived},

		// PER-family stats (consume league normalization constants)
		"per":           {Category: CategoryPer},
		"per_available": {Category: CategoryPer, Perspectives: []string{PerspectiveHome, PerspectiveAway, PerspectiveDiff, PerspectiveNone}},

		// Injury features
		"inj_impact":       {Category: CategoryInjury, TimePeriods: []string{"blend", TimePeriodNone}, CalcWeights: []string{"raw"}},
		"inj_severity":     {Category: CategoryInjury, TimePeriods: []string{TimePeriodNone}, CalcWeights: []string{"raw"}},
		"inj_per":          {Category: CategoryInjury, TimePeriods: []string{TimePeriodNone}, CalcWeights: []string{"raw", "top1_avg"}},
		"inj_rotation_per": {Category: CategoryInjury, TimePeriods: []string{TimePeriodNone}, CalcWeights: []string{"raw"}},

		// Special features
		"rest_days":    {Category: CategorySpecial, TimePeriods: []string{TimePeriodNone}},
		"travel_miles": {Category: CategorySpecial, TimePeriods: []string{TimePeriodNone}},
	}
	return NewStaticRegistry(defs)
}

// blendSuffix marks a stat name that carries an embedded blend spec in
// its time period segment.
const blendSuffix = "_blend"

// BlendableBase strips the _blend suffix from a stat name.
func BlendableBase(statName string) string {
	return strings.TrimSuffix(statName, blendSuffix)
}
