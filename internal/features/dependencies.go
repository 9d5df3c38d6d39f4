package features

import (
	"fmt"
	"sort"
)

// defaultDependencyTable is the hand-authored static dependency table:
// composite derived features whose inputs cannot be inferred from the
// identifier alone. Keys and values are exact identifier strings.
var defaultDependencyTable = map[string][]string{
	"inj_impact|blend|raw|diff": {
		"inj_severity|none|raw|diff",
		"inj_per|none|top1_avg|diff",
		"inj_rotation_per|none|raw|diff",
	},
	"four_factors|season|raw|diff": {
		"efg_pct|season|raw|diff",
		"tov|season|avg|diff",
		"orb|season|avg|diff",
		"fta|season|avg|diff",
	},
}

// Resolver answers direct and transitive dependency queries over feature
// identifiers. The static table is validated once at construction; blend
// identifiers contribute edges mechanically via their embedded spec.
type Resolver struct {
	table map[string][]string
}

// NewResolver validates and freezes a static dependency table. Entries
// must parse, and self-referential or cyclic chains are configuration
// defects rejected here rather than looped over at runtime.
func NewResolver(table map[string][]string) (*Resolver, error) {
	copied := make(map[string][]string, len(table))
	for id, deps := range table {
		if _, err := ParseLenient(id); err != nil {
			return nil, fmt.Errorf("dependency table key %q: %w", id, err)
		}
		for _, dep := range deps {
			if _, err := ParseLenient(dep); err != nil {
				return nil, fmt.Errorf("dependency table entry %q -> %q: %w", id, dep, err)
			}
			if dep == id {
				return nil, fmt.Errorf("dependency table entry %q references itself", id)
			}
		}
		copied[id] = append([]string(nil), deps...)
	}

	if cycle := findCycle(copied); cycle != "" {
		return nil, fmt.Errorf("dependency table contains a cycle through %q", cycle)
	}

	return &Resolver{table: copied}, nil
}

// NewDefaultResolver builds a resolver over the stock static table. The
// table is compiled in, so failure here is a programming error.
func NewDefaultResolver() *Resolver {
	r, err := NewResolver(defaultDependencyTable)
	if err != nil {
		panic(fmt.Sprintf("default dependency table invalid: %v", err))
	}
	return r
}

// findCycle runs a three-color depth-first search over the static edges
// and returns an identifier on a cycle, or "" if the table is acyclic.
func findCycle(table map[string][]string) string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(table))

	var visit func(id string) string
	visit = func(id string) string {
		color[id] = gray
		for _, dep := range table[id] {
			switch color[dep] {
			case gray:
				return dep
			case white:
				if hit := visit(dep); hit != "" {
					return hit
				}
			}
		}
		color[id] = black
		return ""
	}

	keys := make([]string, 0, len(table))
	for id := range table {
		keys = append(keys, id)
	}
	sort.Strings(keys)

	for _, id := range keys {
		if color[id] == white {
			if hit := visit(id); hit != "" {
				return hit
			}
		}
	}
	return ""
}

// DirectDependencies returns the identifiers id directly requires: the
// static table entry if one exists (exact string match), otherwise the
// decomposed components of a blend identifier, otherwise nothing — the
// identifier is primitive.
func (r *Resolver) DirectDependencies(id string) []string {
	if deps, ok := r.table[id]; ok {
		return append([]string(nil), deps...)
	}
	if spec, err := ParseBlendIdentifier(id); err == nil {
		return spec.ComponentIdentifiers()
	}
	return nil
}

// Resolution is the result of expanding a set of requested identifiers.
type Resolution struct {
	// All is the sorted union of the requested identifiers and every
	// identifier they transitively require.
	All []string `json:"all"`
	// DirectDeps maps each requested identifier to its direct
	// dependencies, for callers that report why a column was added.
	DirectDeps map[string][]string `json:"direct_deps"`
}

// Resolve expands ids to the full evaluation set. With includeTransitive
// it runs a worklist to a fixed point (the closure is idempotent:
// resolving the result again adds nothing); without it, exactly one
// non-recursive expansion pass runs.
func (r *Resolver) Resolve(ids []string, includeTransitive bool) Resolution {
	inputSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		inputSet[id] = true
	}

	all := make(map[string]bool, len(ids))
	directDeps := make(map[string][]string)

	if !includeTransitive {
		for _, id := range ids {
			all[id] = true
			deps := r.DirectDependencies(id)
			if inputSet[id] {
				directDeps[id] = deps
			}
			for _, dep := range deps {
				all[dep] = true
			}
		}
		return Resolution{All: sortedKeys(all), DirectDeps: directDeps}
	}

	processed := make(map[string]bool)
	queued := make(map[string]bool, len(ids))
	worklist := make([]string, 0, len(ids))
	for _, id := range ids {
		if !queued[id] {
			queued[id] = true
			worklist = append(worklist, id)
			all[id] = true
		}
	}

	for len(worklist) > 0 {
		id := worklist[0]
		worklist = worklist[1:]
		if processed[id] {
			continue
		}
		processed[id] = true

		deps := r.DirectDependencies(id)
		if inputSet[id] {
			directDeps[id] = deps
		}
		for _, dep := range deps {
			if !processed[dep] && !queued[dep] {
				queued[dep] = true
				worklist = append(worklist, dep)
			}
			all[dep] = true
		}
	}

	return Resolution{All: sortedKeys(all), DirectDeps: directDeps}
}

// FeatureSets partitions a resolved set by why each identifier is there.
type FeatureSets struct {
	Requested    []string `json:"requested"`
	Dependencies []string `json:"dependencies"`
	All          []string `json:"all"`
}

// CategorizeFeatures splits allResolved into the identifiers the caller
// asked for and those pulled in as dependencies, all sorted.
func CategorizeFeatures(requested, allResolved []string) FeatureSets {
	requestedSet := make(map[string]bool, len(requested))
	for _, id := range requested {
		requestedSet[id] = true
	}

	sets := FeatureSets{}
	seen := make(map[string]bool, len(allResolved))
	for _, id := range allResolved {
		if seen[id] {
			continue
		}
		seen[id] = true
		sets.All = append(sets.All, id)
		if requestedSet[id] {
			sets.Requested = append(sets.Requested, id)
		} else {
			sets.Dependencies = append(sets.Dependencies, id)
		}
	}

	sort.Strings(sets.Requested)
	sort.Strings(sets.Dependencies)
	sort.Strings(sets.All)
	return sets
}

// DependentFeatures scans universe for every identifier whose direct
// dependencies include id. Used for impact analysis before deleting or
// renaming a feature.
func (r *Resolver) DependentFeatures(id string, universe []string) []string {
	var dependents []string
	for _, candidate := range universe {
		for _, dep := range r.DirectDependencies(candidate) {
			if dep == id {
				dependents = append(dependents, candidate)
				break
			}
		}
	}
	sort.Strings(dependents)
	return dependents
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
