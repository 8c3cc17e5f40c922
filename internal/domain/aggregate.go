package domain

import (
	"fmt"
	"slices"
	"strings"
)

// SortByName returns a copy of records stably sorted by SortName using
// ordinal string comparison.
func SortByName[T Record](records []T) []T {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return strings.Compare(a.SortName(), b.SortName())
	})
	return sorted
}

// DedupeStates keeps the first occurrence of each abbreviation.
func DedupeStates(states []State) []State {
	seen := make(map[string]struct{}, len(states))
	out := make([]State, 0, len(states))
	for _, s := range states {
		if _, ok := seen[s.Abbr]; ok {
			continue
		}
		seen[s.Abbr] = struct{}{}
		out = append(out, s)
	}
	return out
}

// JoinCities attaches every city to its owning state, preserving both the
// state order and the city order. A city referencing an unknown state is an
// ErrLookup; it is never dropped or bucketed.
func JoinCities(states []State, cities []City) ([]StateWithCities, error) {
	joined := make([]StateWithCities, len(states))
	index := make(map[string]int, len(states))
	for i, s := range states {
		joined[i] = StateWithCities{State: s, Cities: []City{}}
		index[s.Abbr] = i
	}

	for _, c := range cities {
		i, ok := index[c.State]
		if !ok {
			return nil, fmt.Errorf("%w: city %s (%s) references unknown state %q", ErrLookup, c.Code, c.Name, c.State)
		}
		joined[i].Cities = append(joined[i].Cities, c)
	}
	return joined, nil
}
