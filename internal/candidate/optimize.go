package candidate

import (
	"fmt"
	"math"
	"sort"
)

// Direction is whether bigger or smaller metric values are better
type Direction int

const (
	// Max prefers larger values
	Max Direction = iota

	// Min prefers smaller values
	Min
)

// MarshalText serializes a Direction to its name
func (d Direction) MarshalText() ([]byte, error) {
	if d == Min {
		return []byte("min"), nil
	}
	return []byte("max"), nil
}

// UnmarshalText parses a Direction from its name
func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "max":
		*d = Max
	case "min":
		*d = Min
	default:
		return fmt.Errorf("unknown direction %q", text)
	}
	return nil
}

// Objective names one metric and which way it should go
type Objective struct {
	Metric    string    `json:"metric"`
	Direction Direction `json:"direction"`
}

// WeightedTerm is one term of a weighted combination
type WeightedTerm struct {
	Metric    string    `json:"metric"`
	Weight    float64   `json:"weight"`
	Direction Direction `json:"direction"`
}

// ScoreWeighted combines several metrics into one: each term is
// optionally min-max normalized across the set, flipped for Min
// direction, weighted, then summed into the output metric
func ScoreWeighted(set *Set, terms []WeightedTerm, normalize bool, metric, outName string) (*Set, error) {
	if metric == "" {
		return nil, fmt.Errorf("metric name is required")
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("at least one term is required")
	}

	out := set.Clone()
	out.Name = outName
	if len(out.Candidates) == 0 {
		return out, nil
	}

	combined := make([]float64, len(out.Candidates))
	for _, term := range terms {
		values, err := set.Metric(term.Metric)
		if err != nil {
			return nil, err
		}

		if normalize {
			lo, hi := values[0], values[0]
			for _, v := range values {
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
			for i, v := range values {
				if hi > lo {
					values[i] = (v - lo) / (hi - lo)
				} else {
					values[i] = 0
				}
			}
		}

		for i, v := range values {
			if term.Direction == Min {
				v = -v
			}
			combined[i] += term.Weight * v
		}
	}

	for i := range out.Candidates {
		if out.Candidates[i].Metrics == nil {
			out.Candidates[i].Metrics = map[string]float64{}
		}
		out.Candidates[i].Metrics[metric] = combined[i]
	}
	return out, nil
}

// TopK keeps the best k candidates by one metric. Ties break by
// ascending candidate id so the selection is deterministic
func TopK(set *Set, metric string, direction Direction, k int, outName string) (*Set, error) {
	if k < 0 {
		return nil, fmt.Errorf("k must not be negative, got %d", k)
	}
	values, err := set.Metric(metric)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(set.Candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := values[order[a]], values[order[b]]
		if va != vb {
			if direction == Min {
				return va < vb
			}
			return va > vb
		}
		return set.Candidates[order[a]].ID < set.Candidates[order[b]].ID
	})

	if k > len(order) {
		k = len(order)
	}
	out := &Set{Name: outName}
	for _, idx := range order[:k] {
		out.Candidates = append(out.Candidates, set.Candidates[idx].Clone())
	}
	return out, nil
}

// Pareto keeps the non-dominated frontier over the objectives:
// candidate A dominates B when A is at least as good on every
// objective and strictly better on at least one. The frontier is
// returned in ascending candidate id order
func Pareto(set *Set, objectives []Objective, outName string) (*Set, error) {
	if len(objectives) == 0 {
		return nil, fmt.Errorf("at least one objective is required")
	}

	// orient every objective so bigger is better
	oriented := make([][]float64, len(objectives))
	for i, obj := range objectives {
		values, err := set.Metric(obj.Metric)
		if err != nil {
			return nil, err
		}
		if obj.Direction == Min {
			for j := range values {
				values[j] = -values[j]
			}
		}
		oriented[i] = values
	}

	dominates := func(a, b int) bool {
		strict := false
		for _, values := range oriented {
			if values[a] < values[b] {
				return false
			}
			if values[a] > values[b] {
				strict = true
			}
		}
		return strict
	}

	out := &Set{Name: outName}
	for i := range set.Candidates {
		dominated := false
		for j := range set.Candidates {
			if i != j && dominates(j, i) {
				dominated = true
				break
			}
		}
		if !dominated {
			out.Candidates = append(out.Candidates, set.Candidates[i].Clone())
		}
	}

	sort.Slice(out.Candidates, func(a, b int) bool {
		return out.Candidates[a].ID < out.Candidates[b].ID
	})
	return out, nil
}

// FilterBounds are the optional absolute and quantile bounds of a
// metric filter. Nil means unbounded on that side
type FilterBounds struct {
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	MinQuantile *float64 `json:"min_quantile,omitempty"`
	MaxQuantile *float64 `json:"max_quantile,omitempty"`
}

// Filter keeps candidates whose metric falls within the absolute
// bounds and/or the empirical-quantile bounds computed over the set
func Filter(set *Set, metric string, bounds FilterBounds, outName string) (*Set, error) {
	values, err := set.Metric(metric)
	if err != nil {
		return nil, err
	}
	for _, q := range []*float64{bounds.MinQuantile, bounds.MaxQuantile} {
		if q != nil && (*q < 0 || *q > 1) {
			return nil, fmt.Errorf("quantile %v outside [0,1]", *q)
		}
	}

	lo, hi := math.Inf(-1), math.Inf(1)
	if bounds.Min != nil {
		lo = *bounds.Min
	}
	if bounds.Max != nil {
		hi = *bounds.Max
	}
	if bounds.MinQuantile != nil {
		lo = math.Max(lo, quantile(values, *bounds.MinQuantile))
	}
	if bounds.MaxQuantile != nil {
		hi = math.Min(hi, quantile(values, *bounds.MaxQuantile))
	}

	out := &Set{Name: outName}
	for i, c := range set.Candidates {
		if values[i] >= lo && values[i] <= hi {
			out.Candidates = append(out.Candidates, c.Clone())
		}
	}
	return out, nil
}

// quantile is the empirical q-quantile of values, linearly
// interpolated between order statistics
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
