// Package candidate holds the candidate-set engine: window generation,
// metric scoring and multi-objective selection over coordinate-
// addressed subsequences.
package candidate

import (
	"fmt"
	"sort"
)

// Candidate is one scored, coordinate-addressed window on a sequence.
// Start/End are half-open; Strand is +1 or -1
type Candidate struct {
	ID      string             `json:"candidate_id"`
	SeqID   string             `json:"seq_id"`
	Start   int                `json:"start"`
	End     int                `json:"end"`
	Strand  int                `json:"strand"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Clone deep-copies a candidate's metric map
func (c Candidate) Clone() Candidate {
	out := c
	if c.Metrics != nil {
		out.Metrics = make(map[string]float64, len(c.Metrics))
		for k, v := range c.Metrics {
			out.Metrics[k] = v
		}
	}
	return out
}

// Set is a named collection of candidates. Operations never mutate a
// set in place: they build a new one under the caller's output name
type Set struct {
	Name       string      `json:"name"`
	Candidates []Candidate `json:"candidates"`
}

// Clone deep-copies the set
func (s *Set) Clone() *Set {
	out := &Set{Name: s.Name}
	out.Candidates = make([]Candidate, len(s.Candidates))
	for i, c := range s.Candidates {
		out.Candidates[i] = c.Clone()
	}
	return out
}

// Metric pulls one named metric off every candidate, erroring on the
// first candidate missing it
func (s *Set) Metric(name string) ([]float64, error) {
	values := make([]float64, len(s.Candidates))
	for i, c := range s.Candidates {
		v, ok := c.Metrics[name]
		if !ok {
			return nil, fmt.Errorf("candidate %s has no %q metric", c.ID, name)
		}
		values[i] = v
	}
	return values, nil
}

// SetOpKind is the identity-based algebra over two sets
type SetOpKind int

const (
	// Union keeps candidates present in either set
	Union SetOpKind = iota

	// Intersect keeps candidates present in both sets
	Intersect

	// Subtract keeps candidates of the first set absent from the second
	Subtract
)

// MarshalText serializes a SetOpKind to its name
func (k SetOpKind) MarshalText() ([]byte, error) {
	switch k {
	case Intersect:
		return []byte("intersect"), nil
	case Subtract:
		return []byte("subtract"), nil
	}
	return []byte("union"), nil
}

// UnmarshalText parses a SetOpKind from its name
func (k *SetOpKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "union":
		*k = Union
	case "intersect":
		*k = Intersect
	case "subtract":
		*k = Subtract
	default:
		return fmt.Errorf("unknown set op %q", text)
	}
	return nil
}

// Apply combines two sets by candidate identity. Union prefers the
// first set's copy of a shared candidate (its metrics win); results
// are sorted by candidate id
func (k SetOpKind) Apply(a, b *Set, outName string) *Set {
	inB := make(map[string]bool, len(b.Candidates))
	for _, c := range b.Candidates {
		inB[c.ID] = true
	}

	out := &Set{Name: outName}
	switch k {
	case Union:
		seen := map[string]bool{}
		for _, c := range a.Candidates {
			seen[c.ID] = true
			out.Candidates = append(out.Candidates, c.Clone())
		}
		for _, c := range b.Candidates {
			if !seen[c.ID] {
				out.Candidates = append(out.Candidates, c.Clone())
			}
		}
	case Intersect:
		for _, c := range a.Candidates {
			if inB[c.ID] {
				out.Candidates = append(out.Candidates, c.Clone())
			}
		}
	case Subtract:
		for _, c := range a.Candidates {
			if !inB[c.ID] {
				out.Candidates = append(out.Candidates, c.Clone())
			}
		}
	}

	sort.Slice(out.Candidates, func(i, j int) bool {
		return out.Candidates[i].ID < out.Candidates[j].ID
	})
	return out
}
