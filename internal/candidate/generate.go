package candidate

import (
	"fmt"

	"github.com/jjtimmons/cloneops/internal/seq"
)

// DefaultMaxCandidates bounds worst-case window generation
const DefaultMaxCandidates = 100000

// WindowID derives a candidate's stable id from its coordinates, so
// regenerating the same windows yields the same ids
func WindowID(seqID string, start, end, strand int) string {
	s := "+"
	if strand < 0 {
		s = "-"
	}
	return fmt.Sprintf("%s:%d-%d%s", seqID, start, end, s)
}

// GenerateOptions configure window generation
type GenerateOptions struct {
	// Length of each window, required
	Length int

	// Step between window starts; 0 means 1
	Step int

	// BothStrands also emits the -1 strand window at each position
	BothStrands bool

	// Limit caps how many windows may be generated; 0 uses
	// DefaultMaxCandidates
	Limit int

	// Progress is checked once per window start; returning false
	// stops generation with a partial set
	Progress func(done, total int) bool
}

// Generate emits fixed-length, fixed-step windows across [from,to) of
// the sequence. The bool result reports cooperative cancellation
func Generate(s *seq.Sequence, from, to int, opts GenerateOptions, outName string) (*Set, bool, error) {
	if opts.Length <= 0 {
		return nil, false, fmt.Errorf("window length must be positive, got %d", opts.Length)
	}
	step := opts.Step
	if step <= 0 {
		step = 1
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultMaxCandidates
	}

	if from < 0 || to > len(s.Bases) || from > to {
		return nil, false, fmt.Errorf("window range [%d,%d) outside %s (length %d)", from, to, s.ID, len(s.Bases))
	}

	total := 0
	if to-from >= opts.Length {
		total = (to - from - opts.Length) / step
		total++
	}

	out := &Set{Name: outName}
	cancelled := false
	done := 0
	for start := from; start+opts.Length <= to; start += step {
		if opts.Progress != nil && !opts.Progress(done, total) {
			cancelled = true
			break
		}
		done++

		end := start + opts.Length
		out.Candidates = append(out.Candidates, Candidate{
			ID:      WindowID(s.ID, start, end, +1),
			SeqID:   s.ID,
			Start:   start,
			End:     end,
			Strand:  +1,
			Metrics: map[string]float64{},
		})
		if opts.BothStrands {
			out.Candidates = append(out.Candidates, Candidate{
				ID:      WindowID(s.ID, start, end, -1),
				SeqID:   s.ID,
				Start:   start,
				End:     end,
				Strand:  -1,
				Metrics: map[string]float64{},
			})
		}
		if len(out.Candidates) > limit {
			return nil, false, fmt.Errorf("window generation over %s exceeds the %d candidate cap", s.ID, limit)
		}
	}
	return out, cancelled, nil
}

// GenerateBetweenAnchors emits windows strictly between two resolved
// anchors: every window starts at or after the first anchor and ends
// at or before the second
func GenerateBetweenAnchors(s *seq.Sequence, first, second seq.Anchor, opts GenerateOptions, outName string) (*Set, bool, error) {
	from, err := first.Resolve(s)
	if err != nil {
		return nil, false, fmt.Errorf("first anchor: %v", err)
	}
	to, err := second.Resolve(s)
	if err != nil {
		return nil, false, fmt.Errorf("second anchor: %v", err)
	}
	if from > to {
		return nil, false, fmt.Errorf("anchors are inverted: %d after %d", from, to)
	}
	return Generate(s, from, to, opts, outName)
}
