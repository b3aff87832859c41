package candidate

import (
	"fmt"
	"math"
	"strings"

	"github.com/jjtimmons/cloneops/internal/seq"
)

// Score evaluates an expression for every candidate and attaches the
// result as a named metric on a new set. The built-in quantities are
// gc_fraction, at_fraction, length, start and end, plus every metric
// already on the candidate
func Score(set *Set, s *seq.Sequence, metric, expression, outName string, progress func(done, total int) bool) (*Set, bool, error) {
	if metric == "" {
		return nil, false, fmt.Errorf("metric name is required")
	}
	expr, err := ParseExpr(expression)
	if err != nil {
		return nil, false, err
	}

	out := set.Clone()
	out.Name = outName
	cancelled := false
	for i := range out.Candidates {
		if progress != nil && !progress(i, len(out.Candidates)) {
			cancelled = true
			out.Candidates = out.Candidates[:i]
			break
		}

		c := &out.Candidates[i]
		if c.Start < 0 || c.End > len(s.Bases) || c.SeqID != s.ID {
			return nil, false, fmt.Errorf("candidate %s does not address %s", c.ID, s.ID)
		}

		window := s.Bases[c.Start:c.End]
		if c.Strand < 0 {
			window = seq.RevComp(window)
		}

		vars := map[string]float64{
			"gc_fraction": seq.GCFraction(window),
			"at_fraction": seq.ATFraction(window),
			"length":      float64(len(window)),
			"start":       float64(c.Start),
			"end":         float64(c.End),
		}
		for name, v := range c.Metrics {
			vars[strings.ToLower(name)] = v
		}

		v, err := expr.Eval(vars)
		if err != nil {
			return nil, false, fmt.Errorf("candidate %s: %v", c.ID, err)
		}
		if c.Metrics == nil {
			c.Metrics = map[string]float64{}
		}
		c.Metrics[metric] = v
	}
	return out, cancelled, nil
}

// GeometryMode selects what part of a feature distance is measured to
type GeometryMode int

const (
	// FeatureSpan measures to the feature's outer span
	FeatureSpan GeometryMode = iota

	// FeatureParts measures to the nearest individual part
	FeatureParts

	// FeatureBoundaries measures to feature edge points only
	FeatureBoundaries
)

// MarshalText serializes a GeometryMode to its name
func (m GeometryMode) MarshalText() ([]byte, error) {
	switch m {
	case FeatureParts:
		return []byte("feature_parts"), nil
	case FeatureBoundaries:
		return []byte("feature_boundaries"), nil
	}
	return []byte("feature_span"), nil
}

// UnmarshalText parses a GeometryMode from its name
func (m *GeometryMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "feature_span":
		*m = FeatureSpan
	case "feature_parts":
		*m = FeatureParts
	case "feature_boundaries":
		*m = FeatureBoundaries
	default:
		return fmt.Errorf("unknown feature geometry mode %q", text)
	}
	return nil
}

// BoundaryMode narrows FeatureBoundaries distance to one edge class
type BoundaryMode int

const (
	// AnyBoundary measures to whichever edge is nearest
	AnyBoundary BoundaryMode = iota

	// FivePrimeBoundary is the feature's 5' edge on its own strand
	FivePrimeBoundary

	// ThreePrimeBoundary is the feature's 3' edge on its own strand
	ThreePrimeBoundary

	// StartBoundary is the feature's lowest coordinate
	StartBoundary

	// EndBoundary is the feature's highest coordinate
	EndBoundary
)

// MarshalText serializes a BoundaryMode to its name
func (m BoundaryMode) MarshalText() ([]byte, error) {
	switch m {
	case FivePrimeBoundary:
		return []byte("five_prime"), nil
	case ThreePrimeBoundary:
		return []byte("three_prime"), nil
	case StartBoundary:
		return []byte("start"), nil
	case EndBoundary:
		return []byte("end"), nil
	}
	return []byte("any"), nil
}

// UnmarshalText parses a BoundaryMode from its name
func (m *BoundaryMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "any":
		*m = AnyBoundary
	case "five_prime":
		*m = FivePrimeBoundary
	case "three_prime":
		*m = ThreePrimeBoundary
	case "start":
		*m = StartBoundary
	case "end":
		*m = EndBoundary
	default:
		return fmt.Errorf("unknown boundary mode %q", text)
	}
	return nil
}

// StrandRelation filters which features a candidate is measured to
type StrandRelation int

const (
	// AnyStrand measures to features on either strand
	AnyStrand StrandRelation = iota

	// SameStrand only measures to features on the candidate's strand
	SameStrand

	// OppositeStrand only measures to the other strand's features
	OppositeStrand
)

// MarshalText serializes a StrandRelation to its name
func (r StrandRelation) MarshalText() ([]byte, error) {
	switch r {
	case SameStrand:
		return []byte("same"), nil
	case OppositeStrand:
		return []byte("opposite"), nil
	}
	return []byte("any"), nil
}

// UnmarshalText parses a StrandRelation from its name
func (r *StrandRelation) UnmarshalText(text []byte) error {
	switch string(text) {
	case "any":
		*r = AnyStrand
	case "same":
		*r = SameStrand
	case "opposite":
		*r = OppositeStrand
	default:
		return fmt.Errorf("unknown strand relation %q", text)
	}
	return nil
}

// DistanceOptions configure feature-distance scoring
type DistanceOptions struct {
	FeatureKind string
	Geometry    GeometryMode
	Boundary    BoundaryMode
	Strand      StrandRelation
	Absolute    bool
	Progress    func(done, total int) bool
}

// ScoreDistance attaches a metric holding each candidate's distance to
// the nearest eligible feature: 0 when overlapping, negative when the
// feature is upstream of the candidate (unless Absolute). A candidate
// with no eligible feature keeps its metrics untouched; skipped counts
// how many were passed over that way
func ScoreDistance(set *Set, s *seq.Sequence, metric string, opts DistanceOptions, outName string) (out *Set, skipped int, cancelled bool, err error) {
	if metric == "" {
		return nil, 0, false, fmt.Errorf("metric name is required")
	}
	if opts.Boundary != AnyBoundary && opts.Geometry != FeatureBoundaries {
		return nil, 0, false, fmt.Errorf("boundary mode needs feature_boundaries geometry")
	}

	var eligible []seq.Feature
	for _, f := range s.Features {
		if strings.EqualFold(f.Kind, opts.FeatureKind) {
			eligible = append(eligible, f)
		}
	}

	out = set.Clone()
	out.Name = outName
	for i := range out.Candidates {
		if opts.Progress != nil && !opts.Progress(i, len(out.Candidates)) {
			cancelled = true
			out.Candidates = out.Candidates[:i]
			break
		}

		c := &out.Candidates[i]
		best := math.Inf(1)
		for _, f := range eligible {
			if !strandEligible(c.Strand, f, opts.Strand) {
				continue
			}
			d := featureDistance(*c, f, opts)
			if math.Abs(d) < math.Abs(best) {
				best = d
			}
		}
		if math.IsInf(best, 0) {
			// metrics have to stay JSON-encodable, so Inf is never stored
			skipped++
			continue
		}
		if opts.Absolute {
			best = math.Abs(best)
		}
		if c.Metrics == nil {
			c.Metrics = map[string]float64{}
		}
		c.Metrics[metric] = best
	}
	return out, skipped, cancelled, nil
}

func strandEligible(candStrand int, f seq.Feature, rel StrandRelation) bool {
	fStrand := +1
	if f.Location.Complement {
		fStrand = -1
	}
	switch rel {
	case SameStrand:
		return candStrand == fStrand
	case OppositeStrand:
		return candStrand != fStrand
	}
	return true
}

// featureDistance measures from a candidate to one feature under the
// geometry mode. Overlap is 0; otherwise the signed gap, negative when
// the feature lies before the candidate
func featureDistance(c Candidate, f seq.Feature, opts DistanceOptions) float64 {
	cand := seq.Span{Start: c.Start, End: c.End}

	switch opts.Geometry {
	case FeatureParts:
		best := math.Inf(1)
		for _, p := range f.Location.Parts {
			d := spanGap(cand, p)
			if math.Abs(d) < math.Abs(best) {
				best = d
			}
		}
		return best

	case FeatureBoundaries:
		best := math.Inf(1)
		for _, point := range boundaryPoints(f, opts.Boundary) {
			d := pointGap(cand, point)
			if math.Abs(d) < math.Abs(best) {
				best = d
			}
		}
		return best
	}

	return spanGap(cand, f.Location.Span())
}

// boundaryPoints lists the feature edge coordinates the mode selects.
// 5'/3' are strand-aware: a complement feature's 5' edge is its
// highest coordinate
func boundaryPoints(f seq.Feature, mode BoundaryMode) []int {
	span := f.Location.Span()
	switch mode {
	case StartBoundary:
		return []int{span.Start}
	case EndBoundary:
		return []int{span.End}
	case FivePrimeBoundary:
		if f.Location.Complement {
			return []int{span.End}
		}
		return []int{span.Start}
	case ThreePrimeBoundary:
		if f.Location.Complement {
			return []int{span.Start}
		}
		return []int{span.End}
	}
	return []int{span.Start, span.End}
}

// spanGap is 0 on overlap, else the signed distance between the spans
func spanGap(cand, feat seq.Span) float64 {
	if cand.Overlaps(feat) {
		return 0
	}
	if feat.Start >= cand.End {
		return float64(feat.Start - cand.End)
	}
	return -float64(cand.Start - feat.End)
}

// pointGap is 0 when the point falls inside the candidate, else the
// signed distance to it
func pointGap(cand seq.Span, point int) float64 {
	if point >= cand.Start && point < cand.End {
		return 0
	}
	if point >= cand.End {
		return float64(point - cand.End)
	}
	return -float64(cand.Start - point)
}
