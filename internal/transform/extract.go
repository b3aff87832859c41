package transform

import (
	"fmt"
	"math"
	"strings"

	"github.com/jjtimmons/cloneops/internal/enzyme"
	"github.com/jjtimmons/cloneops/internal/seq"
)

// ExtractRegion copies the half-open [from,to) region of the input
// into a new linear sequence. On circular inputs from > to wraps
// across the origin
func ExtractRegion(input *seq.Sequence, from, to int) (*seq.Sequence, error) {
	length := len(input.Bases)
	if from < 0 || from > length || to < 0 || to > length {
		return nil, fmt.Errorf("region [%d,%d) outside %s (length %d)", from, to, input.ID, length)
	}

	var bases string
	switch {
	case from <= to:
		bases = input.Bases[from:to]
	case input.Topology == seq.Circular:
		bases = input.Bases[from:] + input.Bases[:to]
	default:
		return nil, fmt.Errorf("region [%d,%d) is inverted and %s is linear", from, to, input.ID)
	}

	end := to
	if from > to {
		end = to + length
	}
	return &seq.Sequence{
		Bases:    bases,
		Topology: seq.Linear,
		Strand:   input.Strand,
		Features: inheritFeatures(input, from, end),
	}, nil
}

// RegionConstraints are the hard requirements an anchored extraction
// candidate must satisfy
type RegionConstraints struct {
	// RequiredSites are enzymes whose recognition site must appear in
	// the candidate
	RequiredSites []enzyme.Enzyme

	// RequiredMotifs are IUPAC motifs that must appear on the
	// template strand of the candidate
	RequiredMotifs []string
}

// satisfied checks every constraint against a candidate's bases
func (c RegionConstraints) satisfied(bases string) bool {
	probe := &seq.Sequence{Bases: bases, Topology: seq.Linear}
	for _, enz := range c.RequiredSites {
		if len(enz.Sites(probe)) == 0 {
			return false
		}
	}
	for _, motif := range c.RequiredMotifs {
		if len(seq.FindMotif(probe, motif, false)) == 0 {
			return false
		}
	}
	return true
}

// AnchoredRegion is one qualifying extraction candidate
type AnchoredRegion struct {
	From, To int
	Seq      *seq.Sequence
}

// ExtractAnchoredRegion resolves the anchor and walks up/downstream
// from it, collecting every window whose length is within tolerance of
// targetLen and which satisfies the constraints. Upstream windows end
// at the anchor; downstream windows start at it
func ExtractAnchoredRegion(input *seq.Sequence, anchor seq.Anchor, upstream bool, targetLen, tolerance int, constraints RegionConstraints) ([]AnchoredRegion, error) {
	if targetLen <= 0 {
		return nil, fmt.Errorf("target length must be positive, got %d", targetLen)
	}
	if tolerance < 0 {
		return nil, fmt.Errorf("tolerance must not be negative, got %d", tolerance)
	}

	pos, err := anchor.Resolve(input)
	if err != nil {
		return nil, err
	}

	length := len(input.Bases)
	var regions []AnchoredRegion
	for l := targetLen - tolerance; l <= targetLen+tolerance; l++ {
		if l <= 0 || l > length {
			continue
		}

		var from, to int
		if upstream {
			from, to = pos-l, pos
		} else {
			from, to = pos, pos+l
		}

		var extracted *seq.Sequence
		switch {
		case input.Topology == seq.Circular && l == length:
			// the whole circle; reducing mod length would collapse
			// this window to an empty region
			from = ((from % length) + length) % length
			to = from + length
			extracted = &seq.Sequence{
				Bases:    input.Bases[from:] + input.Bases[:from],
				Topology: seq.Linear,
				Strand:   input.Strand,
				Features: inheritFeatures(input, from, to),
			}
		case input.Topology == seq.Circular:
			from = ((from % length) + length) % length
			to = ((to % length) + length) % length
			region, err := ExtractRegion(input, from, to)
			if err != nil {
				continue
			}
			extracted = region
		default:
			if from < 0 || to > length {
				continue
			}
			region, err := ExtractRegion(input, from, to)
			if err != nil {
				continue
			}
			extracted = region
		}
		if !constraints.satisfied(strings.ToUpper(extracted.Bases)) {
			continue
		}
		regions = append(regions, AnchoredRegion{From: from, To: to, Seq: extracted})
	}
	return regions, nil
}

// FilterByWeight keeps the inputs whose length falls within the
// error-expanded bounds: floor(minBp·(1−e)) .. ceil(maxBp·(1+e))
func FilterByWeight(inputs []*seq.Sequence, minBp, maxBp int, errMargin float64) ([]*seq.Sequence, error) {
	if minBp < 0 || maxBp < minBp {
		return nil, fmt.Errorf("invalid weight bounds [%d,%d]", minBp, maxBp)
	}
	if errMargin < 0 || errMargin >= 1 {
		return nil, fmt.Errorf("error margin %v outside [0,1)", errMargin)
	}

	lo, hi := EffectiveWeightBounds(minBp, maxBp, errMargin)

	var kept []*seq.Sequence
	for _, in := range inputs {
		if in.Len() >= lo && in.Len() <= hi {
			kept = append(kept, in)
		}
	}
	return kept, nil
}

// EffectiveWeightBounds expands [minBp,maxBp] by the error margin
func EffectiveWeightBounds(minBp, maxBp int, errMargin float64) (lo, hi int) {
	lo = int(math.Floor(float64(minBp) * (1 - errMargin)))
	hi = int(math.Ceil(float64(maxBp) * (1 + errMargin)))
	return lo, hi
}
