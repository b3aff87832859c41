// Package transform holds the pure sequence algorithms: digestion,
// ligation, PCR, extraction and filtering. Nothing in here touches
// project state; callers own ids and commits.
package transform

import (
	"fmt"
	"sort"

	"github.com/jjtimmons/cloneops/internal/enzyme"
	"github.com/jjtimmons/cloneops/internal/seq"
)

// DefaultMaxFragments caps how many fragments one digestion may emit
// before it is rejected outright
const DefaultMaxFragments = 80000

// cut is one resolved cut position on a template: the lower and upper
// absolute cut offsets plus the overhang the enzyme leaves there
type cut struct {
	lo, hi int
	kind   seq.EndKind
}

// Digest cuts each input at every recognition site of every enzyme.
// A circular input with N sites yields N fragments; a linear input
// yields N+1 (uncut inputs pass through as a single "fragment" of
// themselves). Fragment bases are the double-stranded core; the
// single-stranded overhangs ride on the fragment's Ends. Features
// that fall fully inside a fragment's core are inherited with
// shifted coordinates; features split by a cut are dropped.
func Digest(inputs []*seq.Sequence, enzymes []enzyme.Enzyme, maxFragments int) ([]*seq.Sequence, []string, error) {
	if len(enzymes) == 0 {
		return nil, nil, fmt.Errorf("no enzymes given")
	}
	if maxFragments <= 0 {
		maxFragments = DefaultMaxFragments
	}

	var frags []*seq.Sequence
	var warnings []string
	for _, input := range inputs {
		cuts := findCuts(input, enzymes)

		count := len(cuts) + 1
		if input.Topology == seq.Circular {
			count = len(cuts)
		}
		if len(frags)+count > maxFragments {
			return nil, nil, fmt.Errorf("digesting %s would exceed the %d fragment cap", input.ID, maxFragments)
		}

		if len(cuts) == 0 {
			warnings = append(warnings, fmt.Sprintf("no cutsites found in %s", input.ID))
			frags = append(frags, input.Clone())
			continue
		}

		frags = append(frags, cutAt(input, cuts)...)
	}
	return frags, warnings, nil
}

// FragmentCount is how many fragments Digest would emit for one
// input: its cut count (circular), cut count plus one (linear), or one
// when it has no cutsites and passes through whole
func FragmentCount(input *seq.Sequence, enzymes []enzyme.Enzyme) int {
	cuts := findCuts(input, enzymes)
	if len(cuts) == 0 {
		return 1
	}
	if input.Topology == seq.Circular {
		return len(cuts)
	}
	return len(cuts) + 1
}

// findCuts scans the input with every enzyme and returns the merged,
// sorted, deduped cut list
func findCuts(input *seq.Sequence, enzymes []enzyme.Enzyme) []cut {
	length := len(input.Bases)
	byLo := map[int]cut{}
	for _, enz := range enzymes {
		for _, site := range enz.Sites(input) {
			lo, hi := site.TopCut, site.BottomCut
			kind := seq.FivePrime
			switch {
			case lo == hi:
				kind = seq.Blunt
			case lo > hi:
				lo, hi = hi, lo
				kind = seq.ThreePrime
			}
			// a wrap site's cut can land past the origin; reduce it so
			// it dedupes against an equal cut inside the template
			if input.Topology == seq.Circular && lo >= length {
				span := hi - lo
				lo %= length
				hi = lo + span
			}
			if _, taken := byLo[lo]; !taken {
				byLo[lo] = cut{lo: lo, hi: hi, kind: kind}
			}
		}
	}

	cuts := make([]cut, 0, len(byLo))
	for _, c := range byLo {
		cuts = append(cuts, c)
	}
	sort.Slice(cuts, func(i, j int) bool { return cuts[i].lo < cuts[j].lo })
	return cuts
}

// cutAt slices the input at the sorted cuts, producing fragments in
// ascending cut order
func cutAt(input *seq.Sequence, cuts []cut) []*seq.Sequence {
	length := len(input.Bases)
	doubled := input.Bases + input.Bases

	// overhangRegion reads the template letters between a cut's two
	// offsets, wrapping on circular templates
	overhangRegion := func(c cut) string {
		return doubled[c.lo%length : c.lo%length+(c.hi-c.lo)]
	}

	// end chemistry at a cut, for the fragment to its right (left
	// terminus) and to its left (right terminus)
	leftEnd := func(c cut) seq.End {
		switch c.kind {
		case seq.FivePrime:
			return seq.End{Kind: c.kind, Overhang: overhangRegion(c)}
		case seq.ThreePrime:
			return seq.End{Kind: c.kind, Overhang: seq.RevComp(overhangRegion(c))}
		}
		return seq.End{}
	}
	rightEnd := func(c cut) seq.End {
		switch c.kind {
		case seq.FivePrime:
			return seq.End{Kind: c.kind, Overhang: seq.RevComp(overhangRegion(c))}
		case seq.ThreePrime:
			return seq.End{Kind: c.kind, Overhang: overhangRegion(c)}
		}
		return seq.End{}
	}

	core := func(from cut, to cut) (string, int, int) {
		start := from.hi % length
		end := to.lo
		if input.Topology == seq.Circular {
			end = to.lo % length
			if end <= start {
				end += length
			}
			return doubled[start:end], start, end
		}
		return input.Bases[from.hi:to.lo], from.hi, to.lo
	}

	var frags []*seq.Sequence
	emit := func(bases string, start, end int, left, right seq.End) {
		f := &seq.Sequence{
			Bases:    bases,
			Topology: seq.Linear,
			Strand:   input.Strand,
			Features: inheritFeatures(input, start, end),
			Ends:     &seq.Ends{Left: left, Right: right},
		}
		frags = append(frags, f)
	}

	if input.Topology == seq.Circular {
		for i, c := range cuts {
			next := cuts[(i+1)%len(cuts)]
			bases, start, end := core(c, next)
			emit(bases, start, end, leftEnd(c), rightEnd(next))
		}
		return frags
	}

	ends := input.EndsOf()

	// leading fragment keeps the input's own left terminus
	first := cuts[0]
	emit(input.Bases[:first.lo], 0, first.lo, ends.Left, rightEnd(first))

	for i := 0; i < len(cuts)-1; i++ {
		bases, start, end := core(cuts[i], cuts[i+1])
		emit(bases, start, end, leftEnd(cuts[i]), rightEnd(cuts[i+1]))
	}

	last := cuts[len(cuts)-1]
	emit(input.Bases[last.hi:], last.hi, len(input.Bases), leftEnd(last), ends.Right)

	return frags
}

// inheritFeatures copies the input's features that fall fully within
// [start,end) of the (possibly origin-crossing) core span, shifted to
// fragment coordinates. end may exceed the input's length on circular
// templates
func inheritFeatures(input *seq.Sequence, start, end int) []seq.Feature {
	length := len(input.Bases)
	var kept []seq.Feature
	for _, f := range input.Features {
		span := f.Location.Span()
		offsets := []int{0}
		if input.Topology == seq.Circular {
			offsets = append(offsets, length)
		}
		for _, off := range offsets {
			if span.Start+off >= start && span.End+off <= end {
				nf := f
				nf.Location.Parts = make([]seq.Span, len(f.Location.Parts))
				for i, p := range f.Location.Parts {
					nf.Location.Parts[i] = seq.Span{Start: p.Start + off - start, End: p.End + off - start}
				}
				kept = append(kept, nf)
				break
			}
		}
	}
	return kept
}
