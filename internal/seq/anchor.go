package seq

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Boundary selects which edge of a feature an anchor refers to
type Boundary int

const (
	// FeatureStart is the feature's lowest coordinate
	FeatureStart Boundary = iota

	// FeatureEnd is the feature's highest coordinate
	FeatureEnd

	// FeatureMiddle is the midpoint of the feature's outer span
	FeatureMiddle
)

// MarshalText serializes a Boundary to its name
func (b Boundary) MarshalText() ([]byte, error) {
	switch b {
	case FeatureEnd:
		return []byte("end"), nil
	case FeatureMiddle:
		return []byte("middle"), nil
	}
	return []byte("start"), nil
}

// UnmarshalText parses a Boundary from its name
func (b *Boundary) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "start":
		*b = FeatureStart
	case "end":
		*b = FeatureEnd
	case "middle":
		*b = FeatureMiddle
	default:
		return fmt.Errorf("unknown boundary %q", text)
	}
	return nil
}

// FeatureRef names a feature boundary on a sequence: the occurrence'th
// feature of a kind (and optionally label), counted 1-based in start
// order
type FeatureRef struct {
	Kind       string   `json:"kind"`
	Label      string   `json:"label,omitempty"`
	Boundary   Boundary `json:"boundary"`
	Occurrence int      `json:"occurrence,omitempty"`
}

// Anchor is a coordinate reference into a sequence: either an absolute
// position or a feature-boundary reference. Exactly one of the two
// should be set
type Anchor struct {
	Position *int        `json:"position,omitempty"`
	Feature  *FeatureRef `json:"feature,omitempty"`
}

// Resolve turns an anchor into a concrete position on the sequence.
// Absolute positions are bounds-checked; feature references search the
// sequence's annotations
func (a Anchor) Resolve(s *Sequence) (int, error) {
	switch {
	case a.Position != nil && a.Feature != nil:
		return 0, fmt.Errorf("anchor sets both position and feature")
	case a.Position != nil:
		pos := *a.Position
		if pos < 0 || pos > len(s.Bases) {
			return 0, fmt.Errorf("anchor position %d outside %s (length %d)", pos, s.ID, len(s.Bases))
		}
		return pos, nil
	case a.Feature != nil:
		return a.Feature.resolve(s)
	}
	return 0, fmt.Errorf("anchor sets neither position nor feature")
}

func (r *FeatureRef) resolve(s *Sequence) (int, error) {
	var hits []Feature
	for _, f := range s.Features {
		if !strings.EqualFold(f.Kind, r.Kind) {
			continue
		}
		if r.Label != "" && !strings.EqualFold(f.Label, r.Label) {
			continue
		}
		hits = append(hits, f)
	}
	if len(hits) == 0 {
		return 0, fmt.Errorf("no %q feature%s on %s", r.Kind, labelSuffix(r.Label), s.ID)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Location.Span().Start < hits[j].Location.Span().Start
	})

	occ := r.Occurrence
	if occ == 0 {
		occ = 1
	}
	if occ < 1 || occ > len(hits) {
		return 0, fmt.Errorf("occurrence %d of %q feature%s on %s: only %d found", occ, r.Kind, labelSuffix(r.Label), s.ID, len(hits))
	}

	span := hits[occ-1].Location.Span()
	switch r.Boundary {
	case FeatureEnd:
		return span.End, nil
	case FeatureMiddle:
		return span.Start + span.Len()/2, nil
	}
	return span.Start, nil
}

func labelSuffix(label string) string {
	if label == "" {
		return ""
	}
	return fmt.Sprintf(" labelled %q", label)
}

// FindMotif returns the start index of every match of an IUPAC motif
// on the given strand of the bases. Circular sequences wrap across the
// origin; returned indexes are deduped mod length and sorted
func FindMotif(s *Sequence, motif string, bothStrands bool) []int {
	if len(s.Bases) == 0 || motif == "" {
		return nil
	}
	pattern := regexp.MustCompile(IupacRegex(motif))

	search := strings.ToUpper(s.Bases)
	wrap := 0
	if s.Topology == Circular && len(motif) > 1 {
		wrap = len(motif) - 1
		search += search[:min(wrap, len(search))]
	}

	found := map[int]bool{}
	for _, start := range MatchStarts(pattern, search) {
		found[start%len(s.Bases)] = true
	}

	if bothStrands {
		rc := RevComp(s.Bases)
		rcSearch := rc
		if wrap > 0 {
			rcSearch += rc[:min(wrap, len(rc))]
		}
		for _, at := range MatchStarts(pattern, rcSearch) {
			// flip back onto the template strand
			start := len(s.Bases) - (at % len(s.Bases)) - len(motif)
			start = ((start % len(s.Bases)) + len(s.Bases)) % len(s.Bases)
			found[start] = true
		}
	}

	starts := make([]int, 0, len(found))
	for i := range found {
		starts = append(starts, i)
	}
	sort.Ints(starts)
	return starts
}
