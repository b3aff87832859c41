// Package seq holds the sequence model shared by every engine operation:
// bases, topology, strandedness, and annotated features.
package seq

import (
	"fmt"
	"regexp"
	"strings"
)

// Topology is whether a sequence's backbone closes on itself
type Topology int

const (
	// Linear is an open stretch of DNA/RNA with two free ends
	Linear Topology = iota

	// Circular is a closed loop, e.g. most plasmids
	Circular
)

// String implements fmt.Stringer
func (t Topology) String() string {
	if t == Circular {
		return "circular"
	}
	return "linear"
}

// MarshalText serializes a Topology to its name
func (t Topology) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a Topology from its name
func (t *Topology) UnmarshalText(text []byte) error {
	switch string(text) {
	case "linear":
		*t = Linear
	case "circular":
		*t = Circular
	default:
		return fmt.Errorf("unknown topology %q", text)
	}
	return nil
}

// Strand is the strandedness/chemistry of a sequence
type Strand int

const (
	// DoubleStranded DNA, the default for everything cloning related
	DoubleStranded Strand = iota

	// SingleStranded DNA, e.g. an oligo
	SingleStranded

	// RNA single stranded transcript
	RNA
)

// String implements fmt.Stringer
func (s Strand) String() string {
	switch s {
	case SingleStranded:
		return "ssDNA"
	case RNA:
		return "RNA"
	}
	return "dsDNA"
}

// MarshalText serializes a Strand to its name
func (s Strand) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a Strand from its name
func (s *Strand) UnmarshalText(text []byte) error {
	switch string(text) {
	case "dsDNA":
		*s = DoubleStranded
	case "ssDNA":
		*s = SingleStranded
	case "RNA":
		*s = RNA
	default:
		return fmt.Errorf("unknown strand kind %q", text)
	}
	return nil
}

// Span is a half-open region of a sequence: Start inclusive, End exclusive
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len is the number of bases the span covers
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps is whether this span and the other share any base
func (s Span) Overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

// Contains is whether this span fully covers the other
func (s Span) Contains(other Span) bool {
	return s.Start <= other.Start && other.End <= s.End
}

// Location is where a feature sits on a sequence. Multi-part
// locations model join/order annotations; Complement means the
// feature is read off the bottom strand
type Location struct {
	Parts      []Span `json:"parts"`
	Complement bool   `json:"complement,omitempty"`
	Order      bool   `json:"order,omitempty"`
}

// Span is the outermost span covering every part
func (l Location) Span() Span {
	if len(l.Parts) == 0 {
		return Span{}
	}
	outer := l.Parts[0]
	for _, p := range l.Parts[1:] {
		if p.Start < outer.Start {
			outer.Start = p.Start
		}
		if p.End > outer.End {
			outer.End = p.End
		}
	}
	return outer
}

// Feature is a single annotation on a sequence: a CDS, promoter,
// primer site, etc
type Feature struct {
	Kind       string            `json:"kind"`
	Label      string            `json:"label,omitempty"`
	Location   Location          `json:"location"`
	Qualifiers map[string]string `json:"qualifiers,omitempty"`
}

// Sequence is one named DNA/RNA molecule. Sequences are
// immutable-per-version: operations emit new Sequence entries
// rather than editing bases in place
type Sequence struct {
	ID       string    `json:"id"`
	Bases    string    `json:"bases"`
	Topology Topology  `json:"topology"`
	Strand   Strand    `json:"strand_kind"`
	Features []Feature `json:"features,omitempty"`

	// Ends carry overhangs left behind by digestion; nil for loaded
	// sequences and anything circular
	Ends *Ends `json:"ends,omitempty"`
}

// Len is the sequence's length in bases
func (s *Sequence) Len() int {
	return len(s.Bases)
}

// Clone returns a deep copy: feature slices and qualifier maps are
// not shared with the receiver
func (s *Sequence) Clone() *Sequence {
	c := &Sequence{
		ID:       s.ID,
		Bases:    s.Bases,
		Topology: s.Topology,
		Strand:   s.Strand,
	}
	if s.Features != nil {
		c.Features = make([]Feature, len(s.Features))
		for i, f := range s.Features {
			c.Features[i] = cloneFeature(f)
		}
	}
	if s.Ends != nil {
		ends := *s.Ends
		c.Ends = &ends
	}
	return c
}

func cloneFeature(f Feature) Feature {
	c := f
	c.Location.Parts = append([]Span(nil), f.Location.Parts...)
	if f.Qualifiers != nil {
		c.Qualifiers = make(map[string]string, len(f.Qualifiers))
		for k, v := range f.Qualifiers {
			c.Qualifiers[k] = v
		}
	}
	return c
}

var comp = map[byte]byte{
	'A': 'T', 'T': 'A', 'G': 'C', 'C': 'G',
	'U': 'A',
	'M': 'K', 'K': 'M', 'R': 'Y', 'Y': 'R',
	'W': 'W', 'S': 'S',
	'H': 'D', 'D': 'H', 'V': 'B', 'B': 'V',
	'N': 'N', 'X': 'X',
}

// RevComp returns the reverse complement of a sequence, upper-cased.
// IUPAC ambiguity codes complement to their mirrored code
func RevComp(bases string) string {
	bases = strings.ToUpper(bases)
	rc := make([]byte, len(bases))
	for i := 0; i < len(bases); i++ {
		c, ok := comp[bases[len(bases)-1-i]]
		if !ok {
			c = 'N'
		}
		rc[i] = c
	}
	return string(rc)
}

// iupacDecode maps each IUPAC base to the regex alternation matching it
var iupacDecode = map[rune]string{
	'A': "A",
	'C': "C",
	'G': "G",
	'T': "T",
	'U': "T",
	'M': "(A|C)",
	'R': "(A|G)",
	'W': "(A|T)",
	'Y': "(C|T)",
	'S': "(C|G)",
	'K': "(G|T)",
	'H': "(A|C|T)",
	'D': "(A|G|T)",
	'V': "(A|C|G)",
	'B': "(C|G|T)",
	'N': "(A|C|G|T)",
	'X': "(A|C|G|T)",
}

// IupacRegex turns an IUPAC motif into a regex pattern for searching
// a template sequence
func IupacRegex(motif string) string {
	var b strings.Builder
	for _, c := range strings.ToUpper(motif) {
		if decoded, ok := iupacDecode[c]; ok {
			b.WriteString(decoded)
		} else {
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return b.String()
}

// MatchStarts returns the start of every match of pattern in s,
// including matches that overlap an earlier one. regexp's FindAll
// only reports non-overlapping matches, which loses adjacent
// recognition sites
func MatchStarts(pattern *regexp.Regexp, s string) []int {
	var starts []int
	off := 0
	for off < len(s) {
		m := pattern.FindStringIndex(s[off:])
		if m == nil {
			break
		}
		starts = append(starts, off+m[0])
		off += m[0] + 1
	}
	return starts
}

// iupacBases maps each IUPAC letter to the plain bases it stands for
var iupacBases = map[byte]string{
	'A': "A", 'C': "C", 'G': "G", 'T': "T", 'U': "T",
	'M': "AC", 'R': "AG", 'W': "AT", 'Y': "CT", 'S': "CG", 'K': "GT",
	'H': "ACT", 'D': "AGT", 'V': "ACG", 'B': "CGT",
	'N': "ACGT", 'X': "ACGT",
}

// Expansions is the number of plain-base sequences an IUPAC motif
// stands for (the product of each letter's degeneracy)
func Expansions(motif string) int {
	count := 1
	for i := 0; i < len(motif); i++ {
		bases, ok := iupacBases[motif[i]]
		if !ok {
			continue
		}
		count *= len(bases)
		if count > 1<<30 {
			return 1 << 30 // saturate, caller treats this as "too many"
		}
	}
	return count
}

// ExpandIupac enumerates every plain-base sequence an IUPAC motif
// stands for, in lexicographic order of the expanded letters. The
// limit caps the slice; limit <= 0 means unbounded
func ExpandIupac(motif string, limit int) []string {
	motif = strings.ToUpper(motif)
	variants := []string{""}
	for i := 0; i < len(motif); i++ {
		bases, ok := iupacBases[motif[i]]
		if !ok {
			bases = string(motif[i])
		}
		next := make([]string, 0, len(variants)*len(bases))
		for _, v := range variants {
			for j := 0; j < len(bases); j++ {
				next = append(next, v+string(bases[j]))
				if limit > 0 && len(next) > limit {
					return next
				}
			}
		}
		variants = next
	}
	return variants
}

// Matches is whether a plain base matches an IUPAC letter
func Matches(iupac, base byte) bool {
	bases, ok := iupacBases[iupac]
	if !ok {
		return false
	}
	return strings.IndexByte(bases, base) >= 0
}

// GCFraction is the fraction of G/C bases in a sequence, 0 for empty
func GCFraction(bases string) float64 {
	if len(bases) == 0 {
		return 0
	}
	gc := 0
	for i := 0; i < len(bases); i++ {
		switch bases[i] {
		case 'G', 'C', 'g', 'c', 'S', 's':
			gc++
		}
	}
	return float64(gc) / float64(len(bases))
}

// ATFraction is the fraction of A/T bases in a sequence, 0 for empty
func ATFraction(bases string) float64 {
	if len(bases) == 0 {
		return 0
	}
	at := 0
	for i := 0; i < len(bases); i++ {
		switch bases[i] {
		case 'A', 'T', 'a', 't', 'U', 'u', 'W', 'w':
			at++
		}
	}
	return float64(at) / float64(len(bases))
}

// validBases matches every letter we accept in a sequence
var validBases = regexp.MustCompile(`^[ACGTUMRWYSKHDVBNXacgtumrwyskhdvbnx]*$`)

// Validate checks a sequence's bases and feature coordinates. The
// returned warnings are non-fatal (e.g. unusual IUPAC content), the
// error is fatal (e.g. a feature running off the sequence)
func (s *Sequence) Validate() (warnings []string, err error) {
	if s.ID == "" {
		return nil, fmt.Errorf("sequence has no id")
	}
	if !validBases.MatchString(s.Bases) {
		warnings = append(warnings, fmt.Sprintf("%s: bases contain non-IUPAC letters", s.ID))
	}
	for _, f := range s.Features {
		for _, p := range f.Location.Parts {
			if p.Start < 0 || p.End < p.Start {
				return warnings, fmt.Errorf("%s: feature %q has an invalid span [%d,%d)", s.ID, f.Label, p.Start, p.End)
			}
			if s.Topology == Linear && p.End > len(s.Bases) {
				return warnings, fmt.Errorf("%s: feature %q ends at %d beyond length %d", s.ID, f.Label, p.End, len(s.Bases))
			}
		}
	}
	return warnings, nil
}
