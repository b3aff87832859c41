package seq

import "fmt"

// EndKind is the chemistry of a linear fragment's terminus
type EndKind int

const (
	// Blunt end, no single-stranded protrusion
	Blunt EndKind = iota

	// FivePrime single-stranded overhang (e.g. BamHI, EcoRI)
	FivePrime

	// ThreePrime single-stranded overhang (e.g. PstI, KpnI)
	ThreePrime
)

// String implements fmt.Stringer
func (k EndKind) String() string {
	switch k {
	case FivePrime:
		return "5p"
	case ThreePrime:
		return "3p"
	}
	return "blunt"
}

// MarshalText serializes an EndKind to its name
func (k EndKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses an EndKind from its name
func (k *EndKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "blunt":
		*k = Blunt
	case "5p":
		*k = FivePrime
	case "3p":
		*k = ThreePrime
	default:
		return fmt.Errorf("unknown end kind %q", text)
	}
	return nil
}

// End is one terminus of a linear fragment. Overhang is the
// protruding single strand read 5'→3', empty for blunt ends
type End struct {
	Kind     EndKind `json:"kind"`
	Overhang string  `json:"overhang,omitempty"`
}

// Ends are the two termini of a linear fragment. A sequence without
// Ends (or a circular one) is treated as blunt on both sides
type Ends struct {
	Left  End `json:"left"`
	Right End `json:"right"`
}

// CompatibleSticky reports whether this fragment's right end can
// anneal to the other fragment's left end: both must carry the same
// overhang kind and the protruding strands must be complementary
// (one the reverse complement of the other). Palindromic overhangs
// therefore self-ligate
func CompatibleSticky(right, left End) bool {
	if right.Kind == Blunt || right.Kind != left.Kind {
		return false
	}
	return left.Overhang == RevComp(right.Overhang)
}

// EndsOf returns the sequence's ends, defaulting to blunt/blunt for a
// plain linear sequence; nil for circular sequences
func (s *Sequence) EndsOf() *Ends {
	if s.Topology == Circular {
		return nil
	}
	if s.Ends != nil {
		return s.Ends
	}
	return &Ends{}
}
