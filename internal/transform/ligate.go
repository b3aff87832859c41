package transform

import (
	"fmt"
	"sort"

	"github.com/jjtimmons/cloneops/internal/seq"
)

// Protocol selects how ligation decides end compatibility
type Protocol int

const (
	// Sticky requires complementary single-stranded overhangs
	Sticky Protocol = iota

	// Blunt joins any two blunt ends
	Blunt
)

// MarshalText serializes a Protocol to its name
func (p Protocol) MarshalText() ([]byte, error) {
	if p == Blunt {
		return []byte("Blunt"), nil
	}
	return []byte("Sticky"), nil
}

// UnmarshalText parses a Protocol from its name
func (p *Protocol) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Sticky":
		*p = Sticky
	case "Blunt":
		*p = Blunt
	default:
		return fmt.Errorf("unknown ligation protocol %q", text)
	}
	return nil
}

// LigationProduct is one candidate join: the product sequence plus the
// input ids it was assembled from, in order
type LigationProduct struct {
	Seq    *seq.Sequence
	Inputs []string
}

// Ligate enumerates the products of joining the inputs' termini under
// the protocol. Every ordered pair of distinct inputs is tried; when
// circularize is set, single inputs and two-input joins whose outer
// ends are also compatible close into circles. Products are returned
// in a deterministic order (by joined input ids)
func Ligate(inputs []*seq.Sequence, protocol Protocol, circularize bool) ([]LigationProduct, error) {
	for _, in := range inputs {
		if in.Topology == seq.Circular {
			return nil, fmt.Errorf("%s is circular and cannot be ligated", in.ID)
		}
	}

	var products []LigationProduct

	// self-circularization of each single input
	if circularize {
		for _, in := range inputs {
			ends := in.EndsOf()
			if joinable(ends.Right, ends.Left, protocol) {
				products = append(products, LigationProduct{
					Seq:    closeCircle(in),
					Inputs: []string{in.ID},
				})
			}
		}
	}

	// ordered pairs of distinct inputs
	for i, a := range inputs {
		for j, b := range inputs {
			if i == j {
				continue
			}
			aEnds, bEnds := a.EndsOf(), b.EndsOf()
			if !joinable(aEnds.Right, bEnds.Left, protocol) {
				continue
			}

			joined := join(a, b)
			if circularize {
				jEnds := joined.EndsOf()
				if joinable(jEnds.Right, jEnds.Left, protocol) {
					products = append(products, LigationProduct{
						Seq:    closeCircle(joined),
						Inputs: []string{a.ID, b.ID},
					})
					continue
				}
			}
			products = append(products, LigationProduct{
				Seq:    joined,
				Inputs: []string{a.ID, b.ID},
			})
		}
	}

	sort.SliceStable(products, func(i, j int) bool {
		return fmt.Sprint(products[i].Inputs) < fmt.Sprint(products[j].Inputs)
	})
	return products, nil
}

// joinable is whether a right terminus can be sealed to a left one
func joinable(right, left seq.End, protocol Protocol) bool {
	if protocol == Blunt {
		return right.Kind == seq.Blunt && left.Kind == seq.Blunt
	}
	return seq.CompatibleSticky(right, left)
}

// junctionBases is the double-stranded sequence the annealed overhangs
// contribute at a sealed junction, in top-strand letters
func junctionBases(right, left seq.End) string {
	switch right.Kind {
	case seq.FivePrime:
		// the downstream fragment's top strand protrudes
		return left.Overhang
	case seq.ThreePrime:
		// the upstream fragment's top strand protrudes
		return right.Overhang
	}
	return ""
}

// join concatenates two linear fragments across their compatible
// junction. Features shift by the upstream length plus the junction
func join(a, b *seq.Sequence) *seq.Sequence {
	aEnds, bEnds := a.EndsOf(), b.EndsOf()
	junction := junctionBases(aEnds.Right, bEnds.Left)

	offset := len(a.Bases) + len(junction)
	features := append([]seq.Feature(nil), a.Clone().Features...)
	for _, f := range b.Clone().Features {
		for i := range f.Location.Parts {
			f.Location.Parts[i].Start += offset
			f.Location.Parts[i].End += offset
		}
		features = append(features, f)
	}

	return &seq.Sequence{
		Bases:    a.Bases + junction + b.Bases,
		Topology: seq.Linear,
		Strand:   a.Strand,
		Features: features,
		Ends:     &seq.Ends{Left: aEnds.Left, Right: bEnds.Right},
	}
}

// closeCircle seals a linear fragment's own ends into a circle
func closeCircle(f *seq.Sequence) *seq.Sequence {
	ends := f.EndsOf()
	junction := junctionBases(ends.Right, ends.Left)
	return &seq.Sequence{
		Bases:    f.Bases + junction,
		Topology: seq.Circular,
		Strand:   f.Strand,
		Features: f.Clone().Features,
	}
}
