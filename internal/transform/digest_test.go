package transform

import (
	"testing"

	"github.com/jjtimmons/cloneops/internal/enzyme"
	"github.com/jjtimmons/cloneops/internal/seq"
)

func mustEnzyme(t *testing.T, name, recog string) enzyme.Enzyme {
	t.Helper()
	e, err := enzyme.New(name, recog)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestDigest_Linear(t *testing.T) {
	bamhi := mustEnzyme(t, "BamHI", "G^GATC_C")

	input := &seq.Sequence{ID: "lin", Bases: "AAGGATCCAA"}
	frags, warnings, err := Digest([]*seq.Sequence{input}, []enzyme.Enzyme{bamhi}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Errorf("Digest() warnings = %v, want none", warnings)
	}
	if len(frags) != 2 {
		t.Fatalf("Digest() returned %d fragments, want 2", len(frags))
	}

	if frags[0].Bases != "AAG" {
		t.Errorf("first fragment = %q, want AAG", frags[0].Bases)
	}
	if frags[0].Ends.Left.Kind != seq.Blunt {
		t.Errorf("first fragment left end = %v, want blunt", frags[0].Ends.Left)
	}
	if frags[0].Ends.Right != (seq.End{Kind: seq.FivePrime, Overhang: "GATC"}) {
		t.Errorf("first fragment right end = %v, want 5' GATC", frags[0].Ends.Right)
	}

	if frags[1].Bases != "CAA" {
		t.Errorf("second fragment = %q, want CAA", frags[1].Bases)
	}
	if frags[1].Ends.Left != (seq.End{Kind: seq.FivePrime, Overhang: "GATC"}) {
		t.Errorf("second fragment left end = %v, want 5' GATC", frags[1].Ends.Left)
	}

	// cores plus the severed overhang reconstitute the input length
	if got := len(frags[0].Bases) + len(frags[1].Bases) + len(frags[0].Ends.Right.Overhang); got != input.Len() {
		t.Errorf("fragment lengths sum to %d, want %d", got, input.Len())
	}
}

func TestDigest_CircularDoubleCut(t *testing.T) {
	bamhi := mustEnzyme(t, "BamHI", "G^GATC_C")
	ecori := mustEnzyme(t, "EcoRI", "G^AATT_C")

	input := &seq.Sequence{
		ID:       "mini",
		Bases:    "GGATCCAAGAATTCTTTT",
		Topology: seq.Circular,
	}
	frags, _, err := Digest([]*seq.Sequence{input}, []enzyme.Enzyme{bamhi, ecori}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(frags) != 2 {
		t.Fatalf("Digest() returned %d fragments, want 2", len(frags))
	}

	if frags[0].Bases != "CAAG" {
		t.Errorf("first fragment = %q, want CAAG", frags[0].Bases)
	}
	if frags[0].Ends.Left != (seq.End{Kind: seq.FivePrime, Overhang: "GATC"}) {
		t.Errorf("first fragment left end = %v, want 5' GATC", frags[0].Ends.Left)
	}
	if frags[0].Ends.Right != (seq.End{Kind: seq.FivePrime, Overhang: "AATT"}) {
		t.Errorf("first fragment right end = %v, want 5' AATT", frags[0].Ends.Right)
	}

	if frags[1].Bases != "CTTTTG" {
		t.Errorf("second fragment = %q, want CTTTTG", frags[1].Bases)
	}

	// cores plus both severed overhangs reconstitute the plasmid
	total := len(frags[0].Bases) + len(frags[1].Bases) +
		len(frags[0].Ends.Left.Overhang) + len(frags[0].Ends.Right.Overhang)
	if total != input.Len() {
		t.Errorf("fragment lengths sum to %d, want %d", total, input.Len())
	}
}

func TestDigest_CircularWrapCutDedupe(t *testing.T) {
	bamhi := mustEnzyme(t, "BamHI", "G^GATC_C")
	half := mustEnzyme(t, "HalfSite", "^GATC_C")

	// BamHI's site spans the origin so its cut lands past the sequence
	// length; HalfSite severs the same phosphate from inside the
	// template. One cut, one fragment
	input := &seq.Sequence{
		ID:       "wrap",
		Bases:    "GATCCAAAAG",
		Topology: seq.Circular,
	}
	frags, _, err := Digest([]*seq.Sequence{input}, []enzyme.Enzyme{bamhi, half}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(frags) != 1 {
		t.Fatalf("Digest() returned %d fragments, want 1", len(frags))
	}
	if frags[0].Bases != "CAAAAG" {
		t.Errorf("fragment = %q, want CAAAAG", frags[0].Bases)
	}
	if frags[0].Ends.Left != (seq.End{Kind: seq.FivePrime, Overhang: "GATC"}) {
		t.Errorf("fragment left end = %v, want 5' GATC", frags[0].Ends.Left)
	}
	if frags[0].Ends.Right != (seq.End{Kind: seq.FivePrime, Overhang: "GATC"}) {
		t.Errorf("fragment right end = %v, want 5' GATC", frags[0].Ends.Right)
	}
}

func TestDigest_ThreePrimeOverhang(t *testing.T) {
	psti := mustEnzyme(t, "PstI", "C_TGCA^G")

	input := &seq.Sequence{ID: "lin", Bases: "AACTGCAGAA"}
	frags, _, err := Digest([]*seq.Sequence{input}, []enzyme.Enzyme{psti}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(frags) != 2 {
		t.Fatalf("Digest() returned %d fragments, want 2", len(frags))
	}

	// PstI leaves TGCA protruding on the 3' strand
	if frags[0].Ends.Right.Kind != seq.ThreePrime {
		t.Errorf("right end kind = %v, want 3'", frags[0].Ends.Right.Kind)
	}
	if frags[1].Ends.Left.Kind != seq.ThreePrime {
		t.Errorf("left end kind = %v, want 3'", frags[1].Ends.Left.Kind)
	}
	if frags[0].Ends.Right.Overhang != seq.RevComp(frags[1].Ends.Left.Overhang) {
		t.Errorf("3' overhangs %q and %q are not complementary",
			frags[0].Ends.Right.Overhang, frags[1].Ends.Left.Overhang)
	}
}

func TestDigest_NoCutsPassesThrough(t *testing.T) {
	bamhi := mustEnzyme(t, "BamHI", "G^GATC_C")

	input := &seq.Sequence{ID: "uncut", Bases: "AAAATTTT"}
	frags, warnings, err := Digest([]*seq.Sequence{input}, []enzyme.Enzyme{bamhi}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(frags) != 1 || frags[0].Bases != input.Bases {
		t.Errorf("Digest() = %v, want the input passed through", frags)
	}
	if len(warnings) != 1 {
		t.Errorf("Digest() warnings = %v, want one no-cutsite warning", warnings)
	}
	if frags[0] == input {
		t.Errorf("Digest() returned the input itself, want a copy")
	}
}

func TestDigest_FragmentCap(t *testing.T) {
	bamhi := mustEnzyme(t, "BamHI", "G^GATC_C")

	input := &seq.Sequence{ID: "lin", Bases: "AAGGATCCAA"}
	if _, _, err := Digest([]*seq.Sequence{input}, []enzyme.Enzyme{bamhi}, 1); err == nil {
		t.Errorf("Digest() expected an error when the cap is exceeded")
	}
}

func TestDigest_FeatureInheritance(t *testing.T) {
	bamhi := mustEnzyme(t, "BamHI", "G^GATC_C")

	input := &seq.Sequence{
		ID:    "lin",
		Bases: "AAGGATCCTTTT",
		Features: []seq.Feature{
			{Kind: "misc", Label: "kept", Location: seq.Location{Parts: []seq.Span{{Start: 8, End: 11}}}},
			{Kind: "misc", Label: "split", Location: seq.Location{Parts: []seq.Span{{Start: 0, End: 9}}}},
		},
	}
	frags, _, err := Digest([]*seq.Sequence{input}, []enzyme.Enzyme{bamhi}, 0)
	if err != nil {
		t.Fatal(err)
	}

	// "kept" sits inside the trailing fragment (core starts at 7) and
	// shifts into fragment coordinates; "split" spans the cut and drops
	var labels []string
	for _, f := range frags {
		for _, feat := range f.Features {
			labels = append(labels, feat.Label)
		}
	}
	if len(labels) != 1 || labels[0] != "kept" {
		t.Fatalf("inherited features = %v, want only kept", labels)
	}
	kept := frags[1].Features[0]
	if kept.Location.Parts[0] != (seq.Span{Start: 1, End: 4}) {
		t.Errorf("kept feature span = %v, want [1,4)", kept.Location.Parts[0])
	}
}

func TestFragmentCount(t *testing.T) {
	bamhi := mustEnzyme(t, "BamHI", "G^GATC_C")

	type args struct {
		input *seq.Sequence
	}
	tests := []struct {
		name string
		args args
		want int
	}{
		{
			"linear one cut",
			args{&seq.Sequence{ID: "l", Bases: "AAGGATCCAA"}},
			2,
		},
		{
			"circular one cut",
			args{&seq.Sequence{ID: "c", Bases: "AAGGATCCAA", Topology: seq.Circular}},
			1,
		},
		{
			"uncut",
			args{&seq.Sequence{ID: "u", Bases: "AAAA"}},
			1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FragmentCount(tt.args.input, []enzyme.Enzyme{bamhi}); got != tt.want {
				t.Errorf("FragmentCount() = %v, want %v", got, tt.want)
			}
		})
	}
}
