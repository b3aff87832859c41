package transform

import (
	"reflect"
	"testing"

	"github.com/jjtimmons/cloneops/internal/seq"
)

func TestPcr(t *testing.T) {
	template := &seq.Sequence{ID: "t", Bases: "ACGTACGTAAACCCGGGTTT"}

	type args struct {
		fwd string
		rev string
	}
	tests := []struct {
		name      string
		args      args
		wantCount int
		wantFirst string
		wantErr   bool
	}{
		{
			"two forward sites give two products",
			args{"ACGT", "GGGTTT"},
			2,
			"ACGTACGTAAACCC", // 0..14, the reverse site is RevComp(GGGTTT)
			false,
		},
		{
			"no forward site",
			args{"TTTTTT", "GGGTTT"},
			0,
			"",
			false,
		},
		{
			"empty primer",
			args{"", "GGGTTT"},
			0,
			"",
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Pcr(template, tt.args.fwd, tt.args.rev)
			if (err != nil) != tt.wantErr {
				t.Errorf("Pcr() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if len(got) != tt.wantCount {
				t.Fatalf("Pcr() returned %d amplicons, want %d", len(got), tt.wantCount)
			}
			if tt.wantCount > 0 && got[0].Bases != tt.wantFirst {
				t.Errorf("Pcr() first amplicon = %q, want %q", got[0].Bases, tt.wantFirst)
			}
		})
	}

	t.Run("circular template rejected", func(t *testing.T) {
		circ := &seq.Sequence{ID: "c", Bases: "ACGTACGT", Topology: seq.Circular}
		if _, err := Pcr(circ, "ACGT", "ACGT"); err == nil {
			t.Errorf("Pcr() expected an error on a circular template")
		}
	})
}

func TestPcrAdvanced_TailAndMismatch(t *testing.T) {
	template := &seq.Sequence{ID: "t", Bases: "GGGACGTACGTAAATTTCCC"}

	fwd := Primer{
		Sequence:  "TTTTGGGACGTA", // TTTT tail + 8 bases annealing at 0
		AnnealLen: 8,
	}
	rev := Primer{Sequence: "GGGAAATTT"} // binds over AAATTTCCC

	amplicons, cancelled, err := PcrAdvanced(template, fwd, rev, PcrOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if cancelled {
		t.Fatal("PcrAdvanced() cancelled without a progress callback")
	}
	if len(amplicons) != 1 {
		t.Fatalf("PcrAdvanced() returned %d amplicons, want 1", len(amplicons))
	}

	got := amplicons[0]
	if got.Bases != "TTTTGGGACGTACGTAAATTTCCC" {
		t.Errorf("amplicon = %q, want the tail carried into the product", got.Bases)
	}
	if got.FwdStart != 0 || got.RevEnd != 20 || got.FwdTailLen != 4 {
		t.Errorf("amplicon coordinates = %+v, want FwdStart 0, RevEnd 20, FwdTailLen 4", got)
	}
}

func TestPcrAdvanced_MismatchBudget(t *testing.T) {
	template := &seq.Sequence{ID: "t", Bases: "GGGACGTACGTAAATTTCCC"}
	rev := Primer{Sequence: "GGGAAATTT"}

	t.Run("one mismatch within budget binds", func(t *testing.T) {
		fwd := Primer{Sequence: "GGGACGTT", MaxMismatches: 1} // template has A at the last base
		amplicons, _, err := PcrAdvanced(template, fwd, rev, PcrOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if len(amplicons) != 1 {
			t.Fatalf("PcrAdvanced() returned %d amplicons, want 1", len(amplicons))
		}
		// the primer's own base, not the template's, lands in the product
		if amplicons[0].Bases[7] != 'T' {
			t.Errorf("amplicon = %q, want the primer mismatch at index 7", amplicons[0].Bases)
		}
	})

	t.Run("mismatch blocked by the 3' clamp", func(t *testing.T) {
		fwd := Primer{Sequence: "GGGACGTT", MaxMismatches: 1, Require3PrimeExact: 2}
		amplicons, _, err := PcrAdvanced(template, fwd, rev, PcrOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if len(amplicons) != 0 {
			t.Errorf("PcrAdvanced() = %v, want none with an exact 3' clamp", amplicons)
		}
	})

	t.Run("zero budget rejects the mismatch", func(t *testing.T) {
		fwd := Primer{Sequence: "GGGACGTT"}
		amplicons, _, err := PcrAdvanced(template, fwd, rev, PcrOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if len(amplicons) != 0 {
			t.Errorf("PcrAdvanced() = %v, want none with a zero mismatch budget", amplicons)
		}
	})
}

func TestPcrAdvanced_CircularSpansOrigin(t *testing.T) {
	// the product runs across the origin of the circle
	template := &seq.Sequence{ID: "c", Bases: "TTTCCCAAAGGGACG", Topology: seq.Circular}
	fwd := Primer{Sequence: "GGGACG"} // anneals at 9
	rev := Primer{Sequence: "GGGAAA"} // RevComp TTTCCC anneals at 0, wrapped to 15

	amplicons, _, err := PcrAdvanced(template, fwd, rev, PcrOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(amplicons) != 1 {
		t.Fatalf("PcrAdvanced() returned %d amplicons, want 1", len(amplicons))
	}
	if amplicons[0].Bases != "GGGACGTTTCCC" {
		t.Errorf("amplicon = %q, want GGGACGTTTCCC across the origin", amplicons[0].Bases)
	}
}

func TestPcrAdvanced_DegenerateDeterminism(t *testing.T) {
	template := &seq.Sequence{ID: "t", Bases: "GGGACGTACGTAAATTTCCC"}
	fwd := Primer{Sequence: "GGGACGTN"} // 4 variants, one binds
	rev := Primer{Sequence: "GGGAAATTT"}

	t.Run("enumerate finds the binding variant", func(t *testing.T) {
		amplicons, _, err := PcrAdvanced(template, fwd, rev, PcrOptions{LibraryMode: Enumerate})
		if err != nil {
			t.Fatal(err)
		}
		if len(amplicons) != 1 {
			t.Fatalf("PcrAdvanced() returned %d amplicons, want 1", len(amplicons))
		}
	})

	t.Run("enumerate rejects expansions over the cap", func(t *testing.T) {
		_, _, err := PcrAdvanced(template, Primer{Sequence: "NNNNNNNN"}, rev, PcrOptions{LibraryMode: Enumerate, MaxVariants: 16})
		if err == nil {
			t.Errorf("PcrAdvanced() expected an error when the expansion exceeds the cap")
		}
	})

	t.Run("same seed, same amplicons", func(t *testing.T) {
		opts := PcrOptions{LibraryMode: Sample, MaxVariants: 2, SampleSeed: 42}
		first, _, err := PcrAdvanced(template, fwd, rev, opts)
		if err != nil {
			t.Fatal(err)
		}
		second, _, err := PcrAdvanced(template, fwd, rev, opts)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("PcrAdvanced() with one seed gave %v then %v", first, second)
		}
	})
}

func TestPcrAdvanced_Cancellation(t *testing.T) {
	template := &seq.Sequence{ID: "t", Bases: "GGGACGTACGTAAATTTCCC"}
	fwd := Primer{Sequence: "GGGACGTA"}
	rev := Primer{Sequence: "GGGAAATTT"}

	_, cancelled, err := PcrAdvanced(template, fwd, rev, PcrOptions{
		Progress: func(done, total int) bool { return false },
	})
	if err != nil {
		t.Fatal(err)
	}
	if !cancelled {
		t.Errorf("PcrAdvanced() cancelled = false, want true")
	}
}

func TestPcrMutagenesis(t *testing.T) {
	template := &seq.Sequence{ID: "t", Bases: "GGGACGTACGTAAATTTCCC"}
	rev := Primer{Sequence: "GGGAAATTT"}

	t.Run("primer-borne mutation is kept", func(t *testing.T) {
		fwd := Primer{Sequence: "GGGACGTT", MaxMismatches: 1}
		kept, _, err := PcrMutagenesis(template, fwd, rev,
			[]Mutation{{Pos: 7, Ref: "A", Alt: "T"}}, true, PcrOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if len(kept) != 1 {
			t.Fatalf("PcrMutagenesis() kept %d amplicons, want 1", len(kept))
		}
	})

	t.Run("amplicon without the mutation is dropped", func(t *testing.T) {
		fwd := Primer{Sequence: "GGGACGTA"}
		kept, _, err := PcrMutagenesis(template, fwd, rev,
			[]Mutation{{Pos: 7, Ref: "A", Alt: "T"}}, true, PcrOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if len(kept) != 0 {
			t.Errorf("PcrMutagenesis() kept %v, want none", kept)
		}
	})

	t.Run("wrong reference base is rejected", func(t *testing.T) {
		fwd := Primer{Sequence: "GGGACGTA"}
		_, _, err := PcrMutagenesis(template, fwd, rev,
			[]Mutation{{Pos: 7, Ref: "C", Alt: "T"}}, true, PcrOptions{})
		if err == nil {
			t.Errorf("PcrMutagenesis() expected an error for a wrong reference base")
		}
	})
}
