package candidate

import (
	"reflect"
	"testing"

	"github.com/jjtimmons/cloneops/internal/seq"
)

func TestGenerate(t *testing.T) {
	s := &seq.Sequence{ID: "plasmid", Bases: "ACGTACGTAC"} // 10bp

	type args struct {
		from, to int
		opts     GenerateOptions
	}
	tests := []struct {
		name    string
		args    args
		wantIDs []string
		wantErr bool
	}{
		{
			"full sweep step 1",
			args{0, 10, GenerateOptions{Length: 8}},
			[]string{"plasmid:0-8+", "plasmid:1-9+", "plasmid:2-10+"},
			false,
		},
		{
			"step skips starts",
			args{0, 10, GenerateOptions{Length: 4, Step: 3}},
			[]string{"plasmid:0-4+", "plasmid:3-7+", "plasmid:6-10+"},
			false,
		},
		{
			"both strands interleave",
			args{0, 5, GenerateOptions{Length: 4, BothStrands: true}},
			[]string{"plasmid:0-4+", "plasmid:0-4-", "plasmid:1-5+", "plasmid:1-5-"},
			false,
		},
		{
			"range shorter than window",
			args{0, 3, GenerateOptions{Length: 4}},
			nil,
			false,
		},
		{
			"range outside sequence",
			args{2, 11, GenerateOptions{Length: 4}},
			nil,
			true,
		},
		{
			"inverted range",
			args{5, 2, GenerateOptions{Length: 1}},
			nil,
			true,
		},
		{
			"zero length",
			args{0, 10, GenerateOptions{Length: 0}},
			nil,
			true,
		},
		{
			"over the candidate cap",
			args{0, 10, GenerateOptions{Length: 1, Limit: 5}},
			nil,
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, cancelled, err := Generate(s, tt.args.from, tt.args.to, tt.args.opts, "windows")
			if (err != nil) != tt.wantErr {
				t.Errorf("Generate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if cancelled {
				t.Errorf("Generate() cancelled = true, want false")
			}

			var ids []string
			for _, c := range set.Candidates {
				ids = append(ids, c.ID)
			}
			if !reflect.DeepEqual(ids, tt.wantIDs) {
				t.Errorf("Generate() ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestGenerate_Candidates(t *testing.T) {
	s := &seq.Sequence{ID: "plasmid", Bases: "ACGTACGTAC"}

	set, _, err := Generate(s, 2, 8, GenerateOptions{Length: 3, Step: 3}, "windows")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	want := []Candidate{
		{ID: "plasmid:2-5+", SeqID: "plasmid", Start: 2, End: 5, Strand: +1, Metrics: map[string]float64{}},
		{ID: "plasmid:5-8+", SeqID: "plasmid", Start: 5, End: 8, Strand: +1, Metrics: map[string]float64{}},
	}
	if !reflect.DeepEqual(set.Candidates, want) {
		t.Errorf("Generate() candidates = %+v, want %+v", set.Candidates, want)
	}

	// regeneration yields the same ids
	again, _, _ := Generate(s, 2, 8, GenerateOptions{Length: 3, Step: 3}, "windows")
	if !reflect.DeepEqual(again.Candidates, set.Candidates) {
		t.Errorf("Generate() is not deterministic across runs")
	}
}

func TestGenerate_Cancellation(t *testing.T) {
	s := &seq.Sequence{ID: "plasmid", Bases: "ACGTACGTAC"}

	calls := 0
	set, cancelled, err := Generate(s, 0, 10, GenerateOptions{
		Length: 2,
		Progress: func(done, total int) bool {
			calls++
			return done < 3
		},
	}, "windows")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !cancelled {
		t.Errorf("Generate() cancelled = false, want true")
	}
	if len(set.Candidates) != 3 {
		t.Errorf("Generate() emitted %d candidates before cancel, want 3", len(set.Candidates))
	}
	if calls != 4 {
		t.Errorf("Generate() checked progress %d times, want 4", calls)
	}
}

func TestGenerateBetweenAnchors(t *testing.T) {
	s := &seq.Sequence{
		ID:    "plasmid",
		Bases: "AACCGGTTAACC",
		Features: []seq.Feature{
			{Kind: "promoter", Label: "pLac", Location: seq.Location{Parts: []seq.Span{{Start: 2, End: 6}}}},
		},
	}
	pos := func(i int) seq.Anchor { return seq.Anchor{Position: &i} }

	type args struct {
		first, second seq.Anchor
	}
	tests := []struct {
		name    string
		args    args
		want    int
		wantErr bool
	}{
		{
			"absolute anchors",
			args{pos(2), pos(8)},
			3, // starts 2,3,4 of length 4
			false,
		},
		{
			"feature end to position",
			args{seq.Anchor{Feature: &seq.FeatureRef{Kind: "promoter", Boundary: seq.FeatureEnd}}, pos(12)},
			3, // starts 6,7,8
			false,
		},
		{
			"inverted anchors",
			args{pos(8), pos(2)},
			0,
			true,
		},
		{
			"unresolvable feature",
			args{seq.Anchor{Feature: &seq.FeatureRef{Kind: "terminator"}}, pos(12)},
			0,
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, _, err := GenerateBetweenAnchors(s, tt.args.first, tt.args.second, GenerateOptions{Length: 4}, "between")
			if (err != nil) != tt.wantErr {
				t.Errorf("GenerateBetweenAnchors() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if len(set.Candidates) != tt.want {
				t.Errorf("GenerateBetweenAnchors() emitted %d windows, want %d", len(set.Candidates), tt.want)
			}
		})
	}
}
