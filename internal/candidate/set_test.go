package candidate

import (
	"reflect"
	"testing"
)

func cand(id string, metrics map[string]float64) Candidate {
	return Candidate{ID: id, SeqID: "s1", Strand: +1, Metrics: metrics}
}

func TestSetOpKind_Apply(t *testing.T) {
	a := &Set{Name: "a", Candidates: []Candidate{
		cand("s1:0-4+", map[string]float64{"gc": 0.25}),
		cand("s1:4-8+", map[string]float64{"gc": 0.5}),
	}}
	b := &Set{Name: "b", Candidates: []Candidate{
		cand("s1:4-8+", map[string]float64{"gc": 0.99}),
		cand("s1:8-12+", map[string]float64{"gc": 0.75}),
	}}

	type args struct {
		kind SetOpKind
	}
	tests := []struct {
		name    string
		args    args
		wantIDs []string
	}{
		{
			"union",
			args{Union},
			[]string{"s1:0-4+", "s1:4-8+", "s1:8-12+"},
		},
		{
			"intersect",
			args{Intersect},
			[]string{"s1:4-8+"},
		},
		{
			"subtract",
			args{Subtract},
			[]string{"s1:0-4+"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.args.kind.Apply(a, b, "out")
			if out.Name != "out" {
				t.Errorf("Apply() name = %q, want %q", out.Name, "out")
			}

			var ids []string
			for _, c := range out.Candidates {
				ids = append(ids, c.ID)
			}
			if !reflect.DeepEqual(ids, tt.wantIDs) {
				t.Errorf("Apply() ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestSetOpKind_Apply_Laws(t *testing.T) {
	a := &Set{Name: "a", Candidates: []Candidate{
		cand("s1:0-4+", nil), cand("s1:4-8+", nil), cand("s1:8-12+", nil),
	}}
	b := &Set{Name: "b", Candidates: []Candidate{
		cand("s1:4-8+", nil), cand("s1:12-16+", nil),
	}}

	union := Union.Apply(a, b, "u")
	if len(union.Candidates) < len(a.Candidates) || len(union.Candidates) < len(b.Candidates) {
		t.Errorf("union has %d candidates, smaller than an input", len(union.Candidates))
	}

	inA := map[string]bool{}
	for _, c := range a.Candidates {
		inA[c.ID] = true
	}
	inB := map[string]bool{}
	for _, c := range b.Candidates {
		inB[c.ID] = true
	}

	for _, c := range Intersect.Apply(a, b, "i").Candidates {
		if !inA[c.ID] || !inB[c.ID] {
			t.Errorf("intersect kept %s, absent from an input", c.ID)
		}
	}
	for _, c := range Subtract.Apply(a, b, "s").Candidates {
		if inB[c.ID] {
			t.Errorf("subtract kept %s, still present in b", c.ID)
		}
	}
}

func TestSetOpKind_Apply_UnionPrefersFirst(t *testing.T) {
	a := &Set{Candidates: []Candidate{cand("s1:4-8+", map[string]float64{"gc": 0.5})}}
	b := &Set{Candidates: []Candidate{cand("s1:4-8+", map[string]float64{"gc": 0.99})}}

	out := Union.Apply(a, b, "out")
	if len(out.Candidates) != 1 {
		t.Fatalf("union has %d candidates, want 1", len(out.Candidates))
	}
	if got := out.Candidates[0].Metrics["gc"]; got != 0.5 {
		t.Errorf("union kept gc = %v, want the first set's 0.5", got)
	}
}

func TestSet_Metric(t *testing.T) {
	set := &Set{Candidates: []Candidate{
		cand("s1:0-4+", map[string]float64{"gc": 0.25}),
		cand("s1:4-8+", map[string]float64{"gc": 0.5}),
	}}

	values, err := set.Metric("gc")
	if err != nil {
		t.Fatalf("Metric() error = %v", err)
	}
	if want := []float64{0.25, 0.5}; !reflect.DeepEqual(values, want) {
		t.Errorf("Metric() = %v, want %v", values, want)
	}

	if _, err := set.Metric("tm"); err == nil {
		t.Errorf("Metric() error = nil, want missing-metric error")
	}
}

func TestSet_Clone(t *testing.T) {
	set := &Set{Name: "orig", Candidates: []Candidate{
		cand("s1:0-4+", map[string]float64{"gc": 0.25}),
	}}

	clone := set.Clone()
	clone.Candidates[0].Metrics["gc"] = 1.0
	clone.Candidates[0].ID = "changed"

	if set.Candidates[0].Metrics["gc"] != 0.25 {
		t.Errorf("Clone() shares metric maps with the original")
	}
	if set.Candidates[0].ID != "s1:0-4+" {
		t.Errorf("Clone() shares candidates with the original")
	}
}
