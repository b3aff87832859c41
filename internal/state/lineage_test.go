package state

import (
	"reflect"
	"testing"
)

func TestLineage_Record(t *testing.T) {
	l := NewLineage()

	// loaded roots get nodes created on the fly
	child := l.Record("frag1", "op-1", []string{"pUC19"})
	if child != "n1" {
		t.Errorf("Record() node = %q, want n1", child)
	}
	rootNode, ok := l.SeqToNode["pUC19"]
	if !ok {
		t.Fatalf("Record() did not create a node for the loaded parent")
	}
	if got := l.Parents(child); !reflect.DeepEqual(got, []string{rootNode}) {
		t.Errorf("Parents(%s) = %v, want [%s]", child, got, rootNode)
	}

	// multi-parent children carry one edge per parent
	l.Record("frag2", "op-1", []string{"pUC19"})
	product := l.Record("construct", "op-2", []string{"frag1", "frag2"})
	if got := l.Parents(product); len(got) != 2 {
		t.Errorf("Parents(%s) = %v, want two parents", product, got)
	}

	if violations := l.Validate(); len(violations) != 0 {
		t.Errorf("Validate() = %v, want none", violations)
	}
}

func TestLineage_RecordRelabelsLatest(t *testing.T) {
	l := NewLineage()
	first := l.Record("insert", "op-1", nil)
	second := l.Record("insert", "op-2", []string{"insert"})

	if l.SeqToNode["insert"] != second {
		t.Errorf("SeqToNode[insert] = %q, want the newest node %q", l.SeqToNode["insert"], second)
	}
	if got := l.Parents(second); !reflect.DeepEqual(got, []string{first}) {
		t.Errorf("Parents(%s) = %v, want [%s]", second, got, first)
	}
}

func TestLineage_Validate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(l *Lineage)
		want int
	}{
		{
			"sound graph",
			func(l *Lineage) {
				l.Record("a", "op-1", nil)
				l.Record("b", "op-2", []string{"a"})
			},
			0,
		},
		{
			"edge to missing node",
			func(l *Lineage) {
				l.Record("a", "op-1", nil)
				l.Edges = append(l.Edges, LineageEdge{Parent: "n1", Child: "n99", OpID: "op-2"})
			},
			1,
		},
		{
			"sequence maps to wrong node",
			func(l *Lineage) {
				l.Record("a", "op-1", nil)
				l.SeqToNode["b"] = "n1"
			},
			1,
		},
		{
			"cycle",
			func(l *Lineage) {
				l.Record("a", "op-1", nil)
				l.Record("b", "op-2", []string{"a"})
				l.Edges = append(l.Edges, LineageEdge{Parent: l.SeqToNode["b"], Child: l.SeqToNode["a"], OpID: "op-3"})
			},
			1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLineage()
			tt.mut(l)
			if got := l.Validate(); len(got) != tt.want {
				t.Errorf("Validate() = %v, want %d violations", got, tt.want)
			}
		})
	}
}

func TestLineage_Clone(t *testing.T) {
	l := NewLineage()
	l.Record("a", "op-1", nil)

	c := l.Clone()
	c.Record("b", "op-2", []string{"a"})

	if len(l.Nodes) != 1 || len(l.Edges) != 0 {
		t.Errorf("Clone() shares state: original has %d nodes, %d edges", len(l.Nodes), len(l.Edges))
	}
	// node numbering continues from the snapshot point
	if c.SeqToNode["b"] != "n2" {
		t.Errorf("clone allocated node %q for b, want n2", c.SeqToNode["b"])
	}
}

func TestLineage_NodeCounterSkipsTakenIDs(t *testing.T) {
	l := NewLineage()
	// simulate a graph loaded from disk, where the counter resets
	l.Nodes["n1"] = LineageNode{SeqID: "a"}
	l.SeqToNode["a"] = "n1"

	node := l.Record("b", "op-1", nil)
	if node != "n2" {
		t.Errorf("Record() node = %q, want n2 (n1 is taken)", node)
	}
}
