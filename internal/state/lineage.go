package state

import (
	"fmt"
	"sort"
)

// LineageNode is one recorded sequence state in the provenance graph
type LineageNode struct {
	SeqID       string `json:"seq_id"`
	CreatedByOp string `json:"created_by_op"`
}

// LineageEdge links a parent node to a child node through an
// operation. Multi-parent children (e.g. ligation of two inputs)
// carry one edge per parent
type LineageEdge struct {
	Parent string `json:"parent"`
	Child  string `json:"child"`
	OpID   string `json:"op_id"`
}

// Lineage is the append-only provenance DAG: it is only ever extended,
// never rewritten
type Lineage struct {
	Nodes map[string]LineageNode `json:"nodes"`
	Edges []LineageEdge          `json:"edges"`

	// SeqToNode maps each live sequence to its latest node
	SeqToNode map[string]string `json:"seq_to_node"`

	nextNode int
}

// NewLineage returns an empty provenance graph
func NewLineage() *Lineage {
	return &Lineage{
		Nodes:     map[string]LineageNode{},
		SeqToNode: map[string]string{},
	}
}

// Clone deep-copies the graph for snapshots
func (l *Lineage) Clone() *Lineage {
	c := &Lineage{
		Nodes:     make(map[string]LineageNode, len(l.Nodes)),
		Edges:     append([]LineageEdge(nil), l.Edges...),
		SeqToNode: make(map[string]string, len(l.SeqToNode)),
		nextNode:  l.nextNode,
	}
	for id, n := range l.Nodes {
		c.Nodes[id] = n
	}
	for id, n := range l.SeqToNode {
		c.SeqToNode[id] = n
	}
	return c
}

// Record appends one node for a newly created sequence and one edge
// from each parent sequence's latest node. Parents without a node yet
// (loaded roots) get one created on the fly. Returns the new node id
func (l *Lineage) Record(seqID, opID string, parentSeqIDs []string) string {
	child := l.newNode(seqID, opID)
	for _, parent := range parentSeqIDs {
		parentNode, ok := l.SeqToNode[parent]
		if !ok {
			parentNode = l.newNode(parent, "")
		}
		l.Edges = append(l.Edges, LineageEdge{Parent: parentNode, Child: child, OpID: opID})
	}
	l.SeqToNode[seqID] = child
	return child
}

func (l *Lineage) newNode(seqID, opID string) string {
	// the counter is not persisted, so skip over ids already in use
	for {
		l.nextNode++
		if _, taken := l.Nodes[fmt.Sprintf("n%d", l.nextNode)]; !taken {
			break
		}
	}
	id := fmt.Sprintf("n%d", l.nextNode)
	l.Nodes[id] = LineageNode{SeqID: seqID, CreatedByOp: opID}
	if _, ok := l.SeqToNode[seqID]; !ok {
		l.SeqToNode[seqID] = id
	}
	return id
}

// Parents returns the parent node ids of a node, sorted
func (l *Lineage) Parents(node string) []string {
	var parents []string
	for _, e := range l.Edges {
		if e.Child == node {
			parents = append(parents, e.Parent)
		}
	}
	sort.Strings(parents)
	return parents
}

// Validate checks the graph invariants: every edge endpoint exists,
// every node's sequence mapping is consistent, and the graph is
// acyclic. Violations are collected rather than failing on the first
func (l *Lineage) Validate() []string {
	var violations []string

	children := map[string][]string{}
	for _, e := range l.Edges {
		if _, ok := l.Nodes[e.Parent]; !ok {
			violations = append(violations, fmt.Sprintf("edge %s->%s references missing parent node", e.Parent, e.Child))
		}
		if _, ok := l.Nodes[e.Child]; !ok {
			violations = append(violations, fmt.Sprintf("edge %s->%s references missing child node", e.Parent, e.Child))
		}
		children[e.Parent] = append(children[e.Parent], e.Child)
	}

	for seqID, node := range l.SeqToNode {
		n, ok := l.Nodes[node]
		if !ok {
			violations = append(violations, fmt.Sprintf("sequence %s maps to missing node %s", seqID, node))
			continue
		}
		if n.SeqID != seqID {
			violations = append(violations, fmt.Sprintf("sequence %s maps to node %s which records %s", seqID, node, n.SeqID))
		}
	}

	// cycle check: DFS with colors
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var visit func(node string) bool
	visit = func(node string) bool {
		color[node] = gray
		for _, child := range children[node] {
			switch color[child] {
			case gray:
				return false
			case white:
				if !visit(child) {
					return false
				}
			}
		}
		color[node] = black
		return true
	}
	for node := range l.Nodes {
		if color[node] == white && !visit(node) {
			violations = append(violations, fmt.Sprintf("cycle reachable from node %s", node))
			break
		}
	}

	return violations
}
