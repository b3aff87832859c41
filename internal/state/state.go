// Package state owns the project: every sequence, container, candidate
// set and the provenance graph, all keyed by string ids. Cross
// references are id lookups only; entities never hold pointers to one
// another.
package state

import (
	"fmt"
	"sort"

	"github.com/jjtimmons/cloneops/internal/candidate"
	"github.com/jjtimmons/cloneops/internal/seq"
)

// ContainerKind is what a container stands for in the lab
type ContainerKind int

const (
	// Singleton holds exactly one sequence
	Singleton ContainerKind = iota

	// Pool holds many candidate sequences, possibly with multiplicity
	Pool

	// Selection is a pool narrowed down by a filtering operation
	Selection
)

// MarshalText serializes a ContainerKind to its name
func (k ContainerKind) MarshalText() ([]byte, error) {
	switch k {
	case Pool:
		return []byte("pool"), nil
	case Selection:
		return []byte("selection"), nil
	}
	return []byte("singleton"), nil
}

// UnmarshalText parses a ContainerKind from its name
func (k *ContainerKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "singleton":
		*k = Singleton
	case "pool":
		*k = Pool
	case "selection":
		*k = Selection
	default:
		return fmt.Errorf("unknown container kind %q", text)
	}
	return nil
}

// Member is one sequence in a container, with how many copies of it
// the tube logically holds
type Member struct {
	SeqID        string `json:"seq_id"`
	Multiplicity int    `json:"multiplicity"`
}

// Container is a logical wet-lab tube
type Container struct {
	ID      string        `json:"id"`
	Kind    ContainerKind `json:"kind"`
	Members []Member      `json:"members"`
}

// Clone deep-copies the container
func (c *Container) Clone() *Container {
	out := *c
	out.Members = append([]Member(nil), c.Members...)
	return &out
}

// Project is the whole engine state one executor call mutates. It is
// single-writer: one apply completes before the next reads it
type Project struct {
	Sequences  map[string]*seq.Sequence  `json:"sequences"`
	Containers map[string]*Container     `json:"container_state"`
	Candidates map[string]*candidate.Set `json:"candidate_sets"`
	Lineage    *Lineage                  `json:"lineage"`
	Metadata   map[string]string         `json:"metadata"`
	Display    map[string]bool           `json:"display"`
	Parameters map[string]string         `json:"parameters"`

	// SeqToContainer indexes each sequence's most recent container
	SeqToContainer map[string]string `json:"seq_to_latest_container"`

	nextContainer int
}

// NewProject returns an empty project
func NewProject() *Project {
	return &Project{
		Sequences:      map[string]*seq.Sequence{},
		Containers:     map[string]*Container{},
		Candidates:     map[string]*candidate.Set{},
		Lineage:        NewLineage(),
		Metadata:       map[string]string{},
		Display:        map[string]bool{},
		Parameters:     map[string]string{},
		SeqToContainer: map[string]string{},
	}
}

// Clone deep-copies the project for transactional snapshots
func (p *Project) Clone() *Project {
	c := NewProject()
	for id, s := range p.Sequences {
		c.Sequences[id] = s.Clone()
	}
	for id, container := range p.Containers {
		c.Containers[id] = container.Clone()
	}
	for name, set := range p.Candidates {
		c.Candidates[name] = set.Clone()
	}
	c.Lineage = p.Lineage.Clone()
	for k, v := range p.Metadata {
		c.Metadata[k] = v
	}
	for k, v := range p.Display {
		c.Display[k] = v
	}
	for k, v := range p.Parameters {
		c.Parameters[k] = v
	}
	for k, v := range p.SeqToContainer {
		c.SeqToContainer[k] = v
	}
	c.nextContainer = p.nextContainer
	return c
}

// Seq looks a sequence up by id
func (p *Project) Seq(id string) (*seq.Sequence, error) {
	s, ok := p.Sequences[id]
	if !ok {
		return nil, fmt.Errorf("unknown sequence %q", id)
	}
	return s, nil
}

// CandidateSet looks a candidate set up by name
func (p *Project) CandidateSet(name string) (*candidate.Set, error) {
	set, ok := p.Candidates[name]
	if !ok {
		return nil, fmt.Errorf("unknown candidate set %q", name)
	}
	return set, nil
}

// AddSequence registers a new sequence; the id must be unused
func (p *Project) AddSequence(s *seq.Sequence) error {
	if s.ID == "" {
		return fmt.Errorf("sequence has no id")
	}
	if _, taken := p.Sequences[s.ID]; taken {
		return fmt.Errorf("sequence id %q is already taken", s.ID)
	}
	p.Sequences[s.ID] = s
	return nil
}

// NewContainer registers a container holding the given members and
// refreshes each member sequence's latest-container index
func (p *Project) NewContainer(kind ContainerKind, members []Member) (*Container, error) {
	for _, m := range members {
		if _, ok := p.Sequences[m.SeqID]; !ok {
			return nil, fmt.Errorf("container member %q is not a live sequence", m.SeqID)
		}
	}

	// the counter is not persisted, so skip over ids already in use
	for {
		p.nextContainer++
		if _, taken := p.Containers[fmt.Sprintf("c%d", p.nextContainer)]; !taken {
			break
		}
	}
	c := &Container{
		ID:      fmt.Sprintf("c%d", p.nextContainer),
		Kind:    kind,
		Members: members,
	}
	p.Containers[c.ID] = c
	for _, m := range members {
		p.SeqToContainer[m.SeqID] = c.ID
	}
	return c, nil
}

// FreeSeqID returns prefix, prefix-2, prefix-3... whichever is unused
// first
func (p *Project) FreeSeqID(prefix string) string {
	if _, taken := p.Sequences[prefix]; !taken {
		return prefix
	}
	for i := 2; ; i++ {
		id := fmt.Sprintf("%s-%d", prefix, i)
		if _, taken := p.Sequences[id]; !taken {
			return id
		}
	}
}

// Validate checks the cross-entity invariants: container members and
// index entries resolve to live sequences, and the lineage graph is
// sound
func (p *Project) Validate() []string {
	var violations []string

	ids := make([]string, 0, len(p.Containers))
	for id := range p.Containers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, m := range p.Containers[id].Members {
			if _, ok := p.Sequences[m.SeqID]; !ok {
				violations = append(violations, fmt.Sprintf("container %s references missing sequence %s", id, m.SeqID))
			}
			if m.Multiplicity < 1 {
				violations = append(violations, fmt.Sprintf("container %s holds %s with multiplicity %d", id, m.SeqID, m.Multiplicity))
			}
		}
	}

	for seqID, containerID := range p.SeqToContainer {
		if _, ok := p.Containers[containerID]; !ok {
			violations = append(violations, fmt.Sprintf("sequence %s indexes missing container %s", seqID, containerID))
		}
	}

	return append(violations, p.Lineage.Validate()...)
}
