package engine

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jjtimmons/cloneops/internal/candidate"
	"github.com/jjtimmons/cloneops/internal/enzyme"
	"github.com/jjtimmons/cloneops/internal/seq"
	"github.com/jjtimmons/cloneops/internal/state"
)

// ProgressFunc is the cooperative cancellation callback: it is called
// at coarse steps of long operations and returning false asks the
// operation to stop. Cancellation never leaves a partial commit
type ProgressFunc func(done, total int) bool

// Executor applies one operation at a time against a project. It is
// stateless between calls beyond the project threaded through Apply
type Executor struct {
	// Enzymes backs Digest and site constraints
	Enzymes *enzyme.DB

	// MaxFragments caps fragment output per digestion; 0 uses the
	// transform default
	MaxFragments int

	// MaxCandidates caps candidate generation; 0 uses the candidate
	// default
	MaxCandidates int

	// Progress, when set, is handed to long-running operations
	Progress ProgressFunc
}

// applyCtx is everything one apply call carries through a variant
type applyCtx struct {
	project  *state.Project
	exec     *Executor
	opID     string
	result   *OpResult
	progress ProgressFunc
}

// Apply validates and runs one operation. On success the project has
// been committed and the result describes what changed; on failure the
// project is untouched and the error is a structured *Error
func (e *Executor) Apply(p *state.Project, op Operation) (*OpResult, error) {
	v := op.Variant()
	if v == nil {
		return nil, Errorf(InvalidInput, "empty operation")
	}

	a := &applyCtx{
		project:  p,
		exec:     e,
		opID:     "op-" + uuid.NewString(),
		progress: e.Progress,
	}
	a.result = &OpResult{OpID: a.opID}

	if err := v.apply(a); err != nil {
		return nil, AsError(err, InvalidInput)
	}
	return a.result, nil
}

// warnf attaches a non-fatal warning to the in-flight result
func (a *applyCtx) warnf(format string, args ...interface{}) {
	a.result.Warnings = append(a.result.Warnings, fmt.Sprintf(format, args...))
}

// logf attaches an informational message to the in-flight result
func (a *applyCtx) logf(format string, args ...interface{}) {
	a.result.Messages = append(a.result.Messages, fmt.Sprintf(format, args...))
}

// commitSequences registers freshly built sequences under prefix-i
// names (or the single explicit id), groups them into one container
// and appends a lineage node per sequence. parentsOf gives each new
// sequence's parent sequence ids for multi-parent edges
func (a *applyCtx) commitSequences(products []*seq.Sequence, ids []string, kind state.ContainerKind, parentsOf func(i int) []string) error {
	if len(products) != len(ids) {
		return Errorf(Internal, "%d products but %d ids", len(products), len(ids))
	}

	var members []state.Member
	for i, product := range products {
		product.ID = ids[i]
		if err := a.project.AddSequence(product); err != nil {
			return Errorf(Internal, "%v", err)
		}
		a.project.Lineage.Record(product.ID, a.opID, parentsOf(i))
		a.result.CreatedSeqIDs = append(a.result.CreatedSeqIDs, product.ID)
		members = append(members, state.Member{SeqID: product.ID, Multiplicity: 1})
	}

	if len(members) > 0 {
		if _, err := a.project.NewContainer(kind, members); err != nil {
			return Errorf(Internal, "%v", err)
		}
	}
	return nil
}

// prefixIDs builds prefix-1..n output ids, all guaranteed free
func (a *applyCtx) prefixIDs(prefix string, n int) []string {
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = a.project.FreeSeqID(fmt.Sprintf("%s-%d", prefix, i+1))
	}
	return ids
}

// commitCandidateSet stores a new named set, warning when it replaces
// an existing one, and records the set transition in lineage
func (a *applyCtx) commitCandidateSet(set *candidate.Set, inputSets ...string) {
	if _, exists := a.project.Candidates[set.Name]; exists {
		a.warnf("replaced candidate set %q", set.Name)
	}
	a.project.Candidates[set.Name] = set

	// candidate sets get provenance too, namespaced beside sequences
	parents := make([]string, 0, len(inputSets))
	for _, name := range inputSets {
		parents = append(parents, "set:"+name)
	}
	a.project.Lineage.Record("set:"+set.Name, a.opID, parents)
	a.result.ChangedSets = append(a.result.ChangedSets, set.Name)
	a.logf("%d candidates in set %q", len(set.Candidates), set.Name)
}

// setSeq resolves the single sequence a candidate set addresses
func (a *applyCtx) setSeq(set *candidate.Set) (*seq.Sequence, error) {
	if len(set.Candidates) == 0 {
		return &seq.Sequence{}, nil
	}
	seqID := set.Candidates[0].SeqID
	for _, c := range set.Candidates {
		if c.SeqID != seqID {
			return nil, Errorf(Unsupported, "set %q spans multiple sequences", set.Name)
		}
	}
	s, err := a.project.Seq(seqID)
	if err != nil {
		return nil, AsError(err, NotFound)
	}
	return s, nil
}

// resolveInputs looks up every input id, failing with NotFound on the
// first unknown one
func (a *applyCtx) resolveInputs(ids []string) ([]*seq.Sequence, error) {
	if len(ids) == 0 {
		return nil, Errorf(InvalidInput, "no inputs given")
	}
	inputs := make([]*seq.Sequence, len(ids))
	for i, id := range ids {
		s, err := a.project.Seq(id)
		if err != nil {
			return nil, AsError(err, NotFound)
		}
		inputs[i] = s
	}
	return inputs, nil
}

// sortedCopy returns a sorted copy of ids for deterministic results
func sortedCopy(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}
