// Package workflow sequences operations through the executor, with
// optional all-or-nothing semantics, and expands parameterized macro
// templates into workflows.
package workflow

import (
	"github.com/google/uuid"

	"github.com/jjtimmons/cloneops/internal/engine"
	"github.com/jjtimmons/cloneops/internal/state"
)

// Workflow is an ordered list of operations applied under one run id
type Workflow struct {
	RunID string             `json:"run_id"`
	Ops   []engine.Operation `json:"ops"`
}

// NewWorkflow assigns a run id when the caller does not supply one
func NewWorkflow(runID string, ops []engine.Operation) Workflow {
	if runID == "" {
		runID = "run-" + uuid.NewString()
	}
	return Workflow{RunID: runID, Ops: ops}
}

// Outcome is the per-op record of a non-transactional run
type Outcome struct {
	Result *engine.OpResult `json:"result,omitempty"`
	Err    *engine.Error    `json:"error,omitempty"`
}

// Run applies each op in order against the project. It stops at the
// first failure, leaving the effects of the earlier ops committed,
// and returns one outcome per attempted op. Ops after the failed one
// are never attempted
func Run(p *state.Project, e *engine.Executor, w Workflow) []Outcome {
	var outcomes []Outcome
	for _, op := range w.Ops {
		result, err := e.Apply(p, op)
		if err != nil {
			outcomes = append(outcomes, Outcome{Err: engine.AsError(err, engine.Internal)})
			break
		}
		outcomes = append(outcomes, Outcome{Result: result})
	}
	return outcomes
}

// RunTransactional snapshots the project, applies every op in order
// and restores the snapshot wholesale if any op fails: no partial
// lineage or container mutation survives a rollback
func RunTransactional(p *state.Project, e *engine.Executor, w Workflow) ([]*engine.OpResult, error) {
	snapshot := p.Clone()

	var results []*engine.OpResult
	for i, op := range w.Ops {
		result, err := e.Apply(p, op)
		if err != nil {
			*p = *snapshot
			return nil, engine.Errorf(engine.AsError(err, engine.Internal).Code,
				"op %d of %d: %v", i+1, len(w.Ops), err)
		}
		results = append(results, result)
	}
	return results, nil
}
