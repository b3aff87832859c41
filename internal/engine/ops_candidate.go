package engine

import (
	"github.com/jjtimmons/cloneops/internal/candidate"
)

func (op *GenerateCandidates) apply(a *applyCtx) error {
	if op.OutputSet == "" {
		return Errorf(InvalidInput, "output_set is required")
	}
	s, err := a.project.Seq(op.Input)
	if err != nil {
		return AsError(err, NotFound)
	}

	to := op.To
	if to == 0 {
		to = len(s.Bases)
	}
	set, cancelled, err := candidate.Generate(s, op.From, to, candidate.GenerateOptions{
		Length:      op.Length,
		Step:        op.Step,
		BothStrands: op.BothStrands,
		Limit:       a.candidateLimit(op.Limit),
		Progress:    a.progress,
	}, op.OutputSet)
	if err != nil {
		return AsError(err, InvalidInput)
	}
	if cancelled {
		a.warnf("generation cancelled, set %q is partial", op.OutputSet)
	}
	a.commitCandidateSet(set)
	return nil
}

func (op *GenerateCandidatesBetweenAnchors) apply(a *applyCtx) error {
	if op.OutputSet == "" {
		return Errorf(InvalidInput, "output_set is required")
	}
	s, err := a.project.Seq(op.Input)
	if err != nil {
		return AsError(err, NotFound)
	}

	set, cancelled, err := candidate.GenerateBetweenAnchors(s, op.First, op.Second, candidate.GenerateOptions{
		Length:      op.Length,
		Step:        op.Step,
		BothStrands: op.BothStrands,
		Limit:       a.candidateLimit(op.Limit),
		Progress:    a.progress,
	}, op.OutputSet)
	if err != nil {
		return AsError(err, InvalidInput)
	}
	if cancelled {
		a.warnf("generation cancelled, set %q is partial", op.OutputSet)
	}
	a.commitCandidateSet(set)
	return nil
}

func (op *ScoreCandidates) apply(a *applyCtx) error {
	if op.OutputSet == "" {
		return Errorf(InvalidInput, "output_set is required")
	}
	set, err := a.project.CandidateSet(op.Set)
	if err != nil {
		return AsError(err, NotFound)
	}
	s, err := a.setSeq(set)
	if err != nil {
		return err
	}

	scored, cancelled, err := candidate.Score(set, s, op.Metric, op.Expression, op.OutputSet, a.progress)
	if err != nil {
		return AsError(err, InvalidInput)
	}
	if cancelled {
		a.warnf("scoring cancelled, set %q is partial", op.OutputSet)
	}
	a.commitCandidateSet(scored, op.Set)
	return nil
}

func (op *ScoreCandidateDistance) apply(a *applyCtx) error {
	if op.OutputSet == "" {
		return Errorf(InvalidInput, "output_set is required")
	}
	set, err := a.project.CandidateSet(op.Set)
	if err != nil {
		return AsError(err, NotFound)
	}
	s, err := a.setSeq(set)
	if err != nil {
		return err
	}

	scored, skipped, cancelled, err := candidate.ScoreDistance(set, s, op.Metric, candidate.DistanceOptions{
		FeatureKind: op.FeatureKind,
		Geometry:    op.Geometry,
		Boundary:    op.Boundary,
		Strand:      op.StrandRelation,
		Absolute:    op.Absolute,
		Progress:    a.progress,
	}, op.OutputSet)
	if err != nil {
		return AsError(err, InvalidInput)
	}
	if skipped > 0 {
		a.warnf("%d candidates in %q have no eligible %q feature, metric %q not set on them", skipped, op.OutputSet, op.FeatureKind, op.Metric)
	}
	if cancelled {
		a.warnf("scoring cancelled, set %q is partial", op.OutputSet)
	}
	a.commitCandidateSet(scored, op.Set)
	return nil
}

func (op *ScoreWeighted) apply(a *applyCtx) error {
	if op.OutputSet == "" {
		return Errorf(InvalidInput, "output_set is required")
	}
	set, err := a.project.CandidateSet(op.Set)
	if err != nil {
		return AsError(err, NotFound)
	}

	combined, err := candidate.ScoreWeighted(set, op.Terms, op.Normalize, op.Metric, op.OutputSet)
	if err != nil {
		return AsError(err, InvalidInput)
	}
	a.commitCandidateSet(combined, op.Set)
	return nil
}

func (op *TopK) apply(a *applyCtx) error {
	if op.OutputSet == "" {
		return Errorf(InvalidInput, "output_set is required")
	}
	set, err := a.project.CandidateSet(op.Set)
	if err != nil {
		return AsError(err, NotFound)
	}

	best, err := candidate.TopK(set, op.Metric, op.Direction, op.K, op.OutputSet)
	if err != nil {
		return AsError(err, InvalidInput)
	}
	a.commitCandidateSet(best, op.Set)
	return nil
}

func (op *Pareto) apply(a *applyCtx) error {
	if op.OutputSet == "" {
		return Errorf(InvalidInput, "output_set is required")
	}
	set, err := a.project.CandidateSet(op.Set)
	if err != nil {
		return AsError(err, NotFound)
	}

	frontier, err := candidate.Pareto(set, op.Objectives, op.OutputSet)
	if err != nil {
		return AsError(err, InvalidInput)
	}
	a.commitCandidateSet(frontier, op.Set)
	return nil
}

func (op *FilterCandidates) apply(a *applyCtx) error {
	if op.OutputSet == "" {
		return Errorf(InvalidInput, "output_set is required")
	}
	set, err := a.project.CandidateSet(op.Set)
	if err != nil {
		return AsError(err, NotFound)
	}

	kept, err := candidate.Filter(set, op.Metric, op.Bounds, op.OutputSet)
	if err != nil {
		return AsError(err, InvalidInput)
	}
	a.commitCandidateSet(kept, op.Set)
	return nil
}

func (op *CandidateSetOp) apply(a *applyCtx) error {
	if op.OutputSet == "" {
		return Errorf(InvalidInput, "output_set is required")
	}
	setA, err := a.project.CandidateSet(op.A)
	if err != nil {
		return AsError(err, NotFound)
	}
	setB, err := a.project.CandidateSet(op.B)
	if err != nil {
		return AsError(err, NotFound)
	}

	a.commitCandidateSet(op.Kind.Apply(setA, setB, op.OutputSet), op.A, op.B)
	return nil
}

// candidateLimit applies the executor-wide cap when the op leaves its
// own limit unset
func (a *applyCtx) candidateLimit(opLimit int) int {
	if opLimit > 0 {
		return opLimit
	}
	return a.exec.MaxCandidates
}
