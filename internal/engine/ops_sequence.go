package engine

import (
	"github.com/jjtimmons/cloneops/internal/enzyme"
	"github.com/jjtimmons/cloneops/internal/seq"
	"github.com/jjtimmons/cloneops/internal/state"
	"github.com/jjtimmons/cloneops/internal/transform"
)

func (op *Digest) apply(a *applyCtx) error {
	if op.OutputPrefix == "" {
		return Errorf(InvalidInput, "output_prefix is required")
	}
	inputs, err := a.resolveInputs(op.Inputs)
	if err != nil {
		return err
	}
	enzymes, err := a.lookupEnzymes(op.Enzymes)
	if err != nil {
		return err
	}

	frags, warnings, err := transform.Digest(inputs, enzymes, a.exec.MaxFragments)
	if err != nil {
		return AsError(err, InvalidInput)
	}
	for _, w := range warnings {
		a.warnf("%s", w)
	}

	ids := a.prefixIDs(op.OutputPrefix, len(frags))
	if err := a.commitSequences(frags, ids, state.Pool, func(i int) []string {
		return []string{fragmentParent(inputs, enzymes, i)}
	}); err != nil {
		return err
	}
	a.logf("digested %d input(s) into %d fragment(s)", len(inputs), len(frags))
	return nil
}

func (op *Ligation) apply(a *applyCtx) error {
	if op.OutputPrefix == "" {
		return Errorf(InvalidInput, "output_prefix is required")
	}
	inputs, err := a.resolveInputs(op.Inputs)
	if err != nil {
		return err
	}

	products, err := transform.Ligate(inputs, op.Protocol, op.CircularizeIfPossible)
	if err != nil {
		return AsError(err, InvalidInput)
	}
	if op.Unique && len(products) != 1 {
		return Errorf(InvalidInput, "ambiguous or no product: %d compatible products", len(products))
	}
	if len(products) == 0 {
		return Errorf(InvalidInput, "no compatible ends among %d input(s)", len(inputs))
	}

	seqs := make([]*seq.Sequence, len(products))
	for i, product := range products {
		seqs[i] = product.Seq
	}
	ids := a.prefixIDs(op.OutputPrefix, len(seqs))
	if err := a.commitSequences(seqs, ids, state.Pool, func(i int) []string {
		return products[i].Inputs
	}); err != nil {
		return err
	}
	a.logf("ligation produced %d product(s)", len(products))
	return nil
}

func (op *Pcr) apply(a *applyCtx) error {
	if op.OutputPrefix == "" {
		return Errorf(InvalidInput, "output_prefix is required")
	}
	template, err := a.project.Seq(op.Input)
	if err != nil {
		return AsError(err, NotFound)
	}

	amplicons, err := transform.Pcr(template, op.Forward, op.Reverse)
	if err != nil {
		return AsError(err, InvalidInput)
	}
	if len(amplicons) == 0 {
		return Errorf(InvalidInput, "no amplicons: primers do not bind %s", op.Input)
	}

	return a.commitAmplicons(template, amplicons, op.OutputPrefix)
}

func (op *PcrAdvanced) apply(a *applyCtx) error {
	if op.OutputPrefix == "" {
		return Errorf(InvalidInput, "output_prefix is required")
	}
	template, err := a.project.Seq(op.Input)
	if err != nil {
		return AsError(err, NotFound)
	}

	amplicons, cancelled, err := transform.PcrAdvanced(template, op.Forward, op.Reverse, transform.PcrOptions{
		LibraryMode: op.LibraryMode,
		MaxVariants: op.MaxVariants,
		SampleSeed:  op.SampleSeed,
		Progress:    a.progress,
	})
	if err != nil {
		return AsError(err, InvalidInput)
	}
	if cancelled {
		return Errorf(InvalidInput, "cancelled before any amplicon was committed")
	}
	if len(amplicons) == 0 {
		return Errorf(InvalidInput, "no amplicons: primers do not bind %s", op.Input)
	}

	return a.commitAmplicons(template, amplicons, op.OutputPrefix)
}

func (op *PcrMutagenesis) apply(a *applyCtx) error {
	if op.OutputPrefix == "" {
		return Errorf(InvalidInput, "output_prefix is required")
	}
	template, err := a.project.Seq(op.Input)
	if err != nil {
		return AsError(err, NotFound)
	}

	requireAll := true
	if op.RequireAllMutations != nil {
		requireAll = *op.RequireAllMutations
	}

	amplicons, cancelled, err := transform.PcrMutagenesis(template, op.Forward, op.Reverse, op.Mutations, requireAll, transform.PcrOptions{
		LibraryMode: op.LibraryMode,
		MaxVariants: op.MaxVariants,
		SampleSeed:  op.SampleSeed,
		Progress:    a.progress,
	})
	if err != nil {
		return AsError(err, InvalidInput)
	}
	if cancelled {
		return Errorf(InvalidInput, "cancelled before any amplicon was committed")
	}
	if len(amplicons) == 0 {
		return Errorf(InvalidInput, "no amplicon introduces the requested mutation(s)")
	}

	return a.commitAmplicons(template, amplicons, op.OutputPrefix)
}

// commitAmplicons registers PCR products as new linear sequences
func (a *applyCtx) commitAmplicons(template *seq.Sequence, amplicons []transform.Amplicon, prefix string) error {
	seqs := make([]*seq.Sequence, len(amplicons))
	for i, amp := range amplicons {
		seqs[i] = &seq.Sequence{
			Bases:    amp.Bases,
			Topology: seq.Linear,
			Strand:   template.Strand,
		}
	}
	ids := a.prefixIDs(prefix, len(seqs))
	if err := a.commitSequences(seqs, ids, state.Pool, func(i int) []string {
		return []string{template.ID}
	}); err != nil {
		return err
	}
	a.logf("%d amplicon(s) from %s", len(amplicons), template.ID)
	return nil
}

func (op *ExtractRegion) apply(a *applyCtx) error {
	if op.OutputID == "" {
		return Errorf(InvalidInput, "output_id is required")
	}
	input, err := a.project.Seq(op.Input)
	if err != nil {
		return AsError(err, NotFound)
	}
	if _, taken := a.project.Sequences[op.OutputID]; taken {
		return Errorf(InvalidInput, "output id %q is already taken", op.OutputID)
	}

	extracted, err := transform.ExtractRegion(input, op.From, op.To)
	if err != nil {
		return AsError(err, InvalidInput)
	}

	if err := a.commitSequences([]*seq.Sequence{extracted}, []string{op.OutputID}, state.Singleton, func(int) []string {
		return []string{input.ID}
	}); err != nil {
		return err
	}
	a.logf("extracted %s[%d:%d] into %s", input.ID, op.From, op.To, op.OutputID)
	return nil
}

func (op *ExtractAnchoredRegion) apply(a *applyCtx) error {
	if op.OutputPrefix == "" {
		return Errorf(InvalidInput, "output_prefix is required")
	}
	input, err := a.project.Seq(op.Input)
	if err != nil {
		return AsError(err, NotFound)
	}
	sites, err := a.lookupEnzymes(op.RequiredSites)
	if err != nil {
		return err
	}

	regions, err := transform.ExtractAnchoredRegion(input, op.Anchor, op.Upstream, op.TargetLen, op.Tolerance, transform.RegionConstraints{
		RequiredSites:  sites,
		RequiredMotifs: op.RequiredMotifs,
	})
	if err != nil {
		return AsError(err, InvalidInput)
	}
	if op.Unique && len(regions) != 1 {
		return Errorf(InvalidInput, "ambiguous or no region: %d candidates qualify", len(regions))
	}
	if len(regions) == 0 {
		return Errorf(InvalidInput, "no region satisfies the constraints")
	}

	seqs := make([]*seq.Sequence, len(regions))
	for i, r := range regions {
		seqs[i] = r.Seq
	}
	ids := a.prefixIDs(op.OutputPrefix, len(seqs))
	if err := a.commitSequences(seqs, ids, state.Pool, func(int) []string {
		return []string{input.ID}
	}); err != nil {
		return err
	}
	a.logf("%d region(s) anchored off %s", len(regions), input.ID)
	return nil
}

func (op *FilterByMolecularWeight) apply(a *applyCtx) error {
	inputs, err := a.resolveInputs(op.Inputs)
	if err != nil {
		return err
	}

	kept, err := transform.FilterByWeight(inputs, op.MinBp, op.MaxBp, op.Error)
	if err != nil {
		return AsError(err, InvalidInput)
	}
	if op.Unique && len(kept) != 1 {
		return Errorf(InvalidInput, "expected exactly one sequence in range, got %d", len(kept))
	}

	// survivors move into a selection container; the molecules are
	// unchanged so each gets a fresh lineage node off its prior one
	var members []state.Member
	for _, s := range kept {
		members = append(members, state.Member{SeqID: s.ID, Multiplicity: 1})
		a.project.Lineage.Record(s.ID, a.opID, []string{s.ID})
		a.result.ChangedSeqIDs = append(a.result.ChangedSeqIDs, s.ID)
	}
	if len(members) > 0 {
		if _, err := a.project.NewContainer(state.Selection, members); err != nil {
			return Errorf(Internal, "%v", err)
		}
	}

	lo, hi := transform.EffectiveWeightBounds(op.MinBp, op.MaxBp, op.Error)
	a.logf("%d of %d sequence(s) within [%d,%d] bp", len(kept), len(inputs), lo, hi)
	return nil
}

func (op *SetDisplayVisibility) apply(a *applyCtx) error {
	if op.Target == "" {
		return Errorf(InvalidInput, "target is required")
	}
	// display-only: no lineage, no containers
	a.project.Display[op.Target] = op.Visible
	a.logf("display %s = %v", op.Target, op.Visible)
	return nil
}

// lookupEnzymes resolves enzyme names against the executor's db
func (a *applyCtx) lookupEnzymes(names []string) ([]enzyme.Enzyme, error) {
	if a.exec.Enzymes == nil && len(names) > 0 {
		return nil, Errorf(Internal, "no enzyme db configured")
	}
	enzymes := make([]enzyme.Enzyme, 0, len(names))
	for _, name := range names {
		enz, err := a.exec.Enzymes.Get(name)
		if err != nil {
			return nil, Errorf(NotFound, "%v", err)
		}
		enzymes = append(enzymes, enz)
	}
	return enzymes, nil
}

// fragmentParent maps the i'th emitted fragment back to the input it
// came from, mirroring Digest's per-input emission order
func fragmentParent(inputs []*seq.Sequence, enzymes []enzyme.Enzyme, i int) string {
	offset := 0
	for _, in := range inputs {
		count := transform.FragmentCount(in, enzymes)
		if i < offset+count {
			return in.ID
		}
		offset += count
	}
	return inputs[len(inputs)-1].ID
}
