// Package engine dispatches tagged operations against a project,
// producing structured results or structured errors and keeping the
// container and lineage records current.
package engine

import (
	"encoding/json"
	"fmt"

	"github.com/jjtimmons/cloneops/internal/candidate"
	"github.com/jjtimmons/cloneops/internal/seq"
	"github.com/jjtimmons/cloneops/internal/transform"
)

// Variant is one concrete operation. The interface is sealed: every
// variant lives in this package and implements apply, so forgetting a
// handler for a new variant is a compile failure, not a runtime
// default case
type Variant interface {
	opName() string
	apply(a *applyCtx) error
}

// Operation is the JSON envelope around a variant: a single-key
// object, e.g. {"Digest":{"inputs":["p1"],"enzymes":["BamHI"]}}
type Operation struct {
	v Variant
}

// NewOperation wraps a variant
func NewOperation(v Variant) Operation {
	return Operation{v: v}
}

// Variant unwraps the envelope
func (o Operation) Variant() Variant {
	return o.v
}

// Name is the envelope tag of the wrapped variant
func (o Operation) Name() string {
	if o.v == nil {
		return ""
	}
	return o.v.opName()
}

// MarshalJSON writes the single-key envelope form
func (o Operation) MarshalJSON() ([]byte, error) {
	if o.v == nil {
		return nil, fmt.Errorf("empty operation")
	}
	return json.Marshal(map[string]Variant{o.v.opName(): o.v})
}

// UnmarshalJSON reads the single-key envelope form
func (o *Operation) UnmarshalJSON(data []byte) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	if len(envelope) != 1 {
		return fmt.Errorf("operation envelope must have exactly one key, got %d", len(envelope))
	}
	for tag, raw := range envelope {
		build, ok := variants[tag]
		if !ok {
			return fmt.Errorf("unknown operation %q", tag)
		}
		v := build()
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("decoding %s: %v", tag, err)
		}
		o.v = v
	}
	return nil
}

// variants maps envelope tags to variant constructors
var variants = map[string]func() Variant{
	"Digest":                           func() Variant { return &Digest{} },
	"Ligation":                         func() Variant { return &Ligation{} },
	"Pcr":                              func() Variant { return &Pcr{} },
	"PcrAdvanced":                      func() Variant { return &PcrAdvanced{} },
	"PcrMutagenesis":                   func() Variant { return &PcrMutagenesis{} },
	"ExtractRegion":                    func() Variant { return &ExtractRegion{} },
	"ExtractAnchoredRegion":            func() Variant { return &ExtractAnchoredRegion{} },
	"FilterByMolecularWeight":          func() Variant { return &FilterByMolecularWeight{} },
	"GenerateCandidates":               func() Variant { return &GenerateCandidates{} },
	"GenerateCandidatesBetweenAnchors": func() Variant { return &GenerateCandidatesBetweenAnchors{} },
	"ScoreCandidates":                  func() Variant { return &ScoreCandidates{} },
	"ScoreCandidateDistance":           func() Variant { return &ScoreCandidateDistance{} },
	"ScoreWeighted":                    func() Variant { return &ScoreWeighted{} },
	"TopK":                             func() Variant { return &TopK{} },
	"Pareto":                           func() Variant { return &Pareto{} },
	"FilterCandidates":                 func() Variant { return &FilterCandidates{} },
	"CandidateSetOp":                   func() Variant { return &CandidateSetOp{} },
	"SetDisplayVisibility":             func() Variant { return &SetDisplayVisibility{} },
}

// OpResult is what a committed operation reports back
type OpResult struct {
	OpID          string   `json:"op_id"`
	CreatedSeqIDs []string `json:"created_seq_ids"`
	ChangedSeqIDs []string `json:"changed_seq_ids"`
	ChangedSets   []string `json:"changed_sets"`
	Warnings      []string `json:"warnings"`
	Messages      []string `json:"messages"`
}

// Digest cuts sequences with restriction enzymes, emitting a pool of
// fragments named output_prefix-1..n
type Digest struct {
	Inputs       []string `json:"inputs"`
	Enzymes      []string `json:"enzymes"`
	OutputPrefix string   `json:"output_prefix"`
}

func (*Digest) opName() string { return "Digest" }

// Ligation joins fragment termini under a protocol
type Ligation struct {
	Inputs                []string           `json:"inputs"`
	Protocol              transform.Protocol `json:"protocol"`
	CircularizeIfPossible bool               `json:"circularize_if_possible"`
	Unique                bool               `json:"unique"`
	OutputPrefix          string             `json:"output_prefix"`
}

func (*Ligation) opName() string { return "Ligation" }

// Pcr amplifies a linear template with exact-match primers
type Pcr struct {
	Input        string `json:"input"`
	Forward      string `json:"forward"`
	Reverse      string `json:"reverse"`
	OutputPrefix string `json:"output_prefix"`
}

func (*Pcr) opName() string { return "Pcr" }

// PcrAdvanced amplifies with mismatch-tolerant, possibly degenerate
// primers carrying optional 5' tails
type PcrAdvanced struct {
	Input        string                `json:"input"`
	Forward      transform.Primer      `json:"forward"`
	Reverse      transform.Primer      `json:"reverse"`
	LibraryMode  transform.LibraryMode `json:"library_mode"`
	MaxVariants  int                   `json:"max_variants,omitempty"`
	SampleSeed   int64                 `json:"sample_seed,omitempty"`
	OutputPrefix string                `json:"output_prefix"`
}

func (*PcrAdvanced) opName() string { return "PcrAdvanced" }

// PcrMutagenesis keeps only amplicons introducing the requested SNPs
type PcrMutagenesis struct {
	Input               string                `json:"input"`
	Forward             transform.Primer      `json:"forward"`
	Reverse             transform.Primer      `json:"reverse"`
	Mutations           []transform.Mutation  `json:"mutations"`
	RequireAllMutations *bool                 `json:"require_all_mutations,omitempty"`
	LibraryMode         transform.LibraryMode `json:"library_mode"`
	MaxVariants         int                   `json:"max_variants,omitempty"`
	SampleSeed          int64                 `json:"sample_seed,omitempty"`
	OutputPrefix        string                `json:"output_prefix"`
}

func (*PcrMutagenesis) opName() string { return "PcrMutagenesis" }

// ExtractRegion copies a half-open region into a new sequence
type ExtractRegion struct {
	Input    string `json:"input"`
	From     int    `json:"from"`
	To       int    `json:"to"`
	OutputID string `json:"output_id"`
}

func (*ExtractRegion) opName() string { return "ExtractRegion" }

// ExtractAnchoredRegion extracts around a resolved anchor subject to
// length tolerance and hard site/motif constraints
type ExtractAnchoredRegion struct {
	Input          string     `json:"input"`
	Anchor         seq.Anchor `json:"anchor"`
	Upstream       bool       `json:"upstream"`
	TargetLen      int        `json:"target_len"`
	Tolerance      int        `json:"tolerance"`
	RequiredSites  []string   `json:"required_sites,omitempty"`
	RequiredMotifs []string   `json:"required_motifs,omitempty"`
	Unique         bool       `json:"unique"`
	OutputPrefix   string     `json:"output_prefix"`
}

func (*ExtractAnchoredRegion) opName() string { return "ExtractAnchoredRegion" }

// FilterByMolecularWeight selects inputs whose length falls in the
// error-expanded [min_bp,max_bp] range
type FilterByMolecularWeight struct {
	Inputs []string `json:"inputs"`
	MinBp  int      `json:"min_bp"`
	MaxBp  int      `json:"max_bp"`
	Error  float64  `json:"error"`
	Unique bool     `json:"unique"`
}

func (*FilterByMolecularWeight) opName() string { return "FilterByMolecularWeight" }

// GenerateCandidates emits fixed-length windows over a sequence range
type GenerateCandidates struct {
	Input       string `json:"input"`
	From        int    `json:"from"`
	To          int    `json:"to,omitempty"` // 0 means the sequence end
	Length      int    `json:"length"`
	Step        int    `json:"step,omitempty"`
	BothStrands bool   `json:"both_strands,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	OutputSet   string `json:"output_set"`
}

func (*GenerateCandidates) opName() string { return "GenerateCandidates" }

// GenerateCandidatesBetweenAnchors emits windows strictly between two
// resolved anchors
type GenerateCandidatesBetweenAnchors struct {
	Input       string     `json:"input"`
	First       seq.Anchor `json:"first"`
	Second      seq.Anchor `json:"second"`
	Length      int        `json:"length"`
	Step        int        `json:"step,omitempty"`
	BothStrands bool       `json:"both_strands,omitempty"`
	Limit       int        `json:"limit,omitempty"`
	OutputSet   string     `json:"output_set"`
}

func (*GenerateCandidatesBetweenAnchors) opName() string { return "GenerateCandidatesBetweenAnchors" }

// ScoreCandidates attaches an expression-computed metric
type ScoreCandidates struct {
	Set        string `json:"set"`
	Metric     string `json:"metric"`
	Expression string `json:"expression"`
	OutputSet  string `json:"output_set"`
}

func (*ScoreCandidates) opName() string { return "ScoreCandidates" }

// ScoreCandidateDistance attaches a nearest-feature distance metric
type ScoreCandidateDistance struct {
	Set            string                   `json:"set"`
	Metric         string                   `json:"metric"`
	FeatureKind    string                   `json:"feature_kind"`
	Geometry       candidate.GeometryMode   `json:"feature_geometry_mode"`
	Boundary       candidate.BoundaryMode   `json:"feature_boundary_mode,omitempty"`
	StrandRelation candidate.StrandRelation `json:"strand_relation,omitempty"`
	Absolute       bool                     `json:"absolute,omitempty"`
	OutputSet      string                   `json:"output_set"`
}

func (*ScoreCandidateDistance) opName() string { return "ScoreCandidateDistance" }

// ScoreWeighted combines metrics into one weighted score
type ScoreWeighted struct {
	Set       string                   `json:"set"`
	Terms     []candidate.WeightedTerm `json:"terms"`
	Normalize bool                     `json:"normalize,omitempty"`
	Metric    string                   `json:"metric"`
	OutputSet string                   `json:"output_set"`
}

func (*ScoreWeighted) opName() string { return "ScoreWeighted" }

// TopK selects the best k candidates by one metric
type TopK struct {
	Set       string              `json:"set"`
	Metric    string              `json:"metric"`
	Direction candidate.Direction `json:"direction"`
	K         int                 `json:"k"`
	OutputSet string              `json:"output_set"`
}

func (*TopK) opName() string { return "TopK" }

// Pareto keeps the non-dominated frontier over multiple objectives
type Pareto struct {
	Set        string                `json:"set"`
	Objectives []candidate.Objective `json:"objectives"`
	OutputSet  string                `json:"output_set"`
}

func (*Pareto) opName() string { return "Pareto" }

// FilterCandidates keeps candidates within metric bounds
type FilterCandidates struct {
	Set       string                 `json:"set"`
	Metric    string                 `json:"metric"`
	Bounds    candidate.FilterBounds `json:"bounds"`
	OutputSet string                 `json:"output_set"`
}

func (*FilterCandidates) opName() string { return "FilterCandidates" }

// CandidateSetOp is identity-based set algebra over two sets
type CandidateSetOp struct {
	Kind      candidate.SetOpKind `json:"kind"`
	A         string              `json:"a"`
	B         string              `json:"b"`
	OutputSet string              `json:"output_set"`
}

func (*CandidateSetOp) opName() string { return "CandidateSetOp" }

// SetDisplayVisibility toggles a display flag. Display-only: it never
// touches lineage or containers
type SetDisplayVisibility struct {
	Target  string `json:"target"`
	Visible bool   `json:"visible"`
}

func (*SetDisplayVisibility) opName() string { return "SetDisplayVisibility" }
