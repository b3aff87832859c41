package transform

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/jjtimmons/cloneops/internal/seq"
)

// Primer is an advanced PCR primer spec. The anneal window is the
// 3'-most AnnealLen bases of Sequence; anything 5' of it is a tail
// carried into the amplicon but never matched against the template
type Primer struct {
	Sequence string `json:"sequence"`

	// AnnealLen is how many 3' bases must bind the template;
	// 0 means the whole primer
	AnnealLen int `json:"anneal_len,omitempty"`

	// MaxMismatches allowed within the anneal window, outside the
	// exact 3' clamp
	MaxMismatches int `json:"max_mismatches,omitempty"`

	// Require3PrimeExact is how many 3'-terminal bases must match
	// exactly for a binding site to count
	Require3PrimeExact int `json:"require_3prime_exact_bases,omitempty"`
}

// LibraryMode selects how degenerate (IUPAC) primers are expanded
type LibraryMode int

const (
	// Enumerate expands every variant, bounded by MaxVariants
	Enumerate LibraryMode = iota

	// Sample draws MaxVariants variants deterministically from
	// SampleSeed
	Sample
)

// MarshalText serializes a LibraryMode to its name
func (m LibraryMode) MarshalText() ([]byte, error) {
	if m == Sample {
		return []byte("Sample"), nil
	}
	return []byte("Enumerate"), nil
}

// UnmarshalText parses a LibraryMode from its name
func (m *LibraryMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Enumerate":
		*m = Enumerate
	case "Sample":
		*m = Sample
	default:
		return fmt.Errorf("unknown library mode %q", text)
	}
	return nil
}

// Amplicon is one PCR product: its bases plus where the primers bound
// on the template strand. FwdStart/RevEnd are the anneal window
// boundaries; on circular templates RevEnd may exceed the template
// length when the product spans the origin. FwdTailLen is how many 5'
// tail bases the forward primer prepended; template position p maps to
// amplicon index p-FwdStart+FwdTailLen
type Amplicon struct {
	Bases      string
	FwdStart   int
	RevEnd     int
	FwdTailLen int
}

// Pcr amplifies a template with exact-match primers. The forward
// primer must match the template strand, the reverse primer's reverse
// complement must match downstream of it. Every valid pair is an
// amplicon
func Pcr(template *seq.Sequence, fwd, rev string) ([]Amplicon, error) {
	fwd = strings.ToUpper(fwd)
	rev = strings.ToUpper(rev)
	if fwd == "" || rev == "" {
		return nil, fmt.Errorf("both primers are required")
	}
	if template.Topology == seq.Circular {
		return nil, fmt.Errorf("%s is circular; basic PCR needs a linear template", template.ID)
	}

	bases := strings.ToUpper(template.Bases)
	revSite := seq.RevComp(rev)

	var fwdStarts, revStarts []int
	for i := 0; i+len(fwd) <= len(bases); i++ {
		if bases[i:i+len(fwd)] == fwd {
			fwdStarts = append(fwdStarts, i)
		}
	}
	for i := 0; i+len(revSite) <= len(bases); i++ {
		if bases[i:i+len(revSite)] == revSite {
			revStarts = append(revStarts, i)
		}
	}

	var amplicons []Amplicon
	for _, f := range fwdStarts {
		for _, r := range revStarts {
			end := r + len(revSite)
			if end <= f {
				continue // reverse site must be downstream
			}
			amplicons = append(amplicons, Amplicon{
				Bases:    bases[f:end],
				FwdStart: f,
				RevEnd:   end,
			})
		}
	}
	return amplicons, nil
}

// PcrOptions configure an advanced amplification
type PcrOptions struct {
	LibraryMode LibraryMode

	// MaxVariants bounds degenerate primer expansion; 0 uses
	// DefaultMaxVariants
	MaxVariants int

	// SampleSeed drives Sample mode; the same seed always yields
	// the same variant set
	SampleSeed int64

	// Progress is checked once per primer variant pair; returning
	// false stops the scan, leaving a partial (discarded) result
	Progress func(done, total int) bool
}

// DefaultMaxVariants bounds degenerate primer expansion
const DefaultMaxVariants = 512

// PcrAdvanced amplifies with mismatch-tolerant primers and 5' tails.
// A binding site is valid iff the 3' Require3PrimeExact suffix of the
// anneal window matches exactly and the rest of the window carries at
// most MaxMismatches mismatches. The amplicon is built from the full
// primer sequences, so tail bases 5' of the anneal window are
// inserted into the product. Degenerate primers expand per the
// library mode; the returned amplicons are sorted and deduped so
// equal inputs yield byte-identical results
func PcrAdvanced(template *seq.Sequence, fwd, rev Primer, opts PcrOptions) ([]Amplicon, bool, error) {
	if fwd.Sequence == "" || rev.Sequence == "" {
		return nil, false, fmt.Errorf("both primers are required")
	}

	fwdVariants, err := expandPrimer(fwd.Sequence, opts)
	if err != nil {
		return nil, false, fmt.Errorf("forward primer: %v", err)
	}
	revVariants, err := expandPrimer(rev.Sequence, opts)
	if err != nil {
		return nil, false, fmt.Errorf("reverse primer: %v", err)
	}

	bases := strings.ToUpper(template.Bases)
	searchLen := len(bases)
	if template.Topology == seq.Circular {
		// amplicons may span the origin
		bases += bases
	}

	seen := map[string]bool{}
	var amplicons []Amplicon

	total := len(fwdVariants) * len(revVariants)
	done := 0
	cancelled := false

	for _, fv := range fwdVariants {
		for _, rv := range revVariants {
			if opts.Progress != nil && !opts.Progress(done, total) {
				cancelled = true
				break
			}
			done++

			fwdSites := bindingSites(bases, fv, fwd, false)
			revSites := bindingSites(bases, seq.RevComp(rv), rev, true)

			for _, f := range fwdSites {
				if f.start >= searchLen {
					continue // wrapped duplicate
				}
				for _, r := range revSites {
					// rev window strictly downstream of the fwd window,
					// within one template length
					if r.end-r.matchLen < f.start+f.matchLen || r.end-f.start > searchLen {
						continue
					}
					product := fv + bases[f.start+f.matchLen:r.end-r.matchLen] + seq.RevComp(rv)
					if !seen[product] {
						seen[product] = true
						amplicons = append(amplicons, Amplicon{
							Bases:      product,
							FwdStart:   f.start,
							RevEnd:     r.end,
							FwdTailLen: len(fv) - f.matchLen,
						})
					}
				}
			}
		}
		if cancelled {
			break
		}
	}

	sort.Slice(amplicons, func(i, j int) bool {
		if amplicons[i].FwdStart != amplicons[j].FwdStart {
			return amplicons[i].FwdStart < amplicons[j].FwdStart
		}
		if amplicons[i].RevEnd != amplicons[j].RevEnd {
			return amplicons[i].RevEnd < amplicons[j].RevEnd
		}
		return amplicons[i].Bases < amplicons[j].Bases
	})
	return amplicons, cancelled, nil
}

// site is one primer binding location on the search strand
type site struct {
	start    int // where the anneal window begins on the template
	end      int // one past the anneal window's last base
	matchLen int // anneal window length
}

// bindingSites finds every spot the primer variant's anneal window
// binds the template within the mismatch budget. For reverse primers
// the caller passes the reverse complement and the 3' clamp sits at
// the window's start on the template strand
func bindingSites(bases, variant string, spec Primer, reverse bool) []site {
	annealLen := spec.AnnealLen
	if annealLen <= 0 || annealLen > len(variant) {
		annealLen = len(variant)
	}
	clamp := spec.Require3PrimeExact
	if clamp > annealLen {
		clamp = annealLen
	}

	var window string
	if reverse {
		// variant is already revComp'ed: the primer's 3' end is the
		// window's first base on the template strand
		window = variant[:annealLen]
	} else {
		window = variant[len(variant)-annealLen:]
	}

	var sites []site
	for i := 0; i+annealLen <= len(bases); i++ {
		region := bases[i : i+annealLen]

		if reverse {
			if region[:clamp] != window[:clamp] {
				continue
			}
		} else {
			if region[annealLen-clamp:] != window[annealLen-clamp:] {
				continue
			}
		}

		mismatches := 0
		for k := 0; k < annealLen; k++ {
			if region[k] != window[k] {
				mismatches++
			}
		}
		if mismatches > spec.MaxMismatches {
			continue
		}

		sites = append(sites, site{start: i, end: i + annealLen, matchLen: annealLen})
	}
	return sites
}

// expandPrimer turns a possibly degenerate primer into its concrete
// variants per the library mode. Enumerate fails when the expansion
// exceeds the variant cap; Sample draws deterministically from the
// seed
func expandPrimer(primer string, opts PcrOptions) ([]string, error) {
	primer = strings.ToUpper(primer)
	maxVariants := opts.MaxVariants
	if maxVariants <= 0 {
		maxVariants = DefaultMaxVariants
	}

	count := seq.Expansions(primer)
	if count == 1 {
		return []string{primer}, nil
	}

	if opts.LibraryMode == Sample {
		return samplePrimer(primer, maxVariants, opts.SampleSeed), nil
	}

	if count > maxVariants {
		return nil, fmt.Errorf("%d variants exceed the %d cap; use Sample mode", count, maxVariants)
	}
	return seq.ExpandIupac(primer, 0), nil
}

// samplePrimer draws n distinct variants of a degenerate primer using
// a seeded PRNG. Same seed, same variants, always
func samplePrimer(primer string, n int, seed int64) []string {
	rng := rand.New(rand.NewSource(seed))

	total := seq.Expansions(primer)
	if total <= n {
		return seq.ExpandIupac(primer, 0)
	}

	picked := map[string]bool{}
	variants := make([]string, 0, n)
	for len(variants) < n {
		v := randomVariant(primer, rng)
		if !picked[v] {
			picked[v] = true
			variants = append(variants, v)
		}
	}
	sort.Strings(variants)
	return variants
}

func randomVariant(primer string, rng *rand.Rand) string {
	b := make([]byte, len(primer))
	for i := 0; i < len(primer); i++ {
		choices := seq.ExpandIupac(string(primer[i]), 0)
		b[i] = choices[rng.Intn(len(choices))][0]
	}
	return string(b)
}

// Mutation is one requested single-base change, validated against the
// template before amplification
type Mutation struct {
	// Pos is the zero-based template position
	Pos int `json:"zero_based_position"`

	// Ref is the base currently at Pos
	Ref string `json:"reference"`

	// Alt is the base the amplicon must carry there
	Alt string `json:"alternate"`
}

// PcrMutagenesis runs an advanced amplification and keeps only the
// amplicons that introduce the requested changes: all of them when
// requireAll is set, at least one otherwise. Each mutation's Ref must
// match the template or the request is rejected outright
func PcrMutagenesis(template *seq.Sequence, fwd, rev Primer, mutations []Mutation, requireAll bool, opts PcrOptions) ([]Amplicon, bool, error) {
	if len(mutations) == 0 {
		return nil, false, fmt.Errorf("no mutations requested")
	}

	bases := strings.ToUpper(template.Bases)
	for _, m := range mutations {
		if m.Pos < 0 || m.Pos >= len(bases) {
			return nil, false, fmt.Errorf("mutation position %d outside template (length %d)", m.Pos, len(bases))
		}
		if len(m.Ref) != 1 || len(m.Alt) != 1 {
			return nil, false, fmt.Errorf("mutation at %d: reference and alternate must be single bases", m.Pos)
		}
		if bases[m.Pos] != strings.ToUpper(m.Ref)[0] {
			return nil, false, fmt.Errorf("mutation at %d: template has %c, not %s", m.Pos, bases[m.Pos], m.Ref)
		}
	}

	amplicons, cancelled, err := PcrAdvanced(template, fwd, rev, opts)
	if err != nil {
		return nil, cancelled, err
	}

	var kept []Amplicon
	for _, a := range amplicons {
		introduced := 0
		for _, m := range mutations {
			off := m.Pos - a.FwdStart + a.FwdTailLen
			if off >= 0 && off < len(a.Bases) && a.Bases[off] == strings.ToUpper(m.Alt)[0] {
				introduced++
			}
		}
		if (requireAll && introduced == len(mutations)) || (!requireAll && introduced > 0) {
			kept = append(kept, a)
		}
	}
	return kept, cancelled, nil
}
