// Package enzyme holds the restriction enzyme database and the
// recognition-site scanner used by digestion.
package enzyme

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/jjtimmons/cloneops/internal/seq"
)

// Enzyme is a single restriction enzyme: its recognition sequence and
// the cut offsets parsed from the ^ (top strand) and _ (bottom strand)
// notation, e.g. BamHI is G^GATC_C
type Enzyme struct {
	Name string

	// Recog is the recognition site with ^/_ removed
	Recog string

	// CutInd is the top-strand cut offset within Recog
	CutInd int

	// HangInd is the bottom-strand cut offset within Recog
	HangInd int
}

// New parses a recognition sequence with ^/_ cut markers into an Enzyme
func New(name, recogSeq string) (Enzyme, error) {
	recogSeq = strings.ToUpper(recogSeq)
	if strings.Count(recogSeq, "^") != 1 || strings.Count(recogSeq, "_") != 1 {
		return Enzyme{}, fmt.Errorf("%s: recognition sequence %q needs exactly one ^ and one _", name, recogSeq)
	}

	cutIndex := strings.Index(recogSeq, "^")
	hangIndex := strings.Index(recogSeq, "_")

	// each marker shifts the one after it by a character
	if cutIndex < hangIndex {
		hangIndex--
	} else {
		cutIndex--
	}

	recogSeq = strings.Replace(recogSeq, "^", "", -1)
	recogSeq = strings.Replace(recogSeq, "_", "", -1)

	if invalid := invalidRecogChars.FindString(recogSeq); invalid != "" {
		return Enzyme{}, fmt.Errorf("%s: recognition sequence contains %q", name, invalid)
	}

	return Enzyme{
		Name:    name,
		Recog:   recogSeq,
		CutInd:  cutIndex,
		HangInd: hangIndex,
	}, nil
}

var invalidRecogChars = regexp.MustCompile(`[^ATGCUMRWYSKHDVBNX]`)

// OverhangLen is the length of the single-stranded overhang the
// enzyme leaves: positive for 5' overhangs, negative for 3', zero for
// blunt cutters
func (e Enzyme) OverhangLen() int {
	return e.HangInd - e.CutInd
}

// Site is one recognition site found on a template: where the site
// starts and where the top and bottom strands are severed, all in
// template coordinates
type Site struct {
	Enzyme Enzyme

	// Start of the recognition match on the template strand
	Start int

	// TopCut and BottomCut are absolute cut positions; on circular
	// templates they may exceed the sequence length and wrap
	TopCut    int
	BottomCut int
}

// Sites scans both strands of a sequence for the enzyme's recognition
// site. Circular sequences wrap across the origin; cut positions are
// reported mod sequence length
func (e Enzyme) Sites(s *seq.Sequence) []Site {
	length := len(s.Bases)
	if length == 0 || length < len(e.Recog) {
		return nil
	}

	pattern := regexp.MustCompile(seq.IupacRegex(e.Recog))
	template := strings.ToUpper(s.Bases)

	wrap := 0
	if s.Topology == seq.Circular {
		// extend past the origin so sites spanning it are found
		wrap = len(e.Recog) - 1
		template += template[:min(wrap, length)]
	}

	bySite := map[int]Site{}
	for _, at := range seq.MatchStarts(pattern, template) {
		start := at % length
		bySite[start] = e.siteAt(start, length, false)
	}

	// scan the reverse complement for non-palindromic sites
	rc := seq.RevComp(s.Bases)
	rcTemplate := rc
	if wrap > 0 {
		rcTemplate += rc[:min(wrap, length)]
	}
	for _, at := range seq.MatchStarts(pattern, rcTemplate) {
		// flip the match back onto the template strand
		start := length - (at % length) - len(e.Recog)
		start = ((start % length) + length) % length
		if _, seen := bySite[start]; !seen {
			bySite[start] = e.siteAt(start, length, true)
		}
	}

	sites := make([]Site, 0, len(bySite))
	for _, site := range bySite {
		sites = append(sites, site)
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].Start < sites[j].Start })
	return sites
}

// siteAt builds the Site for a recognition match at start. For matches
// on the reverse strand the cut offsets mirror within the site
func (e Enzyme) siteAt(start, length int, revStrand bool) Site {
	top, bottom := e.CutInd, e.HangInd
	if revStrand {
		top = len(e.Recog) - e.HangInd
		bottom = len(e.Recog) - e.CutInd
	}
	return Site{
		Enzyme:    e,
		Start:     start,
		TopCut:    start + top,
		BottomCut: start + bottom,
	}
}

// DB is the enzyme database: name to recognition sequence
// (still carrying its ^/_ cut markers)
type DB struct {
	enzymes map[string]string
}

// NewDB returns the built-in enzyme db, optionally extended/overridden
// by a tab-separated file of "name<TAB>recognition" lines
func NewDB(path string) (*DB, error) {
	enzymes := make(map[string]string, len(builtins))
	for name, recog := range builtins {
		enzymes[name] = recog
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open enzyme db %s: %v", path, err)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			columns := strings.Split(scanner.Text(), "\t")
			if len(columns) < 2 {
				continue
			}
			enzymes[columns[0]] = columns[1]
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read enzyme db %s: %v", path, err)
		}
	}

	return &DB{enzymes: enzymes}, nil
}

// Get looks an enzyme up by name
func (db *DB) Get(name string) (Enzyme, error) {
	recog, ok := db.enzymes[name]
	if !ok {
		return Enzyme{}, fmt.Errorf("unknown enzyme %q", name)
	}
	return New(name, recog)
}

// Names returns every enzyme name, sorted
func (db *DB) Names() []string {
	names := make([]string, 0, len(db.enzymes))
	for name := range db.enzymes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Recog returns the raw recognition sequence (with cut markers) for a
// name, and whether it exists
func (db *DB) Recog(name string) (string, bool) {
	recog, ok := db.enzymes[name]
	return recog, ok
}

// Set adds or replaces an enzyme in the in-memory db
func (db *DB) Set(name, recog string) error {
	if _, err := New(name, recog); err != nil {
		return err
	}
	db.enzymes[name] = strings.ToUpper(recog)
	return nil
}

// Delete removes an enzyme from the in-memory db, reporting whether it
// was present
func (db *DB) Delete(name string) bool {
	_, ok := db.enzymes[name]
	delete(db.enzymes, name)
	return ok
}

// builtins are the common cloning enzymes bundled with the engine
var builtins = map[string]string{
	"AatII":   "G_ACGT^C",
	"AgeI":    "A^CCGG_T",
	"ApaI":    "G_GGCC^C",
	"AvrII":   "C^CTAG_G",
	"BamHI":   "G^GATC_C",
	"BglII":   "A^GATC_T",
	"BsaI":    "GGTCTCN^NNNN_",
	"ClaI":    "AT^CG_AT",
	"EcoRI":   "G^AATT_C",
	"EcoRV":   "GAT^_ATC",
	"HindIII": "A^AGCT_T",
	"KpnI":    "G_GTAC^C",
	"MfeI":    "C^AATT_G",
	"NcoI":    "C^CATG_G",
	"NdeI":    "CA^TA_TG",
	"NheI":    "G^CTAG_C",
	"NotI":    "GC^GGCC_GC",
	"NsiI":    "A_TGCA^T",
	"PstI":    "C_TGCA^G",
	"PvuII":   "CAG^_CTG",
	"SacI":    "G_AGCT^C",
	"SalI":    "G^TCGA_C",
	"SmaI":    "CCC^_GGG",
	"SpeI":    "A^CTAG_T",
	"SphI":    "G_CATG^C",
	"XbaI":    "T^CTAG_A",
	"XhoI":    "C^TCGA_G",
	"XmaI":    "C^CCGG_G",
}
