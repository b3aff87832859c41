package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jjtimmons/cloneops/config"
	"github.com/jjtimmons/cloneops/internal/enzyme"
)

// enzymesCmd is for listing out all the available enzymes usable for
// digesting a sequence. Useful for if the user doesn't know which
// enzymes are available
var enzymesCmd = &cobra.Command{
	Use:   "enzymes",
	Short: "List enzymes available for digestion",
	Run:   listEnzymes,
	Long: `Lists out all the recognized enzymes by name along with their
recognition sequence.

	<Name>: <Recognition sequence>

'^' marks the top strand cut and '_' the bottom strand cut.`,
}

// enzymesSetCmd adds or updates an enzyme in the db file
var enzymesSetCmd = &cobra.Command{
	Use:                        "set [name] [recognition-sequence]",
	Short:                      "Add an enzyme to the enzyme database",
	Run:                        setEnzyme,
	SuggestionsMinimumDistance: 2,
	Aliases:                    []string{"add", "update"},
	Example:                    "  cloneops enzymes set BajI \"G^GATC_C\" --enzymes custom.tsv",
	Long: `Create/update an enzyme with its name and recognition site. The
recognition site must mark the top strand cut with '^' and the bottom
strand cut with '_'. Requires --enzymes, the db file to update.`,
}

// enzymesDeleteCmd removes an enzyme from the db file
var enzymesDeleteCmd = &cobra.Command{
	Use:                        "delete [name]",
	Short:                      "Delete an enzyme from the enzyme database",
	Run:                        deleteEnzyme,
	SuggestionsMinimumDistance: 2,
	Aliases:                    []string{"rm", "remove"},
	Example:                    "  cloneops enzymes delete BajI --enzymes custom.tsv",
	Long: `Delete an enzyme by name from the db file given by --enzymes.
If no such enzyme exists there, an error is logged to stderr.`,
}

// set flags
func init() {
	enzymesCmd.AddCommand(enzymesSetCmd)
	enzymesCmd.AddCommand(enzymesDeleteCmd)

	rootCmd.AddCommand(enzymesCmd)
}

func listEnzymes(cmd *cobra.Command, args []string) {
	db, err := enzyme.NewDB(config.New().Enzymes)
	if err != nil {
		stderr.Fatalf("failed to read enzyme db: %v", err)
	}
	for _, name := range db.Names() {
		recog, _ := db.Recog(name)
		fmt.Printf("%s: %s\n", name, recog)
	}
}

func setEnzyme(cmd *cobra.Command, args []string) {
	if len(args) < 2 {
		stderr.Fatalf("expecting a name and a recognition sequence, see 'cloneops enzymes set --help'")
	}

	c := config.New()
	db, err := enzyme.NewDB(c.Enzymes)
	if err != nil {
		stderr.Fatalf("failed to read enzyme db: %v", err)
	}
	if err := db.Set(args[0], args[1]); err != nil {
		stderr.Fatalf("failed to set enzyme: %v", err)
	}
	writeEnzymes(c, db)
}

func deleteEnzyme(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		stderr.Fatalf("expecting an enzyme name, see 'cloneops enzymes delete --help'")
	}

	c := config.New()
	db, err := enzyme.NewDB(c.Enzymes)
	if err != nil {
		stderr.Fatalf("failed to read enzyme db: %v", err)
	}
	if !db.Delete(args[0]) {
		stderr.Fatalf("no enzyme named %q", args[0])
	}
	writeEnzymes(c, db)
}

// writeEnzymes saves the whole db, builtins included, back to the
// --enzymes file as tab separated name/recognition rows
func writeEnzymes(c config.Config, db *enzyme.DB) {
	if c.Enzymes == "" {
		stderr.Fatalf("pass --enzymes, the db file to update")
	}

	var rows []string
	for _, name := range db.Names() {
		recog, _ := db.Recog(name)
		rows = append(rows, name+"\t"+recog)
	}
	if err := os.WriteFile(c.Enzymes, []byte(strings.Join(rows, "\n")+"\n"), 0644); err != nil {
		stderr.Fatalf("failed to write enzyme db: %v", err)
	}
}
