package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jjtimmons/cloneops/config"
	"github.com/jjtimmons/cloneops/internal/engine"
)

// applyCmd applies one operation, passed as JSON, against the project
var applyCmd = &cobra.Command{
	Use:                        "apply [operation-json]",
	Short:                      "Apply one operation to the project",
	Run:                        runApply,
	SuggestionsMinimumDistance: 2,
	Long: `Apply a single operation against the project and save the result.
The operation is a JSON object with one key naming the variant, eg:

  {"Digest":{"inputs":["pGEX-3X"],"enzymes":["BamHI","EcoRI"],"output_prefix":"frag"}}

On success the op result (created ids, warnings, messages) prints to stdout.`,
	Example: `  cloneops apply '{"ExtractRegion":{"input":"puc19","from":100,"to":900,"output_id":"mcs"}}'`,
}

// set flags
func init() {
	applyCmd.Flags().StringP("in", "i", "", "file holding the operation JSON (instead of an argument)")

	rootCmd.AddCommand(applyCmd)
}

// runApply loads the project, applies the op and writes both the
// project and the result
func runApply(cmd *cobra.Command, args []string) {
	data := readOpInput(cmd, args)

	var op engine.Operation
	if err := json.Unmarshal(data, &op); err != nil {
		stderr.Fatalf("failed to parse operation: %v", err)
	}

	c := config.New()
	p := loadProject(c)

	result, err := newExecutor(c).Apply(p, op)
	if err != nil {
		stderr.Fatalf("failed to apply operation: %v", err)
	}
	saveProject(c, p)
	indexSets(c, p, result.ChangedSets)

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

// readOpInput takes the operation JSON from the --in file or the
// first positional argument
func readOpInput(cmd *cobra.Command, args []string) []byte {
	if in, _ := cmd.Flags().GetString("in"); in != "" {
		data, err := os.ReadFile(in)
		if err != nil {
			stderr.Fatalf("failed to read %s: %v", in, err)
		}
		return data
	}
	if len(args) < 1 {
		stderr.Fatalf("no operation passed, see 'cloneops apply --help'")
	}
	return []byte(args[0])
}
