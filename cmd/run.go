package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jjtimmons/cloneops/config"
	"github.com/jjtimmons/cloneops/internal/workflow"
)

// runCmd runs a JSON workflow of operations in order
var runCmd = &cobra.Command{
	Use:                        "run [workflow-json-file]",
	Short:                      "Run a workflow of operations against the project",
	Run:                        runWorkflow,
	SuggestionsMinimumDistance: 2,
	Long: `Run a workflow, a JSON file {"run_id":"...","ops":[...]}, against the
project. By default each op commits as it succeeds and the run halts at
the first failure. With --transactional the whole workflow either
commits or the project is left untouched.`,
	Example: "  cloneops run cloning.json --transactional",
}

// set flags
func init() {
	runCmd.Flags().BoolP("transactional", "t", false, "roll back the whole workflow if any op fails")

	rootCmd.AddCommand(runCmd)
}

func runWorkflow(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		stderr.Fatalf("no workflow file passed, see 'cloneops run --help'")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		stderr.Fatalf("failed to read %s: %v", args[0], err)
	}

	var w workflow.Workflow
	if err := json.Unmarshal(data, &w); err != nil {
		stderr.Fatalf("failed to parse workflow: %v", err)
	}
	w = workflow.NewWorkflow(w.RunID, w.Ops)

	c := config.New()
	p := loadProject(c)
	e := newExecutor(c)

	transactional, _ := cmd.Flags().GetBool("transactional")
	if transactional {
		results, err := workflow.RunTransactional(p, e, w)
		if err != nil {
			stderr.Fatalf("workflow %s rolled back: %v", w.RunID, err)
		}
		saveProject(c, p)
		var changed []string
		for _, result := range results {
			changed = append(changed, result.ChangedSets...)
		}
		indexSets(c, p, changed)
		printJSON(results)
		return
	}

	outcomes := workflow.Run(p, e, w)
	saveProject(c, p)
	var changed []string
	for _, outcome := range outcomes {
		if outcome.Result != nil {
			changed = append(changed, outcome.Result.ChangedSets...)
		}
	}
	indexSets(c, p, changed)
	printJSON(outcomes)

	for _, outcome := range outcomes {
		if outcome.Err != nil {
			stderr.Fatalf("workflow %s halted: %v", w.RunID, outcome.Err)
		}
	}
}

func printJSON(v interface{}) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
