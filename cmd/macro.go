package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jjtimmons/cloneops/config"
	"github.com/jjtimmons/cloneops/internal/store"
	"github.com/jjtimmons/cloneops/internal/workflow"
)

// macroCmd expands and runs a yaml macro template
var macroCmd = &cobra.Command{
	Use:                        "macro [template-yaml]",
	Short:                      "Run a macro template against the project",
	Run:                        runMacro,
	SuggestionsMinimumDistance: 2,
	Long: `Run a macro: a yaml template of typed input/output ports and a script
of operation JSON lines with ${name} parameters. Bindings are checked
against the ports before any script text is expanded, and the whole
expanded workflow runs transactionally. Every run, successful or not,
is logged to the sidecar when one is configured.`,
	Example: `  cloneops macro digest_and_filter.yaml -b plasmid=pGEX-3X -b out_prefix=frag`,
}

// set flags
func init() {
	macroCmd.Flags().StringArrayP("bind", "b", nil, "port binding as name=value, repeatable")

	rootCmd.AddCommand(macroCmd)
}

func runMacro(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		stderr.Fatalf("no template passed, see 'cloneops macro --help'")
	}
	t, err := workflow.LoadTemplate(args[0])
	if err != nil {
		stderr.Fatalf("%v", err)
	}

	binds, _ := cmd.Flags().GetStringArray("bind")
	inputs, outputs, err := splitBindings(t, binds)
	if err != nil {
		stderr.Fatalf("%v", err)
	}

	c := config.New()
	p := loadProject(c)

	inst, runErr := workflow.RunMacro(p, newExecutor(c), t, inputs, outputs)
	logInstance(c, inst)
	if runErr != nil {
		stderr.Fatalf("macro %s %s: %v", t.Name, inst.Status, runErr)
	}

	saveProject(c, p)
	printJSON(inst)
}

// splitBindings parses name=value flags into input and output port
// bindings. Values parse as JSON when they can, so numbers and bools
// come through typed; anything else binds as a plain string
func splitBindings(t *workflow.Template, binds []string) (inputs, outputs map[string]interface{}, err error) {
	outputNames := map[string]bool{}
	for _, port := range t.OutputPorts {
		outputNames[port.Name] = true
	}

	inputs = map[string]interface{}{}
	outputs = map[string]interface{}{}
	for _, bind := range binds {
		name, raw, found := strings.Cut(bind, "=")
		if !found {
			return nil, nil, &bindError{bind}
		}

		var value interface{} = raw
		var parsed interface{}
		if jsonErr := json.Unmarshal([]byte(raw), &parsed); jsonErr == nil {
			switch parsed.(type) {
			case float64, bool, map[string]interface{}:
				value = parsed
			}
		}

		if outputNames[name] {
			outputs[name] = value
		} else {
			inputs[name] = value
		}
	}
	return inputs, outputs, nil
}

type bindError struct {
	bind string
}

func (e *bindError) Error() string {
	return "binding " + e.bind + " is not name=value"
}

// logInstance records the macro run in the sidecar, when configured
func logInstance(c config.Config, inst *workflow.Instance) {
	if c.Sidecar == "" {
		return
	}
	sidecar, err := store.OpenSidecar(c.Sidecar)
	if err != nil {
		stderr.Printf("failed to open sidecar: %v", err)
		return
	}
	defer sidecar.Close()

	if err := sidecar.LogMacroInstance(inst); err != nil {
		stderr.Printf("failed to log macro instance: %v", err)
	}
}
