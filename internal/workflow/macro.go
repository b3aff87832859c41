package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jjtimmons/cloneops/internal/engine"
	"github.com/jjtimmons/cloneops/internal/state"
)

// PortKind is the declared type of a macro parameter
type PortKind string

const (
	SequencePort       PortKind = "sequence"
	ContainerPort      PortKind = "container"
	CandidateSetPort   PortKind = "candidate_set"
	GuideSetPort       PortKind = "guide_set"
	StringPort         PortKind = "string"
	NumberPort         PortKind = "number"
	BoolPort           PortKind = "bool"
	PathPort           PortKind = "path"
	SequenceAnchorPort PortKind = "sequence_anchor"
)

// Port declares one named, typed macro parameter
type Port struct {
	Name string   `yaml:"name"`
	Kind PortKind `yaml:"kind"`
}

// Template is a parameterized script of operations. Script lines are
// operation JSON with ${name} placeholders that expansion replaces
// with the JSON encoding of the bound value
type Template struct {
	Name        string   `yaml:"name"`
	InputPorts  []Port   `yaml:"input_ports"`
	OutputPorts []Port   `yaml:"output_ports"`
	Script      []string `yaml:"script"`
}

// ParseTemplate reads a yaml macro template
func ParseTemplate(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse macro template: %v", err)
	}
	if t.Name == "" {
		return nil, fmt.Errorf("macro template has no name")
	}
	seen := map[string]bool{}
	for _, port := range append(append([]Port{}, t.InputPorts...), t.OutputPorts...) {
		if port.Name == "" {
			return nil, fmt.Errorf("macro %q has an unnamed port", t.Name)
		}
		if !validKinds[port.Kind] {
			return nil, fmt.Errorf("macro %q port %q has unknown kind %q", t.Name, port.Name, port.Kind)
		}
		if seen[port.Name] {
			return nil, fmt.Errorf("macro %q declares port %q twice", t.Name, port.Name)
		}
		seen[port.Name] = true
	}
	return &t, nil
}

// LoadTemplate reads a macro template from a yaml file
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, engine.Errorf(engine.Io, "failed to read macro template: %v", err)
	}
	return ParseTemplate(data)
}

var validKinds = map[PortKind]bool{
	SequencePort:       true,
	ContainerPort:      true,
	CandidateSetPort:   true,
	GuideSetPort:       true,
	StringPort:         true,
	NumberPort:         true,
	BoolPort:           true,
	PathPort:           true,
	SequenceAnchorPort: true,
}

var placeholderRegex = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Preflight validates bindings against the template's ports before
// any script text is touched: every placeholder in the script must
// name a declared port, every declared port must be bound, every
// bound name must be declared, and the bound value must match the
// port's kind. A failing preflight has no side effects
func (t *Template) Preflight(bound map[string]interface{}) error {
	ports := map[string]PortKind{}
	for _, port := range append(append([]Port{}, t.InputPorts...), t.OutputPorts...) {
		ports[port.Name] = port.Kind
	}

	for _, line := range t.Script {
		for _, m := range placeholderRegex.FindAllStringSubmatch(line, -1) {
			if _, ok := ports[m[1]]; !ok {
				return engine.Errorf(engine.InvalidInput,
					"macro %q references undeclared parameter %q", t.Name, m[1])
			}
		}
	}
	for name := range bound {
		if _, ok := ports[name]; !ok {
			return engine.Errorf(engine.InvalidInput,
				"macro %q has no port named %q", t.Name, name)
		}
	}
	for name, kind := range ports {
		value, ok := bound[name]
		if !ok {
			return engine.Errorf(engine.InvalidInput,
				"macro %q parameter %q is unbound", t.Name, name)
		}
		if err := checkKind(kind, value); err != nil {
			return engine.Errorf(engine.InvalidInput,
				"macro %q parameter %q: %v", t.Name, name, err)
		}
	}
	return nil
}

// checkKind enforces a port's kind on a bound value. Id-like kinds
// all bind strings; anchors bind either a string or a structured map
func checkKind(kind PortKind, value interface{}) error {
	switch kind {
	case SequencePort, ContainerPort, CandidateSetPort, GuideSetPort, StringPort, PathPort:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("want a string, got %T", value)
		}
	case NumberPort:
		switch value.(type) {
		case int, int64, float64:
		default:
			return fmt.Errorf("want a number, got %T", value)
		}
	case BoolPort:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("want a bool, got %T", value)
		}
	case SequenceAnchorPort:
		switch value.(type) {
		case string, map[string]interface{}:
		default:
			return fmt.Errorf("want an anchor, got %T", value)
		}
	default:
		return fmt.Errorf("unknown port kind %q", kind)
	}
	return nil
}

// Expand substitutes bound values into the script and parses each
// line as one operation. Preflight must pass first; Expand calls it
func (t *Template) Expand(bound map[string]interface{}, runID string) (Workflow, error) {
	if err := t.Preflight(bound); err != nil {
		return Workflow{}, err
	}

	encoded := map[string]string{}
	for name, value := range bound {
		data, err := json.Marshal(value)
		if err != nil {
			return Workflow{}, engine.Errorf(engine.InvalidInput,
				"macro %q parameter %q does not encode: %v", t.Name, name, err)
		}
		encoded[name] = string(data)
	}

	var ops []engine.Operation
	for i, line := range t.Script {
		if strings.TrimSpace(line) == "" {
			continue
		}
		expanded := placeholderRegex.ReplaceAllStringFunc(line, func(m string) string {
			name := placeholderRegex.FindStringSubmatch(m)[1]
			return encoded[name]
		})

		var op engine.Operation
		if err := json.Unmarshal([]byte(expanded), &op); err != nil {
			return Workflow{}, engine.Errorf(engine.InvalidInput,
				"macro %q script line %d does not parse: %v", t.Name, i+1, err)
		}
		ops = append(ops, op)
	}
	return NewWorkflow(runID, ops), nil
}

// Status is the terminal state of a macro execution
type Status string

const (
	StatusOk        Status = "ok"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Instance records one execution of a macro template: its resolved
// bindings, the ops it emitted and how it ended. Immutable after the
// run except for the terminal status
type Instance struct {
	ID           string                 `json:"macro_instance_id"`
	TemplateName string                 `json:"template_name"`
	RunID        string                 `json:"run_id"`
	BoundInputs  map[string]interface{} `json:"bound_inputs"`
	BoundOutputs map[string]interface{} `json:"bound_outputs"`
	EmittedOpIDs []string               `json:"emitted_op_ids"`
	Status       Status                 `json:"status"`
}

// RunMacro expands a template with the given bindings and runs the
// result transactionally. The returned instance is recorded whether
// the run succeeded, failed or was cancelled
func RunMacro(p *state.Project, e *engine.Executor, t *Template, inputs, outputs map[string]interface{}) (*Instance, error) {
	inst := &Instance{
		ID:           "macro-" + uuid.NewString(),
		TemplateName: t.Name,
		RunID:        "run-" + uuid.NewString(),
		BoundInputs:  inputs,
		BoundOutputs: outputs,
		Status:       StatusFailed,
	}

	bound := map[string]interface{}{}
	for name, value := range inputs {
		bound[name] = value
	}
	for name, value := range outputs {
		bound[name] = value
	}

	w, err := t.Expand(bound, inst.RunID)
	if err != nil {
		return inst, err
	}

	// note when the caller's own progress callback asked to stop, so
	// the instance can distinguish a cancel from a failure
	cancelled := false
	exec := *e
	if inner := e.Progress; inner != nil {
		exec.Progress = func(done, total int) bool {
			if !inner(done, total) {
				cancelled = true
				return false
			}
			return true
		}
	}

	results, err := RunTransactional(p, &exec, w)
	if err != nil {
		if cancelled {
			inst.Status = StatusCancelled
		}
		return inst, err
	}

	for _, result := range results {
		inst.EmittedOpIDs = append(inst.EmittedOpIDs, result.OpID)
	}
	inst.Status = StatusOk
	return inst, nil
}
