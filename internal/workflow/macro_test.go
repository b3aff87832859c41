package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjtimmons/cloneops/internal/engine"
)

const digestSelectTemplate = `
name: digest-select
input_ports:
  - name: vector
    kind: sequence
  - name: cutter
    kind: string
  - name: min_bp
    kind: number
output_ports:
  - name: fragments
    kind: sequence
script:
  - '{"Digest":{"inputs":[${vector}],"enzymes":[${cutter}],"output_prefix":${fragments}}}'
  - '{"FilterByMolecularWeight":{"inputs":[${vector}],"min_bp":${min_bp},"max_bp":100}}'
`

func parseDigestSelect(t *testing.T) *Template {
	t.Helper()
	tpl, err := ParseTemplate([]byte(digestSelectTemplate))
	require.NoError(t, err)
	return tpl
}

func TestParseTemplate(t *testing.T) {
	tpl := parseDigestSelect(t)
	assert.Equal(t, "digest-select", tpl.Name)
	assert.Len(t, tpl.InputPorts, 3)
	assert.Len(t, tpl.OutputPorts, 1)
	assert.Equal(t, NumberPort, tpl.InputPorts[2].Kind)
}

func TestParseTemplate_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not yaml", "{{{"},
		{"no name", "input_ports:\n  - name: a\n    kind: string\n"},
		{"unnamed port", "name: m\ninput_ports:\n  - kind: string\n"},
		{"unknown kind", "name: m\ninput_ports:\n  - name: a\n    kind: tube\n"},
		{"duplicate port", "name: m\ninput_ports:\n  - name: a\n    kind: string\noutput_ports:\n  - name: a\n    kind: string\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTemplate([]byte(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestLoadTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "macro.yaml")
	require.NoError(t, os.WriteFile(path, []byte(digestSelectTemplate), 0644))

	tpl, err := LoadTemplate(path)
	require.NoError(t, err)
	assert.Equal(t, "digest-select", tpl.Name)

	_, err = LoadTemplate(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestTemplate_Preflight(t *testing.T) {
	tpl := parseDigestSelect(t)
	good := map[string]interface{}{
		"vector":    "pUC19",
		"cutter":    "BamHI",
		"min_bp":    50,
		"fragments": "frag",
	}

	tests := []struct {
		name    string
		mut     func(b map[string]interface{})
		wantErr string
	}{
		{
			"all ports bound",
			func(b map[string]interface{}) {},
			"",
		},
		{
			"unbound port",
			func(b map[string]interface{}) { delete(b, "cutter") },
			"is unbound",
		},
		{
			"undeclared binding",
			func(b map[string]interface{}) { b["extra"] = 1 },
			"no port named",
		},
		{
			"kind mismatch",
			func(b map[string]interface{}) { b["min_bp"] = "fifty" },
			"want a number",
		},
		{
			"bool where string is declared",
			func(b map[string]interface{}) { b["cutter"] = true },
			"want a string",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bound := map[string]interface{}{}
			for k, v := range good {
				bound[k] = v
			}
			tt.mut(bound)

			err := tpl.Preflight(bound)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTemplate_Preflight_UndeclaredPlaceholder(t *testing.T) {
	tpl, err := ParseTemplate([]byte("name: m\nscript:\n  - '{\"Digest\":{\"inputs\":[${mystery}]}}'\n"))
	require.NoError(t, err)

	err = tpl.Preflight(map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared parameter")
}

func TestTemplate_Expand(t *testing.T) {
	tpl := parseDigestSelect(t)

	w, err := tpl.Expand(map[string]interface{}{
		"vector":    "pUC19",
		"cutter":    "BamHI",
		"min_bp":    50,
		"fragments": "frag",
	}, "run-9")
	require.NoError(t, err)
	assert.Equal(t, "run-9", w.RunID)
	require.Len(t, w.Ops, 2)

	// bound values arrive typed: strings quoted, numbers bare
	digest, ok := w.Ops[0].Variant().(*engine.Digest)
	require.True(t, ok)
	assert.Equal(t, []string{"pUC19"}, digest.Inputs)
	assert.Equal(t, []string{"BamHI"}, digest.Enzymes)
	assert.Equal(t, "frag", digest.OutputPrefix)

	filter, ok := w.Ops[1].Variant().(*engine.FilterByMolecularWeight)
	require.True(t, ok)
	assert.Equal(t, 50, filter.MinBp)
}

func TestRunMacro(t *testing.T) {
	e := newTestExecutor(t)
	tpl := parseDigestSelect(t)
	inputs := map[string]interface{}{
		"vector": "vector",
		"cutter": "BamHI",
		"min_bp": 5,
	}
	outputs := map[string]interface{}{"fragments": "frag"}

	t.Run("ok", func(t *testing.T) {
		p := newTestProject(t)
		inst, err := RunMacro(p, e, tpl, inputs, outputs)
		require.NoError(t, err)
		assert.Equal(t, StatusOk, inst.Status)
		assert.Equal(t, "digest-select", inst.TemplateName)
		assert.Len(t, inst.EmittedOpIDs, 2)
		assert.Contains(t, p.Sequences, "frag-1")
	})

	t.Run("failed run rolls back", func(t *testing.T) {
		p := newTestProject(t)
		badInputs := map[string]interface{}{
			"vector": "ghost",
			"cutter": "BamHI",
			"min_bp": 5,
		}
		inst, err := RunMacro(p, e, tpl, badInputs, outputs)
		require.Error(t, err)
		assert.Equal(t, StatusFailed, inst.Status)
		assert.Empty(t, inst.EmittedOpIDs)
		assert.NotContains(t, p.Sequences, "frag-1")
	})

	t.Run("preflight failure", func(t *testing.T) {
		p := newTestProject(t)
		inst, err := RunMacro(p, e, tpl, map[string]interface{}{"vector": "vector"}, outputs)
		require.Error(t, err)
		assert.Equal(t, StatusFailed, inst.Status)
	})
}
