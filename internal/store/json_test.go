package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjtimmons/cloneops/internal/candidate"
	"github.com/jjtimmons/cloneops/internal/engine"
	"github.com/jjtimmons/cloneops/internal/seq"
	"github.com/jjtimmons/cloneops/internal/state"
)

func TestSaveLoadProject(t *testing.T) {
	p := state.NewProject()
	require.NoError(t, p.AddSequence(&seq.Sequence{
		ID:       "pUC19",
		Bases:    "GGATCCAAGAATTC",
		Topology: seq.Circular,
		Features: []seq.Feature{
			{Kind: "promoter", Label: "pLac", Location: seq.Location{Parts: []seq.Span{{Start: 6, End: 9}}}},
		},
	}))
	_, err := p.NewContainer(state.Singleton, []state.Member{{SeqID: "pUC19", Multiplicity: 1}})
	require.NoError(t, err)
	p.Lineage.Record("pUC19", "", nil)
	p.Candidates["windows"] = &candidate.Set{Name: "windows", Candidates: []candidate.Candidate{
		{ID: "pUC19:0-6+", SeqID: "pUC19", Start: 0, End: 6, Strand: +1, Metrics: map[string]float64{"gc": 0.5}},
	}}
	p.Metadata["author"] = "lab"

	path := filepath.Join(t.TempDir(), "project.json")
	require.NoError(t, SaveProject(p, path))

	loaded, err := LoadProject(path)
	require.NoError(t, err)
	assert.Equal(t, p.Sequences, loaded.Sequences)
	assert.Equal(t, p.Containers, loaded.Containers)
	assert.Equal(t, p.Candidates, loaded.Candidates)
	assert.Equal(t, p.Lineage.Nodes, loaded.Lineage.Nodes)
	assert.Equal(t, p.Metadata, loaded.Metadata)
	assert.Empty(t, loaded.Validate())

	// no temp files are left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadProject_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadProject(filepath.Join(dir, "missing.json"))
		require.Error(t, err)
		var engineErr *engine.Error
		require.ErrorAs(t, err, &engineErr)
		assert.Equal(t, engine.Io, engineErr.Code)
	})

	t.Run("not json", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.json")
		require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))
		_, err := LoadProject(path)
		require.Error(t, err)
	})

	t.Run("inconsistent project", func(t *testing.T) {
		p := state.NewProject()
		p.Containers["c1"] = &state.Container{ID: "c1", Members: []state.Member{{SeqID: "ghost", Multiplicity: 1}}}
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, SaveProject(p, path))

		_, err := LoadProject(path)
		require.Error(t, err)
		var engineErr *engine.Error
		require.ErrorAs(t, err, &engineErr)
		assert.Equal(t, engine.InvalidInput, engineErr.Code)
	})
}
