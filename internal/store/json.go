// Package store persists projects as JSON and keeps a sqlite sidecar
// index of candidate sets and macro runs for querying without loading
// the whole project.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/jjtimmons/cloneops/internal/engine"
	"github.com/jjtimmons/cloneops/internal/state"
)

// SaveProject writes the project to path as indented JSON. The write
// goes through a temp file in the same directory so a crash never
// leaves a half-written project behind
func SaveProject(p *state.Project, path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return engine.Errorf(engine.Internal, "failed to encode project: %v", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return engine.Errorf(engine.Io, "failed to create project file: %v", err)
	}
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return engine.Errorf(engine.Io, "failed to write project: %v", err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return engine.Errorf(engine.Io, "failed to write project: %v", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return engine.Errorf(engine.Io, "failed to write project: %v", err)
	}
	return nil
}

// LoadProject reads a JSON project from path
func LoadProject(path string) (*state.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, engine.Errorf(engine.Io, "failed to read project: %v", err)
	}

	p := state.NewProject()
	if err := json.Unmarshal(data, p); err != nil {
		return nil, engine.Errorf(engine.Io, "failed to parse project: %v", err)
	}
	if violations := p.Validate(); len(violations) > 0 {
		return nil, engine.Errorf(engine.InvalidInput,
			"project %s is inconsistent: %s", path, violations[0])
	}
	return p, nil
}
