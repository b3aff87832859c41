package store

import (
	"database/sql"
	"encoding/json"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/jjtimmons/cloneops/internal/candidate"
	"github.com/jjtimmons/cloneops/internal/engine"
	"github.com/jjtimmons/cloneops/internal/workflow"
)

// Sidecar is a sqlite index next to the JSON project: one row per
// candidate metric value and one row per macro run, so front ends can
// query candidates and provenance without parsing the whole project
type Sidecar struct {
	db *sql.DB
}

// OpenSidecar opens (and if needed initializes) the sidecar database
func OpenSidecar(path string) (*Sidecar, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, engine.Errorf(engine.Io, "failed to open sidecar: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS candidates (
		set_name TEXT NOT NULL,
		candidate_id TEXT NOT NULL,
		seq_id TEXT NOT NULL,
		start_pos INTEGER NOT NULL,
		end_pos INTEGER NOT NULL,
		strand INTEGER NOT NULL,
		metric TEXT NOT NULL,
		value REAL NOT NULL,
		PRIMARY KEY (set_name, candidate_id, metric)
	)`); err != nil {
		db.Close()
		return nil, engine.Errorf(engine.Io, "failed to init sidecar: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS macro_instances (
		macro_instance_id TEXT PRIMARY KEY,
		template_name TEXT NOT NULL,
		run_id TEXT NOT NULL,
		bound_inputs TEXT NOT NULL,
		bound_outputs TEXT NOT NULL,
		emitted_op_ids TEXT NOT NULL,
		status TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, engine.Errorf(engine.Io, "failed to init sidecar: %v", err)
	}
	return &Sidecar{db: db}, nil
}

// Close releases the underlying database
func (s *Sidecar) Close() error {
	return s.db.Close()
}

// IndexCandidateSet replaces the sidecar rows for one named set
func (s *Sidecar) IndexCandidateSet(set *candidate.Set) error {
	tx, err := s.db.Begin()
	if err != nil {
		return engine.Errorf(engine.Io, "failed to index set %q: %v", set.Name, err)
	}
	defer tx.Rollback()

	if _, err = tx.Exec(`DELETE FROM candidates WHERE set_name = ?`, set.Name); err != nil {
		return engine.Errorf(engine.Io, "failed to index set %q: %v", set.Name, err)
	}
	stmt, err := tx.Prepare(`INSERT INTO candidates
		(set_name, candidate_id, seq_id, start_pos, end_pos, strand, metric, value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return engine.Errorf(engine.Io, "failed to index set %q: %v", set.Name, err)
	}
	defer stmt.Close()

	for _, c := range set.Candidates {
		for metric, value := range c.Metrics {
			if _, err = stmt.Exec(set.Name, c.ID, c.SeqID, c.Start, c.End, c.Strand, metric, value); err != nil {
				return engine.Errorf(engine.Io, "failed to index set %q: %v", set.Name, err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return engine.Errorf(engine.Io, "failed to index set %q: %v", set.Name, err)
	}
	return nil
}

// CandidateMetric reads one metric column of an indexed set back,
// keyed by candidate id
func (s *Sidecar) CandidateMetric(setName, metric string) (map[string]float64, error) {
	rows, err := s.db.Query(`SELECT candidate_id, value FROM candidates
		WHERE set_name = ? AND metric = ?`, setName, metric)
	if err != nil {
		return nil, engine.Errorf(engine.Io, "failed to query set %q: %v", setName, err)
	}
	defer rows.Close()

	values := map[string]float64{}
	for rows.Next() {
		var id string
		var value float64
		if err = rows.Scan(&id, &value); err != nil {
			return nil, engine.Errorf(engine.Io, "failed to query set %q: %v", setName, err)
		}
		values[id] = value
	}
	if err = rows.Err(); err != nil {
		return nil, engine.Errorf(engine.Io, "failed to query set %q: %v", setName, err)
	}
	return values, nil
}

// LogMacroInstance records one macro run, success or not
func (s *Sidecar) LogMacroInstance(inst *workflow.Instance) error {
	inputs, err := json.Marshal(inst.BoundInputs)
	if err != nil {
		return engine.Errorf(engine.Internal, "failed to encode instance %s: %v", inst.ID, err)
	}
	outputs, err := json.Marshal(inst.BoundOutputs)
	if err != nil {
		return engine.Errorf(engine.Internal, "failed to encode instance %s: %v", inst.ID, err)
	}

	_, err = s.db.Exec(`INSERT OR REPLACE INTO macro_instances
		(macro_instance_id, template_name, run_id, bound_inputs, bound_outputs, emitted_op_ids, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inst.ID, inst.TemplateName, inst.RunID, string(inputs), string(outputs),
		strings.Join(inst.EmittedOpIDs, ","), string(inst.Status))
	if err != nil {
		return engine.Errorf(engine.Io, "failed to log instance %s: %v", inst.ID, err)
	}
	return nil
}

// MacroInstances lists every logged run of one template, most recent
// insert order last
func (s *Sidecar) MacroInstances(templateName string) ([]*workflow.Instance, error) {
	rows, err := s.db.Query(`SELECT macro_instance_id, template_name, run_id,
		bound_inputs, bound_outputs, emitted_op_ids, status
		FROM macro_instances WHERE template_name = ? ORDER BY rowid`, templateName)
	if err != nil {
		return nil, engine.Errorf(engine.Io, "failed to query instances: %v", err)
	}
	defer rows.Close()

	var insts []*workflow.Instance
	for rows.Next() {
		var inst workflow.Instance
		var inputs, outputs, opIDs, status string
		if err = rows.Scan(&inst.ID, &inst.TemplateName, &inst.RunID, &inputs, &outputs, &opIDs, &status); err != nil {
			return nil, engine.Errorf(engine.Io, "failed to query instances: %v", err)
		}
		if err = json.Unmarshal([]byte(inputs), &inst.BoundInputs); err != nil {
			return nil, engine.Errorf(engine.Io, "failed to decode instance %s: %v", inst.ID, err)
		}
		if err = json.Unmarshal([]byte(outputs), &inst.BoundOutputs); err != nil {
			return nil, engine.Errorf(engine.Io, "failed to decode instance %s: %v", inst.ID, err)
		}
		if opIDs != "" {
			inst.EmittedOpIDs = strings.Split(opIDs, ",")
		}
		inst.Status = workflow.Status(status)
		insts = append(insts, &inst)
	}
	if err = rows.Err(); err != nil {
		return nil, engine.Errorf(engine.Io, "failed to query instances: %v", err)
	}
	return insts, nil
}
