// Package config implements the run-parameter and model-scenario JSON
// documents described in spec.md §6, with Validate() methods in the
// teacher's style (evoepi_config.go's Config interface and
// EvoEpiConfig.Validate, which accumulates section-by-section errors via
// github.com/pkg/errors before a simulation is built). JSON replaces the
// teacher's TOML since spec.md §6 specifies JSON throughout.
package config

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// ReseedPoint schedules a mid-run random-stream reseed (spec.md §6
// "reseed: [{tick, seed}]").
type ReseedPoint struct {
	Tick int64 `json:"tick"`
	Seed int64 `json:"seed"`
}

// DumpActiveNetwork configures the optional per-tick active-subgraph dump
// (spec.md §6).
type DumpActiveNetwork struct {
	Output        string `json:"output"`
	Threshold     int    `json:"threshold"`
	StartTick     int64  `json:"startTick"`
	EndTick       int64  `json:"endTick"`
	TickIncrement int64  `json:"tickIncrement"`
	Encoding      string `json:"encoding"`
}

// RunParameters is the simulator's top-level run-parameter document
// (spec.md §6 "Run-parameter JSON (simulator)").
type RunParameters struct {
	ModelScenario string `json:"modelScenario"`
	StartTick     int64  `json:"startTick"`
	EndTick       int64  `json:"endTick"`

	Output        string        `json:"output,omitempty"`
	SummaryOutput string        `json:"summaryOutput,omitempty"`
	Status        string        `json:"status,omitempty"`
	Seed          int64         `json:"seed,omitempty"`
	Reseed        []ReseedPoint `json:"reseed,omitempty"`
	Replicate     int           `json:"replicate,omitempty"`

	PartitionEdgeLimit int64  `json:"partitionEdgeLimit,omitempty"`
	LogLevel           string `json:"logLevel,omitempty"`

	DBName                  string `json:"dbName,omitempty"`
	DBHost                  string `json:"dbHost,omitempty"`
	DBUser                  string `json:"dbUser,omitempty"`
	DBPassword              string `json:"dbPassword,omitempty"`
	DBMaxRecords            int    `json:"dbMaxRecords,omitempty"`
	DBConnectionTimeout     int    `json:"dbConnectionTimeout,omitempty"`
	DBConnectionRetries     int    `json:"dbConnectionRetries,omitempty"`
	DBConnectionMaxDelay    int    `json:"dbConnectionMaxDelay,omitempty"`

	DumpActiveNetwork *DumpActiveNetwork `json:"dumpActiveNetwork,omitempty"`
	Plugins           []string           `json:"plugins,omitempty"`
}

// Validate checks RunParameters's required fields and internal
// consistency, accumulating the teacher's style of wrapped errors rather
// than failing on the first problem it notices, per spec.md §7
// "Parsing accumulates errors to give a full report before exiting."
func (r *RunParameters) Validate() error {
	var errs []string
	if r.ModelScenario == "" {
		errs = append(errs, "modelScenario is required")
	}
	if r.EndTick < r.StartTick {
		errs = append(errs, "endTick must be >= startTick")
	}
	if r.Replicate < 0 {
		errs = append(errs, "replicate must be >= 0")
	}
	if r.DBConnectionRetries < 0 {
		errs = append(errs, "dbConnectionRetries must be >= 0")
	}
	for _, rp := range r.Reseed {
		if rp.Tick < r.StartTick || rp.Tick > r.EndTick {
			errs = append(errs, "reseed tick out of [startTick, endTick] range")
			break
		}
	}
	if len(errs) > 0 {
		return errors.Errorf("config: invalid run parameters: %v", errs)
	}
	return nil
}

// ModelScenario references the model's other JSON documents by path
// (spec.md §6 "Model-scenario JSON").
type ModelScenario struct {
	ContactNetwork string   `json:"contactNetwork"`
	DiseaseModel   string   `json:"diseaseModel"`
	Initialization []string `json:"initialization"`
	Intervention   []string `json:"intervention"`
	Sets           []string `json:"sets,omitempty"`
	Traits         string   `json:"traits,omitempty"`
	PersonTraitDB  []string `json:"personTraitDB,omitempty"`
}

// Validate checks that every required reference is present.
func (m *ModelScenario) Validate() error {
	var errs []string
	if m.ContactNetwork == "" {
		errs = append(errs, "contactNetwork is required")
	}
	if m.DiseaseModel == "" {
		errs = append(errs, "diseaseModel is required")
	}
	if len(errs) > 0 {
		return errors.Errorf("config: invalid model scenario: %v", errs)
	}
	return nil
}

// LoadRunParameters reads and validates a run-parameter document from
// path.
func LoadRunParameters(path string) (*RunParameters, error) {
	var r RunParameters
	if err := loadJSON(path, &r); err != nil {
		return nil, errors.Wrap(err, "config: load run parameters")
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// LoadModelScenario reads and validates a model-scenario document.
func LoadModelScenario(path string) (*ModelScenario, error) {
	var m ModelScenario
	if err := loadJSON(path, &m); err != nil {
		return nil, errors.Wrap(err, "config: load model scenario")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func loadJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return decodeJSON(f, v)
}

func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
