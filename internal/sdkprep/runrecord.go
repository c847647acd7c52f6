package sdkprep

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

// RunRecord is the persisted summary of the last prepare run that produced a
// Makefile. 'sdkprep libs' and 'sdkprep pack' read it back.
type RunRecord struct {
	ID            string    `toml:"id"`
	CreatedAt     time.Time `toml:"created_at"`
	Version       string    `toml:"version"`
	Invocation    string    `toml:"invocation"`
	Platforms     []string  `toml:"platforms"`
	Archs         []string  `toml:"archs"`
	Completed     []string  `toml:"completed"`
	Reference     string    `toml:"reference"`
	Debug         bool      `toml:"debug"`
	DebugVerbose  bool      `toml:"debug_verbose"`
	Force         bool      `toml:"force"`
	ListVariables bool      `toml:"list_variables"`
	ExtraArgs     []string  `toml:"extra_args"`
}

func newRunRecord(opts RunOptions, rep *Report) RunRecord {
	rec := RunRecord{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
		Version:       version,
		Invocation:    opts.Invocation,
		Platforms:     append([]string(nil), opts.Platforms...),
		Archs:         append([]string(nil), rep.Archs...),
		Completed:     append([]string(nil), rep.Completed...),
		Debug:         opts.Debug,
		DebugVerbose:  opts.DebugVerbose,
		Force:         opts.Force,
		ListVariables: opts.ListVariables,
		ExtraArgs:     append([]string(nil), opts.ExtraArgs...),
	}
	if len(rec.Completed) > 0 {
		rec.Reference = rec.Completed[0]
	}
	return rec
}

func runRecordPath(l Layout) string {
	return l.abs(filepath.Join(l.WorkDir, RunRecordName))
}

func saveRunRecord(l Layout, rec RunRecord) error {
	data, err := toml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode run record: %w", err)
	}
	path := runRecordPath(l)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeFileAtomic(path, data, 0o644)
}

// LoadRunRecord reads the record of the last prepare run.
func LoadRunRecord(l Layout) (*RunRecord, error) {
	data, err := os.ReadFile(runRecordPath(l))
	if err != nil {
		return nil, err
	}
	var rec RunRecord
	if err := toml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", runRecordPath(l), err)
	}
	return &rec, nil
}
