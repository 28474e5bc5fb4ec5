// Package report writes and reads the final run summary: a single
// JSON snapshot of types.RunStats taken when the fuzzer exits, the way
// the teacher's JSON report generator encoded its own scan summary.
package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/mini-lop/minilop/pkg/types"
)

// Write encodes stats as indented JSON to path, creating or truncating
// the file.
func Write(path string, stats types.RunStats) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stats); err != nil {
		return fmt.Errorf("report: encode %s: %w", path, err)
	}
	return nil
}

// Read loads a previously written stats file back into a RunStats.
func Read(path string) (types.RunStats, error) {
	var stats types.RunStats
	data, err := os.ReadFile(path)
	if err != nil {
		return stats, fmt.Errorf("report: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &stats); err != nil {
		return stats, fmt.Errorf("report: parse %s: %w", path, err)
	}
	return stats, nil
}

// Field reads a single named field (gjson dot-path, e.g. "crashes" or
// "edges_covered") out of a stats file without unmarshalling the whole
// struct. Used by operators scripting a quick check of one run's result
// (e.g. in CI: did crashes stay at 0) without parsing full JSON.
func Field(path, field string) (gjson.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("report: read %s: %w", path, err)
	}
	return gjson.GetBytes(data, field), nil
}
