// pkg/report/report.go
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/David-Botos/data-quality/pkg/converter"
	"github.com/David-Botos/data-quality/pkg/model"
)

// Results is the artifact written after each run
type Results struct {
	Results []model.CheckOutcome `json:"results"`
	Summary model.RunSummary     `json:"summary"`
}

// WriteResults writes outcomes and summary as indented JSON. The file is
// replaced atomically so readers never see a partial artifact.
func WriteResults(path string, outcomes []model.CheckOutcome, summary model.RunSummary) error {
	data, err := json.MarshalIndent(Results{Results: encodable(outcomes), Summary: summary}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// encodable copies outcomes with every sample value in a JSON-safe form
func encodable(outcomes []model.CheckOutcome) []model.CheckOutcome {
	out := make([]model.CheckOutcome, len(outcomes))
	for i, o := range outcomes {
		sample := make([]model.SampleEntry, len(o.Sample))
		for j, entry := range o.Sample {
			entry.Value = converter.SampleValue(entry.Value)
			sample[j] = entry
		}
		o.Sample = sample
		out[i] = o
	}
	return out
}

// ReadResults loads a results artifact
func ReadResults(path string) (*Results, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	var results Results
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("malformed results file %s: %w", path, err)
	}
	return &results, nil
}
