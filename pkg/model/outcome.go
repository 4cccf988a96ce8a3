// pkg/model/outcome.go
package model

import "time"

// Status is the result category of a single check
type Status string

const (
	// StatusPass means the check ran and found no violations
	StatusPass Status = "PASS"
	// StatusFail is a data-quality failure: the check ran and found violations
	StatusFail Status = "FAIL"
	// StatusConfigError means the check could not run because its
	// configuration references something that does not exist
	StatusConfigError Status = "CONFIG_ERROR"
	// StatusNotApplicable is reported by statistical checks that cannot run
	// meaningfully on the data (degenerate variance, too few samples)
	StatusNotApplicable Status = "NOT_APPLICABLE"
)

// Executed reports whether the outcome counts toward pass rates
func (s Status) Executed() bool {
	return s != StatusNotApplicable
}

// SampleEntry is one diagnostic example attached to an outcome
type SampleEntry struct {
	RowID       string      `json:"row_id,omitempty"`
	Column      string      `json:"column,omitempty"`
	Value       interface{} `json:"value"`
	ZScore      *float64    `json:"z_score,omitempty"`
	Occurrences int         `json:"occurrences,omitempty"`
	Detail      string      `json:"detail,omitempty"`
}

// CheckOutcome is the immutable result of evaluating one rule or derived
// check against one dataset
type CheckOutcome struct {
	CheckID     string        `json:"check_id"`
	Dataset     string        `json:"dataset"`
	Column      string        `json:"column,omitempty"`
	Kind        Kind          `json:"kind"`
	Severity    Severity      `json:"severity"`
	Status      Status        `json:"status"`
	Passed      bool          `json:"passed"`
	Metric      string        `json:"metric"`
	FailedCount int           `json:"failed_count"`
	TotalCount  int           `json:"total_count"`
	FailRate    float64       `json:"fail_rate"`
	Sample      []SampleEntry `json:"sample"`
	Error       string        `json:"error,omitempty"`
}

// DatasetScore aggregates outcomes belonging to one dataset
type DatasetScore struct {
	Dataset        string           `json:"dataset"`
	Executed       int              `json:"executed"`
	Passed         int              `json:"passed"`
	Failed         int              `json:"failed"`
	ConfigErrors   int              `json:"config_errors"`
	NotApplicable  int              `json:"not_applicable"`
	PassRate       float64          `json:"pass_rate"`
	SeverityCounts map[Severity]int `json:"severity_counts"` // failed checks per severity
}

// Verdict is the SLA determination of a run
type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictFail Verdict = "FAIL"
)

// SLAResult records the thresholds applied and the resulting verdict
type SLAResult struct {
	MinPassRate         float64  `json:"min_pass_rate"`
	MaxCriticalFailures int      `json:"max_critical_failures"`
	Verdict             Verdict  `json:"verdict"`
	Reasons             []string `json:"reasons,omitempty"`
}

// RunSummary is the single immutable aggregate produced by a run
type RunSummary struct {
	RunID            string         `json:"run_id"`
	GeneratedAt      time.Time      `json:"generated_at"`
	Fingerprint      string         `json:"fingerprint"`
	TotalChecks      int            `json:"total_checks"`
	PassedChecks     int            `json:"passed_checks"`
	FailedChecks     int            `json:"failed_checks"`
	ConfigErrors     int            `json:"config_errors"`
	NotApplicable    int            `json:"not_applicable"`
	PassRate         float64        `json:"pass_rate"`
	CriticalFailures int            `json:"critical_failures"`
	Datasets         []DatasetScore `json:"datasets"`
	RowCounts        map[string]int `json:"row_counts"`
	SLA              SLAResult      `json:"sla"`
}

// Passed reports whether the run met its SLA
func (s RunSummary) Passed() bool {
	return s.SLA.Verdict == VerdictPass
}
