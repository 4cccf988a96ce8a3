// pkg/model/severity.go
package model

import "fmt"

// Severity is the impact tier of a check
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities lists all tiers from most to least severe
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Valid reports whether s is a known severity
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Rank returns 0 for critical through 3 for low, 4 for unknown values
func (s Severity) Rank() int {
	for i, sev := range Severities {
		if sev == s {
			return i
		}
	}
	return len(Severities)
}

// SLA holds the thresholds a run must meet to pass
type SLA struct {
	MinPassRate         float64 `yaml:"min_pass_rate" json:"min_pass_rate"`
	MaxCriticalFailures int     `yaml:"max_critical_failures" json:"max_critical_failures"`
}

// DefaultSLA returns the thresholds used when the profile sets none
func DefaultSLA() SLA {
	return SLA{
		MinPassRate:         0.95,
		MaxCriticalFailures: 0,
	}
}

// Validate checks threshold ranges
func (s SLA) Validate() error {
	if s.MinPassRate < 0 || s.MinPassRate > 1 {
		return fmt.Errorf("min_pass_rate must be within [0,1], got %v", s.MinPassRate)
	}
	if s.MaxCriticalFailures < 0 {
		return fmt.Errorf("max_critical_failures cannot be negative, got %d", s.MaxCriticalFailures)
	}
	return nil
}

// SeverityPolicy maps checks to severities and carries the SLA thresholds
type SeverityPolicy struct {
	DefaultSeverity Severity            `json:"default_severity"`
	Kinds           map[Kind]Severity   `json:"kinds"`
	Rules           map[string]Severity `json:"rules,omitempty"`
	SLA             SLA                 `json:"sla"`
}

// DefaultPolicy returns the policy used when no profile is configured
func DefaultPolicy() SeverityPolicy {
	return SeverityPolicy{
		DefaultSeverity: SeverityMedium,
		Kinds: map[Kind]Severity{
			KindNotNull:              SeverityHigh,
			KindUnique:               SeverityCritical,
			KindRegex:                SeverityMedium,
			KindRange:                SeverityMedium,
			KindAllowedValues:        SeverityMedium,
			KindReferentialIntegrity: SeverityHigh,
			KindSchemaRequired:       SeverityCritical,
			KindSchemaType:           SeverityHigh,
			KindAnomalyZScore:        SeverityLow,
		},
		Rules: map[string]Severity{},
		SLA:   DefaultSLA(),
	}
}

// Resolve picks the severity for a check: explicit rule id mapping first,
// then the kind mapping, then the policy default. A missing required column
// is always critical.
func (p SeverityPolicy) Resolve(kind Kind, checkID string) Severity {
	if kind == KindSchemaRequired {
		return SeverityCritical
	}
	if sev, ok := p.Rules[checkID]; ok {
		return sev
	}
	if sev, ok := p.Kinds[kind]; ok {
		return sev
	}
	if p.DefaultSeverity != "" {
		return p.DefaultSeverity
	}
	return SeverityMedium
}

// Validate rejects unknown severities and out-of-range thresholds
func (p SeverityPolicy) Validate() error {
	if p.DefaultSeverity != "" && !p.DefaultSeverity.Valid() {
		return fmt.Errorf("unknown default severity %q", p.DefaultSeverity)
	}
	for kind, sev := range p.Kinds {
		if !sev.Valid() {
			return fmt.Errorf("unknown severity %q for kind %s", sev, kind)
		}
	}
	for id, sev := range p.Rules {
		if !sev.Valid() {
			return fmt.Errorf("unknown severity %q for rule %s", sev, id)
		}
	}
	return p.SLA.Validate()
}
