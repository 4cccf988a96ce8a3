// pkg/model/rule.go
package model

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies the type of check a rule or derived check performs
type Kind string

const (
	KindNotNull              Kind = "not_null"
	KindUnique               Kind = "unique"
	KindRegex                Kind = "regex"
	KindRange                Kind = "range"
	KindAllowedValues        Kind = "allowed_values"
	KindReferentialIntegrity Kind = "referential_integrity"

	// Derived checks, produced by the schema validator and anomaly detector
	KindSchemaRequired Kind = "schema_required"
	KindSchemaType     Kind = "schema_type"
	KindAnomalyZScore  Kind = "anomaly_zscore"
)

// RuleKinds lists the kinds a configured rule may declare
var RuleKinds = []Kind{
	KindNotNull,
	KindUnique,
	KindRegex,
	KindRange,
	KindAllowedValues,
	KindReferentialIntegrity,
}

// IsRuleKind reports whether k may appear in rule configuration
func (k Kind) IsRuleKind() bool {
	for _, rk := range RuleKinds {
		if rk == k {
			return true
		}
	}
	return false
}

// Rule is a single declarative check: a kind, a target column and the
// kind-specific parameters. Rules are loaded once per run and never changed.
type Rule struct {
	ID         string        `yaml:"id" json:"id"`
	Dataset    string        `yaml:"dataset" json:"dataset"`
	Column     string        `yaml:"column" json:"column"`
	Kind       Kind          `yaml:"kind" json:"kind"`
	Pattern    string        `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Min        *float64      `yaml:"min,omitempty" json:"min,omitempty"`
	Max        *float64      `yaml:"max,omitempty" json:"max,omitempty"`
	Allowed    []interface{} `yaml:"allowed,omitempty" json:"allowed,omitempty"`
	References string        `yaml:"references,omitempty" json:"references,omitempty"` // "dataset.column"
	Severity   Severity      `yaml:"severity,omitempty" json:"severity,omitempty"`
}

// CheckID returns the rule identity used on outcomes
func (r Rule) CheckID() string {
	if r.ID != "" {
		return r.ID
	}
	return fmt.Sprintf("%s:%s.%s", r.Kind, r.Dataset, r.Column)
}

// Reference splits References into dataset and column
func (r Rule) Reference() (dataset, column string, err error) {
	return ParseColumnRef(r.References)
}

// ParseColumnRef parses a "dataset.column" reference
func ParseColumnRef(ref string) (dataset, column string, err error) {
	parts := strings.SplitN(strings.TrimSpace(ref), ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid column reference %q, expected dataset.column", ref)
	}
	return parts[0], parts[1], nil
}

// Relationship declares a parent/child foreign-key pair checked after all rules
type Relationship struct {
	ID     string `yaml:"id,omitempty" json:"id,omitempty"`
	Child  string `yaml:"child" json:"child"`   // "dataset.column"
	Parent string `yaml:"parent" json:"parent"` // "dataset.column"
}

// CheckID returns the relationship identity used on outcomes
func (r Relationship) CheckID() string {
	if r.ID != "" {
		return r.ID
	}
	return fmt.Sprintf("fk:%s->%s", r.Child, r.Parent)
}

// ColumnType is a declared schema type
type ColumnType string

const (
	TypeInt      ColumnType = "int"
	TypeFloat    ColumnType = "float"
	TypeString   ColumnType = "string"
	TypeBool     ColumnType = "bool"
	TypeDate     ColumnType = "date"
	TypeDatetime ColumnType = "datetime"
)

// IsNumeric reports whether values of the type are numbers
func (t ColumnType) IsNumeric() bool {
	return t == TypeInt || t == TypeFloat
}

// Valid reports whether the type is one of the known column types
func (t ColumnType) Valid() bool {
	switch t {
	case TypeInt, TypeFloat, TypeString, TypeBool, TypeDate, TypeDatetime:
		return true
	}
	return false
}

// ColumnSpec declares the expected type of a column and whether it must exist
type ColumnSpec struct {
	Type     ColumnType `yaml:"type" json:"type"`
	Required bool       `yaml:"required" json:"required"`
}

// SchemaContract is the expected column set of one dataset
type SchemaContract struct {
	Dataset string                `yaml:"-" json:"dataset"`
	Key     string                `yaml:"key,omitempty" json:"key,omitempty"`
	Columns map[string]ColumnSpec `yaml:"columns" json:"columns"`
}

// ColumnNames returns the contracted column names in sorted order
func (c SchemaContract) ColumnNames() []string {
	names := make([]string, 0, len(c.Columns))
	for name := range c.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AnomalySpec configures statistical outlier detection
type AnomalySpec struct {
	Method      string              `yaml:"method,omitempty" json:"method,omitempty"`
	Threshold   float64             `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	MinSamples  int                 `yaml:"min_samples,omitempty" json:"min_samples,omitempty"`
	MaxSample   int                 `yaml:"max_sample,omitempty" json:"max_sample,omitempty"`
	AutoNumeric bool                `yaml:"auto_numeric,omitempty" json:"auto_numeric,omitempty"`
	Columns     map[string][]string `yaml:"columns,omitempty" json:"columns,omitempty"`
}

// RuleSet is the full declarative check configuration of a run
type RuleSet struct {
	Rules         []Rule         `yaml:"rules" json:"rules"`
	Anomaly       AnomalySpec    `yaml:"anomaly" json:"anomaly"`
	Relationships []Relationship `yaml:"relationships" json:"relationships"`
}
