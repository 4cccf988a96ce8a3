// pkg/config/rules.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/David-Botos/data-quality/pkg/model"
)

var (
	// ErrInvalidRules is returned when the rule file cannot be used at all
	ErrInvalidRules = errors.New("invalid rule configuration")
	// ErrInvalidSchema is returned for malformed schema contracts
	ErrInvalidSchema = errors.New("invalid schema configuration")
	// ErrInvalidPolicy is returned for malformed severity or SLA settings
	ErrInvalidPolicy = errors.New("invalid severity policy")
)

// Anomaly detection defaults
const (
	DefaultAnomalyMethod     = "zscore"
	DefaultAnomalyThreshold  = 3.0
	DefaultAnomalyMinSamples = 2
	DefaultAnomalyMaxSample  = 20
)

// LoadRuleSet reads the rule file. Rules that reference unknown datasets or
// columns are kept: they surface as configuration-error outcomes at run
// time. Only unreadable files, duplicate ids and malformed severities are
// rejected here.
func LoadRuleSet(path string) (*model.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}
	return ParseRuleSet(data)
}

// ParseRuleSet decodes rule configuration from YAML
func ParseRuleSet(data []byte) (*model.RuleSet, error) {
	var rs model.RuleSet
	if err := decodeStrict(data, &rs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}

	seen := make(map[string]bool)
	for i := range rs.Rules {
		rs.Rules[i].Kind = model.Kind(strings.ToLower(string(rs.Rules[i].Kind)))
		rule := rs.Rules[i]
		id := rule.CheckID()
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate rule id %q", ErrInvalidRules, id)
		}
		seen[id] = true

		if rule.Severity != "" && !rule.Severity.Valid() {
			return nil, fmt.Errorf("%w: rule %s has unknown severity %q", ErrInvalidPolicy, id, rule.Severity)
		}
	}

	applyAnomalyDefaults(&rs.Anomaly)
	if rs.Anomaly.Threshold <= 0 {
		return nil, fmt.Errorf("%w: anomaly threshold must be positive", ErrInvalidRules)
	}
	if rs.Anomaly.Method != "zscore" && rs.Anomaly.Method != "robust_zscore" {
		return nil, fmt.Errorf("%w: unknown anomaly method %q", ErrInvalidRules, rs.Anomaly.Method)
	}

	return &rs, nil
}

func applyAnomalyDefaults(spec *model.AnomalySpec) {
	if spec.Method == "" {
		spec.Method = DefaultAnomalyMethod
	}
	if spec.Threshold == 0 {
		spec.Threshold = DefaultAnomalyThreshold
	}
	if spec.MinSamples <= 0 {
		spec.MinSamples = DefaultAnomalyMinSamples
	}
	if spec.MaxSample <= 0 {
		spec.MaxSample = DefaultAnomalyMaxSample
	}
}

// schemaEntry is the on-disk form of a contract. Columns may be listed in
// the short form (required/optional maps of column -> type) or the long
// form (columns map of column -> spec).
type schemaEntry struct {
	Key      string                      `yaml:"key"`
	Required map[string]model.ColumnType `yaml:"required"`
	Optional map[string]model.ColumnType `yaml:"optional"`
	Columns  map[string]model.ColumnSpec `yaml:"columns"`
}

// LoadSchema reads schema contracts. A missing file yields no contracts.
func LoadSchema(path string) (map[string]model.SchemaContract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]model.SchemaContract{}, nil
		}
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	return ParseSchema(data)
}

// ParseSchema decodes schema contracts from YAML
func ParseSchema(data []byte) (map[string]model.SchemaContract, error) {
	raw := make(map[string]schemaEntry)
	if err := decodeStrict(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	contracts := make(map[string]model.SchemaContract, len(raw))
	for dataset, entry := range raw {
		contract := model.SchemaContract{
			Dataset: dataset,
			Key:     entry.Key,
			Columns: make(map[string]model.ColumnSpec),
		}
		for col, typ := range entry.Optional {
			contract.Columns[col] = model.ColumnSpec{Type: typ}
		}
		for col, typ := range entry.Required {
			contract.Columns[col] = model.ColumnSpec{Type: typ, Required: true}
		}
		for col, spec := range entry.Columns {
			contract.Columns[col] = spec
		}
		for col, spec := range contract.Columns {
			spec.Type = normalizeType(spec.Type)
			if !spec.Type.Valid() {
				return nil, fmt.Errorf("%w: %s.%s has unknown type %q", ErrInvalidSchema, dataset, col, spec.Type)
			}
			contract.Columns[col] = spec
		}
		contracts[dataset] = contract
	}
	return contracts, nil
}

func normalizeType(t model.ColumnType) model.ColumnType {
	switch strings.ToLower(string(t)) {
	case "integer", "bigint":
		return model.TypeInt
	case "number", "numeric", "double", "decimal":
		return model.TypeFloat
	case "text", "str":
		return model.TypeString
	case "boolean":
		return model.TypeBool
	case "timestamp":
		return model.TypeDatetime
	}
	return model.ColumnType(strings.ToLower(string(t)))
}

// profileFile is the on-disk form of the severity/SLA profile
type profileFile struct {
	DefaultSeverity model.Severity            `yaml:"default_severity"`
	SeverityMap     map[string]model.Severity `yaml:"severity_map"`
	RuleSeverity    map[string]model.Severity `yaml:"rule_severity"`
	SLA             struct {
		MinPassRate         *float64 `yaml:"min_pass_rate"`
		MaxCriticalFailures *int     `yaml:"max_critical_failures"`
	} `yaml:"sla"`
}

// kindAliases maps the short check names used in profiles onto kinds
var kindAliases = map[string]model.Kind{
	"allowed":        model.KindAllowedValues,
	"fk":             model.KindReferentialIntegrity,
	"anomaly":        model.KindAnomalyZScore,
	"not_null":       model.KindNotNull,
	"unique":         model.KindUnique,
	"regex":          model.KindRegex,
	"range":          model.KindRange,
	"allowed_values": model.KindAllowedValues,
}

// LoadPolicy reads the severity/SLA profile over the defaults. A missing
// file yields the default policy. The result is validated before return.
func LoadPolicy(path string) (model.SeverityPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.DefaultPolicy(), nil
		}
		return model.SeverityPolicy{}, fmt.Errorf("failed to read profile file %s: %w", path, err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a severity/SLA profile from YAML
func ParsePolicy(data []byte) (model.SeverityPolicy, error) {
	var pf profileFile
	if err := decodeStrict(data, &pf); err != nil {
		return model.SeverityPolicy{}, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}

	policy := model.DefaultPolicy()
	if pf.DefaultSeverity != "" {
		policy.DefaultSeverity = pf.DefaultSeverity
	}
	for name, sev := range pf.SeverityMap {
		kind, err := resolveKind(name)
		if err != nil {
			return model.SeverityPolicy{}, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
		}
		policy.Kinds[kind] = sev
	}
	for id, sev := range pf.RuleSeverity {
		policy.Rules[id] = sev
	}
	if pf.SLA.MinPassRate != nil {
		policy.SLA.MinPassRate = *pf.SLA.MinPassRate
	}
	if pf.SLA.MaxCriticalFailures != nil {
		policy.SLA.MaxCriticalFailures = *pf.SLA.MaxCriticalFailures
	}

	if err := policy.Validate(); err != nil {
		return model.SeverityPolicy{}, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	return policy, nil
}

func resolveKind(name string) (model.Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if kind, ok := kindAliases[name]; ok {
		return kind, nil
	}
	switch kind := model.Kind(name); kind {
	case model.KindReferentialIntegrity, model.KindSchemaRequired, model.KindSchemaType,
		model.KindAnomalyZScore:
		return kind, nil
	}
	return "", fmt.Errorf("unknown check kind %q in severity_map", name)
}

// decodeStrict decodes YAML rejecting unknown fields. Empty documents
// decode to the zero value.
func decodeStrict(data []byte, out interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
