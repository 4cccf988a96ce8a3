// pkg/validator/evaluator.go
package validator

import (
	"fmt"
	"regexp"

	"github.com/David-Botos/data-quality/pkg/converter"
	"github.com/David-Botos/data-quality/pkg/model"
)

// evaluation carries the inputs of one rule evaluation
type evaluation struct {
	ds      *model.Dataset
	rule    model.Rule
	refs    Resolver
	opts    Options
	outcome model.CheckOutcome
	sample  *sampler
}

// ruleFunc evaluates one rule kind. A returned error means the rule could
// not run and becomes a configuration-error outcome.
type ruleFunc func(ev *evaluation) (model.CheckOutcome, error)

// evaluators holds exactly one function per rule kind
var evaluators = map[model.Kind]ruleFunc{
	model.KindNotNull:              evalNotNull,
	model.KindUnique:               evalUnique,
	model.KindRegex:                evalRegex,
	model.KindRange:                evalRange,
	model.KindAllowedValues:        evalAllowedValues,
	model.KindReferentialIntegrity: evalReferential,
}

// Evaluate runs one rule against its dataset and returns one outcome. The
// dataset is only read. Severity is left for the caller to resolve.
func Evaluate(ds *model.Dataset, rule model.Rule, refs Resolver, opts Options) model.CheckOutcome {
	outcome := newOutcome(rule.CheckID(), rule.Dataset, rule.Column, rule.Kind)

	fn, ok := evaluators[rule.Kind]
	if !ok {
		return configError(outcome, fmt.Errorf("%w: %q", ErrUnknownKind, rule.Kind))
	}
	if err := requireColumn(ds, rule.Dataset, rule.Column); err != nil {
		return configError(outcome, err)
	}

	ev := &evaluation{
		ds:      ds,
		rule:    rule,
		refs:    refs,
		opts:    opts,
		outcome: outcome,
		sample:  newSampler(opts.sampleSize()),
	}
	result, err := fn(ev)
	if err != nil {
		return configError(outcome, err)
	}
	return result
}

// evalNotNull fails every record whose column is absent or empty
func evalNotNull(ev *evaluation) (model.CheckOutcome, error) {
	col := ev.rule.Column
	failed := 0
	for i := range ev.ds.Records {
		v, ok := ev.ds.Value(i, col)
		if ok && !converter.IsNull(v) {
			continue
		}
		failed++
		ev.sample.add(model.SampleEntry{RowID: ev.ds.RowID(i), Column: col, Value: v})
	}
	return finish(ev.outcome, "fail_count", failed, ev.ds.Len(), ev.sample), nil
}

type valueGroup struct {
	value interface{}
	row   int
	count int
}

// evalUnique counts groups of duplicated non-null values. The sample holds
// one entry per duplicate group.
func evalUnique(ev *evaluation) (model.CheckOutcome, error) {
	col := ev.rule.Column
	groups := make(map[string]*valueGroup)
	order := make([]string, 0)

	for i := range ev.ds.Records {
		v, ok := ev.ds.Value(i, col)
		if !ok || converter.IsNull(v) {
			continue
		}
		key := converter.Key(v)
		if g, seen := groups[key]; seen {
			g.count++
			continue
		}
		groups[key] = &valueGroup{value: converter.NormalizeValue(v), row: i, count: 1}
		order = append(order, key)
	}

	duplicates := 0
	for _, key := range order {
		g := groups[key]
		if g.count < 2 {
			continue
		}
		duplicates++
		ev.sample.add(model.SampleEntry{
			RowID:       ev.ds.RowID(g.row),
			Column:      col,
			Value:       g.value,
			Occurrences: g.count,
		})
	}
	return finish(ev.outcome, "duplicate_groups", duplicates, len(order), ev.sample), nil
}

// evalRegex fails every record whose value as text does not fully match the
// pattern. Missing values fail.
func evalRegex(ev *evaluation) (model.CheckOutcome, error) {
	if ev.rule.Pattern == "" {
		return ev.outcome, fmt.Errorf("%w: regex rule %s has no pattern", ErrInvalidRule, ev.rule.CheckID())
	}
	re, err := regexp.Compile(`^(?:` + ev.rule.Pattern + `)$`)
	if err != nil {
		return ev.outcome, fmt.Errorf("%w: bad pattern for %s: %v", ErrInvalidRule, ev.rule.CheckID(), err)
	}

	col := ev.rule.Column
	failed := 0
	for i := range ev.ds.Records {
		v, ok := ev.ds.Value(i, col)
		if !ok || converter.IsNull(v) {
			failed++
			ev.sample.add(model.SampleEntry{RowID: ev.ds.RowID(i), Column: col, Value: v, Detail: "missing"})
			continue
		}
		if !re.MatchString(converter.ToText(v)) {
			failed++
			ev.sample.add(model.SampleEntry{RowID: ev.ds.RowID(i), Column: col, Value: converter.NormalizeValue(v)})
		}
	}
	return finish(ev.outcome, "fail_count", failed, ev.ds.Len(), ev.sample), nil
}

// evalRange fails values outside the closed interval [min, max]. Numeric
// text is read as a number, other non-numeric values fail and missing
// values are skipped.
func evalRange(ev *evaluation) (model.CheckOutcome, error) {
	lo, hi := ev.rule.Min, ev.rule.Max
	if lo == nil && hi == nil {
		return ev.outcome, fmt.Errorf("%w: range rule %s needs min or max", ErrInvalidRule, ev.rule.CheckID())
	}
	if lo != nil && hi != nil && *lo > *hi {
		return ev.outcome, fmt.Errorf("%w: range rule %s has min %v above max %v", ErrInvalidRule, ev.rule.CheckID(), *lo, *hi)
	}

	col := ev.rule.Column
	failed, total := 0, 0
	for i := range ev.ds.Records {
		v, ok := ev.ds.Value(i, col)
		if !ok || converter.IsNull(v) {
			continue
		}
		total++

		f, err := converter.ToFloat(v)
		if err != nil {
			failed++
			ev.sample.add(model.SampleEntry{RowID: ev.ds.RowID(i), Column: col, Value: converter.NormalizeValue(v), Detail: "non-numeric"})
			continue
		}
		if (lo != nil && f < *lo) || (hi != nil && f > *hi) {
			failed++
			ev.sample.add(model.SampleEntry{RowID: ev.ds.RowID(i), Column: col, Value: converter.NormalizeValue(v), Detail: "out of range"})
		}
	}
	return finish(ev.outcome, "fail_count", failed, total, ev.sample), nil
}

// evalAllowedValues fails values outside the allowed set. Matching is exact
// and case-sensitive; a value of another type never matches. Missing values
// fail.
func evalAllowedValues(ev *evaluation) (model.CheckOutcome, error) {
	if len(ev.rule.Allowed) == 0 {
		return ev.outcome, fmt.Errorf("%w: allowed_values rule %s has an empty set", ErrInvalidRule, ev.rule.CheckID())
	}
	allowed := make(map[string]bool, len(ev.rule.Allowed))
	for _, a := range ev.rule.Allowed {
		if converter.IsNull(a) {
			continue
		}
		allowed[converter.Key(a)] = true
	}

	col := ev.rule.Column
	failed := 0
	for i := range ev.ds.Records {
		v, ok := ev.ds.Value(i, col)
		if !ok || converter.IsNull(v) {
			failed++
			ev.sample.add(model.SampleEntry{RowID: ev.ds.RowID(i), Column: col, Value: v, Detail: "missing"})
			continue
		}
		if !allowed[converter.Key(v)] {
			failed++
			ev.sample.add(model.SampleEntry{RowID: ev.ds.RowID(i), Column: col, Value: converter.NormalizeValue(v)})
		}
	}
	return finish(ev.outcome, "fail_count", failed, ev.ds.Len(), ev.sample), nil
}

// evalReferential resolves the referenced dataset and delegates to the
// referential integrity checker
func evalReferential(ev *evaluation) (model.CheckOutcome, error) {
	parentName, _, err := ev.rule.Reference()
	if err != nil {
		return ev.outcome, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	var parent *model.Dataset
	if ev.refs != nil {
		parent, _ = ev.refs.Dataset(parentName)
	}

	rel := model.Relationship{
		ID:     ev.rule.CheckID(),
		Child:  ev.rule.Dataset + "." + ev.rule.Column,
		Parent: ev.rule.References,
	}
	return CheckReferences(rel, ev.ds, parent, ev.opts), nil
}
