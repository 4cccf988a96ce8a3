// pkg/validator/referential.go
package validator

import (
	"fmt"

	"github.com/David-Botos/data-quality/pkg/converter"
	"github.com/David-Botos/data-quality/pkg/model"
)

// CheckReferences fails every child record whose foreign key does not
// appear among the parent's key values. Null foreign keys are exempt. The
// parent key set is built once per call and holds distinct values only.
func CheckReferences(rel model.Relationship, child, parent *model.Dataset, opts Options) model.CheckOutcome {
	childName, fkColumn, childErr := model.ParseColumnRef(rel.Child)
	outcome := newOutcome(rel.CheckID(), childName, fkColumn, model.KindReferentialIntegrity)
	if childErr != nil {
		return configError(outcome, fmt.Errorf("%w: %v", ErrInvalidRule, childErr))
	}
	parentName, keyColumn, err := model.ParseColumnRef(rel.Parent)
	if err != nil {
		return configError(outcome, fmt.Errorf("%w: %v", ErrInvalidRule, err))
	}
	if err := requireColumn(child, childName, fkColumn); err != nil {
		return configError(outcome, err)
	}
	if err := requireColumn(parent, parentName, keyColumn); err != nil {
		return configError(outcome, err)
	}

	keys := parentKeys(parent, keyColumn)

	s := newSampler(opts.sampleSize())
	failed, total := 0, 0
	for i := range child.Records {
		v, ok := child.Value(i, fkColumn)
		if !ok || converter.IsNull(v) {
			continue
		}
		total++
		if _, found := keys[converter.Key(v)]; !found {
			failed++
			s.add(model.SampleEntry{
				RowID:  child.RowID(i),
				Column: fkColumn,
				Value:  converter.NormalizeValue(v),
				Detail: "missing in " + rel.Parent,
			})
		}
	}
	return finish(outcome, "orphan_count", failed, total, s)
}

// parentKeys returns the distinct non-null key values of a column
func parentKeys(parent *model.Dataset, column string) map[string]struct{} {
	keys := make(map[string]struct{}, parent.Len())
	for i := range parent.Records {
		v, ok := parent.Value(i, column)
		if !ok || converter.IsNull(v) {
			continue
		}
		keys[converter.Key(v)] = struct{}{}
	}
	return keys
}
