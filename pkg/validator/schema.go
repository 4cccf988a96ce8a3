// pkg/validator/schema.go
package validator

import (
	"fmt"

	"github.com/David-Botos/data-quality/pkg/converter"
	"github.com/David-Botos/data-quality/pkg/model"
)

// ValidateSchema checks a dataset against its contract. It always returns
// two outcomes: missing required columns first, then type mismatches, so
// both classes can be reported for the same dataset.
func ValidateSchema(ds *model.Dataset, contract model.SchemaContract, opts Options) []model.CheckOutcome {
	name := contract.Dataset
	required := newOutcome("schema_required:"+name, name, "", model.KindSchemaRequired)
	types := newOutcome("schema_type:"+name, name, "", model.KindSchemaType)

	if ds == nil {
		err := fmt.Errorf("%w: %s", ErrDatasetNotLoaded, name)
		return []model.CheckOutcome{configError(required, err), configError(types, err)}
	}

	return []model.CheckOutcome{
		checkRequired(ds, contract, required, opts),
		checkTypes(ds, contract, types, opts),
	}
}

func checkRequired(ds *model.Dataset, contract model.SchemaContract, outcome model.CheckOutcome, opts Options) model.CheckOutcome {
	s := newSampler(opts.sampleSize())
	missing, total := 0, 0
	for _, col := range contract.ColumnNames() {
		if !contract.Columns[col].Required {
			continue
		}
		total++
		if ds.HasColumn(col) {
			continue
		}
		missing++
		s.add(model.SampleEntry{Column: col, Detail: "missing required column"})
	}
	return finish(outcome, "missing_columns", missing, total, s)
}

func checkTypes(ds *model.Dataset, contract model.SchemaContract, outcome model.CheckOutcome, opts Options) model.CheckOutcome {
	s := newSampler(opts.sampleSize())
	mismatched, total := 0, 0
	for _, col := range contract.ColumnNames() {
		// absent columns are the required check's concern
		if !ds.HasColumn(col) {
			continue
		}
		expected := contract.Columns[col].Type
		for i := range ds.Records {
			v, ok := ds.Value(i, col)
			if !ok || converter.IsNull(v) {
				continue
			}
			total++
			if Compatible(v, expected) {
				continue
			}
			mismatched++
			s.add(model.SampleEntry{
				RowID:  ds.RowID(i),
				Column: col,
				Value:  converter.NormalizeValue(v),
				Detail: "expected " + string(expected),
			})
		}
	}
	return finish(outcome, "type_mismatches", mismatched, total, s)
}

// Compatible reports whether a non-null value conforms to a declared type.
// Numeric types accept numbers and numeric text, int additionally requires
// no fractional part. Bool accepts only the fixed literal set and dates must
// parse with one of the known layouts.
func Compatible(value interface{}, typ model.ColumnType) bool {
	value = converter.NormalizeValue(value)
	switch typ {
	case model.TypeInt:
		return converter.IsIntegral(value)
	case model.TypeFloat:
		_, err := converter.ToFloat(value)
		return err == nil
	case model.TypeString:
		return converter.IsText(value)
	case model.TypeBool:
		_, err := converter.ToBool(value)
		return err == nil
	case model.TypeDate, model.TypeDatetime:
		_, err := converter.ToTime(value)
		return err == nil
	}
	return false
}

// ContractColumns lists the contracted columns of the given types in
// sorted order
func ContractColumns(contract model.SchemaContract, match func(model.ColumnType) bool) []string {
	cols := make([]string, 0)
	for _, col := range contract.ColumnNames() {
		if match(contract.Columns[col].Type) {
			cols = append(cols, col)
		}
	}
	return cols
}
