// pkg/model/dataset.go
package model

import (
	"fmt"
	"sort"
	"strings"
)

// Record is a single row of a dataset keyed by column name
type Record map[string]interface{}

// Dataset is a named collection of records sharing a column set.
// Checks read datasets but never modify them.
type Dataset struct {
	Name      string   // Dataset name, e.g. "customers"
	Columns   []string // Ordered column set
	Records   []Record // Row data
	KeyColumn string   // Column used to identify rows in samples (optional)
}

// NewDataset builds a dataset and derives the column set from the records
// when no explicit columns are given. Keys are collected record by record,
// sorted within each record.
func NewDataset(name string, columns []string, records []Record) *Dataset {
	if len(columns) == 0 {
		columns = collectColumns(records)
	}
	return &Dataset{
		Name:    name,
		Columns: columns,
		Records: records,
	}
}

// WithKey sets the identifier column and returns the dataset
func (d *Dataset) WithKey(column string) *Dataset {
	d.KeyColumn = column
	return d
}

// Len returns the number of records
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// HasColumn reports whether the column belongs to the dataset's column set
func (d *Dataset) HasColumn(name string) bool {
	for _, col := range d.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// Value returns the value of a column in a row. The second result is false
// when the record does not carry the column at all.
func (d *Dataset) Value(row int, column string) (interface{}, bool) {
	v, ok := d.Records[row][column]
	return v, ok
}

// RowID identifies a row for diagnostics: the key column value when set and
// present, otherwise the row position.
func (d *Dataset) RowID(row int) string {
	if d.KeyColumn != "" {
		if v, ok := d.Records[row][d.KeyColumn]; ok && v != nil {
			s := strings.TrimSpace(fmt.Sprintf("%v", v))
			if s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("row:%d", row)
}

func collectColumns(records []Record) []string {
	seen := make(map[string]bool)
	columns := make([]string, 0)
	for _, rec := range records {
		// map iteration order is random, so sort each record's new keys
		fresh := make([]string, 0)
		for k := range rec {
			if !seen[k] {
				fresh = append(fresh, k)
			}
		}
		sort.Strings(fresh)
		for _, k := range fresh {
			seen[k] = true
			columns = append(columns, k)
		}
	}
	return columns
}
