package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/data-quality/pkg/model"
)

var ordersToCustomers = model.Relationship{Child: "orders.customer_id", Parent: "customers.customer_id"}

func TestCheckReferencesScenario(t *testing.T) {
	parent := column("customers", "customer_id", int64(1), int64(2), int64(3))
	child := column("orders", "customer_id", int64(1), int64(9999), nil, int64(2))

	out := CheckReferences(ordersToCustomers, child, parent, Options{})

	assert.Equal(t, model.StatusFail, out.Status)
	assert.Equal(t, model.KindReferentialIntegrity, out.Kind)
	assert.Equal(t, "orders", out.Dataset)
	assert.Equal(t, "customer_id", out.Column)
	assert.Equal(t, 1, out.FailedCount)
	assert.Equal(t, 3, out.TotalCount)
	require.Len(t, out.Sample, 1)
	assert.Equal(t, int64(9999), out.Sample[0].Value)
	assert.Equal(t, "row:1", out.Sample[0].RowID)
}

func TestCheckReferencesNullKeysExempt(t *testing.T) {
	parent := column("customers", "customer_id", int64(1))
	child := column("orders", "customer_id", nil, "", int64(1))

	out := CheckReferences(ordersToCustomers, child, parent, Options{})

	assert.Equal(t, model.StatusPass, out.Status)
	assert.Equal(t, 1, out.TotalCount)
}

func TestCheckReferencesIgnoresDuplicateParentKeys(t *testing.T) {
	child := column("orders", "customer_id", int64(1), int64(2), int64(3))
	withDupes := column("customers", "customer_id", int64(1), int64(1), int64(2))
	distinct := column("customers", "customer_id", int64(1), int64(2))

	a := CheckReferences(ordersToCustomers, child, withDupes, Options{})
	b := CheckReferences(ordersToCustomers, child, distinct, Options{})

	assert.Equal(t, a, b)
	assert.Equal(t, 1, a.FailedCount)
}

func TestCheckReferencesComparesNumbersByValue(t *testing.T) {
	parent := column("customers", "customer_id", int64(1), int64(2))
	// JSON sources decode numbers as float64
	child := column("web_events", "customer_id", float64(1), 2.0, "1")
	rel := model.Relationship{Child: "web_events.customer_id", Parent: "customers.customer_id"}

	out := CheckReferences(rel, child, parent, Options{})

	require.Equal(t, 1, out.FailedCount)
	assert.Equal(t, "1", out.Sample[0].Value)
	assert.Equal(t, "fk:web_events.customer_id->customers.customer_id", out.CheckID)
}

func TestCheckReferencesConfigErrors(t *testing.T) {
	parent := column("customers", "customer_id", int64(1))
	child := column("orders", "customer_id", int64(1))

	tests := []struct {
		name   string
		rel    model.Relationship
		child  *model.Dataset
		parent *model.Dataset
		want   error
	}{
		{"bad child ref", model.Relationship{Child: "orders", Parent: "customers.customer_id"}, child, parent, ErrInvalidRule},
		{"bad parent ref", model.Relationship{Child: "orders.customer_id", Parent: "customers."}, child, parent, ErrInvalidRule},
		{"missing child", ordersToCustomers, nil, parent, ErrDatasetNotLoaded},
		{"missing parent", ordersToCustomers, child, nil, ErrDatasetNotLoaded},
		{"missing key column", model.Relationship{Child: "orders.customer_id", Parent: "customers.id"}, child, parent, ErrColumnNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := CheckReferences(tt.rel, tt.child, tt.parent, Options{})
			assert.Equal(t, model.StatusConfigError, out.Status)
			assert.Contains(t, out.Error, tt.want.Error())
		})
	}
}

func TestReferentialRuleDelegates(t *testing.T) {
	refs := Datasets{
		"customers": column("customers", "customer_id", int64(1), int64(2)),
	}
	orders := column("orders", "customer_id", int64(1), int64(9999))
	rule := model.Rule{
		Dataset:    "orders",
		Column:     "customer_id",
		Kind:       model.KindReferentialIntegrity,
		References: "customers.customer_id",
	}

	out := Evaluate(orders, rule, refs, Options{})

	assert.Equal(t, "referential_integrity:orders.customer_id", out.CheckID)
	assert.Equal(t, 1, out.FailedCount)
	assert.Equal(t, "orphan_count", out.Metric)
}

func TestDatasetsTreatsNilAsNotLoaded(t *testing.T) {
	refs := Datasets{"customers": nil}
	_, ok := refs.Dataset("customers")
	assert.False(t, ok)
}
