package viz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askdb/askdb/internal/execute"
)

func resultWith(columns []execute.Column, rowCount int) *execute.Result {
	rows := make([][]any, rowCount)
	for i := range rows {
		rows[i] = make([]any, len(columns))
	}

	return &execute.Result{Columns: columns, Rows: rows, RowCount: rowCount}
}

func TestSelect_TimeSeriesForTimeAndNumeric(t *testing.T) {
	result := resultWith([]execute.Column{
		{Name: "month", Type: execute.TypeTime},
		{Name: "total_deposits", Type: execute.TypeNumber},
	}, 12)

	spec := NewSelector(500).Select(result)

	assert.Equal(t, KindTimeSeries, spec.Kind)
	assert.Equal(t, "month", spec.XField)
	assert.Equal(t, []string{"total_deposits"}, spec.YFields)
}

func TestSelect_BarForCategoricalAndNumeric(t *testing.T) {
	result := resultWith([]execute.Column{
		{Name: "city", Type: execute.TypeText},
		{Name: "avg_balance", Type: execute.TypeNumber},
	}, 8)

	spec := NewSelector(500).Select(result)

	assert.Equal(t, KindBar, spec.Kind)
	assert.Equal(t, "city", spec.XField)
	assert.Equal(t, []string{"avg_balance"}, spec.YFields)
}

func TestSelect_TimeWinsOverCategory(t *testing.T) {
	result := resultWith([]execute.Column{
		{Name: "branch", Type: execute.TypeText},
		{Name: "day", Type: execute.TypeTime},
		{Name: "volume", Type: execute.TypeNumber},
	}, 30)

	spec := NewSelector(500).Select(result)

	assert.Equal(t, KindTimeSeries, spec.Kind)
	assert.Equal(t, "day", spec.XField)
}

func TestSelect_LineForNumericPair(t *testing.T) {
	result := resultWith([]execute.Column{
		{Name: "loan_amount", Type: execute.TypeNumber},
		{Name: "interest_rate", Type: execute.TypeNumber},
	}, 50)

	spec := NewSelector(500).Select(result)

	assert.Equal(t, KindLine, spec.Kind)
	assert.Equal(t, "loan_amount", spec.XField)
	assert.Equal(t, []string{"interest_rate"}, spec.YFields)
}

func TestSelect_TableFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		columns []execute.Column
		rows    int
		limit   int
	}{
		{
			name:    "single row",
			columns: []execute.Column{{Name: "total", Type: execute.TypeNumber}},
			rows:    1,
			limit:   500,
		},
		{
			name:    "empty result",
			columns: []execute.Column{{Name: "name", Type: execute.TypeText}},
			rows:    0,
			limit:   500,
		},
		{
			name: "over row limit",
			columns: []execute.Column{
				{Name: "city", Type: execute.TypeText},
				{Name: "balance", Type: execute.TypeNumber},
			},
			rows:  1000,
			limit: 500,
		},
		{
			name: "text only",
			columns: []execute.Column{
				{Name: "name", Type: execute.TypeText},
				{Name: "email", Type: execute.TypeText},
			},
			rows:  10,
			limit: 500,
		},
		{
			name:    "single numeric column",
			columns: []execute.Column{{Name: "balance", Type: execute.TypeNumber}},
			rows:    10,
			limit:   500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := NewSelector(tt.limit).Select(resultWith(tt.columns, tt.rows))
			assert.Equal(t, KindTable, spec.Kind)
			assert.NotEmpty(t, spec.Rationale)
		})
	}
}

func TestSelect_NilResultIsTable(t *testing.T) {
	spec := NewSelector(500).Select(nil)
	assert.Equal(t, KindTable, spec.Kind)
}

func TestSelect_Deterministic(t *testing.T) {
	result := resultWith([]execute.Column{
		{Name: "category", Type: execute.TypeText},
		{Name: "count", Type: execute.TypeNumber},
	}, 5)

	selector := NewSelector(500)
	first := selector.Select(result)

	for i := 0; i < 50; i++ {
		assert.Equal(t, first, selector.Select(result))
	}
}
