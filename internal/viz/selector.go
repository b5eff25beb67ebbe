package viz

import (
	"fmt"

	"github.com/askdb/askdb/internal/execute"
)

// ChartKind names one of the supported presentation forms
type ChartKind string

const (
	KindBar        ChartKind = "bar"
	KindLine       ChartKind = "line"
	KindTimeSeries ChartKind = "timeSeries"
	KindTable      ChartKind = "table"
)

// ChartSpec describes how a result should be presented. It carries field
// names rather than rendered output so callers can target any frontend.
type ChartSpec struct {
	Kind      ChartKind `json:"kind"`
	XField    string    `json:"x_field,omitempty"`
	YFields   []string  `json:"y_fields,omitempty"`
	Rationale string    `json:"rationale"`
}

// Selector picks a chart form for a query result. Selection is a pure
// function of the result shape: the same result always yields the same spec.
type Selector struct {
	rowLimit int
}

// NewSelector creates a selector. Results with more than rowLimit rows fall
// back to a table; a non-positive limit disables the cap.
func NewSelector(rowLimit int) *Selector {
	return &Selector{rowLimit: rowLimit}
}

// Select chooses a chart spec for the given result
func (s *Selector) Select(result *execute.Result) ChartSpec {
	if result == nil || result.RowCount <= 1 {
		return ChartSpec{
			Kind:      KindTable,
			Rationale: "too few rows to chart",
		}
	}

	if s.rowLimit > 0 && result.RowCount > s.rowLimit {
		return ChartSpec{
			Kind:      KindTable,
			Rationale: fmt.Sprintf("result exceeds %d rows", s.rowLimit),
		}
	}

	timeFields := fieldsOfType(result, execute.TypeTime)
	numberFields := fieldsOfType(result, execute.TypeNumber)
	categoryFields := fieldsOfType(result, execute.TypeText)
	categoryFields = append(categoryFields, fieldsOfType(result, execute.TypeBool)...)

	switch {
	case len(timeFields) >= 1 && len(numberFields) >= 1:
		return ChartSpec{
			Kind:      KindTimeSeries,
			XField:    timeFields[0],
			YFields:   numberFields,
			Rationale: "time column with numeric measures",
		}
	case len(categoryFields) >= 1 && len(numberFields) >= 1:
		return ChartSpec{
			Kind:      KindBar,
			XField:    categoryFields[0],
			YFields:   numberFields,
			Rationale: "categorical column with numeric measures",
		}
	case len(numberFields) >= 2:
		return ChartSpec{
			Kind:      KindLine,
			XField:    numberFields[0],
			YFields:   numberFields[1:],
			Rationale: "numeric columns over a numeric axis",
		}
	default:
		return ChartSpec{
			Kind:      KindTable,
			Rationale: "no chartable column combination",
		}
	}
}

// fieldsOfType returns column names of the given type, in column order
func fieldsOfType(result *execute.Result, t execute.ValueType) []string {
	var names []string

	for _, col := range result.Columns {
		if col.Type == t {
			names = append(names, col.Name)
		}
	}

	return names
}
