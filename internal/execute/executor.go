package execute

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/logging"
)

// ValueType is the inferred type of a result column, used by the
// visualization selector.
type ValueType string

const (
	TypeNumber ValueType = "number"
	TypeText   ValueType = "text"
	TypeTime   ValueType = "time"
	TypeBool   ValueType = "bool"
)

// Column describes one column of a query result
type Column struct {
	Name string    `json:"name"`
	Type ValueType `json:"type"`
}

// Result holds the tabular outcome of one admitted query. It is immutable
// once produced.
type Result struct {
	Columns   []Column `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated"`
}

// Limits bounds one query run
type Limits struct {
	MaxRows int
	Timeout time.Duration
}

// Executor runs admitted queries against the store. The connection it is
// given must be opened read-only: the engine enforces the read-only contract
// independently of the validator.
type Executor struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewExecutor creates an executor over the given (read-only) connection
func NewExecutor(db *sql.DB) *Executor {
	return &Executor{
		db:     db,
		logger: logging.GetLogger(),
	}
}

// Execute runs one admitted SQL statement with bounded time and row limits.
// Engine errors are passed through verbatim so the caller can see why a
// structurally valid query still failed.
func (e *Executor) Execute(ctx context.Context, sqlText string, limits Limits) (*Result, error) {
	if limits.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.Timeout)
		defer cancel()
	}

	start := time.Now()

	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, classifyError(ctx, err)
	}
	defer rows.Close()

	columnNames, err := rows.Columns()
	if err != nil {
		return nil, classifyError(ctx, err)
	}

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, classifyError(ctx, err)
	}

	result := &Result{
		Columns: make([]Column, len(columnNames)),
	}

	for i, name := range columnNames {
		result.Columns[i] = Column{
			Name: name,
			Type: inferDeclaredType(columnTypes[i].DatabaseTypeName()),
		}
	}

	for rows.Next() {
		if limits.MaxRows > 0 && result.RowCount >= limits.MaxRows {
			result.Truncated = true
			break
		}

		values := make([]any, len(columnNames))
		pointers := make([]any, len(columnNames))

		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, classifyError(ctx, err)
		}

		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}

		result.Rows = append(result.Rows, values)
		result.RowCount++
	}

	if err := rows.Err(); err != nil {
		return nil, classifyError(ctx, err)
	}

	// Drivers without type metadata leave columns untyped; fall back to
	// inspecting the first row of values.
	refineColumnTypes(result)

	e.logger.WithFields(map[string]interface{}{
		"rows":      result.RowCount,
		"truncated": result.Truncated,
		"duration":  time.Since(start).String(),
	}).Debug("query executed")

	return result, nil
}

// classifyError separates timeout failures from engine failures. The engine
// message is never swallowed or re-interpreted.
func classifyError(ctx context.Context, err error) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) ||
		stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.ErrTypeExecutionTimeout, "query exceeded timeout")
	}

	return errors.Wrap(err, errors.ErrTypeExecution, "query execution failed")
}

// inferDeclaredType maps an engine type name onto a selector value type
func inferDeclaredType(dbType string) ValueType {
	t := strings.ToUpper(dbType)

	switch {
	case t == "":
		return TypeText
	case strings.Contains(t, "INT"),
		strings.Contains(t, "DOUBLE"),
		strings.Contains(t, "FLOAT"),
		strings.Contains(t, "DECIMAL"),
		strings.Contains(t, "NUMERIC"),
		strings.Contains(t, "REAL"):
		return TypeNumber
	case strings.Contains(t, "TIMESTAMP"),
		strings.Contains(t, "DATE"),
		strings.Contains(t, "TIME"):
		return TypeTime
	case strings.Contains(t, "BOOL"):
		return TypeBool
	default:
		return TypeText
	}
}

// refineColumnTypes upgrades text-typed columns by inspecting scanned values
func refineColumnTypes(result *Result) {
	if len(result.Rows) == 0 {
		return
	}

	for i := range result.Columns {
		if result.Columns[i].Type != TypeText {
			continue
		}

		for _, row := range result.Rows {
			if row[i] == nil {
				continue
			}

			result.Columns[i].Type = inferValueType(row[i])

			break
		}
	}
}

// inferValueType infers a selector value type from a scanned Go value
func inferValueType(v any) ValueType {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return TypeNumber
	case time.Time:
		return TypeTime
	case bool:
		return TypeBool
	default:
		return TypeText
	}
}
