package execute

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb/askdb/internal/errors"
)

func TestExecute_ReturnsRowsAndColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"city", "total"}).
		AddRow("Mumbai", 12500.50).
		AddRow("Delhi", 9800.00)

	mock.ExpectQuery("SELECT city, SUM").WillReturnRows(rows)

	executor := NewExecutor(db)
	result, err := executor.Execute(context.Background(),
		"SELECT city, SUM(balance) AS total FROM accounts GROUP BY city",
		Limits{MaxRows: 100, Timeout: time.Second})

	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)
	assert.False(t, result.Truncated)
	require.Len(t, result.Columns, 2)
	assert.Equal(t, "city", result.Columns[0].Name)
	assert.Equal(t, "total", result.Columns[1].Name)
	assert.Equal(t, [][]any{
		{"Mumbai", 12500.50},
		{"Delhi", 9800.00},
	}, result.Rows)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_TruncatesAtMaxRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id"})
	for i := 1; i <= 5; i++ {
		rows.AddRow(i)
	}

	mock.ExpectQuery("SELECT id").WillReturnRows(rows)

	executor := NewExecutor(db)
	result, err := executor.Execute(context.Background(),
		"SELECT id FROM customers", Limits{MaxRows: 3, Timeout: time.Second})

	require.NoError(t, err)
	assert.Equal(t, 3, result.RowCount)
	assert.Len(t, result.Rows, 3)
	assert.True(t, result.Truncated)
}

func TestExecute_EmptyResultNotTruncated(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"name"}))

	executor := NewExecutor(db)
	result, err := executor.Execute(context.Background(),
		"SELECT name FROM customers WHERE 1=0",
		Limits{MaxRows: 10, Timeout: time.Second})

	require.NoError(t, err)
	assert.Equal(t, 0, result.RowCount)
	assert.False(t, result.Truncated)
	assert.Len(t, result.Columns, 1)
}

func TestExecute_EngineErrorPassedThroughVerbatim(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").
		WillReturnError(assertableError("Binder Error: column \"citty\" not found"))

	executor := NewExecutor(db)
	result, err := executor.Execute(context.Background(),
		"SELECT citty FROM accounts", Limits{MaxRows: 10, Timeout: time.Second})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.IsType(err, errors.ErrTypeExecution))
	assert.Contains(t, err.Error(), "Binder Error: column \"citty\" not found")
}

func TestExecute_DeadlineBecomesTimeoutError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").
		WillDelayFor(200 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	executor := NewExecutor(db)
	_, err = executor.Execute(context.Background(),
		"SELECT id FROM transactions", Limits{MaxRows: 10, Timeout: 20 * time.Millisecond})

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeExecutionTimeout))
}

func TestExecute_ConvertsByteSlicesToStrings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"name"}).AddRow([]byte("Priya Sharma"))
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	executor := NewExecutor(db)
	result, err := executor.Execute(context.Background(),
		"SELECT name FROM customers", Limits{MaxRows: 10, Timeout: time.Second})

	require.NoError(t, err)
	assert.Equal(t, "Priya Sharma", result.Rows[0][0])
}

func TestExecute_InfersColumnTypesFromValues(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	opened := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"name", "balance", "opened_at", "active"}).
		AddRow("Savings", 4200.75, opened, true)

	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	executor := NewExecutor(db)
	result, err := executor.Execute(context.Background(),
		"SELECT name, balance, opened_at, active FROM accounts",
		Limits{MaxRows: 10, Timeout: time.Second})

	require.NoError(t, err)
	assert.Equal(t, TypeText, result.Columns[0].Type)
	assert.Equal(t, TypeNumber, result.Columns[1].Type)
	assert.Equal(t, TypeTime, result.Columns[2].Type)
	assert.Equal(t, TypeBool, result.Columns[3].Type)
}

func TestInferDeclaredType(t *testing.T) {
	tests := []struct {
		dbType string
		want   ValueType
	}{
		{"BIGINT", TypeNumber},
		{"INTEGER", TypeNumber},
		{"DECIMAL(18,2)", TypeNumber},
		{"DOUBLE", TypeNumber},
		{"VARCHAR", TypeText},
		{"DATE", TypeTime},
		{"TIMESTAMP", TypeTime},
		{"BOOLEAN", TypeBool},
		{"", TypeText},
	}

	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			assert.Equal(t, tt.want, inferDeclaredType(tt.dbType))
		})
	}
}

// assertableError lets tests inject an engine-shaped error message
type assertableError string

func (e assertableError) Error() string { return string(e) }
