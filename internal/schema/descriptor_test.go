package schema

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb/askdb/internal/errors"
)

func TestIntrospect(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"table_name", "column_name", "data_type"}).
		AddRow("accounts", "account_id", "INTEGER").
		AddRow("accounts", "balance", "DOUBLE").
		AddRow("customers", "customer_id", "INTEGER").
		AddRow("customers", "name", "VARCHAR")

	mock.ExpectQuery("information_schema.columns").WillReturnRows(rows)

	desc, err := Introspect(context.Background(), db)
	require.NoError(t, err)

	require.Len(t, desc.Tables, 2)
	assert.Equal(t, "accounts", desc.Tables[0].Name)
	assert.Equal(t, []ColumnSpec{
		{Name: "account_id", DeclaredType: "INTEGER"},
		{Name: "balance", DeclaredType: "DOUBLE"},
	}, desc.Tables[0].Columns)
	assert.Equal(t, "customers", desc.Tables[1].Name)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIntrospectEmptyDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("information_schema.columns").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "data_type"}))

	_, err = Introspect(context.Background(), db)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeSchemaUnavailable))
}

func TestIntrospectQueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("information_schema.columns").
		WillReturnError(assert.AnError)

	_, err = Introspect(context.Background(), db)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeSchemaUnavailable))
}

func TestFormat(t *testing.T) {
	desc := Descriptor{
		Tables: []TableSpec{
			{
				Name: "transactions",
				Columns: []ColumnSpec{
					{Name: "transaction_id", DeclaredType: "INTEGER"},
					{Name: "amount", DeclaredType: "DOUBLE"},
					{Name: "transaction_date", DeclaredType: "TIMESTAMP"},
				},
			},
		},
	}

	formatted := desc.Format()

	assert.Contains(t, formatted, "Table: transactions")
	assert.Contains(t, formatted, "- transaction_id (INTEGER)")
	assert.Contains(t, formatted, "- amount (DOUBLE)")
	assert.Contains(t, formatted, "- transaction_date (TIMESTAMP)")
}

func TestFormatDeterministic(t *testing.T) {
	desc := Descriptor{
		Tables: []TableSpec{
			{Name: "loans", Columns: []ColumnSpec{{Name: "loan_id", DeclaredType: "INTEGER"}}},
			{Name: "accounts", Columns: []ColumnSpec{{Name: "account_id", DeclaredType: "INTEGER"}}},
		},
	}

	assert.Equal(t, desc.Format(), desc.Format())
}

func TestTableNames(t *testing.T) {
	desc := Descriptor{
		Tables: []TableSpec{
			{Name: "customers"},
			{Name: "accounts"},
			{Name: "transactions"},
		},
	}

	assert.Equal(t, []string{"customers", "accounts", "transactions"}, desc.TableNames())
}
