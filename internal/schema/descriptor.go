package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/errors"
)

// ColumnSpec describes a single column in the store
type ColumnSpec struct {
	Name         string `json:"name"`
	DeclaredType string `json:"declared_type"`
}

// TableSpec describes a table and its ordered columns
type TableSpec struct {
	Name    string       `json:"name"`
	Columns []ColumnSpec `json:"columns"`
}

// Descriptor is the static description of the store used to ground every
// generation request. It is loaded once at process start and never mutated,
// so concurrent pipeline instances may read it without synchronization.
type Descriptor struct {
	Tables []TableSpec `json:"tables"`
}

// Introspect reads table and column definitions from the store.
func Introspect(ctx context.Context, db *sql.DB) (Descriptor, error) {
	const introspectSQL = `
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'main' AND table_name <> 'schema_migrations'
		ORDER BY table_name, ordinal_position`

	rows, err := db.QueryContext(ctx, introspectSQL)
	if err != nil {
		return Descriptor{}, errors.Wrap(
			err,
			errors.ErrTypeSchemaUnavailable,
			"failed to introspect database schema",
		)
	}
	defer rows.Close()

	var (
		desc    Descriptor
		current *TableSpec
	)

	for rows.Next() {
		var tableName, columnName, dataType string
		if err := rows.Scan(&tableName, &columnName, &dataType); err != nil {
			return Descriptor{}, errors.Wrap(
				err,
				errors.ErrTypeSchemaUnavailable,
				"failed to scan schema row",
			)
		}

		if current == nil || current.Name != tableName {
			desc.Tables = append(desc.Tables, TableSpec{Name: tableName})
			current = &desc.Tables[len(desc.Tables)-1]
		}

		current.Columns = append(current.Columns, ColumnSpec{
			Name:         columnName,
			DeclaredType: dataType,
		})
	}

	if err := rows.Err(); err != nil {
		return Descriptor{}, errors.Wrap(
			err,
			errors.ErrTypeSchemaUnavailable,
			"failed to read schema rows",
		)
	}

	if len(desc.Tables) == 0 {
		return Descriptor{}, errors.New(
			errors.ErrTypeSchemaUnavailable,
			"database contains no tables",
		).WithSuggestion("Run 'askdb seed' to create the demo banking database")
	}

	return desc, nil
}

// Format renders the descriptor as a compact textual contract for prompts.
func (d Descriptor) Format() string {
	var sb strings.Builder

	sb.WriteString("Database Schema:\n\n")

	for _, table := range d.Tables {
		sb.WriteString(fmt.Sprintf("Table: %s\n", table.Name))

		for _, column := range table.Columns {
			sb.WriteString(fmt.Sprintf("  - %s (%s)\n", column.Name, column.DeclaredType))
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

// TableNames returns the names of all described tables in order.
func (d Descriptor) TableNames() []string {
	names := make([]string, 0, len(d.Tables))
	for _, table := range d.Tables {
		names = append(names, table.Name)
	}

	return names
}
