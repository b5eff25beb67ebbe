package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

// Migration represents a database schema migration
type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

// MigrationManager handles database schema migrations
type MigrationManager struct {
	db *sql.DB
}

// NewMigrationManager creates a new migration manager
func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db}
}

// GetMigrations returns all available migrations in order
func (m *MigrationManager) GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Banking schema creation",
			Up: `
				CREATE TABLE IF NOT EXISTS customers (
					customer_id INTEGER PRIMARY KEY,
					name VARCHAR NOT NULL,
					email VARCHAR UNIQUE NOT NULL,
					phone VARCHAR,
					city VARCHAR,
					join_date DATE
				);

				CREATE TABLE IF NOT EXISTS accounts (
					account_id INTEGER PRIMARY KEY,
					customer_id INTEGER NOT NULL,
					account_type VARCHAR NOT NULL,
					balance DECIMAL(15,2) NOT NULL,
					opened_date DATE,
					FOREIGN KEY (customer_id) REFERENCES customers(customer_id)
				);

				CREATE TABLE IF NOT EXISTS transactions (
					transaction_id INTEGER PRIMARY KEY,
					account_id INTEGER NOT NULL,
					transaction_type VARCHAR NOT NULL,
					amount DECIMAL(15,2) NOT NULL,
					transaction_date TIMESTAMP,
					description VARCHAR,
					FOREIGN KEY (account_id) REFERENCES accounts(account_id)
				);

				CREATE TABLE IF NOT EXISTS loans (
					loan_id INTEGER PRIMARY KEY,
					customer_id INTEGER NOT NULL,
					loan_type VARCHAR NOT NULL,
					loan_amount DECIMAL(15,2) NOT NULL,
					interest_rate DECIMAL(5,2) NOT NULL,
					start_date DATE,
					status VARCHAR,
					FOREIGN KEY (customer_id) REFERENCES customers(customer_id)
				);

				CREATE TABLE IF NOT EXISTS credit_cards (
					card_id INTEGER PRIMARY KEY,
					customer_id INTEGER NOT NULL,
					card_type VARCHAR NOT NULL,
					credit_limit DECIMAL(15,2) NOT NULL,
					outstanding_balance DECIMAL(15,2) NOT NULL,
					issue_date DATE,
					FOREIGN KEY (customer_id) REFERENCES customers(customer_id)
				);

				CREATE INDEX IF NOT EXISTS idx_accounts_customer ON accounts(customer_id);
				CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id);
				CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(transaction_date);
				CREATE INDEX IF NOT EXISTS idx_loans_customer ON loans(customer_id);
				CREATE INDEX IF NOT EXISTS idx_credit_cards_customer ON credit_cards(customer_id);
			`,
			Down: `
				DROP INDEX IF EXISTS idx_credit_cards_customer;
				DROP INDEX IF EXISTS idx_loans_customer;
				DROP INDEX IF EXISTS idx_transactions_date;
				DROP INDEX IF EXISTS idx_transactions_account;
				DROP INDEX IF EXISTS idx_accounts_customer;
				DROP TABLE IF EXISTS credit_cards;
				DROP TABLE IF EXISTS loans;
				DROP TABLE IF EXISTS transactions;
				DROP TABLE IF EXISTS accounts;
				DROP TABLE IF EXISTS customers;
			`,
		},
	}
}

// InitializeMigrationTable creates the schema_migrations tracking table
func (m *MigrationManager) InitializeMigrationTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description VARCHAR NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`

	_, err := m.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	return nil
}

// GetAppliedMigrations returns the versions of all applied migrations
func (m *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]int, error) {
	query := "SELECT version FROM schema_migrations ORDER BY version"

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}

	defer rows.Close()

	var versions []int

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}

		versions = append(versions, version)
	}

	return versions, rows.Err()
}

// IsMigrationApplied checks if a specific migration version has been applied
func (m *MigrationManager) IsMigrationApplied(ctx context.Context, version int) (bool, error) {
	query := "SELECT COUNT(*) FROM schema_migrations WHERE version = ?"

	var count int

	err := m.db.QueryRowContext(ctx, query, version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}

	return count > 0, nil
}

// ApplyMigration applies a single migration
func (m *MigrationManager) ApplyMigration(ctx context.Context, migration Migration) error {
	applied, err := m.IsMigrationApplied(ctx, migration.Version)
	if err != nil {
		return err
	}

	if applied {
		return fmt.Errorf("migration %d already applied", migration.Version)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, migration.Up)
	if err != nil {
		return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
		migration.Version, migration.Description)
	if err != nil {
		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	return tx.Commit()
}

// MigrateUp applies all pending migrations
func (m *MigrationManager) MigrateUp(ctx context.Context) error {
	if err := m.InitializeMigrationTable(ctx); err != nil {
		return err
	}

	appliedVersions, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	appliedMap := make(map[int]bool)
	for _, version := range appliedVersions {
		appliedMap[version] = true
	}

	migrations := m.GetMigrations()
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	for _, migration := range migrations {
		if !appliedMap[migration.Version] {
			if err := m.ApplyMigration(ctx, migration); err != nil {
				return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
			}
		}
	}

	return nil
}
