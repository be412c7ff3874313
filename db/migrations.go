package db

import (
	"context"
	"database/sql"

	"go.uber.org/zap"
)

const (
	sqlCreateAccountsTable = `CREATE TABLE IF NOT EXISTS accounts(
                        id uuid NOT NULL PRIMARY KEY,
                        email varchar(320) UNIQUE NOT NULL,
                        username varchar(30) UNIQUE NOT NULL,
                        password_hash text NOT NULL,
                        created_at timestamp default current_timestamp
                        )`

	sqlCreatePasswordResetsTable = `CREATE TABLE IF NOT EXISTS password_resets(
                        id uuid NOT NULL PRIMARY KEY,
                        account_id uuid NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
                        token_hash varchar(64) UNIQUE NOT NULL,
                        expires_at timestamp NOT NULL,
                        used_at timestamp,
                        created_at timestamp default current_timestamp
                        )`

	sqlCreatePasswordResetsIndices = `
		CREATE INDEX IF NOT EXISTS idx_password_resets_account_id ON password_resets(account_id);
		CREATE INDEX IF NOT EXISTS idx_password_resets_expires_at ON password_resets(expires_at);
	`
)

// RunMigrations creates the schema. It is safe to run on every start.
func (db *DB) RunMigrations(ctx context.Context) error {
	return db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		if err := db.createTableIfNotExists(ctx, tx, sqlCreateAccountsTable, "accounts"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(ctx, tx, sqlCreatePasswordResetsTable, "password_resets"); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, sqlCreatePasswordResetsIndices); err != nil {
			db.log.Warn("failed to create password_resets indices", zap.Error(err))
		}

		db.extendExistingTables(ctx, tx)
		return nil
	})
}

func (db *DB) createTableIfNotExists(ctx context.Context, tx *sql.Tx, createSQL string, tableName string) error {
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		db.log.Error("error creating table", zap.String("table", tableName), zap.Error(err))
		return err
	}
	db.log.Debug("table created or already exists", zap.String("table", tableName))
	return nil
}

// extendExistingTables adds columns introduced after the first release.
// Errors are ignored because the columns may already exist.
func (db *DB) extendExistingTables(ctx context.Context, tx *sql.Tx) {
	tx.ExecContext(ctx, "ALTER TABLE accounts ADD COLUMN last_sign_in_at timestamp")
}
