package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/deemkeen/stegogram/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// DB is the account store.
type DB struct {
	db  *sql.DB
	log *zap.Logger
}

const maxBusyRetries = 5

const (
	sqlInsertAccount = `INSERT INTO accounts(id, email, username, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`
	sqlSelectAccount = `SELECT id, email, username, password_hash, created_at FROM accounts`

	sqlSelectAccountById       = sqlSelectAccount + ` WHERE id = ?`
	sqlSelectAccountByEmail    = sqlSelectAccount + ` WHERE email = ?`
	sqlSelectAccountByUsername = sqlSelectAccount + ` WHERE username = ?`

	sqlUpdatePasswordHash = `UPDATE accounts SET password_hash = ? WHERE id = ?`
	sqlUpdateSignInAt     = `UPDATE accounts SET last_sign_in_at = ? WHERE id = ?`
	sqlDeleteAccount      = `DELETE FROM accounts WHERE id = ?`

	sqlInsertPasswordReset = `INSERT INTO password_resets(id, account_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`
	sqlSelectOpenReset     = `SELECT id, account_id, token_hash, expires_at, created_at FROM password_resets
                                                            WHERE token_hash = ? AND used_at IS NULL`
	sqlMarkResetUsed      = `UPDATE password_resets SET used_at = ? WHERE id = ?`
	sqlDeleteStaleResets  = `DELETE FROM password_resets WHERE expires_at < ? OR used_at IS NOT NULL`
)

// connPragmas are applied by the driver to every pooled connection.
const connPragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// Open opens (and creates) the sqlite database at path and runs migrations.
func Open(path string, logger *zap.Logger) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+connPragmas)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if path == ":memory:" {
		// every pooled connection would get its own empty memory database
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)

		var journalMode string
		if err := sqlDB.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
			logger.Warn("failed to enable WAL mode", zap.Error(err))
		} else {
			logger.Debug("database journal mode", zap.String("mode", journalMode))
		}
	}

	d := &DB{db: sqlDB, log: logger}
	if err := d.RunMigrations(context.Background()); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return d, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) CreateAccount(ctx context.Context, acc *domain.Account) error {
	if acc.Id == uuid.Nil {
		acc.Id = uuid.New()
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now()
	}
	return db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, sqlInsertAccount, acc.Id, acc.Email, acc.Username, acc.PasswordHash, acc.CreatedAt)
		if isUniqueViolation(err) {
			return fmt.Errorf("account %s: %w", acc.Email, domain.ErrConflict)
		}
		return err
	})
}

func (db *DB) ReadAccById(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return db.readAccount(ctx, sqlSelectAccountById, id)
}

func (db *DB) ReadAccByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return db.readAccount(ctx, sqlSelectAccountByEmail, email)
}

func (db *DB) ReadAccByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return db.readAccount(ctx, sqlSelectAccountByUsername, username)
}

func (db *DB) updatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		return execOne(ctx, tx, sqlUpdatePasswordHash, hash, id)
	})
}

func (db *DB) TouchSignIn(ctx context.Context, id uuid.UUID, at time.Time) error {
	return db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		return execOne(ctx, tx, sqlUpdateSignInAt, at, id)
	})
}

func (db *DB) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		return execOne(ctx, tx, sqlDeleteAccount, id)
	})
}

func (db *DB) CreatePasswordReset(ctx context.Context, r *domain.PasswordReset) error {
	if r.Id == uuid.Nil {
		r.Id = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	return db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, sqlInsertPasswordReset, r.Id, r.AccountId, r.TokenHash, r.ExpiresAt, r.CreatedAt)
		return err
	})
}

// ResetPassword consumes the open reset token with the given hash and sets
// the account's password hash in one transaction. Unknown, used and expired
// tokens all yield domain.ErrNotFound.
func (db *DB) ResetPassword(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (uuid.UUID, error) {
	var accountId uuid.UUID
	err := db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		var r domain.PasswordReset
		row := tx.QueryRowContext(ctx, sqlSelectOpenReset, tokenHash)
		err := row.Scan(&r.Id, &r.AccountId, &r.TokenHash, &r.ExpiresAt, &r.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		if r.Expired(now) {
			return domain.ErrNotFound
		}

		if err := execOne(ctx, tx, sqlMarkResetUsed, now, r.Id); err != nil {
			return err
		}
		if err := execOne(ctx, tx, sqlUpdatePasswordHash, newPasswordHash, r.AccountId); err != nil {
			return err
		}
		accountId = r.AccountId
		return nil
	})
	return accountId, err
}

// PruneResets deletes used and expired reset tokens.
func (db *DB) PruneResets(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, sqlDeleteStaleResets, now)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

func (db *DB) readAccount(ctx context.Context, query string, arg any) (*domain.Account, error) {
	var acc domain.Account
	row := db.db.QueryRowContext(ctx, query, arg)
	err := row.Scan(&acc.Id, &acc.Email, &acc.Username, &acc.PasswordHash, &acc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func execOne(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// wrapTransaction runs f within a transaction, retrying while sqlite reports
// the database as busy.
func (db *DB) wrapTransaction(ctx context.Context, f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	var err error
	for attempt := 0; attempt <= maxBusyRetries; attempt++ {
		var tx *sql.Tx
		tx, err = db.db.BeginTx(ctx, nil)
		if err != nil {
			db.log.Error("error starting transaction", zap.Error(err))
			return err
		}

		err = f(tx)
		if err == nil {
			err = tx.Commit()
			if err == nil {
				return nil
			}
		} else {
			tx.Rollback()
		}

		if !isBusy(err) {
			break
		}
		db.log.Debug("database busy, retrying transaction", zap.Int("attempt", attempt+1))
	}

	if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrConflict) {
		db.log.Error("error in transaction", zap.Error(err))
	}
	return err
}

func sqliteCode(err error) int {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		return serr.Code()
	}
	return 0
}

func isBusy(err error) bool {
	return sqliteCode(err)&0xff == sqlitelib.SQLITE_BUSY
}

func isUniqueViolation(err error) bool {
	return sqliteCode(err)&0xff == sqlitelib.SQLITE_CONSTRAINT
}
