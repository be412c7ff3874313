package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/deemkeen/stegogram/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestAccount is a helper to create accounts through the store
func createTestAccount(t *testing.T, db *DB, email, username string) *domain.Account {
	t.Helper()
	acc := &domain.Account{Email: email, Username: username, PasswordHash: "hash-" + username}
	if err := db.CreateAccount(context.Background(), acc); err != nil {
		t.Fatalf("Failed to create test account: %v", err)
	}
	return acc
}

func TestCreateAndReadAccount(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	acc := createTestAccount(t, db, "alice@example.com", "alice")
	if acc.Id == uuid.Nil {
		t.Fatal("CreateAccount should assign an id")
	}

	byId, err := db.ReadAccById(ctx, acc.Id)
	if err != nil {
		t.Fatalf("ReadAccById failed: %v", err)
	}
	if byId.Email != "alice@example.com" || byId.Username != "alice" || byId.PasswordHash != "hash-alice" {
		t.Errorf("Unexpected account: %+v", byId)
	}

	byEmail, err := db.ReadAccByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("ReadAccByEmail failed: %v", err)
	}
	if byEmail.Id != acc.Id {
		t.Errorf("Expected id %s, got %s", acc.Id, byEmail.Id)
	}

	byUsername, err := db.ReadAccByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("ReadAccByUsername failed: %v", err)
	}
	if byUsername.Id != acc.Id {
		t.Errorf("Expected id %s, got %s", acc.Id, byUsername.Id)
	}
}

func TestReadAccountNotFound(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.ReadAccById(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := db.ReadAccByEmail(ctx, "nobody@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCreateAccountDuplicate(t *testing.T) {
	db := setupTestDB(t)
	createTestAccount(t, db, "alice@example.com", "alice")

	tests := []struct {
		name     string
		email    string
		username string
	}{
		{"same email", "alice@example.com", "alice2"},
		{"same username", "other@example.com", "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := &domain.Account{Email: tt.email, Username: tt.username, PasswordHash: "x"}
			err := db.CreateAccount(context.Background(), acc)
			if !errors.Is(err, domain.ErrConflict) {
				t.Errorf("Expected ErrConflict, got %v", err)
			}
		})
	}
}

func TestUpdatePasswordHashInPlace(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	acc := createTestAccount(t, db, "alice@example.com", "alice")

	if err := db.updatePasswordHash(ctx, acc.Id, "new-hash"); err != nil {
		t.Fatalf("updatePasswordHash failed: %v", err)
	}

	got, err := db.ReadAccById(ctx, acc.Id)
	if err != nil {
		t.Fatalf("ReadAccById failed: %v", err)
	}
	if got.PasswordHash != "new-hash" {
		t.Errorf("Expected new-hash, got %s", got.PasswordHash)
	}

	if err := db.updatePasswordHash(ctx, uuid.New(), "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown account, got %v", err)
	}
}

func TestTouchSignInAndDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	acc := createTestAccount(t, db, "alice@example.com", "alice")

	if err := db.TouchSignIn(ctx, acc.Id, time.Now()); err != nil {
		t.Fatalf("TouchSignIn failed: %v", err)
	}

	if err := db.DeleteAccount(ctx, acc.Id); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}
	if _, err := db.ReadAccById(ctx, acc.Id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected deleted account to be gone, got %v", err)
	}
}

func TestResetPassword(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	acc := createTestAccount(t, db, "alice@example.com", "alice")
	now := time.Now()

	reset := &domain.PasswordReset{AccountId: acc.Id, TokenHash: "tokenhash", ExpiresAt: now.Add(time.Hour)}
	if err := db.CreatePasswordReset(ctx, reset); err != nil {
		t.Fatalf("CreatePasswordReset failed: %v", err)
	}

	id, err := db.ResetPassword(ctx, "tokenhash", "reset-hash", now)
	if err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}
	if id != acc.Id {
		t.Errorf("Expected account %s, got %s", acc.Id, id)
	}

	got, _ := db.ReadAccById(ctx, acc.Id)
	if got.PasswordHash != "reset-hash" {
		t.Errorf("Expected reset-hash, got %s", got.PasswordHash)
	}

	// tokens are single use
	if _, err := db.ResetPassword(ctx, "tokenhash", "again", now); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on reuse, got %v", err)
	}
}

func TestResetPasswordExpired(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	acc := createTestAccount(t, db, "alice@example.com", "alice")
	now := time.Now()

	reset := &domain.PasswordReset{AccountId: acc.Id, TokenHash: "old", ExpiresAt: now.Add(-time.Minute)}
	if err := db.CreatePasswordReset(ctx, reset); err != nil {
		t.Fatalf("CreatePasswordReset failed: %v", err)
	}

	if _, err := db.ResetPassword(ctx, "old", "x", now); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for expired token, got %v", err)
	}

	got, _ := db.ReadAccById(ctx, acc.Id)
	if got.PasswordHash != "hash-alice" {
		t.Errorf("Password should be unchanged, got %s", got.PasswordHash)
	}
}

func TestPruneResets(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	acc := createTestAccount(t, db, "alice@example.com", "alice")
	now := time.Now()

	db.CreatePasswordReset(ctx, &domain.PasswordReset{AccountId: acc.Id, TokenHash: "expired", ExpiresAt: now.Add(-time.Hour)})
	db.CreatePasswordReset(ctx, &domain.PasswordReset{AccountId: acc.Id, TokenHash: "open", ExpiresAt: now.Add(time.Hour)})

	n, err := db.PruneResets(ctx, now)
	if err != nil {
		t.Fatalf("PruneResets failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 pruned reset, got %d", n)
	}

	if _, err := db.ResetPassword(ctx, "open", "x", now); err != nil {
		t.Errorf("Open token should survive pruning: %v", err)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := db.RunMigrations(context.Background()); err != nil {
		t.Fatalf("Second RunMigrations failed: %v", err)
	}
}

func TestPragmasOnEveryConnection(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "pragmas.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	// holding the connections open forces the pool to hand out distinct ones
	var conns []*sql.Conn
	for i := 0; i < 3; i++ {
		conn, err := db.db.Conn(ctx)
		if err != nil {
			t.Fatalf("Conn failed: %v", err)
		}
		defer conn.Close()
		conns = append(conns, conn)
	}

	for i, conn := range conns {
		var foreignKeys, busyTimeout int
		if err := conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
			t.Fatalf("conn %d: foreign_keys: %v", i, err)
		}
		if err := conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
			t.Fatalf("conn %d: busy_timeout: %v", i, err)
		}
		if foreignKeys != 1 {
			t.Errorf("conn %d: expected foreign_keys 1, got %d", i, foreignKeys)
		}
		if busyTimeout != 5000 {
			t.Errorf("conn %d: expected busy_timeout 5000, got %d", i, busyTimeout)
		}
	}
}

func TestDeleteAccountCascadesResets(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "cascade.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	acc := createTestAccount(t, db, "alice@example.com", "alice")
	for _, hash := range []string{"t1", "t2"} {
		r := &domain.PasswordReset{AccountId: acc.Id, TokenHash: hash, ExpiresAt: time.Now().Add(time.Hour)}
		if err := db.CreatePasswordReset(ctx, r); err != nil {
			t.Fatalf("CreatePasswordReset failed: %v", err)
		}
	}

	if err := db.DeleteAccount(ctx, acc.Id); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}

	var n int
	if err := db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM password_resets").Scan(&n); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected resets of deleted account to be gone, got %d", n)
	}
}
