package auth

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/hikgate/hikgate-core/internal/infrastructure/database"
	_ "github.com/hikgate/hikgate-core/migrations"
)

// testDB opens a migrated database in a temp dir, closed when the test ends.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "auth.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	return db.DB
}

// seedTestUser inserts an active user with password "password123".
func seedTestUser(t *testing.T, db *sql.DB, username string, role Role) *User {
	t.Helper()

	hash, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	u := &User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := NewUserRepository(db).Create(context.Background(), u); err != nil {
		t.Fatalf("seeding user %s: %v", username, err)
	}
	return u
}
