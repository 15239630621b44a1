package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// UserRepository persists operator accounts.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

const userColumns = "id, username, display_name, email, password_hash, role, is_active, created_by, created_at, updated_at"

// SQLiteUserRepository is the users table.
type SQLiteUserRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewUserRepository returns a repository over db.
func NewUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db, now: time.Now}
}

func (r *SQLiteUserRepository) timestamp() (time.Time, string) {
	t := r.now().UTC().Truncate(time.Second)
	return t, t.Format(time.RFC3339)
}

// Create inserts user, assigning an ID when empty.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = "usr-" + uuid.NewString()[:8]
	}
	if user.Role == "" {
		user.Role = RoleViewer
	}
	t, ts := r.timestamp()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.DisplayName, nullable(user.Email),
		user.PasswordHash, string(user.Role), user.IsActive,
		nullable(user.CreatedBy), ts, ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameExists
		}
		return fmt.Errorf("creating user: %w", err)
	}
	user.CreatedAt, user.UpdatedAt = t, t
	return nil
}

// GetByID returns the user with id.
func (r *SQLiteUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

// GetByUsername returns the user with username.
func (r *SQLiteUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username))
}

// List returns every user, oldest first.
func (r *SQLiteUserRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at, username")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

// Update writes display_name, email, role and is_active.
func (r *SQLiteUserRepository) Update(ctx context.Context, user *User) error {
	t, ts := r.timestamp()
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET display_name = ?, email = ?, role = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		user.DisplayName, nullable(user.Email), string(user.Role), user.IsActive, ts, user.ID,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	user.UpdatedAt = t
	return nil
}

// UpdatePassword replaces the password hash for id.
func (r *SQLiteUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	_, ts := r.timestamp()
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, passwordHash, ts, id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return requireRow(res)
}

// Delete removes the user with id.
func (r *SQLiteUserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return requireRow(res)
}

// Count returns the number of accounts.
func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*User, error) {
	var (
		u                    User
		email, createdBy     sql.NullString
		role                 string
		createdAt, updatedAt string
	)
	err := s.Scan(&u.ID, &u.Username, &u.DisplayName, &email, &u.PasswordHash,
		&role, &u.IsActive, &createdBy, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	u.Role = Role(role)
	u.Email = email.String
	u.CreatedBy = createdBy.String
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // written by this package
	u.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // written by this package
	return &u, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
