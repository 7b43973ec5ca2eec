package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jsprateek/wordpressprojects/pkg/testuser"
)

// TestUserRow is a stored test user
type TestUserRow struct {
	Site      string
	Username  string
	Password  string
	FirstName string
	LastName  string
	External  bool
	LoweredAt sql.NullString
	CreatedAt string
}

// UpsertTestUser stores the user for a site, replacing any previous one
func UpsertTestUser(ctx context.Context, db *sql.DB, row TestUserRow) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO test_users (site, username, password, first_name, last_name, external)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(site) DO UPDATE SET
			username = excluded.username,
			password = excluded.password,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			external = excluded.external,
			lowered_at = NULL,
			created_at = CURRENT_TIMESTAMP
	`, row.Site, row.Username, row.Password, row.FirstName, row.LastName, row.External)
	if err != nil {
		return fmt.Errorf("failed to store test user: %w", err)
	}
	return nil
}

// GetTestUser returns the user stored for a site, or nil when there is none
func GetTestUser(ctx context.Context, db *sql.DB, site string) (*TestUserRow, error) {
	var row TestUserRow
	err := db.QueryRowContext(ctx, `
		SELECT site, username, password, first_name, last_name, external, lowered_at, created_at
		FROM test_users
		WHERE site = ?
	`, site).Scan(
		&row.Site,
		&row.Username,
		&row.Password,
		&row.FirstName,
		&row.LastName,
		&row.External,
		&row.LoweredAt,
		&row.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get test user: %w", err)
	}
	return &row, nil
}

// DeleteTestUser removes the user stored for a site
func DeleteTestUser(ctx context.Context, db *sql.DB, site string) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM test_users WHERE site = ?", site); err != nil {
		return fmt.Errorf("failed to delete test user: %w", err)
	}
	return nil
}

// MarkTestUserLowered records that the site's user was demoted
func MarkTestUserLowered(ctx context.Context, db *sql.DB, site string) error {
	if _, err := db.ExecContext(ctx, "UPDATE test_users SET lowered_at = CURRENT_TIMESTAMP WHERE site = ?", site); err != nil {
		return fmt.Errorf("failed to mark test user lowered: %w", err)
	}
	return nil
}

// ListTestUsers returns every stored user ordered by site
func ListTestUsers(ctx context.Context, db *sql.DB) ([]TestUserRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT site, username, password, first_name, last_name, external, lowered_at, created_at
		FROM test_users
		ORDER BY site
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list test users: %w", err)
	}
	defer rows.Close()

	var out []TestUserRow
	for rows.Next() {
		var row TestUserRow
		if err := rows.Scan(
			&row.Site,
			&row.Username,
			&row.Password,
			&row.FirstName,
			&row.LastName,
			&row.External,
			&row.LoweredAt,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan test user: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate test users: %w", err)
	}
	return out, nil
}

// UserStore is a testuser.Store bound to one site
type UserStore struct {
	db   *sql.DB
	site string
}

// NewUserStore returns a store for the site identified by key (its home URL)
func NewUserStore(db *sql.DB, site string) *UserStore {
	return &UserStore{db: db, site: site}
}

// Load implements testuser.Store. A demoted user is not returned.
func (s *UserStore) Load(ctx context.Context) (*testuser.User, error) {
	row, err := GetTestUser(ctx, s.db, s.site)
	if err != nil || row == nil || row.LoweredAt.Valid {
		return nil, err
	}
	return &testuser.User{
		Username:  row.Username,
		Password:  row.Password,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		External:  row.External,
	}, nil
}

// Save implements testuser.Store
func (s *UserStore) Save(ctx context.Context, u *testuser.User) error {
	return UpsertTestUser(ctx, s.db, TestUserRow{
		Site:      s.site,
		Username:  u.Username,
		Password:  u.Password,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		External:  u.External,
	})
}

// Delete implements testuser.Store. The row is kept, marked lowered, so
// `wptest user list` can still show it.
func (s *UserStore) Delete(ctx context.Context) error {
	return MarkTestUserLowered(ctx, s.db, s.site)
}

var _ testuser.Store = (*UserStore)(nil)
