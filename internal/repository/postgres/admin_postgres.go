package postgres

import (
	"context"
	"database/sql"

	"docqr/internal/model"
	"docqr/internal/repository"
)

// AdminPostgres is a PostgreSQL implementation of repository.AdminRepository.
type AdminPostgres struct {
	db *sql.DB
}

// NewAdminPostgres creates a new AdminPostgres repository.
func NewAdminPostgres(db *sql.DB) *AdminPostgres {
	return &AdminPostgres{db: db}
}

var _ repository.AdminRepository = (*AdminPostgres)(nil)

// FindByUsername fetches an admin by username.
func (r *AdminPostgres) FindByUsername(ctx context.Context, username string) (*model.Admin, error) {
	const q = `SELECT id, username, password_hash FROM admins WHERE username = $1`
	var a model.Admin
	if err := r.db.QueryRowContext(ctx, q, username).Scan(&a.ID, &a.Username, &a.PasswordHash); err != nil {
		return nil, err
	}
	return &a, nil
}

// Upsert creates the admin or overwrites its password hash in a single statement.
// xmax is zero only for freshly inserted tuples.
func (r *AdminPostgres) Upsert(ctx context.Context, username, passwordHash string) (bool, error) {
	const q = `
		INSERT INTO admins (username, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash
		RETURNING (xmax = 0) AS inserted
	`
	var inserted bool
	if err := r.db.QueryRowContext(ctx, q, username, passwordHash).Scan(&inserted); err != nil {
		return false, err
	}
	return inserted, nil
}
