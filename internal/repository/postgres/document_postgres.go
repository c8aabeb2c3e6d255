package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"docqr/internal/model"
	"docqr/internal/repository"
)

const uniqueViolation = "23505"

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d                  model.Document
		filename, original sql.NullString
	)
	if err := row.Scan(&d.ID, &d.Username, &filename, &original, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Filename = filename.String
	d.OriginalFilename = original.String
	return &d, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (username, filename, original_filename)
		VALUES ($1, $2, $3)
		RETURNING id, username, filename, original_filename, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		doc.Username,
		nullable(doc.Filename),
		nullable(doc.OriginalFilename),
	)
	out, err := scanDocument(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	return out, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id int64) (*model.Document, error) {
	const q = `
		SELECT id, username, filename, original_filename, created_at
		FROM documents
		WHERE id = $1
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// FindByUsername fetches a single document by username.
func (r *DocumentPostgres) FindByUsername(ctx context.Context, username string) (*model.Document, error) {
	const q = `
		SELECT id, username, filename, original_filename, created_at
		FROM documents
		WHERE username = $1
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, username))
}

// List returns all documents ordered newest first.
func (r *DocumentPostgres) List(ctx context.Context) ([]model.Document, error) {
	const q = `
		SELECT id, username, filename, original_filename, created_at
		FROM documents
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateFile replaces the file columns of a document.
// It returns sql.ErrNoRows if the document does not exist.
func (r *DocumentPostgres) UpdateFile(ctx context.Context, id int64, filename, originalFilename string) error {
	const q = `UPDATE documents SET filename = $2, original_filename = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, nullable(filename), nullable(originalFilename))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM documents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
