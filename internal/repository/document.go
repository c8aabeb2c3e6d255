package repository

import (
	"context"

	"docqr/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic here, only persistence.
type DocumentRepository interface {
	// Create inserts a new document record and returns it with DB-assigned ID and CreatedAt.
	// A username collision yields ErrDuplicate.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID.
	FindByID(ctx context.Context, id int64) (*model.Document, error)

	// FindByUsername returns a document by its normalised username.
	FindByUsername(ctx context.Context, username string) (*model.Document, error)

	// List returns every document, newest first.
	List(ctx context.Context) ([]model.Document, error)

	// UpdateFile sets the stored and original filenames of a document.
	// Empty strings are persisted as NULL.
	UpdateFile(ctx context.Context, id int64, filename, originalFilename string) error

	// Delete removes a document by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id int64) error
}

// AdminRepository persists dashboard accounts.
type AdminRepository interface {
	// FindByUsername returns an admin by username.
	FindByUsername(ctx context.Context, username string) (*model.Admin, error)

	// Upsert inserts the admin or replaces its password hash.
	// created reports whether a new row was inserted.
	Upsert(ctx context.Context, username, passwordHash string) (created bool, err error)
}
