package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docqr/internal/model"
	"docqr/internal/pdf"
	"docqr/internal/repository"
	"docqr/internal/storage"
	"docqr/internal/username"
)

var (
	ErrIDRequired       = errors.New("id is required")
	ErrNotFound         = errors.New("document not found")
	ErrReaderNil        = errors.New("reader is nil")
	ErrUsernameRequired = errors.New("username is required")
	ErrInvalidUsername  = errors.New("username is invalid")
	ErrReservedUsername = errors.New("username is reserved")
	ErrUsernameTaken    = errors.New("username already exists")
	ErrFileRequired     = errors.New("file is required")
	ErrNotPDF           = errors.New("only PDF files are accepted")
	ErrInvalidFilename  = errors.New("invalid stored filename")
)

const pdfContentType = "application/pdf"

var tracer trace.Tracer = otel.Tracer("docqr/internal/service")

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Create reserves a normalised username without a file.
	Create(ctx context.Context, rawUsername string) (*model.Document, error)

	// Upload attaches a PDF to an existing username, replacing any previous file.
	// The content is spooled to disk, optimised (falling back to the original bytes),
	// stored under a fresh random name, and the old file is removed only after the
	// row points at the new one.
	Upload(ctx context.Context, rawUsername string, r io.Reader, originalFilename string) (*model.Document, error)

	// List returns all documents newest first.
	List(ctx context.Context) ([]model.Document, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id int64) (*model.Document, error)

	// GetByUsername returns the document published under username.
	GetByUsername(ctx context.Context, username string) (*model.Document, error)

	// Open returns the stored PDF for byte-serving.
	Open(ctx context.Context, filename string) (storage.Object, storage.ObjectInfo, error)

	// Delete removes a document's file from storage, then its record.
	Delete(ctx context.Context, id int64) error

	// RelocateLegacy moves stored files still sitting in dir into the document root.
	// It returns how many files were moved.
	RelocateLegacy(ctx context.Context, dir string) (int, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store     storage.Storage
	repo      repository.DocumentRepository
	optimizer pdf.Optimizer
	tempDir   string
}

// NewDocumentService constructs a new DocumentService.
// tempDir holds upload spool files; an empty value means os.TempDir().
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, optimizer pdf.Optimizer, tempDir string) DocumentService {
	if optimizer == nil {
		optimizer = pdf.Passthrough{}
	}
	return &documentService{store: store, repo: repo, optimizer: optimizer, tempDir: tempDir}
}

func normalizeExisting(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrUsernameRequired
	}
	u, err := username.Normalize(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidUsername, err)
	}
	return u, nil
}

func (s *documentService) Create(ctx context.Context, rawUsername string) (*model.Document, error) {
	if strings.TrimSpace(rawUsername) == "" {
		return nil, ErrUsernameRequired
	}
	u, err := username.NormalizeNew(rawUsername)
	if err != nil {
		if errors.Is(err, username.ErrReserved) {
			return nil, ErrReservedUsername
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidUsername, err)
	}

	if _, err := s.repo.FindByUsername(ctx, u); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrUsernameTaken, u)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	doc, err := s.repo.Create(ctx, &model.Document{Username: u})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", ErrUsernameTaken, u)
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) Upload(ctx context.Context, rawUsername string, r io.Reader, originalFilename string) (_ *model.Document, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Upload")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if r == nil {
		return nil, ErrReaderNil
	}
	if strings.TrimSpace(originalFilename) == "" {
		return nil, ErrFileRequired
	}
	u, err := normalizeExisting(rawUsername)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(filepath.Ext(originalFilename), ".pdf") {
		return nil, ErrNotPDF
	}
	span.SetAttributes(attribute.String("docqr.username", u))

	doc, err := s.repo.FindByUsername(ctx, u)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	spool, err := os.CreateTemp(s.tempDir, "upload-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}
	defer func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}()
	if _, err := io.Copy(spool, r); err != nil {
		return nil, fmt.Errorf("spool upload: %w", err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind spool: %w", err)
	}

	ok, err := pdf.LooksLikePDF(spool)
	if err != nil {
		return nil, fmt.Errorf("inspect upload: %w", err)
	}
	if !ok {
		return nil, ErrNotPDF
	}

	body, size, optimized := s.optimize(ctx, spool)
	span.SetAttributes(attribute.Bool("docqr.optimized", optimized), attribute.Int64("docqr.size", size))

	key := storedName(u)
	if _, err := s.store.Put(ctx, key, body, storage.PutObjectOptions{
		Size:        size,
		ContentType: pdfContentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
		},
	}); err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	original := filepath.Base(originalFilename)
	if err := s.repo.UpdateFile(ctx, doc.ID, key, original); err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	previous := doc.Filename
	doc.Filename = key
	doc.OriginalFilename = original

	if previous != "" && previous != key {
		if err := s.store.Delete(ctx, previous); err != nil {
			// The row already points at the new file; an orphaned old file is harmless.
			span.AddEvent("previous file not removed", trace.WithAttributes(attribute.String("docqr.filename", previous)))
		}
	}
	return doc, nil
}

// optimize returns the bytes to store. On optimiser failure, or when the result
// is not smaller, the spooled original is used as-is.
func (s *documentService) optimize(ctx context.Context, spool *os.File) (io.Reader, int64, bool) {
	st, err := spool.Stat()
	if _, off := s.optimizer.(pdf.Passthrough); off && err == nil {
		return spool, st.Size(), false
	}
	if err != nil {
		return spool, -1, false
	}
	origSize := st.Size()

	var buf bytes.Buffer
	if err := s.optimizer.Optimize(ctx, spool, &buf); err == nil && buf.Len() > 0 && int64(buf.Len()) < origSize {
		return &buf, int64(buf.Len()), true
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return spool, -1, false
	}
	return spool, origSize, false
}

// storedName is "<username>_<16 hex>.pdf": unique per upload, so cached copies never go stale.
func storedName(u string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%x.pdf", u, id[:8])
}

// List returns documents newest first.
func (s *documentService) List(ctx context.Context) ([]model.Document, error) {
	return s.repo.List(ctx)
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, id int64) (*model.Document, error) {
	if id <= 0 {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// GetByUsername returns a document by its public username.
// Reserved names never resolve, even if an old row holds one.
func (s *documentService) GetByUsername(ctx context.Context, name string) (*model.Document, error) {
	if name == "" || username.IsReserved(name) {
		return nil, ErrNotFound
	}
	doc, err := s.repo.FindByUsername(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// Open opens a stored PDF by its stored filename.
func (s *documentService) Open(ctx context.Context, filename string) (storage.Object, storage.ObjectInfo, error) {
	if filename == "" || filepath.Base(filename) != filename || !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, storage.ObjectInfo{}, ErrInvalidFilename
	}
	obj, info, err := s.store.Open(ctx, filename)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			return nil, storage.ObjectInfo{}, ErrNotFound
		}
		return nil, storage.ObjectInfo{}, err
	}
	return obj, info, nil
}

// Delete removes a document from storage, then deletes its record.
func (s *documentService) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Delete", trace.WithAttributes(attribute.Int64("docqr.document_id", id)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if id <= 0 {
		return ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	// Delete from storage first; if this fails, keep DB row to avoid orphaned storage reference loss
	if doc.HasPDF() {
		if err := s.store.Delete(ctx, doc.Filename); err != nil {
			return fmt.Errorf("delete storage: %w", err)
		}
	}
	return s.repo.Delete(ctx, id)
}

// RelocateLegacy copies files left in dir by older deployments into the document root
// and removes the local copy once the root holds it.
func (s *documentService) RelocateLegacy(ctx context.Context, dir string) (int, error) {
	if dir == "" {
		return 0, nil
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return 0, nil
	}

	docs, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, d := range docs {
		if !d.HasPDF() || filepath.Base(d.Filename) != d.Filename {
			continue
		}
		src := filepath.Join(dir, d.Filename)
		st, err := os.Stat(src)
		if err != nil || !st.Mode().IsRegular() {
			continue
		}
		if _, err := s.store.Stat(ctx, d.Filename); err == nil {
			continue
		} else if !errors.Is(err, storage.ErrObjectNotFound) {
			return moved, fmt.Errorf("stat %s: %w", d.Filename, err)
		}

		if err := s.relocate(ctx, src, d.Filename, st.Size()); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

func (s *documentService) relocate(ctx context.Context, src, key string, size int64) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open legacy file: %w", err)
	}
	defer f.Close()

	if _, err := s.store.Put(ctx, key, f, storage.PutObjectOptions{Size: size, ContentType: pdfContentType}); err != nil {
		return fmt.Errorf("relocate %s: %w", key, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove legacy file: %w", err)
	}
	return nil
}
