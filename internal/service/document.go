package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docregistry/internal/model"
	"docregistry/internal/repository"
	"docregistry/internal/storage"
)

// Error taxonomy for document operations. Handlers translate these into
// HTTP statuses; underlying backend causes stay attached for logging and
// never leak raw to callers of the HTTP API.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("document not found")
	ErrStorageWrite = errors.New("storage write failed")
)

// presignExpiry is how long generated object-store download URLs stay valid.
const presignExpiry = 15 * time.Minute

// CreateInput carries caller-supplied metadata for a new document.
// Storage selects the backend; empty defaults to s3.
type CreateInput struct {
	Name         string
	SourceID     *int64
	SourceType   *string
	DocumentType *string
	RegDate      *time.Time
	DocumentNo   *string
	VersionNo    *string
	HasExpired   bool
	ExpiredDate  *time.Time
	Storage      model.StorageKind
}

// UpdatePatch holds the scalar fields an update may change.
// Nil pointers leave the stored value untouched.
type UpdatePatch struct {
	Name         *string
	DocumentType *string
	VersionNo    *string
	HasExpired   *bool
	ExpiredDate  *time.Time
	Status       *string
}

// FileUpload describes an incoming file stream.
type FileUpload struct {
	Reader       io.Reader
	Size         int64
	OriginalName string
	ContentType  string
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"items"`
	Total int              `json:"total"`
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Create writes the file to the selected backend, verifies it is
	// retrievable, and only then persists the metadata row. A failed or
	// unverifiable write leaves no metadata behind.
	Create(ctx context.Context, in CreateInput, file FileUpload, createdBy int64) (*model.Document, error)

	// Update applies a scalar patch and optionally replaces the file.
	// Replacement writes and verifies the new object first; the old object
	// is deleted best-effort only after the metadata points at the new
	// location. A failed new write aborts with the original row untouched.
	Update(ctx context.Context, id int64, patch UpdatePatch, file *FileUpload, backend model.StorageKind) (*model.Document, error)

	// Delete soft-deletes: marks the row status=deleted and keeps both the
	// row and the physical object. Returns the updated row.
	Delete(ctx context.Context, id int64) (*model.Document, error)

	// Purge hard-deletes: removes the physical object (idempotent on an
	// already-absent key) and then the row. Returns the prior snapshot.
	Purge(ctx context.Context, id int64) (*model.Document, error)

	// Get returns a single document by ID, including soft-deleted ones.
	Get(ctx context.Context, id int64) (*model.Document, error)

	// List returns non-deleted documents using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)

	// URL resolves a download URL for the document's current location.
	URL(ctx context.Context, doc *model.Document) (string, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	repo  repository.DocumentRepository
	s3    storage.Backend
	local storage.Backend
}

// NewDocumentService constructs a new DocumentService over the two backends.
func NewDocumentService(repo repository.DocumentRepository, s3, local storage.Backend) DocumentService {
	return &documentService{repo: repo, s3: s3, local: local}
}

func (s *documentService) backendFor(kind model.StorageKind) (storage.Backend, error) {
	switch kind {
	case model.StorageS3:
		return s.s3, nil
	case model.StorageLocal:
		return s.local, nil
	default:
		return nil, fmt.Errorf("%w: unknown storage %q", ErrValidation, kind)
	}
}

// sizeKB converts an upload size in bytes to whole kilobytes, rounded up.
func sizeKB(sizeBytes int64) int64 {
	return (sizeBytes + 1023) / 1024
}

// extOf returns the filename extension without the leading dot.
func extOf(filename string) string {
	return strings.TrimPrefix(filepath.Ext(filename), ".")
}

// objectKey generates a storage key for a new object. Object-store keys are
// namespaced by year/month and use a 40-char high-entropy identifier; local
// keys follow the backend's flat uuid convention.
func objectKey(kind model.StorageKind, ext string, now time.Time) (string, error) {
	suffix := ""
	if ext != "" {
		suffix = "." + ext
	}
	if kind == model.StorageLocal {
		return "documents/" + uuid.NewString() + suffix, nil
	}
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate object key: %w", err)
	}
	return "documents/" + now.Format("2006/01") + "/" + hex.EncodeToString(b) + suffix, nil
}

// writeVerified uploads the file and confirms the object is actually
// retrievable before the caller commits any metadata. An upload that
// reports success but leaves no object behind counts as a write failure.
func (s *documentService) writeVerified(ctx context.Context, backend storage.Backend, key string, file FileUpload) (storage.ObjectInfo, error) {
	info, err := backend.Put(ctx, key, file.Reader, storage.PutOptions{
		Size:        file.Size,
		ContentType: file.ContentType,
		Metadata: map[string]string{
			"original-filename": file.OriginalName,
		},
	})
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("%w: upload: %v", ErrStorageWrite, err)
	}

	ok, err := backend.Exists(ctx, info.Key)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("%w: verify: %v", ErrStorageWrite, err)
	}
	if !ok {
		return storage.ObjectInfo{}, fmt.Errorf("%w: upload reported success but object not found at key %s", ErrStorageWrite, info.Key)
	}
	return info, nil
}

// setLocation points doc at the newly written object, clearing the pair
// belonging to the other backend.
func setLocation(doc *model.Document, kind model.StorageKind, info storage.ObjectInfo) {
	doc.Storage = kind
	if kind == model.StorageS3 {
		key, bucket := info.Key, info.Bucket
		doc.S3Key = &key
		doc.S3Bucket = &bucket
		doc.Path = nil
	} else {
		key := info.Key
		doc.Path = &key
		doc.S3Key = nil
		doc.S3Bucket = nil
	}
}

// deleteBestEffort removes an object without failing the surrounding
// operation; deletion failures are logged and the orphan stays recoverable.
func (s *documentService) deleteBestEffort(ctx context.Context, kind model.StorageKind, key string) {
	if key == "" {
		return
	}
	backend, err := s.backendFor(kind)
	if err != nil {
		log.Printf("skip delete of %s object %q: %v", kind, key, err)
		return
	}
	if err := backend.Delete(ctx, key); err != nil {
		log.Printf("delete %s object %q failed: %v", kind, key, err)
	}
}

func (s *documentService) Create(ctx context.Context, in CreateInput, file FileUpload, createdBy int64) (*model.Document, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if file.Reader == nil || file.Size <= 0 {
		return nil, fmt.Errorf("%w: file is required", ErrValidation)
	}

	kind := in.Storage
	if kind == "" {
		kind = model.StorageS3
	}
	backend, err := s.backendFor(kind)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ext := extOf(file.OriginalName)
	key, err := objectKey(kind, ext, now)
	if err != nil {
		return nil, err
	}

	info, err := s.writeVerified(ctx, backend, key, file)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		SourceID:     in.SourceID,
		SourceType:   in.SourceType,
		DocumentType: in.DocumentType,
		RegDate:      in.RegDate,
		DocumentNo:   in.DocumentNo,
		Name:         in.Name,
		VersionNo:    in.VersionNo,
		SizeKB:       sizeKB(file.Size),
		Ext:          ext,
		OriginalName: file.OriginalName,
		HasExpired:   in.HasExpired,
		ExpiredDate:  in.ExpiredDate,
		Status:       model.StatusActive,
		CreatedDate:  now,
		CreatedBy:    createdBy,
		UpdatedAt:    now,
	}
	setLocation(doc, kind, info)

	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Roll back the object so no unreachable file outlives the failure.
		s.deleteBestEffort(ctx, kind, info.Key)
		return nil, fmt.Errorf("save document: %w", err)
	}
	return stored, nil
}

func (s *documentService) Update(ctx context.Context, id int64, patch UpdatePatch, file *FileUpload, backend model.StorageKind) (*model.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
		}
		doc.Name = *patch.Name
	}
	if patch.DocumentType != nil {
		doc.DocumentType = patch.DocumentType
	}
	if patch.VersionNo != nil {
		doc.VersionNo = patch.VersionNo
	}
	if patch.HasExpired != nil {
		doc.HasExpired = *patch.HasExpired
	}
	if patch.ExpiredDate != nil {
		doc.ExpiredDate = patch.ExpiredDate
	}
	if patch.Status != nil {
		doc.Status = *patch.Status
	}

	oldKind, oldKey := doc.Storage, doc.ObjectKey()
	newKey := ""

	if file != nil {
		if file.Reader == nil || file.Size <= 0 {
			return nil, fmt.Errorf("%w: file is required", ErrValidation)
		}
		kind := backend
		if kind == "" {
			kind = doc.Storage
		}
		dst, err := s.backendFor(kind)
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		ext := extOf(file.OriginalName)
		key, err := objectKey(kind, ext, now)
		if err != nil {
			return nil, err
		}

		// The new object must be written and verified before any metadata
		// moves; on failure the old file stays authoritative.
		info, err := s.writeVerified(ctx, dst, key, *file)
		if err != nil {
			return nil, err
		}
		newKey = info.Key

		setLocation(doc, kind, info)
		doc.Ext = ext
		doc.SizeKB = sizeKB(file.Size)
		doc.OriginalName = file.OriginalName
	}

	doc.UpdatedAt = time.Now().UTC()
	updated, err := s.repo.Update(ctx, doc)
	if err != nil {
		if newKey != "" {
			// Metadata never moved; remove the orphaned new object.
			s.deleteBestEffort(ctx, doc.Storage, newKey)
		}
		return nil, fmt.Errorf("update document: %w", err)
	}

	// Metadata now points at the new object; the previous one is no longer
	// needed. Deletion is best effort and never fails the update.
	if newKey != "" && oldKey != "" && !(oldKind == updated.Storage && oldKey == updated.ObjectKey()) {
		s.deleteBestEffort(ctx, oldKind, oldKey)
	}
	return updated, nil
}

func (s *documentService) Delete(ctx context.Context, id int64) (*model.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if doc.Status == model.StatusDeleted {
		return doc, nil
	}

	doc.Status = model.StatusDeleted
	doc.UpdatedAt = time.Now().UTC()
	updated, err := s.repo.Update(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("mark deleted: %w", err)
	}
	return updated, nil
}

func (s *documentService) Purge(ctx context.Context, id int64) (*model.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Object removal is idempotent on a missing key; other failures are
	// reported but do not block metadata removal.
	s.deleteBestEffort(ctx, doc.Storage, doc.ObjectKey())

	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete document: %w", err)
	}
	return doc, nil
}

func (s *documentService) Get(ctx context.Context, id int64) (*model.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// List returns paginated documents without exposing repository types.
func (s *documentService) List(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *documentService) URL(ctx context.Context, doc *model.Document) (string, error) {
	key := doc.ObjectKey()
	if key == "" {
		return "", nil
	}
	backend, err := s.backendFor(doc.Storage)
	if err != nil {
		return "", err
	}
	return backend.URL(ctx, key, presignExpiry)
}
