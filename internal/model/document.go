package model

import "time"

// StorageKind selects which physical backend holds a document's bytes.
type StorageKind string

const (
	StorageS3    StorageKind = "s3"
	StorageLocal StorageKind = "local"
)

// Valid reports whether k is a known backend selector.
func (k StorageKind) Valid() bool {
	return k == StorageS3 || k == StorageLocal
}

// Document lifecycle states.
const (
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

// Document represents a registered file and its metadata.
// This is a pure domain model with no database-specific dependencies or tags.
//
// Exactly one location pair is populated at any time, consistent with
// Storage: (S3Key, S3Bucket) when Storage is "s3", Path when it is "local".
// The row is the single source of truth for where the file lives.
type Document struct {
	ID int64 `json:"pk_document_id"`

	// Provenance: free-form reference to an owning external entity.
	SourceID     *int64     `json:"source_id"`
	SourceType   *string    `json:"source_type"`
	DocumentType *string    `json:"document_type"`
	RegDate      *time.Time `json:"reg_date"`
	DocumentNo   *string    `json:"document_no"`

	Name         string  `json:"name"`
	VersionNo    *string `json:"version_no"`
	SizeKB       int64   `json:"size_kb"`
	Ext          string  `json:"ext"`
	OriginalName string  `json:"original_name"`

	HasExpired  bool       `json:"has_expired"`
	ExpiredDate *time.Time `json:"expired_date"`

	Storage  StorageKind `json:"storage"`
	Path     *string     `json:"path"`
	S3Key    *string     `json:"s3_key"`
	S3Bucket *string     `json:"s3_bucket"`

	Status string `json:"status"`

	CreatedDate time.Time `json:"created_date"`
	CreatedBy   int64     `json:"created_by"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ObjectKey returns the backend-level key for the document's current
// location: the s3 key for object storage, the relative path for local.
func (d *Document) ObjectKey() string {
	if d.Storage == StorageS3 {
		if d.S3Key != nil {
			return *d.S3Key
		}
		return ""
	}
	if d.Path != nil {
		return *d.Path
	}
	return ""
}
