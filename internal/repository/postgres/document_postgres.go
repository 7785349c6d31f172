package postgres

import (
	"context"
	"database/sql"
	"errors"

	"docregistry/internal/model"
	"docregistry/internal/repository"
)

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

const documentColumns = `pk_document_id, source_id, source_type, document_type, reg_date, document_no,
		name, version_no, size_kb, ext, original_name,
		has_expired, expired_date, storage, path, s3_key, s3_bucket,
		status, created_date, created_by, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var d model.Document
	var storage string
	if err := row.Scan(
		&d.ID,
		&d.SourceID,
		&d.SourceType,
		&d.DocumentType,
		&d.RegDate,
		&d.DocumentNo,
		&d.Name,
		&d.VersionNo,
		&d.SizeKB,
		&d.Ext,
		&d.OriginalName,
		&d.HasExpired,
		&d.ExpiredDate,
		&storage,
		&d.Path,
		&d.S3Key,
		&d.S3Bucket,
		&d.Status,
		&d.CreatedDate,
		&d.CreatedBy,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.Storage = model.StorageKind(storage)
	return &d, nil
}

// IsNoRowsError reports whether err signals a missing row.
func IsNoRowsError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (source_id, source_type, document_type, reg_date, document_no,
			name, version_no, size_kb, ext, original_name,
			has_expired, expired_date, storage, path, s3_key, s3_bucket,
			status, created_date, created_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.SourceID,
		doc.SourceType,
		doc.DocumentType,
		doc.RegDate,
		doc.DocumentNo,
		doc.Name,
		doc.VersionNo,
		doc.SizeKB,
		doc.Ext,
		doc.OriginalName,
		doc.HasExpired,
		doc.ExpiredDate,
		string(doc.Storage),
		doc.Path,
		doc.S3Key,
		doc.S3Bucket,
		doc.Status,
		doc.CreatedDate,
		doc.CreatedBy,
		doc.UpdatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its primary key.
func (r *DocumentPostgres) FindByID(ctx context.Context, id int64) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE pk_document_id = $1
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// List returns non-deleted documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `SELECT COUNT(*) FROM documents WHERE status IS DISTINCT FROM 'deleted'`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE status IS DISTINCT FROM 'deleted'
		ORDER BY created_date DESC, pk_document_id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
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

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// Update persists the full row and returns the stored record.
func (r *DocumentPostgres) Update(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		UPDATE documents
		SET source_id = $1, source_type = $2, document_type = $3, reg_date = $4, document_no = $5,
			name = $6, version_no = $7, size_kb = $8, ext = $9, original_name = $10,
			has_expired = $11, expired_date = $12, storage = $13, path = $14, s3_key = $15, s3_bucket = $16,
			status = $17, updated_at = $18
		WHERE pk_document_id = $19
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.SourceID,
		doc.SourceType,
		doc.DocumentType,
		doc.RegDate,
		doc.DocumentNo,
		doc.Name,
		doc.VersionNo,
		doc.SizeKB,
		doc.Ext,
		doc.OriginalName,
		doc.HasExpired,
		doc.ExpiredDate,
		string(doc.Storage),
		doc.Path,
		doc.S3Key,
		doc.S3Bucket,
		doc.Status,
		doc.UpdatedAt,
		doc.ID,
	)
	return scanDocument(row)
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM documents WHERE pk_document_id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}
