package repository

import (
	"context"

	"docregistry/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic here — strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document row and returns the stored record,
	// including the database-assigned primary key.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its primary key, regardless of status.
	FindByID(ctx context.Context, id int64) (*model.Document, error)

	// List returns a paginated list of non-deleted documents and the total
	// matching row count. Order is created_date DESC, pk_document_id DESC
	// and is stable across pages.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)

	// Update persists the full row and returns the stored record.
	Update(ctx context.Context, doc *model.Document) (*model.Document, error)

	// Delete removes a document row by ID. It returns nil if the row was
	// deleted or did not exist.
	Delete(ctx context.Context, id int64) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
