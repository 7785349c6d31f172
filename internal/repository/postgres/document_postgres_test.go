package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"docregistry/internal/model"
	"docregistry/internal/repository"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var documentTestColumns = []string{
	"pk_document_id", "source_id", "source_type", "document_type", "reg_date", "document_no",
	"name", "version_no", "size_kb", "ext", "original_name",
	"has_expired", "expired_date", "storage", "path", "s3_key", "s3_bucket",
	"status", "created_date", "created_by", "updated_at",
}

func addDocumentRow(rows *sqlmock.Rows, id int64, name string, now time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, nil, nil, nil, nil, nil,
		name, nil, int64(12), "pdf", "orig.pdf",
		false, nil, "s3", nil, "documents/2025/08/key.pdf", "bucket",
		"active", now, int64(1), now,
	)
}

func TestDocumentPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	key := "documents/2025/08/key.pdf"
	bucket := "bucket"
	doc := &model.Document{
		Name:         "Policy",
		SizeKB:       12,
		Ext:          "pdf",
		OriginalName: "orig.pdf",
		Storage:      model.StorageS3,
		S3Key:        &key,
		S3Bucket:     &bucket,
		Status:       model.StatusActive,
		CreatedDate:  now,
		CreatedBy:    1,
		UpdatedAt:    now,
	}

	rows := addDocumentRow(sqlmock.NewRows(documentTestColumns), 5, "Policy", now)
	mock.ExpectQuery("INSERT INTO documents").
		WillReturnRows(rows)

	result, err := repo.Create(ctx, doc)

	assert.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, int64(5), result.ID)
	assert.Equal(t, model.StorageS3, result.Storage)
	require.NotNil(t, result.S3Key)
	assert.Equal(t, key, *result.S3Key)
	assert.Nil(t, result.Path)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		rows := addDocumentRow(sqlmock.NewRows(documentTestColumns), 7, "file", time.Now())
		mock.ExpectQuery("SELECT (.+) FROM documents").
			WithArgs(int64(7)).
			WillReturnRows(rows)

		doc, err := repo.FindByID(ctx, 7)

		assert.NoError(t, err)
		require.NotNil(t, doc)
		assert.Equal(t, int64(7), doc.ID)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents").
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		doc, err := repo.FindByID(ctx, 99)

		assert.Error(t, err)
		assert.True(t, IsNoRowsError(err))
		assert.Nil(t, doc)
	})
}

func TestDocumentPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("success excludes soft-deleted rows", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM documents WHERE status IS DISTINCT FROM 'deleted'`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		rows := addDocumentRow(sqlmock.NewRows(documentTestColumns), 3, "file", time.Now())
		mock.ExpectQuery(`SELECT (.+) FROM documents\s+WHERE status IS DISTINCT FROM 'deleted'\s+ORDER BY created_date DESC, pk_document_id DESC`).
			WithArgs(10, 0).
			WillReturnRows(rows)

		res, err := repo.List(ctx, repository.PageQuery{Limit: 10, Offset: 0})

		assert.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		assert.Len(t, res.Items, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDocumentPostgres_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	key := "documents/2025/08/key.pdf"
	bucket := "bucket"
	doc := &model.Document{
		ID:           5,
		Name:         "Renamed",
		SizeKB:       12,
		Ext:          "pdf",
		OriginalName: "orig.pdf",
		Storage:      model.StorageS3,
		S3Key:        &key,
		S3Bucket:     &bucket,
		Status:       model.StatusActive,
		UpdatedAt:    now,
	}

	rows := addDocumentRow(sqlmock.NewRows(documentTestColumns), 5, "Renamed", now)
	mock.ExpectQuery("UPDATE documents").
		WillReturnRows(rows)

	result, err := repo.Update(ctx, doc)

	assert.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Renamed", result.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("deletes row", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM documents WHERE pk_document_id").
			WithArgs(int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(ctx, 5))
	})

	t.Run("missing row is not an error", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM documents WHERE pk_document_id").
			WithArgs(int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, repo.Delete(ctx, 99))
	})
}
