package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"docregistry/internal/http/middleware"
	"docregistry/internal/model"
	"docregistry/internal/service"
)

// documentWithURL decorates a record with a resolved download URL for
// single-document responses.
type documentWithURL struct {
	*model.Document
	URL string `json:"url,omitempty"`
}

// HealthCheck reports readiness: it pings the database with a short timeout.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "Service unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a plain liveness endpoint with no dependency checks.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListDocuments returns a paginated page of non-deleted documents.
//
// @Summary List documents
// @Produce json
// @Param limit query int false "page size" default(10)
// @Param offset query int false "page offset" default(0)
// @Success 200 {object} response
// @Router /v1/documents [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusUnprocessableEntity, "Invalid limit parameter")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusUnprocessableEntity, "Invalid offset parameter")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		return respond(c, fiber.StatusOK, "Documents retrieved successfully", res)
	}
}

// GetDocument returns one document by id, with a resolved download URL
// when the record points at a stored object.
//
// @Summary Get a document
// @Produce json
// @Param id path int true "document id"
// @Success 200 {object} response
// @Failure 404 {object} response
// @Router /v1/documents/{id} [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusNotFound, "Document not found")
		}

		doc, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}

		payload := documentWithURL{Document: doc}
		if url, err := svc.URL(c.UserContext(), doc); err != nil {
			log.Printf("resolve url for document %d failed: %v", doc.ID, err)
		} else {
			payload.URL = url
		}
		return respond(c, fiber.StatusOK, "Document retrieved successfully", payload)
	}
}

// CreateDocument registers a new document from a multipart form: the file
// plus its metadata fields. The authenticated user becomes created_by.
//
// @Summary Create a document
// @Accept mpfd
// @Produce json
// @Param name formData string true "document name"
// @Param file formData file true "file content"
// @Param storage formData string false "backend: s3 or local" default(s3)
// @Success 201 {object} response
// @Failure 422 {object} response
// @Router /v1/documents [post]
func CreateDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, err := createInput(c)
		if err != nil {
			return writeError(c, fiber.StatusUnprocessableEntity, err.Error())
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusUnprocessableEntity, "File is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusUnprocessableEntity, "Cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		var createdBy int64
		if id := middleware.IdentityFromCtx(c); id != nil {
			createdBy = id.UserID
		}

		doc, err := svc.Create(c.UserContext(), in, service.FileUpload{
			Reader:       f,
			Size:         fh.Size,
			OriginalName: fh.Filename,
			ContentType:  ct,
		}, createdBy)
		if err != nil {
			return serviceError(c, err)
		}
		return respond(c, fiber.StatusCreated, "Document created successfully", doc)
	}
}

// UpdateDocument applies a partial update and optionally replaces the file.
// Registered for both PUT and POST on /v1/documents/{id}.
//
// @Summary Update a document
// @Accept mpfd
// @Produce json
// @Param id path int true "document id"
// @Success 200 {object} response
// @Failure 404 {object} response
// @Failure 422 {object} response
// @Router /v1/documents/{id} [put]
func UpdateDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusNotFound, "Document not found")
		}

		patch, backend, err := updatePatch(c)
		if err != nil {
			return writeError(c, fiber.StatusUnprocessableEntity, err.Error())
		}

		var file *service.FileUpload
		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusUnprocessableEntity, "Cannot open uploaded file")
			}
			defer f.Close()

			ct := fh.Header.Get("Content-Type")
			if ct == "" {
				ct = "application/octet-stream"
			}
			file = &service.FileUpload{
				Reader:       f,
				Size:         fh.Size,
				OriginalName: fh.Filename,
				ContentType:  ct,
			}
		}

		doc, err := svc.Update(c.UserContext(), id, patch, file, backend)
		if err != nil {
			return serviceError(c, err)
		}
		return respond(c, fiber.StatusOK, "Document updated successfully", doc)
	}
}

// DeleteDocument soft-deletes: the row is marked deleted and the object is
// kept. Returns the updated snapshot.
//
// @Summary Delete a document
// @Produce json
// @Param id path int true "document id"
// @Success 200 {object} response
// @Failure 404 {object} response
// @Router /v1/documents/{id} [delete]
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusNotFound, "Document not found")
		}

		doc, err := svc.Delete(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}
		return respond(c, fiber.StatusOK, "Document deleted successfully", doc)
	}
}

// PurgeDocument hard-deletes: the stored object is removed, then the row.
// Returns the prior snapshot.
//
// @Summary Purge a document
// @Produce json
// @Param id path int true "document id"
// @Success 200 {object} response
// @Failure 404 {object} response
// @Router /v1/documents/{id}/purge [delete]
func PurgeDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusNotFound, "Document not found")
		}

		doc, err := svc.Purge(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}
		return respond(c, fiber.StatusOK, "Document purged successfully", doc)
	}
}

// parseID reads the numeric path id. Non-numeric and non-positive ids are
// treated as unknown documents rather than a distinct error shape.
func parseID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// serviceError translates a service-layer error into the response envelope.
// Underlying causes stay server-side; clients only see the safe message.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "Document not found")
	case errors.Is(err, service.ErrValidation):
		return writeError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrStorageWrite):
		return writeError(c, fiber.StatusUnprocessableEntity, "Failed to store file")
	default:
		log.Printf("document handler: %v", err)
		return writeError(c, fiber.StatusInternalServerError, "Internal server error")
	}
}

// createInput builds the creation metadata from multipart form values.
func createInput(c *fiber.Ctx) (service.CreateInput, error) {
	in := service.CreateInput{Name: strings.TrimSpace(c.FormValue("name"))}

	if v := c.FormValue("storage"); v != "" {
		kind := model.StorageKind(v)
		if !kind.Valid() {
			return in, fmt.Errorf("Unknown storage %q", v)
		}
		in.Storage = kind
	}
	if v := c.FormValue("source_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return in, fmt.Errorf("Invalid source_id")
		}
		in.SourceID = &id
	}
	in.SourceType = optString(c.FormValue("source_type"))
	in.DocumentType = optString(c.FormValue("document_type"))
	in.DocumentNo = optString(c.FormValue("document_no"))
	in.VersionNo = optString(c.FormValue("version_no"))

	if v := c.FormValue("reg_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return in, fmt.Errorf("Invalid reg_date")
		}
		in.RegDate = &t
	}
	if v := c.FormValue("has_expired"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return in, fmt.Errorf("Invalid has_expired")
		}
		in.HasExpired = b
	}
	if v := c.FormValue("expired_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return in, fmt.Errorf("Invalid expired_date")
		}
		in.ExpiredDate = &t
	}
	return in, nil
}

// updateBody mirrors UpdatePatch for JSON requests; nil means "not sent".
type updateBody struct {
	Name         *string `json:"name"`
	DocumentType *string `json:"document_type"`
	VersionNo    *string `json:"version_no"`
	HasExpired   *bool   `json:"has_expired"`
	ExpiredDate  *string `json:"expired_date"`
	Status       *string `json:"status"`
	Storage      *string `json:"storage"`
}

// updatePatch reads a partial update from either a JSON body or form
// values. Absent fields stay nil so stored values are left untouched.
func updatePatch(c *fiber.Ctx) (service.UpdatePatch, model.StorageKind, error) {
	var patch service.UpdatePatch
	var kind model.StorageKind

	ct := c.Get(fiber.HeaderContentType)
	if strings.HasPrefix(ct, fiber.MIMEApplicationJSON) {
		var body updateBody
		if err := c.BodyParser(&body); err != nil {
			return patch, "", fmt.Errorf("Invalid request body")
		}
		patch.Name = body.Name
		patch.DocumentType = body.DocumentType
		patch.VersionNo = body.VersionNo
		patch.HasExpired = body.HasExpired
		if body.ExpiredDate != nil {
			t, err := parseDate(*body.ExpiredDate)
			if err != nil {
				return patch, "", fmt.Errorf("Invalid expired_date")
			}
			patch.ExpiredDate = &t
		}
		if body.Status != nil {
			if err := validStatus(*body.Status); err != nil {
				return patch, "", err
			}
			patch.Status = body.Status
		}
		if body.Storage != nil {
			k := model.StorageKind(*body.Storage)
			if !k.Valid() {
				return patch, "", fmt.Errorf("Unknown storage %q", *body.Storage)
			}
			kind = k
		}
		return patch, kind, nil
	}

	if v, ok := formValue(c, "name"); ok {
		patch.Name = &v
	}
	if v, ok := formValue(c, "document_type"); ok {
		patch.DocumentType = &v
	}
	if v, ok := formValue(c, "version_no"); ok {
		patch.VersionNo = &v
	}
	if v, ok := formValue(c, "has_expired"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return patch, "", fmt.Errorf("Invalid has_expired")
		}
		patch.HasExpired = &b
	}
	if v, ok := formValue(c, "expired_date"); ok {
		t, err := parseDate(v)
		if err != nil {
			return patch, "", fmt.Errorf("Invalid expired_date")
		}
		patch.ExpiredDate = &t
	}
	if v, ok := formValue(c, "status"); ok {
		if err := validStatus(v); err != nil {
			return patch, "", err
		}
		patch.Status = &v
	}
	if v, ok := formValue(c, "storage"); ok {
		k := model.StorageKind(v)
		if !k.Valid() {
			return patch, "", fmt.Errorf("Unknown storage %q", v)
		}
		kind = k
	}
	return patch, kind, nil
}

// formValue reports presence, distinguishing an omitted field from an
// empty one so partial updates can clear values intentionally.
func formValue(c *fiber.Ctx, key string) (string, bool) {
	if form, err := c.MultipartForm(); err == nil && form != nil {
		if vs, ok := form.Value[key]; ok && len(vs) > 0 {
			return vs[0], true
		}
		return "", false
	}
	if c.Request().PostArgs().Has(key) {
		return string(c.Request().PostArgs().Peek(key)), true
	}
	return "", false
}

func optString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func validStatus(v string) error {
	if v != model.StatusActive && v != model.StatusDeleted {
		return fmt.Errorf("Unknown status %q", v)
	}
	return nil
}

// parseDate accepts RFC3339 timestamps or bare dates.
func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
