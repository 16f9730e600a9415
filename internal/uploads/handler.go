package uploads

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"resume-optimizer/internal/extract"
	"resume-optimizer/internal/sanitize"
	"resume-optimizer/internal/shared/server/middleware"
	"resume-optimizer/internal/shared/server/respond"
	"resume-optimizer/internal/shared/storage/object"
	"resume-optimizer/internal/shared/telemetry"
	"resume-optimizer/internal/shared/util"
)

const (
	maxUploadBytes = 5 << 20
	uploadsPrefix  = "uploads"
	anonymousOwner = "anonymous"
)

// Handler accepts resume uploads and returns their extracted text.
type Handler struct {
	Store object.ObjectStore
}

// NewHandler constructs a Handler saving originals to store.
func NewHandler(store object.ObjectStore) *Handler {
	return &Handler{Store: store}
}

type extractResponse struct {
	FileName   string `json:"fileName"`
	StorageKey string `json:"storageKey"`
	Text       string `json:"text"`
	Characters int    `json:"characters"`
}

// RegisterRoutes attaches upload routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/uploads/extract", h.extract)
}

func (h *Handler) extract(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+(64<<10))

	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds 5MB limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fh.Size > maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds 5MB limit", nil)
		return
	}

	if err := sanitize.ValidateFileName(fh.Filename); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unsupported file name", rejectDetails(err))
		return
	}
	name, err := util.SanitizeFileName(fh.Filename)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid fileName", nil)
		return
	}

	f, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	owner := anonymousOwner
	if email := strings.ToLower(strings.TrimSpace(c.PostForm("email"))); email != "" {
		c.Set(middleware.EmailKey, email)
		owner = util.HashUserKey(email)
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	ctx := c.Request.Context()
	key := path.Join(uploadsPrefix, owner, uuid.NewString()+"-"+name)
	if _, err := object.Upload(ctx, h.Store, data, key, contentType); err != nil {
		telemetry.Error("uploads.save_failed", map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"key":        key,
			"error":      err.Error(),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store upload", nil)
		return
	}

	text, err := extract.ExtractText(ctx, h.Store, key, contentType, name)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedFormat):
			respond.Error(c, http.StatusUnprocessableEntity, "unsupported_format", "Text could not be extracted from this file type. Please paste your resume text instead.", nil)
		case errors.Is(err, extract.ErrNoText):
			respond.Error(c, http.StatusUnprocessableEntity, "no_text", "No readable text was found in this file. Please paste your resume text instead.", nil)
		default:
			telemetry.Warn("uploads.extract_failed", map[string]any{
				"request_id": middleware.RequestIDFromContext(c),
				"key":        key,
				"error":      err.Error(),
			})
			respond.Error(c, http.StatusUnprocessableEntity, "extract_failed", "The file could not be read. Please paste your resume text instead.", nil)
		}
		return
	}

	clean := sanitize.Sanitize(text)
	if err := sanitize.ValidateContent(clean, sanitize.KindResume); err != nil {
		respond.Error(c, http.StatusUnprocessableEntity, "validation_error", "extracted text is not a usable resume", rejectDetails(err))
		return
	}

	telemetry.Info("uploads.extracted", map[string]any{
		"request_id": middleware.RequestIDFromContext(c),
		"key":        key,
		"bytes":      len(data),
		"characters": len([]rune(clean)),
	})
	respond.OK(c, extractResponse{
		FileName:   name,
		StorageKey: key,
		Text:       clean,
		Characters: len([]rune(clean)),
	})
}

func rejectDetails(err error) []map[string]string {
	if rej, ok := sanitize.AsReject(err); ok {
		return []map[string]string{{"field": rej.Field, "issue": string(rej.Reason)}}
	}
	return nil
}
