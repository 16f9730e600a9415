package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-optimizer/internal/shared/server/respond"
	"resume-optimizer/internal/shared/storage/object"
)

// FileVerifier checks signed download links and opens the object behind them.
type FileVerifier interface {
	object.ObjectStore
	Verify(storageKey, expiresRaw, sig string) error
}

// registerFileRoutes serves signed downloads for the local object store.
func registerFileRoutes(rg *gin.RouterGroup, store FileVerifier) {
	rg.GET("/files/*key", serveFile(store))
}

func serveFile(store FileVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		if key == "" {
			respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
			return
		}
		if err := store.Verify(key, c.Query("expires"), c.Query("sig")); err != nil {
			respond.Error(c, http.StatusForbidden, "forbidden", "link is invalid or has expired", nil)
			return
		}

		rc, err := store.Open(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "unable to open file", nil)
			return
		}
		defer rc.Close()

		contentType := mime.TypeByExtension(path.Ext(key))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Header("Content-Disposition", `attachment; filename="`+path.Base(key)+`"`)
		c.Header("Content-Type", contentType)
		c.Status(http.StatusOK)
		_, _ = io.Copy(c.Writer, rc)
	}
}
