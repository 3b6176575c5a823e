package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/recipeclip/internal/auth"
	"github.com/timmy/recipeclip/internal/domain"
	"github.com/timmy/recipeclip/internal/logger"
	"github.com/timmy/recipeclip/internal/storage"
)

// statusOf maps a service error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrRecipeNotFound), errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPermissionDenied), errors.Is(err, domain.ErrSelfModification):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedMedia):
		return http.StatusBadRequest
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": message}. Internal errors are logged
// and hidden from the client.
func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.CtxError(c.Request.Context(), "Request failed: %v", err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// idParam parses a positive numeric path parameter, writing 400 on failure.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// formUpload opens an optional multipart file field. The returned close
// function is never nil.
func formUpload(c *gin.Context, field string) (*storage.Upload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, err
	}
	f, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	up := &storage.Upload{Filename: header.Filename, Size: header.Size, Body: f}
	return up, func() { f.Close() }, nil
}

// bindError reports a request binding failure: 413 for oversized bodies,
// 400 otherwise.
func bindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
		return
	}
	badRequest(c, "Invalid request: "+err.Error())
}
