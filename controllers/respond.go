package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/church-cms-go/apperr"
	"github.com/phillip/church-cms-go/models"
	"github.com/phillip/church-cms-go/repository"
	"github.com/phillip/church-cms-go/utils"
)

const (
	readTimeout  = 5 * time.Second
	listTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
)

// fail attaches err for the error handler and stops the chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func respond(c *gin.Context, status int, message string, data any) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func respondPage(c *gin.Context, items any, opts models.ListOptions, total int64) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       items,
		"pagination": models.NewPageInfo(opts.Page, opts.Limit, total),
	})
}

// notModified sets the ETag for a document and reports whether the client's
// copy is current, in which case 304 has been written.
func notModified(c *gin.Context, id primitive.ObjectID, updatedAt time.Time, extra ...string) bool {
	etag := utils.GenerateETag(id, updatedAt, extra...)
	c.Header("ETag", etag)
	c.Header("Last-Modified", updatedAt.UTC().Format(http.TimeFormat))
	if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

// pathID parses :id. Malformed ids are reported as missing documents.
func pathID(c *gin.Context, notFound string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		fail(c, apperr.NotFound(notFound))
		return primitive.NilObjectID, false
	}
	return id, true
}

func timeout(c *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), d)
}

// storeError maps repository sentinels onto resource-specific messages.
func storeError(err error, notFound, duplicate, server string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(notFound)
	case errors.Is(err, repository.ErrDuplicate) && duplicate != "":
		return apperr.Conflict(duplicate)
	default:
		return apperr.Server(server, err)
	}
}
