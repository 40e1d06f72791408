package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/phillip/church-cms-go/apperr"
	"github.com/phillip/church-cms-go/metrics"
	"github.com/phillip/church-cms-go/utils"
)

// keyUploadLimit holds the body ceiling set by limitBody.
const keyUploadLimit = "upload_limit"

// multipartOverhead leaves room for the text fields sent next to the file.
const multipartOverhead = 1 * utils.MB

// limitBody caps the request body at the policy's size plus form overhead.
func limitBody(c *gin.Context, policy utils.UploadPolicy) {
	c.Set(keyUploadLimit, policy.MaxSize)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, policy.MaxSize+multipartOverhead)
}

func uploadLimitError(c *gin.Context, err error) error {
	var tooBig *http.MaxBytesError
	if !errors.As(err, &tooBig) {
		return nil
	}
	limit := c.GetInt64(keyUploadLimit)
	if limit == 0 {
		return apperr.Upload("File too large.")
	}
	return apperr.Upload(fmt.Sprintf("File too large. Maximum size allowed is %dMB.", limit/utils.MB))
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

// receiveFile returns the single checked upload for policy, or nil when the
// request carries no file.
func receiveFile(c *gin.Context, policy utils.UploadPolicy) (*utils.Incoming, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		if uerr := uploadLimitError(c, err); uerr != nil {
			return nil, uerr
		}
		return nil, apperr.BadRequest("Invalid form data")
	}
	in, err := policy.PickUpload(form)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(policy.Dir, "rejected").Inc()
		return nil, err
	}
	return in, nil
}

// saveFile stores an accepted upload.
func (env *Env) saveFile(ctx context.Context, policy utils.UploadPolicy, in *utils.Incoming) (utils.StoredFile, error) {
	stored, err := env.Files.Save(ctx, policy, in)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(policy.Dir, "failed").Inc()
		return utils.StoredFile{}, apperr.Server("File upload error", err)
	}
	metrics.UploadsTotal.WithLabelValues(policy.Dir, "stored").Inc()
	return stored, nil
}

// discardFiles deletes stored files best-effort; failures are only logged.
func (env *Env) discardFiles(c *gin.Context, refs ...string) {
	logger := zerolog.Ctx(c.Request.Context())
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), writeTimeout)
		err := env.Files.Delete(ctx, ref)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Str("file", ref).Msg("could not delete stored file")
		}
	}
}
