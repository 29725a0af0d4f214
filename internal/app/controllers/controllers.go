package controllers

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/ekklesia/internal/app/models/dto"
	"github.com/yigit/ekklesia/internal/middleware"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
	"github.com/yigit/ekklesia/internal/pkg/export"
)

var errUnauthenticated = apperrors.ErrUnauthorized

// maxUploadSize caps multipart bodies; images are further limited by the storage layer
const maxUploadSize = 8 << 20

// formFile reads a required multipart file field. On failure it writes a 400 and returns false.
func formFile(ctx *gin.Context, field string) (*multipart.FileHeader, bool) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxUploadSize)
	fh, err := ctx.FormFile(field)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "File is required").
			WithField(field).
			WithDetails(err.Error())
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return nil, false
	}
	return fh, true
}

// writeRoster renders r in the format named by ?format= and sends it as an attachment
func writeRoster(ctx *gin.Context, r export.Roster) {
	format, err := export.ParseFormat(ctx.Query("format"))
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError(err.Error()))
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, r, format); err != nil {
		middleware.HandleAPIError(ctx, fmt.Errorf("failed to render roster: %w", err))
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", r.Filename(format)))
	ctx.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
