package server

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flightsearch/errors"
)

// RespondWithError writes err as an errors.ErrorResponse. Errors that are
// not AppErrors become a 500.
func RespondWithError(c *gin.Context, err error) {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}
	internal := errors.Internal(err)
	c.JSON(internal.HTTPStatus, internal.ToResponse())
}
