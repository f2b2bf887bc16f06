package api

import (
	"context"
	"errors"

	"TickerPulse/internal/domain/models"
	xhttp "TickerPulse/pkg/http"
)

// toAppError maps the domain error taxonomy onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrMalformedInput):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrTransientSource),
		errors.Is(err, context.DeadlineExceeded):
		return xhttp.UnavailableError("upstream temporarily unavailable").WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
