package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"book-service/internal/entity"
)

const genericErrorMessage = "An unexpected error occurred. Please try again later."

// ErrorHandler renders every error as {"detail": ...}. Anything it does not recognise becomes a
// 500 with a generic message; the real error is only logged.
func ErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, detail := classify(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).
				Str("method", c.Request().Method).
				Str("uri", c.Request().RequestURI).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("Unhandled error")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, map[string]interface{}{"detail": detail})
		}
		if werr != nil {
			log.Error().Err(werr).Msg("Error writing error response")
		}
	}
}

func classify(err error) (int, interface{}) {
	var verr *entity.ValidationError
	var herr *echo.HTTPError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Fields
	case errors.Is(err, entity.ErrUnauthorized):
		return http.StatusUnauthorized, "Invalid authentication credentials"
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound, "Book not found"
	case errors.Is(err, entity.ErrUsernameTaken):
		return http.StatusConflict, "Username already taken"
	case errors.Is(err, entity.ErrTooManyRequests):
		return http.StatusTooManyRequests, "Too many requests"
	case errors.As(err, &herr):
		if herr.Code >= http.StatusInternalServerError {
			return herr.Code, genericErrorMessage
		}
		if msg, ok := herr.Message.(string); ok {
			return herr.Code, msg
		}
		return herr.Code, http.StatusText(herr.Code)
	default:
		return http.StatusInternalServerError, genericErrorMessage
	}
}
