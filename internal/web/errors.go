package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appLog "calpin/internal/log"
	"calpin/internal/store"
	"calpin/internal/validate"
)

type errorBody struct {
	Error      string              `json:"error"`
	Violations validate.Violations `json:"violations,omitempty"`
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	if _, ok := validate.AsError(err); ok {
		return http.StatusBadRequest
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(err error) errorBody {
	if verr, ok := validate.AsError(err); ok {
		return errorBody{Error: "validation failed", Violations: verr.Violations}
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errorBody{Error: "not found"}
	case errors.Is(err, store.ErrConflict):
		return errorBody{Error: "conflict"}
	case errors.Is(err, store.ErrUnavailable):
		return errorBody{Error: "storage unavailable"}
	default:
		return errorBody{Error: "internal error"}
	}
}

// writeError renders err and logs anything that is not the client's fault.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		appLog.Error("request failed", err,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"request_id", c.GetString(requestIDKey),
		)
	}
	c.JSON(status, errorResponse(err))
}
