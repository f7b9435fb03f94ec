package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/canari/internal/model"
)

// statusOf maps the error taxonomy onto HTTP status codes
func statusOf(err error) int {
	var ve *model.ValidationError
	var pe *model.PersistenceError
	switch {
	case errors.Is(err, model.ErrSubmitInProgress), errors.Is(err, model.ErrWrongStep):
		return http.StatusConflict
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.As(err, &pe):
		return http.StatusBadGateway
	case errors.Is(err, model.ErrKindMismatch), errors.Is(err, model.ErrIndexOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorBody renders err for clients. Validation errors carry the offending
// field keys under "fields".
func errorBody(err error) gin.H {
	body := gin.H{"error": err.Error()}
	var ve *model.ValidationError
	if errors.As(err, &ve) && len(ve.Fields) > 0 {
		body["fields"] = ve.Fields
	}
	return body
}

func abort(c *gin.Context, err error) {
	abortWith(c, err, nil)
}

// abortWith writes the error response, merging extra into the body
func abortWith(c *gin.Context, err error, extra gin.H) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	body := errorBody(err)
	for k, v := range extra {
		body[k] = v
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
