// internal/handlers/response.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
)

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// statusOf maps an error kind onto the HTTP status the API reports for it.
func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrSessionClosed),
		errors.Is(err, apperr.ErrInvalidTransition),
		errors.Is(err, apperr.ErrIncompleteSession):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrAnalysis),
		errors.Is(err, apperr.ErrPayment),
		errors.Is(err, apperr.ErrReporting):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error envelope. Server-side failures are logged and their
// details are not echoed to the client.
func fail(c *gin.Context, log *zap.Logger, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("code", apperr.Code(err)),
			zap.Error(err),
		)
		if status == http.StatusInternalServerError {
			msg = "Internal server error"
		}
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": errorBody{Message: msg, Code: apperr.Code(err)}})
}

func sessionID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid session id %q", c.Param("id"))
	}
	return id, nil
}
