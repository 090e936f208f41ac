package utils

import (
	"github.com/gin-gonic/gin"

	"laundry-backend/apperr"
)

type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

// RespondError converts an engine failure into the transport response.
// This is the only place an apperr kind becomes an HTTP status.
func RespondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	c.JSON(kind.HTTPStatus(), JSONResponse{
		Status:  false,
		Message: err.Error(),
		Code:    kind.String(),
		Data:    apperr.DataOf(err),
	})
}

// RespondErrorWithStatus keeps the explicit-status form for callers that
// fail before reaching an engine (malformed JSON and the like).
func RespondErrorWithStatus(c *gin.Context, code int, err error) {
	c.JSON(code, JSONResponse{
		Status:  false,
		Message: err.Error(),
	})
}
