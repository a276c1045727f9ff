package utils

import (
	"github.com/gin-gonic/gin"
)

// Error codes let clients tell failures apart without parsing the message.
const (
	CodeValidation   = "validation_error"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeStore        = "store_error"
	CodeUnauthorized = "unauthorized"
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

func RespondError(c *gin.Context, code int, err error) {
	RespondErrorCode(c, code, "", err)
}

// RespondErrorCode is RespondError with a machine-readable error code.
func RespondErrorCode(c *gin.Context, status int, code string, err error) {
	c.JSON(status, JSONResponse{
		Status:  false,
		Message: err.Error(),
		Code:    code,
	})
}
