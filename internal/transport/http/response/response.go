package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeOK                 = 0
	CodeBadRequest         = 40000
	CodeUsernameExists     = 40001
	CodeEmailExists        = 40002
	CodeNotAuthenticated   = 40003
	CodeAccountGone        = 40004
	CodePhoneExists        = 40005
	CodeUnauthorized       = 40100
	CodeInvalidCredentials = 40101
	CodeForbidden          = 40300
	CodeCampaignNotFound   = 40401
	CodeUserNotFound       = 40402
	CodeTooManyRequests    = 42900
	CodeInternalServer     = 50000
	CodeServiceUnavailable = 50300
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, data)
}

func Created(c *gin.Context, data interface{}) {
	write(c, http.StatusCreated, data)
}

func Accepted(c *gin.Context, data interface{}) {
	write(c, http.StatusAccepted, data)
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// Abort writes the error envelope and stops the handler chain.
func Abort(c *gin.Context, httpStatus, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

func write(c *gin.Context, status int, data interface{}) {
	c.JSON(status, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}
