package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every /api endpoint answers with. Code is 0 on
// success and the HTTP status otherwise.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{
		Code:    status,
		Message: message,
	})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	fail(c, http.StatusBadRequest, err.Error())
}

func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	fail(c, http.StatusInternalServerError, err.Error())
}
