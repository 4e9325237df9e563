package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/lk2023060901/chat-proxy/internal/pkg/errors"
)

// ErrorBody is the JSON shape of every failed chat response.
type ErrorBody struct {
	Error string `json:"error"`
}

// Fail 统一错误响应：状态码取自错误码，消息体永远是通用文案
func Fail(c *gin.Context, err error) {
	status := apperrors.GetHTTPStatus(apperrors.ExtractCode(err))
	c.AbortWithStatusJSON(status, ErrorBody{Error: apperrors.PublicMessage})
}

// InternalError 500 错误
func InternalError(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{Error: apperrors.PublicMessage})
}

// Success 成功响应（200）
func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = struct{}{}
	}
	c.JSON(http.StatusOK, data)
}
