package middleware

import (
	"z-novel-copilot/internal/interfaces/http/dto"
	apperrors "z-novel-copilot/pkg/errors"

	"github.com/gin-gonic/gin"
)

// abortWith 以统一错误信封终止请求
func abortWith(c *gin.Context, err *apperrors.AppError) {
	dto.Error(c, err.HTTPStatus, err.Message, &dto.ErrorDetail{ErrorCode: string(err.Code)})
	c.Abort()
}
