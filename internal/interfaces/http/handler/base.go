// Package handler 提供 HTTP 请求处理器
package handler

import (
	"z-novel-copilot/internal/interfaces/http/dto"
	"z-novel-copilot/pkg/errors"
	"z-novel-copilot/pkg/logger"

	"github.com/gin-gonic/gin"
)

// writeError AppError 按错误码映射状态，其他错误记录后返回 500
func writeError(c *gin.Context, err error, fallback string) {
	if errors.IsAppError(err) {
		appErr := errors.AsAppError(err)
		dto.Error(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
			ErrorCode: string(appErr.Code),
			Details:   appErr.Detail,
		})
		return
	}
	logger.Error(c.Request.Context(), fallback, err)
	dto.InternalError(c, fallback)
}

// bindJSON 绑定失败时直接写 400
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}
