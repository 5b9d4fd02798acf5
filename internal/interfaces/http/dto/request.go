// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"strconv"

	"z-novel-copilot/internal/domain/repository"

	"github.com/gin-gonic/gin"
)

// BindPage 读取 page/page_size 查询参数，非法值按缺省处理
func BindPage(c *gin.Context) repository.Pagination {
	return repository.NewPagination(queryInt(c, "page"), queryInt(c, "page_size"))
}

func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}

// ProjectID 路径中的作品 ID
func ProjectID(c *gin.Context) string {
	return c.Param("pid")
}
