// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h *Handlers) {
	// 事件流 (SSE)
	v1.GET("/events", h.Events.Stream)

	// 原始生成
	generations := v1.Group("/generations")
	{
		generations.POST("", h.Generation.Start)
		generations.DELETE("", h.Generation.CancelAll)
		generations.DELETE("/:channel", h.Generation.Cancel)
		generations.POST("/history/:id/accept", h.History.Accept)
	}

	// 行内建议
	inline := v1.Group("/inline")
	{
		inline.GET("", h.Inline.Get)
		inline.PUT("/document", h.Inline.BindDocument)
		inline.POST("/start", h.Inline.Start)
		inline.POST("/accept", h.Inline.Accept)
		inline.POST("/partial-accept", h.Inline.PartialAccept)
		inline.POST("/reject", h.Inline.Reject)
		inline.POST("/regenerate", h.Inline.Regenerate)
		inline.POST("/next", h.Inline.Next)
		inline.POST("/previous", h.Inline.Previous)
		inline.POST("/cancel", h.Inline.Cancel)
		inline.POST("/edits", h.Inline.Edit)
	}

	// 对话
	chat := v1.Group("/chat")
	{
		chat.GET("", h.Chat.Get)
		chat.DELETE("", h.Chat.Clear)
		chat.PUT("/conversation", h.Chat.BindConversation)
		chat.POST("/messages", h.Chat.Send)
		chat.POST("/cancel", h.Chat.Cancel)
	}

	// 项目下的生成历史
	projects := v1.Group("/projects")
	{
		projects.GET("/:pid/generations", h.History.List)
	}
}
