package router

import (
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"

	"resume-ner-go/internal/api/handler"
)

// RegisterRoutes 注册 API 路由。auth 为 nil 时 /api/v1 不鉴权，/health 始终开放
func RegisterRoutes(h *server.Hertz, resumeHandler *handler.ResumeHandler, auth app.HandlerFunc) {
	h.GET("/health", handler.Health)

	var mws []app.HandlerFunc
	if auth != nil {
		mws = append(mws, auth)
	}
	api := h.Group("/api/v1", mws...)

	resume := api.Group("/resume")
	resume.POST("/upload", resumeHandler.Upload)
	resume.POST("/extract", resumeHandler.Extract)
	resume.POST("/search", resumeHandler.Search)
	resume.GET("/file/:id", resumeHandler.OriginalFile)
	resume.GET("/:id", resumeHandler.Submission)

	api.POST("/internship/tags", resumeHandler.QuickTags)
}
