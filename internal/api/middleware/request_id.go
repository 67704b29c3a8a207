// Package middleware Hertz 中间件：请求ID、访问日志、API Key 鉴权。
package middleware

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"

	"resume-ner-go/internal/logger"
)

const (
	// HeaderRequestID 请求ID响应头，客户端传入时沿用
	HeaderRequestID = "X-Request-ID"
	// RequestIDKey RequestContext 中保存请求ID的键
	RequestIDKey = "request_id"
)

// RequestID 为每个请求分配ID，写入响应头和日志上下文
func RequestID() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		id := string(ctx.GetHeader(HeaderRequestID))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		ctx.Set(RequestIDKey, id)
		ctx.Response.Header.Set(HeaderRequestID, id)
		c = logger.WithFields(c, map[string]interface{}{RequestIDKey: id})
		ctx.Next(c)
	}
}

// GetRequestID 读取当前请求ID
func GetRequestID(ctx *app.RequestContext) string {
	return ctx.GetString(RequestIDKey)
}
