package middleware

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"resume-ner-go/internal/logger"
)

// AccessLog 请求结束后记录一条访问日志
func AccessLog() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)

		status := ctx.Response.StatusCode()
		event := logger.Ctx(c).Info()
		if status >= 500 {
			event = logger.Ctx(c).Error()
		} else if status >= 400 {
			event = logger.Ctx(c).Warn()
		}
		event.
			Str("method", string(ctx.Method())).
			Str("path", string(ctx.Path())).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str(RequestIDKey, GetRequestID(ctx)).
			Msg("HTTP请求")
	}
}
