package middleware

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"

	"resume-ner-go/internal/config"
	"resume-ner-go/internal/logger"
)

func newEngine(mws ...app.HandlerFunc) *server.Hertz {
	h := server.New(server.WithHostPorts("127.0.0.1:0"))
	h.Use(mws...)
	h.GET("/ping", func(c context.Context, ctx *app.RequestContext) {
		ctx.String(http.StatusOK, GetRequestID(ctx))
	})
	return h
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	h := newEngine(RequestID())

	resp := ut.PerformRequest(h.Engine, http.MethodGet, "/ping", nil)
	id := resp.Header().Get(HeaderRequestID)
	assert.Len(t, id, 36)
	assert.Equal(t, id, resp.Body.String())

	resp = ut.PerformRequest(h.Engine, http.MethodGet, "/ping", nil, ut.Header{Key: HeaderRequestID, Value: "req-123"})
	assert.Equal(t, "req-123", resp.Header().Get(HeaderRequestID))

	resp = ut.PerformRequest(h.Engine, http.MethodGet, "/ping", nil, ut.Header{Key: HeaderRequestID, Value: strings.Repeat("x", 65)})
	assert.Len(t, resp.Header().Get(HeaderRequestID), 36)
}

func TestAccessLogCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(logger.Config{Level: "info", Format: "json"}, &buf)
	h := newEngine(RequestID(), AccessLog())

	ut.PerformRequest(h.Engine, http.MethodGet, "/ping", nil, ut.Header{Key: HeaderRequestID, Value: "req-log"})
	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-log"`)
	assert.Contains(t, out, `"path":"/ping"`)
	assert.Contains(t, out, `"status":200`)
}

func TestAPIKeyAuth(t *testing.T) {
	assert.Nil(t, APIKeyAuth(config.AuthConfig{}))
	assert.Nil(t, APIKeyAuth(config.AuthConfig{APIKeys: []string{""}}))

	h := newEngine(RequestID(), APIKeyAuth(config.AuthConfig{APIKeys: []string{"k1", "k2"}, Header: "X-Token"}))

	resp := ut.PerformRequest(h.Engine, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), `"error":"unauthorized"`)

	resp = ut.PerformRequest(h.Engine, http.MethodGet, "/ping", nil, ut.Header{Key: "X-API-Key", Value: "k1"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ut.PerformRequest(h.Engine, http.MethodGet, "/ping", nil, ut.Header{Key: "X-Token", Value: "k2"})
	assert.Equal(t, http.StatusOK, resp.Code)
}
