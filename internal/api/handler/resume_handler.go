package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/url"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"resume-ner-go/internal/api/middleware"
	"resume-ner-go/internal/extractor"
	"resume-ner-go/internal/logger"
	"resume-ner-go/internal/processor"
	"resume-ner-go/internal/types"
)

// ResumeAPI handler 依赖的业务接口，processor.ResumeService 实现
type ResumeAPI interface {
	Ingest(ctx context.Context, req processor.UploadRequest) (*types.IngestResult, error)
	Extract(ctx context.Context, text string) (*types.ResumeRecord, error)
	Search(ctx context.Context, query string, limit int) ([]types.ResumeSearchHit, error)
	Submission(ctx context.Context, id string) (*processor.SubmissionDetail, error)
	OriginalFile(ctx context.Context, id string) (*processor.OriginalFile, error)
	QuickTags(text string) []string
}

var _ ResumeAPI = (*processor.ResumeService)(nil)

var errBadRequestBody = errors.New("invalid request body")

// ResumeHandler 简历相关 HTTP 接口
type ResumeHandler struct {
	svc ResumeAPI
}

// NewResumeHandler 创建处理器
func NewResumeHandler(svc ResumeAPI) *ResumeHandler {
	return &ResumeHandler{svc: svc}
}

type textRequest struct {
	Text string `json:"text"`
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// Upload POST /api/v1/resume/upload，multipart 字段 file
func (h *ResumeHandler) Upload(c context.Context, ctx *app.RequestContext) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		h.fail(c, ctx, consts.StatusBadRequest, "file is required", err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.fail(c, ctx, consts.StatusInternalServerError, "打开文件失败", err)
		return
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	res, err := h.svc.Ingest(c, processor.UploadRequest{
		FileName: fileHeader.Filename,
		Size:     fileHeader.Size,
		Reader:   file,
	})
	if err != nil {
		h.writeError(c, ctx, err)
		return
	}

	ctx.JSON(consts.StatusOK, utils.H{
		"success":         true,
		"submission_uuid": res.SubmissionUUID,
		"file_name":       res.FileName,
		"duplicate":       res.Duplicate,
		"scores":          res.Scores,
		"extracted":       res.Extracted,
		"quick_tags":      res.QuickTags,
	})
}

// Extract POST /api/v1/resume/extract，只抽取不保存
func (h *ResumeHandler) Extract(c context.Context, ctx *app.RequestContext) {
	var req textRequest
	if err := json.Unmarshal(ctx.Request.Body(), &req); err != nil {
		h.writeError(c, ctx, fmt.Errorf("%w: %v", errBadRequestBody, err))
		return
	}
	record, err := h.svc.Extract(c, req.Text)
	if err != nil {
		h.writeError(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{
		"success":    true,
		"extracted":  record,
		"quick_tags": h.svc.QuickTags(req.Text),
	})
}

// Search POST /api/v1/resume/search
func (h *ResumeHandler) Search(c context.Context, ctx *app.RequestContext) {
	var req searchRequest
	if err := json.Unmarshal(ctx.Request.Body(), &req); err != nil {
		h.writeError(c, ctx, fmt.Errorf("%w: %v", errBadRequestBody, err))
		return
	}
	hits, err := h.svc.Search(c, req.Query, req.Limit)
	if err != nil {
		h.writeError(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"success": true, "results": hits})
}

// OriginalFile GET /api/v1/resume/file/:id
func (h *ResumeHandler) OriginalFile(c context.Context, ctx *app.RequestContext) {
	file, err := h.svc.OriginalFile(c, ctx.Param("id"))
	if err != nil {
		h.writeError(c, ctx, err)
		return
	}
	ctx.SetContentType(file.ContentType)
	ctx.Response.Header.Set("Content-Disposition", fmt.Sprintf("inline; filename*=UTF-8''%s", url.PathEscape(file.FileName)))
	// 响应写完后由 hertz 关闭 Reader
	ctx.SetBodyStream(file.Reader, int(file.Size))
}

// Submission GET /api/v1/resume/:id
func (h *ResumeHandler) Submission(c context.Context, ctx *app.RequestContext) {
	detail, err := h.svc.Submission(c, ctx.Param("id"))
	if err != nil {
		h.writeError(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"success": true, "submission": detail})
}

// QuickTags POST /api/v1/internship/tags
func (h *ResumeHandler) QuickTags(c context.Context, ctx *app.RequestContext) {
	var req textRequest
	if err := json.Unmarshal(ctx.Request.Body(), &req); err != nil {
		h.writeError(c, ctx, fmt.Errorf("%w: %v", errBadRequestBody, err))
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"success": true, "tags": h.svc.QuickTags(req.Text)})
}

// Health GET /health
func Health(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
}

// writeError 把业务错误映射为状态码
func (h *ResumeHandler) writeError(c context.Context, ctx *app.RequestContext, err error) {
	status, msg := StatusFor(err)
	h.fail(c, ctx, status, msg, err)
}

// StatusFor 错误到 HTTP 状态码和对外消息的映射
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, processor.ErrFileTooLarge):
		return consts.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, processor.ErrExtractionUnavailable), errors.Is(err, extractor.ErrExtractionFailed):
		return consts.StatusUnprocessableEntity, "extraction unavailable"
	case errors.Is(err, processor.ErrParseTextFailed):
		return consts.StatusUnprocessableEntity, "could not read text from file"
	case errors.Is(err, processor.ErrUnsupportedFile),
		errors.Is(err, processor.ErrEmptyFile),
		errors.Is(err, processor.ErrInvalidSubmissionID),
		errors.Is(err, processor.ErrEmptyQuery),
		errors.Is(err, errBadRequestBody):
		return consts.StatusBadRequest, err.Error()
	case errors.Is(err, extractor.ErrInvalidInput):
		return consts.StatusBadRequest, "text is required"
	case errors.Is(err, processor.ErrSubmissionNotFound):
		return consts.StatusNotFound, "submission not found"
	case errors.Is(err, processor.ErrSearchUnavailable), errors.Is(err, processor.ErrStorageNotInit):
		return consts.StatusServiceUnavailable, "service unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return consts.StatusGatewayTimeout, "processing timed out"
	}
	return consts.StatusInternalServerError, "internal error"
}

func (h *ResumeHandler) fail(c context.Context, ctx *app.RequestContext, status int, msg string, err error) {
	event := logger.Ctx(c).Warn()
	if status >= consts.StatusInternalServerError {
		event = logger.Ctx(c).Error()
	}
	event.Err(err).Int("status", status).Str("path", string(ctx.Path())).Msg("请求处理失败")

	ctx.JSON(status, utils.H{
		"success":    false,
		"error":      msg,
		"request_id": middleware.GetRequestID(ctx),
	})
}
