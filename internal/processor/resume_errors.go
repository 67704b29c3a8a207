package processor

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFile       = errors.New("不支持的文件类型")
	ErrFileTooLarge          = errors.New("文件超过大小限制")
	ErrEmptyFile             = errors.New("文件内容为空")
	ErrParseTextFailed       = errors.New("提取简历文本失败")
	ErrExtractionUnavailable = errors.New("extraction unavailable")
	ErrStoreFileFailed       = errors.New("保存原始文件失败")
	ErrDatabaseFailed        = errors.New("数据库操作失败")
	ErrInvalidSubmissionID   = errors.New("无效的提交ID")
	ErrSubmissionNotFound    = errors.New("提交记录不存在")
	ErrEmptyQuery            = errors.New("检索内容为空")
	ErrSearchUnavailable     = errors.New("向量检索不可用")
	ErrStorageNotInit        = errors.New("storage is not initialized")
)

// ResumeProcessError 带处理阶段和提交ID的错误，errors.Is 同时匹配 BaseErr 和 Cause
type ResumeProcessError struct {
	SubmissionUUID string
	Op             string
	BaseErr        error
	Detail         string
	Cause          error
}

func (e *ResumeProcessError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, UUID:%s): %s", e.BaseErr, e.Op, e.SubmissionUUID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, UUID:%s)", e.BaseErr, e.Op, e.SubmissionUUID)
}

func (e *ResumeProcessError) Unwrap() []error {
	errs := []error{e.BaseErr}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func newProcessError(uuid, op string, base, cause error) error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &ResumeProcessError{
		SubmissionUUID: uuid,
		Op:             op,
		BaseErr:        base,
		Detail:         detail,
		Cause:          cause,
	}
}

func NewParseError(uuid string, cause error) error {
	return newProcessError(uuid, "parse", ErrParseTextFailed, cause)
}

func NewExtractError(uuid string, cause error) error {
	return newProcessError(uuid, "extract", ErrExtractionUnavailable, cause)
}

func NewStoreError(uuid string, cause error) error {
	return newProcessError(uuid, "store", ErrStoreFileFailed, cause)
}

func NewDatabaseError(uuid string, cause error) error {
	return newProcessError(uuid, "database", ErrDatabaseFailed, cause)
}
