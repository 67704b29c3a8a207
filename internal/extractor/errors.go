package extractor

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput 输入为空或只包含空白
	ErrInvalidInput = errors.New("extractor: input must be non-empty text")
	// ErrExtractionFailed 抽取过程中任一步骤失败，不返回部分结果
	ErrExtractionFailed = errors.New("extractor: extraction failed")
)

// ExtractionError 记录失败发生的步骤和原因
type ExtractionError struct {
	Stage  string
	Reason string
	Cause  error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (stage:%s): %s: %v", ErrExtractionFailed, e.Stage, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s (stage:%s): %s", ErrExtractionFailed, e.Stage, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Is 使 errors.Is(err, ErrExtractionFailed) 成立
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtractionFailed
}

func stageError(stage string, err error) error {
	return &ExtractionError{Stage: stage, Reason: "collaborator error", Cause: err}
}
