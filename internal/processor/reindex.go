package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"resume-ner-go/internal/logger"
	"resume-ner-go/internal/types"
)

// ReindexReport 一次补建索引的结果
type ReindexReport struct {
	Total   int      `json:"total"`
	Indexed int      `json:"indexed"`
	Failed  []string `json:"failed"`
}

// ReindexSubmission 用已保存的抽取结果重新生成向量，成功后标记 indexed
func (s *ResumeService) ReindexSubmission(ctx context.Context, id string) error {
	if s.components.Embedder == nil || s.components.Vectors == nil {
		return ErrSearchUnavailable
	}
	sub, err := s.loadSubmission(ctx, id)
	if err != nil {
		return err
	}
	if len(sub.ExtractedRecord) == 0 {
		return fmt.Errorf("%w: 提交 %s 没有抽取结果", ErrSubmissionNotFound, id)
	}

	var record types.ResumeRecord
	if err := json.Unmarshal(sub.ExtractedRecord, &record); err != nil {
		return NewDatabaseError(id, err)
	}
	if !s.index(ctx, sub.SubmissionUUID, sub.OriginalFilename, &record) {
		return fmt.Errorf("%w: 提交 %s 写入向量库失败", ErrSearchUnavailable, id)
	}
	if err := s.components.Submissions.MarkIndexed(ctx, sub.SubmissionUUID); err != nil {
		return NewDatabaseError(id, err)
	}
	return nil
}

// ReindexPending 补建尚未写入向量库的提交，concurrency 控制并发数
func (s *ResumeService) ReindexPending(ctx context.Context, limit, concurrency int) (*ReindexReport, error) {
	if s.components.Submissions == nil {
		return nil, ErrStorageNotInit
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	ids, err := s.components.Submissions.ListUnindexedSubmissions(ctx, limit)
	if err != nil {
		return nil, NewDatabaseError("", err)
	}

	report := &ReindexReport{Total: len(ids), Failed: []string{}}
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, concurrency)
	)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(id string) {
			defer func() {
				<-sem
				wg.Done()
			}()
			err := s.ReindexSubmission(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Ctx(ctx).Warn().Err(err).Str("submission_uuid", id).Msg("补建索引失败")
				report.Failed = append(report.Failed, id)
				return
			}
			report.Indexed++
		}(id)
	}
	wg.Wait()
	return report, ctx.Err()
}
