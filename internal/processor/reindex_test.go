package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReindexPending(t *testing.T) {
	f := newFixture(t)
	f.vectors.err = errBoom

	res, err := f.svc.Ingest(context.Background(), upload("jane.txt", janeDoe))
	require.NoError(t, err)
	require.False(t, f.store.submissions[res.SubmissionUUID].Indexed)

	// 向量库恢复后补建
	f.vectors.err = nil
	report, err := f.svc.ReindexPending(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Indexed)
	assert.Empty(t, report.Failed)
	assert.True(t, f.store.submissions[res.SubmissionUUID].Indexed)
	require.Len(t, f.vectors.upserts, 1)
	assert.Equal(t, res.SubmissionUUID, f.vectors.upserts[0].uuid)
	assert.Equal(t, "Jane Doe", f.vectors.upserts[0].payload["name"])

	report, err = f.svc.ReindexPending(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total)
}

func TestReindexPendingRecordsFailures(t *testing.T) {
	f := newFixture(t)
	f.vectors.err = errBoom

	res, err := f.svc.Ingest(context.Background(), upload("jane.txt", janeDoe))
	require.NoError(t, err)

	report, err := f.svc.ReindexPending(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 0, report.Indexed)
	assert.Equal(t, []string{res.SubmissionUUID}, report.Failed)
	assert.False(t, f.store.submissions[res.SubmissionUUID].Indexed)
}

func TestReindexSubmissionErrors(t *testing.T) {
	f := newFixture(t)

	err := f.svc.ReindexSubmission(context.Background(), "not-a-uuid")
	assert.True(t, errors.Is(err, ErrInvalidSubmissionID))

	err = f.svc.ReindexSubmission(context.Background(), "0190a6b4-6a55-7c6e-9d3b-6a1e2f3c4d5e")
	assert.True(t, errors.Is(err, ErrSubmissionNotFound))

	bare, err := NewResumeService([]ComponentOpt{WithRecordExtractor(f.extractor)})
	require.NoError(t, err)
	err = bare.ReindexSubmission(context.Background(), "0190a6b4-6a55-7c6e-9d3b-6a1e2f3c4d5e")
	assert.True(t, errors.Is(err, ErrSearchUnavailable))

	_, err = bare.ReindexPending(context.Background(), 10, 1)
	assert.True(t, errors.Is(err, ErrStorageNotInit))
}
