package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	r.opts = append(r.opts, opts)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func TestEnqueueArchive(t *testing.T) {
	rec := &recordingEnqueuer{}
	payload := ArchivePayload{DocumentID: "doc-1", ObjectKey: "uploads/doc-1/a.pdf", FileName: "a.pdf"}
	require.NoError(t, EnqueueArchive(context.Background(), rec, payload))
	require.Len(t, rec.tasks, 1)
	require.Equal(t, ArchiveTask, rec.tasks[0].Type())
	require.Len(t, rec.opts[0], 1)
	require.Equal(t, asynq.MaxRetryOpt, rec.opts[0][0].Type())

	got, err := DecodeArchive(rec.tasks[0])
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestEnqueueArchiveError(t *testing.T) {
	boom := errors.New("redis down")
	err := EnqueueArchive(context.Background(), &recordingEnqueuer{err: boom}, ArchivePayload{DocumentID: "x"})
	require.ErrorIs(t, err, boom)
}

func TestDecodeArchiveRejectsGarbage(t *testing.T) {
	_, err := DecodeArchive(asynq.NewTask(ArchiveTask, []byte("{")))
	require.Error(t, err)
}
