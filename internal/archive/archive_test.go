package archive

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/IntakeDesk/internal/queue"
	"github.com/dharsanguruparan/IntakeDesk/internal/repository"
)

type fakeRaw struct {
	objects map[string]string
	err     error
}

func (f *fakeRaw) UploadRaw(ctx context.Context, objectKey string, reader io.Reader, size int64) error {
	if f.err != nil {
		return f.err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.objects[objectKey] = string(data)
	return nil
}

type fakeDocs struct {
	docs []*repository.Document
}

func (f *fakeDocs) Create(ctx context.Context, doc *repository.Document) error {
	doc.Status = repository.DocumentQueued
	f.docs = append(f.docs, doc)
	return nil
}

type fakeQueue struct {
	tasks []*asynq.Task
}

func (f *fakeQueue) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func TestArchiveStoresRecordsAndEnqueues(t *testing.T) {
	raw := &fakeRaw{objects: map[string]string{}}
	docs := &fakeDocs{}
	q := &fakeQueue{}
	svc := New(raw, docs, q)
	svc.newID = func() string { return "doc-1" }

	id, err := svc.Archive(context.Background(), "dir/intake.pdf", strings.NewReader("%PDF-1.4"), 8)
	require.NoError(t, err)
	require.Equal(t, "doc-1", id)
	require.Equal(t, "%PDF-1.4", raw.objects["uploads/doc-1/intake.pdf"])

	require.Len(t, docs.docs, 1)
	require.Equal(t, "uploads/doc-1/intake.pdf", docs.docs[0].ObjectKey)
	require.Equal(t, int64(8), docs.docs[0].SizeBytes)

	require.Len(t, q.tasks, 1)
	payload, err := queue.DecodeArchive(q.tasks[0])
	require.NoError(t, err)
	require.Equal(t, "doc-1", payload.DocumentID)
	require.Equal(t, "dir/intake.pdf", payload.FileName)
}

func TestArchiveStopsOnStorageFailure(t *testing.T) {
	boom := errors.New("bucket missing")
	docs := &fakeDocs{}
	q := &fakeQueue{}
	svc := New(&fakeRaw{err: boom}, docs, q)

	_, err := svc.Archive(context.Background(), "a.pdf", strings.NewReader("x"), 1)
	require.ErrorIs(t, err, boom)
	require.Empty(t, docs.docs)
	require.Empty(t, q.tasks)
}
