package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/IntakeDesk/internal/logger"
	"github.com/dharsanguruparan/IntakeDesk/internal/pdf/pdftest"
	"github.com/dharsanguruparan/IntakeDesk/internal/queue"
)

type fakeObjects struct {
	raw       map[string][]byte
	processed map[string][]byte
}

func (f *fakeObjects) DownloadRaw(ctx context.Context, objectKey string) ([]byte, error) {
	data, ok := f.raw[objectKey]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func (f *fakeObjects) UploadProcessed(ctx context.Context, objectKey string, data []byte) error {
	f.processed[objectKey] = data
	return nil
}

type fakeDocs struct {
	statuses  []string
	failure   string
	processed string
	extracted []byte
}

func (f *fakeDocs) MarkProcessing(ctx context.Context, id string) error {
	f.statuses = append(f.statuses, "processing")
	return nil
}

func (f *fakeDocs) MarkFailed(ctx context.Context, id string, msg string) error {
	f.statuses = append(f.statuses, "failed")
	f.failure = msg
	return nil
}

func (f *fakeDocs) MarkCompleted(ctx context.Context, id, processedKey string, extracted []byte) error {
	f.statuses = append(f.statuses, "completed")
	f.processed = processedKey
	f.extracted = extracted
	return nil
}

func archiveTask(t *testing.T, key string) *asynq.Task {
	t.Helper()
	task, err := queue.NewArchiveTask(queue.ArchivePayload{DocumentID: "doc-1", ObjectKey: key, FileName: "intake.pdf"})
	require.NoError(t, err)
	return task
}

func TestHandleArchiveWritesResult(t *testing.T) {
	key := "uploads/doc-1/intake.pdf"
	objects := &fakeObjects{
		raw:       map[string][]byte{key: pdftest.Document("Patient Name: Jane Doe", "DOB: 1/2/90")},
		processed: map[string][]byte{},
	}
	docs := &fakeDocs{}
	p := NewProcessor(docs, objects, logger.Discard())

	require.NoError(t, p.handleArchive(context.Background(), archiveTask(t, key)))
	require.Equal(t, []string{"processing", "completed"}, docs.statuses)
	require.Equal(t, "uploads/doc-1/intake.json", docs.processed)
	require.JSONEq(t, `{"patient_first_name":"Jane","patient_last_name":"Doe","dob":"1990-01-02"}`, string(docs.extracted))

	var result Result
	require.NoError(t, json.Unmarshal(objects.processed[docs.processed], &result))
	require.Contains(t, result.Text, "Patient Name: Jane Doe")
	require.Equal(t, "Jane", *result.Extracted.FirstName)
}

func TestHandleArchiveUnreadablePDFSkipsRetry(t *testing.T) {
	key := "uploads/doc-1/intake.pdf"
	objects := &fakeObjects{raw: map[string][]byte{key: []byte("not a pdf")}, processed: map[string][]byte{}}
	docs := &fakeDocs{}
	p := NewProcessor(docs, objects, logger.Discard())

	err := p.handleArchive(context.Background(), archiveTask(t, key))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Equal(t, []string{"processing", "failed"}, docs.statuses)
	require.NotEmpty(t, docs.failure)
	require.Empty(t, objects.processed)
}

func TestHandleArchiveMissingObjectRetries(t *testing.T) {
	objects := &fakeObjects{raw: map[string][]byte{}, processed: map[string][]byte{}}
	docs := &fakeDocs{}
	p := NewProcessor(docs, objects, logger.Discard())

	err := p.handleArchive(context.Background(), archiveTask(t, "uploads/missing.pdf"))
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
	require.Equal(t, []string{"processing", "failed"}, docs.statuses)
}

func TestProcessedObjectKey(t *testing.T) {
	require.Equal(t, "uploads/x/a.json", ProcessedObjectKey("uploads/x/a.pdf"))
	require.Equal(t, "uploads/x/a.json", ProcessedObjectKey("uploads/x/a"))
}
