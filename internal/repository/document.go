package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentStatus enumerates the lifecycle of an archived upload.
type DocumentStatus string

const (
	DocumentQueued     DocumentStatus = "queued"
	DocumentProcessing DocumentStatus = "processing"
	DocumentCompleted  DocumentStatus = "completed"
	DocumentFailed     DocumentStatus = "failed"
)

// ErrDocumentNotFound is returned by Get when no row matches.
var ErrDocumentNotFound = errors.New("document not found")

// Document is one archived PDF upload. Extracted holds the patient fields the
// worker found, as raw JSON.
type Document struct {
	ID           string          `json:"id"`
	FileName     string          `json:"file_name"`
	ObjectKey    string          `json:"object_key"`
	SizeBytes    int64           `json:"size_bytes"`
	ProcessedKey *string         `json:"processed_key,omitempty"`
	Status       DocumentStatus  `json:"status"`
	Extracted    json.RawMessage `json:"extracted,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// DocumentRepository records archived uploads for the API and the worker.
type DocumentRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository constructs a repository.
func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

// Create inserts a queued document before the archive task is enqueued.
func (r *DocumentRepository) Create(ctx context.Context, doc *Document) error {
	now := time.Now().UTC()
	doc.Status = DocumentQueued
	doc.CreatedAt = now
	doc.UpdatedAt = now
	_, err := r.pool.Exec(ctx, `
		INSERT INTO documents (id, file_name, object_key, size_bytes, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, doc.ID, doc.FileName, doc.ObjectKey, doc.SizeBytes, string(doc.Status), doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Get returns a document by id.
func (r *DocumentRepository) Get(ctx context.Context, id string) (*Document, error) {
	var (
		doc       Document
		status    string
		extracted []byte
	)
	row := r.pool.QueryRow(ctx, `
		SELECT id, file_name, object_key, size_bytes, processed_key, status, extracted, error_message, created_at, updated_at
		FROM documents WHERE id=$1
	`, id)
	err := row.Scan(&doc.ID, &doc.FileName, &doc.ObjectKey, &doc.SizeBytes, &doc.ProcessedKey, &status, &extracted, &doc.ErrorMessage, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("select document: %w", err)
	}
	doc.Status = DocumentStatus(status)
	if len(extracted) > 0 {
		doc.Extracted = json.RawMessage(extracted)
	}
	return &doc, nil
}

// MarkProcessing sets the status to processing.
func (r *DocumentRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.updateStatus(ctx, id, DocumentProcessing, nil, nil, nil)
}

// MarkFailed records why the archive attempt failed.
func (r *DocumentRepository) MarkFailed(ctx context.Context, id string, msg string) error {
	return r.updateStatus(ctx, id, DocumentFailed, nil, nil, &msg)
}

// MarkCompleted stores the processed object key and the extracted fields.
func (r *DocumentRepository) MarkCompleted(ctx context.Context, id, processedKey string, extracted []byte) error {
	return r.updateStatus(ctx, id, DocumentCompleted, &processedKey, extracted, nil)
}

func (r *DocumentRepository) updateStatus(ctx context.Context, id string, status DocumentStatus, processedKey *string, extracted []byte, errorMsg *string) error {
	var extractedArg *string
	if extracted != nil {
		s := string(extracted)
		extractedArg = &s
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE documents
		SET status=$1,
			processed_key = COALESCE($2, processed_key),
			extracted = COALESCE($3::text::jsonb, extracted),
			error_message = $4,
			updated_at=$5
		WHERE id=$6
	`, string(status), processedKey, extractedArg, errorMsg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}
