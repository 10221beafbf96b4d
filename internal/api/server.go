package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dharsanguruparan/IntakeDesk/internal/config"
	"github.com/dharsanguruparan/IntakeDesk/internal/extraction"
	"github.com/dharsanguruparan/IntakeDesk/internal/logger"
	"github.com/dharsanguruparan/IntakeDesk/internal/model"
	pdfutil "github.com/dharsanguruparan/IntakeDesk/internal/pdf"
)

const (
	msgOrderNotFound   = "Order not found"
	msgOrderDeleted    = "Order deleted successfully"
	msgFileRequired    = "file is required"
	msgUnsupportedType = "Unsupported file type. Please upload a PDF."
	msgNoText          = "No extractable text found in PDF"
	msgNoPatient       = "Could not extract patient info from PDF"
	msgProcessFailed   = "Failed to process PDF"
)

var errTooLarge = errors.New("file too large")

// OrderStore is implemented by storage.MemoryStore and
// repository.OrderRepository.
type OrderStore interface {
	List(ctx context.Context) ([]model.Order, error)
	Create(ctx context.Context, req model.CreateOrderRequest) (*model.Order, error)
	Get(ctx context.Context, id int64) (*model.Order, error)
	Update(ctx context.Context, order *model.Order) (*model.Order, error)
	Delete(ctx context.Context, id int64) error
}

// Archiver keeps a copy of accepted uploads. Failures never fail the upload.
type Archiver interface {
	Archive(ctx context.Context, fileName string, r io.Reader, size int64) (string, error)
}

// Server exposes the orders resource and the PDF upload endpoint.
type Server struct {
	cfg      *config.Config
	orders   OrderStore
	archiver Archiver
	log      logger.AppLogger
	handler  http.Handler
	once     sync.Once
}

// Option customises a Server.
type Option func(*Server)

// WithArchiver archives every accepted upload through a.
func WithArchiver(a Archiver) Option {
	return func(s *Server) { s.archiver = a }
}

// New constructs a Server.
func New(cfg *config.Config, orders OrderStore, log logger.AppLogger, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		orders: orders,
		log:    log.With(slog.String("component", "api")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler wrapped in CORS and access logging.
func (s *Server) Handler() http.Handler {
	s.once.Do(func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/orders/", s.handleOrdersRoute)
		mux.HandleFunc("/api/upload/", s.handleUpload)
		mux.HandleFunc("/api/upload/health/", s.handleHealth)
		s.handler = corsMiddleware(s.loggingMiddleware(mux))
	})
	return s.handler
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.log.Info("api listening", slog.String("address", s.cfg.Address), slog.Bool("archive", s.archiver != nil))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "API is working"})
}

func (s *Server) handleOrdersRoute(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/orders/")
	if path == "" {
		s.handleOrders(w, r)
		return
	}
	parts := strings.Split(path, "/")
	if len(parts) > 2 || (len(parts) == 2 && parts[1] != "") {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusNotFound, msgOrderNotFound)
		return
	}
	s.handleOrder(w, r, id)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.orders.List(r.Context())
		if err != nil {
			s.internalError(w, "list orders", err)
			return
		}
		s.respondJSON(w, http.StatusOK, list)
	case http.MethodPost:
		s.createOrder(w, r)
	default:
		s.methodNotAllowed(w)
	}
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdateOrderRequest
	if err := decodeBody(r, &payload); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	status, err := model.ParseStatus(deref(payload.Status))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req := model.CreateOrderRequest{
		PatientFirstName: deref(payload.PatientFirstName),
		PatientLastName:  deref(payload.PatientLastName),
		DOB:              parseDOB(payload.DOB),
		Status:           status,
	}
	order, err := s.orders.Create(r.Context(), req)
	if err != nil {
		s.internalError(w, "create order", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, order)
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request, id int64) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		order, err := s.orders.Get(ctx, id)
		if err != nil {
			s.storeError(w, "get order", err)
			return
		}
		s.respondJSON(w, http.StatusOK, order)
	case http.MethodPut:
		s.updateOrder(w, r, id)
	case http.MethodDelete:
		if err := s.orders.Delete(ctx, id); err != nil {
			s.storeError(w, "delete order", err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]string{"message": msgOrderDeleted})
	default:
		s.methodNotAllowed(w)
	}
}

// updateOrder applies a partial overwrite. Absent fields and an unparsable
// dob keep the stored values.
func (s *Server) updateOrder(w http.ResponseWriter, r *http.Request, id int64) {
	ctx := r.Context()
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		s.storeError(w, "get order", err)
		return
	}
	var payload model.UpdateOrderRequest
	if err := decodeBody(r, &payload); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.PatientFirstName != nil {
		order.PatientFirstName = *payload.PatientFirstName
	}
	if payload.PatientLastName != nil {
		order.PatientLastName = *payload.PatientLastName
	}
	if dob := parseDOB(payload.DOB); dob != nil {
		order.DOB = dob
	}
	if payload.Status != nil {
		status, err := model.ParseStatus(*payload.Status)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		order.Status = status
	}
	updated, err := s.orders.Update(ctx, order)
	if err != nil {
		s.storeError(w, "update order", err)
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/upload/" {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize+1024)
	mr, err := r.MultipartReader()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, msgFileRequired)
		return
	}
	part, err := nextFilePart(mr)
	if err != nil {
		if isTooLarge(err) {
			s.respondTooLarge(w)
			return
		}
		s.respondError(w, http.StatusBadRequest, msgFileRequired)
		return
	}
	defer part.Close()
	name := part.FileName()
	if name == "" {
		s.respondError(w, http.StatusBadRequest, msgFileRequired)
		return
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		s.respondError(w, http.StatusUnsupportedMediaType, msgUnsupportedType)
		return
	}
	tmp, err := s.persistTemp(part)
	if err != nil {
		if isTooLarge(err) {
			s.respondTooLarge(w)
			return
		}
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": msgProcessFailed, "details": err.Error()})
		return
	}
	defer tmp.cleanup()
	s.archive(ctx, name, tmp)

	text, err := pdfutil.ExtractTextAt(tmp.f, tmp.size)
	if err != nil || !pdfutil.HasText(text) {
		if err != nil {
			s.log.Warn("pdf text extraction failed", slog.String("file", name), slog.String("error", err.Error()))
		}
		s.respondError(w, http.StatusUnprocessableEntity, msgNoText)
		return
	}
	info := extraction.ExtractPatientInfo(text)
	if info.Empty() {
		s.respondError(w, http.StatusUnprocessableEntity, msgNoPatient)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"extracted": info})
}

// archive hands the upload to the archiver when one is configured. Errors
// are logged only.
func (s *Server) archive(ctx context.Context, name string, tmp *tempUpload) {
	if s.archiver == nil || tmp.size == 0 {
		return
	}
	reader := io.NewSectionReader(tmp.f, 0, tmp.size)
	id, err := s.archiver.Archive(ctx, name, reader, tmp.size)
	if err != nil {
		s.log.Error("archive upload", err, slog.String("file", name))
		return
	}
	s.log.Info("upload archived", slog.String("document_id", id), slog.String("file", name))
}

type tempUpload struct {
	f    *os.File
	size int64
}

func (t *tempUpload) cleanup() {
	t.f.Close()
	os.Remove(t.f.Name())
}

// persistTemp spools the part to disk so the PDF reader gets random access
// without holding the whole upload in memory.
func (s *Server) persistTemp(part *multipart.Part) (*tempUpload, error) {
	tmpFile, err := os.CreateTemp("", "intake-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmp := &tempUpload{f: tmpFile}
	buf := make([]byte, 32*1024)
	for {
		n, readErr := part.Read(buf)
		if n > 0 {
			tmp.size += int64(n)
			if tmp.size > s.cfg.MaxFileSize {
				tmp.cleanup()
				return nil, fmt.Errorf("%w: limit is %d bytes", errTooLarge, s.cfg.MaxFileSize)
			}
			if _, err := tmpFile.Write(buf[:n]); err != nil {
				tmp.cleanup()
				return nil, fmt.Errorf("write temp file: %w", err)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			tmp.cleanup()
			return nil, fmt.Errorf("read file: %w", readErr)
		}
	}
	return tmp, nil
}

func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
		part.Close()
	}
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.Is(err, errTooLarge) || errors.As(err, &maxErr)
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// parseDOB returns nil unless s holds a YYYY-MM-DD date.
func parseDOB(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(model.DateLayout, *s)
	if err != nil {
		return nil
	}
	out := t.Format(model.DateLayout)
	return &out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, model.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, msgOrderNotFound)
		return
	}
	s.internalError(w, op, err)
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.Error(op, err)
	s.respondError(w, http.StatusInternalServerError, "internal server error")
}

func (s *Server) methodNotAllowed(w http.ResponseWriter) {
	s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (s *Server) respondTooLarge(w http.ResponseWriter) {
	s.respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds limit (%d bytes)", s.cfg.MaxFileSize))
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("encode response", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)))
	})
}
