package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lshdex/internal/domain"
	dombatch "github.com/kailas-cloud/lshdex/internal/domain/batch"
	"github.com/kailas-cloud/lshdex/internal/metrics"
	"github.com/kailas-cloud/lshdex/internal/shingle"
	batchuc "github.com/kailas-cloud/lshdex/internal/usecase/batch"
	datasetuc "github.com/kailas-cloud/lshdex/internal/usecase/dataset"
	documentuc "github.com/kailas-cloud/lshdex/internal/usecase/document"
	healthuc "github.com/kailas-cloud/lshdex/internal/usecase/health"
	similarityuc "github.com/kailas-cloud/lshdex/internal/usecase/similarity"
)

// maxBodyBytes caps request bodies; batch bodies carry up to max_batch_size documents.
const maxBodyBytes = 32 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the REST handlers.
type Server struct {
	datasets      *datasetuc.Service
	documents     *documentuc.Service
	similarity    *similarityuc.Service
	batch         *batchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	datasets *datasetuc.Service,
	documents *documentuc.Service,
	similarity *similarityuc.Service,
	batch *batchuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		datasets:   datasets,
		documents:  documents,
		similarity: similarity,
		batch:      batch,
		health:     health,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeDatasetNotFound),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, CodeDocumentNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists),
		sentinelHandler(domain.ErrDatasetKeyExhausted, http.StatusConflict, CodeDatasetKeyExhausted),
		sentinelHandler(domain.ErrInvalidConfig, http.StatusBadRequest, CodeInvalidConfig),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed),
	}
	return s
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/datasets", func(r chi.Router) {
		r.Post("/", s.CreateDataset)
		r.Get("/", s.ListDatasets)
		r.Route("/{key}", func(r chi.Router) {
			r.Get("/", s.GetDataset)
			r.Delete("/", s.PurgeDataset)
			r.Route("/documents", func(r chi.Router) {
				r.Get("/", s.ListDocuments)
				r.Post("/batch", s.BatchIngest)
				r.Put("/{id}", s.IngestDocument)
				r.Get("/{id}", s.GetDocument)
				r.Get("/{id}/neighbors", s.FindNeighbors)
			})
		})
	})
}

// CreateDataset handles POST /datasets.
func (s *Server) CreateDataset(w http.ResponseWriter, r *http.Request) {
	var req CreateDatasetRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Filename == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "filename is required")
		return
	}

	ov := datasetuc.Overrides{Rows: req.Rows, Bands: req.Bands, BitWidth: req.BitWidth}
	if req.ShingleType != "" {
		t, err := shingle.Parse(req.ShingleType)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeInvalidConfig, err.Error())
			return
		}
		ov.ShingleType = t
	}
	if req.Modulo != "" {
		m, err := strconv.ParseUint(req.Modulo, 10, 64)
		if err != nil || m == 0 {
			writeError(w, http.StatusBadRequest, CodeInvalidConfig, "modulo must be a positive integer")
			return
		}
		ov.Modulo = m
	}

	ds, created, err := s.datasets.Create(r.Context(), req.Source, req.Filename, req.FileKey, ov)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		w.Header().Set("Location", "/datasets/"+ds.Key())
	}
	writeJSON(w, status, datasetToResponse(ds, true))
}

// ListDatasets handles GET /datasets.
func (s *Server) ListDatasets(w http.ResponseWriter, r *http.Request) {
	list, err := s.datasets.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]DatasetResponse, len(list))
	for i, ds := range list {
		items[i] = datasetToResponse(ds, false)
	}
	writeJSON(w, http.StatusOK, DatasetListResponse{Items: items})
}

// GetDataset handles GET /datasets/{key}.
func (s *Server) GetDataset(w http.ResponseWriter, r *http.Request) {
	st, err := s.datasets.Stats(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := datasetToResponse(st.Dataset, true)
	resp.Documents = &st.Documents
	writeJSON(w, http.StatusOK, resp)
}

// PurgeDataset handles DELETE /datasets/{key}.
func (s *Server) PurgeDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.datasets.Purge(r.Context(), chi.URLParam(r, "key")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// IngestDocument handles PUT /datasets/{key}/documents/{id}.
func (s *Server) IngestDocument(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	id, ok := docID(w, r)
	if !ok {
		return
	}

	var req IngestRequest
	if !s.decode(w, r, &req) {
		return
	}

	rec, created, stats, err := s.documents.Ingest(r.Context(), key, id, req.Text)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := documentToResponse(rec)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
		resp.Stats = statsToResponse(stats)
		w.Header().Set("Location", fmt.Sprintf("/datasets/%s/documents/%s", key, url.PathEscape(id)))
	}
	writeJSON(w, status, resp)
}

// GetDocument handles GET /datasets/{key}/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := docID(w, r)
	if !ok {
		return
	}

	rec, err := s.documents.Get(r.Context(), chi.URLParam(r, "key"), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(rec))
}

// ListDocuments handles GET /datasets/{key}/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	ids, next, err := s.documents.List(r.Context(), chi.URLParam(r, "key"), q.Get("cursor"), limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := DocumentListResponse{Items: ids, HasMore: next != ""}
	if next != "" {
		resp.NextCursor = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

// BatchIngest handles POST /datasets/{key}/documents/batch.
func (s *Server) BatchIngest(w http.ResponseWriter, r *http.Request) {
	var req BatchIngestRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "items must not be empty")
		return
	}
	if len(req.Items) > s.batch.MaxBatchSize() {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("batch size %d exceeds maximum %d", len(req.Items), s.batch.MaxBatchSize()))
		return
	}

	items := make([]batchuc.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = batchuc.Item{ID: it.ID, Text: it.Text}
	}

	results := s.batch.Ingest(r.Context(), chi.URLParam(r, "key"), items)

	sum := dombatch.Summarize(results)
	resp := BatchIngestResponse{
		Items:     make([]BatchResultItem, len(results)),
		Succeeded: sum.Succeeded(),
		Created:   sum.Created,
		Failed:    sum.Failed,
	}
	for i, res := range results {
		resp.Items[i] = batchResultToResponse(res)
	}
	writeJSON(w, http.StatusOK, resp)
}

// FindNeighbors handles GET /datasets/{key}/documents/{id}/neighbors.
func (s *Server) FindNeighbors(w http.ResponseWriter, r *http.Request) {
	id, ok := docID(w, r)
	if !ok {
		return
	}

	opts := similarityuc.DefaultOptions()
	q := r.URL.Query()
	if v := q.Get("max_distance"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(d) {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "max_distance must be a number")
			return
		}
		opts.MaxDistance = d
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "limit must be an integer")
			return
		}
		opts.Limit = n
	}

	ns, err := s.similarity.FindNeighbors(r.Context(), chi.URLParam(r, "key"), id, opts)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, neighborsToResponse(id, ns))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics.Handler().ServeHTTP(w, r)
}

// docID extracts the {id} parameter. IDs may hold '/', so clients send them
// path-escaped and the router matches on the raw path.
func docID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "malformed document id")
		return "", false
	}
	return id, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-facing message without exposing internals.
// Validation errors carry their detail since it only describes the caller's input.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidRequest) || errors.Is(err, domain.ErrInvalidConfig) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrDocumentNotFound,
		domain.ErrAlreadyExists,
		domain.ErrDatasetKeyExhausted,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func batchResultToResponse(r dombatch.Result) BatchResultItem {
	item := BatchResultItem{
		ID:      r.ID(),
		Status:  string(r.Status()),
		Created: r.Created(),
	}
	if r.Err() != nil {
		item.Error = &ErrorResponse{
			Code:    batchErrorCode(r.Err()),
			Message: safeDomainMessage(r.Err()),
		}
	}
	return item
}

func batchErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return CodeDatasetNotFound
	case errors.Is(err, domain.ErrInvalidRequest):
		return CodeValidationFailed
	case errors.Is(err, domain.ErrInvalidConfig):
		return CodeInvalidConfig
	default:
		return CodeInternalError
	}
}
