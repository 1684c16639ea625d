package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lorelink/internal/domain"
	dombatch "github.com/kailas-cloud/lorelink/internal/domain/batch"
	domentity "github.com/kailas-cloud/lorelink/internal/domain/entity"
	dommention "github.com/kailas-cloud/lorelink/internal/domain/mention"
	"github.com/kailas-cloud/lorelink/internal/logger"
	cataloguc "github.com/kailas-cloud/lorelink/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/lorelink/internal/usecase/health"
	mentionuc "github.com/kailas-cloud/lorelink/internal/usecase/mention"
	previewuc "github.com/kailas-cloud/lorelink/internal/usecase/preview"
)

// maxBodyBytes bounds request bodies; annotate text is limited separately by the mention service.
const maxBodyBytes = 4 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements the lorelink HTTP API on top of the use case services.
type Server struct {
	catalog       *cataloguc.Service
	mentions      *mentionuc.Service
	previews      *previewuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	catalog *cataloguc.Service,
	mentions *mentionuc.Service,
	previews *previewuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		catalog:  catalog,
		mentions: mentions,
		previews: previews,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrTypeMismatch, http.StatusNotFound, ErrorCodeTypeMismatch),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeEntityNotFound),
		sentinelHandler(domain.ErrInvalidID, http.StatusBadRequest, ErrorCodeInvalidIdentifier),
		sentinelHandler(domain.ErrInvalidEntity, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrSummarizerError, http.StatusBadGateway, ErrorCodeSummarizerError),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, ErrorCodeNotImplemented),
	}
	return s
}

// ListEntities handles GET /campaigns/{campaign}/entities.
func (s *Server) ListEntities(w http.ResponseWriter, r *http.Request, campaign string, entityType *string) {
	var typ domentity.Type
	if entityType != nil {
		typ = domentity.Type(*entityType)
	}
	recs, err := s.catalog.List(r.Context(), campaign, typ)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	version, err := s.catalog.Version(r.Context(), campaign)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]Entity, len(recs))
	for i, rec := range recs {
		items[i] = entityToAPI(rec)
	}
	writeJSON(w, http.StatusOK, EntityListResponse{Items: items, Version: version})
}

// UpsertEntity handles PUT /campaigns/{campaign}/entities/{entityId}.
func (s *Server) UpsertEntity(w http.ResponseWriter, r *http.Request, campaign, entityID string) {
	var req Entity
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID != "" && req.ID != entityID {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "body id does not match path id")
		return
	}

	rec, err := entityFromAPI(entityID, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	created, err := s.catalog.Upsert(r.Context(), campaign, rec)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		w.Header().Set("Location", fmt.Sprintf("/campaigns/%s/entities/%s", campaign, entityID))
	}
	writeJSON(w, status, entityToAPI(rec))
}

// GetEntity handles GET /campaigns/{campaign}/entities/{entityId}.
func (s *Server) GetEntity(w http.ResponseWriter, r *http.Request, campaign, entityID string) {
	rec, err := s.catalog.Get(r.Context(), campaign, entityID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entityToAPI(rec))
}

// DeleteEntity handles DELETE /campaigns/{campaign}/entities/{entityId}.
func (s *Server) DeleteEntity(w http.ResponseWriter, r *http.Request, campaign, entityID string) {
	if err := s.catalog.Delete(r.Context(), campaign, entityID); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BatchUpsert handles POST /campaigns/{campaign}/entities/batch.
func (s *Server) BatchUpsert(w http.ResponseWriter, r *http.Request, campaign string) {
	var req BatchUpsertRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "items must not be empty")
		return
	}

	items := make([]cataloguc.Item, len(req.Items))
	for i, e := range req.Items {
		rec, err := entityFromAPI(e.ID, e)
		items[i] = cataloguc.Item{ID: e.ID, Record: rec, Err: err}
	}

	writeJSON(w, http.StatusOK, batchToAPI(s.catalog.BatchUpsert(r.Context(), campaign, items)))
}

// BatchDelete handles POST /campaigns/{campaign}/entities/batch/delete.
func (s *Server) BatchDelete(w http.ResponseWriter, r *http.Request, campaign string) {
	var req BatchDeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "ids must not be empty")
		return
	}

	writeJSON(w, http.StatusOK, batchToAPI(s.catalog.BatchDelete(r.Context(), campaign, req.IDs)))
}

// GetIndex handles GET /campaigns/{campaign}/index.
func (s *Server) GetIndex(w http.ResponseWriter, r *http.Request, campaign string) {
	idx, err := s.mentions.Index(r.Context(), campaign)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

// Annotate handles POST /campaigns/{campaign}/annotate.
func (s *Server) Annotate(w http.ResponseWriter, r *http.Request, campaign string) {
	var req AnnotateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.mentions.Annotate(r.Context(), mentionuc.Request{
		Campaign: campaign,
		Text:     req.Text,
		SelfID:   req.SelfID,
		Engine:   dommention.Engine(req.Engine),
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AnnotateResponse{Text: res.Text, Version: res.Version})
}

// GetPreview handles GET /campaigns/{campaign}/preview/{entityType}/{entityId}.
func (s *Server) GetPreview(w http.ResponseWriter, r *http.Request, campaign, entityType, entityID string) {
	p, err := s.previews.GetPreviewData(r.Context(), campaign, entityID, domentity.Type(entityType))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{
		ID:          p.ID,
		Name:        p.Name,
		Type:        string(p.Type),
		Description: p.Description,
		Summary:     p.Summary,
		Attributes:  p.Attributes,
		IconURL:     p.IconURL,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Version: report.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
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
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

var sentinels = []error{
	domain.ErrTypeMismatch,
	domain.ErrNotFound,
	domain.ErrInvalidID,
	domain.ErrInvalidEntity,
	domain.ErrSummarizerError,
	domain.ErrNotImplemented,
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
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

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func entityToAPI(r domentity.Record) Entity {
	return Entity{
		ID:             r.ID(),
		Name:           r.Name(),
		Type:           string(r.Type()),
		PreviewIconURL: r.IconURL(),
		Description:    r.Description(),
		Attributes:     r.Attributes(),
	}
}

func entityFromAPI(id string, e Entity) (domentity.Record, error) {
	rec, err := domentity.New(id, e.Name, domentity.Type(e.Type), e.PreviewIconURL, e.Description, e.Attributes)
	if err != nil {
		return domentity.Record{}, fmt.Errorf("build entity: %w", err)
	}
	return rec, nil
}

func batchToAPI(results []dombatch.Result) BatchResponse {
	sum := dombatch.Summarize(results)
	items := make([]BatchResultItem, len(results))
	for i, res := range results {
		items[i] = BatchResultItem{ID: res.EntityID(), Status: string(res.Status())}
		if res.Err() != nil {
			items[i].Error = &ErrorResponse{Code: batchErrorCode(res.Err()), Message: batchErrorMessage(res.Err())}
		}
	}
	return BatchResponse{Items: items, Succeeded: sum.Succeeded, Failed: sum.Failed}
}

func batchErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return ErrorCodeEntityNotFound
	case errors.Is(err, domain.ErrInvalidID):
		return ErrorCodeInvalidIdentifier
	case errors.Is(err, domain.ErrInvalidEntity):
		return ErrorCodeValidationFailed
	default:
		return ErrorCodeInternalError
	}
}

// batchErrorMessage keeps validation details, which are the caller's own input, and hides the rest.
func batchErrorMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidEntity) || errors.Is(err, domain.ErrInvalidID) {
		return err.Error()
	}
	return safeDomainMessage(err)
}
