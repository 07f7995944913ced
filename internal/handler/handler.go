package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/johny-c/lagom/internal/domain"
	"github.com/johny-c/lagom/internal/repository"
	"github.com/johny-c/lagom/internal/service"
)

// Verifier allows triggering index verification from the handler
type Verifier interface {
	VerifyAll(ctx context.Context) error
	VerifyManifest(ctx context.Context, manifestID string) error
}

// ManifestHandler handles manifest API requests
type ManifestHandler struct {
	svc      *service.ManifestService
	verifier Verifier
	logger   *zap.Logger
}

// NewManifestHandler creates a new manifest handler
func NewManifestHandler(svc *service.ManifestService, logger *zap.Logger) *ManifestHandler {
	return &ManifestHandler{svc: svc, logger: logger}
}

// SetVerifier sets the index verifier (probe)
func (h *ManifestHandler) SetVerifier(v Verifier) {
	h.verifier = v
}

// ErrorResponse is the JSON body of every error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ListManifests returns all stored manifests
func (h *ManifestHandler) ListManifests(w http.ResponseWriter, r *http.Request) {
	manifests, err := h.svc.ListManifests(r.Context())
	if err != nil {
		h.logger.Error("list manifests failed", zap.Error(err))
		h.writeError(w, "Failed to list manifests", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, manifests, http.StatusOK)
}

// LoadRequest asks the server to import a manifest file from disk
type LoadRequest struct {
	Path string `json:"path"`
}

// LoadManifest imports a manifest file, replacing any earlier import of
// the same path
func (h *ManifestHandler) LoadManifest(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		h.writeError(w, "Path is required", "", http.StatusBadRequest)
		return
	}

	_, summary, err := h.svc.LoadFile(r.Context(), req.Path)
	if err != nil {
		h.logger.Error("load manifest failed", zap.String("path", req.Path), zap.Error(err))
		h.writeError(w, "Failed to load manifest", err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, summary, http.StatusCreated)
}

// GetManifest returns a single manifest by ID
func (h *ManifestHandler) GetManifest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, "Manifest ID is required", "", http.StatusBadRequest)
		return
	}

	m, err := h.svc.GetManifest(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeError(w, "Manifest not found", "", http.StatusNotFound)
			return
		}
		h.logger.Error("get manifest failed", zap.String("id", id), zap.Error(err))
		h.writeError(w, "Failed to get manifest", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, m, http.StatusOK)
}

// DeleteManifest removes a manifest and its requirements and findings
func (h *ManifestHandler) DeleteManifest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, "Manifest ID is required", "", http.StatusBadRequest)
		return
	}

	if err := h.svc.DeleteManifest(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeError(w, "Manifest not found", "", http.StatusNotFound)
			return
		}
		h.logger.Error("delete manifest failed", zap.String("id", id), zap.Error(err))
		h.writeError(w, "Failed to delete manifest", err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListRequirements returns the requirements of a manifest
func (h *ManifestHandler) ListRequirements(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, "Manifest ID is required", "", http.StatusBadRequest)
		return
	}

	reqs, err := h.svc.Requirements(r.Context(), id)
	if err != nil {
		h.logger.Error("list requirements failed", zap.String("id", id), zap.Error(err))
		h.writeError(w, "Failed to list requirements", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, reqs, http.StatusOK)
}

// ListFindings returns the findings of a manifest, optionally filtered by
// ?status=open|resolved
func (h *ManifestHandler) ListFindings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, "Manifest ID is required", "", http.StatusBadRequest)
		return
	}

	status := domain.FindingStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.FindingOpen, domain.FindingResolved:
	default:
		h.writeError(w, "Invalid status filter", "Must be: open or resolved", http.StatusBadRequest)
		return
	}

	findings, err := h.svc.Findings(r.Context(), id, status)
	if err != nil {
		h.logger.Error("list findings failed", zap.String("id", id), zap.Error(err))
		h.writeError(w, "Failed to list findings", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, findings, http.StatusOK)
}

// LintResult is returned by the stateless lint endpoint
type LintResult struct {
	Requirements int               `json:"requirements"`
	Invalid      int               `json:"invalid"`
	Findings     []*domain.Finding `json:"findings"`
}

// Lint parses and lints the request body without storing anything
func (h *ManifestHandler) Lint(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, "Failed to read request body", err.Error(), http.StatusBadRequest)
		return
	}

	m, findings, err := h.svc.LintBytes(data)
	if err != nil {
		h.writeError(w, "Failed to lint manifest", err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, LintResult{
		Requirements: len(m.Requirements),
		Invalid:      len(m.Invalid),
		Findings:     findings,
	}, http.StatusOK)
}

// ResolveRequest names who resolved a finding
type ResolveRequest struct {
	ResolvedBy string `json:"resolved_by"`
}

// ResolveFinding marks a finding as resolved
func (h *ManifestHandler) ResolveFinding(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, "Finding ID is required", "", http.StatusBadRequest)
		return
	}

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if req.ResolvedBy == "" {
		req.ResolvedBy = "operator"
	}

	if err := h.svc.ResolveFinding(r.Context(), id, req.ResolvedBy); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeError(w, "Finding not found", "Finding does not exist or is already resolved", http.StatusNotFound)
			return
		}
		h.logger.Error("resolve finding failed", zap.String("id", id), zap.Error(err))
		h.writeError(w, "Failed to resolve finding", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]string{"status": "ok", "finding_id": id}, http.StatusOK)
}

// Export writes a stored manifest in the requested format
// (?format=requirements|json|yaml)
func (h *ManifestHandler) Export(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, "Manifest ID is required", "", http.StatusBadRequest)
		return
	}

	format := service.ExportFormat(r.URL.Query().Get("format"))
	switch format {
	case "", service.FormatRequirements:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename=requirements.txt")
	case service.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", "attachment; filename=manifest.json")
	case service.FormatYAML:
		w.Header().Set("Content-Type", "application/x-yaml")
		w.Header().Set("Content-Disposition", "attachment; filename=manifest.yml")
	default:
		h.writeError(w, "Unsupported export format", "Must be: requirements, json, or yaml", http.StatusBadRequest)
		return
	}

	if err := h.svc.Export(r.Context(), id, format, w); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeError(w, "Manifest not found", "", http.StatusNotFound)
			return
		}
		h.logger.Error("export failed", zap.String("id", id), zap.Error(err))
		// Headers may already be written, nothing more to do
		return
	}
}

// Verify triggers index verification for one manifest in the background
func (h *ManifestHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		h.writeError(w, "Verifier not configured", "Index probing is disabled", http.StatusServiceUnavailable)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, "Manifest ID is required", "", http.StatusBadRequest)
		return
	}

	if _, err := h.svc.GetManifest(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeError(w, "Manifest not found", "", http.StatusNotFound)
			return
		}
		h.writeError(w, "Failed to get manifest", err.Error(), http.StatusInternalServerError)
		return
	}

	// Run verification in background and return immediately
	go func() {
		if err := h.verifier.VerifyManifest(context.Background(), id); err != nil {
			h.logger.Error("verification failed", zap.String("id", id), zap.Error(err))
		}
	}()

	h.writeJSON(w, map[string]string{"status": "verify_started", "manifest_id": id}, http.StatusAccepted)
}

// VerifyAll triggers index verification for every stored manifest
func (h *ManifestHandler) VerifyAll(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		h.writeError(w, "Verifier not configured", "Index probing is disabled", http.StatusServiceUnavailable)
		return
	}

	go func() {
		if err := h.verifier.VerifyAll(context.Background()); err != nil {
			h.logger.Error("verification failed", zap.Error(err))
		}
	}()

	h.writeJSON(w, map[string]string{"status": "verify_started"}, http.StatusAccepted)
}

// Routes registers all API routes on mux
func (h *ManifestHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/manifests", h.ListManifests)
	mux.HandleFunc("POST /api/manifests", h.LoadManifest)
	mux.HandleFunc("GET /api/manifests/{id}", h.GetManifest)
	mux.HandleFunc("DELETE /api/manifests/{id}", h.DeleteManifest)
	mux.HandleFunc("GET /api/manifests/{id}/requirements", h.ListRequirements)
	mux.HandleFunc("GET /api/manifests/{id}/findings", h.ListFindings)

	mux.HandleFunc("POST /api/lint", h.Lint)
	mux.HandleFunc("POST /api/findings/{id}/resolve", h.ResolveFinding)

	mux.HandleFunc("GET /api/export/{id}", h.Export)

	mux.HandleFunc("POST /api/verify", h.VerifyAll)
	mux.HandleFunc("POST /api/verify/{id}", h.Verify)
}

// Helper methods

func (h *ManifestHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("encode response failed", zap.Error(err))
	}
}

func (h *ManifestHandler) writeError(w http.ResponseWriter, message, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message, Details: details}); err != nil {
		h.logger.Error("encode error response failed", zap.Error(err))
	}
}
