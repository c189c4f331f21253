package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sitedock/be-pm-approvals/internal/auth"
	"github.com/sitedock/be-pm-approvals/internal/errors"
	"github.com/sitedock/be-pm-approvals/internal/logger"
	"github.com/sitedock/be-pm-approvals/internal/repository"
	"github.com/sitedock/be-pm-approvals/internal/service"
)

// ApprovalAPI is the service surface the HTTP layer depends on.
type ApprovalAPI interface {
	CreateRequest(ctx context.Context, principal *auth.Principal, in *service.CreateRequestInput) (*repository.ApprovalRequest, error)
	GetRequest(ctx context.Context, entityType repository.EntityType, entityID string) (*repository.ApprovalRequest, error)
	Decide(ctx context.Context, principal *auth.Principal, requestID, stepID string, outcome repository.Outcome, comments *string) (*repository.ApprovalRequest, error)
	Resubmit(ctx context.Context, principal *auth.Principal, requestID string) (*repository.ApprovalRequest, error)
	ResolveCandidates(ctx context.Context, projectID, role string, principal *auth.Principal) ([]service.Candidate, error)
	GetPendingApprovals(ctx context.Context, projectID string, principal *auth.Principal) ([]*repository.ApprovalStep, error)
	GetApprovalHistory(ctx context.Context, entityType repository.EntityType, entityID string) ([]*repository.ApprovalAuditEntry, error)
}

// HTTPHandler handles HTTP requests for the approval engine.
type HTTPHandler struct {
	service ApprovalAPI
	log     *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(service ApprovalAPI, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, log: log}
}

// ── JSON views ────────────────────────────────────────────────────────────────

type stepView struct {
	ID           string     `json:"id"`
	StepOrder    int        `json:"step_order"`
	ApproverID   *string    `json:"approver_id"`
	ApproverRole string     `json:"approver_role"`
	Status       string     `json:"status"`
	Comments     *string    `json:"comments,omitempty"`
	DecidedBy    *string    `json:"decided_by,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
}

type requestView struct {
	ID            string     `json:"id"`
	ProjectID     string     `json:"project_id"`
	EntityType    string     `json:"entity_type"`
	EntityID      string     `json:"entity_id"`
	CurrentStatus string     `json:"current_status"`
	CreatedBy     string     `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	Steps         []stepView `json:"steps"`
}

func toStepView(s *repository.ApprovalStep) stepView {
	return stepView{
		ID:           s.ID,
		StepOrder:    s.StepOrder,
		ApproverID:   s.ApproverID,
		ApproverRole: s.ApproverRole,
		Status:       string(s.Status),
		Comments:     s.Comments,
		DecidedBy:    s.DecidedBy,
		DecidedAt:    s.DecidedAt,
	}
}

func toRequestView(req *repository.ApprovalRequest) requestView {
	view := requestView{
		ID:            req.ID,
		ProjectID:     req.ProjectID,
		EntityType:    string(req.EntityType),
		EntityID:      req.EntityID,
		CurrentStatus: string(req.CurrentStatus),
		CreatedBy:     req.CreatedBy,
		CreatedAt:     req.CreatedAt,
		Steps:         make([]stepView, 0, len(req.Steps)),
	}
	for _, s := range req.Steps {
		view.Steps = append(view.Steps, toStepView(s))
	}
	return view
}

// ── Handlers ──────────────────────────────────────────────────────────────────

// CreateRequest handles POST /api/v1/approvals.
func (h *HTTPHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var in service.CreateRequestInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req, err := h.service.CreateRequest(r.Context(), principal, &in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toRequestView(req))
}

// GetRequest handles GET /api/v1/approvals/get.
func (h *HTTPHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entityType := r.URL.Query().Get("entity_type")
	entityID := r.URL.Query().Get("entity_id")
	if entityType == "" || entityID == "" {
		http.Error(w, "entity_type and entity_id are required", http.StatusBadRequest)
		return
	}

	req, err := h.service.GetRequest(r.Context(), repository.EntityType(entityType), entityID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toRequestView(req))
}

// Decide handles POST /api/v1/approvals/decide.
func (h *HTTPHandler) Decide(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var in struct {
		RequestID string  `json:"request_id"`
		StepID    string  `json:"step_id"`
		Outcome   string  `json:"outcome"`
		Comments  *string `json:"comments,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if in.RequestID == "" || in.StepID == "" {
		http.Error(w, "request_id and step_id are required", http.StatusBadRequest)
		return
	}

	req, err := h.service.Decide(r.Context(), principal, in.RequestID, in.StepID, repository.Outcome(in.Outcome), in.Comments)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toRequestView(req))
}

// Resubmit handles POST /api/v1/approvals/resubmit.
func (h *HTTPHandler) Resubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var in struct {
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if in.RequestID == "" {
		http.Error(w, "request_id is required", http.StatusBadRequest)
		return
	}

	req, err := h.service.Resubmit(r.Context(), principal, in.RequestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toRequestView(req))
}

// Candidates handles GET /api/v1/approvals/candidates.
func (h *HTTPHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	projectID := r.URL.Query().Get("project_id")
	role := r.URL.Query().Get("role")
	if projectID == "" || role == "" {
		http.Error(w, "project_id and role are required", http.StatusBadRequest)
		return
	}

	candidates, err := h.service.ResolveCandidates(r.Context(), projectID, role, principal)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"candidates": candidates})
}

// Pending handles GET /api/v1/approvals/pending.
func (h *HTTPHandler) Pending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		http.Error(w, "project_id is required", http.StatusBadRequest)
		return
	}

	steps, err := h.service.GetPendingApprovals(r.Context(), projectID, principal)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	views := make([]stepView, 0, len(steps))
	for _, s := range steps {
		views = append(views, toStepView(s))
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"steps": views})
}

// History handles GET /api/v1/approvals/history.
func (h *HTTPHandler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entityType := r.URL.Query().Get("entity_type")
	entityID := r.URL.Query().Get("entity_id")
	if entityType == "" || entityID == "" {
		http.Error(w, "entity_type and entity_id are required", http.StatusBadRequest)
		return
	}

	entries, err := h.service.GetApprovalHistory(r.Context(), repository.EntityType(entityType), entityID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// ── Response helpers ──────────────────────────────────────────────────────────

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error().Err(err).Msg("failed to encode response body")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	h.writeJSON(w, status, map[string]string{
		"code":    errors.Code(err),
		"message": err.Error(),
	})
}
