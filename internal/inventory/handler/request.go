package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meditrack/meditrack-backend/internal/inventory/service"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/logger"
)

// RequestHandler handles the inter-branch medicine request endpoints
type RequestHandler struct {
	requests *service.RequestService
	logger   *logger.Logger
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(requests *service.RequestService, log *logger.Logger) *RequestHandler {
	return &RequestHandler{
		requests: requests,
		logger:   log,
	}
}

// List lists a branch's requests. ?direction=incoming shows what other
// branches are asking of this one; anything else shows this branch's own.
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")

	var err error
	var reqs interface{}
	if r.URL.Query().Get("direction") == "incoming" {
		reqs, err = h.requests.ListIncoming(r.Context(), branchID)
	} else {
		reqs, err = h.requests.ListOutgoing(r.Context(), branchID)
	}
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, reqs)
}

// Create files a new request to another branch
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")

	act, err := httputil.RequireActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req struct {
		ToBranchID   string `json:"to_branch_id" validate:"required"`
		MedicineName string `json:"medicine_name" validate:"required"`
		Quantity     int    `json:"quantity" validate:"required,gt=0"`
		Note         string `json:"note"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	created, err := h.requests.Create(r.Context(), branchID, service.CreateRequestInput{
		ToBranchID:   req.ToBranchID,
		MedicineName: req.MedicineName,
		Quantity:     req.Quantity,
		Note:         req.Note,
	}, act)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, created)
}

// Approve approves a pending request addressed to this branch
func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

// Reject rejects a pending request addressed to this branch
func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *RequestHandler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	branchID := chi.URLParam(r, "branchID")
	requestID := chi.URLParam(r, "id")

	act, err := httputil.RequireActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req struct {
		Note string `json:"note"`
	}
	if r.ContentLength > 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
	}

	decide := h.requests.Reject
	if approve {
		decide = h.requests.Approve
	}

	decided, err := decide(r.Context(), branchID, requestID, req.Note, act)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, decided)
}

// Fulfill dispenses an approved request from this branch's stock
func (h *RequestHandler) Fulfill(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")
	requestID := chi.URLParam(r, "id")

	act, err := httputil.RequireActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req struct {
		BatchID string `json:"medicine_stock_in_id"`
	}
	if r.ContentLength > 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
	}

	fulfilled, err := h.requests.Fulfill(r.Context(), branchID, requestID, req.BatchID, act)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, fulfilled)
}
