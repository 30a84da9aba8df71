package handler

import (
	"net/http"

	"github.com/meditrack/meditrack-backend/internal/inventory/repository"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/logger"
)

// MedicineHandler handles the medicine catalog endpoints
type MedicineHandler struct {
	medicines *repository.MedicineRepository
	logger    *logger.Logger
}

// NewMedicineHandler creates a new medicine handler
func NewMedicineHandler(medicines *repository.MedicineRepository, log *logger.Logger) *MedicineHandler {
	return &MedicineHandler{
		medicines: medicines,
		logger:    log,
	}
}

// List lists all medicines
func (h *MedicineHandler) List(w http.ResponseWriter, r *http.Request) {
	meds, err := h.medicines.List(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, meds)
}

// Create creates a medicine, or returns the existing one with the same name
func (h *MedicineHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MedicineName string `json:"medicine_name" validate:"required"`
		Category     string `json:"category"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	med, err := h.medicines.CreateOrGet(r.Context(), req.MedicineName, req.Category)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, med)
}
