package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"example.com/compliance-auditor/internal/bulk"
	"example.com/compliance-auditor/internal/model"
)

type JobRunner interface {
	Submit(ctx context.Context, name string, files []string, types []model.ComplianceType) (*model.BulkJob, error)
	Status(ctx context.Context, id uuid.UUID) (*model.BulkJob, error)
}

type JobHandler struct {
	Jobs         JobRunner
	DefaultTypes []model.ComplianceType
	Logger       zerolog.Logger
}

type submitRequest struct {
	Name            string   `json:"name"`
	Files           []string `json:"files"`
	ComplianceTypes []string `json:"compliance_types"`
}

func (h *JobHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	types, err := complianceTypes(r, req.ComplianceTypes, h.DefaultTypes)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	job, err := h.Jobs.Submit(r.Context(), req.Name, req.Files, types)
	if err != nil {
		if errors.Is(err, bulk.ErrQueueFull) && job != nil {
			writeJSON(w, http.StatusServiceUnavailable, job)
			return
		}
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	job, err := h.Jobs.Status(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
