// Package httpapi exposes the auditor over a small JSON API.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"example.com/compliance-auditor/internal/bulk"
	"example.com/compliance-auditor/internal/model"
	"example.com/compliance-auditor/internal/store"
)

// Routes registers every handler on mux.
func Routes(mux *http.ServeMux, d *DocumentHandler, rules *RuleHandler, jobs *JobHandler) {
	mux.HandleFunc("POST /documents", d.Upload)
	mux.HandleFunc("GET /documents", d.List)
	mux.HandleFunc("GET /documents/{id}", d.Get)
	mux.HandleFunc("POST /documents/{id}/check", d.Check)
	mux.HandleFunc("GET /documents/{id}/compliance", d.Compliance)
	mux.HandleFunc("POST /documents/{id}/issues/{issueID}/suggestions", d.Suggest)

	mux.HandleFunc("POST /rules", rules.Create)
	mux.HandleFunc("GET /rules", rules.List)
	mux.HandleFunc("GET /rules/{id}", rules.Get)
	mux.HandleFunc("PUT /rules/{id}", rules.Update)
	mux.HandleFunc("DELETE /rules/{id}", rules.Delete)

	mux.HandleFunc("POST /jobs", jobs.Submit)
	mux.HandleFunc("GET /jobs/{id}", jobs.Get)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes. Anything unknown is a
// 500 and is logged.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var ve *model.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.As(err, &ve):
		http.Error(w, ve.Error(), http.StatusBadRequest)
	case errors.Is(err, bulk.ErrQueueFull):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		log.Error().Err(err).Msg("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, &model.ValidationError{Field: name, Reason: "must be a UUID"}
	}
	return id, nil
}

// complianceTypes reads ?type= (repeatable or comma separated) and falls
// back to def when none is given.
func complianceTypes(r *http.Request, body []string, def []model.ComplianceType) ([]model.ComplianceType, error) {
	var raw []string
	for _, v := range r.URL.Query()["type"] {
		raw = append(raw, strings.Split(v, ",")...)
	}
	raw = append(raw, body...)
	types, err := model.ParseComplianceTypes(raw)
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return def, nil
	}
	return types, nil
}
