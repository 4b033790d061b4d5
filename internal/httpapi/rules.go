package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"example.com/compliance-auditor/internal/model"
	"example.com/compliance-auditor/internal/store"
)

type RuleStore interface {
	List(ctx context.Context, f store.RuleFilter) ([]model.ComplianceRule, error)
	Get(ctx context.Context, id uuid.UUID) (*model.ComplianceRule, error)
	Create(ctx context.Context, r *model.ComplianceRule) error
	Update(ctx context.Context, id uuid.UUID, in model.ComplianceRule) (*model.ComplianceRule, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Invalidator drops cached compiled rules.
type Invalidator interface {
	Invalidate(id uuid.UUID)
}

type RuleHandler struct {
	Rules  RuleStore
	Engine Invalidator
	Logger zerolog.Logger
}

func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rule model.ComplianceRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if ct := r.URL.Query().Get("compliance_type"); ct != "" {
		t, err := model.ParseComplianceType(ct)
		if err != nil {
			writeError(w, h.Logger, err)
			return
		}
		rule.ComplianceType = t
	}
	if err := h.Rules.Create(r.Context(), &rule); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if h.Engine != nil {
		h.Engine.Invalidate(rule.ID)
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	f := store.RuleFilter{Name: v.Get("name"), Tag: v.Get("tag")}
	if ct := v.Get("compliance_type"); ct != "" {
		t, err := model.ParseComplianceType(ct)
		if err != nil {
			writeError(w, h.Logger, err)
			return
		}
		f.ComplianceType = t
	}
	if rt := v.Get("rule_type"); rt != "" {
		if !model.RuleType(rt).Valid() {
			writeError(w, h.Logger, &model.ValidationError{Field: "rule_type", Reason: "must be one of regex, keyword, semantic"})
			return
		}
		f.RuleType = model.RuleType(rt)
	}
	if a := v.Get("is_active"); a != "" {
		b, err := strconv.ParseBool(a)
		if err != nil {
			writeError(w, h.Logger, &model.ValidationError{Field: "is_active", Reason: "must be true or false"})
			return
		}
		f.Active = &b
	}
	rules, err := h.Rules.List(r.Context(), f)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	rule, err := h.Rules.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	var in model.ComplianceRule
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	rule, err := h.Rules.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if h.Engine != nil {
		h.Engine.Invalidate(rule.ID)
	}
	writeJSON(w, http.StatusOK, rule)
}

func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if err := h.Rules.Delete(r.Context(), id); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if h.Engine != nil {
		h.Engine.Invalidate(id)
	}
	w.WriteHeader(http.StatusNoContent)
}
