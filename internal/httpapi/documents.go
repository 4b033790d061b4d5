package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"example.com/compliance-auditor/internal/eval"
	"example.com/compliance-auditor/internal/model"
	"example.com/compliance-auditor/internal/store"
)

type DocumentStore interface {
	Find(ctx context.Context, id uuid.UUID) (*model.Document, error)
	Query(ctx context.Context, q store.DocumentQuery) ([]model.Document, int64, error)
}

type Ingester interface {
	Ingest(ctx context.Context, path, filename string, data []byte) (*model.Document, error)
}

type Checker interface {
	Evaluate(ctx context.Context, doc *model.Document, types []model.ComplianceType) (eval.Result, error)
}

type Suggester interface {
	Suggest(ctx context.Context, docID uuid.UUID, issueID string) (string, *model.ComplianceIssue, error)
}

type Uploader interface {
	Save(ctx context.Context, dir, name string, data []byte) (string, error)
}

type DocumentHandler struct {
	Docs         DocumentStore
	Ingest       Ingester
	Engine       Checker
	Suggester    Suggester
	Uploads      Uploader
	UploadDir    string
	MaxUpload    int64
	DefaultTypes []model.ComplianceType
	Logger       zerolog.Logger
}

// Upload stores the multipart "file" and ingests it. With ?check=true the
// new document is evaluated straight away.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.MaxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUpload)
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	filename := filepath.Base(hdr.Filename)
	if filename == "." || filename == string(filepath.Separator) || strings.TrimSpace(filename) == "" {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}

	path, err := h.Uploads.Save(r.Context(), h.UploadDir, uuid.NewString()+"_"+filename, data)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	doc, err := h.Ingest.Ingest(r.Context(), path, filename, data)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if v, _ := strconv.ParseBool(r.URL.Query().Get("check")); v {
		types, err := complianceTypes(r, nil, h.DefaultTypes)
		if err != nil {
			writeError(w, h.Logger, err)
			return
		}
		if _, err := h.Engine.Evaluate(r.Context(), doc, types); err != nil {
			writeError(w, h.Logger, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, doc)
}

type pagination struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
	HasNext bool  `json:"has_next"`
	HasPrev bool  `json:"has_prev"`
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	page, _ := strconv.Atoi(v.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(v.Get("per_page"))
	q := store.DocumentQuery{
		Search: v.Get("q"),
		Sort:   v.Get("sort"),
		Desc:   v.Get("order") != "asc",
		Limit:  perPage,
	}
	if t := v.Get("document_type"); t != "" {
		dt, err := model.ParseDocumentType(t)
		if err != nil {
			writeError(w, h.Logger, err)
			return
		}
		q.DocumentType = dt
	}
	if s := v.Get("status"); s != "" {
		st, err := model.ParseComplianceStatus(s)
		if err != nil {
			writeError(w, h.Logger, err)
			return
		}
		q.Status = st
	}
	q = q.Normalize()
	q.Skip = (page - 1) * q.Limit

	docs, total, err := h.Docs.Query(r.Context(), q)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	pages := int(math.Ceil(float64(total) / float64(q.Limit)))
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"pagination": pagination{
			Page:    page,
			PerPage: q.Limit,
			Total:   total,
			Pages:   pages,
			HasNext: page < pages,
			HasPrev: page > 1,
		},
	})
}

func (h *DocumentHandler) find(w http.ResponseWriter, r *http.Request) (*model.Document, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, err)
		return nil, false
	}
	doc, err := h.Docs.Find(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, err)
		return nil, false
	}
	return doc, true
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	if doc, ok := h.find(w, r); ok {
		writeJSON(w, http.StatusOK, doc)
	}
}

type checkRequest struct {
	ComplianceTypes []string `json:"compliance_types"`
}

func (h *DocumentHandler) Check(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.find(w, r)
	if !ok {
		return
	}
	var body checkRequest
	if r.ContentLength != 0 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
	}
	types, err := complianceTypes(r, body.ComplianceTypes, h.DefaultTypes)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	res, err := h.Engine.Evaluate(r.Context(), doc, types)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id":       doc.ID,
		"compliance_types":  types,
		"compliance_score":  res.Score,
		"compliance_status": res.Status,
		"compliance_issues": res.Issues,
		"trace":             res.Trace,
	})
}

func (h *DocumentHandler) Compliance(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.find(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id":       doc.ID,
		"filename":          doc.Filename,
		"compliance_score":  doc.ComplianceScore,
		"compliance_status": doc.ComplianceStatus,
		"compliance_issues": doc.ComplianceIssues,
		"last_checked":      doc.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *DocumentHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	text, issue, err := h.Suggester.Suggest(r.Context(), id, r.PathValue("issueID"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestion": text, "issue": issue})
}
