package review

import (
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"

	"SSPLab/internal/auth"
	"SSPLab/internal/classify"
	"SSPLab/internal/config"
	"SSPLab/internal/curve"
	"SSPLab/internal/repo"
	"SSPLab/internal/stats"
	"SSPLab/internal/stiffness"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Handler serves the interactive review surface: browsing automated
// results, fetching raw curves, and saving manual linear-region refits.
type Handler struct {
	Cfg     *config.Config
	Records []stats.SampleRecord
	Repo    repo.Repository
}

// ListSamples returns the automated results, optionally filtered by
// subject, group, or condition query parameters.
func (h *Handler) ListSamples(w http.ResponseWriter, r *http.Request) {
	subject := r.URL.Query().Get("subject")
	group := r.URL.Query().Get("group")
	condition := r.URL.Query().Get("condition")

	out := make([]stats.SampleRecord, 0, len(h.Records))
	for _, rec := range h.Records {
		if subject != "" && rec.SampleID != subject {
			continue
		}
		if group != "" && rec.Subgroup != group {
			continue
		}
		if condition != "" && rec.Condition != condition {
			continue
		}
		out = append(out, rec)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// GroupStats returns the aggregate statistics for the current records.
func (h *Handler) GroupStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats.Compute(h.Records))
}

// GetCurve loads the raw normalized curve of one sample for plotting.
func (h *Handler) GetCurve(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(mux.Vars(r)["filename"])

	c, err := curve.Load(filepath.Join(h.Cfg.DataDir(), name))
	if err != nil {
		http.Error(w, "Curve not available: "+err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

type saveManualRequest struct {
	Filename  string `json:"filename"`
	Indices   []int  `json:"indices"`
	SessionID string `json:"session_id"`
}

// SaveManualResult refits the reviewer's point selection and persists the
// result. The reviewer identity comes from the session token; a review
// session id is generated when the client does not supply one.
func (h *Handler) SaveManualResult(w http.ResponseWriter, r *http.Request) {
	var req saveManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	name := filepath.Base(req.Filename)
	c, err := curve.Load(filepath.Join(h.Cfg.DataDir(), name))
	if err != nil {
		http.Error(w, "Curve not available: "+err.Error(), http.StatusNotFound)
		return
	}

	fit, err := stiffness.FitIndices(c.Displacement, c.Load, req.Indices)
	if err != nil {
		http.Error(w, "Fit error: "+err.Error(), http.StatusBadRequest)
		return
	}

	subjectID, condition := classify.ParseFilename(name)
	subgroup := classify.SubgroupUnassigned
	for _, rec := range h.Records {
		if rec.Filename == name {
			subgroup = rec.Subgroup
			break
		}
	}

	reviewer, _ := auth.UserLogin(r.Context())
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	mr := repo.ManualResult{
		Filename:  name,
		SampleKey: classify.SampleKey(name),
		SubjectID: subjectID,
		Condition: condition,
		Subgroup:  subgroup,
		Reviewer:  reviewer,
		SessionID: req.SessionID,
		StartIdx:  fit.Start,
		EndIdx:    fit.End,
		Stiffness: fit.Slope,
		R2:        fit.R2,
	}

	id, err := h.Repo.SaveManualResult(r.Context(), mr)
	if err != nil {
		log.Printf("SaveManualResult error: %v", err)
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}
	mr.ID = id

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(mr)
}

// ListManualResults returns saved manual refits, optionally for one file.
func (h *Handler) ListManualResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.Repo.ListManualResults(r.Context(), r.URL.Query().Get("filename"))
	if err != nil {
		log.Printf("ListManualResults error: %v", err)
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []repo.ManualResult{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}
