package report

import (
	"encoding/json"
	"net/http"

	"SSPLab/internal/stats"
)

type Handler struct{}

type generateRequest struct {
	Meta    Meta                 `json:"meta"`
	Records []stats.SampleRecord `json:"records"`
}

// Generate builds the group report PDF from posted sample records and
// streams it back.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	groups := stats.Compute(req.Records)
	if req.Meta.Samples == 0 {
		req.Meta.Samples = len(req.Records)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"group_report.pdf\"")
	if err := Build(w, req.Meta, groups); err != nil {
		http.Error(w, "Report generation error", http.StatusInternalServerError)
		return
	}
}
