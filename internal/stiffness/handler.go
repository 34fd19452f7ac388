package stiffness

import (
	"encoding/json"
	"net/http"
)

type Handler struct{}

type fitRequest struct {
	Displacement []float64 `json:"displacement_mm"`
	Load         []float64 `json:"load_n"`
	Indices      []int     `json:"indices"`
}

// Fit refits a line over the reviewer's selected point indices.
func (h *Handler) Fit(w http.ResponseWriter, r *http.Request) {
	var req fitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	res, err := FitIndices(req.Displacement, req.Load, req.Indices)
	if err != nil {
		http.Error(w, "Fit error: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
