package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/CTAG07/markovwalk/pkg/store"
)

// ServerAPI serves build information and database statistics.
type ServerAPI struct {
	store  *store.Store
	logger *slog.Logger
}

// VersionInfo defines the structure for build/version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// NewServerAPI creates a new instance of the ServerAPI.
func NewServerAPI(s *store.Store, logger *slog.Logger) *ServerAPI {
	return &ServerAPI{
		store:  s,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/server endpoints.
func (a *ServerAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/server/version", a.handleVersion)
	mux.HandleFunc("/api/server/stats", a.handleStats)
}

// handleVersion returns the application's build information.
func (a *ServerAPI) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	})
}

// modelStatsResponse pairs a model with its counts.
type modelStatsResponse struct {
	store.ModelInfo
	store.ModelStats
}

// handleStats returns the state and transition counts of every model.
func (a *ServerAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	stats, err := a.store.GetStats(r.Context())
	if err != nil {
		a.logger.Error("Failed to get stats", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve stats: %v", err))
		return
	}
	resp := make([]modelStatsResponse, 0, len(stats.Models))
	for _, m := range sortedModelList(stats.Models) {
		resp = append(resp, modelStatsResponse{ModelInfo: m, ModelStats: stats.Stats[m.Id]})
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		err := json.NewEncoder(w).Encode(payload)
		if err != nil {
			slog.Error("Failed to encode JSON response", "error", err)
		}
	}
}
