package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/CTAG07/markovwalk/pkg/markov"
	"github.com/CTAG07/markovwalk/pkg/store"
)

// MarkovAPI holds the dependencies for the Markov model API handlers.
type MarkovAPI struct {
	store     *store.Store
	config    *MarkovConfig
	tokenizer markov.Tokenizer
	logger    *slog.Logger

	// A chain owns its cursor, so walks on cached chains are serialized.
	mu     sync.Mutex
	chains map[string]*markov.Chain[string]
}

// NewMarkovAPI creates a new instance of the MarkovAPI.
func NewMarkovAPI(s *store.Store, config *MarkovConfig, tokenizer markov.Tokenizer, logger *slog.Logger) *MarkovAPI {
	return &MarkovAPI{
		store:     s,
		config:    config,
		tokenizer: tokenizer,
		logger:    logger,
		chains:    make(map[string]*markov.Chain[string]),
	}
}

// RegisterRoutes sets up the routing for all /api/markov endpoints.
func (m *MarkovAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/markov/models", m.handleListAndCreateModels)
	mux.HandleFunc("/api/markov/models/", m.handleModelByName)
	mux.HandleFunc("/api/markov/import", m.handleImport)
}

type CreateModelRequest struct {
	Name     string `json:"name"`
	Strategy string `json:"strategy"`
}

type PruneRequest struct {
	MinFreq int `json:"minFreq"`
}

type GenerateResponse struct {
	Tokens []string `json:"tokens"`
	Text   string   `json:"text"`
}

// invalidate drops a cached chain so the next walk reloads it from the store.
func (m *MarkovAPI) invalidate(name string) {
	m.mu.Lock()
	delete(m.chains, name)
	m.mu.Unlock()
}

// chain returns the cached chain for model, loading it on first use.
// The caller must hold m.mu.
func (m *MarkovAPI) chain(ctx context.Context, model store.ModelInfo) (*markov.Chain[string], error) {
	if c, ok := m.chains[model.Name]; ok {
		return c, nil
	}
	c, err := store.Load[string](ctx, m.store, model)
	if err != nil {
		return nil, err
	}
	m.chains[model.Name] = c
	return c, nil
}

// handleListAndCreateModels handles GET for listing and POST for creating models.
func (m *MarkovAPI) handleListAndCreateModels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		models, err := m.store.GetModelInfos(r.Context())
		if err != nil {
			m.logger.Error("Failed to get model infos", "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve models: %v", err))
			return
		}
		respondWithJSON(w, http.StatusOK, sortedModels(models))

	case http.MethodPost:
		var req CreateModelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		if req.Name == "" || strings.Contains(req.Name, "/") {
			respondWithError(w, http.StatusBadRequest, "A model name without '/' is required")
			return
		}
		if req.Strategy == "" {
			req.Strategy = m.config.Strategy
		}
		strategy, err := markov.ParseStrategy(req.Strategy)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		model := store.ModelInfo{Name: req.Name, Strategy: strategy}
		if err = m.store.InsertModel(r.Context(), model); err != nil {
			m.logger.Error("Failed to insert new model", "name", req.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to create model: %v", err))
			return
		}
		newModel, err := m.store.GetModelInfo(r.Context(), req.Name)
		if err != nil {
			m.logger.Error("Failed to retrieve newly created model", "name", req.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to verify model creation: %v", err))
			return
		}
		respondWithJSON(w, http.StatusCreated, newModel)
	default:
		w.Header().Set("Allow", "GET, POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleModelByName routes actions for a specific model, e.g., train, generate, export, delete.
func (m *MarkovAPI) handleModelByName(w http.ResponseWriter, r *http.Request) {

	path := strings.TrimPrefix(r.URL.Path, "/api/markov/models/")
	parts := strings.Split(path, "/")
	modelName := parts[0]

	if modelName == "" {
		respondWithError(w, http.StatusBadRequest, "Model name not specified")
		return
	}

	model, err := m.store.GetModelInfo(r.Context(), modelName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondWithError(w, http.StatusNotFound, "Model not found")
			return
		}
		m.logger.Error("Failed to get model info by name", "name", modelName, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}

	if len(parts) == 1 { // Path is just /api/markov/models/{name}
		if r.Method == http.MethodDelete {
			if err = m.store.RemoveModel(r.Context(), model); err != nil {
				m.logger.Error("Failed to remove model", "name", modelName, "error", err)
				respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to remove model: %v", err))
				return
			}
			m.invalidate(modelName)
			w.WriteHeader(http.StatusNoContent)
		} else {
			w.Header().Set("Allow", "DELETE")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	action := parts[1]
	switch action {
	case "train":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		tokens, err := markov.Tokenize(m.tokenizer, r.Body)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read training text: %v", err))
			return
		}
		if err = store.Train(r.Context(), m.store, model, tokens); err != nil {
			if errors.Is(err, markov.ErrEmptySequence) {
				respondWithError(w, http.StatusBadRequest, "Training text contains no tokens")
				return
			}
			m.logger.Error("Failed to train model", "name", modelName, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Training failed: %v", err))
			return
		}
		m.invalidate(modelName)
		w.WriteHeader(http.StatusAccepted)

	case "generate":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		m.handleGenerate(w, r, model)

	case "initialize":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		chain, err := m.chain(r.Context(), model)
		if err != nil {
			respondWithLoadError(w, m.logger, modelName, err)
			return
		}
		chain.Initialize()
		if err = store.SaveCursor(r.Context(), m.store, model, chain); err != nil {
			m.logger.Error("Failed to save cursor", "name", modelName, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save cursor: %v", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case "prune":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		var req PruneRequest
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		if err = m.store.PruneModel(r.Context(), model, req.MinFreq); err != nil {
			m.logger.Error("Failed to prune model", "name", modelName, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Pruning failed: %v", err))
			return
		}
		m.invalidate(modelName)
		w.WriteHeader(http.StatusNoContent)

	case "export":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		format, err := markov.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		var buf bytes.Buffer
		if err = store.Export[string](r.Context(), m.store, model, &buf, format); err != nil {
			respondWithLoadError(w, m.logger, modelName, err)
			return
		}
		w.Header().Set("Content-Type", contentType(format))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.%s\"", modelName, format))
		w.WriteHeader(http.StatusOK)
		if _, err = buf.WriteTo(w); err != nil {
			m.logger.Error("Failed to write export", "name", modelName, "error", err)
		}

	default:
		respondWithError(w, http.StatusNotFound, "Action not found")
	}
}

// handleGenerate walks the cached chain for up to max_length tokens.
func (m *MarkovAPI) handleGenerate(w http.ResponseWriter, r *http.Request, model store.ModelInfo) {
	n := 20
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 || parsed > m.config.MaxLength {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("n must be an integer between 0 and %d", m.config.MaxLength))
			return
		}
		n = parsed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	chain, err := m.chain(r.Context(), model)
	if err != nil {
		respondWithLoadError(w, m.logger, model.Name, err)
		return
	}
	if r.URL.Query().Get("reset") == "1" {
		chain.Initialize()
	}
	tokens := chain.Generate(markov.DefaultSource, n)
	if err = store.SaveCursor(r.Context(), m.store, model, chain); err != nil {
		m.logger.Error("Failed to save cursor", "name", model.Name, "error", err)
	}
	respondWithJSON(w, http.StatusOK, GenerateResponse{
		Tokens: tokens,
		Text:   markov.Join(m.tokenizer, tokens),
	})
}

// handleImport merges an uploaded snapshot into the model named by ?name=.
func (m *MarkovAPI) handleImport(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" || strings.Contains(name, "/") {
		respondWithError(w, http.StatusBadRequest, "A model name without '/' is required (?name=)")
		return
	}
	format, err := markov.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	model, err := store.Import[string](r.Context(), m.store, name, r.Body, format)
	if err != nil {
		m.logger.Error("Failed to import model", "error", err)
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Import failed: %v", err))
		return
	}
	m.invalidate(name)
	respondWithJSON(w, http.StatusAccepted, model)
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// respondWithLoadError reports a model that cannot be walked as a conflict.
func respondWithLoadError(w http.ResponseWriter, logger *slog.Logger, name string, err error) {
	if errors.Is(err, markov.ErrEmptySequence) || errors.Is(err, markov.ErrAllDeadEnds) {
		respondWithError(w, http.StatusConflict, fmt.Sprintf("Model '%s' has no transitions to walk", name))
		return
	}
	logger.Error("Failed to load model", "name", name, "error", err)
	respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load model: %v", err))
}

func contentType(format markov.Format) string {
	if format == markov.FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}
