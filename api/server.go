package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/cloudcover/sim/engine"
	"github.com/wricardo/cloudcover/sim/service"
	"github.com/wricardo/cloudcover/transport/websocket"
)

var log = logrus.WithField("component", "api")

var errInvalidSeed = errors.New("Provide a valid seed")

// Server represents the REST API server
type Server struct {
	service service.SimulationService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil, in which case the
// WebSocket endpoint is unavailable.
func NewServer(simService service.SimulationService, hub *websocket.Hub) *Server {
	s := &Server{
		service: simService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api", s.handleSimulation).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// One-shot simulation
	api.HandleFunc("/", s.handleSimulation).Methods("GET")
	api.HandleFunc("/simulation", s.handleSimulation).Methods("GET")

	// Stored runs
	api.HandleFunc("/simulations", s.handleCreateRun).Methods("POST")
	api.HandleFunc("/simulations", s.handleListRuns).Methods("GET")
	api.HandleFunc("/simulations/{id}", s.handleGetRun).Methods("GET")
	api.HandleFunc("/simulations/{id}", s.handleDeleteRun).Methods("DELETE")
	api.HandleFunc("/simulations/{id}/days/{day}", s.handleGetDay).Methods("GET")

	// Presets
	api.HandleFunc("/presets", s.handleListPresets).Methods("GET")
	api.HandleFunc("/presets", s.handleCreatePreset).Methods("POST")
	api.HandleFunc("/presets/{name}", s.handleGetPreset).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Router exposes the router so callers can mount extra endpoints
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Status: "Error", Message: message})
}

// respondServiceError maps service and engine errors to HTTP statuses
func respondServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
	}
	respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case service.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrRunNotFound),
		errors.Is(err, service.ErrPresetNotFound),
		errors.Is(err, service.ErrDayOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrDegenerateSimulation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrInvalidParams):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Simulation Handlers

func (s *Server) handleSimulation(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params, err := service.ParseQuery(query)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := service.SimulationRequest{Params: params}
	if raw := query.Get("seed"); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, errInvalidSeed.Error())
			return
		}
		req.Seed = &seed
	}

	info, err := s.service.Simulate(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info.Result)
}

// createRunRequest distinguishes absent fields from zero. Seed accepts a JSON
// number or a string of digits.
type createRunRequest struct {
	Airports *int        `json:"airports"`
	Clouds   *int        `json:"clouds"`
	Height   *int        `json:"height"`
	Width    *int        `json:"width"`
	Seed     json.Number `json:"seed"`
	Preset   string      `json:"preset"`
}

func (c createRunRequest) toRequest() (service.SimulationRequest, error) {
	req := service.SimulationRequest{Preset: strings.TrimSpace(c.Preset)}
	if c.Seed != "" {
		seed, err := strconv.ParseUint(c.Seed.String(), 10, 64)
		if err != nil {
			return req, errInvalidSeed
		}
		req.Seed = &seed
	}
	if req.Preset != "" {
		return req, nil
	}

	if c.Airports == nil || c.Clouds == nil || c.Height == nil || c.Width == nil {
		return req, service.ErrMissingArgument
	}
	req.Params = engine.Params{
		Airports: *c.Airports,
		Clouds:   *c.Clouds,
		Height:   *c.Height,
		Width:    *c.Width,
	}
	return req, nil
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var body createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req, err := body.toRequest()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := s.service.CreateRun(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.WithFields(logrus.Fields{
		"run_id":   run.ID,
		"airports": run.Params.Airports,
		"clouds":   run.Params.Clouds,
		"height":   run.Params.Height,
		"width":    run.Params.Width,
		"days":     run.Summary.Days,
	}).Info("run created")

	respondJSON(w, http.StatusCreated, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	opts := service.ListOptions{Order: query.Get("order")}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	runs, err := s.service.ListRuns(r.Context(), opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(runs),
		"runs":  runs,
		"order": opts.Order,
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	run, err := s.service.GetRun(r.Context(), runID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	if err := s.service.DeleteRun(r.Context(), runID); err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(runID, websocket.EventDeleted, nil)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Run %s deleted", runID),
	})
}

func (s *Server) handleGetDay(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	day, err := strconv.Atoi(vars["day"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Provide a valid day")
		return
	}

	view, err := s.service.GetDay(r.Context(), vars["id"], day)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// Preset Handlers

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.service.ListPresets(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(presets),
		"presets": presets,
	})
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	preset, err := s.service.LoadPreset(r.Context(), name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, preset)
}

func (s *Server) handleCreatePreset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
		service.Preset
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(body.Name) == "" {
		respondError(w, http.StatusBadRequest, "Preset name is required")
		return
	}
	if err := service.ValidateParams(body.Params()); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := body.ID
	if id == "" {
		id = presetID(body.Name)
	}

	preset := body.Preset
	if err := s.service.SavePreset(r.Context(), id, &preset); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Failed to save preset: %v", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Preset saved successfully",
		"preset_id": id,
	})
}

// presetID derives a file-friendly identifier from a display name
func presetID(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run")
	if runID == "" {
		respondError(w, http.StatusBadRequest, "run parameter required")
		return
	}
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "websocket replay is not enabled")
		return
	}

	run, err := s.service.GetRun(r.Context(), runID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.hub.ServeRun(w, r, run.ID, websocket.ReplayMessages(run))
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
