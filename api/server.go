package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/online-games/game/engine"
	"github.com/wricardo/online-games/game/service"
	"github.com/wricardo/online-games/transport/websocket"
)

// PlayerHeader carries the caller's player id
const PlayerHeader = "X-Player-ID"

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	logger  *zap.Logger
}

// NewServer creates a new API server. hub may be nil.
func NewServer(gameService service.GameService, hub *websocket.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	// Catalog
	api.HandleFunc("/game-types", s.handleListGameTypes).Methods("GET")
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")

	// Match lifecycle
	api.HandleFunc("/matches", s.handleCreateMatch).Methods("POST")
	api.HandleFunc("/matches", s.handleListMatches).Methods("GET")
	api.HandleFunc("/matches/{id}", s.handleGetMatch).Methods("GET")
	api.HandleFunc("/matches/{id}", s.handleDeleteMatch).Methods("DELETE")
	api.HandleFunc("/matches/{id}/join", s.handleJoinMatch).Methods("POST")

	// Private challenges
	api.HandleFunc("/challenges", s.handleChallenge).Methods("POST")
	api.HandleFunc("/challenges", s.handleListChallenges).Methods("GET")
	api.HandleFunc("/matches/{id}/accept", s.handleAcceptChallenge).Methods("POST")
	api.HandleFunc("/matches/{id}/decline", s.handleDeclineChallenge).Methods("POST")

	// Play
	api.HandleFunc("/matches/{id}/move", s.handleMove).Methods("POST")
	api.HandleFunc("/matches/{id}/resign", s.handleResign).Methods("POST")
	api.HandleFunc("/matches/{id}/history", s.handleGetHistory).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	if s.hub != nil {
		s.router.HandleFunc("/ws", s.handleWebSocket)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// statusRecorder captures the response code for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			// the upgrade needs the original writer
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors to HTTP status codes
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrMatchNotFound), errors.Is(err, service.ErrPresetNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotAPlayer),
		errors.Is(err, service.ErrPrivateChallenge),
		errors.Is(err, service.ErrNotChallenged):
		return http.StatusForbidden
	case errors.Is(err, service.ErrPlayerRequired):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidMove),
		errors.Is(err, service.ErrOpponentRequired),
		errors.Is(err, service.ErrChallengeSelf):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrMatchNotWaiting),
		errors.Is(err, service.ErrOwnMatch),
		errors.Is(err, service.ErrWaitingForOpponent),
		errors.Is(err, service.ErrMatchNotInProgress),
		errors.Is(err, service.ErrMatchExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func playerID(r *http.Request) string {
	return r.Header.Get(PlayerHeader)
}

func (s *Server) notify(matchID string) {
	if s.hub != nil {
		s.hub.NotifyMatch(matchID)
	}
}

// Catalog Handlers

func (s *Server) handleListGameTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.service.ListGameTypes(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, types)
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListPresets(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, configs)
}

// Match Handlers

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PresetID string `json:"preset_id,omitempty"`
		GameType string `json:"game_type,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// preset_id wins; a bare game type selects its implicit preset
	presetOrType := req.PresetID
	if presetOrType == "" {
		presetOrType = req.GameType
	}

	match, err := s.service.CreateMatch(r.Context(), presetOrType, playerID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, match)
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := service.MatchFilter{
		GameType: engine.GameType(query.Get("game_type")),
		Status:   service.MatchStatus(query.Get("status")),
		PlayerID: query.Get("player_id"),
	}

	matches, err := s.service.ListMatches(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	total := len(matches)
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(matches) {
			matches = matches[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(matches),
		"total":   total,
		"matches": matches,
	})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	match, err := s.service.GetMatch(r.Context(), mux.Vars(r)["id"], playerID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, match)
}

func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]

	if err := s.service.DeleteMatch(r.Context(), matchID, playerID(r)); err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(matchID, "deleted", nil)
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Match %s deleted", matchID),
	})
}

func (s *Server) handleJoinMatch(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]

	match, err := s.service.JoinMatch(r.Context(), matchID, playerID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.notify(matchID)
	respondJSON(w, http.StatusOK, match)
}

// Challenge Handlers

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PresetID   string `json:"preset_id,omitempty"`
		GameType   string `json:"game_type,omitempty"`
		OpponentID string `json:"opponent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	presetOrType := req.PresetID
	if presetOrType == "" {
		presetOrType = req.GameType
	}

	match, err := s.service.Challenge(r.Context(), presetOrType, playerID(r), req.OpponentID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, match)
}

func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := s.service.ListChallenges(r.Context(), playerID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":      len(challenges),
		"challenges": challenges,
	})
}

func (s *Server) handleAcceptChallenge(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]

	match, err := s.service.AcceptChallenge(r.Context(), matchID, playerID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.notify(matchID)
	respondJSON(w, http.StatusOK, match)
}

func (s *Server) handleDeclineChallenge(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]

	match, err := s.service.DeclineChallenge(r.Context(), matchID, playerID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.notify(matchID)
	respondJSON(w, http.StatusOK, match)
}

// Play Handlers

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]

	var req struct {
		Move json.RawMessage `json:"move"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Move) == 0 || string(req.Move) == "null" {
		respondError(w, http.StatusBadRequest, "move is required")
		return
	}

	result, err := s.service.MakeMove(r.Context(), matchID, playerID(r), req.Move)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.notify(matchID)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleResign(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]

	result, err := s.service.Resign(r.Context(), matchID, playerID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.notify(matchID)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetMoveHistory(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	matchID := query.Get("match")
	if matchID == "" {
		respondError(w, http.StatusBadRequest, "match parameter required")
		return
	}
	player := query.Get("player")

	// Verify match exists and the player may watch it
	if _, err := s.service.GetMatch(r.Context(), matchID, player); err != nil {
		respondServiceError(w, err)
		return
	}

	s.hub.ServeWS(w, r, matchID, player)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
