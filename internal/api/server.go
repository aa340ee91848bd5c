// Package api exposes the table engine over HTTP and pushes game events to
// players over websockets. It translates transport concerns only; every rule
// decision stays in the engine.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/ayilmaz/rummy-table/internal/domain"
	"github.com/ayilmaz/rummy-table/internal/engine"
	"github.com/ayilmaz/rummy-table/internal/notify"
	"github.com/ayilmaz/rummy-table/internal/persistence"
)

type Server struct {
	engine *engine.Engine
	repo   persistence.Repository
	hub    *notify.Hub
	logger *slog.Logger

	nextGameID atomic.Int64
}

func NewServer(eng *engine.Engine, repo persistence.Repository, hub *notify.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{engine: eng, repo: repo, hub: hub, logger: logger}
	s.nextGameID.Store(time.Now().UnixMilli())
	return s
}

// Router wires every route under /api/v1.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/games", s.handleCreateGame).Methods(http.MethodPost)
	v1.HandleFunc("/games/{gameID}/start", s.handleStartGame).Methods(http.MethodPost)
	v1.HandleFunc("/games/{gameID}/draw", s.handleDraw).Methods(http.MethodPost)
	v1.HandleFunc("/games/{gameID}/discard", s.handleDiscard).Methods(http.MethodPost)
	v1.HandleFunc("/games/{gameID}/turn", s.handleNextTurn).Methods(http.MethodPost)
	v1.HandleFunc("/games/{gameID}/melds", s.handleLayMeld).Methods(http.MethodPost)
	v1.HandleFunc("/games/{gameID}/melds/{meldIndex}/cards", s.handleAddToMeld).Methods(http.MethodPost)
	v1.HandleFunc("/games/{gameID}/melds/{meldIndex}/cards/{cardID}", s.handleMoveToHand).Methods(http.MethodDelete)
	v1.HandleFunc("/games/{gameID}/declare", s.handleDeclareWin).Methods(http.MethodPost)
	v1.HandleFunc("/games/{gameID}/state", s.handleGameState).Methods(http.MethodGet)
	v1.HandleFunc("/games/{gameID}/players/{playerID}/hand", s.handlePlayerHand).Methods(http.MethodGet)
	v1.HandleFunc("/games/{gameID}/ws", s.handleWebsocket).Methods(http.MethodGet)
	return r
}

type CreateGameRequest struct {
	Name       string `json:"name"`
	MaxPlayers uint8  `json:"max_players"`
	CreatedBy  int64  `json:"created_by"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.MaxPlayers == 0 {
		req.MaxPlayers = domain.DefaultMaxPlayers
	}
	if req.MaxPlayers < domain.MinPlayers || req.MaxPlayers > domain.DefaultMaxPlayers {
		writeError(w, http.StatusBadRequest, "max_players out of range")
		return
	}

	record := persistence.GameRecord{
		ID:         s.nextGameID.Add(1),
		Name:       req.Name,
		MaxPlayers: req.MaxPlayers,
		Status:     domain.GameStatusWaiting,
		CreatedBy:  req.CreatedBy,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateGame(record); err != nil {
		s.logger.Error("create game", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create game")
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

type StartGameRequest struct {
	PlayerIDs []int64 `json:"player_ids"`
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}
	var req StartGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.engine.InitializeGame(gameID, req.PlayerIDs); err != nil {
		s.writeEngineError(w, err)
		return
	}
	snap, err := s.engine.GameState(gameID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type DrawRequest struct {
	PlayerID int64  `json:"player_id"`
	Source   string `json:"source"`
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}
	var req DrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		card domain.Card
		err  error
	)
	switch req.Source {
	case "deck", "":
		card, err = s.engine.DrawFromDeck(gameID, req.PlayerID)
	case "discard":
		card, err = s.engine.DrawFromDiscard(gameID, req.PlayerID)
	default:
		writeError(w, http.StatusBadRequest, "source must be deck or discard")
		return
	}
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.Card{"card": card})
}

type DiscardRequest struct {
	PlayerID int64 `json:"player_id"`
	CardID   int64 `json:"card_id"`
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}
	var req DiscardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.engine.DiscardCard(gameID, req.PlayerID, req.CardID); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

func (s *Server) handleNextTurn(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}
	if err := s.engine.NextTurn(gameID); err != nil {
		s.writeEngineError(w, err)
		return
	}
	snap, err := s.engine.GameState(gameID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type LayMeldRequest struct {
	PlayerID int64   `json:"player_id"`
	CardIDs  []int64 `json:"card_ids"`
}

func (s *Server) handleLayMeld(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}
	var req LayMeldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	verdict, err := s.engine.LayMeld(gameID, req.PlayerID, req.CardIDs)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"kind": verdict.Kind,
		"pure": verdict.Pure,
	})
}

type MeldCardRequest struct {
	PlayerID int64 `json:"player_id"`
	CardID   int64 `json:"card_id"`
}

func (s *Server) handleAddToMeld(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}
	meldIndex, ok := pathInt(w, r, "meldIndex")
	if !ok {
		return
	}
	var req MeldCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.engine.AddToMeld(gameID, req.PlayerID, meldIndex, req.CardID); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "extended"})
}

func (s *Server) handleMoveToHand(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}
	meldIndex, ok := pathInt(w, r, "meldIndex")
	if !ok {
		return
	}
	cardID, ok := pathID(w, r, "cardID")
	if !ok {
		return
	}
	playerID, err := strconv.ParseInt(r.URL.Query().Get("player_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "player_id query parameter is required")
		return
	}
	if err := s.engine.MoveToHand(gameID, playerID, meldIndex, cardID); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "returned"})
}

type DeclareWinRequest struct {
	PlayerID int64 `json:"player_id"`
}

func (s *Server) handleDeclareWin(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}
	var req DeclareWinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.engine.DeclareWin(gameID, req.PlayerID); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"winner_id": req.PlayerID})
}

func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}
	snap, err := s.engine.GameState(gameID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePlayerHand(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}
	playerID, ok := pathID(w, r, "playerID")
	if !ok {
		return
	}
	cards, err := s.engine.PlayerHandCards(gameID, playerID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Card{"cards": cards})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusNotImplemented, "live events are not enabled")
		return
	}
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}
	playerID, err := strconv.ParseInt(r.URL.Query().Get("player_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "player_id query parameter is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "game_id", gameID, "player_id", playerID, "error", err)
		return
	}
	s.hub.Register(gameID, playerID, conn)
	s.logger.Info("player connected", "game_id", gameID, "player_id", playerID)

	// Reads are only consumed to notice the peer going away.
	go func() {
		defer s.hub.Unregister(gameID, playerID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// writeEngineError maps engine error kinds to HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch domain.KindOf(err) {
	case domain.KindInvalidInput, domain.KindRuleViolation, domain.KindInsufficientCards:
		writeError(w, http.StatusBadRequest, err.Error())
	case domain.KindPrecondition:
		writeError(w, http.StatusForbidden, err.Error())
	case domain.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("engine failure", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	value, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return value, true
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	value, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return value, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
