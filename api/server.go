package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/wiemBe/RoboMap/internal/monitoring"
	"github.com/wiemBe/RoboMap/nav/engine"
	"github.com/wiemBe/RoboMap/nav/grid"
	"github.com/wiemBe/RoboMap/nav/journal"
	"github.com/wiemBe/RoboMap/nav/planner"
	"github.com/wiemBe/RoboMap/nav/service"
	"github.com/wiemBe/RoboMap/nav/targets"
	"github.com/wiemBe/RoboMap/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	nav    service.Navigator
	board  *targets.Board
	hub    *websocket.Hub
	mcp    http.Handler
	router *mux.Router
}

// NewServer creates a new API server. board, hub and mcpHandler are
// optional; their routes are only registered when set.
func NewServer(nav service.Navigator, board *targets.Board, hub *websocket.Hub, mcpHandler http.Handler) *Server {
	s := &Server{
		nav:    nav,
		board:  board,
		hub:    hub,
		mcp:    mcpHandler,
		router: mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/status", s.handleStatus).Methods("GET")

	// Navigation
	api.HandleFunc("/navigation/start", s.handleStart).Methods("POST")
	api.HandleFunc("/navigation/stop", s.handleStop).Methods("POST")
	api.HandleFunc("/agent/move", s.handleMove).Methods("POST")

	// Map
	api.HandleFunc("/grid", s.handleGrid).Methods("GET")
	api.HandleFunc("/grid/cells/{row:-?[0-9]+}/{col:-?[0-9]+}", s.handleCell).Methods("GET")
	api.HandleFunc("/pois", s.handlePOIs).Methods("GET")
	api.HandleFunc("/route", s.handleRoute).Methods("GET")

	api.HandleFunc("/history", s.handleHistory).Methods("GET")

	// Dispatch board, also at the path the robot firmware polls
	if s.board != nil {
		api.Handle("/dispatch", s.board)
		s.router.Handle("/available", s.board)
	}

	if s.hub != nil {
		s.router.HandleFunc("/ws", s.hub.ServeWS)
	}
	if s.mcp != nil {
		s.router.Handle("/mcp", s.mcp)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondErr maps domain errors onto status codes
func respondErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotRunning):
		status = http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrInvalidIntent), errors.Is(err, grid.ErrOutOfBounds):
		status = http.StatusBadRequest
	case errors.Is(err, grid.ErrBlocked):
		status = http.StatusConflict
	case errors.Is(err, planner.ErrUnreachable), errors.Is(err, grid.ErrUnknownPOI):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	respondError(w, status, err.Error())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"running": s.nav.Status().Running,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.nav.Status())
}

// Navigation Handlers

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	sig, err := s.nav.Start(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}

	status := s.nav.Status()
	monitoring.Logf("[NAV] start signal=%s target=%s agent=%s remaining=%d",
		sig, status.Target, status.Agent, status.Remaining())

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"signal": sig,
		"status": status,
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	sig, err := s.nav.Stop(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}

	status := s.nav.Status()
	monitoring.Logf("[NAV] stop signal=%s agent=%s", sig, status.Agent)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"signal": sig,
		"status": status,
	})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	intent, err := engine.ParseIntent(req.Direction)
	if err != nil {
		respondErr(w, err)
		return
	}

	from := s.nav.Status().Agent
	if err := s.nav.Nudge(r.Context(), intent); err != nil {
		monitoring.Logf("[MOVE] %s BLOCKED from=%s err=%v", intent, from, err)
		respondErr(w, err)
		return
	}

	status := s.nav.Status()
	monitoring.Logf("[MOVE] %s %s->%s mode=%s", intent, from, status.Agent, status.Mode)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"intent": intent,
		"from":   from,
		"to":     status.Agent,
		"status": status,
	})
}

// Map Handlers

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	view, err := s.nav.Grid(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleCell(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	row, _ := strconv.Atoi(vars["row"])
	col, _ := strconv.Atoi(vars["col"])

	info, err := s.nav.Cell(r.Context(), grid.Cell{Row: row, Col: col})
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handlePOIs(w http.ResponseWriter, r *http.Request) {
	pois, err := s.nav.POIs(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(pois),
		"pois":  pois,
	})
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	from := s.nav.Status().Agent
	if v := query.Get("from"); v != "" {
		cell, err := s.resolveCell(r.Context(), v)
		if err != nil {
			respondErr(w, err)
			return
		}
		from = cell
	}

	toParam := query.Get("to")
	if toParam == "" {
		respondError(w, http.StatusBadRequest, "to parameter required")
		return
	}
	to, err := s.resolveCell(r.Context(), toParam)
	if err != nil {
		respondErr(w, err)
		return
	}

	for _, end := range []struct {
		name string
		cell grid.Cell
	}{{"from", from}, {"to", to}} {
		if err := s.checkOpen(r.Context(), end.name, end.cell); err != nil {
			respondErr(w, err)
			return
		}
	}

	path, err := s.nav.Plan(r.Context(), from, to)
	if err != nil {
		respondErr(w, err)
		return
	}

	intents := engine.PathIntents(path)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"from":    from,
		"to":      to,
		"steps":   path.Steps(),
		"path":    path,
		"intents": intents,
	})
}

// checkOpen rejects route endpoints that are walls or off the grid
func (s *Server) checkOpen(ctx context.Context, name string, cell grid.Cell) error {
	info, err := s.nav.Cell(ctx, cell)
	if err != nil {
		return err
	}
	if info.State == grid.Wall {
		return fmt.Errorf("route %s %s: %w", name, cell, grid.ErrBlocked)
	}
	return nil
}

// resolveCell parses "row,col" or looks up a POI id
func (s *Server) resolveCell(ctx context.Context, v string) (grid.Cell, error) {
	if parts := strings.Split(v, ","); len(parts) == 2 {
		row, errR := strconv.Atoi(strings.TrimSpace(parts[0]))
		col, errC := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errR == nil && errC == nil {
			return grid.Cell{Row: row, Col: col}, nil
		}
	}

	pois, err := s.nav.POIs(ctx)
	if err != nil {
		return grid.Cell{}, err
	}
	for _, poi := range pois {
		if poi.ID == v {
			return poi.Cell, nil
		}
	}
	return grid.Cell{}, fmt.Errorf("%w: %q", grid.ErrUnknownPOI, v)
}

// History Handler

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := journal.Query{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			q.Page = p
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			q.Limit = l
		}
	}

	if order := query.Get("order"); order == "asc" || order == "desc" {
		q.Order = order
	}
	q.TripID = query.Get("trip")
	q.Kind = query.Get("kind")

	page, err := s.nav.History(r.Context(), q)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}
