// Package server exposes the task store and document pipeline over HTTP.
//
// The API serves Markdown documents as the exchange format: GET returns the
// canonical rendering of a project, PUT submits an edited document through
// the reconcile pipeline. A websocket endpoint broadcasts change events to
// connected clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"

	"github.com/tndhk/No26-todo-md/internal/store"
	"github.com/tndhk/No26-todo-md/internal/syncer"
	"github.com/tndhk/No26-todo-md/internal/task"
)

// maxDocumentSize bounds a submitted document body.
const maxDocumentSize = 1 << 20

// Server is the todomd HTTP server.
type Server struct {
	addr     string
	store    store.Store
	syncer   *syncer.Syncer
	hub      *Hub
	logger   *log.Logger
	listener net.Listener
	server   *http.Server
}

// New creates a server. The hub is registered as the syncer's notifier so
// every applied change reaches websocket clients.
func New(addr string, st store.Store, sy *syncer.Syncer, logger *log.Logger) *Server {
	hub := NewHub(logger)
	sy.SetNotifier(hub)

	return &Server{
		addr:   addr,
		store:  st,
		syncer: sy,
		hub:    hub,
		logger: logger,
	}
}

// Start begins listening and serving. Non-blocking; use Stop to shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/projects", s.handleCreateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", s.handleDeleteProject)
	mux.HandleFunc("GET /api/projects/{id}/document", s.handleGetDocument)
	mux.HandleFunc("PUT /api/projects/{id}/document", s.handlePutDocument)
	mux.HandleFunc("POST /api/projects/{id}/tasks/{taskID}/complete", s.handleCompleteTask)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	s.server = &http.Server{
		Handler:      s.logRequests(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.hub.Start()

	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "err", err)
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// logRequests logs one line per request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if projects == nil {
		projects = []*task.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}

	project, err := s.store.CreateProject(r.Context(), req.Title)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProject(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.syncer.RenderProject(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = io.WriteString(w, doc)
}

func (s *Server) handlePutDocument(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentSize))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("document too large"))
		return
	}

	result, err := s.syncer.SubmitDocument(r.Context(), r.PathValue("id"), string(body))
	if err != nil {
		var docErr *syncer.DocumentError
		if errors.As(err, &docErr) {
			lines := make([]map[string]any, len(docErr.Errors))
			for i, ve := range docErr.Errors {
				lines[i] = map[string]any{"line": ve.Line, "message": ve.Msg}
			}
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  "validation failed",
				"detail": lines,
			})
			return
		}
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	next, err := s.syncer.CompleteTask(r.Context(), r.PathValue("id"), r.PathValue("taskID"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := map[string]any{"completed": true}
	if next != nil {
		resp["next"] = next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	s.hub.addClient(conn)
	go s.hub.readLoop(conn)
}

// writeError maps store errors to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	s.logger.Error("request failed", "err", err)
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
