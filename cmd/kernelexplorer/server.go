package main

// Server exposes read-only kernel state over a small JSON API, routed
// with chi.

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/valence-kernel/valence/core"
)

type Server struct {
	router     chi.Router
	httpServer *http.Server
	svc        *KernelService
}

func NewServer(addr string, svc *KernelService) *Server {
	s := &Server{router: chi.NewRouter(), svc: svc}
	s.router.Use(requestLogger)
	s.routes()
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	return s
}

func (s *Server) Start() error { return s.httpServer.ListenAndServe() }

func (s *Server) routes() {
	s.router.Get("/api/sessions", s.handleListSessions)
	s.router.Get("/api/sessions/{address}", s.handleSession)
	s.router.Get("/api/allowlist", s.handleAllowlist)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.KnownSessions())
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	addrStr := chi.URLParam(r, "address")
	addr, err := core.ParseAddress(addrStr)
	if err != nil {
		http.Error(w, "bad address", http.StatusBadRequest)
		return
	}
	sess, err := s.svc.Session(addr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	view := struct {
		core.SessionView
		ALT []core.SlotView `json:"alt"`
	}{SessionView: sess.View(), ALT: sess.ALT.Snapshot()}
	writeJSON(w, view)
}

func (s *Server) handleAllowlist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.Allowlist())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}
