package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/readrhq/readr/internal/store"
	"github.com/readrhq/readr/internal/window"
)

// Server is the JSON API over the edition and session surface.
type Server struct {
	db    *store.DB
	ready *window.Readiness
	now   func() time.Time
	mux   *http.ServeMux
}

// New creates a new Server. now may be nil to use the wall clock.
func New(db *store.DB, ready *window.Readiness, now func() time.Time) *Server {
	if now == nil {
		now = time.Now
	}
	s := &Server{db: db, ready: ready, now: now, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/edition/current", s.handleCurrentEdition)
	s.mux.HandleFunc("/session/current", s.handleCurrentSession)
	s.mux.HandleFunc("/session/complete-today", s.handleCompleteToday)
	s.mux.HandleFunc("/session/complete-extended", s.handleCompleteExtended)
}

type cardResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type editionResponse struct {
	Window string         `json:"window"`
	Cards  []cardResponse `json:"cards"`
}

type sessionResponse struct {
	Window            string `json:"window"`
	CompletedToday    bool   `json:"completedToday"`
	CompletedExtended bool   `json:"completedExtended"`
}

type windowBody struct {
	Window string `json:"window"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCurrentEdition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	label := window.CurrentLabel(s.now())
	if err := s.ready.EnsureWindowReady(r.Context(), label); err != nil {
		log.Printf("ensure window ready for %s: %v", label, err)
	}

	ed, err := s.db.GetEditionByLabel(label)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if ed == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "edition not ready"})
		return
	}

	resp := editionResponse{Window: ed.WindowLabel, Cards: []cardResponse{}}
	for _, c := range ed.Cards {
		card := cardResponse{ID: c.CardID, Type: string(c.Type)}
		switch {
		case c.Home != nil:
			card.Payload = c.Home
		case c.News != nil:
			card.Payload = c.News
		}
		resp.Cards = append(resp.Cards, card)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.respondSession(w, r, window.CurrentLabel(s.now()), nil)
}

func (s *Server) handleCompleteToday(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.respondSession(w, r, s.requestLabel(r), s.db.MarkSessionCompletedToday)
}

func (s *Server) handleCompleteExtended(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.respondSession(w, r, s.requestLabel(r), s.db.MarkSessionCompletedExtended)
}

// requestLabel reads an optional window override from the body, falling
// back to the current clock window.
func (s *Server) requestLabel(r *http.Request) string {
	var body windowBody
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	if body.Window != "" {
		return body.Window
	}
	return window.CurrentLabel(s.now())
}

// respondSession ensures the window is ready, applies the optional mark
// operation, and returns the session state.
func (s *Server) respondSession(w http.ResponseWriter, r *http.Request, label string, mark func(string) error) {
	if err := s.ready.EnsureWindowReady(r.Context(), label); err != nil {
		log.Printf("ensure window ready for %s: %v", label, err)
	}

	if _, err := s.db.GetOrCreateSession(label); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if mark != nil {
		if err := mark(label); err != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}

	sess, err := s.db.GetSession(label)
	if err != nil || sess == nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Window:            sess.WindowLabel,
		CompletedToday:    sess.CompletedToday,
		CompletedExtended: sess.CompletedExtended,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

// Serve starts the HTTP server on the given port.
func Serve(db *store.DB, ready *window.Readiness, port int) error {
	srv := New(db, ready, nil)
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
