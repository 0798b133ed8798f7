// Package api serves the results dashboard: the HTML report, the raw
// artifacts and a small JSON API with live updates over SSE.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/Motphys/phys-bench/internal/results"
)

// Loader fetches the current result set
type Loader interface {
	Load() ([]results.Entry, error)
}

// DirLoader loads results from an output directory on every request
type DirLoader struct {
	Dir string
}

// Load reads the directory's result sidecars
func (l DirLoader) Load() ([]results.Entry, error) {
	return results.Load(l.Dir)
}

// Server is the HTTP dashboard server
type Server struct {
	loader   Loader
	videoDir string
	addr     string
	mux      *http.ServeMux
	sseHub   *SSEHub
}

// NewServer creates a new dashboard server
func NewServer(loader Loader, videoDir, addr string) *Server {
	s := &Server{
		loader:   loader,
		videoDir: videoDir,
		addr:     addr,
		mux:      http.NewServeMux(),
		sseHub:   NewSSEHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/results", s.listResultsHandler())
	s.mux.HandleFunc("/api/summary", s.summaryHandler())
	s.mux.HandleFunc("/api/events", s.sseHandler())

	// Raw artifacts, linked from the report.
	s.mux.Handle("/videos/", http.StripPrefix("/videos/", http.FileServer(http.Dir(s.videoDir))))

	// The report itself.
	s.mux.HandleFunc("/", s.reportHandler())
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go s.sseHub.Run()
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Broadcast sends an event to all SSE clients
func (s *Server) Broadcast(event SSEEvent) {
	s.sseHub.Broadcast(event)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
