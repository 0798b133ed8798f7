package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Motphys/phys-bench/internal/report"
	"github.com/Motphys/phys-bench/internal/results"
)

// ResultResponse is the API response for one result
type ResultResponse struct {
	Engine    string   `json:"engine"`
	Object    string   `json:"object"`
	Task      string   `json:"task"`
	MJX       bool     `json:"mjx"`
	Dt        float64  `json:"dt"`
	Status    string   `json:"status"`
	DropTime  *float64 `json:"drop_time,omitempty"`
	VideoURL  string   `json:"video_url,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// SummaryResponse is the API response for aggregate pass rates
type SummaryResponse struct {
	Total    int                      `json:"total"`
	Passed   int                      `json:"passed"`
	ByEngine map[string]results.Stats `json:"by_engine"`
	ByObject map[string]results.Stats `json:"by_object"`
	ByTask   map[string]results.Stats `json:"by_task"`
	ByDt     map[string]results.Stats `json:"by_dt"`
}

func entryToResponse(e results.Entry) ResultResponse {
	resp := ResultResponse{
		Engine:    e.Engine,
		Object:    string(e.Object),
		Task:      string(e.Task),
		MJX:       e.MJX,
		Dt:        e.Dt,
		Status:    string(e.Status),
		DropTime:  e.DropTime,
		Timestamp: e.Timestamp,
	}
	if e.VideoExists {
		resp.VideoURL = "/videos/" + filepath.Base(e.VideoPath)
	}
	return resp
}

func (s *Server) listResultsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		entries, err := s.loader.Load()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		engine := r.URL.Query().Get("engine")
		resp := make([]ResultResponse, 0, len(entries))
		for _, e := range entries {
			if engine != "" && e.Engine != engine {
				continue
			}
			resp = append(resp, entryToResponse(e))
		}
		writeJSON(w, resp)
	}
}

func (s *Server) summaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		entries, err := s.loader.Load()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		sum := results.Summarize(entries)
		writeJSON(w, SummaryResponse{
			Total:    sum.Overall.Total,
			Passed:   sum.Overall.Passed,
			ByEngine: sum.ByEngine,
			ByObject: sum.ByObject,
			ByTask:   sum.ByTask,
			ByDt:     sum.ByDt,
		})
	}
}

func (s *Server) reportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		entries, err := s.loader.Load()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		// Rewrite video paths onto the /videos/ route so the report's
		// relative links resolve through this server.
		for i := range entries {
			if entries[i].VideoExists {
				entries[i].VideoPath = "/videos/" + filepath.Base(entries[i].VideoPath)
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		var sb strings.Builder
		if err := report.Generate(&sb, entries, ""); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Write([]byte(sb.String()))
	}
}
