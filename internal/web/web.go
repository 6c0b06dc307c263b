package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"roomvac/internal/config"
	"roomvac/internal/export"
	"roomvac/internal/grid"
	appLog "roomvac/internal/log"
	"roomvac/internal/render"
	"roomvac/internal/report"
)

// ReportProvider returns the report to serve. *report.Service satisfies it.
type ReportProvider interface {
	Current(ctx context.Context) (report.Report, error)
}

// Server exposes the latest vacancy report over HTTP.
type Server struct {
	cfg     *config.Config
	reports ReportProvider
	mux     *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, reports ReportProvider) *Server {
	s := &Server{
		cfg:     cfg,
		reports: reports,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLog.Error("http shutdown error", err)
		}
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth rather than locking everyone out.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="roomvac", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/vacancy", s.handleVacancy)
	s.mux.HandleFunc("GET /vacancy.txt", s.handleTable)
	s.mux.HandleFunc("GET /vacancy.ics", s.handleCalendar)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// vacancyResponse is the JSON response shape for /api/vacancy.
type vacancyResponse struct {
	RangeStart  time.Time   `json:"range_start"`
	RangeEnd    time.Time   `json:"range_end"`
	TimeZone    string      `json:"timezone"`
	GeneratedAt time.Time   `json:"generated_at"`
	EventCount  int         `json:"event_count"`
	Hours       []time.Time `json:"hours"`
	Rooms       []roomDTO   `json:"rooms"`
}

// roomDTO is one row of the matrix plus its vacant runs.
type roomDTO struct {
	ID     string   `json:"id"`
	Vacant []bool   `json:"vacant"`
	Runs   []runDTO `json:"runs"`
}

type runDTO struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (s *Server) handleVacancy(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.current(w, r)
	if !ok {
		return
	}

	runs := grid.VacantRuns(rep.Matrix, rep.Index)
	rooms := make([]roomDTO, 0, len(rep.Rooms))
	for i, id := range rep.Rooms {
		dto := roomDTO{ID: id, Vacant: rep.Matrix[i], Runs: make([]runDTO, 0, len(runs[i]))}
		for _, run := range runs[i] {
			dto.Runs = append(dto.Runs, runDTO{Start: run.Start, End: run.End})
		}
		rooms = append(rooms, dto)
	}

	writeJSON(w, http.StatusOK, vacancyResponse{
		RangeStart:  rep.RangeStart,
		RangeEnd:    rep.RangeEnd,
		TimeZone:    rep.Location.String(),
		GeneratedAt: rep.GeneratedAt,
		EventCount:  rep.EventCount,
		Hours:       rep.Hours,
		Rooms:       rooms,
	})
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.current(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := render.WriteTable(w, rep.Hours, rep.Rooms, rep.Matrix, rep.Location); err != nil {
		appLog.Error("failed to write table response", err)
	}
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.current(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(export.Calendar(rep)))
}

// current fetches the report, writing a 502 when none can be produced.
func (s *Server) current(w http.ResponseWriter, r *http.Request) (report.Report, bool) {
	rep, err := s.reports.Current(r.Context())
	if err != nil {
		appLog.Error("no report available", err, "path", r.URL.Path)
		writeError(w, http.StatusBadGateway, "vacancy report unavailable")
		return report.Report{}, false
	}
	return rep, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
