package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kioskgrid/internal/config"
	"kioskgrid/internal/kiosk"
	appLog "kioskgrid/internal/log"
	"kioskgrid/internal/model"
	"kioskgrid/internal/schedule"
)

// Screen is what the HTTP layer needs from kiosk.Screen.
type Screen interface {
	View() kiosk.View
	BookingsAt(slot schedule.Slot) []model.BookingRecord
	Refresh(ctx context.Context) (schedule.ProjectStats, error)
}

// Server exposes the kiosk grid as JSON for the display front end.
type Server struct {
	cfg    *config.Config
	screen Screen
	router *chi.Mux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, screen Screen) *Server {
	s := &Server{
		cfg:    cfg,
		screen: screen,
		router: chi.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password means disabled.
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
			w.Header().Set("WWW-Authenticate", `Basic realm="kioskgrid", charset="UTF-8"`)
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
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/grid", s.handleGrid)
		r.Get("/current", s.handleCurrent)
		r.Get("/cells/{row}/{col}", s.handleCell)
		r.Post("/refresh", s.handleRefresh)
	})
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// dayDTO is one column header.
type dayDTO struct {
	Column  int    `json:"column"`
	Label   string `json:"label"`
	Date    string `json:"date"`
	Display string `json:"display"`
	Today   bool   `json:"today"`
}

type statsDTO struct {
	Total       int `json:"total"`
	Projected   int `json:"projected"`
	Unconfirmed int `json:"unconfirmed"`
	Malformed   int `json:"malformed"`
	OutOfWindow int `json:"out_of_window"`
	Collisions  int `json:"collisions"`
}

// gridResponse is the JSON response shape for /api/grid.
type gridResponse struct {
	Timezone    string            `json:"timezone"`
	Now         time.Time         `json:"now"`
	Anchor      string            `json:"anchor"`
	Hours       []int             `json:"hours"`
	Days        []dayDTO          `json:"days"`
	Cells       [][]schedule.Cell `json:"cells"`
	Current     *schedule.Slot    `json:"current"`
	LastRefresh *time.Time        `json:"last_refresh"`
	Stats       statsDTO          `json:"stats"`
}

// handleGrid returns the full grid, its axes and the current slot.
//
// GET /api/grid
func (s *Server) handleGrid(w http.ResponseWriter, _ *http.Request) {
	v := s.screen.View()

	hours := make([]int, len(v.Grid.Cells))
	for row := range hours {
		hours[row] = v.Grid.Hour(row)
	}

	days := make([]dayDTO, 0, len(v.Grid.Days))
	for _, d := range v.Grid.Days {
		days = append(days, dayDTO{
			Column:  d.Column,
			Label:   d.Label,
			Date:    d.Date.String(),
			Display: d.DisplayDate(),
			Today:   d.Column == 0,
		})
	}

	resp := gridResponse{
		Timezone: v.Location.String(),
		Now:      v.Now,
		Anchor:   v.Grid.Anchor.String(),
		Hours:    hours,
		Days:     days,
		Cells:    v.Grid.Cells,
		Current:  v.Current,
		Stats: statsDTO{
			Total:       v.Stats.Total,
			Projected:   v.Stats.Projected,
			Unconfirmed: v.Stats.Unconfirmed,
			Malformed:   v.Stats.Malformed,
			OutOfWindow: v.Stats.OutOfWindow,
			Collisions:  v.Stats.Collisions,
		},
	}
	if !v.LastRefresh.IsZero() {
		lr := v.LastRefresh
		resp.LastRefresh = &lr
	}
	writeJSON(w, http.StatusOK, resp)
}

type currentResponse struct {
	Now     time.Time      `json:"now"`
	Current *schedule.Slot `json:"current"`
	Hour    *int           `json:"hour,omitempty"`
	Day     string         `json:"day,omitempty"`
	Cell    *schedule.Cell `json:"cell,omitempty"`
}

// handleCurrent returns the slot containing now, or "current": null.
//
// GET /api/current
func (s *Server) handleCurrent(w http.ResponseWriter, _ *http.Request) {
	v := s.screen.View()
	resp := currentResponse{Now: v.Now, Current: v.Current}
	if v.Current != nil {
		hour := v.Grid.Hour(v.Current.Row)
		cell := v.Grid.Cells[v.Current.Row][v.Current.Col]
		resp.Hour = &hour
		resp.Day = v.Grid.Days[v.Current.Col].Date.String()
		resp.Cell = &cell
	}
	writeJSON(w, http.StatusOK, resp)
}

// bookingDTO is a booking shown on the detail view of a cell.
type bookingDTO struct {
	Start        time.Time `json:"start"`
	Title        string    `json:"title,omitempty"`
	Organizer    string    `json:"organizer,omitempty"`
	RendezvousID string    `json:"rendezvous_id,omitempty"`
	Source       string    `json:"source,omitempty"`
}

type cellResponse struct {
	schedule.Slot
	schedule.Cell
	Hour     int          `json:"hour"`
	Day      string       `json:"day"`
	Current  bool         `json:"current"`
	Bookings []bookingDTO `json:"bookings"`
}

// handleCell returns one cell with the bookings that occupy it.
//
// GET /api/cells/{row}/{col}
func (s *Server) handleCell(w http.ResponseWriter, r *http.Request) {
	row, errRow := strconv.Atoi(chi.URLParam(r, "row"))
	col, errCol := strconv.Atoi(chi.URLParam(r, "col"))
	if errRow != nil || errCol != nil {
		writeError(w, http.StatusBadRequest, "row and col must be integers")
		return
	}

	v := s.screen.View()
	if row < 0 || row >= len(v.Grid.Cells) || col < 0 || col >= len(v.Grid.Days) {
		writeError(w, http.StatusNotFound, "cell out of range")
		return
	}

	slot := schedule.Slot{Row: row, Col: col}
	records := s.screen.BookingsAt(slot)
	bookings := make([]bookingDTO, 0, len(records))
	for _, b := range records {
		bookings = append(bookings, bookingDTO{
			Start:        b.Start.In(v.Location),
			Title:        b.Title,
			Organizer:    b.Organizer,
			RendezvousID: b.RendezvousID,
			Source:       b.SourceID,
		})
	}

	writeJSON(w, http.StatusOK, cellResponse{
		Slot:     slot,
		Cell:     v.Grid.Cells[row][col],
		Hour:     v.Grid.Hour(row),
		Day:      v.Grid.Days[col].Date.String(),
		Current:  v.Current != nil && *v.Current == slot,
		Bookings: bookings,
	})
}

// handleRefresh fetches the feed now instead of waiting for the schedule.
//
// POST /api/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	stats, err := s.screen.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "feed refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, statsDTO{
		Total:       stats.Total,
		Projected:   stats.Projected,
		Unconfirmed: stats.Unconfirmed,
		Malformed:   stats.Malformed,
		OutOfWindow: stats.OutOfWindow,
		Collisions:  stats.Collisions,
	})
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
