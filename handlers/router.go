package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type RouterConfig struct {
	Attendance *AttendanceHandler
	Students   *StudentHandler

	// optional
	Hub      http.HandlerFunc // websocket endpoint
	Captures http.HandlerFunc // archived photo server
	DB       Pinger

	AllowedOrigins    []string
	AdminUsername     string
	AdminPasswordHash string // admin routes are open when empty
	RequestTimeout    time.Duration
	Logger            *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	admin := func(r chi.Router) {
		if cfg.AdminPasswordHash != "" {
			r.Use(BasicAuth(cfg.AdminUsername, cfg.AdminPasswordHash))
		}
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.DB != nil {
			if err := cfg.DB.PingContext(r.Context()); err != nil {
				WriteAPIError(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// the websocket must not sit behind the request timeout
		if cfg.Hub != nil {
			r.Get("/ws", cfg.Hub)
		}

		r.Group(func(r chi.Router) {
			if cfg.RequestTimeout > 0 {
				r.Use(middleware.Timeout(cfg.RequestTimeout))
			}

			r.Post("/mark_attendance", cfg.Attendance.MarkAttendance)
			r.Get("/get_report", cfg.Attendance.GetReport)
			r.Get("/export_csv", cfg.Attendance.ExportCSV)
			r.Get("/export_xlsx", cfg.Attendance.ExportXLSX)
			r.Get("/students", cfg.Students.ListStudents)

			r.Group(func(r chi.Router) {
				admin(r)
				r.Post("/update_attendance", cfg.Attendance.UpdateAttendance)
				r.Post("/students", cfg.Students.CreateStudent)
				r.Put("/students/{student_id}", cfg.Students.UpdateStudent)
				if cfg.Captures != nil {
					r.Get("/captures/*", cfg.Captures)
				}
			})
		})
	})

	return r
}
