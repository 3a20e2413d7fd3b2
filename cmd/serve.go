package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/camden-git/attendancesys/database"
	"github.com/camden-git/attendancesys/gallery"
	"github.com/camden-git/attendancesys/handlers"
	"github.com/camden-git/attendancesys/media"
	"github.com/camden-git/attendancesys/media/dnn"
	"github.com/camden-git/attendancesys/realtime"
	"github.com/camden-git/attendancesys/recognition"
	"github.com/camden-git/attendancesys/repository"
	"github.com/camden-git/attendancesys/services"
	"github.com/camden-git/attendancesys/workers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the attendance HTTP API. The gallery is loaded and synced into the
roster before the server accepts requests; a missing or invalid gallery or
face model stops startup.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("port", "", "Port to listen on (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	cfg, log := a.cfg, a.logger

	if port := mustGetString(cmd, "port"); port != "" {
		cfg.Port = port
	}

	g, err := gallery.Load(cfg.GalleryPath)
	if err != nil {
		return fmt.Errorf("failed to load gallery: %w", err)
	}
	if g.Len() == 0 {
		log.Warn("gallery is empty, every face will be Unknown", zap.String("path", cfg.GalleryPath))
	}
	log.Info("gallery loaded", zap.String("path", cfg.GalleryPath), zap.Int("entries", g.Len()), zap.Int("dim", g.Dim()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	studentRepo := repository.NewStudentRepository(a.db)
	attendanceRepo := repository.NewAttendanceRepository(a.db)

	roster := services.NewRosterService(studentRepo, log)
	if _, err := roster.SyncFromGallery(ctx, g); err != nil {
		return fmt.Errorf("failed to sync roster: %w", err)
	}

	extractor, err := dnn.NewExtractor(cfg.FaceDNNNetConfigPath, cfg.FaceDNNNetModelPath, cfg.RecognitionModelPath, cfg.RecognitionModelName, log)
	if err != nil {
		return fmt.Errorf("failed to load face models: %w", err)
	}
	defer extractor.Close()

	matcher := recognition.NewMatcher(g, cfg.MatchTolerance, recognition.DistanceForMetric(cfg.MatchMetric))
	log.Info("matcher ready", zap.String("metric", cfg.MatchMetric), zap.Float64("tolerance", matcher.Tolerance()))

	hub := realtime.NewHub(log)
	go hub.Run(ctx)

	attendanceCfg := services.AttendanceServiceConfig{
		MaxImageDimension: cfg.MaxImageDimension,
		Today:             cfg.Today,
		Events:            hub,
	}

	var captureServer http.HandlerFunc
	if cfg.CaptureEnabled() {
		store, err := media.NewLocalStorage(cfg.CaptureStoragePath)
		if err != nil {
			return fmt.Errorf("failed to initialize capture store: %w", err)
		}
		archiver := workers.NewCaptureArchiver(store, cfg.CaptureQueueSize, cfg.NumCaptureWorkers, log)
		defer archiver.Stop()
		attendanceCfg.Captures = archiver
		captureServer = handlers.CaptureServer(store, log)
	}

	sqlDB, err := a.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	attendance := services.NewAttendanceService(studentRepo, attendanceRepo, matcher, extractor, attendanceCfg, log)
	export := services.NewExportService(sqlDB, database.StatementBuilder(cfg.DatabaseDriver), log)

	if !cfg.AuthEnabled() {
		log.Warn("ADMIN_PASSWORD_HASH not set, corrections and roster edits are unauthenticated")
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Attendance: &handlers.AttendanceHandler{
			Attendance:     attendance,
			Export:         export,
			MaxUploadBytes: cfg.MaxUploadBytes,
			Logger:         log,
		},
		Students:          &handlers.StudentHandler{Roster: roster, Logger: log},
		Hub:               hub.ServeWS,
		Captures:          captureServer,
		DB:                sqlDB,
		AllowedOrigins:    cfg.AllowedOrigins,
		AdminUsername:     cfg.AdminUsername,
		AdminPasswordHash: cfg.AdminPasswordHash,
		RequestTimeout:    60 * time.Second,
		Logger:            log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr), zap.String("database", cfg.DatabaseDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

