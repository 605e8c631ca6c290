// ingestd polls a mailbox for assignee replies to vulnerability report
// notifications and harvests them into feedback records.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/nhle/vrs-ingest/internal/ingest"
	"github.com/nhle/vrs-ingest/internal/mailbox"
	"github.com/nhle/vrs-ingest/internal/model"
	"github.com/nhle/vrs-ingest/internal/sched"
	"github.com/nhle/vrs-ingest/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := model.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if !cfg.HasCredentials() {
		slog.Warn("IMAP credentials not configured; scans will fail until EMAIL_IMAP_HOST/USER/PASS are set")
	}

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to open store", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("Failed to close store", "error", closeErr)
		}
	}()
	slog.Info("Store opened", "path", cfg.DBPath)

	mb := mailbox.NewClient(
		cfg.IMAPHost, cfg.IMAPPort, cfg.IMAPUser, cfg.IMAPPass,
		cfg.IMAPMailbox, cfg.SocketTimeout,
	)
	scanner := ingest.NewScanner(st, ingest.DialFunc(
		func(ctx context.Context) (ingest.MailboxSession, error) {
			return mb.Connect(ctx)
		},
	), cfg, logger)

	runner := sched.New(scanner, cfg.ScanInterval, cfg.IncludeSeen, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner.Start(ctx)
	defer runner.Stop()
	slog.Info("Ingest scheduler started",
		"interval", cfg.ScanInterval.String(), "include_seen", cfg.IncludeSeen)

	router := chi.NewRouter()
	router.Use(chiMiddleware.Recoverer)

	router.Get("/ingest/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ingest_status": runner.GetStatus(),
		})
	})

	router.Post("/ingest/trigger", func(w http.ResponseWriter, r *http.Request) {
		includeSeen := r.URL.Query().Get("include_seen") == "1" ||
			r.URL.Query().Get("include_seen") == "true"

		inserted, err := runner.TriggerNow(r.Context(), includeSeen)
		if errors.Is(err, sched.ErrRunActive) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"message": "an ingestion run is already active",
			})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"message": "Ingest trigger failed", "error": err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"inserted": inserted})
	})

	router.Get("/reports/{rid}/feedback", func(w http.ResponseWriter, r *http.Request) {
		rid := chi.URLParam(r, "rid")
		if ingest.ReportToken(rid) != rid {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"message": "Invalid report id", "provided": rid,
			})
			return
		}
		feedback, err := st.FeedbackForReport(r.Context(), rid)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"message": "Failed to load feedback", "error": err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"feedback": feedback})
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP surface listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
