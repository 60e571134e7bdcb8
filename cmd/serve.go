package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kwparking/parksafe/internal/engine"
	"github.com/kwparking/parksafe/internal/model"
	"github.com/kwparking/parksafe/pkg/geocode"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return eris.Wrap(err, "init")
		}
		defer e.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(e.Engine, promhttp.HandlerFor(e.Reg, promhttp.HandlerOpts{})),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the API routes over an engine. Split out so handler tests
// can drive it without a listener.
func newRouter(eng *engine.Engine, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/geocode/status", func(w http.ResponseWriter, req *http.Request) {
		status, err := eng.Stats(req.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	})

	r.Post("/api/geocode/process", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ForceRefresh bool `json:"force_refresh"`
		}
		if req.Body != nil && req.ContentLength != 0 {
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
		}

		report, err := eng.RunGeocoding(req.Context(), body.ForceRefresh)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	})

	r.Post("/api/geocode/single", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Address  string `json:"address"`
			CityHint string `json:"city_hint"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		coord, err := eng.GeocodeSingle(req.Context(), body.Address, body.CityHint)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, coord)
	})

	r.Get("/api/markers", func(w http.ResponseWriter, req *http.Request) {
		markers, unresolved, err := eng.Markers(req.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"markers":    markers,
			"unresolved": unresolved,
		})
	})

	r.Method(http.MethodGet, "/metrics", metricsHandler)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine failures onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var (
		inputErr   *model.InputError
		configErr  *model.ConfigurationError
		resolveErr *geocode.ResolutionFailure
	)
	switch {
	case errors.As(err, &inputErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &configErr):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	case errors.As(err, &resolveErr):
		status := http.StatusBadGateway
		switch resolveErr.Kind {
		case geocode.FailureNotFound:
			status = http.StatusNotFound
		case geocode.FailureInvalidRequest:
			status = http.StatusBadRequest
		case geocode.FailureQuotaExceeded:
			status = http.StatusTooManyRequests
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
