package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rentbench/fmr-cli/internal/calc"
	"github.com/rentbench/fmr-cli/internal/lookup"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FMR lookup and calculator API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initLookupEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the HTTP API over a lookup environment.
func newRouter(env *lookupEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/fmr/zip/{zip}", func(w http.ResponseWriter, req *http.Request) {
			res, err := env.svc.ByZip(req.Context(), chi.URLParam(req, "zip"))
			if err != nil {
				writeLookupError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
		})

		r.Get("/fmr/zip/{zip}/history", func(w http.ResponseWriter, req *http.Request) {
			res, err := env.svc.ByZip(req.Context(), chi.URLParam(req, "zip"))
			if err != nil {
				writeLookupError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"zip":     res.Query,
				"source":  res.Source,
				"history": res.History,
			})
		})

		r.Get("/fmr/county/{fips}", func(w http.ResponseWriter, req *http.Request) {
			res, err := env.svc.ByCounty(req.Context(), chi.URLParam(req, "fips"))
			if err != nil {
				writeLookupError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
		})

		r.Get("/fmr/county", func(w http.ResponseWriter, req *http.Request) {
			name := req.URL.Query().Get("name")
			state := req.URL.Query().Get("state")
			if name == "" || state == "" {
				writeError(w, http.StatusBadRequest, "name and state query parameters are required")
				return
			}
			res, err := env.svc.ByCountyName(req.Context(), name, state)
			if err != nil {
				writeLookupError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
		})

		r.Get("/fmr/city", func(w http.ResponseWriter, req *http.Request) {
			name := req.URL.Query().Get("name")
			state := req.URL.Query().Get("state")
			if name == "" || state == "" {
				writeError(w, http.StatusBadRequest, "name and state query parameters are required")
				return
			}
			res, err := env.svc.ByCity(req.Context(), name, state)
			if err != nil {
				writeLookupError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
		})

		r.Get("/fmr/address", func(w http.ResponseWriter, req *http.Request) {
			q := strings.TrimSpace(req.URL.Query().Get("q"))
			if q == "" {
				writeError(w, http.StatusBadRequest, "q query parameter is required")
				return
			}
			res, err := env.svc.ByAddress(req.Context(), q)
			if err != nil {
				writeLookupError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
		})

		r.Post("/calc/cashflow", calcHandler(env, calc.ModeCashFlow))
		r.Post("/calc/maxprice", calcHandler(env, calc.ModeMaxPrice))
		r.Post("/calc/idealprice", calcHandler(env, calc.ModeIdealPrice))
	})

	return r
}

func calcHandler(env *lookupEnv, mode calc.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var sc scenario
		if err := json.NewDecoder(req.Body).Decode(&sc); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := runScenario(req.Context(), env, sc, mode)
		switch {
		case errors.Is(err, calc.ErrInfeasible):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"feasible": false,
				"error":    "no feasible purchase price for the requested target",
			})
		case errors.Is(err, lookup.ErrNotFound):
			writeError(w, http.StatusNotFound, "no rent data for the requested zip")
		case err != nil:
			// Calculator validation failures are client errors.
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeJSON(w, http.StatusOK, result)
		}
	}
}

func writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lookup.ErrNotFound):
		writeError(w, http.StatusNotFound, "no rent data for query")
	case errors.Is(err, lookup.ErrNoGeocoder):
		writeError(w, http.StatusServiceUnavailable, "geocoding is not configured")
	default:
		zap.L().Error("lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
