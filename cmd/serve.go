package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadmagnet/leadmagnet-cli/internal/crm"
	"github.com/leadmagnet/leadmagnet-cli/internal/export"
	"github.com/leadmagnet/leadmagnet-cli/internal/sector"
	"github.com/leadmagnet/leadmagnet-cli/internal/session"
	sfpkg "github.com/leadmagnet/leadmagnet-cli/pkg/salesforce"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sess, err := newSession()
		if err != nil {
			return err
		}

		sfClient, err := initSalesforce()
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(sess, sfClient),
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

// newRouter builds the dashboard API. Every user-facing control maps to one
// endpoint; session state lives in memory for the life of the process.
func newRouter(sess *session.Session, sfClient sfpkg.Client) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/sectors", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"sectors": sector.List(),
				"default": sector.Default(),
			})
		})

		r.Get("/state", func(w http.ResponseWriter, _ *http.Request) {
			phase, progress := sess.Phase()
			writeJSON(w, http.StatusOK, map[string]any{
				"phase":      phase,
				"progress":   progress,
				"candidates": sess.Candidates(),
				"links":      sess.Links(),
			})
		})

		r.Get("/leads", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"leads": sess.Leads()})
		})

		r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, sess.Stats())
		})

		r.Post("/search", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Query    string `json:"query"`
				Location string `json:"location"`
				Sector   string `json:"sector"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if body.Sector == "" {
				body.Sector = sector.Default()
			}
			if !sector.Valid(body.Sector) {
				writeError(w, http.StatusBadRequest, "unknown sector")
				return
			}

			found, err := sess.Search(req.Context(), body.Query, body.Location, body.Sector)
			if err != nil {
				writeSessionError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"found": found,
				"links": sess.Links(),
			})
		})

		r.Post("/search/more", func(w http.ResponseWriter, req *http.Request) {
			found, err := sess.FindMore(req.Context())
			if eris.Is(err, session.ErrExhausted) {
				writeJSON(w, http.StatusOK, map[string]any{
					"found":     0,
					"exhausted": true,
				})
				return
			}
			if err != nil {
				writeSessionError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"found":     found,
				"exhausted": false,
			})
		})

		r.Post("/commit", func(w http.ResponseWriter, req *http.Request) {
			result, err := sess.Commit(req.Context())
			if err != nil {
				writeSessionError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, result)
		})

		r.Delete("/leads", func(w http.ResponseWriter, _ *http.Request) {
			sess.Clear()
			w.WriteHeader(http.StatusNoContent)
		})

		r.Get("/export/csv", func(w http.ResponseWriter, _ *http.Request) {
			data, err := export.CSV(sess.Leads())
			if eris.Is(err, export.ErrNoLeads) {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			name := export.Filename(time.Now())
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
			w.Write(data)
		})

		r.Get("/export/xlsx", func(w http.ResponseWriter, _ *http.Request) {
			data, err := export.XLSX(sess.Leads())
			if eris.Is(err, export.ErrNoLeads) {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			name := export.XLSXFilename(time.Now())
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
			w.Write(data)
		})

		r.Post("/crm/push", func(w http.ResponseWriter, req *http.Request) {
			if sfClient == nil {
				writeError(w, http.StatusServiceUnavailable, "salesforce is not configured")
				return
			}
			result, err := crm.Push(req.Context(), sfClient, sess.Leads())
			if err != nil {
				writeError(w, http.StatusBadGateway, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, result)
		})
	})

	return r
}

// writeSessionError maps session sentinels onto HTTP statuses. Anything
// else is a remote boundary failure.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, session.ErrMissingQuery), eris.Is(err, session.ErrNoCandidates):
		writeError(w, http.StatusBadRequest, err.Error())
	case eris.Is(err, session.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	default:
		zap.L().Error("remote call failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
