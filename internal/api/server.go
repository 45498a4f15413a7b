// Package api provides the HTTP API for browsing, uploading, moderating,
// and downloading shared empires.
// Everything except static files requires HTTP basic auth; a first login
// registers the account. Moderation endpoints additionally require the
// admin bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/talgya/empire-exchange/internal/accounts"
	"github.com/talgya/empire-exchange/internal/config"
	"github.com/talgya/empire-exchange/internal/modpack"
	"github.com/talgya/empire-exchange/internal/persistence"
)

const authRealm = `basic realm="Empire Exchange -- Pick a username and password", charset="UTF-8"`

// Server serves the exchange over HTTP.
type Server struct {
	Store    *persistence.DB
	Accounts *accounts.Manager
	Config   *config.Config

	packOpts      modpack.Options
	uploadLimiter *RateLimiter
	httpServer    *http.Server
}

// NewServer wires a server from its dependencies. It reads the mod-pack
// thumbnail, if one is configured.
func NewServer(cfg *config.Config, store *persistence.DB, accts *accounts.Manager) (*Server, error) {
	mp := cfg.ModPack
	opts := modpack.Options{
		Name:             mp.Name,
		ShortName:        mp.ShortName,
		Version:          mp.Version,
		SupportedVersion: mp.SupportedVersion,
		Tags:             mp.Tags,
		Dependencies:     mp.Dependencies,
	}
	if mp.Thumbnail != "" {
		thumb, err := os.ReadFile(mp.Thumbnail)
		if err != nil {
			return nil, fmt.Errorf("read mod pack thumbnail: %w", err)
		}
		opts.Thumbnail = thumb
	}

	return &Server{
		Store:         store,
		Accounts:      accts,
		Config:        cfg,
		packOpts:      opts,
		uploadLimiter: NewRateLimiter(cfg.Upload.PerHour, time.Hour),
	}, nil
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Listings.
	mux.HandleFunc("/username", s.requireUser(s.handleUsername))
	mux.HandleFunc("/sources-list", s.requireUser(s.handleSourcesList))
	mux.HandleFunc("/ajax/", s.requireUser(s.handleSource))
	mux.HandleFunc("/ajax-approved", s.requireUser(s.handleStatusList(persistence.StatusApproved)))
	mux.HandleFunc("/ajax-pending", s.requireUser(s.handleStatusList(persistence.StatusPending)))
	mux.HandleFunc("/api/v1/status", s.requireUser(s.handleStatus))
	mux.HandleFunc("/api/v1/empire/", s.requireUser(s.handleEmpire))

	// Uploads.
	mux.HandleFunc("/preview", s.requireUser(s.handlePreview))
	mux.HandleFunc("/do-upload", RateLimitMiddleware(s.uploadLimiter, s.requireUser(s.handleUpload)))

	// Download.
	mux.HandleFunc("/generate", s.requireUser(s.handleGenerate))

	// Moderation (POST, requires bearer token).
	mux.HandleFunc("/api/v1/moderation/", s.adminOnly(s.handleModeration))

	mux.HandleFunc("/logout", s.handleLogout)

	if s.Config.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.Config.StaticDir)))
	}

	return corsMiddleware(s.Config.CORSOrigins, mux)
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	s.httpServer = &http.Server{
		Addr:              s.Config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("HTTP API starting", "addr", s.Config.Addr, "admin_auth", s.Config.AdminKey != "")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.uploadLimiter.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for the configured frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range origins {
		allowedOrigins[origin] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userHandler func(w http.ResponseWriter, r *http.Request, user string)

// requireUser checks basic auth credentials, registering unknown users.
func (s *Server) requireUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, pass, ok := r.BasicAuth()
		if !ok {
			sendAuthChallenge(w)
			return
		}

		user, err := s.Accounts.Authenticate(name, pass)
		switch {
		case errors.Is(err, accounts.ErrBadCredentials), errors.Is(err, accounts.ErrEmptyCredentials):
			sendAuthChallenge(w)
			return
		case errors.Is(err, accounts.ErrPasswordTooLong):
			w.Header().Set("WWW-Authenticate", authRealm)
			http.Error(w, "password too long (72 bytes max)", http.StatusUnauthorized)
			return
		case err != nil:
			slog.Error("authentication failed", "user", name, "error", err)
			http.Error(w, "authentication unavailable", http.StatusInternalServerError)
			return
		}

		next(w, r, user)
	}
}

func sendAuthChallenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", authRealm)
	http.Error(w, "login required", http.StatusUnauthorized)
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	return len(auth) > len(prefix) && auth[:len(prefix)] == prefix && auth[len(prefix):] == s.Config.AdminKey
}

// adminOnly wraps a handler to require the admin bearer token.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Config.AdminKey == "" {
			http.Error(w, "moderation disabled (no EXCHANGE_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	expired := time.Unix(0, 0)
	http.SetCookie(w, &http.Cookie{Name: "user", Value: "", Path: "/", Expires: expired})
	http.SetCookie(w, &http.Cookie{Name: "auth", Value: "", Path: "/", Expires: expired})
	http.Redirect(w, r, "/", http.StatusFound)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Error("write json", "error", err)
	}
}
