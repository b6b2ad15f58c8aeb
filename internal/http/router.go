package httpx

import (
	"log/slog"
	"net/http"

	"github.com/sina1864/EChat/internal/app"
	"github.com/sina1864/EChat/internal/presence"
	"github.com/sina1864/EChat/internal/store"
	"github.com/sina1864/EChat/internal/ws"
	"github.com/sina1864/EChat/pkg/auth"
	"github.com/sina1864/EChat/pkg/metrics"
)

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(cfg app.Config, logger *slog.Logger, hub *ws.Hub, router *presence.Router, db *store.Postgres) http.Handler {
	mw := NewMiddleware(cfg)
	j := auth.New(cfg.JWTSecret)
	authAPI := &AuthAPI{DB: db, JWT: j}
	roomsAPI := &RoomsAPI{DB: db, Router: router}

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/metrics", metrics.Handler())

	// WebSocket endpoint (token-in-query auth, so no Bearer middleware)
	mux.Handle("/ws", http.HandlerFunc(hub.ServeWS))

	// Auth endpoints
	mux.Handle("/api/auth/register", http.HandlerFunc(authAPI.Register))
	mux.Handle("/api/auth/login", http.HandlerFunc(authAPI.Login))
	mux.Handle("/api/auth/me", mw.Auth(http.HandlerFunc(authAPI.Me)))

	// Room records (JWT-protected)
	mux.Handle("/api/rooms", mw.Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			roomsAPI.Create(w, r)
		case http.MethodGet:
			roomsAPI.List(w, r)
		default:
			http.NotFound(w, r)
		}
	})))
	mux.Handle("DELETE /api/rooms/{id}", mw.Auth(http.HandlerFunc(roomsAPI.Delete)))

	// Live occupants of a presence room
	mux.Handle("GET /api/rooms/{name}/users", mw.Auth(http.HandlerFunc(roomsAPI.Occupants)))

	// CORS + rate limit applied globally
	return mw.Wrap(mux)
}
