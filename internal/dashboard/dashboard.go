// Package dashboard serves a live snapshot of a running scan's progress
// counters over HTTP and WebSocket. It never writes to stdout, so it
// cannot interfere with the "one matched record per line" output
// contract.
package dashboard

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/seike460/s3scan/internal/engine"
)

// SnapshotSource supplies the counters the dashboard reports. It is
// satisfied by *engine.StatusReporter.
type SnapshotSource interface {
	Snapshot() engine.StatusSnapshot
}

// Server serves /status and /status/ws against one SnapshotSource.
type Server struct {
	source SnapshotSource
	secret string
	http   *http.Server
	router *mux.Router
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NewServer builds a dashboard bound to addr. secret, if non-empty,
// requires every request to carry "Authorization: Bearer <HS256 JWT>"
// signed with it.
func NewServer(addr string, source SnapshotSource, secret string) *Server {
	s := &Server{source: source, secret: secret, router: mux.NewRouter()}

	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/status/ws", s.handleStatusWS).Methods(http.MethodGet)

	var handler http.Handler = s.router
	if secret != "" {
		handler = s.authMiddleware(handler)
	}

	s.http = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving the dashboard until the process exits or
// the listener fails. Intended to run in its own goroutine.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Close shuts the dashboard's HTTP server down immediately.
func (s *Server) Close() error {
	return s.http.Close()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.source.Snapshot())
}

func (s *Server) handleStatusWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.WriteJSON(s.source.Snapshot()); err != nil {
			return
		}
	}
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return []byte(s.secret), nil
		})
		if err != nil || !parsed.Valid {
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
		return "", false
	}
	return auth[len(prefix):], true
}
