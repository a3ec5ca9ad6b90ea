// Package ws is the connection endpoint: it upgrades authenticated HTTP
// requests to WebSocket connections and pumps commands and events between
// the peer and the message router.
package ws

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/crewchat-hq/crewchat/internal/auth"
	"github.com/crewchat-hq/crewchat/internal/chat"
	"github.com/crewchat-hq/crewchat/internal/member"
	"github.com/crewchat-hq/crewchat/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Cross-origin dashboards connect here; authorization happens via
		// the session token, not the Origin header.
		return true
	},
}

// Handler returns the WebSocket endpoint. The handshake must carry a
// platform session token (query parameter or Authorization header); the
// resolved principal is fixed for the life of the connection, and the first
// meaningful command is expected to be "join".
func Handler(router *chat.Router, directory member.Directory, verifier *auth.Verifier, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			http.Error(w, `{"error":"missing token"}`, http.StatusUnauthorized)
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
			return
		}

		username := claims.Username
		if username == "" {
			username, err = directory.UsernameForID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, member.ErrUserNotFound) {
					http.Error(w, `{"error":"unknown user"}`, http.StatusUnauthorized)
					return
				}
				http.Error(w, `{"error":"lookup failed"}`, http.StatusInternalServerError)
				return
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		client := newClient(conn, router, directory, claims.UserID, username, logger)

		metrics.ConnectionsActive.Inc()
		defer metrics.ConnectionsActive.Dec()

		go client.writePump()
		client.readPump()
	}
}

// bearerToken pulls the session token from the Authorization header or the
// "token" query parameter (browser WebSocket clients cannot set headers).
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
