package websocket

import (
	"log/slog"
	"net/http"
	"net/url"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/famwell/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and runs it as a hub
// client. Cross-origin upgrades are accepted only from baseURL's host.
func HandleWebSocket(hub *Hub, baseURL string, logger *slog.Logger) http.HandlerFunc {
	var origins []string
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		origins = append(origins, u.Host)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: origins})
		if err != nil {
			logger.Warn("websocket accept", "user_id", ac.UserID, "error", err)
			return
		}
		defer conn.CloseNow()

		NewClient(hub, conn, ac.UserID, ac.MemberID).Run(r.Context())
	}
}
