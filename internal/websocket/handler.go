package websocket

import (
	"net/http"
	"net/url"

	ws "github.com/coder/websocket"
)

// Handler upgrades requests on /ws and runs them as hub clients.
// allowedOrigins follows CORS_ALLOWED_ORIGINS: "*" accepts any origin,
// otherwise entries are full origins or bare hosts.
func Handler(hub *Hub, allowedOrigins []string) http.HandlerFunc {
	opts := &ws.AcceptOptions{}
	for _, o := range allowedOrigins {
		if o == "*" {
			opts.InsecureSkipVerify = true
			break
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		opts.OriginPatterns = append(opts.OriginPatterns, o)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, opts)
		if err != nil {
			hub.logger.Warn("accept failed", "remote", r.RemoteAddr, "error", err)
			return
		}

		hub.logger.Debug("client connected", "remote", r.RemoteAddr)
		NewClient(hub, conn).Run(r.Context())
		hub.logger.Debug("client disconnected", "remote", r.RemoteAddr)
	}
}
