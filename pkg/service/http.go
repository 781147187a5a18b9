package service

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/bvweerd/wgtunnel/pkg/security"
	"github.com/bvweerd/wgtunnel/pkg/settings"
	"github.com/bvweerd/wgtunnel/pkg/stateful"
	"github.com/bvweerd/wgtunnel/pkg/wgkey"
)

// maxBodySize bounds settings request bodies.
const maxBodySize = 16 << 10

const (
	// wsPingInterval is the interval between ping frames sent to the client.
	wsPingInterval = 30 * time.Second
	// wsPongTimeout is how long to wait for a pong before the stream closes.
	wsPongTimeout = 10 * time.Second
	// wsWriteTimeout is the deadline for writing one message.
	wsWriteTimeout = 5 * time.Second
)

// StatusResponse is the body of GET /rest/wireguardStatus.
type StatusResponse struct {
	Enabled             bool   `json:"enabled"`
	Endpoint            string `json:"endpoint"`
	Address             string `json:"address"`
	PersistentKeepalive uint16 `json:"persistent_keepalive"`
	Connected           bool   `json:"connected"`

	// LatestHandshake is in unix seconds, omitted while no handshake is known.
	LatestHandshake int64 `json:"latest_handshake,omitempty"`

	// PublicKey is derived from the stored private key.
	PublicKey string `json:"public_key,omitempty"`

	State     string `json:"state"`
	SessionID string `json:"session_id,omitempty"`

	// ConnectAttempts counts connect requests since the tunnel started.
	ConnectAttempts int `json:"connect_attempts,omitempty"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Handler returns the REST and WebSocket surface. Status reads need an
// authenticated user and settings need an admin when Config.Security is set.
func (s *TunnelService) Handler() http.Handler {
	sec := s.config.Security

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed", r.Method)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Not found", r.URL.Path)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requestLogger)

		r.With(sec.Require(security.IsAuthenticated)).Get(StatusPath, s.handleStatus)

		admin := r.With(sec.Require(security.IsAdmin))
		admin.Get(SettingsPath, s.handleGetSettings)
		admin.Post(SettingsPath, s.handleUpdateSettings)
	})

	r.With(sec.Require(security.IsAuthenticated)).Get(StatusStreamPath, s.handleStatusStream)

	return r
}

// requestLogger logs each request at debug level.
func (s *TunnelService) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.logger == nil {
			next.ServeHTTP(w, r)
			return
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}

func (s *TunnelService) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ReadObject(settings.Read))
}

func (s *TunnelService) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var root stateful.Object
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&root); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if root == nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body", "expected a JSON object")
		return
	}

	source := SourceREST
	if user, ok := security.UserFromContext(r.Context()); ok && user.Username != "" {
		source = SourceREST + ":" + user.Username
	}

	result, err := s.UpdateSettings(root, source)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid settings", err.Error())
		return
	}

	status := http.StatusOK
	if result == stateful.ChangedRestart {
		status = http.StatusAccepted
	}
	writeJSON(w, status, s.store.ReadObject(settings.Read))
}

func (s *TunnelService) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Status())
}

// handleStatusStream upgrades to a WebSocket and pushes the status report
// whenever it changes, starting with the current one.
func (s *TunnelService) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.debugLog("status stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPingInterval + wsPongTimeout))
	})
	_ = conn.SetReadDeadline(time.Now().Add(wsPingInterval + wsPongTimeout))

	// Read pump: clients send nothing; a read error means they went away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	last := s.Status()
	if err := writeStatus(conn, last); err != nil {
		return
	}

	poll := time.NewTicker(s.config.PollInterval)
	defer poll.Stop()
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-poll.C:
			current := s.Status()
			if current == last {
				continue
			}
			if err := writeStatus(conn, current); err != nil {
				s.debugLog("status stream write failed", "error", err)
				return
			}
			last = current
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-s.stopped:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(wsWriteTimeout))
			return
		}
	}
}

func writeStatus(conn *websocket.Conn, status StatusResponse) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(status)
}

// sameOrigin admits requests without an Origin header and browser requests
// from the page that served them.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// Status builds the status report.
func (s *TunnelService) Status() StatusResponse {
	cfg := s.store.Get()
	snap := s.manager.Snapshot()

	resp := StatusResponse{
		Enabled:             cfg.Enabled,
		Endpoint:            cfg.Endpoint,
		Address:             cfg.Address,
		PersistentKeepalive: cfg.PersistentKeepalive,
		Connected:           snap.Connected,
		State:               snap.State.String(),
		SessionID:           snap.SessionID,
		ConnectAttempts:     snap.ConnectAttempts,
	}
	if !snap.LatestHandshake.IsZero() {
		resp.LatestHandshake = snap.LatestHandshake.Unix()
	}
	if pub, err := wgkey.PublicFromPrivate(cfg.PrivateKey); err == nil {
		resp.PublicKey = pub
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, ErrorResponse{Error: message, Details: details})
}
