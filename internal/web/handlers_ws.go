package web

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tchow-twistedxcom/agent-watch/internal/logging"
	"github.com/tchow-twistedxcom/agent-watch/internal/session"
)

// snapshotInterval is how often the full session list is re-sent so a
// client that missed events still converges.
const snapshotInterval = 5 * time.Second

type wsServerMessage struct {
	Type     string             `json:"type"` // snapshot, event
	Sessions []session.Snapshot `json:"sessions,omitempty"`
	Badge    int                `json:"badge,omitempty"`
	Event    *session.Event     `json:"event,omitempty"`
	Time     time.Time          `json:"time"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     allowWSOrigin,
}

func allowWSOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil || originURL.Host == "" {
		return false
	}
	return strings.EqualFold(originURL.Host, r.Host)
}

// handleWS streams an initial snapshot, then events as they happen, plus a
// periodic snapshot for convergence.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events := s.source.Subscribe()
	defer s.source.Unsubscribe(events)

	// Reader goroutine: we never expect client messages, but reading is
	// required to notice a closed connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(msg wsServerMessage) bool {
		msg.Time = time.Now().UTC()
		if err := conn.WriteJSON(msg); err != nil {
			logging.ForComponent(logging.CompWeb).Debug("ws write failed", "error", err)
			return false
		}
		return true
	}

	if !send(wsServerMessage{Type: "snapshot", Sessions: s.source.Snapshots(), Badge: s.source.Badge()}) {
		return
	}

	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.baseCtx.Done():
			return
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !send(wsServerMessage{Type: "event", Event: &ev, Badge: s.source.Badge()}) {
				return
			}
		case <-ticker.C:
			if !send(wsServerMessage{Type: "snapshot", Sessions: s.source.Snapshots(), Badge: s.source.Badge()}) {
				return
			}
		}
	}
}
