// Package transport wires the websocket upgrade, framing, and per-connection
// send queue described in spec.md §6, grounded on the teacher's
// internal/handlers/lobby_ws.go readPump/writePump/OutChan idiom and
// internal/middleware/logging.go's connect/disconnect log helpers.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/snakearena/server/internal/session"
)

const (
	outboundQueueSize = 32
	writeTimeout      = 5 * time.Second
)

// Conn adapts one coder/websocket connection to session.Sink: a bounded
// outbound queue whose overflow closes the session rather than blocking the
// sender, the option spec.md §5 offers for backpressure (see DESIGN.md for
// why this implementation picks it over best-effort drop).
type Conn struct {
	ws     *websocket.Conn
	out    chan []byte
	logger *logrus.Logger
	remote string

	closeOnce sync.Once
	done      chan struct{}
}

// NewConn wraps an accepted websocket connection.
func NewConn(ws *websocket.Conn, logger *logrus.Logger, remote string) *Conn {
	return &Conn{
		ws:     ws,
		out:    make(chan []byte, outboundQueueSize),
		logger: logger,
		remote: remote,
		done:   make(chan struct{}),
	}
}

// Send implements session.Sink: marshal msg to JSON and enqueue it. A full
// queue means the peer isn't draining fast enough, so the connection is
// closed instead of blocking the caller (which would stall a lobby's tick
// broadcast — spec.md §5: "broadcast must not block tick progress").
func (c *Conn) Send(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.WithError(err).Error("failed to marshal outbound message")
		return
	}
	select {
	case c.out <- data:
	case <-c.done:
	default:
		c.logger.WithField("remote", c.remote).Warn("outbound queue overflow; closing session")
		// Overflow is a server-initiated close outside the idle sweep, so it
		// takes spec.md §6's other close reason rather than inventing a third.
		c.Close("Manual disconnect")
	}
}

// Close implements session.Sink, idempotently closing the underlying socket
// with close code 1000 and the given reason (spec.md §6).
func (c *Conn) Close(reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close(websocket.StatusNormalClosure, reason)
	})
}

// WritePump drains the outbound queue onto the socket until ctx is canceled
// or the connection closes.
func (c *Conn) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case data := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.logger.WithError(err).WithField("remote", c.remote).Warn("write failed")
				return
			}
		}
	}
}

// NewRouter builds the HTTP router: the health route and the websocket
// upgrade route (spec.md §6), grounded on gmackie-power-grid-backend's
// gorilla/mux-alongside-websocket pairing.
func NewRouter(mgr *session.Manager, logger *logrus.Logger) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", healthHandler(mgr)).Methods(http.MethodGet)
	r.HandleFunc("/ws", upgradeHandler(mgr, logger)).Methods(http.MethodGet)
	return r
}

func healthHandler(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "snake arena server",
			"players": mgr.PlayerCount(),
			"lobbies": mgr.LobbyCount(),
		})
	}
}

func upgradeHandler(mgr *session.Manager, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"snake"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.WithError(err).Warn("websocket accept error")
			return
		}
		defer ws.Close(websocket.StatusInternalError, "internal server error during handler exit")

		remote := r.RemoteAddr
		conn := NewConn(ws, logger, remote)
		sess := mgr.Connect(conn)
		logger.WithFields(logrus.Fields{"remote": remote, "session": sess.ID}).Info("session connected")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go conn.WritePump(ctx)

		readLoop(ctx, ws, sess, mgr)

		mgr.Disconnect(sess)
		conn.Close("Manual disconnect")
		logger.WithFields(logrus.Fields{"remote": remote, "session": sess.ID}).Info("session disconnected")
	}
}

// readLoop reads frames until the socket errors or closes, dispatching each
// one through the session manager. Unparsable frames are handled inside
// Manager.Dispatch, which replies with an error rather than ending the loop
// (spec.md §6).
func readLoop(ctx context.Context, ws *websocket.Conn, sess *session.Session, mgr *session.Manager) {
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		mgr.Dispatch(sess, data)
	}
}
