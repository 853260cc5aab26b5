package server

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardroom/landlord/internal/protocol"
)

const (
	wsWriteTimeout = 3 * time.Second
	wsReadTimeout  = 60 * time.Second
)

// WSHandler upgrades a connection and bridges it to the table actor
// named in the query string. Identity rides in the query so a
// reconnect with the same id reclaims its seat.
func WSHandler(h *Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := r.URL.Query().Get("table")
		if table == "" {
			http.Error(w, "missing table", http.StatusBadRequest)
			return
		}
		id := r.URL.Query().Get("id")
		if id == "" {
			id = uuid.NewString()
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "player-" + id[:8]
		}

		reply := make(chan *Table, 1)
		h.Inbox() <- EnsureTable{Code: table, Reply: reply}
		t := <-reply

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan []byte, 16)
		t.Inbox() <- Join{ID: id, Name: name, Outbox: out}
		defer func() { t.Inbox() <- Leave{ID: id} }()

		// Writer goroutine: sole writer on the connection.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case data := <-out:
					ctx, cancel := context.WithTimeout(writeCtx, wsWriteTimeout)
					_ = conn.Write(ctx, websocket.MessageText, data)
					cancel()
				}
			}
		}()

		for {
			ctx, cancel := context.WithTimeout(r.Context(), wsReadTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			// Keepalive pings are answered off the table loop.
			if string(data) == "ping" {
				select {
				case out <- []byte("pong"):
				default:
				}
				continue
			}

			env, err := protocol.Decode(data)
			if err != nil {
				log.Debug("dropping malformed frame", zap.Error(err))
				continue
			}
			t.Inbox() <- FromClient{ID: id, Env: env}
		}
	}
}
