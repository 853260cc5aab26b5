// Package channel is the message channel adapter: it owns the websocket
// connection to the table authority, serializes outbound requests,
// decodes inbound envelopes into engine events, and delivers them in
// arrival order. Reconnect POLICY belongs to the caller; reconnect
// MECHANICS here always re-request a full snapshot (a join-equivalent
// event) before incremental events resume, since anything sent during
// the outage is gone.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/cardroom/landlord/internal/card"
	"github.com/cardroom/landlord/internal/engine"
	"github.com/cardroom/landlord/internal/protocol"
)

// ErrClosed is returned by sends after the connection is torn down.
var ErrClosed = errors.New("channel closed")

const writeTimeout = 3 * time.Second

// keepaliveInterval paces client-initiated pings. It must stay well
// under the authority's per-frame read deadline or idle-but-healthy
// connections get torn down. Variable so tests can shorten it.
var keepaliveInterval = 20 * time.Second

// Identity is the session bootstrap: the local player's stable id and
// display name, fixed before any JoinAccepted.
type Identity struct {
	ID    string
	Name  string
	Table string
}

// Handlers are the adapter's upward callbacks. OnReady fires at most
// once per connection attempt; OnEvent delivers events in the order the
// authority sent them; OnError fires once on transport failure, after
// which the caller decides whether to dial again.
type Handlers struct {
	OnReady func()
	OnEvent func(engine.Event)
	OnChat  func(protocol.ChatMsg)
	OnError func(error)
}

// Client is one live connection to a table.
type Client struct {
	identity Identity
	codec    *protocol.Codec
	handlers Handlers
	log      *zap.Logger

	conn    *websocket.Conn
	writeCh chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to the table authority, requests the full match snapshot
// (join), and starts the read/write pumps. The same call serves first
// connection and reconnection.
func Dial(ctx context.Context, url string, identity Identity, handlers Handlers, log *zap.Logger) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Client{
		identity: identity,
		codec:    protocol.NewCodec(),
		handlers: handlers,
		log:      log,
		conn:     conn,
		writeCh:  make(chan []byte, 16),
		done:     make(chan struct{}),
	}

	go c.writeLoop()
	go c.readLoop()
	go c.keepaliveLoop()

	if err := c.SendResync(); err != nil {
		c.Close()
		return nil, err
	}
	if handlers.OnReady != nil {
		handlers.OnReady()
	}
	return c, nil
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.writeCh:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				c.fail(fmt.Errorf("write: %w", err))
				return
			}
		}
	}
}

// keepaliveLoop pings the authority so its read deadline keeps moving
// even when the local player idles.
func (c *Client) keepaliveLoop() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			_ = c.enqueue([]byte("ping"))
		}
	}
}

// readLoop is the single consumer of the socket, so OnEvent ordering
// matches wire ordering by construction.
func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.Read(context.Background())
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				c.shutdown()
			default:
				c.fail(fmt.Errorf("read: %w", err))
			}
			return
		}

		switch string(data) {
		case "ping":
			c.enqueue([]byte("pong"))
			continue
		case "pong":
			// Answer to our own keepalive.
			continue
		}

		env, err := protocol.Decode(data)
		if err != nil {
			c.log.Warn("undecodable envelope", zap.Error(err))
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env protocol.Envelope) {
	if env.Code == protocol.SerChat {
		var msg protocol.ChatMsg
		if err := json.Unmarshal(env.Payload, &msg); err == nil && c.handlers.OnChat != nil {
			c.handlers.OnChat(msg)
		}
		return
	}

	ev, err := c.codec.Event(env)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownCode) {
			// Outside the recognized vocabulary: logged and ignored,
			// never fatal.
			c.log.Debug("ignoring unknown message", zap.Int("code", env.Code))
			return
		}
		c.log.Warn("bad payload", zap.Int("code", env.Code), zap.Error(err))
		return
	}
	if c.handlers.OnEvent != nil {
		c.handlers.OnEvent(ev)
	}
}

func (c *Client) enqueue(payload []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	case c.writeCh <- payload:
		return nil
	}
}

// SendBid implements session.Outbound.
func (c *Client) SendBid(call int) error {
	payload, err := c.codec.EncodeBid(call)
	if err != nil {
		return err
	}
	return c.enqueue(payload)
}

// SendPlay implements session.Outbound; nil cards is a pass.
func (c *Client) SendPlay(cards []card.ID) error {
	payload, err := c.codec.EncodePlay(cards)
	if err != nil {
		return err
	}
	return c.enqueue(payload)
}

// SendRestart implements session.Outbound.
func (c *Client) SendRestart() error {
	payload, err := c.codec.EncodeRestart()
	if err != nil {
		return err
	}
	return c.enqueue(payload)
}

// SendResync requests a full match snapshot; the authority answers with
// a join result regardless of match phase.
func (c *Client) SendResync() error {
	payload, err := c.codec.EncodeJoin(c.identity.Table, c.identity.ID, c.identity.Name)
	if err != nil {
		return err
	}
	return c.enqueue(payload)
}

// SendChat relays a chat line through the table.
func (c *Client) SendChat(text string) error {
	payload, err := c.codec.EncodeChat(text)
	if err != nil {
		return err
	}
	return c.enqueue(payload)
}

func (c *Client) fail(err error) {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close(websocket.StatusInternalError, "transport failure")
		if c.handlers.OnError != nil {
			c.handlers.OnError(err)
		}
	})
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
	})
}

// Close tears the connection down without invoking OnError.
func (c *Client) Close() {
	c.shutdown()
}
