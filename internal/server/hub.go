package server

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/cardroom/landlord/internal/rule"
)

// HubMsg is the closed set of hub inbox messages.
type HubMsg interface{ isHubMsg() }

// EnsureTable fetches a table by code, creating it on first use.
type EnsureTable struct {
	Code  string
	Reply chan *Table
}

// GetTable fetches a table by code without creating one.
type GetTable struct {
	Code  string
	Reply chan *Table
}

// ListTables replies with the codes of every live table.
type ListTables struct {
	Reply chan []string
}

// RemoveTable drops a table from the registry.
type RemoveTable struct{ Code string }

// ShutdownHub stops every table and then the hub loop.
type ShutdownHub struct{}

func (EnsureTable) isHubMsg() {}
func (GetTable) isHubMsg()    {}
func (ListTables) isHubMsg()  {}
func (RemoveTable) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

// Hub owns the table registry. All access goes through the inbox so
// tables are created and looked up without locks.
type Hub struct {
	inbox  chan HubMsg
	tables map[string]*Table
	rules  *rule.Engine
	opts   Options
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, rules *rule.Engine, opts Options, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		tables: make(map[string]*Table),
		rules:  rules,
		opts:   opts,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureTable:
				msg.Reply <- h.ensure(msg.Code)

			case GetTable:
				msg.Reply <- h.tables[msg.Code] // may be nil

			case ListTables:
				codes := make([]string, 0, len(h.tables))
				for code := range h.tables {
					codes = append(codes, code)
				}
				msg.Reply <- codes

			case RemoveTable:
				if t := h.tables[msg.Code]; t != nil {
					t.Inbox() <- Shutdown{}
					delete(h.tables, msg.Code)
				}

			case ShutdownHub:
				for _, t := range h.tables {
					t.Inbox() <- Shutdown{}
				}
				clear(h.tables)
				h.cancel()
			}
		}
	}
}

func (h *Hub) ensure(code string) *Table {
	if t := h.tables[code]; t != nil {
		return t
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	t := NewTable(code, h.rules, rng, h.opts, h.log)
	h.tables[code] = t
	h.log.Info("table created", zap.String("table", code))
	return t
}
