// Package server implements the table authority: the single source of
// truth for deals, bids, plays, and scores. Each table is one actor
// goroutine owning full match state; connected clients and seated bots
// interact with it only through its inbox.
package server

import (
	"encoding/json"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardroom/landlord/internal/bot"
	"github.com/cardroom/landlord/internal/card"
	"github.com/cardroom/landlord/internal/protocol"
	"github.com/cardroom/landlord/internal/rule"
)

type tablePhase int

const (
	phaseWaiting tablePhase = iota
	phaseBidding
	phasePlaying
	phaseOver
)

// Msg is the closed set of table inbox messages.
type Msg interface{ isTableMsg() }

// Join seats a player, or reattaches a reconnecting one. The current
// personalized snapshot is always sent back through Outbox.
type Join struct {
	ID     string
	Name   string
	Outbox chan []byte
}

// Leave detaches a client connection. The seat survives for reconnect.
type Leave struct{ ID string }

// FromClient is one decoded envelope from a connected player.
type FromClient struct {
	ID  string
	Env protocol.Envelope
}

// Shutdown stops the table loop.
type Shutdown struct{}

// timerMsg is an internal generation-tagged callback (bot pacing,
// bot auto-fill). Stale generations are dropped.
type timerMsg struct {
	Gen uint64
	Fn  func()
}

func (Join) isTableMsg()       {}
func (Leave) isTableMsg()      {}
func (FromClient) isTableMsg() {}
func (Shutdown) isTableMsg()   {}
func (timerMsg) isTableMsg()   {}

type seatState struct {
	id     string
	name   string
	brain  bot.Strategy // nil for humans
	outbox chan []byte  // nil for bots and disconnected humans
	hand   card.Set
}

// Options tunes table pacing. RevealDelay mirrors the clients' bottom
// reveal animation: the landlord's first bot move waits it out so the
// lead never lands while clients still hold the bottom aside.
type Options struct {
	BotFillDelay time.Duration
	BotTurnDelay time.Duration
	RevealDelay  time.Duration
}

// Table is one three-seat match authority.
type Table struct {
	code  string
	inbox chan Msg
	seats [3]*seatState

	rules *rule.Engine
	rng   *rand.Rand

	phase      tablePhase
	bottom     []card.ID
	trick      []card.ID
	trickOwner int
	turn       int
	landlord   int
	bids       []bot.Call
	multiplier int
	baseScore  int
	winner     int

	gen  uint64
	opts Options
	log  *zap.Logger
	done chan struct{}
}

// NewTable starts a table actor. The rng seed is caller-provided so
// tests can replay deals.
func NewTable(code string, rules *rule.Engine, rng *rand.Rand, opts Options, log *zap.Logger) *Table {
	if opts.BotFillDelay <= 0 {
		opts.BotFillDelay = 2 * time.Second
	}
	if opts.BotTurnDelay <= 0 {
		opts.BotTurnDelay = 500 * time.Millisecond
	}
	if opts.RevealDelay <= 0 {
		opts.RevealDelay = 1500 * time.Millisecond
	}
	t := &Table{
		code:       code,
		inbox:      make(chan Msg, 64),
		rules:      rules,
		rng:        rng,
		landlord:   -1,
		trickOwner: -1,
		winner:     -1,
		multiplier: 1,
		opts:       opts,
		log:        log.With(zap.String("table", code)),
		done:       make(chan struct{}),
	}
	go t.loop()
	t.after(opts.BotFillDelay, t.fillWithBots)
	return t
}

// Inbox exposes the actor mailbox.
func (t *Table) Inbox() chan<- Msg { return t.inbox }

func (t *Table) loop() {
	for m := range t.inbox {
		switch msg := m.(type) {
		case Join:
			t.handleJoin(msg)
		case Leave:
			t.handleLeave(msg.ID)
		case FromClient:
			t.handleEnvelope(msg.ID, msg.Env)
		case timerMsg:
			if msg.Gen == t.gen {
				msg.Fn()
			}
		case Shutdown:
			close(t.done)
			return
		}
	}
}

// after arms a generation-tagged callback delivered through the inbox.
func (t *Table) after(d time.Duration, fn func()) {
	gen := t.gen
	time.AfterFunc(d, func() {
		select {
		case t.inbox <- timerMsg{Gen: gen, Fn: fn}:
		case <-t.done:
		}
	})
}

// bumpGen invalidates every armed callback.
func (t *Table) bumpGen() { t.gen++ }

func (t *Table) handleJoin(msg Join) {
	// Reconnect first: same id reclaims its seat.
	for _, s := range t.seats {
		if s != nil && s.id == msg.ID {
			s.outbox = msg.Outbox
			s.name = msg.Name
			t.sendSnapshot(s)
			t.log.Info("player reconnected", zap.String("player", msg.ID))
			return
		}
	}

	seat := t.freeSeat()
	if seat < 0 {
		t.sendTo(msg.Outbox, protocol.SerJoinTable, protocol.ErrorRsp{Reason: "table full"})
		return
	}
	t.seats[seat] = &seatState{id: msg.ID, name: msg.Name, outbox: msg.Outbox}
	t.log.Info("player seated", zap.String("player", msg.ID), zap.Int("seat", seat))

	if t.full() && t.phase == phaseWaiting {
		t.startRound()
	} else {
		t.broadcastSnapshots()
	}
}

func (t *Table) handleLeave(id string) {
	for _, s := range t.seats {
		if s != nil && s.id == id {
			// Hold the seat; state survives a brief disconnect so a
			// resync can reconcile instead of discarding the match.
			s.outbox = nil
			t.log.Info("player detached", zap.String("player", id))
			return
		}
	}
}

func (t *Table) handleEnvelope(id string, env protocol.Envelope) {
	seat := t.seatOf(id)
	if seat < 0 {
		return
	}
	switch env.Code {
	case protocol.CliJoinTable:
		// Join-equivalent resync request from an already-seated player.
		t.sendSnapshot(t.seats[seat])
		if t.phase == phaseBidding {
			t.sendDeal(seat)
		}
	case protocol.CliCallScore:
		var req protocol.CallScoreReq
		if json.Unmarshal(env.Payload, &req) == nil {
			t.handleCall(seat, req.Call)
		}
	case protocol.CliShotPoker:
		var req protocol.ShotPokerReq
		if json.Unmarshal(env.Payload, &req) == nil {
			t.handleShot(seat, req.Cards)
		}
	case protocol.CliRestart:
		t.handleRestart()
	case protocol.CliChat:
		var msg protocol.ChatMsg
		if json.Unmarshal(env.Payload, &msg) == nil {
			msg.Seat = seat
			t.broadcast(protocol.SerChat, msg)
		}
	default:
		t.log.Debug("ignoring client code", zap.Int("code", env.Code))
	}
}

func (t *Table) fillWithBots() {
	if t.phase != phaseWaiting {
		return
	}
	names := []string{"Robo-East", "Robo-West", "Robo-North"}
	for i := range t.seats {
		if t.seats[i] == nil {
			t.seats[i] = &seatState{
				id:    uuid.NewString(),
				name:  names[i%len(names)],
				brain: bot.NewIdiot(),
			}
			t.log.Info("bot seated", zap.Int("seat", i))
		}
	}
	if t.full() {
		t.startRound()
	}
}

func (t *Table) freeSeat() int {
	for i, s := range t.seats {
		if s == nil {
			return i
		}
	}
	return -1
}

func (t *Table) full() bool {
	for _, s := range t.seats {
		if s == nil {
			return false
		}
	}
	return true
}

func (t *Table) seatOf(id string) int {
	for i, s := range t.seats {
		if s != nil && s.id == id {
			return i
		}
	}
	return -1
}
