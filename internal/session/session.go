// Package session runs the match session actor: a single goroutine that
// owns the engine state, feeds it events from the wire, local input, and
// scheduled effects, and broadcasts read-only snapshots to subscribers.
// All state mutation is serialized through one inbox; nothing else in
// the process touches the State.
package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/cardroom/landlord/internal/card"
	"github.com/cardroom/landlord/internal/engine"
)

// Msg is the closed set of inbox messages.
type Msg interface{ isSessionMsg() }

// Deliver feeds one engine event through the transition engine. Wire
// events, local input, and bot decisions all arrive this way.
type Deliver struct {
	Ev engine.Event
}

// timerFired is a scheduler loopback; stale generations are dropped.
type timerFired struct {
	Gen uint64
	Ev  engine.Event
}

// Subscribe registers a snapshot consumer. The current snapshot is sent
// immediately on registration.
type Subscribe struct {
	ID     string
	Outbox chan Snapshot
}

// Unsubscribe removes a snapshot consumer.
type Unsubscribe struct{ ID string }

// GetState reflects internal state without data races; used by tests.
type GetState struct {
	Reply chan View
}

// Shutdown stops the loop and closes all subscriber channels.
type Shutdown struct{}

func (Deliver) isSessionMsg()     {}
func (timerFired) isSessionMsg()  {}
func (Subscribe) isSessionMsg()   {}
func (Unsubscribe) isSessionMsg() {}
func (GetState) isSessionMsg()    {}
func (Shutdown) isSessionMsg()    {}

// Snapshot is the read-only view handed to rendering/AI collaborators
// after every accepted transition.
type Snapshot struct {
	Version int
	State   engine.State
}

// View adds subscriber bookkeeping for test inspection.
type View struct {
	Version    int
	NumSubs    int
	Generation uint64
	State      engine.State
}

// Outbound is what the session needs from the message channel: the four
// request kinds the core emits. Implementations own serialization.
type Outbound interface {
	SendBid(call int) error
	SendPlay(cards []card.ID) error
	SendRestart() error
	SendResync() error
}

// Hooks are optional collaborator callbacks. They are invoked from the
// session goroutine and must not block.
type Hooks struct {
	// OnTurnReady fires when the local seat may act.
	OnTurnReady func(engine.Seat)
	// OnReject fires when local input fails fast-local validation.
	OnReject func(error)
}

// Session is the per-match actor.
type Session struct {
	inbox   chan Msg
	state   engine.State
	version int
	subs    map[string]chan Snapshot

	eng   *engine.Engine
	out   Outbound
	sched *Scheduler
	hooks Hooks
	log   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New starts a session actor around the given engine and outbound
// channel. The returned session is already running.
func New(parent context.Context, eng *engine.Engine, out Outbound, hooks Hooks, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		inbox:  make(chan Msg, 64),
		state:  engine.NewState(),
		subs:   make(map[string]chan Snapshot),
		eng:    eng,
		out:    out,
		hooks:  hooks,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	s.sched = newScheduler(s.deliverAsync)
	go s.loop()
	return s
}

// Inbox exposes the actor mailbox to the channel adapter and input layer.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// deliverAsync is the scheduler's re-entry point; it runs on a timer
// goroutine, so it must go through the inbox like everyone else.
func (s *Session) deliverAsync(m Msg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
	}
}

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Deliver:
				s.apply(msg.Ev)

			case timerFired:
				if msg.Gen != s.sched.Generation() {
					s.log.Debug("dropping stale scheduled effect",
						zap.Uint64("gen", msg.Gen),
						zap.Uint64("current", s.sched.Generation()))
					break
				}
				s.apply(msg.Ev)

			case Subscribe:
				s.subs[msg.ID] = msg.Outbox
				msg.Outbox <- Snapshot{Version: s.version, State: s.state}

			case Unsubscribe:
				delete(s.subs, msg.ID)

			case GetState:
				msg.Reply <- View{
					Version:    s.version,
					NumSubs:    len(s.subs),
					Generation: s.sched.Generation(),
					State:      s.state,
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) apply(ev engine.Event) {
	prev := s.state
	next, effects, err := s.eng.Apply(s.state, ev)
	if err != nil {
		s.handleApplyError(ev, err)
		return
	}

	s.state = next
	s.version++
	switch ev.(type) {
	case engine.JoinAccepted, engine.RestartRequested:
		// Snapshot-style events replace the whole state, even when the
		// phase happens to stay the same. Anything armed beforehand is
		// scheduled against a state that no longer exists.
		s.sched.Bump()
	default:
		if next.Phase != prev.Phase || (prev.PendingReveal && !next.PendingReveal) {
			// Phase moved on, or the reveal resolved some other way
			// than its own timer: everything armed under the old state
			// is now stale.
			s.sched.Bump()
		}
	}
	for _, eff := range effects {
		s.execute(eff)
	}
	s.broadcast(Snapshot{Version: s.version, State: s.state})
}

func (s *Session) handleApplyError(ev engine.Event, err error) {
	switch {
	case errors.Is(err, engine.ErrProtocolViolation):
		// State mismatch: never guess. Log, leave state untouched, and
		// ask the authority for a full snapshot.
		s.log.Warn("protocol desynchronization",
			zap.String("phase", string(s.state.Phase)),
			zap.Error(err))
		if sendErr := s.out.SendResync(); sendErr != nil {
			s.log.Error("resync request failed", zap.Error(sendErr))
		}
	case errors.Is(err, engine.ErrIllegalPlay), errors.Is(err, engine.ErrWrongTurn):
		s.log.Debug("local input rejected", zap.Error(err))
		if s.hooks.OnReject != nil {
			s.hooks.OnReject(err)
		}
	default:
		s.log.Warn("event rejected", zap.Error(err))
	}
}

func (s *Session) execute(eff engine.Effect) {
	var err error
	switch eff := eff.(type) {
	case engine.SendBid:
		err = s.out.SendBid(eff.Call)
	case engine.SendPlay:
		err = s.out.SendPlay(eff.Cards)
	case engine.SendRestart:
		err = s.out.SendRestart()
	case engine.SendResync:
		err = s.out.SendResync()
	case engine.ScheduleReveal:
		s.sched.After(eff.Delay, engine.RevealBottom{})
	case engine.ScheduleRestart:
		s.sched.After(eff.Delay, engine.RestartTimerFired{})
	case engine.TurnReady:
		if s.hooks.OnTurnReady != nil {
			s.hooks.OnTurnReady(eff.Seat)
		}
	}
	if err != nil {
		s.log.Error("outbound send failed", zap.Error(err))
	}
}

func (s *Session) broadcast(snap Snapshot) {
	for id, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// Subscriber is slow or gone; drop it.
			close(ch)
			delete(s.subs, id)
		}
	}
}

func (s *Session) shutdown() {
	s.sched.Stop()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.cancel()
}
