package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/cardroom/landlord/internal/card"
	"github.com/cardroom/landlord/internal/rule"
)

// ErrProtocolViolation marks an inbound event that contradicts the local
// session state: wrong actor, bad card counts, broken conservation. The
// session recovers by requesting a fresh snapshot, never by guessing.
var ErrProtocolViolation = errors.New("protocol violation")

// ErrIllegalPlay marks local input rejected before transmission.
var ErrIllegalPlay = errors.New("illegal play")

// ErrWrongTurn marks local input issued outside the local seat's turn.
var ErrWrongTurn = errors.New("not your turn")

// DesyncError carries the context of a detected state mismatch. It wraps
// ErrProtocolViolation so callers match on the sentinel.
type DesyncError struct {
	Phase  Phase
	Seat   Seat
	Reason string
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("desync in phase %s (seat %d): %s", e.Phase, e.Seat, e.Reason)
}

func (e *DesyncError) Unwrap() error { return ErrProtocolViolation }

func desync(s State, seat Seat, reason string) error {
	return &DesyncError{Phase: s.Phase, Seat: seat, Reason: reason}
}

// Engine applies events to session state. Apply is a pure function of
// (state, event) aside from calls into the rule gateway, which is itself
// pure; all side effects are returned as Effect values for the session
// loop to execute.
type Engine struct {
	rules rule.Gateway

	revealDelay  time.Duration
	restartDelay time.Duration
}

// New builds an engine around the given rule gateway. The gateway must be
// available before any PLAYING-phase event is processed.
func New(rules rule.Gateway, revealDelay, restartDelay time.Duration) *Engine {
	if revealDelay <= 0 {
		revealDelay = 1500 * time.Millisecond
	}
	if restartDelay <= 0 {
		restartDelay = 3 * time.Second
	}
	return &Engine{rules: rules, revealDelay: revealDelay, restartDelay: restartDelay}
}

// Apply runs one state transition. On error the returned state is the
// input state unchanged; an event is never half-applied.
func (e *Engine) Apply(s State, ev Event) (State, []Effect, error) {
	switch ev := ev.(type) {
	case JoinAccepted:
		return e.applyJoin(s, ev)
	case Dealt:
		return e.applyDealt(s, ev)
	case BidResolved:
		return e.applyBidResolved(s, ev)
	case LocalBidRequested:
		return e.applyLocalBid(s, ev)
	case RevealBottom:
		return e.applyRevealBottom(s)
	case PeerPlayed:
		return e.applyPeerPlayed(s, ev)
	case LocalPlayRequested:
		return e.applyLocalPlay(s, ev)
	case TurnNotify:
		return e.applyTurnNotify(s, ev)
	case RoundOver:
		return e.applyRoundOver(s, ev)
	case RestartTimerFired:
		return e.applyRestartTimer(s)
	case RestartRequested:
		return e.applyRestart(s)
	default:
		return s, nil, desync(s, NoSeat, fmt.Sprintf("unsupported event %T", ev))
	}
}

func (e *Engine) applyJoin(s State, ev JoinAccepted) (State, []Effect, error) {
	for i, p := range ev.Players {
		if p.Seat != Seat(i) {
			return s, nil, desync(s, Seat(i), "seat mapping out of order")
		}
	}

	ns := NewState()
	ns.Players = ev.Players
	ns.Phase = PhaseDealt

	if ev.Landlord == NoSeat {
		return ns, nil, nil
	}

	// Resume or resync: the authority already assigned a landlord and
	// handed us the full mid-match picture.
	if !ev.Landlord.Valid() {
		return s, nil, desync(s, ev.Landlord, "resume with invalid landlord seat")
	}
	hand, err := card.NewSet(ev.Hand...)
	if err != nil {
		return s, nil, desync(s, 0, "resume hand malformed: "+err.Error())
	}
	ns.Hand = hand
	ns.HandCounts = ev.HandCounts
	ns.HandCounts[0] = hand.Len()
	ns.Landlord = ev.Landlord
	ns.Players[ev.Landlord].IsLandlord = true
	ns.WhoseTurn = ev.WhoseTurn
	if ev.Multiplier > 0 {
		ns.Multiplier = ev.Multiplier
	}
	ns.BaseScore = ev.BaseScore
	ns.Counter.Observe(ev.Hand...)

	ns.Phase = PhasePlaying
	var effects []Effect
	if len(ev.Bottom) == card.BottomSize {
		// Bottom still unresolved: enter the reveal sub-step before
		// accepting plays, exactly as in the live bidding flow.
		ns.Bottom = append([]card.ID(nil), ev.Bottom...)
		ns.PendingReveal = true
		effects = append(effects, ScheduleReveal{Delay: e.revealDelay})
	}
	return ns, effects, nil
}

func (e *Engine) applyDealt(s State, ev Dealt) (State, []Effect, error) {
	// A fresh Dealt while BIDDING is the authority's all-pass redeal.
	if s.Phase != PhaseDealt && s.Phase != PhaseBidding {
		return s, nil, desync(s, 0, "deal outside deal window")
	}
	if len(ev.Hand) != card.HandSize {
		return s, nil, desync(s, 0, fmt.Sprintf("dealt %d cards, want %d", len(ev.Hand), card.HandSize))
	}
	if !ev.FirstBidder.Valid() {
		return s, nil, desync(s, ev.FirstBidder, "invalid first bidder")
	}
	hand, err := card.NewSet(ev.Hand...)
	if err != nil {
		return s, nil, desync(s, 0, "dealt hand malformed: "+err.Error())
	}

	ns := s.clone()
	ns.Hand = hand
	for i := range ns.HandCounts {
		ns.HandCounts[i] = card.HandSize
	}
	ns.Bottom = nil
	ns.BottomKnown = nil
	ns.Played = nil
	ns.Trick = Trick{}
	ns.Landlord = NoSeat
	ns.PendingReveal = false
	ns.Multiplier = 1
	ns.BaseScore = 0
	ns.Winner = NoSeat
	ns.WhoseTurn = ev.FirstBidder
	ns.Phase = PhaseBidding
	ns.Counter = card.NewCounter()
	ns.Counter.Observe(ev.Hand...)

	var effects []Effect
	if ns.LocalTurn() {
		effects = append(effects, TurnReady{Seat: 0})
	}
	return ns, effects, nil
}

func (e *Engine) applyLocalBid(s State, ev LocalBidRequested) (State, []Effect, error) {
	if s.Phase != PhaseBidding {
		return s, nil, fmt.Errorf("%w: bidding is over", ErrIllegalPlay)
	}
	if !s.LocalTurn() {
		return s, nil, ErrWrongTurn
	}
	if ev.Call < 0 || ev.Call > 3 {
		return s, nil, fmt.Errorf("%w: call %d out of range", ErrIllegalPlay, ev.Call)
	}
	// Optimistic hold: state advances only on the authority's echo.
	return s, []Effect{SendBid{Call: ev.Call}}, nil
}

func (e *Engine) applyBidResolved(s State, ev BidResolved) (State, []Effect, error) {
	if s.Phase != PhaseBidding {
		return s, nil, desync(s, ev.Seat, "bid outside bidding phase")
	}
	if ev.Seat != s.WhoseTurn {
		return s, nil, desync(s, ev.Seat, fmt.Sprintf("bid from seat %d, expected %d", ev.Seat, s.WhoseTurn))
	}

	ns := s.clone()
	if ev.Multiplier > 0 {
		ns.Multiplier = ev.Multiplier
	}
	if ev.BaseScore > 0 {
		ns.BaseScore = ev.BaseScore
	}

	if ev.Landlord == NoSeat {
		// Round-robin continues; the authority owns any redeal cap.
		ns.WhoseTurn = ev.Seat.Next()
		var effects []Effect
		if ns.LocalTurn() {
			effects = append(effects, TurnReady{Seat: 0})
		}
		return ns, effects, nil
	}

	if !ev.Landlord.Valid() {
		return s, nil, desync(s, ev.Landlord, "invalid landlord seat")
	}
	if len(ev.Bottom) != card.BottomSize {
		return s, nil, desync(s, ev.Landlord, fmt.Sprintf("landlord named with %d bottom cards", len(ev.Bottom)))
	}

	ns.Landlord = ev.Landlord
	ns.Players[ev.Landlord].IsLandlord = true
	ns.Bottom = append([]card.ID(nil), ev.Bottom...)
	ns.WhoseTurn = ev.Landlord
	ns.Phase = PhasePlaying
	ns.PendingReveal = true
	return ns, []Effect{ScheduleReveal{Delay: e.revealDelay}}, nil
}

func (e *Engine) applyRevealBottom(s State) (State, []Effect, error) {
	if s.Phase != PhasePlaying || !s.PendingReveal || s.Landlord == NoSeat {
		return s, nil, desync(s, s.Landlord, "bottom reveal without pending landlord")
	}
	if len(s.Bottom) != card.BottomSize {
		return s, nil, desync(s, s.Landlord, "bottom card count broken")
	}

	ns := s.clone()
	if ns.Landlord == 0 {
		if err := ns.Hand.Add(ns.Bottom...); err != nil {
			return s, nil, desync(s, 0, "bottom overlaps hand: "+err.Error())
		}
	}
	// Conservation: the landlord hand grows by exactly the bottom cards.
	ns.HandCounts[ns.Landlord] += card.BottomSize
	ns.Counter.Observe(ns.Bottom...)
	ns.BottomKnown = ns.Bottom
	ns.Bottom = nil
	ns.PendingReveal = false

	var effects []Effect
	if ns.Landlord == 0 {
		effects = append(effects, TurnReady{Seat: 0})
	}
	// Otherwise the authority's turn notification drives the first play.
	return ns, effects, nil
}

func (e *Engine) applyPeerPlayed(s State, ev PeerPlayed) (State, []Effect, error) {
	if s.Phase != PhasePlaying {
		return s, nil, desync(s, ev.Seat, "play outside playing phase")
	}
	if s.PendingReveal {
		if ev.Seat != s.Landlord || s.Landlord == 0 {
			return s, nil, desync(s, ev.Seat, "play before bottom reveal")
		}
		// The authority accepted the landlord's lead before our reveal
		// timer fired. Fold the reveal in and judge the play against
		// the merged state.
		rs, _, err := e.applyRevealBottom(s)
		if err != nil {
			return s, nil, err
		}
		s = rs
	}
	if ev.Seat != s.WhoseTurn {
		return s, nil, desync(s, ev.Seat, fmt.Sprintf("play from seat %d, expected %d", ev.Seat, s.WhoseTurn))
	}

	if len(ev.Cards) == 0 {
		// Pass. Never legal on a free lead; never changes the trick.
		if s.Trick.Empty() {
			return s, nil, desync(s, ev.Seat, "pass on a free lead")
		}
		ns := s.clone()
		ns.WhoseTurn = ev.Seat.Next()
		if ns.WhoseTurn == ns.Trick.Owner {
			// Full rotation without a beat: the trick closes and the
			// owner earns a free lead.
			ns.Trick = Trick{}
		}
		return ns, nil, nil
	}

	if !e.rules.IsLegalCombination(ev.Cards) {
		return s, nil, desync(s, ev.Seat, "authority accepted an illegal combination")
	}
	if !s.Trick.Empty() && s.Trick.Owner != ev.Seat && !e.rules.Beats(ev.Cards, s.Trick.Cards) {
		return s, nil, desync(s, ev.Seat, "authority accepted a non-beating play")
	}
	if s.HandCounts[ev.Seat] < len(ev.Cards) {
		return s, nil, desync(s, ev.Seat, "play exceeds remaining hand")
	}

	ns := s.clone()
	if ev.Seat == 0 {
		// Our own echo: the optimistic hold resolves here.
		if err := ns.Hand.Remove(ev.Cards...); err != nil {
			return s, nil, desync(s, 0, "echoed cards not held: "+err.Error())
		}
	} else {
		ns.observePeerCards(ev.Cards)
	}
	ns.HandCounts[ev.Seat] -= len(ev.Cards)
	ns.Played = append(ns.Played, ev.Cards...)
	ns.Trick = Trick{Cards: append([]card.ID(nil), ev.Cards...), Owner: ev.Seat}

	if ns.HandCounts[ev.Seat] == 0 {
		ns.Phase = PhaseRoundOver
		ns.Winner = ev.Seat
		return ns, nil, nil
	}

	ns.WhoseTurn = ev.Seat.Next()
	return ns, nil, nil
}

func (e *Engine) applyLocalPlay(s State, ev LocalPlayRequested) (State, []Effect, error) {
	if s.Phase != PhasePlaying || s.PendingReveal {
		return s, nil, fmt.Errorf("%w: match not accepting plays", ErrIllegalPlay)
	}
	if !s.LocalTurn() {
		return s, nil, ErrWrongTurn
	}

	if len(ev.Cards) == 0 {
		if s.Trick.Empty() {
			return s, nil, fmt.Errorf("%w: cannot pass on a free lead", ErrIllegalPlay)
		}
		return s, []Effect{SendPlay{}}, nil
	}

	if !s.Hand.HasAll(ev.Cards) {
		return s, nil, fmt.Errorf("%w: cards not in hand", ErrIllegalPlay)
	}
	if !e.rules.IsLegalCombination(ev.Cards) {
		return s, nil, fmt.Errorf("%w: not a playable combination", ErrIllegalPlay)
	}
	if !s.Trick.Empty() && !e.rules.Beats(ev.Cards, s.Trick.Cards) {
		return s, nil, fmt.Errorf("%w: does not beat the current trick", ErrIllegalPlay)
	}

	// Fast local validation passed; the play applies on the echo.
	return s, []Effect{SendPlay{Cards: append([]card.ID(nil), ev.Cards...)}}, nil
}

func (e *Engine) applyTurnNotify(s State, ev TurnNotify) (State, []Effect, error) {
	if s.Phase != PhasePlaying {
		return s, nil, desync(s, ev.Seat, "turn notification outside playing phase")
	}
	if ev.Seat != s.WhoseTurn {
		return s, nil, desync(s, ev.Seat, fmt.Sprintf("turn notification for seat %d, expected %d", ev.Seat, s.WhoseTurn))
	}
	var effects []Effect
	if ev.Seat == 0 && !s.PendingReveal {
		effects = append(effects, TurnReady{Seat: 0})
	}
	return s, effects, nil
}

func (e *Engine) applyRoundOver(s State, ev RoundOver) (State, []Effect, error) {
	if s.Phase != PhasePlaying && s.Phase != PhaseRoundOver {
		return s, nil, desync(s, ev.Winner, "round over outside play")
	}
	if !ev.Winner.Valid() {
		return s, nil, desync(s, ev.Winner, "invalid winner seat")
	}
	if s.Winner != NoSeat && s.Winner != ev.Winner {
		return s, nil, desync(s, ev.Winner, "winner contradicts local detection")
	}

	ns := s.clone()
	ns.Phase = PhaseRoundOver
	ns.Winner = ev.Winner
	ns.Revealed = ev.Revealed
	if ev.Multiplier > 0 {
		ns.Multiplier = ev.Multiplier
	}
	for i := range ns.Players {
		ns.Players[i].IsLandlord = Seat(i) == ns.Landlord
	}
	return ns, []Effect{ScheduleRestart{Delay: e.restartDelay}}, nil
}

func (e *Engine) applyRestartTimer(s State) (State, []Effect, error) {
	if s.Phase != PhaseRoundOver {
		// A stale timer that slipped past the generation guard; harmless.
		return s, nil, nil
	}
	return s, []Effect{SendRestart{}}, nil
}

func (e *Engine) applyRestart(s State) (State, []Effect, error) {
	if s.Phase == PhaseJoining {
		return s, nil, desync(s, NoSeat, "restart before join")
	}
	ns := NewState()
	ns.Players = s.Players
	for i := range ns.Players {
		ns.Players[i].IsLandlord = false
	}
	ns.Phase = PhaseDealt
	return ns, nil, nil
}

// observePeerCards feeds the card counter with peer plays, skipping the
// revealed bottom cards that were already counted at reveal time.
func (s *State) observePeerCards(ids []card.ID) {
	for _, id := range ids {
		known := false
		for _, b := range s.BottomKnown {
			if b == id {
				known = true
				break
			}
		}
		if !known {
			s.Counter.Observe(id)
		}
	}
}
