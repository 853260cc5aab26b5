package engine

import "github.com/cardroom/landlord/internal/card"

// Phase is the lifecycle stage of a match session.
type Phase string

const (
	// PhaseJoining is the initial state before the join result arrives.
	PhaseJoining Phase = "joining"
	// PhaseDealt means seats are known and the session awaits its hand.
	PhaseDealt Phase = "dealt"
	// PhaseBidding is the landlord call round.
	PhaseBidding Phase = "bidding"
	// PhasePlaying is active trick play.
	PhasePlaying Phase = "playing"
	// PhaseRoundOver is the post-win display window before restart.
	PhaseRoundOver Phase = "round_over"
)

// Seat indexes the three positions at the table. Seat 0 is always the
// local player; peers sit at (local+1)%3 and (local+2)%3 clockwise.
type Seat int

const NumSeats = 3

// NoSeat marks an unassigned seat-valued field (no landlord, no winner).
const NoSeat Seat = -1

// Next is the strict turn rotation: (s+1) mod 3, no skipping.
func (s Seat) Next() Seat { return (s + 1) % NumSeats }

// Valid reports whether s is one of the three table positions.
func (s Seat) Valid() bool { return s >= 0 && s < NumSeats }

// Player is the fixed per-seat identity for a match.
type Player struct {
	ID         string
	Name       string
	Seat       Seat
	IsLandlord bool
}

// Trick is the most recent non-empty accepted play and the seat that
// made it. Subsequent players must beat it or pass; it closes when the
// turn wraps back to Owner without an intervening beat.
type Trick struct {
	Cards []card.ID
	Owner Seat
}

// Empty reports whether there is no open trick (next play is a free lead).
func (t Trick) Empty() bool { return len(t.Cards) == 0 }

// State is the complete session state for one match. It is owned by the
// Transition Engine: everything else receives read-only snapshots.
//
// Only the local seat's hand content is known; peer hands are opaque
// counts. Played accumulates every card observed leaving any hand, so
// card conservation can be checked over the locally visible portion of
// the deck.
type State struct {
	Phase   Phase
	Players [NumSeats]Player

	Hand        card.Set      // seat 0 contents
	HandCounts  [NumSeats]int // opaque sizes for all seats
	Bottom      []card.ID     // nil until attached, cleared on reveal
	BottomKnown []card.ID     // revealed bottom ids, kept for counting
	Played      []card.ID     // all cards observed played this round

	Trick     Trick
	WhoseTurn Seat
	Landlord  Seat

	// PendingReveal is set between landlord assignment and the bottom
	// cards merging into the landlord's hand. No play is accepted while
	// it is set.
	PendingReveal bool

	Multiplier int
	BaseScore  int

	Winner Seat

	// Revealed holds every seat's remaining cards after round end, for
	// display collaborators only.
	Revealed [NumSeats][]card.ID

	// Counter tracks ranks not yet seen by the local player.
	Counter *card.Counter
}

// NewState returns the pre-join empty state.
func NewState() State {
	return State{
		Phase:      PhaseJoining,
		WhoseTurn:  NoSeat,
		Landlord:   NoSeat,
		Winner:     NoSeat,
		Multiplier: 1,
		Counter:    card.NewCounter(),
	}
}

// LocalTurn reports whether the local seat is the expected actor.
func (s State) LocalTurn() bool { return s.WhoseTurn == 0 }

// clone returns a deep copy so Apply can mutate freely while leaving the
// caller's state untouched on rejection.
func (s State) clone() State {
	c := s
	c.Hand = s.Hand.Clone()
	c.Bottom = append([]card.ID(nil), s.Bottom...)
	c.BottomKnown = append([]card.ID(nil), s.BottomKnown...)
	c.Played = append([]card.ID(nil), s.Played...)
	c.Trick.Cards = append([]card.ID(nil), s.Trick.Cards...)
	for i := range s.Revealed {
		c.Revealed[i] = append([]card.ID(nil), s.Revealed[i]...)
	}
	if s.Counter != nil {
		c.Counter = s.Counter.Clone()
	}
	return c
}
