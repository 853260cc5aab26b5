// Package bot provides decision strategies for automated seats. The
// session treats a Strategy as opaque: it only ever receives read-only
// views and answers through the standard event vocabulary.
package bot

import (
	"github.com/cardroom/landlord/internal/card"
	"github.com/cardroom/landlord/internal/engine"
)

// Move is a play decision: pass, or a concrete card combination.
type Move struct {
	Pass  bool
	Cards []card.ID
}

// Call records one resolved landlord call for bid history.
type Call struct {
	Seat engine.Seat
	Call int
}

// PlayView is the read-only slice of match state a strategy sees when
// asked to play.
type PlayView struct {
	Hand       []card.ID
	Trick      []card.ID // empty on a free lead
	FreeLead   bool
	IsLandlord bool
}

// Strategy is the interface all bot brains implement.
type Strategy interface {
	// DecideBid returns a landlord call 0 (pass) through 3.
	DecideBid(hand []card.ID, history []Call) int
	// DecidePlay returns the move for the current turn.
	DecidePlay(view PlayView) Move
}
