package engine

import (
	"time"

	"github.com/cardroom/landlord/internal/card"
)

// Event is the closed set of inputs the Transition Engine accepts. Wire
// messages are decoded into these variants at the channel boundary;
// local input and scheduled callbacks funnel through the same vocabulary.
type Event interface{ isEvent() }

// JoinAccepted populates the seat mapping. It doubles as the full-state
// snapshot used on resume and on post-desync resynchronization: when the
// authority already assigned a landlord the optional fields restore the
// match mid-flight.
type JoinAccepted struct {
	Players [NumSeats]Player

	// Resume / resync fields. Landlord == NoSeat means a fresh match.
	Landlord   Seat
	Bottom     []card.ID
	Hand       []card.ID
	HandCounts [NumSeats]int
	WhoseTurn  Seat
	Multiplier int
	BaseScore  int
}

// Dealt delivers the local seat's 17 cards. Peer hands stay opaque.
type Dealt struct {
	Hand        []card.ID
	FirstBidder Seat
}

// BidResolved reports the authority's verdict on one call. Landlord is
// NoSeat while bidding continues; once set, Bottom carries the 3 bottom
// cards and Multiplier/BaseScore the authoritative stake values.
type BidResolved struct {
	Seat       Seat
	Call       int
	Landlord   Seat
	Bottom     []card.ID
	Multiplier int
	BaseScore  int
}

// PeerPlayed is an accepted play from the authority, including the echo
// of the local seat's own confirmed plays. Empty Cards is a pass.
type PeerPlayed struct {
	Seat  Seat
	Cards []card.ID
}

// LocalPlayRequested is human/strategy input for seat 0. It is validated
// locally and, if legal, sent out; the state does not change until the
// authority echoes it back as PeerPlayed.
type LocalPlayRequested struct {
	Cards []card.ID
}

// LocalBidRequested is seat 0's landlord call (0 = pass, 1..3 = bid).
type LocalBidRequested struct {
	Call int
}

// TurnNotify is the authority's whose-turn announcement. It must agree
// with the locally tracked rotation; a mismatch is a desync.
type TurnNotify struct {
	Seat Seat
}

// RevealBottom is the scheduler loopback that merges the bottom cards
// into the landlord's hand.
type RevealBottom struct{}

// RoundOver is the authority's end-of-round verdict with all hands
// revealed for display.
type RoundOver struct {
	Winner     Seat
	Revealed   [NumSeats][]card.ID
	Multiplier int
}

// RestartTimerFired is the scheduler loopback after the post-round delay;
// it triggers the outbound restart request.
type RestartTimerFired struct{}

// RestartRequested resets the session for a fresh round, preserving the
// three player identities and seat assignment. Duplicate deliveries are
// idempotent.
type RestartRequested struct{}

func (JoinAccepted) isEvent()       {}
func (Dealt) isEvent()              {}
func (BidResolved) isEvent()        {}
func (PeerPlayed) isEvent()         {}
func (LocalPlayRequested) isEvent() {}
func (LocalBidRequested) isEvent()  {}
func (TurnNotify) isEvent()         {}
func (RevealBottom) isEvent()       {}
func (RoundOver) isEvent()          {}
func (RestartTimerFired) isEvent()  {}
func (RestartRequested) isEvent()   {}

// Effect is the closed set of side effects Apply may request. The
// session loop executes them: Send* go out on the message channel,
// Schedule* become generation-tagged timers that re-enter Apply, and
// TurnReady notifies input collaborators.
type Effect interface{ isEffect() }

// SendBid requests an outbound call-score message.
type SendBid struct{ Call int }

// SendPlay requests an outbound play message.
type SendPlay struct{ Cards []card.ID }

// SendRestart requests an outbound restart message.
type SendRestart struct{}

// SendResync requests a fresh authoritative snapshot after a detected
// state mismatch.
type SendResync struct{}

// ScheduleReveal arms the bottom-card reveal timer; it loops back as a
// RevealBottom event.
type ScheduleReveal struct{ Delay time.Duration }

// ScheduleRestart arms the post-round delay; it loops back as a
// RestartTimerFired event.
type ScheduleRestart struct{ Delay time.Duration }

// TurnReady tells input collaborators that the given seat may act. It is
// only emitted for the local seat.
type TurnReady struct{ Seat Seat }

func (SendBid) isEffect()         {}
func (SendPlay) isEffect()        {}
func (SendRestart) isEffect()     {}
func (SendResync) isEffect()      {}
func (ScheduleReveal) isEffect()  {}
func (ScheduleRestart) isEffect() {}
func (TurnReady) isEffect()       {}
