package protocol

import "github.com/cardroom/landlord/internal/card"

// PlayerInfo is one seat's identity as the authority reports it. Seats
// in wire payloads are absolute table positions; the codec converts to
// the local-relative rotation the session uses.
type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Seat int    `json:"seat"`
}

// JoinTableReq asks to join (or rejoin, for a resync) a table.
type JoinTableReq struct {
	Table string `json:"table"`
	ID    string `json:"id"`
	Name  string `json:"name"`
}

// JoinTableRsp is the join result and doubles as the full match
// snapshot: on resume the landlord/hand fields restore a live round.
type JoinTableRsp struct {
	Table      string       `json:"table"`
	YourSeat   int          `json:"your_seat"`
	Players    []PlayerInfo `json:"players"`
	Landlord   int          `json:"landlord"` // -1 while unassigned
	Bottom     []card.ID    `json:"bottom,omitempty"`
	Hand       []card.ID    `json:"hand,omitempty"`
	HandCounts []int        `json:"hand_counts,omitempty"`
	WhoseTurn  int          `json:"whose_turn"`
	Multiplier int          `json:"multiplier"`
	BaseScore  int          `json:"base_score"`
}

// DealPokerRsp delivers the receiving seat's 17 cards.
type DealPokerRsp struct {
	Hand        []card.ID `json:"hand"`
	FirstBidder int       `json:"first_bidder"`
}

// CallScoreReq is a landlord call, 0 (pass) through 3.
type CallScoreReq struct {
	Call int `json:"call"`
}

// CallScoreRsp reports one resolved call. Landlord is -1 while the
// round-robin continues; once set, Bottom and the stake values ride
// along.
type CallScoreRsp struct {
	Seat       int       `json:"seat"`
	Call       int       `json:"call"`
	Landlord   int       `json:"landlord"`
	Bottom     []card.ID `json:"bottom,omitempty"`
	Multiplier int       `json:"multiplier"`
	BaseScore  int       `json:"base_score"`
}

// ShotPokerReq proposes a play; empty Cards is a pass.
type ShotPokerReq struct {
	Cards []card.ID `json:"cards"`
}

// ShotPokerRsp is an accepted play, including the echo of the sender's
// own plays.
type ShotPokerRsp struct {
	Seat  int       `json:"seat"`
	Cards []card.ID `json:"cards"`
}

// TurnNotifyRsp announces the next actor.
type TurnNotifyRsp struct {
	Seat int `json:"seat"`
}

// GameOverRsp ends the round, revealing every remaining hand in
// absolute seat order.
type GameOverRsp struct {
	Winner     int         `json:"winner"`
	Hands      [][]card.ID `json:"hands"`
	Multiplier int         `json:"multiplier"`
}

// ChatMsg is relayed verbatim by the table; the session core ignores it.
type ChatMsg struct {
	Seat int    `json:"seat"`
	Text string `json:"text"`
}

// ErrorRsp reports a request the authority refused.
type ErrorRsp struct {
	Reason string `json:"reason"`
}
