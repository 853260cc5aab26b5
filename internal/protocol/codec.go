// Package protocol implements the wire vocabulary shared by table
// authority and session: a 2-element JSON envelope [code, payload] with
// typed payloads per opcode. Dynamic payload shapes stop at this
// boundary; the session only ever sees closed event variants.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cardroom/landlord/internal/card"
	"github.com/cardroom/landlord/internal/engine"
)

// ErrUnknownCode marks an envelope code outside the recognized
// vocabulary. Logged and ignored by callers, never fatal.
var ErrUnknownCode = errors.New("unknown message code")

// ErrBadEnvelope marks a payload that does not parse as [code, payload].
var ErrBadEnvelope = errors.New("malformed envelope")

// Envelope is one wire message.
type Envelope struct {
	Code    int
	Payload json.RawMessage
}

// MarshalJSON renders the envelope as the ordered pair [code, payload].
func (e Envelope) MarshalJSON() ([]byte, error) {
	payload := e.Payload
	if payload == nil {
		payload = json.RawMessage(`{}`)
	}
	return json.Marshal([2]json.RawMessage{mustRaw(e.Code), payload})
}

// UnmarshalJSON parses the ordered pair form.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: %d elements", ErrBadEnvelope, len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.Code); err != nil {
		return fmt.Errorf("%w: non-integer code", ErrBadEnvelope)
	}
	e.Payload = pair[1]
	return nil
}

func mustRaw(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// Encode builds a wire envelope from a code and payload struct.
func Encode(code int, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Code: code, Payload: raw})
}

// Decode parses raw wire bytes into an envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Codec converts recognized inbound envelopes into engine events and
// builds outbound requests. It is stateful: the join result fixes the
// local player's absolute seat, and every later seat field is rotated so
// the session always sees itself at seat 0.
type Codec struct {
	localSeat int
}

// NewCodec returns a codec with no seat assignment yet.
func NewCodec() *Codec { return &Codec{} }

// LocalSeat is the absolute table position of the local player, valid
// after the first join result.
func (c *Codec) LocalSeat() int { return c.localSeat }

func (c *Codec) toLocal(abs int) engine.Seat {
	if abs < 0 || abs >= engine.NumSeats {
		return engine.NoSeat
	}
	return engine.Seat((abs - c.localSeat + engine.NumSeats) % engine.NumSeats)
}

func (c *Codec) toAbs(rel engine.Seat) int {
	return (int(rel) + c.localSeat) % engine.NumSeats
}

// Event decodes a server envelope into the engine's event vocabulary.
// Chat and table-management codes are not game events and return ErrUnknownCode so
// the caller can route them separately.
func (c *Codec) Event(env Envelope) (engine.Event, error) {
	switch env.Code {
	case SerJoinTable:
		var rsp JoinTableRsp
		if err := json.Unmarshal(env.Payload, &rsp); err != nil {
			return nil, err
		}
		return c.joinEvent(rsp)

	case SerDealPoker:
		var rsp DealPokerRsp
		if err := json.Unmarshal(env.Payload, &rsp); err != nil {
			return nil, err
		}
		return engine.Dealt{Hand: rsp.Hand, FirstBidder: c.toLocal(rsp.FirstBidder)}, nil

	case SerCallScore:
		var rsp CallScoreRsp
		if err := json.Unmarshal(env.Payload, &rsp); err != nil {
			return nil, err
		}
		return engine.BidResolved{
			Seat:       c.toLocal(rsp.Seat),
			Call:       rsp.Call,
			Landlord:   c.toLocal(rsp.Landlord),
			Bottom:     rsp.Bottom,
			Multiplier: rsp.Multiplier,
			BaseScore:  rsp.BaseScore,
		}, nil

	case SerShotPoker:
		var rsp ShotPokerRsp
		if err := json.Unmarshal(env.Payload, &rsp); err != nil {
			return nil, err
		}
		return engine.PeerPlayed{Seat: c.toLocal(rsp.Seat), Cards: rsp.Cards}, nil

	case SerTurnNotify:
		var rsp TurnNotifyRsp
		if err := json.Unmarshal(env.Payload, &rsp); err != nil {
			return nil, err
		}
		return engine.TurnNotify{Seat: c.toLocal(rsp.Seat)}, nil

	case SerGameOver:
		var rsp GameOverRsp
		if err := json.Unmarshal(env.Payload, &rsp); err != nil {
			return nil, err
		}
		ev := engine.RoundOver{Winner: c.toLocal(rsp.Winner), Multiplier: rsp.Multiplier}
		for abs, hand := range rsp.Hands {
			if rel := c.toLocal(abs); rel != engine.NoSeat {
				ev.Revealed[rel] = hand
			}
		}
		return ev, nil

	case SerRestart:
		return engine.RestartRequested{}, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCode, env.Code)
	}
}

func (c *Codec) joinEvent(rsp JoinTableRsp) (engine.Event, error) {
	if rsp.YourSeat < 0 || rsp.YourSeat >= engine.NumSeats {
		return nil, fmt.Errorf("%w: join with seat %d", ErrBadEnvelope, rsp.YourSeat)
	}
	if len(rsp.Players) != engine.NumSeats {
		return nil, fmt.Errorf("%w: join with %d players", ErrBadEnvelope, len(rsp.Players))
	}
	c.localSeat = rsp.YourSeat

	ev := engine.JoinAccepted{
		Landlord:   c.toLocal(rsp.Landlord),
		Bottom:     rsp.Bottom,
		Hand:       rsp.Hand,
		WhoseTurn:  c.toLocal(rsp.WhoseTurn),
		Multiplier: rsp.Multiplier,
		BaseScore:  rsp.BaseScore,
	}
	for _, p := range rsp.Players {
		rel := c.toLocal(p.Seat)
		if rel == engine.NoSeat {
			return nil, fmt.Errorf("%w: player at seat %d", ErrBadEnvelope, p.Seat)
		}
		ev.Players[rel] = engine.Player{ID: p.ID, Name: p.Name, Seat: rel}
	}
	for abs, n := range rsp.HandCounts {
		if rel := c.toLocal(abs); rel != engine.NoSeat {
			ev.HandCounts[rel] = n
		}
	}
	return ev, nil
}

// EncodeJoin builds the join (and resync) request.
func (c *Codec) EncodeJoin(table, id, name string) ([]byte, error) {
	return Encode(CliJoinTable, JoinTableReq{Table: table, ID: id, Name: name})
}

// EncodeBid builds a call-score request.
func (c *Codec) EncodeBid(call int) ([]byte, error) {
	return Encode(CliCallScore, CallScoreReq{Call: call})
}

// EncodePlay builds a play request; nil cards is a pass.
func (c *Codec) EncodePlay(cards []card.ID) ([]byte, error) {
	if cards == nil {
		cards = []card.ID{}
	}
	return Encode(CliShotPoker, ShotPokerReq{Cards: cards})
}

// EncodeRestart builds the restart request.
func (c *Codec) EncodeRestart() ([]byte, error) {
	return Encode(CliRestart, struct{}{})
}

// EncodeChat builds a chat relay request.
func (c *Codec) EncodeChat(text string) ([]byte, error) {
	return Encode(CliChat, ChatMsg{Seat: c.localSeat, Text: text})
}
