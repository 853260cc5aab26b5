package server

import (
	"time"

	"go.uber.org/zap"

	"github.com/cardroom/landlord/internal/bot"
	"github.com/cardroom/landlord/internal/card"
	"github.com/cardroom/landlord/internal/engine"
	"github.com/cardroom/landlord/internal/protocol"
	"github.com/cardroom/landlord/internal/rule"
)

// sendTo encodes and delivers one envelope, dropping it when the
// client's outbox is saturated (slow consumers must not stall the
// table loop).
func (t *Table) sendTo(outbox chan []byte, code int, payload any) {
	if outbox == nil {
		return
	}
	data, err := protocol.Encode(code, payload)
	if err != nil {
		t.log.Error("encode failed", zap.Int("code", code), zap.Error(err))
		return
	}
	select {
	case outbox <- data:
	default:
		t.log.Warn("outbox full, dropping message", zap.Int("code", code))
	}
}

func (t *Table) broadcast(code int, payload any) {
	for _, s := range t.seats {
		if s != nil {
			t.sendTo(s.outbox, code, payload)
		}
	}
}

// sendSnapshot delivers one seat's personalized view: only its own
// hand, counts for everyone.
func (t *Table) sendSnapshot(s *seatState) {
	if s == nil || s.outbox == nil {
		return
	}
	rsp := protocol.JoinTableRsp{
		Table:      t.code,
		YourSeat:   t.seatOf(s.id),
		Landlord:   t.landlord,
		WhoseTurn:  t.turn,
		Multiplier: t.multiplier,
		BaseScore:  t.baseScore,
	}
	for i, seat := range t.seats {
		if seat == nil {
			continue
		}
		rsp.Players = append(rsp.Players, protocol.PlayerInfo{ID: seat.id, Name: seat.name, Seat: i})
	}
	if t.phase != phaseWaiting {
		rsp.Hand = s.hand.IDs()
		rsp.HandCounts = make([]int, 3)
		for i, seat := range t.seats {
			rsp.HandCounts[i] = seat.hand.Len()
		}
	}
	t.sendTo(s.outbox, protocol.SerJoinTable, rsp)
}

func (t *Table) broadcastSnapshots() {
	for _, s := range t.seats {
		t.sendSnapshot(s)
	}
}

// startRound shuffles, deals 17 cards to each seat plus 3 bottom cards,
// and opens the bid round at a random seat.
func (t *Table) startRound() {
	t.bumpGen()

	deck := card.FullDeck()
	t.rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	for i, s := range t.seats {
		hand, _ := card.NewSet(deck[i*card.HandSize : (i+1)*card.HandSize]...)
		s.hand = hand
	}
	t.bottom = append([]card.ID(nil), deck[3*card.HandSize:]...)

	t.phase = phaseBidding
	t.trick = nil
	t.trickOwner = -1
	t.landlord = -1
	t.bids = nil
	t.multiplier = 1
	t.baseScore = 0
	t.winner = -1
	t.turn = t.rng.Intn(3)

	t.broadcastSnapshots()
	for i := range t.seats {
		t.sendDeal(i)
	}
	t.log.Info("round started", zap.Int("first_bidder", t.turn))
	t.promptBot()
}

// sendDeal delivers a seat's private hand together with the current
// bidder, both on first deal and on mid-bidding resync.
func (t *Table) sendDeal(seat int) {
	s := t.seats[seat]
	if s.outbox == nil {
		return
	}
	t.sendTo(s.outbox, protocol.SerDealPoker, protocol.DealPokerRsp{
		Hand:        s.hand.IDs(),
		FirstBidder: t.turn,
	})
}

func (t *Table) handleCall(seat, call int) {
	if t.phase != phaseBidding || seat != t.turn {
		t.log.Warn("call rejected", zap.Int("seat", seat), zap.Int("call", call))
		return
	}
	if call < 0 || call > 3 {
		t.log.Warn("call out of range", zap.Int("seat", seat), zap.Int("call", call))
		return
	}
	if call > 0 && call <= t.highestBid() {
		// An under-raise counts as a pass; dropping it outright would
		// stall the round-robin.
		t.log.Debug("under-raise treated as pass", zap.Int("seat", seat), zap.Int("call", call))
		call = 0
	}

	t.bids = append(t.bids, bot.Call{Seat: engine.Seat(seat), Call: call})

	// A call of 3 can't be outbid; otherwise the round-robin runs until
	// all three have called.
	if call == 3 || len(t.bids) == 3 {
		if winner, best := t.bestBid(); best > 0 {
			t.assignLandlord(winner, best, seat, call)
			return
		}
		// All passed: redeal. The clients just see a fresh deal.
		t.log.Info("all passed, redealing")
		t.broadcast(protocol.SerCallScore, protocol.CallScoreRsp{
			Seat: seat, Call: call, Landlord: -1, Multiplier: t.multiplier,
		})
		t.startRound()
		return
	}

	t.turn = (seat + 1) % 3
	t.broadcast(protocol.SerCallScore, protocol.CallScoreRsp{
		Seat: seat, Call: call, Landlord: -1, Multiplier: t.multiplier,
	})
	t.promptBot()
}

func (t *Table) highestBid() int {
	best := 0
	for _, b := range t.bids {
		if b.Call > best {
			best = b.Call
		}
	}
	return best
}

func (t *Table) bestBid() (seat, call int) {
	seat, call = -1, 0
	for _, b := range t.bids {
		if b.Call > call {
			seat, call = int(b.Seat), b.Call
		}
	}
	return seat, call
}

// assignLandlord hands over the bottom cards and opens play. The bottom
// transfer is atomic with the assignment: no client ever observes a
// landlord in play with the bottom unresolved.
func (t *Table) assignLandlord(landlord, baseScore, lastSeat, lastCall int) {
	t.bumpGen()
	t.landlord = landlord
	t.baseScore = baseScore
	if err := t.seats[landlord].hand.Add(t.bottom...); err != nil {
		t.log.Error("bottom transfer failed", zap.Error(err))
		return
	}
	t.phase = phasePlaying
	t.turn = landlord
	t.trick = nil
	t.trickOwner = -1

	t.broadcast(protocol.SerCallScore, protocol.CallScoreRsp{
		Seat:       lastSeat,
		Call:       lastCall,
		Landlord:   landlord,
		Bottom:     t.bottom,
		Multiplier: t.multiplier,
		BaseScore:  baseScore,
	})
	t.bottom = nil
	t.broadcast(protocol.SerTurnNotify, protocol.TurnNotifyRsp{Seat: landlord})
	t.log.Info("landlord assigned", zap.Int("seat", landlord), zap.Int("base_score", baseScore))
	// First lead waits out the clients' reveal window on top of the
	// usual bot pacing.
	t.promptBotAfter(t.opts.RevealDelay + t.opts.BotTurnDelay)
}

func (t *Table) handleShot(seat int, cards []card.ID) {
	if t.phase != phasePlaying || seat != t.turn {
		t.log.Warn("shot rejected", zap.Int("seat", seat))
		return
	}

	if len(cards) == 0 {
		if len(t.trick) == 0 {
			t.log.Warn("pass on free lead rejected", zap.Int("seat", seat))
			return
		}
		t.broadcast(protocol.SerShotPoker, protocol.ShotPokerRsp{Seat: seat, Cards: []card.ID{}})
		t.advanceTurn(seat)
		return
	}

	s := t.seats[seat]
	if !s.hand.HasAll(cards) {
		t.log.Warn("shot with cards not held", zap.Int("seat", seat))
		return
	}
	if !t.rules.IsLegalCombination(cards) {
		t.log.Warn("illegal combination rejected", zap.Int("seat", seat))
		return
	}
	if len(t.trick) > 0 && !t.rules.Beats(cards, t.trick) {
		t.log.Warn("non-beating shot rejected", zap.Int("seat", seat))
		return
	}

	if err := s.hand.Remove(cards...); err != nil {
		t.log.Error("hand removal failed", zap.Error(err))
		return
	}
	t.trick = append([]card.ID(nil), cards...)
	t.trickOwner = seat

	// Bombs and rockets double the stake.
	if combo, ok := rule.Parse(cards); ok && (combo.Type == rule.ComboBomb || combo.Type == rule.ComboRocket) {
		t.multiplier *= 2
	}

	t.broadcast(protocol.SerShotPoker, protocol.ShotPokerRsp{Seat: seat, Cards: cards})

	if s.hand.Len() == 0 {
		t.endRound(seat)
		return
	}
	t.advanceTurn(seat)
}

func (t *Table) advanceTurn(from int) {
	t.turn = (from + 1) % 3
	if t.turn == t.trickOwner {
		// Full rotation with no beat: the owner leads fresh.
		t.trick = nil
		t.trickOwner = -1
	}
	t.broadcast(protocol.SerTurnNotify, protocol.TurnNotifyRsp{Seat: t.turn})
	t.promptBot()
}

func (t *Table) endRound(winner int) {
	t.bumpGen()
	t.phase = phaseOver
	t.winner = winner

	hands := make([][]card.ID, 3)
	for i, s := range t.seats {
		hands[i] = s.hand.IDs()
	}
	t.broadcast(protocol.SerGameOver, protocol.GameOverRsp{
		Winner:     winner,
		Hands:      hands,
		Multiplier: t.multiplier,
	})
	t.log.Info("round over",
		zap.Int("winner", winner),
		zap.Bool("landlord_won", winner == t.landlord),
		zap.Int("multiplier", t.multiplier))

	if t.allBots() {
		t.after(t.opts.BotTurnDelay*4, t.handleRestart)
	}
}

func (t *Table) handleRestart() {
	if t.phase != phaseOver {
		return
	}
	t.broadcast(protocol.SerRestart, struct{}{})
	t.startRound()
}

func (t *Table) allBots() bool {
	for _, s := range t.seats {
		if s == nil || s.brain == nil {
			return false
		}
	}
	return true
}

// promptBot schedules the current actor's move when it is a bot seat.
func (t *Table) promptBot() {
	t.promptBotAfter(t.opts.BotTurnDelay)
}

func (t *Table) promptBotAfter(d time.Duration) {
	if t.phase != phaseBidding && t.phase != phasePlaying {
		return
	}
	s := t.seats[t.turn]
	if s == nil || s.brain == nil {
		return
	}
	seat := t.turn
	t.after(d, func() { t.runBot(seat) })
}

func (t *Table) runBot(seat int) {
	if seat != t.turn {
		return
	}
	s := t.seats[seat]
	switch t.phase {
	case phaseBidding:
		call := s.brain.DecideBid(s.hand.IDs(), t.bids)
		if call > 0 && call <= t.highestBid() {
			call = 0
		}
		t.handleCall(seat, call)
	case phasePlaying:
		move := s.brain.DecidePlay(bot.PlayView{
			Hand:       s.hand.IDs(),
			Trick:      t.trick,
			FreeLead:   len(t.trick) == 0,
			IsLandlord: seat == t.landlord,
		})
		if move.Pass && len(t.trick) == 0 {
			// A lead may not pass; burn the lowest card instead.
			move = bot.Move{Cards: s.hand.IDs()[:1]}
		}
		if move.Pass {
			t.handleShot(seat, nil)
		} else {
			t.handleShot(seat, move.Cards)
		}
	}
}
