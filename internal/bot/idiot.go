package bot

import (
	"slices"

	"github.com/cardroom/landlord/internal/card"
)

// Idiot is the baseline strategy: bid by counting premium cards and
// bombs, lead the lowest expendable single, follow with the smallest
// single that beats, otherwise pass.
type Idiot struct{}

// NewIdiot returns the baseline strategy.
func NewIdiot() *Idiot { return &Idiot{} }

// DecideBid scales the call with the hand's big cards (2s and jokers)
// and bomb count, never overcalling 3.
func (b *Idiot) DecideBid(hand []card.ID, history []Call) int {
	big := 0
	for _, id := range hand {
		if id.Power() >= 15 {
			big++
		}
	}
	bombs := countBombs(hand)

	maxBid := 0
	for _, h := range history {
		if h.Call > maxBid {
			maxBid = h.Call
		}
	}

	switch {
	case big >= 4 || bombs >= 2:
		return min(3, maxBid+1)
	case big >= 2 || bombs >= 1:
		return min(2, maxBid+1)
	case big >= 1:
		return min(1, maxBid+1)
	default:
		return 0
	}
}

// DecidePlay leads the lowest non-premium single, or follows a single
// with the smallest card that beats it. Anything it cannot follow with
// a single gets a pass.
func (b *Idiot) DecidePlay(view PlayView) Move {
	if len(view.Hand) == 0 {
		return Move{Pass: true}
	}
	hand := slices.Clone(view.Hand)
	slices.SortFunc(hand, func(a, c card.ID) int { return a.Power() - c.Power() })

	if view.FreeLead {
		if len(hand) == 1 {
			return Move{Cards: hand}
		}
		for _, id := range hand {
			if id.Power() < 15 {
				return Move{Cards: []card.ID{id}}
			}
		}
		return Move{Cards: []card.ID{hand[0]}}
	}

	if len(view.Trick) == 1 {
		ref := view.Trick[0].Power()
		for _, id := range hand {
			if id.Power() > ref {
				return Move{Cards: []card.ID{id}}
			}
		}
	}
	return Move{Pass: true}
}

func countBombs(hand []card.ID) int {
	byRank := make(map[card.Rank]int)
	for _, id := range hand {
		byRank[id.Rank()]++
	}
	bombs := 0
	for r, n := range byRank {
		if n >= 4 && r != card.RankBlackJoker && r != card.RankRedJoker {
			bombs++
		}
	}
	if byRank[card.RankBlackJoker] > 0 && byRank[card.RankRedJoker] > 0 {
		bombs++
	}
	return bombs
}
