package card

// Counter tracks how many cards of each rank remain unseen from the local
// seat's perspective. It starts from a full deck and is fed every observed
// card (own hand, revealed bottom, peer plays).
type Counter struct {
	remaining map[Rank]int
}

// NewCounter returns a counter primed with the full 54-card deck.
func NewCounter() *Counter {
	c := &Counter{remaining: make(map[Rank]int)}
	c.Reset()
	return c
}

// Reset restores full-deck counts: four of each suited rank, one joker each.
func (c *Counter) Reset() {
	for r := RankA; r <= RankK; r++ {
		c.remaining[r] = 4
	}
	c.remaining[RankBlackJoker] = 1
	c.remaining[RankRedJoker] = 1
}

// Observe deducts the given cards from the remaining counts.
func (c *Counter) Observe(ids ...ID) {
	for _, id := range ids {
		if c.remaining[id.Rank()] > 0 {
			c.remaining[id.Rank()]--
		}
	}
}

// Clone returns an independent copy of the counter.
func (c *Counter) Clone() *Counter {
	out := &Counter{remaining: make(map[Rank]int, len(c.remaining))}
	for r, n := range c.remaining {
		out.remaining[r] = n
	}
	return out
}

// Remaining returns a copy of the per-rank counts still unseen.
func (c *Counter) Remaining() map[Rank]int {
	out := make(map[Rank]int, len(c.remaining))
	for r, n := range c.remaining {
		out[r] = n
	}
	return out
}
