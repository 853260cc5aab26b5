package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankAndPower(t *testing.T) {
	cases := []struct {
		name  string
		id    ID
		rank  Rank
		power int
	}{
		{"ace of spades", 1, RankA, 14},
		{"two of spades", 2, Rank2, 15},
		{"three of spades", 3, Rank3, 3},
		{"king of spades", 13, RankK, 13},
		{"ace of hearts", 14, RankA, 14},
		{"ten of diamonds", 49, Rank10, 10},
		{"king of diamonds", 52, RankK, 13},
		{"black joker", BlackJoker, RankBlackJoker, 16},
		{"red joker", RedJoker, RankRedJoker, 17},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.rank, tc.id.Rank())
			assert.Equal(t, tc.power, tc.id.Power())
		})
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "A♠", ID(1).Label())
	assert.Equal(t, "10♥", ID(23).Label())
	assert.Equal(t, "K♦", ID(52).Label())
	assert.Equal(t, "BJ", BlackJoker.Label())
	assert.Equal(t, "RJ", RedJoker.Label())
}

func TestFullDeckIsExactlyOneDeck(t *testing.T) {
	deck := FullDeck()
	require.Len(t, deck, DeckSize)
	assert.True(t, UnionIsDeck(deck))
}

func TestUnionIsDeckAcrossGroups(t *testing.T) {
	deck := FullDeck()
	hands := [][]ID{deck[:17], deck[17:34], deck[34:51]}
	bottom := deck[51:]

	assert.True(t, UnionIsDeck(hands[0], hands[1], hands[2], bottom))
	// A duplicated card breaks conservation.
	assert.False(t, UnionIsDeck(hands[0], hands[1], hands[2], []ID{1, 2, 3}))
	// A short group does too.
	assert.False(t, UnionIsDeck(hands[0], hands[1], hands[2]))
}

func TestSetAddRemove(t *testing.T) {
	s, err := NewSet(13, 1, 3)
	require.NoError(t, err)

	// Ordered by power: 3 (power 3), K (13), A (14).
	assert.Equal(t, []ID{3, 13, 1}, s.IDs())

	require.NoError(t, s.Remove(13))
	assert.False(t, s.Has(13))
	assert.Equal(t, 2, s.Len())

	assert.ErrorIs(t, s.Remove(13), ErrNotHeld)
	assert.Equal(t, 2, s.Len())

	assert.ErrorIs(t, s.Add(1), ErrDuplicateCard)
	assert.ErrorIs(t, s.Add(99), ErrNotHeld)
}

func TestSetRejectsDuplicatesWithinOneBatch(t *testing.T) {
	_, err := NewSet(5, 5)
	assert.ErrorIs(t, err, ErrDuplicateCard)

	s, err := NewSet(3)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Add(21, 21), ErrDuplicateCard)
	// A failed batch leaves the set untouched.
	assert.Equal(t, []ID{3}, s.IDs())
}

func TestSetHasAllTreatsInputAsSet(t *testing.T) {
	s, err := NewSet(3, 16)
	require.NoError(t, err)

	assert.True(t, s.HasAll([]ID{3, 16}))
	// The same physical card cannot be used twice.
	assert.False(t, s.HasAll([]ID{3, 3}))
}

func TestSetCloneIsIndependent(t *testing.T) {
	s, err := NewSet(1, 2)
	require.NoError(t, err)
	c := s.Clone()
	require.NoError(t, c.Remove(1))

	assert.True(t, s.Has(1))
	assert.False(t, c.Has(1))
}

func TestCounterObserve(t *testing.T) {
	c := NewCounter()
	c.Observe(3, 16, 29) // three 3s

	rem := c.Remaining()
	assert.Equal(t, 1, rem[Rank3])
	assert.Equal(t, 4, rem[Rank4])
	assert.Equal(t, 1, rem[RankRedJoker])

	c.Observe(RedJoker)
	assert.Equal(t, 0, c.Remaining()[RankRedJoker])
	// Never goes negative.
	c.Observe(RedJoker)
	assert.Equal(t, 0, c.Remaining()[RankRedJoker])
}

func TestCounterClone(t *testing.T) {
	c := NewCounter()
	c.Observe(3)
	d := c.Clone()
	d.Observe(16, 29)

	assert.Equal(t, 3, c.Remaining()[Rank3])
	assert.Equal(t, 1, d.Remaining()[Rank3])
}
