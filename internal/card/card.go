package card

import "strconv"

// ID identifies one of the 54 physical cards of a single deck.
// 1..52 are the suited cards (suit = (id-1)/13, face = ((id-1)%13)+1),
// 53 is the black joker and 54 the red joker.
type ID int

const (
	BlackJoker ID = 53
	RedJoker   ID = 54

	DeckSize   = 54
	HandSize   = 17 // cards dealt to each seat
	BottomSize = 3  // cards set aside for the landlord
)

// Rank buckets used for grouping and counting. Suited cards share a rank
// across suits; jokers each get their own.
type Rank int

const (
	RankA          Rank = 1
	Rank2          Rank = 2
	Rank3          Rank = 3
	Rank4          Rank = 4
	Rank5          Rank = 5
	Rank6          Rank = 6
	Rank7          Rank = 7
	Rank8          Rank = 8
	Rank9          Rank = 9
	Rank10         Rank = 10
	RankJ          Rank = 11
	RankQ          Rank = 12
	RankK          Rank = 13
	RankBlackJoker Rank = 14
	RankRedJoker   Rank = 15
)

// Valid reports whether id falls inside the deck.
func (id ID) Valid() bool { return id >= 1 && id <= DeckSize }

// Rank maps an ID onto its rank bucket.
func (id ID) Rank() Rank {
	switch id {
	case BlackJoker:
		return RankBlackJoker
	case RedJoker:
		return RankRedJoker
	}
	r := Rank(id % 13)
	if r == 0 {
		r = RankK
	}
	return r
}

// Power is the beat-comparison value of a single card: 3..K face value,
// A=14, 2=15, black joker=16, red joker=17.
func (id ID) Power() int {
	switch id.Rank() {
	case RankRedJoker:
		return 17
	case RankBlackJoker:
		return 16
	case Rank2:
		return 15
	case RankA:
		return 14
	default:
		return int(id.Rank())
	}
}

var suitGlyphs = [4]string{"♠", "♥", "♣", "♦"}
var faceLabels = [14]string{"", "A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// Label renders a human-readable card face, e.g. "10♥" or "RJ".
func (id ID) Label() string {
	switch id {
	case BlackJoker:
		return "BJ"
	case RedJoker:
		return "RJ"
	}
	if !id.Valid() {
		return "?" + strconv.Itoa(int(id))
	}
	suit := (int(id) - 1) / 13
	face := (int(id)-1)%13 + 1
	return faceLabels[face] + suitGlyphs[suit]
}

// FullDeck returns all 54 IDs in deck order.
func FullDeck() []ID {
	deck := make([]ID, DeckSize)
	for i := range deck {
		deck[i] = ID(i + 1)
	}
	return deck
}

// Labels renders a card list for logs.
func Labels(ids []ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Label()
	}
	return out
}
