package rule

import (
	"testing"

	"github.com/cardroom/landlord/internal/card"
)

// Card id cheat sheet: suited ids are suit*13 + face with face A=1..K=13,
// so 3♠=3, 3♥=16, 3♣=29, 3♦=42, 2♠=2, A♠=1, 53=BJ, 54=RJ.

func TestParse(t *testing.T) {
	cases := []struct {
		name     string
		cards    []card.ID
		want     ComboType
		wantPow  int
		parsesOK bool
	}{
		{"single", []card.ID{7}, ComboSingle, 7, true},
		{"single red joker", []card.ID{54}, ComboSingle, 17, true},
		{"pair", []card.ID{3, 16}, ComboPair, 3, true},
		{"mismatched pair", []card.ID{3, 17}, ComboInvalid, 0, false},
		{"trio", []card.ID{3, 16, 29}, ComboTrio, 3, true},
		{"trio with single", []card.ID{3, 16, 29, 7}, ComboTrioSingle, 3, true},
		{"trio with pair", []card.ID{3, 16, 29, 7, 20}, ComboTrioPair, 3, true},
		{"bomb", []card.ID{3, 16, 29, 42}, ComboBomb, 3, true},
		{"rocket", []card.ID{53, 54}, ComboRocket, 17, true},
		{"four with two singles", []card.ID{3, 16, 29, 42, 7, 8}, ComboFourTwoSingle, 3, true},
		{"four with two pairs", []card.ID{3, 16, 29, 42, 7, 20, 8, 21}, ComboFourTwoPair, 3, true},
		{"straight of five", []card.ID{3, 4, 5, 6, 7}, ComboStraight, 7, true},
		{"straight to ace", []card.ID{10, 11, 12, 13, 1}, ComboStraight, 14, true},
		{"straight through two", []card.ID{11, 12, 13, 1, 2}, ComboInvalid, 0, false},
		{"straight of four", []card.ID{3, 4, 5, 6}, ComboInvalid, 0, false},
		{"gapped straight", []card.ID{3, 4, 5, 6, 8}, ComboInvalid, 0, false},
		{"pair sequence", []card.ID{3, 16, 4, 17, 5, 18}, ComboPairSeq, 5, true},
		{"pair sequence of two", []card.ID{3, 16, 4, 17}, ComboInvalid, 0, false},
		{"airplane", []card.ID{3, 16, 29, 4, 17, 30}, ComboTrioSeq, 4, true},
		{"airplane with singles", []card.ID{3, 16, 29, 4, 17, 30, 8, 9}, ComboTrioSeqSingle, 4, true},
		{"airplane with pairs", []card.ID{3, 16, 29, 4, 17, 30, 8, 21, 9, 22}, ComboTrioSeqPair, 4, true},
		{"duplicate card", []card.ID{3, 3}, ComboInvalid, 0, false},
		{"off deck card", []card.ID{0}, ComboInvalid, 0, false},
		{"empty", nil, ComboInvalid, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			combo, ok := Parse(tc.cards)
			if ok != tc.parsesOK {
				t.Fatalf("Parse ok: got %v, want %v", ok, tc.parsesOK)
			}
			if !ok {
				return
			}
			if combo.Type != tc.want {
				t.Fatalf("combo type: got %v, want %v", combo.Type, tc.want)
			}
			if combo.Power != tc.wantPow {
				t.Fatalf("combo power: got %d, want %d", combo.Power, tc.wantPow)
			}
		})
	}
}

func TestBeats(t *testing.T) {
	eng := New()

	cases := []struct {
		name      string
		candidate []card.ID
		reference []card.ID
		want      bool
	}{
		{"higher single", []card.ID{8}, []card.ID{7}, true},
		{"equal single", []card.ID{20}, []card.ID{7}, false},
		{"lower single", []card.ID{6}, []card.ID{7}, false},
		{"two beats ace", []card.ID{2}, []card.ID{1}, true},
		{"higher pair", []card.ID{4, 17}, []card.ID{3, 16}, true},
		{"pair cannot follow single", []card.ID{4, 17}, []card.ID{3}, false},
		{"longer straight cannot follow", []card.ID{3, 4, 5, 6, 7, 8}, []card.ID{4, 5, 6, 7, 8}, false},
		{"bomb beats trio", []card.ID{3, 16, 29, 42}, []card.ID{1, 14, 27}, true},
		{"bomb beats higher bomb only by power", []card.ID{3, 16, 29, 42}, []card.ID{4, 17, 30, 43}, false},
		{"higher bomb beats bomb", []card.ID{4, 17, 30, 43}, []card.ID{3, 16, 29, 42}, true},
		{"rocket beats bomb", []card.ID{53, 54}, []card.ID{2, 15, 28, 41}, true},
		{"nothing beats rocket", []card.ID{2, 15, 28, 41}, []card.ID{53, 54}, false},
		{"illegal candidate never beats", []card.ID{3, 17}, []card.ID{3}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := eng.Beats(tc.candidate, tc.reference)
			if got != tc.want {
				t.Fatalf("Beats: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsLegalCombination(t *testing.T) {
	eng := New()
	if !eng.IsLegalCombination([]card.ID{53, 54}) {
		t.Fatalf("rocket should be legal")
	}
	if eng.IsLegalCombination([]card.ID{53, 54, 2}) {
		t.Fatalf("rocket with rider should be illegal")
	}
}
