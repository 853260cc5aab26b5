// Package rule implements Dou Dizhu combination legality and beat
// comparison. The session core consumes it only through the Gateway
// interface; everything else in this package is the concrete engine.
package rule

import "github.com/cardroom/landlord/internal/card"

// Gateway is the legality service the session core depends on. Both
// methods are pure and safe for concurrent use.
type Gateway interface {
	// IsLegalCombination reports whether cards form a playable combination.
	IsLegalCombination(cards []card.ID) bool
	// Beats reports whether candidate beats reference. It returns false
	// when the two combination shapes are incomparable.
	Beats(candidate, reference []card.ID) bool
}

// ComboType classifies a parsed combination.
type ComboType int

const (
	ComboInvalid ComboType = iota
	ComboSingle
	ComboPair
	ComboTrio
	ComboTrioSingle
	ComboTrioPair
	ComboStraight      // 5+ consecutive singles, 3..A
	ComboPairSeq       // 3+ consecutive pairs, 3..A
	ComboTrioSeq       // 2+ consecutive trios (airplane, no wings)
	ComboTrioSeqSingle // airplane with single wings
	ComboTrioSeqPair   // airplane with pair wings
	ComboFourTwoSingle // bomb ranked quad + two single wings
	ComboFourTwoPair   // quad + two pair wings
	ComboBomb
	ComboRocket
)

// Combo is the parsed shape of a play: its type, the power of its key
// card (the rank that decides ties), and the card count.
type Combo struct {
	Type  ComboType
	Power int
	Size  int
}

// Engine is the stateless Gateway implementation.
type Engine struct{}

// New returns the concrete rule engine.
func New() *Engine { return &Engine{} }

func (e *Engine) IsLegalCombination(cards []card.ID) bool {
	_, ok := Parse(cards)
	return ok
}

// Beats implements trick comparison: a rocket beats everything, a bomb
// beats any non-bomb, and otherwise the shapes must match in type and
// size with the candidate's key power strictly higher.
func (e *Engine) Beats(candidate, reference []card.ID) bool {
	cand, ok := Parse(candidate)
	if !ok {
		return false
	}
	ref, ok := Parse(reference)
	if !ok {
		// Nothing to beat; a legal lead always stands.
		return true
	}
	if cand.Type == ComboRocket {
		return ref.Type != ComboRocket
	}
	if ref.Type == ComboRocket {
		return false
	}
	if cand.Type == ComboBomb && ref.Type != ComboBomb {
		return true
	}
	if ref.Type == ComboBomb && cand.Type != ComboBomb {
		return false
	}
	if cand.Type != ref.Type || cand.Size != ref.Size {
		return false
	}
	return cand.Power > ref.Power
}

// Parse classifies cards into a Combo. It returns ok=false for shapes
// that are not legal plays.
func Parse(cards []card.ID) (Combo, bool) {
	n := len(cards)
	if n == 0 || n > card.HandSize+card.BottomSize {
		return Combo{}, false
	}
	seen := make(map[card.ID]bool, n)
	counts := make(map[int]int, n) // power -> copies
	for _, id := range cards {
		if !id.Valid() || seen[id] {
			return Combo{}, false
		}
		seen[id] = true
		counts[id.Power()]++
	}

	sig := signature(counts)

	switch {
	case n == 2 && counts[16] == 1 && counts[17] == 1:
		return Combo{Type: ComboRocket, Power: 17, Size: 2}, true
	case n == 1:
		return Combo{Type: ComboSingle, Power: maxPower(counts), Size: 1}, true
	case n == 2 && sig.quads == 0 && sig.trios == 0 && sig.pairs == 1:
		return Combo{Type: ComboPair, Power: sig.pairTop, Size: 2}, true
	case n == 3 && sig.trios == 1 && sig.pairs == 0 && sig.singles == 0:
		return Combo{Type: ComboTrio, Power: sig.trioTop, Size: 3}, true
	case n == 4 && sig.quads == 1:
		return Combo{Type: ComboBomb, Power: maxPower(counts), Size: 4}, true
	case n == 4 && sig.trios == 1 && sig.singles == 1:
		return Combo{Type: ComboTrioSingle, Power: sig.trioTop, Size: 4}, true
	case n == 5 && sig.trios == 1 && sig.pairs == 1:
		return Combo{Type: ComboTrioPair, Power: sig.trioTop, Size: 5}, true
	case n == 6 && sig.quads == 1 && sig.singles == 2:
		return Combo{Type: ComboFourTwoSingle, Power: sig.quadTop, Size: 6}, true
	case n == 8 && sig.quads == 1 && sig.pairs == 2:
		return Combo{Type: ComboFourTwoPair, Power: sig.quadTop, Size: 8}, true
	}

	if n >= 5 && sig.singles == n {
		if top, ok := runTop(counts, 1, n); ok {
			return Combo{Type: ComboStraight, Power: top, Size: n}, true
		}
	}
	if n >= 6 && n%2 == 0 && sig.pairs == n/2 && sig.singles == 0 && sig.trios == 0 && sig.quads == 0 {
		if top, ok := runTop(counts, 2, n/2); ok {
			return Combo{Type: ComboPairSeq, Power: top, Size: n}, true
		}
	}

	// Airplane family: a run of 2+ consecutive trios, bare or with a
	// matching count of single or pair wings.
	if top, run, ok := trioRun(counts); ok && run >= 2 {
		wings := n - run*3
		switch {
		case wings == 0:
			return Combo{Type: ComboTrioSeq, Power: top, Size: n}, true
		case wings == run && sig.quads == 0 && sig.trios == run:
			return Combo{Type: ComboTrioSeqSingle, Power: top, Size: n}, true
		case wings == run*2 && sig.quads == 0 && sig.trios == run && sig.singles == 0:
			return Combo{Type: ComboTrioSeqPair, Power: top, Size: n}, true
		}
	}

	return Combo{}, false
}

type shapeSig struct {
	singles, pairs, trios, quads int
	pairTop, trioTop, quadTop    int
}

func signature(counts map[int]int) shapeSig {
	var s shapeSig
	for p, c := range counts {
		switch c {
		case 1:
			s.singles++
		case 2:
			s.pairs++
			if p > s.pairTop {
				s.pairTop = p
			}
		case 3:
			s.trios++
			if p > s.trioTop {
				s.trioTop = p
			}
		case 4:
			s.quads++
			if p > s.quadTop {
				s.quadTop = p
			}
		}
	}
	return s
}

func maxPower(counts map[int]int) int {
	top := 0
	for p := range counts {
		if p > top {
			top = p
		}
	}
	return top
}

// runTop checks that counts is exactly a consecutive run of `length`
// powers each appearing `copies` times, within 3..14 (2 and jokers can
// never be part of a sequence). Returns the top power of the run.
func runTop(counts map[int]int, copies, length int) (int, bool) {
	lo := 0
	for p, c := range counts {
		if c != copies || p > 14 {
			return 0, false
		}
		if lo == 0 || p < lo {
			lo = p
		}
	}
	if len(counts) != length {
		return 0, false
	}
	for p := lo; p < lo+length; p++ {
		if counts[p] != copies {
			return 0, false
		}
	}
	return lo + length - 1, true
}

// trioRun finds the longest consecutive run of powers with 3+ copies,
// capped at 14 (no 2s or jokers in a run). Returns top power and length.
func trioRun(counts map[int]int) (int, int, bool) {
	best, bestRun := 0, 0
	for p := 3; p <= 14; p++ {
		if counts[p] < 3 {
			continue
		}
		run := 1
		for counts[p+run] >= 3 && p+run <= 14 {
			run++
		}
		if run > bestRun {
			best, bestRun = p+run-1, run
		}
	}
	if bestRun == 0 {
		return 0, 0, false
	}
	return best, bestRun, true
}
