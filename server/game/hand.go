package game

// Hand is an ordered, append-only sequence of cards.
type Hand []Card

// Value sums pip values with aces at 11, then demotes one ace to 1
// (subtract 10) at a time while the total exceeds 21. The result is the
// highest total <= 21 any ace reinterpretation allows, or the minimal bust
// total if none does. An empty hand scores 0.
func (h Hand) Value() int {
	total, aces := 0, 0
	for _, c := range h {
		total += c.Pip()
		if c.isAce() {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

func (h Hand) IsBust() bool { return h.Value() > 21 }

// IsBlackjack reports a natural: exactly two cards totalling 21. A 21
// assembled through later hits is not a blackjack.
func (h Hand) IsBlackjack() bool { return len(h) == 2 && h.Value() == 21 }

func (h Hand) Strings() []string {
	out := make([]string, len(h))
	for i, c := range h {
		out[i] = c.String()
	}
	return out
}
