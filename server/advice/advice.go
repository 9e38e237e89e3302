package advice

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Nico26122/BlackJackgame/server/llm"
)

const coachSystem = `
You are a blackjack coach advising a single player against the house.

Fundamental directives:
- The dealer stands on any 17, soft or hard; draws are from an effectively infinite shoe.
- Base your advice on the player's total and the dealer's visible card only.
- Keep language clinical; no narrative, no emotion, no card counting talk.

Output format:
- Reply with exactly one short sentence that starts with "Hit" or "Stand".
- No markdown, no lists, no commentary beyond that sentence.
`

// Query is the hand snapshot the hint service sees: the player's cards, the
// dealer's single visible card, and the computed player total. It carries
// no authority over the round; advice never changes state.
type Query struct {
	PlayerHand  []string
	DealerUp    string
	PlayerValue int
}

// Advisor produces a short natural-language recommendation for a
// player-turn snapshot. With no model configured, or on any model failure,
// it degrades to the deterministic Fallback line.
type Advisor struct {
	model   string
	timeout time.Duration
}

func New(model string) *Advisor {
	return &Advisor{model: strings.TrimSpace(model), timeout: 10 * time.Second}
}

func (a *Advisor) Advise(ctx context.Context, q Query) string {
	if a == nil || a.model == "" {
		return Fallback(q)
	}
	user := fmt.Sprintf("Player hand: %s (total %d). Dealer shows: %s. Hit or stand?",
		strings.Join(q.PlayerHand, " "), q.PlayerValue, q.DealerUp)

	ctx2, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	text, err := llm.PingText(ctx2, a.model, coachSystem, user)
	if err != nil {
		log.Printf("advice fallback for model %s: %v", a.model, err)
		return Fallback(q)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Fallback(q)
	}
	if runes := []rune(text); len(runes) > 200 {
		text = string(runes[:200])
	}
	return text
}

// Fallback is the static recommendation used when the model is unreachable:
// plain basic strategy on the player total and the dealer upcard.
func Fallback(q Query) string {
	switch {
	case q.PlayerValue <= 11:
		return "Hit; you cannot bust below twelve."
	case q.PlayerValue >= 17:
		return "Stand; seventeen or more is a losing spot to draw at."
	case dealerWeak(q.DealerUp):
		return "Stand and let the dealer chase a bust card."
	default:
		return "Hit; the dealer's upcard is too strong to sit on this total."
	}
}

// dealerWeak reports whether the upcard (e.g. "6h") is in the 2..6 bust
// range. Unknown or missing upcards count as strong.
func dealerWeak(up string) bool {
	if len(up) < 2 {
		return false
	}
	return up[0] >= '2' && up[0] <= '6'
}
