package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Card is an immutable drawn card. ID is an opaque token that lets a client
// correlate a draw with its rendered sprite; scoring ignores it.
type Card struct {
	Rank int    `json:"rank"` // 1 = ace, 11..13 = J/Q/K
	Suit byte   `json:"suit"` // one of 's','h','d','c'
	ID   string `json:"id"`
}

func (c Card) String() string {
	ranks := " A23456789TJQK"
	return fmt.Sprintf("%c%c", ranks[c.Rank], c.Suit)
}

// Pip returns the card's blackjack value with aces counted high (11).
// Hand.Value takes care of demoting aces to 1.
func (c Card) Pip() int {
	switch {
	case c.Rank == 1:
		return 11
	case c.Rank >= 10:
		return 10
	default:
		return c.Rank
	}
}

func (c Card) isAce() bool { return c.Rank == 1 }

// CardSource supplies cards to a round. Production play uses a Shoe; tests
// script the draws.
type CardSource interface {
	Draw() Card
}

// Shoe draws independently and uniformly from the 52 rank/suit combinations
// on every draw: an infinite-deck model with no depletion and no reshuffle
// state. Draws never fail.
type Shoe struct {
	r *rand.Rand
}

func NewShoe(seed int64) *Shoe {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Shoe{r: rand.New(rand.NewSource(seed))}
}

func (s *Shoe) Draw() Card {
	return Card{
		Rank: 1 + s.r.Intn(13),
		Suit: "shdc"[s.r.Intn(4)],
		ID:   uuid.NewString(),
	}
}
