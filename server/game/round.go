package game

import (
	"errors"

	"github.com/google/uuid"
)

type State string

const (
	Betting    State = "betting"
	PlayerTurn State = "player_turn"
	DealerTurn State = "dealer_turn"
	Resolved   State = "resolved"
)

type Result string

const (
	Unset Result = ""
	Win   Result = "win"
	Loss  Result = "loss"
	Push  Result = "push"
)

// Both errors are recoverable: the round's state is unchanged and the
// caller re-prompts.
var (
	ErrInvalidBet    = errors.New("invalid bet")
	ErrInvalidAction = errors.New("invalid action")
)

// dealerStand is the total the dealer stands on, soft or hard.
const dealerStand = 17

// Round owns one betting round from bet placement through resolution. It is
// synchronous and single-threaded: each action runs to completion before
// the next is accepted, and Stand drives the whole dealer turn before
// returning. A caller that abandons a round mid-play simply never receives
// a payout delta.
type Round struct {
	ID          string
	Bet         int
	Player      Hand
	Dealer      Hand
	State       State
	Result      Result
	PayoutDelta int
	Blackjack   bool

	src CardSource
}

func NewRound(src CardSource) *Round {
	return &Round{ID: uuid.NewString(), State: Betting, src: src}
}

// PlaceBet validates the wager against the caller's balance and deals the
// opening cards: two to the player, one to the dealer. The dealer never
// takes a hole card; its remaining cards arrive only during its own turn.
// A natural 21 resolves immediately at 3:2, floored by integer division.
// The dealer's upcard is never checked for a counter-blackjack, so a
// player natural always wins (see DESIGN.md).
func (r *Round) PlaceBet(amount, balance int) error {
	if r.State != Betting {
		return ErrInvalidAction
	}
	if amount <= 0 || amount > balance {
		return ErrInvalidBet
	}
	r.Bet = amount
	r.Player = append(r.Player, r.src.Draw(), r.src.Draw())
	r.Dealer = append(r.Dealer, r.src.Draw())
	if r.Player.IsBlackjack() {
		r.Blackjack = true
		r.resolve(Win, r.Bet*3/2)
		return nil
	}
	r.State = PlayerTurn
	return nil
}

// Hit deals the player one card. A bust resolves the round as a loss on the
// spot; the dealer turn never runs.
func (r *Round) Hit() error {
	if r.State != PlayerTurn {
		return ErrInvalidAction
	}
	r.Player = append(r.Player, r.src.Draw())
	if r.Player.IsBust() {
		r.resolve(Loss, -r.Bet)
	}
	return nil
}

// Stand ends the player's turn and runs the dealer to a terminal outcome
// before returning: draw while under 17, stand on any 17 including soft.
// Each draw raises the dealer total by at least 1, so the loop halts.
func (r *Round) Stand() error {
	if r.State != PlayerTurn {
		return ErrInvalidAction
	}
	r.State = DealerTurn
	for r.Dealer.Value() < dealerStand {
		r.Dealer = append(r.Dealer, r.src.Draw())
	}
	pv, dv := r.Player.Value(), r.Dealer.Value()
	switch {
	case dv > 21 || pv > dv:
		r.resolve(Win, r.Bet)
	case pv < dv:
		r.resolve(Loss, -r.Bet)
	default:
		r.resolve(Push, 0)
	}
	return nil
}

// Result and PayoutDelta are immutable once set: every mutating action
// checks State first and Resolved accepts none.
func (r *Round) resolve(res Result, delta int) {
	r.Result = res
	r.PayoutDelta = delta
	r.State = Resolved
}
