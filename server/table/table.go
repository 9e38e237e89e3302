package table

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Nico26122/BlackJackgame/server/advice"
	"github.com/Nico26122/BlackJackgame/server/game"
	"github.com/Nico26122/BlackJackgame/server/store"
)

// Store is the slice of the persistence layer the table needs: chip
// balances keyed by user and an append-only round history.
type Store interface {
	GetBalance(ctx context.Context, userID string) (chips int, found bool, err error)
	SetBalance(ctx context.Context, userID string, chips int) error
	AppendRound(ctx context.Context, e store.RoundEntry) (int64, error)
}

// Advisor maps a player-turn snapshot to a short recommendation.
type Advisor interface {
	Advise(ctx context.Context, q advice.Query) string
}

// Snapshot is everything a client needs to render the table after an
// action. The dealer hand is fully visible internally; hiding a hole card
// during the player turn is a rendering convention, and in this model the
// dealer holds a single upcard until its own turn anyway.
type Snapshot struct {
	UserID      string   `json:"user_id"`
	RoundID     string   `json:"round_id,omitempty"`
	State       string   `json:"state"`
	PlayerHand  []string `json:"player_hand"`
	PlayerValue int      `json:"player_value"`
	DealerHand  []string `json:"dealer_hand"`
	DealerValue int      `json:"dealer_value"`
	DealerUp    string   `json:"dealer_up,omitempty"`
	Bet         int      `json:"bet"`
	Result      string   `json:"result,omitempty"`
	PayoutDelta int      `json:"payout_delta"`
	Blackjack   bool     `json:"blackjack,omitempty"`
	Balance     int      `json:"balance"`
	Message     string   `json:"message,omitempty"`
}

// Table coordinates at most one live round per user against the balance and
// history stores. Rounds themselves are single-threaded and synchronous;
// the mutex only guards the session map against concurrent HTTP handlers.
type Table struct {
	mu     sync.Mutex
	rounds map[string]*game.Round

	store      Store
	advisor    Advisor
	startChips int
	newSource  func() game.CardSource
}

func New(st Store, adv Advisor, startChips int) *Table {
	return &Table{
		rounds:     map[string]*game.Round{},
		store:      st,
		advisor:    adv,
		startChips: startChips,
		newSource:  func() game.CardSource { return game.NewShoe(0) },
	}
}

// PlaceBet starts a fresh round for the user. Any unresolved previous round
// is abandoned with no payout. The bet is validated against the stored
// balance; new users start from the configured stack.
func (t *Table) PlaceBet(ctx context.Context, userID string, amount int) (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	balance, err := t.balance(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	r := game.NewRound(t.newSource())
	if err := r.PlaceBet(amount, balance); err != nil {
		// Keep whatever round was live; the caller re-prompts.
		return t.snapshot(userID, t.rounds[userID], balance, ""), err
	}
	t.rounds[userID] = r

	msg := "Your move: hit or stand."
	if r.State == game.Resolved {
		balance, msg = t.settle(ctx, userID, r, balance, nil)
	}
	return t.snapshot(userID, r, balance, msg), nil
}

// Hit deals the user one card, settling immediately on a bust.
func (t *Table) Hit(ctx context.Context, userID string) (Snapshot, error) {
	return t.act(ctx, userID, (*game.Round).Hit)
}

// Stand runs the dealer to completion and settles the round.
func (t *Table) Stand(ctx context.Context, userID string) (Snapshot, error) {
	return t.act(ctx, userID, (*game.Round).Stand)
}

func (t *Table) act(ctx context.Context, userID string, action func(*game.Round) error) (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.rounds[userID]
	if r == nil {
		return t.snapshot(userID, nil, 0, ""), game.ErrInvalidAction
	}
	balance, balErr := t.balance(ctx, userID)
	if balErr != nil {
		log.Printf("balance read failed for %s: %v", userID, balErr)
	}
	if err := action(r); err != nil {
		return t.snapshot(userID, r, balance, balanceWarning(balErr)), err
	}
	msg := balanceWarning(balErr)
	if r.State == game.Resolved {
		balance, msg = t.settle(ctx, userID, r, balance, balErr)
	}
	return t.snapshot(userID, r, balance, msg), nil
}

// Advice returns a recommendation for the user's current player turn. It
// never mutates the round. The advisor call happens outside the table lock
// so a slow model cannot stall other sessions.
func (t *Table) Advice(ctx context.Context, userID string) (string, error) {
	t.mu.Lock()
	r := t.rounds[userID]
	if r == nil || r.State != game.PlayerTurn {
		t.mu.Unlock()
		return "", game.ErrInvalidAction
	}
	q := advice.Query{
		PlayerHand:  r.Player.Strings(),
		DealerUp:    r.Dealer[0].String(),
		PlayerValue: r.Player.Value(),
	}
	t.mu.Unlock()

	return t.advisor.Advise(ctx, q), nil
}

// Current returns the snapshot of the user's live (or last resolved) round.
func (t *Table) Current(ctx context.Context, userID string) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	balance, err := t.balance(ctx, userID)
	if err != nil {
		log.Printf("balance read failed for %s: %v", userID, err)
	}
	return t.snapshot(userID, t.rounds[userID], balance, balanceWarning(err))
}

// Balance reads the user's effective chip count, seeding unknown users with
// the starting stack (in memory only; nothing is written until settlement).
func (t *Table) Balance(ctx context.Context, userID string) (int, error) {
	return t.balance(ctx, userID)
}

func (t *Table) balance(ctx context.Context, userID string) (int, error) {
	chips, found, err := t.store.GetBalance(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !found {
		return t.startChips, nil
	}
	return chips, nil
}

// balanceWarning turns a failed balance read into a snapshot message so a
// zero balance is never rendered as if it were real.
func balanceWarning(err error) string {
	if err == nil {
		return ""
	}
	return "(warning: balance unavailable)"
}

// settle applies the payout delta and records history. Both writes are
// best-effort: a store failure is logged and surfaced in the message, but
// the in-memory result and the returned balance stand regardless (the
// round's outcome is authoritative, persistence is not). When the balance
// read itself failed the stored chips are unknown, so no balance is
// written at all; writing against a fabricated base would destroy the
// bankroll.
func (t *Table) settle(ctx context.Context, userID string, r *game.Round, balance int, balErr error) (int, string) {
	newBalance := balance + r.PayoutDelta
	msg := resultMessage(r)
	if balErr != nil {
		log.Printf("skipping balance write for %s (read failed earlier)", userID)
		msg += " (warning: balance not saved)"
	} else if err := t.store.SetBalance(ctx, userID, newBalance); err != nil {
		log.Printf("balance write failed for %s (keeping in-memory result): %v", userID, err)
		msg += " (warning: balance not saved)"
	}
	entry := store.RoundEntry{
		RoundID:     r.ID,
		UserID:      userID,
		PlayerHand:  r.Player.Strings(),
		DealerHand:  r.Dealer.Strings(),
		Result:      string(r.Result),
		Bet:         r.Bet,
		PayoutDelta: r.PayoutDelta,
		Blackjack:   r.Blackjack,
		PlayedAt:    time.Now(),
	}
	if _, err := t.store.AppendRound(ctx, entry); err != nil {
		log.Printf("history append failed for %s: %v", userID, err)
	}
	return newBalance, msg
}

func resultMessage(r *game.Round) string {
	switch {
	case r.Blackjack:
		return "Blackjack! Paid 3:2."
	case r.Result == game.Win && r.Dealer.IsBust():
		return "Dealer busts. You win."
	case r.Result == game.Win:
		return "You win."
	case r.Result == game.Loss && r.Player.IsBust():
		return "Bust. You lose."
	case r.Result == game.Loss:
		return "Dealer wins."
	default:
		return "Push. Bet returned."
	}
}

func (t *Table) snapshot(userID string, r *game.Round, balance int, msg string) Snapshot {
	s := Snapshot{
		UserID:     userID,
		State:      string(game.Betting),
		PlayerHand: []string{},
		DealerHand: []string{},
		Balance:    balance,
		Message:    msg,
	}
	if r == nil {
		return s
	}
	s.RoundID = r.ID
	s.State = string(r.State)
	s.PlayerHand = r.Player.Strings()
	s.PlayerValue = r.Player.Value()
	s.DealerHand = r.Dealer.Strings()
	s.DealerValue = r.Dealer.Value()
	if len(r.Dealer) > 0 {
		s.DealerUp = r.Dealer[0].String()
	}
	s.Bet = r.Bet
	s.Result = string(r.Result)
	s.PayoutDelta = r.PayoutDelta
	s.Blackjack = r.Blackjack
	return s
}
