package table

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nico26122/BlackJackgame/server/advice"
	"github.com/Nico26122/BlackJackgame/server/game"
	"github.com/Nico26122/BlackJackgame/server/store"
)

type fakeStore struct {
	balances map[string]int
	history  []store.RoundEntry

	failReads  bool
	failWrites bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{balances: map[string]int{}}
}

func (f *fakeStore) GetBalance(_ context.Context, userID string) (int, bool, error) {
	if f.failReads {
		return 0, false, errors.New("store down")
	}
	chips, ok := f.balances[userID]
	return chips, ok, nil
}

func (f *fakeStore) SetBalance(_ context.Context, userID string, chips int) error {
	if f.failWrites {
		return errors.New("store down")
	}
	f.balances[userID] = chips
	return nil
}

func (f *fakeStore) AppendRound(_ context.Context, e store.RoundEntry) (int64, error) {
	if f.failWrites {
		return 0, errors.New("store down")
	}
	f.history = append(f.history, e)
	return int64(len(f.history)), nil
}

type staticAdvisor struct{ reply string }

func (s staticAdvisor) Advise(context.Context, advice.Query) string { return s.reply }

// script feeds fixed cards to every round the table starts.
type script struct {
	cards []game.Card
	next  int
}

func (s *script) Draw() game.Card {
	c := s.cards[s.next]
	s.next++
	return c
}

func card(t *testing.T, s string) game.Card {
	t.Helper()
	ranks := " A23456789TJQK"
	for i := 1; i < len(ranks); i++ {
		if ranks[i] == s[0] {
			return game.Card{Rank: i, Suit: s[1]}
		}
	}
	t.Fatalf("bad card %q", s)
	return game.Card{}
}

func newTestTable(t *testing.T, st Store, cards ...string) *Table {
	t.Helper()
	tb := New(st, staticAdvisor{reply: "Stand."}, 100)
	s := &script{}
	for _, c := range cards {
		s.cards = append(s.cards, card(t, c))
	}
	tb.newSource = func() game.CardSource { return s }
	return tb
}

func TestPlaceBetSeedsNewUsers(t *testing.T) {
	st := newFakeStore()
	tb := newTestTable(t, st, "5h", "6d", "9c")

	snap, err := tb.PlaceBet(context.Background(), "alice", 10)
	require.NoError(t, err)
	assert.Equal(t, "player_turn", snap.State)
	assert.Equal(t, 100, snap.Balance) // starting stack, nothing settled yet
	assert.Equal(t, []string{"5h", "6d"}, snap.PlayerHand)
	assert.Equal(t, "9c", snap.DealerUp)
	assert.Empty(t, st.history)
}

func TestPlaceBetRejectsOverBalance(t *testing.T) {
	st := newFakeStore()
	st.balances["bob"] = 20
	tb := newTestTable(t, st, "5h", "6d", "9c")

	_, err := tb.PlaceBet(context.Background(), "bob", 21)
	require.ErrorIs(t, err, game.ErrInvalidBet)
	_, err = tb.PlaceBet(context.Background(), "bob", 0)
	require.ErrorIs(t, err, game.ErrInvalidBet)

	// Still playable at the actual balance.
	snap, err := tb.PlaceBet(context.Background(), "bob", 20)
	require.NoError(t, err)
	assert.Equal(t, "player_turn", snap.State)
}

func TestStandSettlesAndPersists(t *testing.T) {
	st := newFakeStore()
	// Player 19 vs dealer 9 -> 18: win.
	tb := newTestTable(t, st, "Th", "9d", "9c", "9s")

	_, err := tb.PlaceBet(context.Background(), "alice", 25)
	require.NoError(t, err)
	snap, err := tb.Stand(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, "resolved", snap.State)
	assert.Equal(t, "win", snap.Result)
	assert.Equal(t, 25, snap.PayoutDelta)
	assert.Equal(t, 125, snap.Balance)
	assert.Equal(t, 125, st.balances["alice"])

	require.Len(t, st.history, 1)
	e := st.history[0]
	assert.Equal(t, "alice", e.UserID)
	assert.Equal(t, []string{"Th", "9d"}, e.PlayerHand)
	assert.Equal(t, []string{"9c", "9s"}, e.DealerHand)
	assert.Equal(t, "win", e.Result)
	assert.Equal(t, 25, e.Bet)
	assert.False(t, e.Blackjack)
	assert.False(t, e.PlayedAt.IsZero())
}

func TestBlackjackSettlesOnBet(t *testing.T) {
	st := newFakeStore()
	tb := newTestTable(t, st, "Ah", "Kd", "9c")

	snap, err := tb.PlaceBet(context.Background(), "alice", 10)
	require.NoError(t, err)
	assert.Equal(t, "resolved", snap.State)
	assert.Equal(t, 15, snap.PayoutDelta)
	assert.Equal(t, 115, snap.Balance)
	assert.Contains(t, snap.Message, "Blackjack")
	require.Len(t, st.history, 1)
	assert.True(t, st.history[0].Blackjack)
}

func TestHitBustLosesBet(t *testing.T) {
	st := newFakeStore()
	st.balances["bob"] = 50
	tb := newTestTable(t, st, "Th", "9d", "2c", "5c")

	_, err := tb.PlaceBet(context.Background(), "bob", 30)
	require.NoError(t, err)
	snap, err := tb.Hit(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "loss", snap.Result)
	assert.Equal(t, -30, snap.PayoutDelta)
	assert.Equal(t, 20, st.balances["bob"])
	assert.Contains(t, snap.Message, "Bust")
}

func TestPersistenceFailureKeepsResult(t *testing.T) {
	st := newFakeStore()
	st.balances["alice"] = 100
	tb := newTestTable(t, st, "Th", "9d", "9c", "9s")

	_, err := tb.PlaceBet(context.Background(), "alice", 10)
	require.NoError(t, err)

	st.failWrites = true
	snap, err := tb.Stand(context.Background(), "alice")
	require.NoError(t, err)

	// Authoritative in-memory outcome survives the failed writes.
	assert.Equal(t, "win", snap.Result)
	assert.Equal(t, 110, snap.Balance)
	assert.Contains(t, snap.Message, "not saved")
	assert.Equal(t, 100, st.balances["alice"]) // write really did fail
	assert.Empty(t, st.history)
}

func TestActionsWithoutRoundFail(t *testing.T) {
	tb := newTestTable(t, newFakeStore())
	_, err := tb.Hit(context.Background(), "ghost")
	assert.ErrorIs(t, err, game.ErrInvalidAction)
	_, err = tb.Stand(context.Background(), "ghost")
	assert.ErrorIs(t, err, game.ErrInvalidAction)
}

func TestResolvedRoundRejectsFurtherActions(t *testing.T) {
	st := newFakeStore()
	tb := newTestTable(t, st, "Th", "9d", "9c", "9s")

	_, err := tb.PlaceBet(context.Background(), "alice", 10)
	require.NoError(t, err)
	_, err = tb.Stand(context.Background(), "alice")
	require.NoError(t, err)

	_, err = tb.Stand(context.Background(), "alice")
	assert.ErrorIs(t, err, game.ErrInvalidAction)
	// Exactly one settlement.
	assert.Len(t, st.history, 1)
	assert.Equal(t, 110, st.balances["alice"])
}

func TestAbandonedRoundNeverPays(t *testing.T) {
	st := newFakeStore()
	// First round dealt then abandoned; second round plays out.
	tb := newTestTable(t, st, "5h", "6d", "9c", "Th", "9d", "8c", "9s")

	_, err := tb.PlaceBet(context.Background(), "alice", 10)
	require.NoError(t, err)
	// New bet discards the unresolved round: no delta, no history for it.
	_, err = tb.PlaceBet(context.Background(), "alice", 20)
	require.NoError(t, err)
	snap, err := tb.Stand(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, "win", snap.Result) // 19 vs 17
	require.Len(t, st.history, 1)
	assert.Equal(t, 20, st.history[0].Bet)
	assert.Equal(t, 120, st.balances["alice"])
}

func TestAdviceOnlyDuringPlayerTurn(t *testing.T) {
	st := newFakeStore()
	tb := newTestTable(t, st, "Th", "9d", "9c", "9s")

	_, err := tb.Advice(context.Background(), "alice")
	assert.ErrorIs(t, err, game.ErrInvalidAction)

	_, err = tb.PlaceBet(context.Background(), "alice", 10)
	require.NoError(t, err)
	got, err := tb.Advice(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Stand.", got)

	_, err = tb.Stand(context.Background(), "alice")
	require.NoError(t, err)
	_, err = tb.Advice(context.Background(), "alice")
	assert.ErrorIs(t, err, game.ErrInvalidAction)
}

func TestCurrentSnapshotForIdleUser(t *testing.T) {
	tb := newTestTable(t, newFakeStore())
	snap := tb.Current(context.Background(), "newcomer")
	assert.Equal(t, "betting", snap.State)
	assert.Equal(t, 100, snap.Balance)
	assert.Empty(t, snap.PlayerHand)
}

func TestReadFailureDuringStandNeverOverwritesBalance(t *testing.T) {
	st := newFakeStore()
	st.balances["alice"] = 100
	tb := newTestTable(t, st, "Th", "9d", "9c", "9s")

	_, err := tb.PlaceBet(context.Background(), "alice", 25)
	require.NoError(t, err)

	// Reads go dark mid-round; writes still work. A winning stand must not
	// settle against a made-up base and clobber the stored chips.
	st.failReads = true
	snap, err := tb.Stand(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, "win", snap.Result)
	assert.Equal(t, 25, snap.PayoutDelta)
	assert.Contains(t, snap.Message, "not saved")
	assert.Equal(t, 100, st.balances["alice"]) // untouched, not 25

	// History has no balance dependency and is still recorded.
	require.Len(t, st.history, 1)
	assert.Equal(t, "win", st.history[0].Result)
}

func TestReadFailureFlagsSnapshotBalance(t *testing.T) {
	st := newFakeStore()
	st.balances["alice"] = 100
	tb := newTestTable(t, st, "5h", "6d", "9c", "2c")

	_, err := tb.PlaceBet(context.Background(), "alice", 10)
	require.NoError(t, err)

	st.failReads = true
	snap, err := tb.Hit(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "player_turn", snap.State)
	assert.Contains(t, snap.Message, "balance unavailable")

	snap = tb.Current(context.Background(), "alice")
	assert.Contains(t, snap.Message, "balance unavailable")

	st.failReads = false
	snap = tb.Current(context.Background(), "alice")
	assert.Equal(t, 100, snap.Balance)
	assert.Empty(t, snap.Message)
}

func TestPlaceBetSurfacesStoreReadFailure(t *testing.T) {
	st := newFakeStore()
	st.failReads = true
	tb := newTestTable(t, st, "5h", "6d", "9c")

	_, err := tb.PlaceBet(context.Background(), "alice", 10)
	require.Error(t, err)
	assert.NotErrorIs(t, err, game.ErrInvalidBet)
}
