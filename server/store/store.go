package store

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema embed.FS

type DB struct{ *pgxpool.Pool }

func Open(dsn string) (*DB, error) {
	p, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &DB{p}, nil
}

func (db *DB) Close(ctx context.Context)      { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

/* -----------------------------
   Balance store
------------------------------*/

// GetBalance reads a user's chip count. found is false for users that have
// never settled a round.
func (db *DB) GetBalance(ctx context.Context, userID string) (chips int, found bool, err error) {
	err = db.QueryRow(ctx, `SELECT chips FROM balances WHERE user_id = $1`, userID).Scan(&chips)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return chips, true, nil
}

// SetBalance upserts a user's chip count.
func (db *DB) SetBalance(ctx context.Context, userID string, chips int) error {
	_, err := db.Exec(ctx, `
        INSERT INTO balances(user_id, chips)
        VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE
          SET chips = EXCLUDED.chips,
              updated_at = now()
    `, userID, chips)
	return err
}

/* -----------------------------
   Round history
------------------------------*/

// RoundEntry is one settled round as persisted for history and replay.
type RoundEntry struct {
	ID          int64     `json:"id"`
	RoundID     string    `json:"round_id"`
	UserID      string    `json:"user_id"`
	PlayerHand  []string  `json:"player_hand"`
	DealerHand  []string  `json:"dealer_hand"`
	Result      string    `json:"result"`
	Bet         int       `json:"bet"`
	PayoutDelta int       `json:"payout_delta"`
	Blackjack   bool      `json:"blackjack"`
	PlayedAt    time.Time `json:"played_at"`
}

// AppendRound records one resolved round and returns its history id.
func (db *DB) AppendRound(ctx context.Context, e RoundEntry) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `
        INSERT INTO rounds(round_id, user_id, player_hand, dealer_hand, result, bet, payout_delta, blackjack)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id
    `, e.RoundID, e.UserID, e.PlayerHand, e.DealerHand, e.Result, e.Bet, e.PayoutDelta, e.Blackjack).Scan(&id)
	return id, err
}

// ListRounds returns a user's settled rounds, most recent first.
func (db *DB) ListRounds(ctx context.Context, userID string, limit int) ([]RoundEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := db.Query(ctx, `
        SELECT id, round_id, user_id, player_hand, dealer_hand, result, bet, payout_delta, blackjack, played_at
          FROM rounds
         WHERE user_id = $1
         ORDER BY id DESC
         LIMIT $2
    `, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRounds(rows)
}

// RoundsSince returns a user's settled rounds with id > sinceID in play
// order, for tailing live feeds.
func (db *DB) RoundsSince(ctx context.Context, userID string, sinceID int64) ([]RoundEntry, error) {
	rows, err := db.Query(ctx, `
        SELECT id, round_id, user_id, player_hand, dealer_hand, result, bet, payout_delta, blackjack, played_at
          FROM rounds
         WHERE user_id = $1 AND id > $2
         ORDER BY id
    `, userID, sinceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRounds(rows)
}

func scanRounds(rows pgx.Rows) ([]RoundEntry, error) {
	out := []RoundEntry{}
	for rows.Next() {
		var e RoundEntry
		if err := rows.Scan(&e.ID, &e.RoundID, &e.UserID, &e.PlayerHand, &e.DealerHand,
			&e.Result, &e.Bet, &e.PayoutDelta, &e.Blackjack, &e.PlayedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

/* -----------------------------
   Career stats
------------------------------*/

type Stats struct {
	Rounds     int   `json:"rounds"`
	Wins       int   `json:"wins"`
	Losses     int   `json:"losses"`
	Pushes     int   `json:"pushes"`
	Blackjacks int   `json:"blackjacks"`
	NetChips   int64 `json:"net_chips"`
}

// UserStats aggregates a user's settled rounds via the v_user_stats view.
// Users with no history get a zero row, not an error.
func (db *DB) UserStats(ctx context.Context, userID string) (Stats, error) {
	var s Stats
	err := db.QueryRow(ctx, `
        SELECT rounds, wins, losses, pushes, blackjacks, net_chips
          FROM v_user_stats
         WHERE user_id = $1
    `, userID).Scan(&s.Rounds, &s.Wins, &s.Losses, &s.Pushes, &s.Blackjacks, &s.NetChips)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Stats{}, nil
		}
		return Stats{}, err
	}
	return s, nil
}
