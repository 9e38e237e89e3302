package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Nico26122/BlackJackgame/server/game"
	"github.com/Nico26122/BlackJackgame/server/store"
	"github.com/Nico26122/BlackJackgame/server/table"
)

func Router(db *store.DB, tbl *table.Table) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{"ok": true})
	})

	r.Route("/api/table/{userID}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, tbl.Current(req.Context(), chi.URLParam(req, "userID")))
		})

		r.Post("/bet", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Amount int `json:"amount"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "bad request body: expected {\"amount\": n}")
				return
			}
			snap, err := tbl.PlaceBet(req.Context(), chi.URLParam(req, "userID"), body.Amount)
			if err != nil {
				writeGameError(w, err)
				return
			}
			writeJSON(w, snap)
		})

		r.Post("/hit", func(w http.ResponseWriter, req *http.Request) {
			snap, err := tbl.Hit(req.Context(), chi.URLParam(req, "userID"))
			if err != nil {
				writeGameError(w, err)
				return
			}
			writeJSON(w, snap)
		})

		r.Post("/stand", func(w http.ResponseWriter, req *http.Request) {
			snap, err := tbl.Stand(req.Context(), chi.URLParam(req, "userID"))
			if err != nil {
				writeGameError(w, err)
				return
			}
			writeJSON(w, snap)
		})

		r.Get("/advice", func(w http.ResponseWriter, req *http.Request) {
			hint, err := tbl.Advice(req.Context(), chi.URLParam(req, "userID"))
			if err != nil {
				writeGameError(w, err)
				return
			}
			writeJSON(w, map[string]any{"advice": hint})
		})
	})

	r.Get("/api/balance/{userID}", func(w http.ResponseWriter, req *http.Request) {
		userID := chi.URLParam(req, "userID")
		chips, err := tbl.Balance(req.Context(), userID)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, map[string]any{"user_id": userID, "chips": chips})
	})

	r.Get("/api/history/{userID}", func(w http.ResponseWriter, req *http.Request) {
		userID := chi.URLParam(req, "userID")
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		rows, err := db.ListRounds(req.Context(), userID, limit)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, map[string]any{"rows": rows})
	})

	r.Get("/api/stats/{userID}", func(w http.ResponseWriter, req *http.Request) {
		stats, err := db.UserStats(req.Context(), chi.URLParam(req, "userID"))
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, stats)
	})

	// SSE tail of a user's resolved rounds. Consumers that want to animate
	// a round replay each entry's dealer draws at their own pace; the
	// outcomes streamed here are already final.
	r.Get("/api/live/{userID}", func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		userID := chi.URLParam(req, "userID")
		var sinceID int64
		if s := req.URL.Query().Get("since"); s != "" {
			if v, err := strconv.ParseInt(s, 10, 64); err == nil {
				sinceID = v
			}
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "stream unsupported")
			return
		}

		enc := json.NewEncoder(w)
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rows, err := db.RoundsSince(ctx, userID, sinceID)
				if err != nil {
					return
				}
				for _, row := range rows {
					w.Write([]byte("event: round\n"))
					w.Write([]byte("data: "))
					_ = enc.Encode(row)
					w.Write([]byte("\n"))
					sinceID = row.ID
				}
				if len(rows) > 0 {
					flusher.Flush()
				}
			}
		}
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}

// writeGameError maps round errors to responses: rule violations are 400s
// the player can recover from, anything else is a persistence problem.
func writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrInvalidBet):
		writeError(w, http.StatusBadRequest, "invalid bet: amount must be positive and within your balance")
	case errors.Is(err, game.ErrInvalidAction):
		writeError(w, http.StatusBadRequest, "invalid action: not available in the current round state")
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
