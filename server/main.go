package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Nico26122/BlackJackgame/server/advice"
	"github.com/Nico26122/BlackJackgame/server/store"
	"github.com/Nico26122/BlackJackgame/server/table"
)

func mustEnv(keys ...string) {
	for _, k := range keys {
		if os.Getenv(k) == "" {
			log.Fatalf("Missing required env var %s. Put it in .env (dev) or set it on the host (prod).", k)
		}
	}
}
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func atoiDef(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
func asBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	_ = godotenv.Load()

	var migrate bool
	for _, a := range os.Args[1:] {
		if a == "--migrate" {
			migrate = true
		}
	}

	mustEnv("DATABASE_URL")
	dsn := os.Getenv("DATABASE_URL")
	port := getenv("PORT", "8080")
	startChips := atoiDef(os.Getenv("STARTING_CHIPS"), 1000)

	db, err := store.Open(dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close(context.Background())

	if migrate || asBool(os.Getenv("AUTO_MIGRATE")) {
		if err := store.Migrate(context.Background(), db); err != nil {
			log.Fatal(err)
		}
		log.Println("migrated")
		if migrate {
			return
		}
	}

	// Advice degrades to the built-in strategy table when no model is set.
	adv := advice.New(getenv("ADVICE_MODEL", os.Getenv("OPENAI_MODEL")))
	tbl := table.New(db, adv, startChips)

	// No WriteTimeout: /api/live holds its response open for SSE.
	srv := &http.Server{Addr: ":" + port, Handler: Router(db, tbl), ReadTimeout: 15 * time.Second}
	go func() {
		log.Printf("listening on http://localhost:%s (Ctrl+C to stop)", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
