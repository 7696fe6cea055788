package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wordoff/server/internal/gateway"
	"github.com/wordoff/server/internal/httpserver"
	"github.com/wordoff/server/internal/identity"
	"github.com/wordoff/server/internal/queue"
	"github.com/wordoff/server/internal/words"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	dict := words.Open(getEnv("WORDS_FILE", "data/words.json"))

	db, err := openDB(getEnv("SQLITE_PATH", "./data/wordoff.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	players := identity.NewStore(db)
	if err := players.EnsureSchema(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("apply schema")
	}

	gw := gateway.New(dict, queue.New(), gateway.DefaultConfig())
	srv := httpserver.New(gw, players)

	port := getEnv("PORT", "3001")
	log.Info().Str("port", port).Int("words", dict.Len()).Msg("starting wordoff-server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
