// Command duel-server exposes a room store over HTTP and WebSocket so two
// terminal clients can duel.
package main

import (
	"flag"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordduel/internal/config"
	"github.com/robalobadob/wordduel/internal/httpserver"
	"github.com/robalobadob/wordduel/internal/store"
	"github.com/robalobadob/wordduel/internal/words"
)

func main() {
	cfgPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	dict, err := words.Load(cfg.AnswersFile, cfg.AllowedFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load word lists")
	}
	answers, allowed := dict.Stats()
	log.Info().Int("answers", answers).Int("allowed", allowed).Msg("word lists loaded")

	var backend store.Backend
	if cfg.DBPath != "" {
		sqlStore, err := store.OpenSQL(cfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
		}
		backend = sqlStore
	} else {
		log.Warn().Msg("DB_PATH empty, rooms and results are kept in memory")
		backend = store.NewMemory()
	}
	defer backend.Close()

	srv := httpserver.New(backend, httpserver.Options{
		JWTSecret:    cfg.JWTSecret,
		JWTExpires:   cfg.JWTExpires,
		ClientOrigin: cfg.ClientOrigin,
		Words:        dict,
	})
	log.Info().Str("port", cfg.Port).Msg("starting duel-server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
