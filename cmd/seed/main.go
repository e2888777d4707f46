package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"content-studio/internal/config"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/repository"
	apiv1 "content-studio/internal/infra/api/apiv1"
	pg "content-studio/internal/infra/db/postgres"
	"content-studio/internal/infra/logging"
)

// seed inserts a few demo entities per type and prints session tokens for the
// demo users so the API can be exercised with curl.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	owner := flag.String("user", "demo-user", "owner of the seeded entities")
	flag.Parse()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	entities := pg.NewEntityRepo(pool)

	existing, err := entities.ListByOwner(ctx, repository.NoTX, model.EntityPodcast, *owner, 1)
	if err != nil {
		logger.Fatal().Err(err).Msg("list entities")
	}
	if len(existing) > 0 {
		fmt.Printf("%s already has entities. No changes.\n", *owner)
	} else {
		titles := map[model.EntityType][]string{
			model.EntityPodcast:     {"Weekly tech roundup", "Interview: distributed systems"},
			model.EntityVoiceover:   {"Product intro"},
			model.EntityInfographic: {"Quarterly metrics"},
			model.EntityDocument:    {"Release notes draft"},
		}
		for _, t := range model.EntityTypes() {
			for _, title := range titles[t] {
				e, err := model.NewEntity(t, *owner, title, time.Now())
				if err != nil {
					logger.Fatal().Err(err).Msg("new entity")
				}
				if err := entities.Save(ctx, repository.NoTX, e); err != nil {
					logger.Fatal().Err(err).Str("title", title).Msg("save entity")
				}
				fmt.Printf("seeded: %-12s %s (%s)\n", t, e.ID, title)
			}
		}
	}

	auth := apiv1.NewAuthManager(cfg.Server.JWTSecret, 7*24*time.Hour)
	userTok, err := auth.Mint(*owner, false)
	if err != nil {
		logger.Fatal().Err(err).Msg("mint user token")
	}
	adminTok, err := auth.Mint("admin", true)
	if err != nil {
		logger.Fatal().Err(err).Msg("mint admin token")
	}
	fmt.Printf("\nuser token (%s):\n%s\n\nadmin token:\n%s\n", *owner, userTok, adminTok)
}
