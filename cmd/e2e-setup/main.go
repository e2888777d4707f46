package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"content-studio/internal/config"
	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/repository"
	"content-studio/internal/infra/db/postgres"
	"content-studio/internal/infra/redis"
)

// This script is for setting up a clean, predictable database state
// for manual end-to-end testing.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()
	ctx := context.Background()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	// --- Connect to Postgres ---
	pool, err := postgres.NewPgxPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	// 1. Clean the server-side cache to remove any stale data.
	if cfg.Redis.URL != "" {
		log.Println("[1/3] Wiping Redis cache namespace...")
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisClient.Close()
		n, err := redis.NewCacheStore(redisClient, "studio").DelPrefix(ctx, "")
		if err != nil {
			log.Fatalf("failed to wipe cache: %v", err)
		}
		log.Printf("      removed %d keys", n)
	} else {
		log.Println("[1/3] No redis.url, skipping cache wipe")
	}

	// 2. Clean the database completely.
	log.Println("[2/3] Wiping all existing database data...")
	if _, err = pool.Exec(ctx, `TRUNCATE jobs, entities, activity_log;`); err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	// 3. Seed entities with fixed ids so test scripts can address them.
	log.Println("[3/3] Seeding fixed test entities...")
	seedEntities(ctx, pool)

	log.Println("--- E2E Environment Setup Complete ---")
}

func seedEntities(ctx context.Context, pool *pgxpool.Pool) {
	repo := postgres.NewEntityRepo(pool)
	fixtures := []struct {
		id    string
		t     model.EntityType
		owner string
		title string
	}{
		{"pod_e2e_alice", model.EntityPodcast, "alice", "Alice's podcast"},
		{"pod_e2e_bob", model.EntityPodcast, "bob", "Bob's podcast"},
		{"voc_e2e_alice", model.EntityVoiceover, "alice", "Alice's voiceover"},
		{"inf_e2e_alice", model.EntityInfographic, "alice", "Alice's infographic"},
		{"doc_e2e_alice", model.EntityDocument, "alice", "Alice's document"},
	}
	for _, f := range fixtures {
		e, err := model.NewEntity(f.t, f.owner, f.title, time.Now())
		if err != nil {
			log.Fatalf("fixture %s: %v", f.id, err)
		}
		e.ID = f.id
		if err := repo.Save(ctx, repository.NoTX, e); err != nil {
			log.Printf("failed to save %s: %v", f.id, err)
			continue
		}
		log.Printf("      %s (%s, owner=%s)", f.id, f.t, f.owner)
	}
}
