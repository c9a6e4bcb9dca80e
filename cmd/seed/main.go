package main

import (
	"context"
	"log"
	"time"

	"skitbot/config"
	"skitbot/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatalf("❌ DATABASE_URL is required for seeding")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pg, err := store.NewPostgresStore(ctx, store.PostgresConfig{
		DSN:          cfg.Database.URL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		Verbose:      cfg.Database.Verbose,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to Postgres: %v", err)
	}
	defer pg.Close()

	tmpl, err := store.Seed(ctx, pg, store.SeedAssets{
		TemplateVideoURL: config.GetEnvOrDefault("SEED_TEMPLATE_VIDEO_URL", ""),
		PeterImageURL:    config.GetEnvOrDefault("SEED_PETER_IMAGE_URL", ""),
		StewieImageURL:   config.GetEnvOrDefault("SEED_STEWIE_IMAGE_URL", ""),
		PeterVoiceID:     config.GetEnvOrDefault("SEED_PETER_VOICE_ID", ""),
		StewieVoiceID:    config.GetEnvOrDefault("SEED_STEWIE_VOICE_ID", ""),
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("=== Seeding Complete ===")
	log.Printf("Template: %s (%s)", tmpl.Name, tmpl.ID)
	for _, ch := range tmpl.Characters {
		log.Printf("  %s -> %s", ch.Name, ch.ID)
	}
	log.Printf("Try: POST /api/compositions {\"template_id\":%q,\"plot\":\"...\"}", tmpl.ID)
}
