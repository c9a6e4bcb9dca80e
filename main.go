package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"skitbot/api"
	"skitbot/catalog"
	"skitbot/common"
	"skitbot/config"
	"skitbot/orchestrator"
	"skitbot/script"
	kafka "skitbot/shared/kafka"
	"skitbot/speech"
	"skitbot/storage"
	"skitbot/store"
	"skitbot/timing"
	"skitbot/types"
	"skitbot/video"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Printf("⚠️  close error: %v", err)
			}
		}
	}()

	records, closer, err := initializeStore(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to initialize record store: %v", err)
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	objects, err := initializeStorage(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("❌ Failed to initialize object storage: %v", err)
	}

	synth, closer, err := initializeSpeech(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize speech synthesis: %v", err)
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	completer, err := initializeCompleter(ctx, cfg.Script)
	if err != nil {
		log.Fatalf("❌ Failed to initialize script provider: %v", err)
	}
	log.Printf("✅ Script provider: %s", completer.Name())

	compositor := video.NewCompositor(video.Config{
		FFmpegPath:    cfg.Video.FFmpegPath,
		BaseImageSize: cfg.Video.BaseImageSize,
		ProbeTimeout:  cfg.Video.ProbeTimeout,
	})

	deps := orchestrator.Deps{
		Store:   records,
		Scripts: script.NewGenerator(completer),
		Speech:  synth,
		Media:   compositor,
		Objects: objects,
	}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewEventProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.EventTopic})
		if err != nil {
			log.Fatalf("❌ Failed to create event producer: %v", err)
		}
		closers = append(closers, producer)
		deps.Notifier = producer
	}

	svc, err := orchestrator.New(deps, orchestrator.Options{
		ProcessingDir: cfg.Video.ProcessingDir,
		Quality:       video.Quality(cfg.Video.Quality),
		Estimator:     timing.NewEstimator(cfg.Speech.WordsPerSecond, cfg.Speech.Pause),
	})
	if err != nil {
		log.Fatalf("❌ Failed to create orchestrator: %v", err)
	}

	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		consumer, err = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.RequestTopic,
			GroupID: cfg.Kafka.GroupID,
			Handler: kafka.NewCompositionRequestHandler(func(ctx context.Context, req types.CompositionRequest) error {
				comp, err := svc.StartComposition(ctx, orchestrator.StartRequest{
					TemplateID:       req.TemplateID,
					Plot:             req.Plot,
					Title:            req.Title,
					SubtitlePosition: req.SubtitlePosition,
				})
				if err != nil {
					return err
				}
				log.Printf("📥 Composition %s queued from kafka", comp.ID)
				return nil
			}),
		})
		if err != nil {
			log.Fatalf("❌ Failed to create request consumer: %v", err)
		}
		if err := consumer.Start(ctx); err != nil {
			log.Fatalf("❌ Failed to start request consumer: %v", err)
		}
	}

	sweeper := orchestrator.NewSweeper(cfg.Video.ProcessingDir, cfg.Sweeper.MaxAge, svc.Busy)
	if err := sweeper.Start(cfg.Sweeper.Schedule); err != nil {
		log.Fatalf("❌ Failed to start scratch sweeper: %v", err)
	}

	catalogSvc, err := catalog.New(records, objects, compositor, "")
	if err != nil {
		log.Fatalf("❌ Failed to create catalog: %v", err)
	}

	router := api.NewRouter(api.Deps{
		Compositions: svc,
		Catalog:      catalogSvc,
		Manager:      catalogSvc,
		Voices:       synth,
		Presigner:    objects,
		GinLog:       cfg.Server.GinLog,
	})
	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: router}

	go func() {
		log.Printf("🚀 Starting API server on %s", srv.Addr)
		log.Println("API endpoints available:")
		log.Println("  GET  /api/health")
		log.Println("  POST /api/compositions")
		log.Println("  GET  /api/compositions")
		log.Println("  GET  /api/compositions/:id[/status]")
		log.Println("  GET  /api/compositions/:id/download")
		log.Println("  POST /api/compositions/:id/regenerate")
		log.Println("  POST /api/generate")
		log.Println("  GET  /api/generate/:id")
		log.Println("  GET  /api/templates[/:id]")
		log.Println("  POST /api/templates, PUT|DELETE /api/templates/:id")
		log.Println("  POST|DELETE /api/templates/:id/characters")
		log.Println("  GET  /api/characters[/:id]")
		log.Println("  POST /api/characters, PUT|DELETE /api/characters/:id")
		log.Println("  GET  /api/voices")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("❌ server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  HTTP shutdown: %v", err)
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.Printf("⚠️  consumer close: %v", err)
		}
	}
	sweeper.Stop()
	if err := svc.Wait(shutdownCtx); err != nil {
		log.Printf("⚠️  pipelines still running at shutdown: %v", err)
	}
	log.Println("=== Shutdown Complete ===")
}

// initializeStore returns the Postgres store when DATABASE_URL is set and a
// seeded in-memory store otherwise.
func initializeStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, io.Closer, error) {
	if cfg.URL == "" {
		log.Printf("⚠️  DATABASE_URL not set; using in-memory store with demo data")
		mem := store.NewMemoryStore()
		if _, err := store.Seed(ctx, mem, seedAssetsFromEnv()); err != nil {
			return nil, nil, err
		}
		return mem, nil, nil
	}
	pg, err := store.NewPostgresStore(ctx, store.PostgresConfig{
		DSN:          cfg.URL,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
		Verbose:      cfg.Verbose,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Println("✅ Connected to Postgres")
	return pg, pg, nil
}

func initializeStorage(ctx context.Context, cfg config.StorageConfig) (*storage.Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required")
	}
	client, err := common.NewS3(ctx, common.S3Config{
		Region:       cfg.Region,
		Profile:      cfg.Profile,
		Endpoint:     cfg.Endpoint,
		UsePathStyle: cfg.UsePathStyle,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("✅ S3 bucket: %s (%s)", cfg.Bucket, cfg.Region)
	return storage.New(client, storage.Config{
		Bucket:        cfg.Bucket,
		Region:        cfg.Region,
		PublicBaseURL: cfg.PublicBaseURL,
		PresignTTL:    cfg.PresignTTL,
	})
}

// initializeSpeech builds the ElevenLabs synthesizer with a Redis cache when
// REDIS_ADDR is set and a process-local cache otherwise.
func initializeSpeech(cfg config.Config) (*speech.Synthesizer, io.Closer, error) {
	provider, err := speech.NewElevenLabs(speech.ElevenLabsConfig{
		APIKey:       cfg.Speech.APIKey,
		BaseURL:      cfg.Speech.BaseURL,
		Model:        cfg.Speech.Model,
		OutputFormat: cfg.Speech.OutputFormat,
	})
	if err != nil {
		return nil, nil, err
	}

	var (
		cache  speech.Cache
		closer io.Closer
	)
	if cfg.Redis.Addr != "" {
		rc, err := speech.NewRedisCache(speech.RedisCacheConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Printf("✅ Speech cache: redis %s", cfg.Redis.Addr)
		cache, closer = rc, rc
	} else {
		cache = speech.NewMemoryCache()
	}

	settings := &speech.VoiceSettings{
		Stability:       cfg.Speech.Stability,
		SimilarityBoost: cfg.Speech.SimilarityBoost,
		Style:           cfg.Speech.Style,
		UseSpeakerBoost: cfg.Speech.SpeakerBoost,
	}
	prober := video.FFProbe{Timeout: cfg.Video.ProbeTimeout}
	return speech.NewSynthesizer(provider, cache, prober, cfg.Speech.CacheDir, settings), closer, nil
}

func initializeCompleter(ctx context.Context, cfg config.ScriptConfig) (script.Completer, error) {
	switch cfg.Provider {
	case "cohere":
		return script.NewCohereCompleter(cfg.CohereAPIKey, cfg.Model)
	case "gemini":
		return script.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.Model)
	default:
		return script.NewOpenAICompleter(script.OpenAIConfig{
			APIKey:           cfg.APIKey,
			BaseURL:          cfg.BaseURL,
			Model:            cfg.Model,
			StructuredOutput: cfg.StructuredOutput,
		})
	}
}

func seedAssetsFromEnv() store.SeedAssets {
	return store.SeedAssets{
		TemplateVideoURL: config.GetEnvOrDefault("SEED_TEMPLATE_VIDEO_URL", ""),
		PeterImageURL:    config.GetEnvOrDefault("SEED_PETER_IMAGE_URL", ""),
		StewieImageURL:   config.GetEnvOrDefault("SEED_STEWIE_IMAGE_URL", ""),
		PeterVoiceID:     config.GetEnvOrDefault("SEED_PETER_VOICE_ID", ""),
		StewieVoiceID:    config.GetEnvOrDefault("SEED_STEWIE_VOICE_ID", ""),
	}
}
