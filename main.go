package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"example.com/tweetfeed/cmd/server"
	"example.com/tweetfeed/cmd/worker"
	appkafka "example.com/tweetfeed/internal/broker"
	config "example.com/tweetfeed/internal/init"
	"example.com/tweetfeed/internal/logger"
	"example.com/tweetfeed/internal/media"
	"example.com/tweetfeed/internal/service"
	"example.com/tweetfeed/internal/store"
)

var logg = logger.New()

func fatal(msg string, err error) {
	logg.Error("main", msg, err)
	os.Exit(1)
}

func main() {
	// Initialize application configuration
	cfg := config.Init()
	logger.SetLevel(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		fatal("Invalid configuration", err)
	}
	if cfg.UsesDefaultSecret() {
		logg.Warn("main", "JWT_SECRET is not set, using the development secret")
	}

	// Setup OS signal handling for graceful shutdown (SIGINT, SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, cfg)
	if err != nil {
		fatal("Store connection failed", err)
	}

	images, err := media.NewOS(cfg.MediaDir, cfg.PublicBaseURL, cfg.MediaMaxBytes)
	if err != nil {
		fatal("Media store init failed", err)
	}

	// Configure Kafka client parameters
	kafkaCfg := appkafka.KafkaConfig{
		Brokers:      []string{cfg.KafkaBroker},
		Topic:        cfg.KafkaTopic,
		GroupID:      cfg.KafkaGroupID,
		WriteTimeout: cfg.KafkaWriteTO,
		ReadTimeout:  cfg.KafkaReadTO,
	}

	// Run application depending on selected mode
	switch cfg.Mode {
	case "server":
		var events service.Publisher = service.NopPublisher{}
		if cfg.KafkaEnabled {
			writer, err := appkafka.NewKafkaWriter(kafkaCfg)
			if err != nil {
				fatal("Kafka writer init failed", err)
			}
			defer writer.Close()
			events = appkafka.NewEventPublisher(writer)
		}

		s := server.New(server.Deps{
			Auth: service.NewAuthService(st, service.AuthOptions{
				Secret:     cfg.JWTSecret,
				TokenTTL:   cfg.TokenTTL,
				BcryptCost: cfg.BcryptCost,
			}),
			Users:          service.NewUserService(st, events),
			Tweets:         service.NewTweetService(st, events),
			Media:          images,
			MaxUploadBytes: cfg.MediaMaxBytes,
		})
		if err := server.Run(ctx, s, server.Options{
			Addr:     cfg.ServerAddr,
			CertFile: cfg.TLSCertFile,
			KeyFile:  cfg.TLSKeyFile,
		}); err != nil {
			fatal("Server failed", err)
		}
		st.Close()
	case "worker":
		if !cfg.KafkaEnabled {
			fatal("Worker mode needs Kafka", errors.New("KAFKA_ENABLED is false"))
		}
		// Start the worker that reads events from Kafka and repairs references.
		// Close releases both the reader and the store.
		w := worker.New(st, images, appkafka.NewKafkaReader(kafkaCfg), cfg.WorkerCount, cfg.WorkerQueue)
		w.Run(ctx)
		if err := w.Close(); err != nil {
			logg.Error("main", "Worker close failed", err)
		}
	default:
		fatal("Unknown mode", errors.New(cfg.Mode))
	}

	logg.Info("main", "Shutdown completed")
}
