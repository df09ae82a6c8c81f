package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"book-service/internal/api"
	"book-service/internal/auth"
	"book-service/internal/config"
	"book-service/internal/events"
	"book-service/internal/ratelimit"
	"book-service/internal/repository"
	"book-service/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		logger.Warn().Str("level", cfg.LogLevel).Msg("Unknown LOG_LEVEL, using info")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	logger.Info().Stringer("config", cfg).Msg("Configuration loaded")

	// Book events are optional
	var publisher events.Publisher = events.NopPublisher{}
	var kafkaWriter *kafka.Writer
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaWriter = config.NewKafkaWriter(cfg.Kafka, func(err error) {
			logger.Error().Err(err).Msg("Error delivering book event")
		})
		publisher = events.NewKafkaPublisher(kafkaWriter)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Publishing book events")
	}

	// Initialize services
	bookService := service.NewBookService(repository.NewBookRepository(), publisher)
	userService := service.NewUserService(
		repository.NewUserRepository(),
		auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
	)

	e := api.NewServer(api.Deps{
		Books:             bookService,
		Users:             userService,
		Limiter:           ratelimit.NewWindowStore(cfg.RateLimit.Limit, cfg.RateLimit.Window),
		AllowedOrigins:    cfg.HTTP.AllowedOrigins,
		AuthRatePerSecond: cfg.RateLimit.AuthRatePerSecond,
		AuthBurst:         cfg.RateLimit.AuthBurst,
		Logger:            logger,
	})

	// Start the server
	go func() {
		logger.Info().Str("port", cfg.HTTP.Port).Msg("Starting book-service")
		if err := e.Start(":" + cfg.HTTP.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server stopped")
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Shutdown error")
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing kafka writer")
		}
	}
}
