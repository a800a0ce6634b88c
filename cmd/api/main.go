package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"showroom-backend/internal/config"
	"showroom-backend/internal/interfaces/router"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	setupLogger(cfg)

	app, services, err := router.CreateApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("app create")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if services != nil {
		sqlDB, err := services.DB.DB()
		if err != nil {
			log.Fatal().Err(err).Msg("database handle")
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("database connection failed")
		}
		log.Info().Str("driver", cfg.DatabaseDriver).Msg("database connected")
		if services.Redis != nil {
			if err := services.Redis.Ping(ctx).Err(); err != nil {
				log.Fatal().Err(err).Msg("redis connection failed")
			}
			log.Info().Msg("redis connected")
		}
		if cfg.RunSweeper {
			go services.Sweeper.Run(ctx)
		}
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		_ = app.Shutdown()
	}()

	log.Info().Str("port", cfg.Port).Msg("server running, health at /health/json")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}
