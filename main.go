package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"examwatch/config"
	"examwatch/controllers"
	"examwatch/middleware"
	"examwatch/monitor"
	"examwatch/presence"
	"examwatch/routes"
	"examwatch/translog"
)

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	setupLogging(cfg)

	// The transition log restarts empty with every exam run.
	writer, err := translog.Open(cfg.LogFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open transition log")
	}
	defer writer.Close()
	log.Info().Str("path", writer.Path()).Msg("transition log reset")

	registry := presence.NewRegistry(cfg.Timeout, writer)
	hub := controllers.NewHub(registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mon := monitor.New(registry, hub, cfg.ProbeInterval)
	go mon.Run(ctx)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	routes.ExamRouter(r, hub, cfg)

	srv := &http.Server{Addr: cfg.ListenAddr(), Handler: r}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
		hub.CloseAll()
	}()

	log.Info().Str("addr", cfg.ListenAddr()).
		Dur("timeout", cfg.Timeout).
		Dur("probe_interval", cfg.ProbeInterval).
		Msg("exam monitor listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
}
