package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BelikovArtem/voteroom/internal/env"
	"github.com/BelikovArtem/voteroom/internal/hub"
	"github.com/BelikovArtem/voteroom/internal/mq"
	"github.com/BelikovArtem/voteroom/internal/ws"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func main() {
	env.Load(".env")

	cfg, err := env.Parse()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mirror hub.Mirror
	if cfg.RabbitMQURL != "" {
		d, p, err := setupMirror(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("cannot set up the event mirror")
		}
		defer d.Release()
		go p.Run(ctx)
		mirror = p
	}

	h := hub.New(mirror)
	hubDone := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(hubDone)
	}()

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: newRouter(h, cfg, ws.Config{
			AllowedOrigins: cfg.AllowedOrigins,
			MaxMessageSize: cfg.MaxMessageSize,
			PongWait:       cfg.PongWait,
			RateLimit:      rate.Limit(cfg.RateLimit),
			RateBurst:      cfg.RateBurst,
		}),
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	<-hubDone
}

func setupLogger(cfg env.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "console" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func setupMirror(cfg env.Config) (mq.Dialer, *mq.Publisher, error) {
	d, err := mq.NewDialer(cfg.RabbitMQURL)
	if err != nil {
		return mq.Dialer{}, nil, err
	}

	ch, err := d.OpenChannel()
	if err != nil {
		d.Release()
		return mq.Dialer{}, nil, err
	}
	if err := mq.DeclareTopology(ch, cfg.MQExchange); err != nil {
		d.Release()
		return mq.Dialer{}, nil, err
	}

	log.Info().Str("exchange", cfg.MQExchange).Msg("event mirror enabled")
	return d, mq.NewPublisher(mq.ChannelPublishFunc(ch, cfg.MQExchange), cfg.MQBuffer), nil
}
