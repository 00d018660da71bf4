/*
voteroom-tail prints the broadcasts mirrored to RabbitMQ by a running server.

Usage:

	voteroom-tail [pattern]

The pattern is an AMQP topic binding such as "room.*.vote" or "global.#" and
defaults to "#".  RABBITMQ_URL and MQ_EXCHANGE are read like the server does.
*/
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BelikovArtem/voteroom/internal/env"
	"github.com/BelikovArtem/voteroom/internal/mq"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	env.Load(".env")
	cfg, err := env.Parse()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.RabbitMQURL == "" {
		log.Fatal().Msg("RABBITMQ_URL is not set")
	}

	pattern := "#"
	if len(os.Args) > 1 {
		pattern = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := mq.NewDialer(cfg.RabbitMQURL)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot dial")
	}
	defer d.Release()

	ch, err := d.Connection.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot open channel")
	}
	if err := mq.DeclareTopology(ch, cfg.MQExchange); err != nil {
		log.Fatal().Err(err).Msg("cannot declare exchange")
	}
	queue, err := mq.DeclareTap(ch, cfg.MQExchange, pattern)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot declare tap")
	}

	log.Info().Str("exchange", cfg.MQExchange).Str("pattern", pattern).Msg("tailing")

	err = mq.Consume(ctx, ch, queue, func(d amqp091.Delivery) {
		os.Stdout.Write(append([]byte(d.RoutingKey+" "), d.Body...))
		os.Stdout.Write([]byte("\n"))
	})
	if err != nil {
		log.Error().Err(err).Msg("consume failed")
	}
}
