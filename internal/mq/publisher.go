package mq

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Time allowed to publish a single event.
const publishTimeout = 5 * time.Second

// PublishFunc publishes a single raw event under the routing key.
type PublishFunc func(ctx context.Context, routingKey string, raw []byte) error

/*
ChannelPublishFunc publishes to the exchange via the specified channel.
*/
func ChannelPublishFunc(ch *amqp091.Channel, exchange string) PublishFunc {
	return func(ctx context.Context, routingKey string, raw []byte) error {
		return ch.PublishWithContext(ctx, exchange, routingKey, false, false,
			amqp091.Publishing{
				Body:        raw,
				ContentType: "application/json",
				Timestamp:   time.Now(),
			},
		)
	}
}

type message struct {
	routingKey string
	raw        []byte
}

/*
Publisher mirrors hub broadcasts to RabbitMQ.  Publish never waits on the
broker: events are queued into a bounded buffer drained by Run, and dropped
when the buffer is full.
*/
type Publisher struct {
	queue   chan message
	publish PublishFunc
	dropped atomic.Uint64
}

func NewPublisher(publish PublishFunc, buffer int) *Publisher {
	return &Publisher{
		queue:   make(chan message, buffer),
		publish: publish,
	}
}

// Publish queues the event.  Safe for concurrent use.
func (p *Publisher) Publish(routingKey string, raw []byte) {
	select {
	case p.queue <- message{routingKey: routingKey, raw: raw}:
	default:
		n := p.dropped.Add(1)
		log.Warn().Str("key", routingKey).Uint64("dropped", n).
			Msg("mirror buffer is full, event dropped")
	}
}

// Dropped returns the number of events dropped so far.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

/*
Run publishes queued events one at a time until the context is cancelled.
Publishing errors are logged and the event is lost.
*/
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case m := <-p.queue:
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			err := p.publish(pctx, m.routingKey, m.raw)
			cancel()
			if err != nil {
				log.Error().Err(err).Str("key", m.routingKey).Msg("cannot publish event")
			}

		case <-ctx.Done():
			return
		}
	}
}
