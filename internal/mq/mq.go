/*
Package mq manages the connection with RabbitMQ and provides functions for
opening channels, declaring the event exchange and mirroring the hub
broadcasts into it.
*/
package mq

import (
	"context"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

/*
Dialer wraps a single AMQP connection to RabbitMQ.  Only a single connection is
used; publishers and consumers open their own channels on it.
*/
type Dialer struct {
	Connection *amqp091.Connection
}

// NewDialer connects to RabbitMQ using the provided URL.
func NewDialer(url string) (Dialer, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return Dialer{}, fmt.Errorf("cannot connect to RabbitMQ: %w", err)
	}
	return Dialer{Connection: conn}, nil
}

/*
OpenChannel opens a unique channel and puts it into a confirm mode, which allows
waiting for ACK or NACK from the server.
*/
func (d Dialer) OpenChannel() (*amqp091.Channel, error) {
	ch, err := d.Connection.Channel()
	if err != nil {
		return nil, fmt.Errorf("cannot open a RabbitMQ channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("cannot put channel into confirm mode: %w", err)
	}
	return ch, nil
}

// Release closes the connection and every channel opened on it.
func (d Dialer) Release() {
	if err := d.Connection.Close(); err != nil {
		log.Warn().Err(err).Msg("cannot close RabbitMQ connection")
	}
}

/*
DeclareTopology declares the topic exchange the broadcasts are published to.
Routing keys are "room.<roomId>.<action>" for room broadcasts and
"global.<action>" for broadcasts to every client.
*/
func DeclareTopology(ch *amqp091.Channel, exchange string) error {
	err := ch.ExchangeDeclare(exchange, "topic", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("cannot declare exchange %q: %w", exchange, err)
	}
	return nil
}

/*
DeclareTap declares an exclusive queue bound to the exchange with the given
binding pattern.  The queue is deleted when the consumer goes away.  Returns the
generated queue name.
*/
func DeclareTap(ch *amqp091.Channel, exchange, pattern string) (string, error) {
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return "", fmt.Errorf("cannot declare tap queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, pattern, exchange, false, nil); err != nil {
		return "", fmt.Errorf("cannot bind %q to %q: %w", q.Name, exchange, err)
	}
	return q.Name, nil
}

/*
Consume consumes the queue with the specified name until the context is
cancelled or the channel is closed.  Every delivery is passed to handle and
then acknowledged.
*/
func Consume(ctx context.Context, ch *amqp091.Channel, queue string, handle func(amqp091.Delivery)) error {
	deliveries, err := ch.ConsumeWithContext(ctx, queue, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("cannot consume queue %q: %w", queue, err)
	}

	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			handle(d)
			// Acknowledge the received event.
			d.Ack(false)

		case <-ctx.Done():
			return nil
		}
	}
}
