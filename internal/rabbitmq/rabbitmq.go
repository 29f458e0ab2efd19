package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"handoff_service/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func New(urlForConn string, queueNames ...string) (*RabbitMQClient, error) {
	const op = "rabbitmq.New"

	conn, err := amqp.Dial(urlForConn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, name := range queueNames {
		_, err := ch.QueueDeclare(
			name, true, false, false, false, nil,
		)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return &RabbitMQClient{
		conn:    conn,
		channel: ch,
	}, nil
}

// SendCodeIssued publishes the notification the bot delivers as a DM.
func (r *RabbitMQClient) SendCodeIssued(ctx context.Context, queue string, msg models.CodeIssued) error {
	const op = "rabbitmq.SendCodeIssued"

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return r.channel.PublishWithContext(
		ctx,
		"",
		queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

// StartReading consumes a queue until the context is cancelled, invoking
// handle for every delivery. Deliveries are acked only after handle returns,
// so a crash mid-handle redelivers the message.
func (r *RabbitMQClient) StartReading(ctx context.Context, queue string, handle func(msg []byte)) error {
	const op = "rabbitmq.StartReading"

	deliveries, err := r.channel.Consume(
		queue, "", false, false, false, false, nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%s: delivery channel closed", op)
			}

			handle(d.Body)

			if err := d.Ack(false); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}
	}
}

func (r *RabbitMQClient) Close() {
	_ = r.channel.Close()
	_ = r.conn.Close()
}
