// Package amqp publishes domain events so interested consumers (dashboards,
// audit tooling) can react to data changes without polling. Publishing is
// best effort: the API works without a broker.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	RoutingKeyReportGenerated      = "report.generated"
	RoutingKeyTransactionsImported = "transactions.imported"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
}

func NewClient(url, exchangeName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
	}

	// Topic exchange so consumers can bind to the event kinds they care
	// about ("report.*", "transactions.*").
	err = channel.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return client, nil
}

// PublishReportGenerated announces a freshly registered report artifact.
func (c *Client) PublishReportGenerated(ctx context.Context, reportID, ownerID string) error {
	msg := NewReportGeneratedMessage(reportID, ownerID)
	if err := c.publish(ctx, RoutingKeyReportGenerated, msg); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published report generated event",
		"report_id", reportID,
		"owner_id", ownerID,
		"exchange", c.exchangeName)
	return nil
}

// PublishTransactionsImported announces a completed CSV bulk import.
func (c *Client) PublishTransactionsImported(ctx context.Context, ownerID string, count int) error {
	msg := NewTransactionsImportedMessage(ownerID, count)
	if err := c.publish(ctx, RoutingKeyTransactionsImported, msg); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published transactions imported event",
		"owner_id", ownerID,
		"count", count,
		"exchange", c.exchangeName)
	return nil
}

// ConsumeReportGenerated binds a durable queue to the report.generated
// routing key and feeds each message to handler. Blocks until ctx is done
// or the delivery channel closes. Messages that fail to decode are dropped;
// handler failures are requeued.
func (c *Client) ConsumeReportGenerated(ctx context.Context, queueName string, handler func(*ReportGeneratedMessage) error) error {
	_, err := c.channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		queueName,
		RoutingKeyReportGenerated,
		c.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	msgs, err := c.channel.Consume(
		queueName, // queue
		"",        // consumer
		false,     // auto-ack (we want manual ack)
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming report events", "queue", queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			msg, err := ReportGeneratedMessageFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			if err := handler(msg); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message",
					"error", err,
					"report_id", msg.ReportID,
					"owner_id", msg.OwnerID)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (c *Client) publish(ctx context.Context, routingKey string, msg jsonMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
