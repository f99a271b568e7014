package mq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const CampaignEventsQueue = "campaign_events"

// ReportEvent is published after the coordinator acknowledged a report.
type ReportEvent struct {
	BotID      string    `json:"botid"`
	Project    string    `json:"project"`
	Fuzzer     string    `json:"fuzzer"`
	CrashCount int       `json:"crash_count"`
	Digests    []string  `json:"digests"`
	ReportedAt time.Time `json:"reported_at"`
}

type Publisher struct {
	rabbitMQ RabbitMQ
	logger   *zap.Logger
}

type PublisherParams struct {
	fx.In

	RabbitMQ RabbitMQ `optional:"true"`
	Logger   *zap.Logger
}

// NewPublisher returns nil when no broker is configured.
func NewPublisher(p PublisherParams) *Publisher {
	if p.RabbitMQ == nil {
		return nil
	}
	return &Publisher{
		rabbitMQ: p.RabbitMQ,
		logger:   p.Logger.Named("publisher"),
	}
}

func (p *Publisher) PublishReport(ctx context.Context, event ReportEvent) error {
	ch, err := p.rabbitMQ.GetChannel()
	if err != nil {
		return fmt.Errorf("get channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(
		CampaignEventsQueue,
		true,  // durable
		false, // auto-deleted
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(event); err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	err = ch.PublishWithContext(ctx,
		"",                  // default exchange
		CampaignEventsQueue, // routing key
		false,               // mandatory
		false,               // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.ReportedAt,
			Body:         buffer.Bytes(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	p.logger.Debug("published report event",
		zap.String("project", event.Project),
		zap.String("fuzzer", event.Fuzzer),
		zap.Int("crash_count", event.CrashCount))
	return nil
}
