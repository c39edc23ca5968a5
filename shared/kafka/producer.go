package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"emarknews/types"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// RefreshPublisher announces completed full writes on a topic, keyed by
// category so one category's events stay ordered.
type RefreshPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewRefreshPublisher(brokers []string, topic string, logger *zap.Logger) (*RefreshPublisher, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, errors.New("kafka publisher needs brokers and a topic")
	}
	cfg := newSaramaConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewRefreshPublisherWithProducer(producer, topic, logger), nil
}

func NewRefreshPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *zap.Logger) *RefreshPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefreshPublisher{producer: producer, topic: topic, logger: logger}
}

func (p *RefreshPublisher) PublishRefresh(ctx context.Context, event types.RefreshEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode refresh event: %w", err)
	}
	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.Category),
		Value: sarama.ByteEncoder(body),
	})
	if err != nil {
		return fmt.Errorf("failed to publish refresh event: %w", err)
	}
	p.logger.Debug("refresh event published",
		zap.String("category", event.Category),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

func (p *RefreshPublisher) Close() error {
	return p.producer.Close()
}
