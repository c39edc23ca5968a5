package kafka

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// MessageHandler processes one consumed message. The message is marked
// when shouldMark is true; a false mark leaves it for redelivery.
type MessageHandler interface {
	HandleMessage(ctx context.Context, message []byte) (shouldMark bool, err error)
}

// Consumer runs a consumer group over one topic with a pluggable handler.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	topic   string
	groupID string
	logger  *zap.Logger
	ready   chan bool
}

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Handler MessageHandler
	Logger  *zap.Logger
}

func newSaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = true
	return cfg
}

func NewConsumer(config ConsumerConfig) (*Consumer, error) {
	if len(config.Brokers) == 0 || config.Topic == "" {
		return nil, errors.New("kafka consumer needs brokers and a topic")
	}
	group, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, newSaramaConfig())
	if err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		group:   group,
		handler: config.Handler,
		topic:   config.Topic,
		groupID: config.GroupID,
		logger:  logger,
		ready:   make(chan bool),
	}, nil
}

// Start consumes in the background until ctx is done. It returns once the
// first session is set up, or when ctx ends first.
func (c *Consumer) Start(ctx context.Context) error {
	handler := &consumerGroupHandler{
		messageHandler: c.handler,
		logger:         c.logger,
		ready:          c.ready,
	}

	go func() {
		for {
			if err := c.group.Consume(ctx, []string{c.topic}, handler); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, sarama.ErrClosedConsumerGroup) {
					c.logger.Info("kafka consumer stopped", zap.String("topic", c.topic))
					return
				}
				c.logger.Error("kafka consume failed", zap.String("topic", c.topic), zap.Error(err))
			}
			if ctx.Err() != nil {
				return
			}
			handler.ready = make(chan bool)
		}
	}()

	go func() {
		for err := range c.group.Errors() {
			c.logger.Error("kafka consumer error", zap.Error(err))
		}
	}()

	select {
	case <-c.ready:
		c.logger.Info("kafka consumer started", zap.String("group", c.groupID), zap.String("topic", c.topic))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) Close() error {
	c.logger.Info("closing kafka consumer", zap.String("topic", c.topic))
	return c.group.Close()
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler.
type consumerGroupHandler struct {
	messageHandler MessageHandler
	logger         *zap.Logger
	ready          chan bool
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	select {
	case <-h.ready:
	default:
		close(h.ready)
	}
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}
			h.logger.Debug("kafka message received",
				zap.String("topic", message.Topic),
				zap.Int32("partition", message.Partition),
				zap.Int64("offset", message.Offset))

			shouldMark, err := h.messageHandler.HandleMessage(session.Context(), message.Value)
			if err != nil {
				h.logger.Warn("failed to handle kafka message", zap.Int64("offset", message.Offset), zap.Error(err))
			}
			if shouldMark {
				session.MarkMessage(message, "")
			}

		case <-session.Context().Done():
			return nil
		}
	}
}

// TypedMessageHandler decodes JSON messages into T before processing.
type TypedMessageHandler[T any] struct {
	// Validate reports whether the message should be processed.
	Validate func(msg *T) bool
	Process  func(ctx context.Context, msg *T) error
	// AlwaysMark marks undecodable and invalid messages so they are skipped.
	AlwaysMark bool
	Logger     *zap.Logger
}

func (h *TypedMessageHandler[T]) HandleMessage(ctx context.Context, message []byte) (bool, error) {
	var msg T
	if err := json.Unmarshal(message, &msg); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("failed to unmarshal kafka message", zap.Error(err))
		}
		return h.AlwaysMark, nil
	}

	if h.Validate != nil && !h.Validate(&msg) {
		return h.AlwaysMark, nil
	}

	if err := h.Process(ctx, &msg); err != nil {
		return false, err
	}
	return true, nil
}
