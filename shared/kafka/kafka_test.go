package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"emarknews/types"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	got []types.Feedback
	err error
}

func (r *recordingSink) RecordFeedback(f types.Feedback) error {
	r.got = append(r.got, f)
	return r.err
}

func TestFeedbackHandler(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		wantMark bool
		wantSeen int
	}{
		{"valid", `{"category":"world","domain":"bbc.co.uk","delta":0.05}`, true, 1},
		{"no target", `{"category":"world","delta":0.05}`, true, 0},
		{"zero delta", `{"category":"world","topic":"sports","delta":0}`, true, 0},
		{"garbage", `{not json`, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			h := NewFeedbackHandler(sink, nil)

			mark, err := h.HandleMessage(context.Background(), []byte(tt.message))
			require.NoError(t, err)
			assert.Equal(t, tt.wantMark, mark)
			assert.Len(t, sink.got, tt.wantSeen)
		})
	}
}

func TestFeedbackHandlerMarksRejectedFeedback(t *testing.T) {
	sink := &recordingSink{err: errors.New("unknown category")}
	h := NewFeedbackHandler(sink, nil)

	mark, err := h.HandleMessage(context.Background(), []byte(`{"category":"nope","topic":"general","delta":0.1}`))
	assert.NoError(t, err)
	assert.True(t, mark)
}

func TestTypedHandlerLeavesFailedMessagesUnmarked(t *testing.T) {
	h := &TypedMessageHandler[types.RefreshEvent]{
		Process: func(context.Context, *types.RefreshEvent) error { return errors.New("downstream busy") },
	}
	mark, err := h.HandleMessage(context.Background(), []byte(`{"category":"world"}`))
	assert.Error(t, err)
	assert.False(t, mark)
}

func TestRefreshPublisher(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)

	event := types.RefreshEvent{
		CycleID:   "c-1",
		Category:  "world",
		Sequence:  42,
		Total:     7,
		Timestamp: time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC),
	}
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, _ := msg.Key.Encode()
		if string(key) != "world" {
			return errors.New("wrong key " + string(key))
		}
		body, _ := msg.Value.Encode()
		var got types.RefreshEvent
		if err := json.Unmarshal(body, &got); err != nil {
			return err
		}
		if got.Sequence != 42 || got.Total != 7 {
			return errors.New("wrong payload")
		}
		return nil
	})

	p := NewRefreshPublisherWithProducer(producer, "news.refresh", nil)
	require.NoError(t, p.PublishRefresh(context.Background(), event))
	require.NoError(t, p.Close())
}

func TestRefreshPublisherReportsFailure(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewRefreshPublisherWithProducer(producer, "news.refresh", nil)
	err := p.PublishRefresh(context.Background(), types.RefreshEvent{Category: "world"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestNewConsumerNeedsTopic(t *testing.T) {
	_, err := NewConsumer(ConsumerConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)
}
