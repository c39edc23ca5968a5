package kafka

import (
	"context"

	"emarknews/types"

	"go.uber.org/zap"
)

// FeedbackSink receives feedback read from the topic.
type FeedbackSink interface {
	RecordFeedback(f types.Feedback) error
}

// NewFeedbackHandler decodes feedback messages and hands them to sink.
// Invalid feedback is marked and dropped; it would never become valid.
func NewFeedbackHandler(sink FeedbackSink, logger *zap.Logger) *TypedMessageHandler[types.Feedback] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TypedMessageHandler[types.Feedback]{
		Validate: func(f *types.Feedback) bool {
			if msg := f.Validate(); msg != "" {
				logger.Debug("dropping invalid feedback", zap.String("reason", msg))
				return false
			}
			return true
		},
		Process: func(_ context.Context, f *types.Feedback) error {
			if err := sink.RecordFeedback(*f); err != nil {
				logger.Warn("feedback rejected", zap.String("category", f.Category), zap.Error(err))
			}
			return nil
		},
		AlwaysMark: true,
		Logger:     logger,
	}
}
