// Package worker moves events from Kafka to Loki.
package worker

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const pushTimeout = 10 * time.Second

// MessageReader is the subset of *kafka.Reader used by Run.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Pusher is the subset of *loki.Client used by Run.
type Pusher interface {
	PushEventJSON(ctx context.Context, rawJSON []byte) error
}

// NewReader returns a consumer-group reader for topic.
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
}

// Run reads messages until ctx is cancelled and pushes each one. Read and push failures are logged and skipped.
func Run(ctx context.Context, reader MessageReader, pusher Pusher, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("worker stopped")
				return
			}
			logger.Warn("kafka read failed", zap.Error(err))
			continue
		}

		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
		if err := pusher.PushEventJSON(pushCtx, msg.Value); err != nil {
			logger.Warn("loki push failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
		cancel()
	}
}
