package eventlog

import (
	"context"

	"soori/internal/eventlog/domain"
)

// Sink delivers events somewhere (a webhook, OTel logs, Kafka, Postgres). Best-effort; the recorder logs and ignores errors.
type Sink interface {
	Emit(ctx context.Context, event *domain.Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event *domain.Event) error

func (f SinkFunc) Emit(ctx context.Context, event *domain.Event) error { return f(ctx, event) }
