package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"soori/internal/eventlog/domain"
)

// InstrumentationName is the OTel logger name for diagnostic events.
const InstrumentationName = "soori.eventlog"

// EventSink writes events as OTel log records. The zero value drops everything.
type EventSink struct {
	logger otellog.Logger
}

// NewEventSink returns a sink that emits through provider. A nil provider yields a no-op sink.
func NewEventSink(provider *sdklog.LoggerProvider) *EventSink {
	if provider == nil {
		return &EventSink{}
	}
	return &EventSink{logger: provider.Logger(InstrumentationName)}
}

// NewEventSinkWithLogger returns a sink that emits through logger. Used by tests to capture records.
func NewEventSinkWithLogger(logger otellog.Logger) *EventSink {
	return &EventSink{logger: logger}
}

// Emit maps the event to a log record: the description is the body, fatal events get ERROR severity.
func (s *EventSink) Emit(ctx context.Context, event *domain.Event) error {
	if s.logger == nil || event == nil {
		return nil
	}
	rec := otellog.Record{}
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetObservedTimestamp(time.Now().UTC())
	if event.Fatal {
		rec.SetSeverity(otellog.SeverityError)
		rec.SetSeverityText("ERROR")
	} else {
		rec.SetSeverity(otellog.SeverityInfo)
		rec.SetSeverityText("INFO")
	}
	if event.Description != "" {
		rec.SetBody(otellog.StringValue(event.Description))
	}
	rec.AddAttributes(
		otellog.String("event.title", event.Title),
		otellog.Bool("event.fatal", event.Fatal),
	)
	if event.ID != "" {
		rec.AddAttributes(otellog.String("event.id", event.ID))
	}
	if event.Source != "" {
		rec.AddAttributes(otellog.String("event.source", event.Source))
	}
	s.logger.Emit(ctx, rec)
	return nil
}
