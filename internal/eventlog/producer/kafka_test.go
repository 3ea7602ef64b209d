package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"soori/internal/eventlog/domain"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewKafkaProducer_Disabled(t *testing.T) {
	if p := NewKafkaProducer(nil, "topic"); p != nil {
		t.Error("expected nil producer without brokers")
	}
	if p := NewKafkaProducer([]string{"localhost:9092"}, ""); p != nil {
		t.Error("expected nil producer without topic")
	}
	var p *KafkaProducer
	if err := p.Emit(context.Background(), &domain.Event{}); err != nil {
		t.Errorf("nil producer Emit = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("nil producer Close = %v", err)
	}
}

func TestKafkaProducer_Emit(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w, topic: "soori-events"}
	ev := &domain.Event{
		ID:        "ev-1",
		Title:     "인증번호 발송 실패",
		Fatal:     true,
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	if err := p.Emit(context.Background(), ev); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "ev-1" {
		t.Errorf("key = %q, want ev-1", w.msgs[0].Key)
	}
	var got domain.Event
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Title != ev.Title || !got.Fatal || !got.CreatedAt.Equal(ev.CreatedAt) {
		t.Errorf("payload = %+v", got)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Errorf("Close = %v, closed = %v", err, w.closed)
	}
}

func TestKafkaProducer_EmitError(t *testing.T) {
	p := &KafkaProducer{writer: &fakeWriter{err: errors.New("broker down")}}
	if err := p.Emit(context.Background(), &domain.Event{ID: "x"}); err == nil {
		t.Fatal("expected error")
	}
}
