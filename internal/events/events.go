package events

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maheshrc27/socialdeck/internal/models"
	kgo "github.com/segmentio/kafka-go"
)

// OutcomeEvent is the message published for every finished post.
type OutcomeEvent struct {
	EventID    string                `json:"event_id"`
	OccurredAt time.Time             `json:"occurred_at"`
	Outcome    models.PublishOutcome `json:"outcome"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kgo.Message) error
	Close() error
}

type Sink interface {
	Emit(ctx context.Context, outcome models.PublishOutcome) error
	Close() error
}

type kafkaSink struct {
	w   messageWriter
	now func() time.Time
}

// NewKafkaSink writes outcomes to topic, keyed by post id so that events for
// one post stay ordered. An empty broker list yields a sink that drops everything.
func NewKafkaSink(brokers, topic string) Sink {
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	if len(addrs) == 0 {
		return Nop()
	}

	w := &kgo.Writer{
		Addr:         kgo.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kgo.Hash{},
		RequiredAcks: kgo.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaSink(w)
}

func newKafkaSink(w messageWriter) *kafkaSink {
	return &kafkaSink{w: w, now: time.Now}
}

func (s *kafkaSink) Emit(ctx context.Context, outcome models.PublishOutcome) error {
	b, err := json.Marshal(OutcomeEvent{
		EventID:    uuid.NewString(),
		OccurredAt: s.now().UTC(),
		Outcome:    outcome,
	})
	if err != nil {
		return err
	}

	return s.w.WriteMessages(ctx, kgo.Message{
		Key:   []byte(strconv.FormatInt(outcome.PostID, 10)),
		Value: b,
		Headers: []kgo.Header{
			{Key: "status", Value: []byte(outcome.Status)},
		},
	})
}

func (s *kafkaSink) Close() error { return s.w.Close() }

type nopSink struct{}

func Nop() Sink { return nopSink{} }

func (nopSink) Emit(context.Context, models.PublishOutcome) error { return nil }
func (nopSink) Close() error                                      { return nil }
