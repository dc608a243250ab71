package appkafka

import (
	"context"
	"encoding/json"
	"fmt"

	"example.com/tweetfeed/internal/logger"
	"example.com/tweetfeed/internal/metrics"
	"example.com/tweetfeed/internal/models"
	"github.com/segmentio/kafka-go"
)

var logg = logger.New()

// HeaderType carries the event type so consumers can filter without decoding.
const HeaderType = "type"

// EventPublisher writes domain events to Kafka.
type EventPublisher struct {
	writer KafkaWriter
}

func NewEventPublisher(w KafkaWriter) *EventPublisher {
	return &EventPublisher{writer: w}
}

// Publish encodes e as JSON keyed by Event.Key.
func (p *EventPublisher) Publish(ctx context.Context, e models.Event) error {
	msg, err := EncodeEvent(e)
	if err == nil {
		err = p.writer.WriteMessages(ctx, msg)
	}
	metrics.EventsPublished.WithLabelValues(string(e.Type), metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	logg.Debug("kafka", "Published "+string(e.Type)+" event")
	return nil
}

func (p *EventPublisher) Close() error {
	return p.writer.Close()
}

func EncodeEvent(e models.Event) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:     []byte(e.Key()),
		Value:   value,
		Headers: []kafka.Header{{Key: HeaderType, Value: []byte(e.Type)}},
	}, nil
}

func DecodeEvent(msg kafka.Message) (models.Event, error) {
	var e models.Event
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		return models.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" {
		return models.Event{}, fmt.Errorf("decode event: missing type")
	}
	return e, nil
}
