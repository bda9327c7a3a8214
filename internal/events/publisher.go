package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"quotedesk/internal/core"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// EventType names a quotation lifecycle event.
type EventType string

const (
	EventQuotationCreated       EventType = "quotation.created"
	EventQuotationUpdated       EventType = "quotation.updated"
	EventQuotationStatusChanged EventType = "quotation.status_changed"
	EventQuotationDeleted       EventType = "quotation.deleted"
)

// QuotationEvent is the envelope written to the topic. Data carries the
// event-specific payload.
type QuotationEvent struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	CompanyID     int             `json:"company_id"`
	QuotationID   int             `json:"quotation_id"`
	Number        int64           `json:"number,omitempty"`
	ActorID       int             `json:"actor_id"`
	Data          json.RawMessage `json:"data,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// StatusChange is the payload of a quotation.status_changed event.
type StatusChange struct {
	PreviousStatus core.QuotationStatus `json:"previous_status"`
	NewStatus      core.QuotationStatus `json:"new_status"`
}

// Publisher emits quotation events. Callers publish after the change is committed.
type Publisher interface {
	Publish(ctx context.Context, event *QuotationEvent) error
	Close() error
}

type correlationKey struct{}

// ContextWithCorrelationID tags ctx so events raised while serving it carry id.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// NewQuotationEvent builds an event for q. payload may be nil.
func NewQuotationEvent(ctx context.Context, eventType EventType, actor core.Actor, q *core.Quotation, payload any) (*QuotationEvent, error) {
	event := &QuotationEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		CompanyID:   q.CompanyID,
		QuotationID: q.ID,
		Number:      q.Number,
		ActorID:     actor.UserID,
		Timestamp:   time.Now().UTC(),
	}
	if event.CompanyID == 0 {
		event.CompanyID = actor.CompanyID
	}
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		event.CorrelationID = id
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
		}
		event.Data = data
	}
	return event, nil
}

type KafkaPublisher struct {
	writer *kafka.Writer
	log    logrus.FieldLogger
}

func NewKafkaPublisher(brokers []string, topic string, log logrus.FieldLogger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: writer, log: log}
}

// Publish keys messages by company and quotation so one quotation's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, event *QuotationEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.ID, err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.Itoa(event.CompanyID) + ":" + strconv.Itoa(event.QuotationID)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.log.WithFields(logrus.Fields{
		"event_id":     event.ID,
		"event_type":   event.Type,
		"quotation_id": event.QuotationID,
	}).Debug("event published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *QuotationEvent) error { return nil }
func (NopPublisher) Close() error                                   { return nil }

// RecordingPublisher keeps events in memory, for tests.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []*QuotationEvent
}

func (r *RecordingPublisher) Publish(_ context.Context, event *QuotationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *RecordingPublisher) Close() error { return nil }

// Events returns a copy of what was published so far.
func (r *RecordingPublisher) Events() []*QuotationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*QuotationEvent(nil), r.events...)
}
