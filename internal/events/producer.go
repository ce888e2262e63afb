// Package events publishes company lifecycle events to Kafka so other
// systems (analytics, mail digests) can follow application progress.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/pygmalion/meettodo-back/internal/domain"
)

type EventType string

const (
	CompanyCreated EventType = "company_created"
	CompanyUpdated EventType = "company_updated"
	CompanyDeleted EventType = "company_deleted"
	StageChanged   EventType = "stage_changed"
)

// Event is the published envelope. Stages travel with the company document
// so consumers never need a follow-up read.
type Event struct {
	Type       EventType       `json:"type"`
	Company    *domain.Company `json:"company"`
	StageID    string          `json:"stage_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Producer publishes events without blocking mutations.
type Producer interface {
	Produce(eventType EventType, company *domain.Company, stageID string)
	Close()
}

// KafkaWriter is the subset of kafka.Writer the producer needs.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer buffers events on a channel and writes them from a single
// loop goroutine. When the buffer is full the event is dropped with a
// warning rather than stalling the caller.
type KafkaProducer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
}

func NewKafkaProducer(brokers []string, topic string, logger *zap.Logger) *KafkaProducer {
	p := &KafkaProducer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
			Topic:    topic,
		},
		events:    make(chan Event, 1000),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
	}

	go p.eventLoop()
	return p
}

func (p *KafkaProducer) Produce(eventType EventType, company *domain.Company, stageID string) {
	event := Event{
		Type:       eventType,
		Company:    company,
		StageID:    stageID,
		OccurredAt: time.Now().UTC(),
	}
	select {
	case p.events <- event:
	default:
		p.logger.Warn("event queue full, dropping event",
			zap.String("event_type", string(eventType)),
			zap.String("company_id", company.ID),
		)
	}
}

func (p *KafkaProducer) eventLoop() {
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			return
		}
	}
}

func (p *KafkaProducer) sendEvent(ctx context.Context, event Event) {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to serialize event",
			zap.Error(err),
			zap.String("company_id", event.Company.ID),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Company.ID),
		Value: value,
	})
	if err != nil {
		p.logger.Error("failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("company_id", event.Company.ID),
		)
	}
}

func (p *KafkaProducer) Close() {
	close(p.closeChan)
	if err := p.writer.Close(); err != nil {
		p.logger.Error("failed to close kafka writer", zap.Error(err))
	}
}

// NopProducer discards events. Used when Kafka is not configured.
type NopProducer struct{}

func (NopProducer) Produce(EventType, *domain.Company, string) {}
func (NopProducer) Close()                                     {}
