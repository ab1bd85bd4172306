// Package consumer reads tracker events back from Kafka and hands them to a Handler.
package consumer

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/fitnesstracker/internal/events"
)

// Reader is the subset of *kafka.Reader the processor needs.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is a decoded record produced by the outbox dispatcher.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	EventType     string
	AggregateID   string
	SchemaSubject string
	SchemaID      int
	Payload       json.RawMessage
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger overrides the processor logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// Processor fetches records, decodes them and commits once the handler succeeds.
type Processor struct {
	reader  Reader
	handler Handler
	logger  *log.Logger
}

// NewProcessor constructs a Processor.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		logger:  log.New(log.Writer(), "[consumer] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes records until ctx is cancelled. Records the handler rejects are left uncommitted
// and are redelivered after a rebalance or restart.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.logger.Printf("fetch error: %v", err)
			continue
		}

		msg, err := Decode(record)
		if err != nil {
			p.logger.Printf("decode error (topic=%s partition=%d offset=%d): %v", record.Topic, record.Partition, record.Offset, err)
			recordDecodeError(record.Topic)
			// Malformed records are committed so they cannot block the partition.
			p.commit(ctx, record)
			continue
		}

		if err := p.handler.Handle(ctx, msg); err != nil {
			p.logger.Printf("handler error (event_type=%s aggregate=%s): %v", msg.EventType, msg.AggregateID, err)
			recordHandlerError(msg)
			continue
		}

		if p.commit(ctx, record) {
			recordProcessed(msg)
		}
	}
}

func (p *Processor) commit(ctx context.Context, record kafka.Message) bool {
	if err := p.reader.CommitMessages(ctx, record); err != nil {
		p.logger.Printf("commit error (topic=%s offset=%d): %v", record.Topic, record.Offset, err)
		return false
	}
	return true
}

// Decode unwraps the schema-registry framing and headers of a record. Event types outside the
// tracker catalog are rejected.
func Decode(record kafka.Message) (Message, error) {
	if len(record.Value) < 5 {
		return Message{}, fmt.Errorf("invalid payload length: %d", len(record.Value))
	}
	if record.Value[0] != 0 {
		return Message{}, fmt.Errorf("unexpected magic byte %d", record.Value[0])
	}

	eventType, ok := header(record, "event_type")
	if !ok {
		return Message{}, errors.New("missing event_type header")
	}
	if _, known := events.Lookup(eventType); !known {
		return Message{}, fmt.Errorf("unknown event_type %q", eventType)
	}
	aggregateID, _ := header(record, "aggregate_id")
	subject, _ := header(record, "schema_subject")

	payload := json.RawMessage(append([]byte(nil), record.Value[5:]...))
	if !json.Valid(payload) {
		return Message{}, errors.New("payload is not valid JSON")
	}

	return Message{
		Topic:         record.Topic,
		Partition:     record.Partition,
		Offset:        record.Offset,
		Timestamp:     record.Time,
		EventType:     eventType,
		AggregateID:   aggregateID,
		SchemaSubject: subject,
		SchemaID:      int(binary.BigEndian.Uint32(record.Value[1:5])),
		Payload:       payload,
	}, nil
}

func header(record kafka.Message, key string) (string, bool) {
	for _, h := range record.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}
