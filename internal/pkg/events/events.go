package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Type names an activity event
type Type string

const (
	CourseCreated         Type = "course.created"
	CourseRequested       Type = "course_request.submitted"
	CourseRequestApproved Type = "course_request.approved"
	CourseRequestRejected Type = "course_request.rejected"
	MemberJoined          Type = "membership.joined"
	MemberLeft            Type = "membership.left"
	PostCreated           Type = "post.created"
	PostReacted           Type = "post.reacted"
	MemberCountsFixed     Type = "membership.counts_reconciled"
)

// Event is a single activity record emitted after a successful mutation
type Event struct {
	Type      Type      `json:"type"`
	ActorID   string    `json:"actorId,omitempty"`
	CourseID  int64     `json:"courseId,omitempty"`
	PostID    *int64    `json:"postId,omitempty"`
	RequestID *int64    `json:"requestId,omitempty"`
	Reaction  string    `json:"reaction,omitempty"`
	At        time.Time `json:"at"`
}

// Key partitions events by course so a course's events stay ordered
func (e Event) Key() string {
	return strconv.FormatInt(e.CourseID, 10)
}

// Publisher delivers activity events. Implementations never block a request
// on a failed delivery for longer than the caller's context allows.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// KafkaConfig configures the kafka publisher
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaPublisher writes events as JSON messages to a kafka topic
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaPublisher creates a synchronous writer that waits for all replicas
func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	return &KafkaPublisher{writer: w, topic: cfg.Topic}
}

// Publish sends one event keyed by course id
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.Key()),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// LogPublisher only logs events. Used when no brokers are configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.Debug().
		Str("type", string(event.Type)).
		Str("actorId", event.ActorID).
		Int64("courseId", event.CourseID).
		Msg("Activity event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types lists the types of the published events in order
func (r *Recorder) Types() []Type {
	var types []Type
	for _, e := range r.Events() {
		types = append(types, e.Type)
	}
	return types
}

// Emitter stamps and publishes events, logging failures instead of returning them
type Emitter struct {
	publisher Publisher
	timeout   time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewEmitter wraps publisher. A nil publisher discards every event.
func NewEmitter(publisher Publisher, logger zerolog.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		timeout:   3 * time.Second,
		logger:    logger,
		now:       time.Now,
	}
}

// Emit publishes event with its own timeout so a slow broker cannot outlive the request
func (e *Emitter) Emit(ctx context.Context, event Event) {
	if e == nil || e.publisher == nil {
		return
	}
	if event.At.IsZero() {
		event.At = e.now().UTC()
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	if err := e.publisher.Publish(pubCtx, event); err != nil {
		e.logger.Warn().Err(err).Str("type", string(event.Type)).Msg("Failed to publish activity event")
	}
}
