// Package audit records who changed what. Sinks are fire-and-forget: a failed write is logged and
// never fails the operation that produced the event.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"statement-reconciliation-backend/internal/models"
	"statement-reconciliation-backend/pkg/logger"
)

const (
	ActionStatementImport = "statement.import"
	ActionMatchSuggest    = "payment_match.suggest"
	ActionMatchConfirm    = "payment_match.confirm"
	ActionMatchReject     = "payment_match.reject"
	ActionAccountCreate   = "bank_account.create"
)

type Event struct {
	Action       string
	ResourceType string
	ResourceID   string
	BeforeState  interface{}
	AfterState   interface{}
	ActorID      string
	Timestamp    time.Time
}

// Sink receives audit events.
type Sink interface {
	Record(ctx context.Context, event Event)
}

// GormSink stores events in the audit_logs table.
type GormSink struct {
	db  *gorm.DB
	log logger.Logger
}

func NewGormSink(db *gorm.DB, log logger.Logger) *GormSink {
	return &GormSink{db: db, log: log.WithComponent("audit")}
}

func (s *GormSink) Record(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	entry := models.AuditLog{
		ID:           uuid.New(),
		Action:       event.Action,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		BeforeState:  toJSON(event.BeforeState),
		AfterState:   toJSON(event.AfterState),
		ActorID:      event.ActorID,
		CreatedAt:    event.Timestamp,
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.log.WithError(err).WithFields(logger.Fields{
			"action":      event.Action,
			"resource_id": event.ResourceID,
		}).Errorf("failed to write audit event")
	}
}

// LogSink writes events to the structured log only.
type LogSink struct {
	log logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log.WithComponent("audit")}
}

func (s *LogSink) Record(_ context.Context, event Event) {
	s.log.WithFields(logger.Fields{
		"action":        event.Action,
		"resource_type": event.ResourceType,
		"resource_id":   event.ResourceID,
		"actor":         event.ActorID,
	}).Infof("audit event")
}

// Multi fans an event out to every sink.
type Multi []Sink

func (m Multi) Record(ctx context.Context, event Event) {
	for _, s := range m {
		s.Record(ctx, event)
	}
}

// Nop drops every event.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}

func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Record(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of what was recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Actions lists the recorded actions in order.
func (r *Recorder) Actions() []string {
	var actions []string
	for _, e := range r.Events() {
		actions = append(actions, e.Action)
	}
	return actions
}
