package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

const (
	LedgerEventsChannel = "classbank.ledger_events"
)

// Metrics
var (
	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_events_published_total",
			Help: "Total number of ledger events published",
		},
		[]string{"event_type"},
	)

	kafkaPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kafka_publish_errors_total",
			Help: "Total number of Kafka publish errors",
		},
	)
)

// LedgerEventPublisher fans ledger activity out to Redis pub/sub (always)
// and Kafka (only when a writer is configured). Publishing is best effort:
// the ledger write has already committed, so a failure here is logged and
// swallowed rather than surfaced to the caller.
type LedgerEventPublisher struct {
	rdb    *redis.Client
	writer *kafka.Writer
}

func NewLedgerEventPublisher(rdb *redis.Client, writer *kafka.Writer) *LedgerEventPublisher {
	return &LedgerEventPublisher{rdb: rdb, writer: writer}
}

type LedgerEvent struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"` // entry.posted, paycheck.distributed, rent.collected, withdrawal.requested, withdrawal.resolved, student.enrolled
	AccountID    int64     `json:"account_id,omitempty"`
	UserID       int64     `json:"user_id,omitempty"`
	Kind         string    `json:"kind,omitempty"`
	Amount       string    `json:"amount,omitempty"`
	BalanceAfter string    `json:"balance_after,omitempty"`
	Reference    string    `json:"reference,omitempty"`
	ActorID      int64     `json:"actor_id,omitempty"`
	Accounts     int       `json:"accounts,omitempty"` // batch events only
	Skipped      int       `json:"skipped,omitempty"`  // rent only
	Status       string    `json:"status,omitempty"`   // withdrawal.resolved only
	Timestamp    time.Time `json:"timestamp"`
}

// Publish sends the event to Redis and, when configured, Kafka.
func (p *LedgerEventPublisher) Publish(ctx context.Context, event *LedgerEvent) error {
	event.EventID = uuid.NewString()
	event.Timestamp = time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.rdb.Publish(ctx, LedgerEventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if p.writer != nil {
		msg := kafka.Message{
			Key:   []byte(event.EventType),
			Value: payload,
		}
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			// Redis already has it; Kafka is the audit copy.
			log.Printf("[LedgerEvent] ⚠️ Kafka write failed: %v", err)
			kafkaPublishErrors.Inc()
		}
	}

	eventsPublished.WithLabelValues(event.EventType).Inc()
	log.Printf("[LedgerEvent] Published: %s account=%d ref=%s",
		event.EventType, event.AccountID, event.Reference)

	return nil
}

// PublishEntryPosted announces one committed balance change.
func (p *LedgerEventPublisher) PublishEntryPosted(ctx context.Context, accountID, userID int64, kind, amount, balanceAfter, reference string, actorID int64) error {
	return p.Publish(ctx, &LedgerEvent{
		EventType:    "entry.posted",
		AccountID:    accountID,
		UserID:       userID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Reference:    reference,
		ActorID:      actorID,
	})
}

// PublishBatchCompleted announces a finished paycheck or rent run.
func (p *LedgerEventPublisher) PublishBatchCompleted(ctx context.Context, eventType, amount string, accounts, skipped int, actorID int64) error {
	return p.Publish(ctx, &LedgerEvent{
		EventType: eventType,
		Amount:    amount,
		Accounts:  accounts,
		Skipped:   skipped,
		ActorID:   actorID,
	})
}

// PublishWithdrawalRequested announces a new pending request.
func (p *LedgerEventPublisher) PublishWithdrawalRequested(ctx context.Context, accountID, userID int64, amount string) error {
	return p.Publish(ctx, &LedgerEvent{
		EventType: "withdrawal.requested",
		AccountID: accountID,
		UserID:    userID,
		Amount:    amount,
	})
}

// PublishWithdrawalResolved announces an approval or denial.
func (p *LedgerEventPublisher) PublishWithdrawalResolved(ctx context.Context, accountID int64, status, amount string, reviewerID int64) error {
	return p.Publish(ctx, &LedgerEvent{
		EventType: "withdrawal.resolved",
		AccountID: accountID,
		Status:    status,
		Amount:    amount,
		ActorID:   reviewerID,
	})
}

// PublishStudentEnrolled announces a new account on the roster.
func (p *LedgerEventPublisher) PublishStudentEnrolled(ctx context.Context, accountID, userID int64, openingBalance string) error {
	return p.Publish(ctx, &LedgerEvent{
		EventType:    "student.enrolled",
		AccountID:    accountID,
		UserID:       userID,
		BalanceAfter: openingBalance,
	})
}
