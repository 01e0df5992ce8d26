package events

import (
	"context"
	"errors"
	"time"

	"photoquest/internal/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TopupSubmitted Type = "topup.submitted"
	TopupApproved  Type = "topup.approved"
	TopupRejected  Type = "topup.rejected"
	QuestJoined    Type = "quest.joined"
)

// Event describes a committed state change. Events are published only
// after the unit of work that produced them has committed.
type Event struct {
	ID            string          `json:"id"`
	Type          Type            `json:"type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	UserID        int64           `json:"user_id"`
	AdminID       int64           `json:"admin_id,omitempty"`
	TransactionID int64           `json:"transaction_id,omitempty"`
	QuestID       int64           `json:"quest_id,omitempty"`
	Coins         int64           `json:"coins,omitempty"`
	Money         decimal.Decimal `json:"money"`
	SlipURL       string          `json:"slip_url,omitempty"`
}

func New(t Type) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Fanout delivers each event to every publisher. A failing publisher does
// not stop the others.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishCommitted publishes e and logs, rather than returns, any failure:
// the state change it reports is already durable.
func PublishCommitted(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		logger.WithContext(ctx).Warn("event publish failed", "type", e.Type, "event_id", e.ID, "error", err)
	}
}
