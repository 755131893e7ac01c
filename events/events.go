// Package events publishes domain events to downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/cashflow-engine/cashflow"
)

// TopicDebitOrderDue carries one message per predicted upcoming debit.
const TopicDebitOrderDue = "debit_order_due"

type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
}

// Keyed events choose their partition key.
type Keyed interface {
	EventKey() string
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }

var _ Publisher = Noop{}

// DebitOrderDue announces a recurring outflow expected inside the due window.
type DebitOrderDue struct {
	EventID       string          `json:"event_id"`
	Branch        string          `json:"branch"`
	Key           string          `json:"key"`
	Name          string          `json:"name"`
	Cadence       string          `json:"cadence"`
	TypicalAmount decimal.Decimal `json:"typical_amount"`
	NextDue       cashflow.Date   `json:"next_due"`
	KeywordHit    bool            `json:"keyword_hit"`
	DetectedAt    time.Time       `json:"detected_at"`
}

func (e DebitOrderDue) EventKey() string { return e.Branch }
