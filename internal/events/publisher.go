package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher defines the interface for publishing barter domain events.
// Events are published only after the storage transaction has committed;
// publish failures are logged and never undo the committed transition.
type Publisher interface {
	Publish(ctx context.Context, event interface{}) error
}

// ProposalCreatedEvent is emitted when a proposal or counter-proposal is created
type ProposalCreatedEvent struct {
	ProposalID  uuid.UUID  `json:"proposal_id"`
	ProposerID  uuid.UUID  `json:"proposer_id"`
	RecipientID uuid.UUID  `json:"recipient_id"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// ProposalStatusChangedEvent is emitted on every lifecycle transition
type ProposalStatusChangedEvent struct {
	ProposalID uuid.UUID `json:"proposal_id"`
	ActorID    uuid.UUID `json:"actor_id"`
	OldStatus  string    `json:"old_status"`
	NewStatus  string    `json:"new_status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// StockMovement describes one product mutation applied by an exchange
type StockMovement struct {
	ProductID    uuid.UUID `json:"product_id"`
	NewProductID uuid.UUID `json:"new_product_id,omitempty"` // set when the product was split
	FromOwnerID  uuid.UUID `json:"from_owner_id"`
	ToOwnerID    uuid.UUID `json:"to_owner_id"`
	Quantity     int       `json:"quantity"`
	Unit         string    `json:"unit"`
	FullTransfer bool      `json:"full_transfer"`
}

// ExchangeCompletedEvent is emitted after an accepted trade has been applied
type ExchangeCompletedEvent struct {
	ProposalID uuid.UUID       `json:"proposal_id"`
	Movements  []StockMovement `json:"movements"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// InMemoryPublisher keeps events in memory. Used when Kafka is disabled or
// unreachable, and by tests.
type InMemoryPublisher struct {
	logger *zap.Logger
	events []interface{}
}

func NewInMemoryPublisher(logger *zap.Logger) *InMemoryPublisher {
	return &InMemoryPublisher{
		logger: logger,
		events: make([]interface{}, 0),
	}
}

func (p *InMemoryPublisher) Publish(ctx context.Context, event interface{}) error {
	p.events = append(p.events, event)
	p.logger.Debug("Event published (in-memory)", zap.Any("event", event))
	return nil
}

// Events returns the captured events
func (p *InMemoryPublisher) Events() []interface{} {
	return p.events
}
