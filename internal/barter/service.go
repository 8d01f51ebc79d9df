package barter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Juanes-crypto/grupo-agro-backend/internal/cache"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/config"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/domain"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/events"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/notifications"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/repository"
	apperrors "github.com/Juanes-crypto/grupo-agro-backend/pkg/errors"
)

// ProposalInput carries the product references for a new proposal or counter.
// Items are snapshotted from the live products at creation time.
type ProposalInput struct {
	RecipientID         uuid.UUID
	OfferedProductIDs   []uuid.UUID
	RequestedProductIDs []uuid.UUID
	Message             string
}

// Service orchestrates the barter proposal lifecycle: creation, the state
// machine, counter-offer chains and the final exchange. Events and
// notifications are emitted only after the storage transaction has committed,
// and their failures are logged and swallowed.
type Service struct {
	proposals  repository.ProposalRepository
	products   repository.ProductRepository
	users      repository.UserRepository
	exchanger  Exchanger
	equity     *domain.EquityEvaluator
	publisher  events.Publisher
	dispatcher notifications.Dispatcher
	cache      cache.Cache
	cfg        *config.Config
	logger     *zap.Logger
}

// NewService wires the barter service
func NewService(
	proposals repository.ProposalRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	exchanger Exchanger,
	publisher events.Publisher,
	dispatcher notifications.Dispatcher,
	c cache.Cache,
	cfg *config.Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		proposals:  proposals,
		products:   products,
		users:      users,
		exchanger:  exchanger,
		equity:     domain.NewEquityEvaluator(cfg.FairTradeMaxPct, cfg.BlockedTradePct),
		publisher:  publisher,
		dispatcher: dispatcher,
		cache:      c,
		cfg:        cfg,
		logger:     logger,
	}
}

// CreateProposal validates both parties and both item sets, evaluates trade
// equity and persists a pending proposal. A trade whose value difference is
// above the blocking threshold is refused outright.
func (s *Service) CreateProposal(ctx context.Context, proposerID uuid.UUID, input ProposalInput) (*domain.Proposal, error) {
	if len(input.OfferedProductIDs) == 0 || len(input.RequestedProductIDs) == 0 {
		return nil, domain.ErrEmptyItems
	}
	if proposerID == input.RecipientID {
		return nil, domain.ErrSelfProposal
	}

	recipient, err := s.users.FindByID(ctx, input.RecipientID)
	if err != nil {
		return nil, err
	}
	if recipient.Reputation < s.cfg.MinReputation {
		return nil, domain.ErrLowReputation
	}

	offered, err := s.snapshotItems(ctx, input.OfferedProductIDs, proposerID, false)
	if err != nil {
		return nil, err
	}
	requested, err := s.snapshotItems(ctx, input.RequestedProductIDs, input.RecipientID, true)
	if err != nil {
		return nil, err
	}

	equity := s.equity.Evaluate(itemsValue(offered), itemsValue(requested))
	if equity.Blocked {
		return nil, apperrors.NewTradeBlocked(equity.DifferencePct)
	}

	proposal := domain.NewProposal(proposerID, input.RecipientID, offered, requested, input.Message, equity)
	if err := s.proposals.Create(ctx, proposal); err != nil {
		return nil, err
	}

	s.publish(ctx, events.ProposalCreatedEvent{
		ProposalID:  proposal.ID,
		ProposerID:  proposal.ProposerID,
		RecipientID: proposal.RecipientID,
		OccurredAt:  time.Now().UTC(),
	})
	s.notify(ctx, proposal.RecipientID, domain.NotificationProposalCreated,
		"New barter proposal",
		"You have received a new barter proposal", proposal.ID)

	return proposal, nil
}

// ListMyProposals returns every proposal where the user is a party, newest first
func (s *Service) ListMyProposals(ctx context.Context, userID uuid.UUID) ([]domain.Proposal, error) {
	return s.proposals.FindByParty(ctx, userID)
}

// GetProposal loads a proposal for one of its parties or an admin
func (s *Service) GetProposal(ctx context.Context, id, actorID uuid.UUID, actorRole string) (*domain.Proposal, error) {
	proposal, err := s.proposals.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !proposal.IsParty(actorID) && actorRole != domain.RoleAdmin {
		return nil, domain.ErrNotAuthorized
	}
	return proposal, nil
}

// UpdateStatus applies the accept, reject or cancel transition. Accepting runs
// the exchange: the transition and the stock movements commit atomically.
func (s *Service) UpdateStatus(ctx context.Context, id, actorID uuid.UUID, to domain.ProposalStatus) (*domain.Proposal, error) {
	proposal, err := s.proposals.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch to {
	case domain.StatusAccepted:
		if err := proposal.AuthorizeAccept(actorID); err != nil {
			return nil, err
		}
		return s.accept(ctx, proposal, actorID)

	case domain.StatusRejected:
		if err := proposal.AuthorizeReject(actorID); err != nil {
			return nil, err
		}
		if err := s.proposals.TransitionStatus(ctx, proposal.ID, domain.StatusPending, domain.StatusRejected); err != nil {
			return nil, err
		}
		s.afterTransition(ctx, proposal, actorID, domain.StatusRejected,
			domain.NotificationBarterRejected, "Barter rejected", "Your barter proposal was rejected")

	case domain.StatusCancelled:
		if err := proposal.AuthorizeCancel(actorID); err != nil {
			return nil, err
		}
		if err := s.proposals.TransitionStatus(ctx, proposal.ID, proposal.Status, domain.StatusCancelled); err != nil {
			return nil, err
		}
		s.afterTransition(ctx, proposal, actorID, domain.StatusCancelled,
			domain.NotificationBarterCancelled, "Barter cancelled", "A barter proposal you were part of was cancelled")

	default:
		return nil, fmt.Errorf("unsupported target status %q: %w", to, domain.ErrNotActionable)
	}

	return s.proposals.FindByID(ctx, proposal.ID)
}

// Cancel cancels a pending or countered proposal on behalf of either party
func (s *Service) Cancel(ctx context.Context, id, actorID uuid.UUID) (*domain.Proposal, error) {
	return s.UpdateStatus(ctx, id, actorID, domain.StatusCancelled)
}

// Counter creates a counter-proposal to a pending proposal. The parties swap
// sides: the original recipient now offers, the original proposer receives.
func (s *Service) Counter(ctx context.Context, parentID, actorID uuid.UUID, input ProposalInput) (*domain.Proposal, error) {
	if len(input.OfferedProductIDs) == 0 || len(input.RequestedProductIDs) == 0 {
		return nil, domain.ErrEmptyItems
	}

	parent, err := s.proposals.FindByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if err := parent.AuthorizeCounter(actorID); err != nil {
		return nil, err
	}

	offered, err := s.snapshotItems(ctx, input.OfferedProductIDs, actorID, false)
	if err != nil {
		return nil, err
	}
	requested, err := s.snapshotItems(ctx, input.RequestedProductIDs, parent.ProposerID, true)
	if err != nil {
		return nil, err
	}

	equity := s.equity.Evaluate(itemsValue(offered), itemsValue(requested))
	if equity.Blocked {
		return nil, apperrors.NewTradeBlocked(equity.DifferencePct)
	}

	counter := domain.NewCounterProposal(parent, offered, requested, input.Message, equity)
	if err := s.proposals.CreateCounter(ctx, counter); err != nil {
		return nil, err
	}

	s.publish(ctx, events.ProposalCreatedEvent{
		ProposalID:  counter.ID,
		ProposerID:  counter.ProposerID,
		RecipientID: counter.RecipientID,
		ParentID:    counter.ParentID,
		OccurredAt:  time.Now().UTC(),
	})
	s.publish(ctx, events.ProposalStatusChangedEvent{
		ProposalID: parent.ID,
		ActorID:    actorID,
		OldStatus:  string(domain.StatusPending),
		NewStatus:  string(domain.StatusCountered),
		OccurredAt: time.Now().UTC(),
	})
	s.notify(ctx, counter.RecipientID, domain.NotificationBarterCountered,
		"Barter countered",
		"Your barter proposal received a counter-offer", counter.ID)

	return counter, nil
}

// AcceptCounter accepts a counter-proposal: the counter is executed as the
// binding trade and the root of the chain is completed in the same transaction.
func (s *Service) AcceptCounter(ctx context.Context, counterID, actorID uuid.UUID) (*domain.Proposal, error) {
	counter, err := s.proposals.FindByID(ctx, counterID)
	if err != nil {
		return nil, err
	}
	if err := counter.AuthorizeCounterResolution(actorID); err != nil {
		return nil, err
	}
	return s.accept(ctx, counter, actorID)
}

// RejectCounter rejects a counter-proposal and reverts its parent to pending,
// so the original offer is back on the table.
func (s *Service) RejectCounter(ctx context.Context, counterID, actorID uuid.UUID) (*domain.Proposal, error) {
	counter, err := s.proposals.FindByID(ctx, counterID)
	if err != nil {
		return nil, err
	}
	if err := counter.AuthorizeCounterResolution(actorID); err != nil {
		return nil, err
	}

	if err := s.proposals.RevertCounter(ctx, counter); err != nil {
		return nil, err
	}

	s.publish(ctx, events.ProposalStatusChangedEvent{
		ProposalID: counter.ID,
		ActorID:    actorID,
		OldStatus:  string(domain.StatusPending),
		NewStatus:  string(domain.StatusRejected),
		OccurredAt: time.Now().UTC(),
	})
	s.notify(ctx, counter.ProposerID, domain.NotificationBarterRejected,
		"Counter-offer rejected",
		"Your counter-offer was rejected; the original proposal is pending again", counter.ID)

	return s.proposals.FindByID(ctx, counter.ID)
}

// ValueComparison re-evaluates trade equity against live product prices. The
// result is cached briefly; prices rarely move faster than the TTL.
func (s *Service) ValueComparison(ctx context.Context, proposalID, actorID uuid.UUID, actorRole string) (*domain.EquityResult, error) {
	proposal, err := s.GetProposal(ctx, proposalID, actorID, actorRole)
	if err != nil {
		return nil, err
	}

	key := cache.ComparisonKey(proposalID.String())
	var cached domain.EquityResult
	if err := cache.GetJSON(ctx, s.cache, key, &cached); err == nil {
		return &cached, nil
	}

	result := s.equity.Evaluate(
		s.liveItemsValue(ctx, proposal.OfferedItems),
		s.liveItemsValue(ctx, proposal.RequestedItems),
	)

	if err := cache.SetJSON(ctx, s.cache, key, result, cache.TTL(s.cfg.CacheTTL)); err != nil {
		s.logger.Warn("Failed to cache value comparison", zap.Error(err))
	}
	return &result, nil
}

// CompareProducts evaluates trade equity between two arbitrary products at
// their current prices.
func (s *Service) CompareProducts(ctx context.Context, product1ID, product2ID uuid.UUID) (*domain.EquityResult, error) {
	first, err := s.products.FindByID(ctx, product1ID)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", product1ID, err)
	}
	second, err := s.products.FindByID(ctx, product2ID)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", product2ID, err)
	}

	result := s.equity.Evaluate(first.Price, second.Price)
	return &result, nil
}

// accept runs the atomic exchange for an already-authorized proposal and emits
// the post-commit side effects.
func (s *Service) accept(ctx context.Context, proposal *domain.Proposal, actorID uuid.UUID) (*domain.Proposal, error) {
	movements, err := s.exchanger.Execute(ctx, proposal)
	if err != nil {
		return nil, err
	}

	s.invalidateProductCaches(ctx, proposal)

	s.publish(ctx, events.ProposalStatusChangedEvent{
		ProposalID: proposal.ID,
		ActorID:    actorID,
		OldStatus:  string(domain.StatusPending),
		NewStatus:  string(domain.StatusAccepted),
		OccurredAt: time.Now().UTC(),
	})
	s.publish(ctx, events.ExchangeCompletedEvent{
		ProposalID: proposal.ID,
		Movements:  movements,
		OccurredAt: time.Now().UTC(),
	})
	s.notify(ctx, proposal.ProposerID, domain.NotificationBarterAccepted,
		"Barter accepted",
		"Your barter proposal was accepted and the exchange is done", proposal.ID)
	if proposal.IsCounter() && proposal.RootID != nil {
		s.notify(ctx, proposal.RecipientID, domain.NotificationBarterCompleted,
			"Barter completed",
			"The barter chain was completed through a counter-offer", *proposal.RootID)
	}

	return s.proposals.FindByID(ctx, proposal.ID)
}

// snapshotItems loads each product, checks ownership and eligibility, and
// freezes it into a line item. Requested perishables must carry a freshness
// certificate.
func (s *Service) snapshotItems(ctx context.Context, ids []uuid.UUID, expectedOwner uuid.UUID, requested bool) ([]domain.BarterItem, error) {
	items := make([]domain.BarterItem, 0, len(ids))
	for _, id := range ids {
		product, err := s.products.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", id, err)
		}
		if product.OwnerID != expectedOwner {
			return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotOwner)
		}
		if err := product.BarterEligible(); err != nil {
			return nil, fmt.Errorf("product %s: %w", id, err)
		}
		if requested && product.Perishable && !product.FreshnessCertified {
			return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotCertified)
		}
		items = append(items, product.Snapshot())
	}
	return items, nil
}

// liveItemsValue sums current product prices, falling back to the snapshot
// price when a product no longer exists.
func (s *Service) liveItemsValue(ctx context.Context, items []domain.BarterItem) float64 {
	total := 0.0
	for _, item := range items {
		price := item.Price
		if product, err := s.products.FindByID(ctx, item.ProductID); err == nil {
			price = product.Price
		}
		total += price
	}
	return total
}

// itemsValue sums the item price snapshots. A product without a defined price
// contributes zero; quantities never weight the comparison.
func itemsValue(items []domain.BarterItem) float64 {
	total := 0.0
	for _, item := range items {
		total += item.Price
	}
	return total
}

func (s *Service) afterTransition(ctx context.Context, p *domain.Proposal, actorID uuid.UUID, to domain.ProposalStatus, notifType, title, message string) {
	s.publish(ctx, events.ProposalStatusChangedEvent{
		ProposalID: p.ID,
		ActorID:    actorID,
		OldStatus:  string(p.Status),
		NewStatus:  string(to),
		OccurredAt: time.Now().UTC(),
	})
	s.notify(ctx, p.OtherParty(actorID), notifType, title, message, p.ID)
}

func (s *Service) publish(ctx context.Context, event interface{}) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", zap.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID, notifType, title, message string, proposalID uuid.UUID) {
	n := &domain.Notification{
		UserID:            userID.String(),
		Type:              notifType,
		Title:             title,
		Message:           message,
		RelatedEntityID:   proposalID.String(),
		RelatedEntityType: "barter_proposal",
	}
	if err := s.dispatcher.Notify(ctx, n); err != nil {
		s.logger.Warn("Failed to deliver notification",
			zap.String("user_id", n.UserID),
			zap.String("type", n.Type),
			zap.Error(err),
		)
	}
}

func (s *Service) invalidateProductCaches(ctx context.Context, p *domain.Proposal) {
	if err := s.cache.DeleteByPattern(ctx, cache.ProductPattern); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.Error(err))
	}
	if err := s.cache.Delete(ctx, cache.ComparisonKey(p.ID.String())); err != nil {
		s.logger.Warn("Failed to invalidate comparison cache", zap.Error(err))
	}
}
