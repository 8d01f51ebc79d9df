package barter

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Juanes-crypto/grupo-agro-backend/internal/domain"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/events"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/repository"
)

// Exchanger applies an accepted trade to the inventory ledger. The proposal
// transition and every product mutation commit atomically or not at all.
type Exchanger interface {
	Execute(ctx context.Context, proposal *domain.Proposal) ([]events.StockMovement, error)
}

type executor struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExecutor creates the transactional exchange executor
func NewExecutor(db *sql.DB, logger *zap.Logger) Exchanger {
	return &executor{db: db, logger: logger}
}

// Execute moves the proposal to accepted and applies every line item against
// live stock inside one transaction. Offered items flow proposer to recipient,
// requested items flow recipient to proposer. If the accepted proposal is a
// counter, the root of the chain is marked completed in the same transaction.
//
// Line items are reconciled against the products table as it is NOW, not as it
// was snapshotted: a missing product, a unit mismatch or insufficient stock
// aborts the whole exchange with zero mutations applied.
func (e *executor) Execute(ctx context.Context, p *domain.Proposal) ([]events.StockMovement, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := repository.TransitionProposalStatus(ctx, tx, p.ID, domain.StatusPending, domain.StatusAccepted); err != nil {
		return nil, err
	}
	if p.IsCounter() && p.RootID != nil {
		if err := repository.TransitionProposalStatus(ctx, tx, *p.RootID, domain.StatusCountered, domain.StatusCompleted); err != nil {
			return nil, err
		}
	}

	products := repository.NewProductRepository(tx)

	movements := make([]events.StockMovement, 0, len(p.OfferedItems)+len(p.RequestedItems))
	for _, item := range p.OfferedItems {
		m, err := applyItem(ctx, products, item, p.ProposerID, p.RecipientID)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	for _, item := range p.RequestedItems {
		m, err := applyItem(ctx, products, item, p.RecipientID, p.ProposerID)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit exchange: %w", err)
	}

	e.logger.Info("Exchange executed",
		zap.String("proposal_id", p.ID.String()),
		zap.Int("movements", len(movements)),
	)
	return movements, nil
}

func applyItem(ctx context.Context, products repository.ProductRepository, item domain.BarterItem, fromOwner, toOwner uuid.UUID) (events.StockMovement, error) {
	var m events.StockMovement

	product, err := products.FindByID(ctx, item.ProductID)
	if err != nil {
		return m, fmt.Errorf("product %s: %w", item.ProductID, err)
	}

	// Legacy snapshots may carry no unit; they inherit the product's.
	if item.Quantity.Unit != "" && item.Quantity.Unit != product.Unit {
		return m, fmt.Errorf("product %s: snapshot unit %q vs stock unit %q: %w",
			product.ID, item.Quantity.Unit, product.Unit, domain.ErrUnitMismatch)
	}

	quantity, ok := item.Quantity.WholeUnits()
	if !ok || quantity <= 0 {
		return m, fmt.Errorf("product %s: quantity %s: %w", product.ID, item.Quantity, domain.ErrInvalidQuantity)
	}
	if product.Stock < quantity {
		return m, fmt.Errorf("product %s: have %d, need %d: %w",
			product.ID, product.Stock, quantity, domain.ErrInsufficientStock)
	}

	m = events.StockMovement{
		ProductID:   product.ID,
		FromOwnerID: fromOwner,
		ToOwnerID:   toOwner,
		Quantity:    quantity,
		Unit:        product.Unit,
	}

	expectedVersion := product.Version
	if product.Stock == quantity {
		// Whole stock traded: the record changes hands intact.
		product.TransferTo(toOwner)
		m.FullTransfer = true
		if err := products.Update(ctx, product, expectedVersion); err != nil {
			return m, fmt.Errorf("product %s: %w", product.ID, err)
		}
		return m, nil
	}

	clone, err := product.SplitTo(toOwner, quantity)
	if err != nil {
		return m, fmt.Errorf("product %s: %w", product.ID, err)
	}
	if err := products.Update(ctx, product, expectedVersion); err != nil {
		return m, fmt.Errorf("product %s: %w", product.ID, err)
	}
	if err := products.Create(ctx, clone); err != nil {
		return m, fmt.Errorf("product %s: %w", clone.ID, err)
	}
	m.NewProductID = clone.ID
	return m, nil
}
