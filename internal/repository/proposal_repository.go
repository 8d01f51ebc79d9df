package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Juanes-crypto/grupo-agro-backend/internal/domain"
)

// ProposalRepository defines the interface for barter proposal persistence.
// Multi-row operations (counter creation, counter rejection) run inside a
// single transaction; exchange-time transitions run inside the executor's
// transaction via TransitionProposalStatus.
type ProposalRepository interface {
	Create(ctx context.Context, proposal *domain.Proposal) error
	// CreateCounter persists the counter-proposal and flips its parent from
	// pending to countered, atomically.
	CreateCounter(ctx context.Context, counter *domain.Proposal) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Proposal, error)
	// FindByParty lists proposals where the user is proposer or recipient,
	// newest first.
	FindByParty(ctx context.Context, userID uuid.UUID) ([]domain.Proposal, error)
	// TransitionStatus moves a proposal from one status to another. The
	// update is guarded on the expected current status, so a concurrent or
	// repeated transition surfaces as ErrNotActionable.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.ProposalStatus) error
	// RevertCounter rejects the counter-proposal and reverts its parent to
	// pending, atomically.
	RevertCounter(ctx context.Context, counter *domain.Proposal) error
}

type proposalRepository struct {
	db *sql.DB
}

// NewProposalRepository creates a proposal repository
func NewProposalRepository(db *sql.DB) ProposalRepository {
	return &proposalRepository{db: db}
}

func (r *proposalRepository) Create(ctx context.Context, p *domain.Proposal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := InsertProposal(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *proposalRepository) CreateCounter(ctx context.Context, counter *domain.Proposal) error {
	if counter.ParentID == nil {
		return domain.ErrNotCounter
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := TransitionProposalStatus(ctx, tx, *counter.ParentID, domain.StatusPending, domain.StatusCountered); err != nil {
		return err
	}
	if err := InsertProposal(ctx, tx, counter); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *proposalRepository) RevertCounter(ctx context.Context, counter *domain.Proposal) error {
	if counter.ParentID == nil {
		return domain.ErrNotCounter
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := TransitionProposalStatus(ctx, tx, counter.ID, domain.StatusPending, domain.StatusRejected); err != nil {
		return err
	}
	if err := TransitionProposalStatus(ctx, tx, *counter.ParentID, domain.StatusCountered, domain.StatusPending); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *proposalRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.ProposalStatus) error {
	return TransitionProposalStatus(ctx, r.db, id, from, to)
}

func (r *proposalRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
	return findProposal(ctx, r.db, id)
}

func (r *proposalRepository) FindByParty(ctx context.Context, userID uuid.UUID) ([]domain.Proposal, error) {
	query := `
		SELECT ` + proposalColumns + `
		FROM proposals
		WHERE proposer_id = ? OR recipient_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID.String(), userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	proposals := make([]domain.Proposal, 0)
	for rows.Next() {
		p, err := scanProposalRows(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating proposals: %w", err)
	}

	for i := range proposals {
		if err := loadItems(ctx, r.db, &proposals[i]); err != nil {
			return nil, err
		}
	}
	return proposals, nil
}

// InsertProposal inserts the proposal and its line items using the given
// handle (database or open transaction).
func InsertProposal(ctx context.Context, q Querier, p *domain.Proposal) error {
	query := `
		INSERT INTO proposals (` + proposalColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var parentID, rootID interface{}
	if p.ParentID != nil {
		parentID = p.ParentID.String()
	}
	if p.RootID != nil {
		rootID = p.RootID.String()
	}

	_, err := q.ExecContext(ctx, query,
		p.ID.String(), p.ProposerID.String(), p.RecipientID.String(),
		string(p.Status), p.Message, parentID, rootID,
		boolToInt(p.Equity.Comparable), boolToInt(p.Equity.IsFair), boolToInt(p.Equity.Blocked),
		p.Equity.Message, p.Equity.DifferencePct, p.Equity.SuggestedDifference,
		p.Equity.OfferedValue, p.Equity.RequestedValue,
		p.CreatedAt.UTC().Format(time.RFC3339), p.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create proposal: %w", err)
	}

	if err := insertItems(ctx, q, p.ID, "offered", p.OfferedItems); err != nil {
		return err
	}
	return insertItems(ctx, q, p.ID, "requested", p.RequestedItems)
}

// TransitionProposalStatus applies a status-guarded update. Zero rows means
// the proposal is missing or no longer in the expected status.
func TransitionProposalStatus(ctx context.Context, q Querier, id uuid.UUID, from, to domain.ProposalStatus) error {
	query := `UPDATE proposals SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

	result, err := q.ExecContext(ctx, query,
		string(to), time.Now().UTC().Format(time.RFC3339),
		id.String(), string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to transition proposal status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists int
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM proposals WHERE id = ?`, id.String()).Scan(&exists); err != nil {
			return fmt.Errorf("failed to verify proposal: %w", err)
		}
		if exists == 0 {
			return domain.ErrProposalNotFound
		}
		return domain.ErrNotActionable
	}
	return nil
}

// FindProposalTx loads a proposal inside an open transaction.
func FindProposalTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Proposal, error) {
	return findProposal(ctx, tx, id)
}

const proposalColumns = `id, proposer_id, recipient_id, status, message, parent_id, root_id,
	equity_comparable, equity_fair, equity_blocked, equity_message,
	equity_difference_pct, equity_suggested_diff, equity_offered_value, equity_requested_value,
	created_at, updated_at`

func findProposal(ctx context.Context, q Querier, id uuid.UUID) (*domain.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE id = ?`

	p, err := scanProposalRows(q.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrProposalNotFound
		}
		return nil, err
	}
	if err := loadItems(ctx, q, p); err != nil {
		return nil, err
	}
	return p, nil
}

func scanProposalRows(row rowScanner) (*domain.Proposal, error) {
	var p domain.Proposal
	var id, proposerID, recipientID, status, createdAtStr, updatedAtStr string
	var parentID, rootID sql.NullString
	var comparable, fair, blocked int

	err := row.Scan(
		&id, &proposerID, &recipientID, &status, &p.Message, &parentID, &rootID,
		&comparable, &fair, &blocked, &p.Equity.Message,
		&p.Equity.DifferencePct, &p.Equity.SuggestedDifference,
		&p.Equity.OfferedValue, &p.Equity.RequestedValue,
		&createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan proposal: %w", err)
	}

	p.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid proposal id %q: %w", id, err)
	}
	p.ProposerID, err = uuid.Parse(proposerID)
	if err != nil {
		return nil, fmt.Errorf("invalid proposer id %q: %w", proposerID, err)
	}
	p.RecipientID, err = uuid.Parse(recipientID)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient id %q: %w", recipientID, err)
	}
	p.Status = domain.ProposalStatus(status)
	p.Equity.Comparable = comparable != 0
	p.Equity.IsFair = fair != 0
	p.Equity.Blocked = blocked != 0

	if parentID.Valid {
		parsed, err := uuid.Parse(parentID.String)
		if err != nil {
			return nil, fmt.Errorf("invalid parent id %q: %w", parentID.String, err)
		}
		p.ParentID = &parsed
	}
	if rootID.Valid {
		parsed, err := uuid.Parse(rootID.String)
		if err != nil {
			return nil, fmt.Errorf("invalid root id %q: %w", rootID.String, err)
		}
		p.RootID = &parsed
	}

	if createdAt, err := time.Parse(time.RFC3339, createdAtStr); err == nil {
		p.CreatedAt = createdAt
	}
	if updatedAt, err := time.Parse(time.RFC3339, updatedAtStr); err == nil {
		p.UpdatedAt = updatedAt
	}

	return &p, nil
}

func insertItems(ctx context.Context, q Querier, proposalID uuid.UUID, side string, items []domain.BarterItem) error {
	query := `
		INSERT INTO proposal_items (id, proposal_id, product_id, side, position,
			name, description, image_url, quantity_value, quantity_unit, price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for i, item := range items {
		_, err := q.ExecContext(ctx, query,
			uuid.New().String(), proposalID.String(), item.ProductID.String(), side, i,
			item.Name, item.Description, item.ImageURL,
			item.Quantity.Value, item.Quantity.Unit, item.Price,
		)
		if err != nil {
			return fmt.Errorf("failed to create proposal item: %w", err)
		}
	}
	return nil
}

func loadItems(ctx context.Context, q Querier, p *domain.Proposal) error {
	query := `
		SELECT product_id, side, name, description, image_url, quantity_value, quantity_unit, price
		FROM proposal_items
		WHERE proposal_id = ?
		ORDER BY side, position
	`

	rows, err := q.QueryContext(ctx, query, p.ID.String())
	if err != nil {
		return fmt.Errorf("failed to load proposal items: %w", err)
	}
	defer rows.Close()

	p.OfferedItems = p.OfferedItems[:0]
	p.RequestedItems = p.RequestedItems[:0]

	for rows.Next() {
		var item domain.BarterItem
		var productID, side string

		err := rows.Scan(&productID, &side, &item.Name, &item.Description, &item.ImageURL,
			&item.Quantity.Value, &item.Quantity.Unit, &item.Price)
		if err != nil {
			return fmt.Errorf("failed to scan proposal item: %w", err)
		}

		item.ProductID, err = uuid.Parse(productID)
		if err != nil {
			return fmt.Errorf("invalid product id %q: %w", productID, err)
		}

		if side == "offered" {
			p.OfferedItems = append(p.OfferedItems, item)
		} else {
			p.RequestedItems = append(p.RequestedItems, item)
		}
	}
	return rows.Err()
}
