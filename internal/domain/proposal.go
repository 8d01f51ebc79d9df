package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProposalStatus is the lifecycle state of a barter proposal
type ProposalStatus string

const (
	StatusPending   ProposalStatus = "pending"
	StatusAccepted  ProposalStatus = "accepted"
	StatusRejected  ProposalStatus = "rejected"
	StatusCountered ProposalStatus = "countered"
	StatusCancelled ProposalStatus = "cancelled"
	StatusCompleted ProposalStatus = "completed"
)

// Valid reports whether the status is a known lifecycle state
func (s ProposalStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusCountered, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from the status
func (s ProposalStatus) Terminal() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// BarterItem is a proposal line item: a reference to the live product plus a
// snapshot of its descriptive fields and quantity at proposal time.
type BarterItem struct {
	ProductID   uuid.UUID
	Name        string
	Description string
	ImageURL    string
	Quantity    Quantity
	Price       float64
}

// Proposal is a barter proposal between two parties. A counter-proposal is a
// full proposal linked to the one it counters (ParentID) and to the first
// proposal of the chain (RootID); both are nil on a root proposal.
type Proposal struct {
	ID             uuid.UUID
	ProposerID     uuid.UUID
	RecipientID    uuid.UUID
	OfferedItems   []BarterItem
	RequestedItems []BarterItem
	Status         ProposalStatus
	Message        string
	ParentID       *uuid.UUID
	RootID         *uuid.UUID
	Equity         EquityResult
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewProposal creates a pending root proposal
func NewProposal(proposerID, recipientID uuid.UUID, offered, requested []BarterItem, message string, equity EquityResult) *Proposal {
	now := time.Now()
	return &Proposal{
		ID:             uuid.New(),
		ProposerID:     proposerID,
		RecipientID:    recipientID,
		OfferedItems:   offered,
		RequestedItems: requested,
		Status:         StatusPending,
		Message:        message,
		Equity:         equity,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewCounterProposal creates a pending counter to the given parent. The
// parent's recipient becomes the proposer and vice versa; the root id always
// resolves in one hop.
func NewCounterProposal(parent *Proposal, offered, requested []BarterItem, message string, equity EquityResult) *Proposal {
	counter := NewProposal(parent.RecipientID, parent.ProposerID, offered, requested, message, equity)
	parentID := parent.ID
	counter.ParentID = &parentID
	rootID := parent.ID
	if parent.RootID != nil {
		rootID = *parent.RootID
	}
	counter.RootID = &rootID
	return counter
}

// IsCounter reports whether this proposal counters another one
func (p *Proposal) IsCounter() bool {
	return p.ParentID != nil
}

// IsParty reports whether the user is the proposer or the recipient
func (p *Proposal) IsParty(userID uuid.UUID) bool {
	return p.ProposerID == userID || p.RecipientID == userID
}

// OtherParty returns the counterpart of the given user in the proposal
func (p *Proposal) OtherParty(userID uuid.UUID) uuid.UUID {
	if p.ProposerID == userID {
		return p.RecipientID
	}
	return p.ProposerID
}

// AuthorizeAccept validates the accept transition: only the recipient of a
// pending proposal may accept it.
func (p *Proposal) AuthorizeAccept(actorID uuid.UUID) error {
	if p.RecipientID != actorID {
		return ErrNotAuthorized
	}
	if p.Status != StatusPending {
		return ErrNotActionable
	}
	return nil
}

// AuthorizeReject validates the reject transition: only the recipient of a
// pending proposal may reject it.
func (p *Proposal) AuthorizeReject(actorID uuid.UUID) error {
	if p.RecipientID != actorID {
		return ErrNotAuthorized
	}
	if p.Status != StatusPending {
		return ErrNotActionable
	}
	return nil
}

// AuthorizeCancel validates the cancel transition: either party may cancel a
// pending or countered proposal.
func (p *Proposal) AuthorizeCancel(actorID uuid.UUID) error {
	if !p.IsParty(actorID) {
		return ErrNotAuthorized
	}
	if p.Status != StatusPending && p.Status != StatusCountered {
		return ErrNotActionable
	}
	return nil
}

// AuthorizeCounter validates the counter transition: only the recipient of a
// pending proposal may counter it. Item ownership is validated by the caller
// against live products.
func (p *Proposal) AuthorizeCounter(actorID uuid.UUID) error {
	if p.RecipientID != actorID {
		return ErrNotAuthorized
	}
	if p.Status != StatusPending {
		return ErrNotActionable
	}
	return nil
}

// AuthorizeCounterResolution validates accepting or rejecting this proposal
// as a counter-offer: it must actually be a counter, still pending, and the
// actor must be its recipient (the proposer of the countered proposal).
func (p *Proposal) AuthorizeCounterResolution(actorID uuid.UUID) error {
	if !p.IsCounter() {
		return ErrNotCounter
	}
	return p.AuthorizeAccept(actorID)
}

// Proposal domain errors
var (
	ErrProposalNotFound = &DomainError{Message: "barter proposal not found"}
	ErrNotAuthorized    = &DomainError{Message: "actor is not allowed to perform this transition"}
	ErrNotActionable    = &DomainError{Message: "proposal status does not allow this transition"}
	ErrNotCounter       = &DomainError{Message: "proposal is not a counter-proposal"}
	ErrSelfProposal     = &DomainError{Message: "cannot open a barter proposal with yourself"}
	ErrEmptyItems       = &DomainError{Message: "offered and requested items must both be non-empty"}
	ErrLowReputation    = &DomainError{Message: "recipient reputation is below the required minimum"}
	ErrNotCertified     = &DomainError{Message: "perishable products require a freshness certificate to be traded"}
	ErrNotOwner         = &DomainError{Message: "product is not owned by the expected party"}
)
