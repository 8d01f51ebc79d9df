package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product is the inventory-bearing aggregate. Stock and unit are the
// authoritative ledger values a barter exchange debits, splits or transfers.
type Product struct {
	ID                 uuid.UUID
	OwnerID            uuid.UUID
	Name               string
	Description        string
	Price              float64
	Category           string
	Stock              int
	Unit               string
	ImageURL           string
	Published          bool
	Tradable           bool
	Perishable         bool
	FreshnessCertified bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Version            int // For optimistic locking
}

// NewProduct creates a new product owned by the given user
func NewProduct(ownerID uuid.UUID, name, description, category string, price float64, stock int, unit string) *Product {
	now := time.Now()
	return &Product{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		Price:       price,
		Category:    category,
		Stock:       stock,
		Unit:        unit,
		Published:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
}

// Snapshot captures the product state as a proposal line item.
func (p *Product) Snapshot() BarterItem {
	return BarterItem{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Quantity:    Quantity{Value: float64(p.Stock), Unit: p.Unit},
		Price:       p.Price,
	}
}

// BarterEligible reports whether the product can enter a proposal.
func (p *Product) BarterEligible() error {
	if !p.Tradable {
		return ErrNotTradable
	}
	if p.Stock <= 0 {
		return ErrInsufficientStock
	}
	return nil
}

// Debit removes stock from the product
func (p *Product) Debit(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if p.Stock < quantity {
		return ErrInsufficientStock
	}
	p.Stock -= quantity
	p.UpdatedAt = time.Now()
	p.Version++
	return nil
}

// TransferTo reassigns ownership of the whole product, stock unchanged
func (p *Product) TransferTo(ownerID uuid.UUID) {
	p.OwnerID = ownerID
	p.UpdatedAt = time.Now()
	p.Version++
}

// SplitTo debits the given quantity and returns a new product record cloned
// from this one, owned by the destination party, carrying the split stock.
func (p *Product) SplitTo(ownerID uuid.UUID, quantity int) (*Product, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if p.Stock <= quantity {
		return nil, ErrInsufficientStock
	}
	if err := p.Debit(quantity); err != nil {
		return nil, err
	}

	clone := NewProduct(ownerID, p.Name, p.Description, p.Category, p.Price, quantity, p.Unit)
	clone.ImageURL = p.ImageURL
	clone.Published = p.Published
	clone.Tradable = p.Tradable
	clone.Perishable = p.Perishable
	clone.FreshnessCertified = p.FreshnessCertified
	return clone, nil
}

// Domain errors
var (
	ErrInsufficientStock = &DomainError{Message: "insufficient stock available"}
	ErrInvalidQuantity   = &DomainError{Message: "quantity must be a positive whole number"}
	ErrUnitMismatch      = &DomainError{Message: "quantity unit does not match the product unit"}
	ErrNotTradable       = &DomainError{Message: "product is not marked as tradable"}
	ErrProductNotFound   = &DomainError{Message: "product not found"}
)

// DomainError represents a domain-level error
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}
