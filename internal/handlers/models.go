package handlers

import (
	"time"

	"github.com/Juanes-crypto/grupo-agro-backend/internal/domain"
)

// Request bodies

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateProposalRequest struct {
	RecipientID         string   `json:"recipientId" binding:"required,uuid"`
	OfferedProductIDs   []string `json:"offeredProductIds" binding:"required,min=1,dive,uuid"`
	RequestedProductIDs []string `json:"requestedProductIds" binding:"required,min=1,dive,uuid"`
	Message             string   `json:"message"`
}

type CounterProposalRequest struct {
	OfferedProductIDs   []string `json:"offeredProductIds" binding:"required,min=1,dive,uuid"`
	RequestedProductIDs []string `json:"requestedProductIds" binding:"required,min=1,dive,uuid"`
	Message             string   `json:"message"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=accepted rejected cancelled"`
}

type CreateProductRequest struct {
	Name               string  `json:"name" binding:"required"`
	Description        string  `json:"description"`
	Price              float64 `json:"price" binding:"min=0"`
	Category           string  `json:"category"`
	Stock              int     `json:"stock" binding:"min=0"`
	Unit               string  `json:"unit"`
	ImageURL           string  `json:"imageUrl"`
	Tradable           bool    `json:"tradable"`
	Perishable         bool    `json:"perishable"`
	FreshnessCertified bool    `json:"freshnessCertified"`
}

type UpdateProductRequest struct {
	Name               string  `json:"name" binding:"required"`
	Description        string  `json:"description"`
	Price              float64 `json:"price" binding:"min=0"`
	Category           string  `json:"category"`
	Stock              int     `json:"stock" binding:"min=0"`
	Unit               string  `json:"unit"`
	ImageURL           string  `json:"imageUrl"`
	Published          bool    `json:"published"`
	Tradable           bool    `json:"tradable"`
	Perishable         bool    `json:"perishable"`
	FreshnessCertified bool    `json:"freshnessCertified"`
}

// Responses

type UserResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Role       string  `json:"role"`
	Reputation float64 `json:"reputation"`
	Premium    bool    `json:"premium"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type BarterItemResponse struct {
	ProductID   string          `json:"productId"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Quantity    domain.Quantity `json:"quantity"`
	Price       float64         `json:"price"`
}

type ProposalResponse struct {
	ID             string               `json:"id"`
	ProposerID     string               `json:"proposerId"`
	RecipientID    string               `json:"recipientId"`
	Status         string               `json:"status"`
	Message        string               `json:"message,omitempty"`
	ParentID       string               `json:"parentId,omitempty"`
	RootID         string               `json:"rootId,omitempty"`
	OfferedItems   []BarterItemResponse `json:"offeredItems"`
	RequestedItems []BarterItemResponse `json:"requestedItems"`
	Equity         domain.EquityResult  `json:"equity"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

type ProductResponse struct {
	ID                 string    `json:"id"`
	OwnerID            string    `json:"ownerId"`
	Name               string    `json:"name"`
	Description        string    `json:"description,omitempty"`
	Price              float64   `json:"price"`
	Category           string    `json:"category,omitempty"`
	Stock              int       `json:"stock"`
	Unit               string    `json:"unit"`
	ImageURL           string    `json:"imageUrl,omitempty"`
	Published          bool      `json:"published"`
	Tradable           bool      `json:"tradable"`
	Perishable         bool      `json:"perishable"`
	FreshnessCertified bool      `json:"freshnessCertified"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// ErrorResponse documents the error body for Swagger
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func newUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID.String(),
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Reputation: u.Reputation,
		Premium:    u.Premium,
	}
}

func newItemResponses(items []domain.BarterItem) []BarterItemResponse {
	out := make([]BarterItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, BarterItemResponse{
			ProductID:   item.ProductID.String(),
			Name:        item.Name,
			Description: item.Description,
			ImageURL:    item.ImageURL,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}
	return out
}

func newProposalResponse(p *domain.Proposal) ProposalResponse {
	resp := ProposalResponse{
		ID:             p.ID.String(),
		ProposerID:     p.ProposerID.String(),
		RecipientID:    p.RecipientID.String(),
		Status:         string(p.Status),
		Message:        p.Message,
		OfferedItems:   newItemResponses(p.OfferedItems),
		RequestedItems: newItemResponses(p.RequestedItems),
		Equity:         p.Equity,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.ParentID != nil {
		resp.ParentID = p.ParentID.String()
	}
	if p.RootID != nil {
		resp.RootID = p.RootID.String()
	}
	return resp
}

func newProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:                 p.ID.String(),
		OwnerID:            p.OwnerID.String(),
		Name:               p.Name,
		Description:        p.Description,
		Price:              p.Price,
		Category:           p.Category,
		Stock:              p.Stock,
		Unit:               p.Unit,
		ImageURL:           p.ImageURL,
		Published:          p.Published,
		Tradable:           p.Tradable,
		Perishable:         p.Perishable,
		FreshnessCertified: p.FreshnessCertified,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}
