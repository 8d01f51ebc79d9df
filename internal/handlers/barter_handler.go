package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Juanes-crypto/grupo-agro-backend/internal/barter"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/domain"
	apperrors "github.com/Juanes-crypto/grupo-agro-backend/pkg/errors"
)

// BarterHandler serves the proposal lifecycle endpoints
type BarterHandler struct {
	service *barter.Service
	logger  *zap.Logger
}

func NewBarterHandler(service *barter.Service, logger *zap.Logger) *BarterHandler {
	return &BarterHandler{service: service, logger: logger}
}

// Create handles POST /api/v1/barter
// @Summary      Create a barter proposal
// @Tags         barter
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      CreateProposalRequest  true  "Proposal request"
// @Success      201      {object}  ProposalResponse
// @Failure      400      {object}  ErrorResponse  "Invalid payload, blocked trade or ineligible product"
// @Failure      404      {object}  ErrorResponse  "Recipient or product not found"
// @Router       /barter [post]
func (h *BarterHandler) Create(c *gin.Context) {
	actorID, _, ok := currentUser(c)
	if !ok {
		fail(c, apperrors.NewUnauthorized("invalid user identity", ""))
		return
	}

	var req CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid proposal payload", err.Error()))
		return
	}

	input, err := toProposalInput(req.RecipientID, req.OfferedProductIDs, req.RequestedProductIDs, req.Message)
	if err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid product or recipient id", err.Error()))
		return
	}

	proposal, err := h.service.CreateProposal(c.Request.Context(), actorID, input)
	if err != nil {
		fail(c, err)
		return
	}

	h.logger.Info("Proposal created",
		zap.String("proposal_id", proposal.ID.String()),
		zap.String("proposer_id", actorID.String()),
	)
	c.JSON(http.StatusCreated, newProposalResponse(proposal))
}

// ListMine handles GET /api/v1/barter/myproposals
// @Summary      List proposals where the caller is a party
// @Tags         barter
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  ProposalResponse
// @Router       /barter/myproposals [get]
func (h *BarterHandler) ListMine(c *gin.Context) {
	actorID, _, ok := currentUser(c)
	if !ok {
		fail(c, apperrors.NewUnauthorized("invalid user identity", ""))
		return
	}

	proposals, err := h.service.ListMyProposals(c.Request.Context(), actorID)
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]ProposalResponse, 0, len(proposals))
	for i := range proposals {
		out = append(out, newProposalResponse(&proposals[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Get handles GET /api/v1/barter/:id
// @Summary      Get a proposal by id
// @Tags         barter
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Proposal ID (UUID)"
// @Success      200  {object}  ProposalResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /barter/{id} [get]
func (h *BarterHandler) Get(c *gin.Context) {
	actorID, role, ok := currentUser(c)
	if !ok {
		fail(c, apperrors.NewUnauthorized("invalid user identity", ""))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid proposal id", err.Error()))
		return
	}

	proposal, err := h.service.GetProposal(c.Request.Context(), id, actorID, role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newProposalResponse(proposal))
}

// ValueComparison handles GET /api/v1/barter/:id/value-comparison
// @Summary      Re-evaluate trade equity at live prices
// @Tags         barter
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Proposal ID (UUID)"
// @Success      200  {object}  domain.EquityResult
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /barter/{id}/value-comparison [get]
func (h *BarterHandler) ValueComparison(c *gin.Context) {
	actorID, role, ok := currentUser(c)
	if !ok {
		fail(c, apperrors.NewUnauthorized("invalid user identity", ""))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid proposal id", err.Error()))
		return
	}

	result, err := h.service.ValueComparison(c.Request.Context(), id, actorID, role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CompareProducts handles GET /api/v1/barter/value-comparison
// @Summary      Compare the trade value of two products
// @Tags         barter
// @Produce      json
// @Security     BearerAuth
// @Param        product1Id  query     string  true  "First product ID (UUID)"
// @Param        product2Id  query     string  true  "Second product ID (UUID)"
// @Success      200         {object}  domain.EquityResult
// @Failure      400         {object}  ErrorResponse
// @Failure      404         {object}  ErrorResponse
// @Router       /barter/value-comparison [get]
func (h *BarterHandler) CompareProducts(c *gin.Context) {
	if _, _, ok := currentUser(c); !ok {
		fail(c, apperrors.NewUnauthorized("invalid user identity", ""))
		return
	}

	product1ID, err := uuid.Parse(c.Query("product1Id"))
	if err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid product1Id", err.Error()))
		return
	}
	product2ID, err := uuid.Parse(c.Query("product2Id"))
	if err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid product2Id", err.Error()))
		return
	}

	result, err := h.service.CompareProducts(c.Request.Context(), product1ID, product2ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpdateStatus handles PUT /api/v1/barter/:id/status
// @Summary      Accept, reject or cancel a proposal
// @Description  Accepting executes the exchange atomically: the status change and every stock movement commit together or not at all.
// @Tags         barter
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string               true  "Proposal ID (UUID)"
// @Param        request  body      UpdateStatusRequest  true  "Target status"
// @Success      200      {object}  ProposalResponse
// @Failure      400      {object}  ErrorResponse  "Non-actionable status or failed exchange"
// @Failure      403      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /barter/{id}/status [put]
func (h *BarterHandler) UpdateStatus(c *gin.Context) {
	actorID, _, ok := currentUser(c)
	if !ok {
		fail(c, apperrors.NewUnauthorized("invalid user identity", ""))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid proposal id", err.Error()))
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid status payload", err.Error()))
		return
	}

	proposal, err := h.service.UpdateStatus(c.Request.Context(), id, actorID, domain.ProposalStatus(req.Status))
	if err != nil {
		fail(c, err)
		return
	}

	h.logger.Info("Proposal status updated",
		zap.String("proposal_id", id.String()),
		zap.String("status", req.Status),
	)
	c.JSON(http.StatusOK, newProposalResponse(proposal))
}

// Cancel handles PUT /api/v1/barter/:id/cancel
// @Summary      Cancel a pending or countered proposal
// @Tags         barter
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Proposal ID (UUID)"
// @Success      200  {object}  ProposalResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /barter/{id}/cancel [put]
func (h *BarterHandler) Cancel(c *gin.Context) {
	actorID, _, ok := currentUser(c)
	if !ok {
		fail(c, apperrors.NewUnauthorized("invalid user identity", ""))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid proposal id", err.Error()))
		return
	}

	proposal, err := h.service.Cancel(c.Request.Context(), id, actorID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newProposalResponse(proposal))
}

// Counter handles POST /api/v1/barter/:id/counter
// @Summary      Counter a pending proposal
// @Tags         barter
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Parent proposal ID (UUID)"
// @Param        request  body      CounterProposalRequest  true  "Counter-offer"
// @Success      201      {object}  ProposalResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      403      {object}  ErrorResponse
// @Router       /barter/{id}/counter [post]
func (h *BarterHandler) Counter(c *gin.Context) {
	actorID, _, ok := currentUser(c)
	if !ok {
		fail(c, apperrors.NewUnauthorized("invalid user identity", ""))
		return
	}
	parentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid proposal id", err.Error()))
		return
	}

	var req CounterProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid counter payload", err.Error()))
		return
	}

	input, err := toProposalInput("", req.OfferedProductIDs, req.RequestedProductIDs, req.Message)
	if err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid product id", err.Error()))
		return
	}

	counter, err := h.service.Counter(c.Request.Context(), parentID, actorID, input)
	if err != nil {
		fail(c, err)
		return
	}

	h.logger.Info("Counter-proposal created",
		zap.String("counter_id", counter.ID.String()),
		zap.String("parent_id", parentID.String()),
	)
	c.JSON(http.StatusCreated, newProposalResponse(counter))
}

// AcceptCounter handles PUT /api/v1/barter/:id/counter/accept
// @Summary      Accept a counter-offer
// @Description  Executes the counter as the binding trade and completes the root of the chain in the same transaction.
// @Tags         barter
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Counter-proposal ID (UUID)"
// @Success      200  {object}  ProposalResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /barter/{id}/counter/accept [put]
func (h *BarterHandler) AcceptCounter(c *gin.Context) {
	actorID, _, ok := currentUser(c)
	if !ok {
		fail(c, apperrors.NewUnauthorized("invalid user identity", ""))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid proposal id", err.Error()))
		return
	}

	counter, err := h.service.AcceptCounter(c.Request.Context(), id, actorID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newProposalResponse(counter))
}

// RejectCounter handles PUT /api/v1/barter/:id/counter/reject
// @Summary      Reject a counter-offer
// @Description  Rejects the counter and reverts its parent proposal to pending.
// @Tags         barter
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Counter-proposal ID (UUID)"
// @Success      200  {object}  ProposalResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /barter/{id}/counter/reject [put]
func (h *BarterHandler) RejectCounter(c *gin.Context) {
	actorID, _, ok := currentUser(c)
	if !ok {
		fail(c, apperrors.NewUnauthorized("invalid user identity", ""))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid proposal id", err.Error()))
		return
	}

	counter, err := h.service.RejectCounter(c.Request.Context(), id, actorID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newProposalResponse(counter))
}

// toProposalInput parses the string ids from the request body. recipientID may
// be empty for counter-offers, whose recipient is derived from the parent.
func toProposalInput(recipientID string, offered, requested []string, message string) (barter.ProposalInput, error) {
	input := barter.ProposalInput{Message: message}

	if recipientID != "" {
		parsed, err := uuid.Parse(recipientID)
		if err != nil {
			return input, err
		}
		input.RecipientID = parsed
	}

	for _, id := range offered {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return input, err
		}
		input.OfferedProductIDs = append(input.OfferedProductIDs, parsed)
	}
	for _, id := range requested {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return input, err
		}
		input.RequestedProductIDs = append(input.RequestedProductIDs, parsed)
	}
	return input, nil
}
