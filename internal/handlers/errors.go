package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Juanes-crypto/grupo-agro-backend/internal/domain"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/repository"
	apperrors "github.com/Juanes-crypto/grupo-agro-backend/pkg/errors"
	"github.com/Juanes-crypto/grupo-agro-backend/pkg/middleware"
)

// toStandardError maps service and domain errors onto the wire-level error
// contract rendered by the ErrorHandler middleware.
func toStandardError(err error) *apperrors.StandardError {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}

	switch {
	case errors.Is(err, domain.ErrProposalNotFound):
		return apperrors.NewStandardError("ProposalNotFound", "barter proposal not found", err.Error())
	case errors.Is(err, domain.ErrProductNotFound):
		return apperrors.NewStandardError("ProductNotFound", "product not found", err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		return apperrors.NewStandardError("UserNotFound", "user not found", err.Error())
	case errors.Is(err, domain.ErrNotAuthorized):
		return apperrors.NewForbidden("you are not a party to this proposal or not allowed to act on it", err.Error())
	case errors.Is(err, domain.ErrNotActionable):
		return apperrors.NewConflict("proposal status does not allow this transition", err.Error())
	case errors.Is(err, domain.ErrNotCounter),
		errors.Is(err, domain.ErrSelfProposal),
		errors.Is(err, domain.ErrEmptyItems),
		errors.Is(err, domain.ErrLowReputation),
		errors.Is(err, domain.ErrNotCertified),
		errors.Is(err, domain.ErrNotOwner),
		errors.Is(err, domain.ErrNotTradable),
		errors.Is(err, domain.ErrInvalidQuantity):
		return apperrors.NewInvalidRequest(err.Error(), "")
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrUnitMismatch):
		return apperrors.NewExchangeFailure("exchange aborted, no stock was moved", err.Error())
	case errors.Is(err, repository.ErrOptimisticLockFailed):
		return apperrors.NewDependencyFailure("concurrent modification detected", err)
	default:
		return apperrors.NewInternalError("internal server error", err)
	}
}

// fail attaches the mapped error to the context for the ErrorHandler middleware
func fail(c *gin.Context, err error) {
	_ = c.Error(toStandardError(err))
	c.Abort()
}

// currentUser extracts the authenticated caller set by the auth middleware
func currentUser(c *gin.Context) (uuid.UUID, string, bool) {
	id, err := uuid.Parse(c.GetString(middleware.ContextUserID))
	if err != nil {
		return uuid.Nil, "", false
	}
	return id, c.GetString(middleware.ContextRole), true
}
