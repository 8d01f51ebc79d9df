package errors

import (
	"fmt"
	"net/http"
)

// StandardError represents a standardized error response
type StandardError struct {
	Code    string `json:"error"`   // Error code/type (e.g., "ValidationError", "ProposalNotFound")
	Message string `json:"message"` // Human-readable error message
	Details string `json:"details"` // Additional details (field name, quantities involved, etc.)
}

// Error implements the error interface
func (e *StandardError) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for the error
func (e *StandardError) HTTPStatus() int {
	switch e.Code {
	case "InvalidRequest", "ValidationError":
		return http.StatusBadRequest
	case "ProposalNotFound", "ProductNotFound", "UserNotFound", "ResourceNotFound":
		return http.StatusNotFound
	case "Unauthorized":
		return http.StatusUnauthorized
	case "Forbidden":
		return http.StatusForbidden
	// A proposal in a non-actionable status is reported as a bad request,
	// mirroring the REST surface of the marketplace API.
	case "Conflict", "ExchangeFailure", "TradeBlocked":
		return http.StatusBadRequest
	case "DuplicateEmail":
		return http.StatusConflict
	case "BrokerConnectionError", "ServiceUnavailable":
		return http.StatusServiceUnavailable
	case "DependencyFailure", "SerializationError", "DatabaseError", "InternalError":
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewStandardError creates a new StandardError
func NewStandardError(errorCode, message, details string) *StandardError {
	return &StandardError{
		Code:    errorCode,
		Message: message,
		Details: details,
	}
}

// Common error constructors

func NewInvalidRequest(message, details string) *StandardError {
	return NewStandardError("InvalidRequest", message, details)
}

func NewValidationError(message, field string) *StandardError {
	return NewStandardError("ValidationError", message, fmt.Sprintf("Field: %s", field))
}

func NewProposalNotFound(proposalID string) *StandardError {
	return NewStandardError("ProposalNotFound", "barter proposal not found", fmt.Sprintf("Proposal ID: %s", proposalID))
}

func NewProductNotFound(productID string) *StandardError {
	return NewStandardError("ProductNotFound", "product not found", fmt.Sprintf("Product ID: %s", productID))
}

func NewUserNotFound(userID string) *StandardError {
	return NewStandardError("UserNotFound", "user not found", fmt.Sprintf("User ID: %s", userID))
}

func NewUnauthorized(message, details string) *StandardError {
	return NewStandardError("Unauthorized", message, details)
}

func NewForbidden(message, details string) *StandardError {
	return NewStandardError("Forbidden", message, details)
}

// NewConflict reports a state transition attempted from a non-actionable status.
func NewConflict(message, currentStatus string) *StandardError {
	return NewStandardError("Conflict", message, fmt.Sprintf("Current status: %s", currentStatus))
}

// NewExchangeFailure reports a unit mismatch or insufficient stock discovered
// while executing an accepted trade. The whole exchange aborts.
func NewExchangeFailure(message, details string) *StandardError {
	return NewStandardError("ExchangeFailure", message, details)
}

// NewTradeBlocked reports an equity imbalance above the blocking threshold.
func NewTradeBlocked(differencePct float64) *StandardError {
	return NewStandardError("TradeBlocked", "trade value difference exceeds the allowed maximum",
		fmt.Sprintf("Difference: %.1f%%", differencePct))
}

// NewDependencyFailure reports an aborted or timed-out storage transaction.
// Every staged write has been rolled back.
func NewDependencyFailure(operation string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return NewStandardError("DependencyFailure", fmt.Sprintf("storage transaction failed: %s", operation), details)
}

func NewDatabaseError(operation string, err error) *StandardError {
	return NewStandardError("DatabaseError", fmt.Sprintf("database operation failed: %s", operation), err.Error())
}

func NewBrokerConnectionError(err error) *StandardError {
	return NewStandardError("BrokerConnectionError", "failed to connect to event broker", err.Error())
}

func NewInternalError(message string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return NewStandardError("InternalError", message, details)
}
