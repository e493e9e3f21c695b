package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found or has been soft-deleted
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a generic validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeNotAuthorized indicates the actor lacks the role or ownership required
	ErrorTypeNotAuthorized ErrorType = "NOT_AUTHORIZED"

	// ErrorTypeInvalidTransition indicates a state machine violation
	ErrorTypeInvalidTransition ErrorType = "INVALID_TRANSITION"

	// ErrorTypeDuplicateActiveOffer indicates the buyer already has an open offer on the property
	ErrorTypeDuplicateActiveOffer ErrorType = "DUPLICATE_ACTIVE_OFFER"

	// ErrorTypeSlotConflict indicates an overlapping approved booking exists
	ErrorTypeSlotConflict ErrorType = "SLOT_CONFLICT"

	// ErrorTypeAlreadyFavorited indicates the user already favorited the property
	ErrorTypeAlreadyFavorited ErrorType = "ALREADY_FAVORITED"

	// ErrorTypeInvalidRating indicates a rating outside 1..5
	ErrorTypeInvalidRating ErrorType = "INVALID_RATING"

	// ErrorTypeInvalidAmount indicates a non-positive offer amount
	ErrorTypeInvalidAmount ErrorType = "INVALID_AMOUNT"

	// ErrorTypeInvalidSlot indicates a booking slot in the past or with a bad duration
	ErrorTypeInvalidSlot ErrorType = "INVALID_SLOT"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from external service
	ErrorTypeExternal ErrorType = "EXTERNAL"
)

// Detail keys shared by the engines
const (
	DetailCurrentStatus = "current_status"
	DetailConflictingID = "conflicting_id"
	DetailEntityID      = "entity_id"
	DetailReason        = "reason"
)

// Sentinels usable with errors.Is. Matching is by Type only.
var (
	ErrNotFound             = &AppError{Type: ErrorTypeNotFound}
	ErrValidation           = &AppError{Type: ErrorTypeValidation}
	ErrConflict             = &AppError{Type: ErrorTypeConflict}
	ErrNotAuthorized        = &AppError{Type: ErrorTypeNotAuthorized}
	ErrInvalidTransition    = &AppError{Type: ErrorTypeInvalidTransition}
	ErrDuplicateActiveOffer = &AppError{Type: ErrorTypeDuplicateActiveOffer}
	ErrSlotConflict         = &AppError{Type: ErrorTypeSlotConflict}
	ErrAlreadyFavorited     = &AppError{Type: ErrorTypeAlreadyFavorited}
	ErrInvalidRating        = &AppError{Type: ErrorTypeInvalidRating}
	ErrInvalidAmount        = &AppError{Type: ErrorTypeInvalidAmount}
	ErrInvalidSlot          = &AppError{Type: ErrorTypeInvalidSlot}
	ErrInternal             = &AppError{Type: ErrorTypeInternal}
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+e.Details[k])
		}
		b.WriteString(" [")
		b.WriteString(strings.Join(parts, " "))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError of the same type
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// WithDetail attaches a context value and returns the same error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// TypeOf returns the ErrorType of err, or ErrorTypeInternal when err is not an AppError
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// As returns the AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

// IsType reports whether err carries the given type
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

func newError(t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return newError(ErrorTypeNotFound, message)
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return newError(ErrorTypeValidation, message)
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return newError(ErrorTypeConflict, message)
}

// NewNotAuthorizedError creates a new authorization error
func NewNotAuthorizedError(message string) *AppError {
	return newError(ErrorTypeNotAuthorized, message)
}

// NewInvalidTransitionError reports a rejected status change
func NewInvalidTransitionError(entity, from, to string) *AppError {
	return newError(ErrorTypeInvalidTransition, fmt.Sprintf("%s cannot move from %s to %s", entity, from, to)).
		WithDetail(DetailCurrentStatus, from)
}

// NewDuplicateActiveOfferError reports an existing open offer
func NewDuplicateActiveOfferError(existingOfferID string) *AppError {
	err := newError(ErrorTypeDuplicateActiveOffer, "buyer already has an active offer on this property")
	if existingOfferID != "" {
		err.WithDetail(DetailConflictingID, existingOfferID)
	}
	return err
}

// NewSlotConflictError reports an overlapping approved booking
func NewSlotConflictError(conflictingBookingID string) *AppError {
	err := newError(ErrorTypeSlotConflict, "an approved booking already overlaps this slot")
	if conflictingBookingID != "" {
		err.WithDetail(DetailConflictingID, conflictingBookingID)
	}
	return err
}

// NewAlreadyFavoritedError reports an existing favorite
func NewAlreadyFavoritedError(favoriteID string) *AppError {
	err := newError(ErrorTypeAlreadyFavorited, "property is already in favorites")
	if favoriteID != "" {
		err.WithDetail(DetailConflictingID, favoriteID)
	}
	return err
}

// NewInvalidRatingError creates a new invalid rating error
func NewInvalidRatingError(rating int) *AppError {
	return newError(ErrorTypeInvalidRating, fmt.Sprintf("rating must be between 1 and 5, got %d", rating))
}

// NewInvalidAmountError creates a new invalid amount error
func NewInvalidAmountError(message string) *AppError {
	return newError(ErrorTypeInvalidAmount, message)
}

// NewInvalidSlotError creates a new invalid slot error
func NewInvalidSlotError(message string) *AppError {
	return newError(ErrorTypeInvalidSlot, message)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}
