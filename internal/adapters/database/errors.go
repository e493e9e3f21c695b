package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

// Constraint names shared with the migrations
const (
	constraintActiveOffer    = "offers_one_active_per_buyer"
	constraintAcceptedOffer  = "offers_one_accepted_per_property"
	constraintBookingOverlap = "bookings_no_overlap"
	constraintLiveReview     = "reviews_one_live_per_user"
	constraintLiveFavorite   = "favorites_one_live_per_user"
)

const (
	codeUniqueViolation      = "23505"
	codeExclusionViolation   = "23P01"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func notFound(entity, id string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("%s with id %s not found", entity, id))
}

// translate maps constraint violations to domain errors and wraps anything
// else as INTERNAL. AppErrors pass through unchanged.
func translate(err error, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			switch pqErr.Constraint {
			case constraintActiveOffer:
				return apperrors.NewDuplicateActiveOfferError("")
			case constraintAcceptedOffer:
				return &apperrors.AppError{
					Type:    apperrors.ErrorTypeInvalidTransition,
					Message: "property already has an accepted offer",
				}
			case constraintLiveReview:
				return apperrors.NewConflictError("user already reviewed this property")
			case constraintLiveFavorite:
				return apperrors.NewAlreadyFavoritedError("")
			}
			return apperrors.NewConflictError(pqErr.Message)
		case codeExclusionViolation:
			if pqErr.Constraint == constraintBookingOverlap {
				return apperrors.NewSlotConflictError("")
			}
		}
	}
	return apperrors.NewInternalError(message, err)
}

// isRetryable reports whether the transaction was aborted by the server and
// may succeed when re-run
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == codeSerializationFailure || pqErr.Code == codeDeadlockDetected
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
