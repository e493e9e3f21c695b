package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

var bookingColumns = []interface{}{
	"id", "property_id", "buyer_id", "scheduled_date", "duration_minutes", "ends_at", "note", "status",
	"created_at", "updated_at", "is_deleted", "deleted_at",
}

// BookingAdapter implements the BookingRepository interface
type BookingAdapter struct {
	s *session
}

var _ repositories.BookingRepository = (*BookingAdapter)(nil)

// Create creates a new booking
func (a *BookingAdapter) Create(ctx context.Context, booking *entities.Booking) error {
	record := goqu.Record{
		"id":               booking.ID,
		"property_id":      booking.PropertyID,
		"buyer_id":         booking.BuyerID,
		"scheduled_date":   booking.ScheduledDate,
		"duration_minutes": booking.DurationMinutes,
		"ends_at":          booking.EndsAt,
		"note":             booking.Note,
		"status":           booking.Status,
		"created_at":       booking.CreatedAt,
		"updated_at":       booking.UpdatedAt,
	}

	if _, err := a.s.exec(ctx, insertInto("bookings").Rows(record)); err != nil {
		return translate(err, "failed to create booking")
	}
	return nil
}

// GetByID retrieves a live booking by ID
func (a *BookingAdapter) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	booking := &entities.Booking{}
	err := a.s.get(ctx, booking, from("bookings").Select(bookingColumns...).Where(goqu.Ex{"id": id}, live()))
	if isNoRows(err) {
		return nil, notFound("booking", id)
	}
	if err != nil {
		return nil, translate(err, "failed to get booking")
	}
	return booking, nil
}

// FindApprovedOverlap returns an approved live booking overlapping [start, end)
func (a *BookingAdapter) FindApprovedOverlap(ctx context.Context, propertyID string, start, end time.Time, excludeID string) (*entities.Booking, error) {
	booking := &entities.Booking{}
	err := a.s.get(ctx, booking, from("bookings").Select(bookingColumns...).
		Where(
			goqu.Ex{"property_id": propertyID, "status": entities.BookingStatusApproved},
			goqu.C("id").Neq(excludeID),
			goqu.C("scheduled_date").Lt(end),
			goqu.C("ends_at").Gt(start),
			live(),
		).
		Order(goqu.I("scheduled_date").Asc()).
		Limit(1))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "failed to check booking overlap")
	}
	return booking, nil
}

// Transition writes the status when the stored status is still one of allowed.
// The exclusion constraint backs the overlap check on approval.
func (a *BookingAdapter) Transition(ctx context.Context, booking *entities.Booking, allowed []entities.BookingStatus) error {
	stored, err := a.GetByID(ctx, booking.ID)
	if err != nil {
		return err
	}

	if booking.Status == entities.BookingStatusApproved {
		other, err := a.FindApprovedOverlap(ctx, stored.PropertyID, stored.ScheduledDate, stored.EndsAt, stored.ID)
		if err != nil {
			return err
		}
		if other != nil {
			return apperrors.NewSlotConflictError(other.ID)
		}
	}

	rows, err := a.s.exec(ctx, update("bookings").
		Set(goqu.Record{
			"status":     booking.Status,
			"updated_at": booking.UpdatedAt,
		}).
		Where(goqu.Ex{"id": booking.ID, "status": allowed}, live()))
	if err != nil {
		return translate(err, "failed to update booking")
	}
	if rows == 0 {
		return apperrors.NewInvalidTransitionError("booking", string(stored.Status), string(booking.Status))
	}
	return nil
}

// ListByProperty lists live bookings of a property ordered by slot
func (a *BookingAdapter) ListByProperty(ctx context.Context, propertyID string, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	page := filter.ListFilter.Normalize()
	ds := from("bookings").Select(bookingColumns...).
		Where(goqu.Ex{"property_id": propertyID}, live())

	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": filter.Status})
	}
	if filter.From != nil {
		ds = ds.Where(goqu.C("ends_at").Gte(*filter.From))
	}
	if filter.To != nil {
		ds = ds.Where(goqu.C("scheduled_date").Lt(*filter.To))
	}

	ds = ds.Order(goqu.I("scheduled_date").Asc(), goqu.I("id").Asc()).
		Limit(uint(page.Limit)).
		Offset(uint(page.Offset))

	var bookings []*entities.Booking
	if err := a.s.selectAll(ctx, &bookings, ds); err != nil {
		return nil, translate(err, "failed to list bookings")
	}
	return bookings, nil
}

// SoftDelete marks the booking deleted
func (a *BookingAdapter) SoftDelete(ctx context.Context, id string, now time.Time) (bool, error) {
	return a.s.softDelete(ctx, "bookings", "booking", id, now)
}
