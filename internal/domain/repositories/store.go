package repositories

import (
	"context"
	"time"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
)

// Repositories groups the entity repositories of one store or transaction
type Repositories interface {
	Properties() PropertyRepository
	Users() UserRepository
	Offers() OfferRepository
	Bookings() BookingRepository
	Reviews() ReviewRepository
	Favorites() FavoriteRepository
	Notifications() NotificationRepository
	Views() ViewEventRepository
	Audit() AuditRepository
}

// Store is the durable entity store. Repositories obtained directly from the
// Store run each call on its own; WithinTx runs fn in one transaction and
// commits only if fn returns nil.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}

// ListFilter bounds list queries
type ListFilter struct {
	Limit  int
	Offset int
}

// Normalize applies the default page size
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 30
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// AuditRepository reads soft-deleted rows. It is the only path that sees them.
type AuditRepository interface {
	// ListDeleted returns deleted records of one kind, newest first
	ListDeleted(ctx context.Context, kind entities.EntityKind, since time.Time, limit int) ([]entities.DeletedRecord, error)
}
