package routes

import (
	"net/http"

	"github.com/estatehub/marketplace/backend/internal/api/handlers"
	"github.com/estatehub/marketplace/backend/internal/api/middleware"
)

// Handlers groups the route handlers
type Handlers struct {
	Property     *handlers.PropertyHandler
	Offer        *handlers.OfferHandler
	Booking      *handlers.BookingHandler
	Review       *handlers.ReviewHandler
	Favorite     *handlers.FavoriteHandler
	Notification *handlers.NotificationHandler
	Admin        *handlers.AdminHandler
	Health       *handlers.HealthHandler
}

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux
	h   Handlers
}

// NewRouter creates a new router
func NewRouter(h Handlers) *Router {
	return &Router{mux: http.NewServeMux(), h: h}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.h.Health.Health)

	// Property endpoints
	r.mux.HandleFunc("POST /api/properties", r.h.Property.CreateProperty)
	r.mux.HandleFunc("GET /api/properties/nearby", r.h.Property.SearchNearby)
	r.mux.HandleFunc("GET /api/properties/{id}", r.h.Property.GetProperty)
	r.mux.HandleFunc("DELETE /api/properties/{id}", r.h.Property.DeleteProperty)
	r.mux.HandleFunc("POST /api/properties/{id}/views", r.h.Property.RecordView)

	// Offer endpoints
	r.mux.HandleFunc("POST /api/properties/{id}/offers", r.h.Offer.CreateOffer)
	r.mux.HandleFunc("GET /api/properties/{id}/offers", r.h.Offer.ListPropertyOffers)
	r.mux.HandleFunc("GET /api/me/offers", r.h.Offer.ListMyOffers)
	r.mux.HandleFunc("GET /api/offers/{id}", r.h.Offer.GetOffer)
	r.mux.HandleFunc("DELETE /api/offers/{id}", r.h.Offer.DeleteOffer)
	r.mux.HandleFunc("POST /api/offers/{id}/counter", r.h.Offer.CounterOffer)
	r.mux.HandleFunc("POST /api/offers/{id}/accept", r.h.Offer.AcceptOffer)
	r.mux.HandleFunc("POST /api/offers/{id}/reject", r.h.Offer.RejectOffer)
	r.mux.HandleFunc("POST /api/offers/{id}/withdraw", r.h.Offer.WithdrawOffer)

	// Booking endpoints
	r.mux.HandleFunc("POST /api/properties/{id}/bookings", r.h.Booking.ScheduleBooking)
	r.mux.HandleFunc("GET /api/properties/{id}/bookings", r.h.Booking.ListPropertyBookings)
	r.mux.HandleFunc("GET /api/bookings/{id}", r.h.Booking.GetBooking)
	r.mux.HandleFunc("DELETE /api/bookings/{id}", r.h.Booking.DeleteBooking)
	r.mux.HandleFunc("POST /api/bookings/{id}/approve", r.h.Booking.ApproveBooking)
	r.mux.HandleFunc("POST /api/bookings/{id}/reject", r.h.Booking.RejectBooking)
	r.mux.HandleFunc("POST /api/bookings/{id}/cancel", r.h.Booking.CancelBooking)
	r.mux.HandleFunc("POST /api/bookings/{id}/complete", r.h.Booking.CompleteBooking)

	// Review endpoints
	r.mux.HandleFunc("PUT /api/properties/{id}/review", r.h.Review.UpsertReview)
	r.mux.HandleFunc("DELETE /api/properties/{id}/review", r.h.Review.RemoveReview)
	r.mux.HandleFunc("GET /api/properties/{id}/reviews", r.h.Review.ListReviews)

	// Favorite endpoints
	r.mux.HandleFunc("POST /api/properties/{id}/favorite", r.h.Favorite.AddFavorite)
	r.mux.HandleFunc("DELETE /api/properties/{id}/favorite", r.h.Favorite.RemoveFavorite)
	r.mux.HandleFunc("GET /api/me/favorites", r.h.Favorite.ListMyFavorites)

	// Notification endpoints
	r.mux.HandleFunc("GET /api/notifications", r.h.Notification.ListNotifications)
	r.mux.HandleFunc("POST /api/notifications/{id}/read", r.h.Notification.MarkRead)

	// Admin endpoints
	r.mux.HandleFunc("GET /api/admin/deleted/{kind}", r.h.Admin.ListDeleted)

	// Apply middleware in reverse order (last middleware wraps first).
	// Observability sits directly on the mux so it can read the matched pattern.
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ActorMiddleware(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so preflights never reach the handlers
	handler = middleware.CORSMiddleware(handler)

	return handler
}
