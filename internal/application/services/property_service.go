package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

const defaultSearchRadiusKm = 10.0

// CreatePropertyInput describes a new listing
type CreatePropertyInput struct {
	Title     string                  `json:"title"`
	Price     float64                 `json:"price"`
	Latitude  float64                 `json:"latitude"`
	Longitude float64                 `json:"longitude"`
	AgentID   *string                 `json:"agent_id,omitempty"`
	Status    entities.PropertyStatus `json:"status,omitempty"`
}

// PropertyService is the property registry the engines operate on
type PropertyService struct {
	store  repositories.Store
	reader repositories.PropertyRepository
	index  providers.PropertyIndex
	events eventPublisher
	now    func() time.Time
}

// NewPropertyService creates a new property service. reader serves single
// property reads and may be a caching decorator over the store; nil uses the
// store directly.
func NewPropertyService(store repositories.Store, reader repositories.PropertyRepository) *PropertyService {
	if reader == nil {
		reader = store.Properties()
	}
	return &PropertyService{store: store, reader: reader, now: utcNow}
}

// SetEventBus sets the event bus for publishing property changes
func (s *PropertyService) SetEventBus(bus providers.EventBus) {
	s.events.bus = bus
}

// SetPropertyIndex enables nearby search
func (s *PropertyService) SetPropertyIndex(index providers.PropertyIndex) {
	s.index = index
}

// SetClock replaces the time source
func (s *PropertyService) SetClock(now func() time.Time) {
	s.now = now
}

// Create lists a new property owned by the actor
func (s *PropertyService) Create(ctx context.Context, actor entities.Actor, input CreatePropertyInput) (*entities.Property, error) {
	if !actor.Valid() || actor.Role == entities.RoleBuyer {
		return nil, apperrors.NewNotAuthorizedError("only sellers, agents and admins can list properties")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required")
	}
	if !validAmount(input.Price) {
		return nil, apperrors.NewInvalidAmountError("price must be greater than zero")
	}
	if input.Latitude < -90 || input.Latitude > 90 || input.Longitude < -180 || input.Longitude > 180 {
		return nil, apperrors.NewValidationError("coordinates are out of range")
	}
	status := input.Status
	if status == "" {
		status = entities.PropertyStatusActive
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("unknown property status " + string(status))
	}

	now := s.now()
	property := &entities.Property{
		ID:        uuid.New().String(),
		OwnerID:   actor.UserID,
		AgentID:   input.AgentID,
		Title:     title,
		Price:     input.Price,
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
		Status:    status,
	}
	if actor.Role == entities.RoleAgent && property.AgentID == nil {
		agentID := actor.UserID
		property.AgentID = &agentID
	}
	property.Stamp(now)

	if err := s.store.Properties().Create(ctx, property); err != nil {
		return nil, err
	}

	s.events.publish(ctx, entities.EventPropertyCreated, property.ID, property.ID, now, map[string]interface{}{
		"status": string(property.Status),
	})
	return property, nil
}

// Get returns a live property
func (s *PropertyService) Get(ctx context.Context, id string) (*entities.Property, error) {
	return s.reader.GetByID(ctx, id)
}

// SearchNearby returns active listings around a point, best boosted first
func (s *PropertyService) SearchNearby(ctx context.Context, query providers.NearbyQuery) ([]providers.PropertyHit, error) {
	if s.index == nil {
		return nil, apperrors.NewExternalError("property search is not configured", nil)
	}
	if query.Latitude < -90 || query.Latitude > 90 || query.Longitude < -180 || query.Longitude > 180 {
		return nil, apperrors.NewValidationError("coordinates are out of range")
	}
	if query.RadiusKm <= 0 {
		query.RadiusKm = defaultSearchRadiusKm
	}
	page := repositories.ListFilter{Limit: query.Limit, Offset: query.Offset}.Normalize()
	query.Limit, query.Offset = page.Limit, page.Offset

	hits, err := s.index.SearchNearby(ctx, query)
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.NewExternalError("property search failed", err)
	}
	return hits, nil
}
