package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/estatehub/marketplace/backend/internal/adapters/memory"
	"github.com/estatehub/marketplace/backend/internal/application/services"
	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

func TestPropertyService_Create(t *testing.T) {
	store := memory.NewStore()
	bus := NewMockEventBus()
	svc := services.NewPropertyService(store, nil)
	svc.SetClock(newTestClock().Now)
	svc.SetEventBus(bus)
	ctx := context.Background()

	property, err := svc.Create(ctx, agent, services.CreatePropertyInput{
		Title:     "  Loft  ",
		Price:     300000,
		Latitude:  48.85,
		Longitude: 2.35,
	})
	require.NoError(t, err)
	assert.Equal(t, "Loft", property.Title)
	assert.Equal(t, entities.PropertyStatusActive, property.Status)
	require.NotNil(t, property.AgentID)
	assert.Equal(t, agent.UserID, *property.AgentID)
	assert.Equal(t, baseTime, property.CreatedAt)

	got, err := svc.Get(ctx, property.ID)
	require.NoError(t, err)
	assert.Equal(t, property.ID, got.ID)

	events := bus.Published()
	require.Len(t, events, 1)
	assert.Equal(t, entities.EventPropertyCreated, events[0].Type)
}

func TestPropertyService_CreateValidation(t *testing.T) {
	svc := services.NewPropertyService(memory.NewStore(), nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   entities.Actor
		input   services.CreatePropertyInput
		errType apperrors.ErrorType
	}{
		{"buyer", buyer, services.CreatePropertyInput{Title: "x", Price: 1}, apperrors.ErrorTypeNotAuthorized},
		{"empty title", seller, services.CreatePropertyInput{Title: " ", Price: 1}, apperrors.ErrorTypeValidation},
		{"zero price", seller, services.CreatePropertyInput{Title: "x"}, apperrors.ErrorTypeInvalidAmount},
		{"bad latitude", seller, services.CreatePropertyInput{Title: "x", Price: 1, Latitude: 91}, apperrors.ErrorTypeValidation},
		{"bad status", seller, services.CreatePropertyInput{Title: "x", Price: 1, Status: "gone"}, apperrors.ErrorTypeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.actor, tt.input)
			assert.Equal(t, tt.errType, apperrors.TypeOf(err))
		})
	}
}

func TestPropertyService_SearchNearby(t *testing.T) {
	svc := services.NewPropertyService(memory.NewStore(), nil)
	ctx := context.Background()

	_, err := svc.SearchNearby(ctx, providers.NearbyQuery{Latitude: 1, Longitude: 1})
	assert.Equal(t, apperrors.ErrorTypeExternal, apperrors.TypeOf(err))

	index := new(MockPropertyIndex)
	svc.SetPropertyIndex(index)

	hits := []providers.PropertyHit{{ID: "p-1", Title: "Loft", BoostScore: 4}}
	index.On("SearchNearby", mock.Anything, providers.NearbyQuery{Latitude: 52.5, Longitude: 13.4, RadiusKm: 10, Limit: 30}).
		Return(hits, nil).Once()

	got, err := svc.SearchNearby(ctx, providers.NearbyQuery{Latitude: 52.5, Longitude: 13.4})
	require.NoError(t, err)
	assert.Equal(t, hits, got)

	index.On("SearchNearby", mock.Anything, mock.Anything).Return(nil, errors.New("circuit open")).Once()
	_, err = svc.SearchNearby(ctx, providers.NearbyQuery{Latitude: 52.5, Longitude: 13.4, RadiusKm: 2})
	assert.Equal(t, apperrors.ErrorTypeExternal, apperrors.TypeOf(err))

	_, err = svc.SearchNearby(ctx, providers.NearbyQuery{Latitude: 95})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	index.AssertExpectations(t)
}
