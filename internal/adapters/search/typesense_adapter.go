package search

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/providers"
	tsclient "github.com/estatehub/marketplace/backend/internal/infrastructure/clients/typesense"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
)

const (
	breakerFailureThreshold = 5
	breakerOpenTimeout      = 30 * time.Second
	defaultSearchLimit      = 30
)

// documentClient is the slice of the Typesense client the adapter needs
type documentClient interface {
	UpsertProperty(ctx context.Context, document map[string]interface{}) error
	DeleteProperty(ctx context.Context, id string) error
	SearchProperties(ctx context.Context, params *api.SearchCollectionParams) (*api.SearchResult, error)
}

// TypesenseAdapter implements property search using Typesense. Calls go
// through a circuit breaker so a failing search node fails fast.
type TypesenseAdapter struct {
	client  documentClient
	breaker *gobreaker.CircuitBreaker
}

// Ensure TypesenseAdapter implements PropertyIndex
var _ providers.PropertyIndex = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return newTypesenseAdapter(client)
}

func newTypesenseAdapter(client documentClient) *TypesenseAdapter {
	return &TypesenseAdapter{
		client: client,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "typesense",
			Timeout: breakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerFailureThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				observability.GetLogger().Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("circuit breaker state changed")
			},
		}),
	}
}

// State exposes the breaker state for health reporting
func (a *TypesenseAdapter) State() gobreaker.State {
	return a.breaker.State()
}

func (a *TypesenseAdapter) call(fn func() error) error {
	_, err := a.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// Index upserts a property document
func (a *TypesenseAdapter) Index(ctx context.Context, property *entities.Property) error {
	document := propertyDocument(property)
	err := a.call(func() error {
		return a.client.UpsertProperty(ctx, document)
	})
	if err != nil {
		return fmt.Errorf("failed to index property: %w", err)
	}
	return nil
}

// Remove drops a property from the index. A missing document is not an error.
func (a *TypesenseAdapter) Remove(ctx context.Context, id string) error {
	err := a.call(func() error {
		if err := a.client.DeleteProperty(ctx, id); err != nil && !tsclient.IsNotFound(err) {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete property from index: %w", err)
	}
	return nil
}

// SearchNearby returns active listings within the radius, best boost first
func (a *TypesenseAdapter) SearchNearby(ctx context.Context, query providers.NearbyQuery) ([]providers.PropertyHit, error) {
	params := searchParams(query)

	var result *api.SearchResult
	err := a.call(func() error {
		var err error
		result, err = a.client.SearchProperties(ctx, params)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search properties: %w", err)
	}

	hits := []providers.PropertyHit{}
	if result == nil || result.Hits == nil {
		return hits, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		hits = append(hits, propertyHit(*hit.Document))
	}
	return hits, nil
}

func propertyDocument(p *entities.Property) map[string]interface{} {
	return map[string]interface{}{
		"id":             p.ID,
		"title":          p.Title,
		"status":         string(p.Status),
		"location":       []float64{p.Latitude, p.Longitude},
		"price":          p.Price,
		"average_rating": p.AverageRating,
		"ratings_count":  p.RatingsCount,
		"boost_score":    p.BoostScore,
	}
}

func searchParams(query providers.NearbyQuery) *api.SearchCollectionParams {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	filter := fmt.Sprintf("status:=%s && location:(%f, %f, %f km)",
		entities.PropertyStatusActive, query.Latitude, query.Longitude, query.RadiusKm)
	if query.MaxPrice > 0 {
		filter += fmt.Sprintf(" && price:<=%f", query.MaxPrice)
	}

	return &api.SearchCollectionParams{
		Q:        pointer.String("*"),
		QueryBy:  pointer.String("title"),
		FilterBy: pointer.String(filter),
		SortBy:   pointer.String("boost_score:desc,average_rating:desc"),
		Page:     pointer.Int(query.Offset/limit + 1),
		PerPage:  pointer.Int(limit),
	}
}

// propertyHit reads a search document; Typesense decodes numbers as float64
func propertyHit(doc map[string]interface{}) providers.PropertyHit {
	hit := providers.PropertyHit{
		ID:            stringField(doc, "id"),
		Title:         stringField(doc, "title"),
		Price:         floatField(doc, "price"),
		AverageRating: floatField(doc, "average_rating"),
		BoostScore:    floatField(doc, "boost_score"),
	}
	if loc, ok := doc["location"].([]interface{}); ok && len(loc) == 2 {
		hit.Latitude, _ = loc[0].(float64)
		hit.Longitude, _ = loc[1].(float64)
	}
	return hit
}

func stringField(doc map[string]interface{}, key string) string {
	v, _ := doc[key].(string)
	return v
}

func floatField(doc map[string]interface{}, key string) float64 {
	v, _ := doc[key].(float64)
	return v
}
