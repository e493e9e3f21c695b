package typesense

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
	"github.com/estatehub/marketplace/backend/pkg/config"
	"github.com/estatehub/marketplace/backend/pkg/retry"
)

const (
	PropertiesCollection = "properties"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	retryConfig := retry.DefaultConfig("Typesense")
	retryConfig.OnRetry = func(attempt int, err error, nextDelay time.Duration) {
		observability.GetLogger().Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).
			Msg("Typesense connection attempt failed, retrying")
	}

	err := retry.Do(context.Background(), retryConfig, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		healthy, err := client.Health(ctx, 2*time.Second)
		if err != nil {
			return err
		}
		if !healthy {
			return errors.New("typesense reported unhealthy")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	observability.GetLogger().Info().Str("url", cfg.URL).Msg("Successfully connected to Typesense")
	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// PropertiesSchema is the search document layout of a listing
func PropertiesSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: PropertiesCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "title", Type: "string"},
			{Name: "status", Type: "string", Facet: pointer.True()},
			{Name: "location", Type: "geopoint"},
			{Name: "price", Type: "float", Facet: pointer.True()},
			{Name: "average_rating", Type: "float"},
			{Name: "ratings_count", Type: "int32"},
			{Name: "boost_score", Type: "float"},
		},
		DefaultSortingField: pointer.String("boost_score"),
	}
}

// InitSchema ensures the properties collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	for _, col := range collections {
		if col.Name == PropertiesCollection {
			observability.GetLogger().Debug().Msg("Typesense collection 'properties' already exists")
			return nil
		}
	}

	if _, err := c.client.Collections().Create(ctx, PropertiesSchema()); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	observability.GetLogger().Info().Msg("Created Typesense collection 'properties'")
	return nil
}

// DropSchema deletes the properties collection, used before a full reindex
func (c *Client) DropSchema(ctx context.Context) error {
	_, err := c.client.Collection(PropertiesCollection).Delete(ctx)
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

// UpsertProperty indexes a property document
func (c *Client) UpsertProperty(ctx context.Context, document map[string]interface{}) error {
	_, err := c.client.Collection(PropertiesCollection).Documents().Upsert(ctx, document)
	return err
}

// DeleteProperty removes a property document
func (c *Client) DeleteProperty(ctx context.Context, id string) error {
	_, err := c.client.Collection(PropertiesCollection).Document(id).Delete(ctx)
	return err
}

// SearchProperties runs a search over the properties collection
func (c *Client) SearchProperties(ctx context.Context, params *api.SearchCollectionParams) (*api.SearchResult, error) {
	return c.client.Collection(PropertiesCollection).Documents().Search(ctx, params)
}

// IsNotFound reports whether err is a Typesense 404
func IsNotFound(err error) bool {
	var httpErr *typesense.HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound
}
