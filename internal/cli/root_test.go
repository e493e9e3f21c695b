package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatehub/marketplace/backend/internal/application/services"
	"github.com/estatehub/marketplace/backend/internal/bootstrap"
	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/pkg/config"
)

var (
	seller = entities.Actor{UserID: "seller-1", Role: entities.RoleSeller}
	buyer  = entities.Actor{UserID: "buyer-1", Role: entities.RoleBuyer}
)

func memoryConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", StoreDriver: bootstrap.StoreDriverMemory},
		Marketplace: config.MarketplaceConfig{
			OfferTTL:           time.Hour,
			CounterOfferTTL:    time.Hour,
			DefaultTourMinutes: 60,
			MaxTourMinutes:     120,
			BoostInterval:      time.Minute,
			BoostWindow:        time.Hour,
			BoostWeights:       config.BoostWeights{Views: 1, Favorites: 2, Offers: 3, Bookings: 1},
			OfferSweepInterval: time.Minute,
			ViewTimeout:        time.Second,
		},
	}
}

// newTestApp builds one in-memory graph that every command invocation reuses
func newTestApp(t *testing.T) (*bootstrap.Container, *RootOptions) {
	t.Helper()
	app, err := bootstrap.New(context.Background(), memoryConfig())
	require.NoError(t, err)
	opts := &RootOptions{load: func(context.Context) (*bootstrap.Container, error) { return app, nil }}
	return app, opts
}

func execute(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func createProperty(t *testing.T, app *bootstrap.Container) *entities.Property {
	t.Helper()
	p, err := app.Properties.Create(context.Background(), seller, services.CreatePropertyInput{
		Title: "Loft", Price: 250000, Latitude: 6.45, Longitude: 3.39,
	})
	require.NoError(t, err)
	return p
}

func TestRoot_InvalidFormat(t *testing.T) {
	_, opts := newTestApp(t)
	_, err := execute(t, opts, "--format", "yaml", "boost", "recompute")
	assert.ErrorContains(t, err, "invalid format")
}

func TestOffersSweep_ExpiresOverdueOffers(t *testing.T) {
	app, opts := newTestApp(t)
	ctx := context.Background()
	property := createProperty(t, app)

	app.Offers.SetClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	offer, err := app.Offers.Create(ctx, buyer, services.CreateOfferInput{PropertyID: property.ID, Amount: 240000})
	require.NoError(t, err)
	app.Offers.SetClock(time.Now)

	out, err := execute(t, opts, "--format", "json", "offers", "sweep", "--batch", "10")
	require.NoError(t, err)

	var result map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 1, result["expired"])

	got, err := app.Offers.Get(ctx, buyer, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.OfferStatusRejected, got.Status)

	out, err = execute(t, opts, "offers", "sweep")
	require.NoError(t, err)
	assert.Equal(t, "expired 0 offers\n", out)
}

func TestBoostRecompute(t *testing.T) {
	app, opts := newTestApp(t)
	createProperty(t, app)

	out, err := execute(t, opts, "boost", "recompute")
	require.NoError(t, err)
	assert.Contains(t, out, "recomputed")
}

func TestRatingsReconcile(t *testing.T) {
	app, opts := newTestApp(t)
	ctx := context.Background()
	property := createProperty(t, app)

	_, _, err := app.Ratings.UpsertReview(ctx, buyer, property.ID, 4, "bright")
	require.NoError(t, err)
	_, _, err = app.Ratings.UpsertReview(ctx, entities.Actor{UserID: "buyer-2", Role: entities.RoleBuyer}, property.ID, 5, "")
	require.NoError(t, err)

	out, err := execute(t, opts, "--format", "json", "ratings", "reconcile", property.ID)
	require.NoError(t, err)

	var summaries []entities.RatingSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].RatingsCount)
	assert.InDelta(t, 4.5, summaries[0].AverageRating, 0.001)

	_, err = execute(t, opts, "ratings", "reconcile", "missing")
	assert.ErrorContains(t, err, "reconcile missing")

	_, err = execute(t, opts, "ratings", "reconcile")
	assert.Error(t, err)
}

func TestAuditDeleted(t *testing.T) {
	app, opts := newTestApp(t)
	property := createProperty(t, app)
	require.NoError(t, app.Deletes.DeleteProperty(context.Background(), seller, property.ID))

	out, err := execute(t, opts, "audit", "deleted", "property")
	require.NoError(t, err)
	assert.Contains(t, out, "property\t"+property.ID)

	_, err = execute(t, opts, "audit", "deleted", "widgets")
	assert.Error(t, err)

	_, err = execute(t, opts, "audit", "deleted", "property", "--since", "yesterday")
	assert.ErrorContains(t, err, "RFC3339")
}

func TestRunWorker_StopsOnCancel(t *testing.T) {
	app, _ := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- runWorker(ctx, app, 10) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.NoError(t, app.Close())
}
