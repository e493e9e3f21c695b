package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("loud"))
	assert.Equal(t, zerolog.DebugLevel, parseLevel(" DEBUG "))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warn"))
}

func TestLoggerFromContext_Fields(t *testing.T) {
	var buf bytes.Buffer
	saved := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = saved })

	base := WithLogField(context.Background(), "user_id", "buyer-1")
	child := WithLogField(base, "offer_id", "offer-9")
	// siblings must not see each other's fields
	_ = WithLogField(base, "booking_id", "booking-3")

	LoggerFromContext(child).Info().Msg("accepted")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "buyer-1", entry["user_id"])
	assert.Equal(t, "offer-9", entry["offer_id"])
	assert.NotContains(t, entry, "booking_id")
	assert.NotContains(t, entry, "trace_id")
}
