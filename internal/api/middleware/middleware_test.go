package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
)

func TestActorMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		role   string
		want   entities.Actor
	}{
		{"seller", "u-1", "seller", entities.Actor{UserID: "u-1", Role: entities.RoleSeller}},
		{"role is case insensitive", "u-2", " Admin ", entities.Actor{UserID: "u-2", Role: entities.RoleAdmin}},
		{"unknown role is anonymous", "u-3", "root", entities.Actor{}},
		{"missing user is anonymous", "", "buyer", entities.Actor{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got entities.Actor
			handler := ActorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ActorFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
			req.Header.Set(HeaderUserID, tt.userID)
			req.Header.Set(HeaderUserRole, tt.role)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	handler := CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/offers/o-1/accept", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), HeaderUserRole)
}

func TestCORS_AllowList(t *testing.T) {
	handler := CORS([]string{"https://app.example.com", " https://admin.example.com "})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	tests := []struct {
		origin string
		want   string
	}{
		{"https://admin.example.com", "https://admin.example.com"},
		{"https://evil.example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/properties/p-1", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "Origin", w.Header().Get("Vary"))
		})
	}
}

func TestResponseOptimization(t *testing.T) {
	handler := ResponseOptimization(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/properties/p-1", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	reader, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, `{"success":true}`, string(body))
}

func TestCompression_SkipsBodylessResponses(t *testing.T) {
	handler := Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodDelete, "/api/properties/p-1/favorite", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Zero(t, w.Body.Len())
}

func TestLoggingAndObservabilityKeepStatus(t *testing.T) {
	handler := ObservabilityMiddleware(LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/bookings/b-1/approve", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}
