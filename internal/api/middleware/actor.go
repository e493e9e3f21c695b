package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

type actorKey struct{}

// WithActor stores the caller in ctx
func WithActor(ctx context.Context, actor entities.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the caller, or the zero Actor for anonymous requests
func ActorFromContext(ctx context.Context) entities.Actor {
	actor, _ := ctx.Value(actorKey{}).(entities.Actor)
	return actor
}

// ActorMiddleware turns the identity headers set by the gateway into an
// Actor. Authentication happens upstream; an unknown role leaves the request
// anonymous and the engines reject it where an actor is required.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := entities.Actor{
			UserID: strings.TrimSpace(r.Header.Get(HeaderUserID)),
			Role:   entities.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole)))),
		}
		ctx := r.Context()
		if actor.Valid() {
			ctx = observability.WithLogField(ctx, "user_id", actor.UserID)
		} else {
			actor = entities.Actor{}
		}
		next.ServeHTTP(w, r.WithContext(WithActor(ctx, actor)))
	})
}
