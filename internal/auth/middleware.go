package auth

import (
	"net/http"

	"github.com/google/uuid"
)

// ActorHeader carries the authenticated administrator identity, set by the
// gateway in front of this service.
const ActorHeader = "X-Admin-Id"

// ActorMiddleware copies the admin identity header into the request
// context. A missing or malformed header leaves the context without an
// actor; downstream writes then record no attribution instead of failing.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get(ActorHeader); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				r = r.WithContext(ContextWithActorID(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}
