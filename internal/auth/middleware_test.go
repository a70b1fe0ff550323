package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestActorMiddlewarePutsHeaderIdentityInContext(t *testing.T) {
	actor := uuid.New()

	var got uuid.UUID
	var ok bool
	handler := ActorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = ActorIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/admin/assignments", nil)
	req.Header.Set(ActorHeader, actor.String())
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !ok || got != actor {
		t.Fatalf("expected actor %s in context, got %s (ok=%v)", actor, got, ok)
	}
}

func TestActorMiddlewareIgnoresMissingOrMalformedHeader(t *testing.T) {
	for name, header := range map[string]string{
		"missing":   "",
		"malformed": "not-a-uuid",
	} {
		t.Run(name, func(t *testing.T) {
			var ok bool
			handler := ActorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, ok = ActorIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodPost, "/admin/assignments", nil)
			if header != "" {
				req.Header.Set(ActorHeader, header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if ok {
				t.Fatalf("expected no actor in context")
			}
		})
	}
}
