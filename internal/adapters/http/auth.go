package httpadapter

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"veritrack/internal/apperrors"
	"veritrack/internal/ports"
)

// TokenAuthorizer grants admin capability to callers presenting the
// configured bearer token, and to internal system actors (the publish
// runner). A full identity provider sits outside this service.
type TokenAuthorizer struct {
	adminToken string
}

func NewTokenAuthorizer(adminToken string) *TokenAuthorizer {
	return &TokenAuthorizer{adminToken: adminToken}
}

var _ ports.Authorizer = (*TokenAuthorizer)(nil)

func (a *TokenAuthorizer) RequireAdmin(ctx context.Context) error {
	actor, ok := ports.ActorFrom(ctx)
	if !ok {
		return apperrors.ErrUnauthorized
	}
	if actor.System {
		return nil
	}
	if a.adminToken == "" || subtle.ConstantTimeCompare([]byte(actor.Token), []byte(a.adminToken)) != 1 {
		return apperrors.ErrUnauthorized
	}
	return nil
}

// withActor attaches the presented bearer token to the request context; the
// authorization decision itself happens inside the services, before any side
// effect.
func withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		ctx := ports.WithActor(r.Context(), ports.Actor{Token: token})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
