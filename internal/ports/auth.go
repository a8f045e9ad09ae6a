package ports

import "context"

// Actor identifies the caller of an operation. HTTP middleware attaches the
// presented credential; internal workers attach a system actor.
type Actor struct {
	System bool
	Token  string
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// Authorizer gates mutating admin operations. RequireAdmin fails with
// apperrors.ErrUnauthorized before any side effect is performed.
type Authorizer interface {
	RequireAdmin(ctx context.Context) error
}
