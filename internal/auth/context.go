package auth

import (
	"context"

	"github.com/rpattn/movementcontrol/internal/domain"
	"github.com/rpattn/movementcontrol/internal/permission"
)

type contextKey string

const (
	actorKey contextKey = "actor"
	userKey  contextKey = "user"
)

// ContextWithUser returns a new context that carries the authenticated user
// and the actor derived from it.
func ContextWithUser(ctx context.Context, user domain.User) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, actorKey, permission.ActorFromUser(user))
}

// UserFromContext retrieves the authenticated user from the context, if any.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	if ctx == nil {
		return domain.User{}, false
	}
	user, ok := ctx.Value(userKey).(domain.User)
	if !ok || user.ID == 0 {
		return domain.User{}, false
	}
	return user, true
}

// ActorFromContext retrieves the acting principal. Anonymous requests yield nil.
func ActorFromContext(ctx context.Context) *permission.Actor {
	if ctx == nil {
		return nil
	}
	actor, _ := ctx.Value(actorKey).(*permission.Actor)
	return actor
}
