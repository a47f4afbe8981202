// Package auth verifies credentials, issues session tokens and carries the
// authenticated user through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rpattn/movementcontrol/internal/domain"
	"github.com/rpattn/movementcontrol/internal/repository"
	"github.com/rpattn/movementcontrol/internal/session"
)

// ErrInvalidCredentials is returned for a wrong username or password and for
// inactive accounts alike.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Login is the outcome of a successful sign-in.
type Login struct {
	Token     string
	User      domain.User
	ExpiresAt time.Time
}

// Authenticator ties user lookup, sessions and tokens together.
type Authenticator struct {
	users    repository.UserRepository
	sessions session.Store
	tokens   *Tokens
	ttl      time.Duration
	logger   *zap.Logger
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(users repository.UserRepository, sessions session.Store, tokens *Tokens, ttl time.Duration, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Authenticator{users: users, sessions: sessions, tokens: tokens, ttl: ttl, logger: logger}
}

// Login checks the credentials and opens a session.
func (a *Authenticator) Login(ctx context.Context, username, password string) (Login, error) {
	user, err := a.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if domain.IsNotFound(err) {
			return Login{}, ErrInvalidCredentials
		}
		return Login{}, err
	}
	if !user.IsActive || !CheckPassword(user.PasswordHash, password) {
		a.logger.Info("login rejected", zap.String("username", user.Username), zap.Bool("active", user.IsActive))
		return Login{}, ErrInvalidCredentials
	}

	s, err := a.sessions.Create(ctx, user.ID, a.ttl)
	if err != nil {
		return Login{}, fmt.Errorf("failed to open session: %w", err)
	}
	token, err := a.tokens.Issue(s)
	if err != nil {
		return Login{}, err
	}
	a.logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("session_id", s.ID))
	return Login{Token: token, User: user, ExpiresAt: s.ExpiresAt}, nil
}

// Logout revokes the session behind token. Invalid tokens are ignored.
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil
	}
	return a.sessions.Delete(ctx, claims.SessionID)
}

// Authenticate resolves token to an active user. Every failure is reported
// as domain.ErrUnauthenticated except store errors.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (domain.User, error) {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return domain.User{}, domain.ErrUnauthenticated
	}
	userID, err := claims.UserID()
	if err != nil {
		return domain.User{}, domain.ErrUnauthenticated
	}

	s, err := a.sessions.Get(ctx, claims.SessionID)
	if errors.Is(err, session.ErrNotFound) {
		return domain.User{}, domain.ErrUnauthenticated
	}
	if err != nil {
		return domain.User{}, err
	}
	if s.UserID != userID {
		return domain.User{}, domain.ErrUnauthenticated
	}

	user, err := a.users.GetByID(ctx, userID)
	if domain.IsNotFound(err) {
		return domain.User{}, domain.ErrUnauthenticated
	}
	if err != nil {
		return domain.User{}, err
	}
	if !user.IsActive {
		return domain.User{}, domain.ErrUnauthenticated
	}
	return user, nil
}

// TTL is the lifetime of new sessions.
func (a *Authenticator) TTL() time.Duration {
	return a.ttl
}
