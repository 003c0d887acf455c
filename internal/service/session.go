package service

import (
	"context"
	"strings"

	"github.com/samber/oops"
	"go.uber.org/zap"

	"go-auth-core/internal/domain"
)

// SessionManager persists the signed-in identity (an email) under
// domain.KeyCurrentUser.
type SessionManager struct {
	store domain.KVStore
	users domain.UserRepository
	log   *zap.Logger
}

func NewSessionManager(store domain.KVStore, users domain.UserRepository, l *zap.Logger) *SessionManager {
	if l == nil {
		l = zap.NewNop()
	}
	return &SessionManager{store: store, users: users, log: l}
}

// Current returns the stored identity. A missing, unreadable or stale value
// (no such user) is reported as no session.
func (s *SessionManager) Current(ctx context.Context) (string, bool) {
	b, err := s.store.Get(ctx, domain.KeyCurrentUser)
	if err != nil {
		s.log.Warn("read session failed", zap.Error(err))
		return "", false
	}
	email := strings.TrimSpace(string(b))
	if email == "" {
		return "", false
	}
	if s.users.IsAvailable(ctx, email) {
		s.log.Info("session references unknown user, ignoring", zap.String("email", email))
		return "", false
	}
	return email, true
}

func (s *SessionManager) SignIn(ctx context.Context, email string) error {
	if err := s.store.Set(ctx, domain.KeyCurrentUser, []byte(email)); err != nil {
		return oops.In("session").Code("SESSION_WRITE_FAILED").With("email", email).Wrap(err)
	}
	return nil
}

func (s *SessionManager) SignOut(ctx context.Context) error {
	if err := s.store.Delete(ctx, domain.KeyCurrentUser); err != nil {
		return oops.In("session").Code("SESSION_CLEAR_FAILED").Wrap(err)
	}
	return nil
}
