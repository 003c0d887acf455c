package repo

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/samber/oops"
	"go.uber.org/zap"

	"go-auth-core/internal/core/kv"
	"go-auth-core/internal/domain"
	"go-auth-core/pkg/utils"
)

// UserRepo keeps every user in one JSON blob under domain.KeyUsers and a
// loaded copy in memory. Add is a read-check-write under one mutex.
type UserRepo struct {
	store domain.KVStore
	seed  []domain.User
	log   *zap.Logger

	mu     sync.Mutex
	loaded bool
	users  []domain.User
}

var _ domain.UserRepository = (*UserRepo)(nil)

// NewUserRepo: seed is what an empty or unreadable store falls back to.
func NewUserRepo(store domain.KVStore, seed []domain.User, l *zap.Logger) *UserRepo {
	if l == nil {
		l = zap.NewNop()
	}
	return &UserRepo{store: store, seed: sanitize(seed, l), log: l}
}

func (r *UserRepo) List(ctx context.Context) []domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.view(ctx))
}

func (r *UserRepo) Find(ctx context.Context, email string) (domain.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return find(r.view(ctx), email)
}

func (r *UserRepo) IsAvailable(ctx context.Context, email string) bool {
	_, ok := r.Find(ctx, email)
	return !ok
}

// Add re-reads the store, re-checks the email and writes the whole collection
// back. On any failure the store and the in-memory view are left as they were.
func (r *UserRepo) Add(ctx context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.read(ctx)
	if err != nil {
		return oops.In("repo").Code("USER_ADD_FAILED").With("op", "read").Wrap(err)
	}
	r.users, r.loaded = current, true

	if _, exists := find(current, u.Email); exists {
		return domain.ErrDuplicateEmail
	}

	u.Email = utils.NormalizeEmail(u.Email)
	next := append(slices.Clone(current), u)
	if err := kv.SetJSON(ctx, r.store, domain.KeyUsers, next); err != nil {
		return oops.In("repo").Code("USER_ADD_FAILED").With("op", "write").Wrap(err)
	}
	r.users = next
	return nil
}

// view returns the loaded users, loading them first if needed. Caller holds mu.
func (r *UserRepo) view(ctx context.Context) []domain.User {
	if r.loaded {
		return r.users
	}
	users, err := r.read(ctx)
	if err != nil {
		// 读失败不缓存，下次再试
		r.log.Error("load users failed, using defaults", zap.Error(err))
		return r.defaults()
	}
	r.users, r.loaded = users, true
	return r.users
}

// read loads the collection from the store. Missing or corrupt values become
// the defaults; only transport errors are returned.
func (r *UserRepo) read(ctx context.Context) ([]domain.User, error) {
	users, found, err := kv.GetJSON[[]domain.User](ctx, r.store, domain.KeyUsers)
	switch {
	case errors.Is(err, domain.ErrStorageCorrupt):
		r.log.Warn("users blob is corrupt, falling back to defaults", zap.Error(err))
		return r.defaults(), nil
	case err != nil:
		return nil, err
	case !found:
		return r.defaults(), nil
	}
	return sanitize(users, r.log), nil
}

func (r *UserRepo) defaults() []domain.User { return slices.Clone(r.seed) }

func find(users []domain.User, email string) (domain.User, bool) {
	for _, u := range users {
		if utils.SameEmail(u.Email, email) {
			return u, true
		}
	}
	return domain.User{}, false
}

// sanitize drops records without an email or digest and later duplicates.
func sanitize(in []domain.User, l *zap.Logger) []domain.User {
	out := make([]domain.User, 0, len(in))
	for _, u := range in {
		if u.Email == "" || u.PasswordDigest == "" {
			l.Warn("dropping malformed user record", zap.String("email", u.Email))
			continue
		}
		if _, dup := find(out, u.Email); dup {
			l.Warn("dropping duplicate user record", zap.String("email", u.Email))
			continue
		}
		u.Email = utils.NormalizeEmail(u.Email)
		out = append(out, u)
	}
	return out
}
