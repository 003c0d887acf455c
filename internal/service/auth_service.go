package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-auth-core/internal/core/latency"
	"go-auth-core/internal/core/metrics"
	"go-auth-core/internal/domain"
	"go-auth-core/pkg/utils"
)

// Listener receives the current user after every session transition; nil means
// signed out.
type Listener func(u *domain.User)

type Options struct {
	Delayer latency.Delayer // nil: no delay
	Metrics *metrics.Auth   // nil: not recorded
	Logger  *zap.Logger
}

// AuthService is the entry point for the presentation layer. It owns the
// in-memory "current user" and keeps it in step with the SessionManager.
type AuthService struct {
	users   domain.UserRepository
	session *SessionManager
	hasher  domain.PasswordHasher
	delay   latency.Delayer
	metrics *metrics.Auth
	log     *zap.Logger

	// unknown emails are verified against this so both failure paths cost the same
	dummyDigest string

	transition sync.Mutex // serializes session writes with current updates
	mu         sync.RWMutex
	current    *domain.User
	listeners  map[int]Listener
	nextID     int
}

// NewAuthService seeds the current user from the persisted session.
func NewAuthService(ctx context.Context, users domain.UserRepository, session *SessionManager, hasher domain.PasswordHasher, opts Options) *AuthService {
	s := &AuthService{
		users:     users,
		session:   session,
		hasher:    hasher,
		delay:     opts.Delayer,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		listeners: make(map[int]Listener),
	}
	if s.delay == nil {
		s.delay = latency.None{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if d, err := hasher.Hash("dummy-password-never-matches"); err == nil {
		s.dummyDigest = d
	}

	if email, ok := session.Current(ctx); ok {
		if u, found := users.Find(ctx, email); found {
			s.current = &u
			s.log.Info("session restored", zap.String("email", u.Email))
		}
	}
	return s
}

// Register creates an account. Input validation is the caller's job.
func (s *AuthService) Register(ctx context.Context, name, email, password string) error {
	start, log := time.Now(), s.opLogger("register")
	s.delay.Wait()

	if !s.users.IsAvailable(ctx, email) {
		log.Info("register rejected: email in use", zap.String("email", email))
		s.metrics.Observe("register", metrics.OutcomeDuplicate, start)
		return domain.ErrDuplicateEmail
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		log.Error("hash password failed", zap.Error(err))
		s.metrics.Observe("register", metrics.OutcomeError, start)
		return domain.ErrRegistrationFailed
	}

	// Add re-checks the email, the check above only saves a hash
	err = s.users.Add(ctx, domain.User{Name: name, Email: email, PasswordDigest: digest})
	switch {
	case errors.Is(err, domain.ErrDuplicateEmail):
		log.Info("register rejected: email in use", zap.String("email", email))
		s.metrics.Observe("register", metrics.OutcomeDuplicate, start)
		return domain.ErrDuplicateEmail
	case err != nil:
		log.Error("store user failed", zap.String("email", email), zap.Error(err))
		s.metrics.Observe("register", metrics.OutcomeError, start)
		return domain.ErrRegistrationFailed
	}

	log.Info("user registered", zap.String("email", utils.NormalizeEmail(email)))
	s.metrics.Observe("register", metrics.OutcomeOK, start)
	return nil
}

// Authenticate signs the user in. Unknown email, wrong password and internal
// failures all return domain.ErrInvalidCredentials and leave the session alone.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	start, log := time.Now(), s.opLogger("authenticate")
	s.delay.Wait()

	u, found := s.users.Find(ctx, email)
	digest := s.dummyDigest
	if found {
		digest = u.PasswordDigest
	}
	match := s.hasher.Verify(password, digest)
	if !found || !match {
		log.Info("authentication failed", zap.String("email", email))
		s.metrics.Observe("authenticate", metrics.OutcomeInvalid, start)
		return domain.User{}, domain.ErrInvalidCredentials
	}

	s.transition.Lock()
	err := s.session.SignIn(ctx, u.Email)
	notify := func() {}
	if err == nil {
		notify = s.setCurrent(&u)
	}
	s.transition.Unlock()
	if err != nil {
		log.Error("persist session failed", zap.String("email", u.Email), zap.Error(err))
		s.metrics.Observe("authenticate", metrics.OutcomeError, start)
		return domain.User{}, domain.ErrInvalidCredentials
	}
	notify()

	log.Info("user signed in", zap.String("email", u.Email))
	s.metrics.Observe("authenticate", metrics.OutcomeOK, start)
	return u, nil
}

func (s *AuthService) IsIdentifierAvailable(ctx context.Context, email string) bool {
	start := time.Now()
	s.delay.Wait()
	ok := s.users.IsAvailable(ctx, email)
	s.metrics.Observe("is_available", metrics.OutcomeOK, start)
	return ok
}

// CurrentUser reads the in-memory state only.
func (s *AuthService) CurrentUser() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.User{}, false
	}
	return *s.current, true
}

// SignOut always ends Anonymous. A failed store delete is logged; the next
// process start may then restore the old session.
func (s *AuthService) SignOut(ctx context.Context) {
	start, log := time.Now(), s.opLogger("sign_out")
	s.delay.Wait()

	s.transition.Lock()
	err := s.session.SignOut(ctx)
	notify := s.setCurrent(nil)
	s.transition.Unlock()
	notify()

	if err != nil {
		log.Error("clear session failed", zap.Error(err))
		s.metrics.Observe("sign_out", metrics.OutcomeError, start)
		return
	}
	log.Info("signed out")
	s.metrics.Observe("sign_out", metrics.OutcomeOK, start)
}

// Subscribe registers fn for session transitions and returns a func that
// removes it. Listeners run synchronously on the caller's goroutine after the
// transition lock is released, so they may call back into the service.
func (s *AuthService) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// setCurrent swaps the state and returns the notification for it. Callers run
// the returned func once they have released transition.
func (s *AuthService) setCurrent(u *domain.User) (notify func()) {
	s.mu.Lock()
	s.current = u
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	var snapshot *domain.User
	if u != nil {
		cp := *u
		snapshot = &cp
	}
	return func() {
		for _, fn := range fns {
			if snapshot == nil {
				fn(nil)
				continue
			}
			cp := *snapshot
			fn(&cp)
		}
	}
}

func (s *AuthService) opLogger(op string) *zap.Logger {
	return s.log.With(zap.String("op", op), zap.String("op_id", utils.NewOpID()))
}
