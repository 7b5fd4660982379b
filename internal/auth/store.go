package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/memberdesk/memberdesk/internal/assert"
	"github.com/memberdesk/memberdesk/internal/client"
	"github.com/memberdesk/memberdesk/internal/models"
)

const accessDeniedMessage = "Access denied. Super admin access required."

var (
	// ErrAccessDenied is returned by Login when the account is not a super admin
	ErrAccessDenied = errors.New(accessDeniedMessage)
	// ErrSuperseded is returned when a newer session call settled first
	ErrSuperseded = errors.New("session changed while the request was in flight")
)

// API is the part of the membership API the session needs
type API interface {
	Login(ctx context.Context, identifier, password string) (*models.LoginResponse, error)
	Logout(ctx context.Context, token string) (*models.MessageResponse, error)
	CurrentUser(ctx context.Context, token string) (*models.User, error)
}

// Tokens is the token store
type Tokens interface {
	Get() (string, bool)
	Set(token string) error
	Clear() error
}

// Store holds the process-wide operator session.
//
// Every mutating call takes a sequence number when it starts. A call's result
// is committed only if no newer call has committed before it, so a slow
// checkAuth can never resurrect a session that was logged out meanwhile.
type Store struct {
	mu        sync.Mutex
	state     State
	issued    uint64
	committed uint64
	pending   int

	api       API
	tokens    Tokens
	persister Persister
	logger    zerolog.Logger
	metrics   *Metrics
	now       func() time.Time
	signedOut func()
}

// Option configures a Store
type Option func(*Store)

func WithLogger(zlog zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = zlog
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithSignOutHook registers fn to run whenever a committed transition ends an
// authenticated session, whatever the cause. fn runs under the store lock and
// must not call back into the store.
func WithSignOutHook(fn func()) Option {
	return func(s *Store) {
		s.signedOut = fn
	}
}

// WithClock overrides time.Now for token expiry checks
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a session store and synchronously restores the persisted record
func New(api API, tokens Tokens, persister Persister, opts ...Option) *Store {
	s := &Store{
		api:       api,
		tokens:    tokens,
		persister: persister,
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.restore()
	return s
}

func (s *Store) restore() {
	rec, err := s.persister.Load()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to restore session, starting anonymous")
		return
	}

	ev := Event{Kind: EventRestored, Token: rec.Token}
	if rec.IsAuthenticated {
		ev.User = rec.User
	}
	s.state = Transition(State{}, ev)

	if s.state.Token != "" {
		if _, ok := s.tokens.Get(); !ok {
			if err := s.tokens.Set(s.state.Token); err != nil {
				s.logger.Warn().Err(err).Msg("Failed to sync restored token")
			}
		}
	}

	s.logger.Debug().
		Bool("authenticated", s.state.IsAuthenticated).
		Bool("has_token", s.state.Token != "").
		Msg("Session restored")
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	st := s.state
	if st.User != nil {
		user := *st.User
		st.User = &user
	}
	return st
}

// begin issues a sequence number and marks the session as loading
func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.issued++
	s.pending++
	s.state = Transition(s.state, Event{Kind: EventStarted})
	return s.issued
}

// settle commits ev for call seq unless a newer call already committed.
// apply runs under the lock and only when the result is committed.
func (s *Store) settle(seq uint64, ev Event, apply func() error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settleLocked(seq, ev, apply)
}

func (s *Store) settleLocked(seq uint64, ev Event, apply func() error) bool {
	s.pending--
	committed := seq > s.committed
	if committed {
		if apply != nil {
			if err := apply(); err != nil {
				s.logger.Warn().Err(err).Str("event", string(ev.Kind)).Msg("Failed to update token store")
			}
		}
		wasAuthenticated := s.state.IsAuthenticated
		s.committed = seq
		s.state = Transition(s.state, ev)
		assert.That(!s.state.IsAuthenticated || (s.state.Token != "" && s.state.User.IsSuperAdmin()),
			"authenticated session after %s without token or super admin", ev.Kind)
		if err := s.persister.Save(recordOf(s.state)); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to persist session")
		}
		if wasAuthenticated && !s.state.IsAuthenticated && s.signedOut != nil {
			s.signedOut()
		}
	} else {
		s.logger.Debug().
			Uint64("seq", seq).
			Uint64("committed", s.committed).
			Str("event", string(ev.Kind)).
			Msg("Discarding stale session result")
	}
	s.state.IsLoading = s.pending > 0
	s.metrics.record(ev.Kind, committed)
	return committed
}

// abandon settles call seq without an answer: the record is left untouched
func (s *Store) abandon(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending--
	s.state.IsLoading = s.pending > 0
	s.logger.Debug().Uint64("seq", seq).Msg("Session call gave no answer, keeping the record")
}

// Verified reports whether any call has settled since the store was created,
// i.e. the state no longer comes purely from the persisted record.
func (s *Store) Verified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed > 0
}

// currentToken prefers the in-memory token and falls back to the token store
func (s *Store) currentToken() string {
	s.mu.Lock()
	token := s.state.Token
	s.mu.Unlock()

	if token != "" {
		return token
	}
	token, _ = s.tokens.Get()
	return token
}

// Login authenticates with the API. Only super admins are admitted; any other
// role gets its fresh token revoked and ErrAccessDenied.
func (s *Store) Login(ctx context.Context, identifier, password string) (*models.User, error) {
	seq := s.begin()

	resp, err := s.api.Login(ctx, identifier, password)
	if err != nil {
		s.settle(seq, Event{Kind: EventFailed, Message: client.Message(err)}, s.tokens.Clear)
		return nil, err
	}
	if resp.Token == "" {
		err := errors.New("login response did not include a token")
		s.settle(seq, Event{Kind: EventFailed, Message: "Login failed. Please try again."}, s.tokens.Clear)
		return nil, err
	}

	if !resp.User.IsSuperAdmin() {
		s.revoke(ctx, resp.Token)
		s.settle(seq, Event{Kind: EventDenied, Message: accessDeniedMessage}, s.tokens.Clear)
		s.logger.Warn().Int64("user_id", resp.User.ID).Str("role", string(resp.User.Role)).Msg("Login rejected: not a super admin")
		return nil, ErrAccessDenied
	}

	user := resp.User
	ok := s.settle(seq, Event{Kind: EventAuthenticated, Token: resp.Token, User: &user}, func() error {
		return s.tokens.Set(resp.Token)
	})
	if !ok {
		s.revoke(ctx, resp.Token)
		return nil, ErrSuperseded
	}

	s.logger.Info().Int64("user_id", user.ID).Str("email", user.Email).Msg("Super admin logged in")
	return &user, nil
}

// Logout clears the local session unconditionally, then notifies the API.
// Remote failures are logged and ignored.
func (s *Store) Logout(ctx context.Context) {
	token := s.currentToken()
	seq := s.begin()
	s.settle(seq, Event{Kind: EventCleared}, s.tokens.Clear)

	if token != "" {
		s.revoke(ctx, token)
	}
	s.logger.Info().Msg("Logged out")
}

// CheckAuth restores the session from the held token. Failures settle the
// session as anonymous without surfacing an error.
func (s *Store) CheckAuth(ctx context.Context) State {
	return s.check(ctx, false)
}

// Revalidate re-checks an established session. Unlike CheckAuth, a network
// failure leaves the session and its token alone; only an answer from the API
// can end it.
func (s *Store) Revalidate(ctx context.Context) State {
	return s.check(ctx, true)
}

func (s *Store) check(ctx context.Context, keepOnNetworkError bool) State {
	seq := s.begin()

	token := s.currentToken()
	if token == "" {
		s.settle(seq, Event{Kind: EventFailed}, nil)
		return s.Snapshot()
	}

	if tokenExpired(token, s.now()) {
		s.logger.Debug().Msg("Held token has expired, skipping verification")
		s.settle(seq, Event{Kind: EventFailed}, s.tokens.Clear)
		return s.Snapshot()
	}

	user, err := s.api.CurrentUser(ctx, token)
	if err != nil && keepOnNetworkError && errors.Is(err, client.ErrNetwork) {
		s.logger.Warn().Err(err).Msg("Session revalidation could not reach the API")
		s.abandon(seq)
		return s.Snapshot()
	}
	if err != nil {
		s.logger.Debug().Err(err).Msg("Session check failed")
		s.settle(seq, Event{Kind: EventFailed}, s.tokens.Clear)
		return s.Snapshot()
	}

	if !user.IsSuperAdmin() {
		s.revoke(ctx, token)
		s.settle(seq, Event{Kind: EventDenied, Message: accessDeniedMessage}, s.tokens.Clear)
		s.logger.Warn().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("Session dropped: not a super admin")
		return s.Snapshot()
	}

	s.settle(seq, Event{Kind: EventAuthenticated, Token: token, User: user}, func() error {
		return s.tokens.Set(token)
	})
	return s.Snapshot()
}

// Invalidate drops the session after the API rejected token. It is registered
// as the client's unauthorized hook. A token that is no longer the session's
// is ignored, so a late 401 cannot end a newer session.
func (s *Store) Invalidate(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Token != token {
		s.logger.Debug().Msg("Ignoring rejection of a token the session no longer holds")
		return
	}

	s.issued++
	s.pending++
	s.state = Transition(s.state, Event{Kind: EventStarted})
	if s.settleLocked(s.issued, Event{Kind: EventCleared}, s.tokens.Clear) {
		s.logger.Info().Msg("Session invalidated by the API")
	}
}

// ClearError clears the error message and nothing else
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Transition(s.state, Event{Kind: EventErrorCleared})
}

func (s *Store) revoke(ctx context.Context, token string) {
	if _, err := s.api.Logout(ctx, token); err != nil {
		s.logger.Warn().Err(err).Msg("Remote logout failed")
	}
}
