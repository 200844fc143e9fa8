// Package session implements the client-side authentication state
// machine. The Store is the single writer of the in-memory Session;
// screens dispatch its operations and subscribe to the transitions.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/you/trisonapp/domain"
)

// Action names used in events and logs.
const (
	ActionSendOTP         = "sendOTP"
	ActionVerifyOTP       = "verifyOTP"
	ActionLogin           = "login"
	ActionRegister        = "register"
	ActionLogout          = "logout"
	ActionGetCurrentUser  = "getCurrentUser"
	ActionCheckAuthStatus = "checkAuthStatus"
)

// Store owns the session singleton. All mutation goes through its
// operations; a generation counter tags every in-flight request so a
// settle that lost a race with logout is discarded instead of
// repopulating cleared state.
type Store struct {
	api    domain.AuthAPI
	tokens domain.TokenStore
	log    *slog.Logger

	mu       sync.Mutex
	sess     domain.Session
	gen      uint64
	inflight int
	subs     map[int]func(domain.SessionEvent)
	nextSub  int
}

// New creates a session store over the given API client and token store.
func New(api domain.AuthAPI, tokens domain.TokenStore, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		api:    api,
		tokens: tokens,
		log:    log,
		subs:   make(map[int]func(domain.SessionEvent)),
	}
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.Clone()
}

// Subscribe registers fn for every session transition and returns the
// corresponding unsubscribe function. Callbacks run synchronously on
// the mutating goroutine; keep them short.
func (s *Store) Subscribe(fn func(domain.SessionEvent)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// ClearError resets the error field without touching anything else.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.sess.Error = ""
	snap := s.sess.Clone()
	s.mu.Unlock()
	s.emit(domain.NewSessionEvent(domain.SessionSettled, "clearError", snap))
}

func (s *Store) emit(ev domain.SessionEvent) {
	s.mu.Lock()
	fns := make([]func(domain.SessionEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// begin marks an operation pending and returns the generation it runs
// under.
func (s *Store) begin(action string) uint64 {
	s.mu.Lock()
	s.inflight++
	s.sess.IsLoading = true
	s.sess.Error = ""
	gen := s.gen
	snap := s.sess.Clone()
	s.mu.Unlock()
	s.emit(domain.NewSessionEvent(domain.SessionPending, action, snap))
	return gen
}

// settle folds a finished operation into the session. apply runs only
// when the operation's generation is still current; a stale settle
// still clears the loading flag but its outcome is discarded.
func (s *Store) settle(action string, gen uint64, evType domain.SessionEventType, apply func(*domain.Session)) {
	s.mu.Lock()
	if s.inflight > 0 {
		s.inflight--
	}
	s.sess.IsLoading = s.inflight > 0
	applied := gen == s.gen
	if applied && apply != nil {
		apply(&s.sess)
	}
	snap := s.sess.Clone()
	s.mu.Unlock()
	if !applied {
		s.log.Debug("discarding settle from a superseded operation", "action", action)
		evType = domain.SessionSettled
	}
	s.emit(domain.NewSessionEvent(evType, action, snap))
}

// fail settles an operation with its error folded into the session.
func (s *Store) fail(action string, gen uint64, err error) error {
	s.mu.Lock()
	if s.inflight > 0 {
		s.inflight--
	}
	s.sess.IsLoading = s.inflight > 0
	if gen == s.gen {
		s.sess.Error = domain.UserMessage(err)
	}
	snap := s.sess.Clone()
	s.mu.Unlock()
	s.log.Debug("session operation failed", "action", action, "err", err)
	s.emit(domain.NewSessionEvent(domain.SessionFailed, action, snap).WithError(err))
	return err
}

// SendOTP requests OTP delivery for phone. Delivery is a server-side
// effect; no session field changes on success.
func (s *Store) SendOTP(ctx context.Context, phone string) (string, error) {
	gen := s.begin(ActionSendOTP)
	msg, err := s.api.SendOTP(ctx, phone)
	if err != nil {
		return "", s.fail(ActionSendOTP, gen, err)
	}
	s.settle(ActionSendOTP, gen, domain.SessionSettled, nil)
	return msg, nil
}

// VerifyOTP exchanges phone+OTP for tokens and signs the session in.
func (s *Store) VerifyOTP(ctx context.Context, phone, otp string) error {
	gen := s.begin(ActionVerifyOTP)
	res, err := s.api.VerifyOTP(ctx, phone, otp)
	if err != nil {
		return s.fail(ActionVerifyOTP, gen, err)
	}
	s.completeAuth(ctx, ActionVerifyOTP, gen, res)
	return nil
}

// Login authenticates with phone+OTP. The backend treats it as a
// verify with an existing account.
func (s *Store) Login(ctx context.Context, phone, otp string) error {
	gen := s.begin(ActionLogin)
	res, err := s.api.Login(ctx, phone, otp)
	if err != nil {
		return s.fail(ActionLogin, gen, err)
	}
	s.completeAuth(ctx, ActionLogin, gen, res)
	return nil
}

// Register creates an account. Registration also authenticates.
func (s *Store) Register(ctx context.Context, req *domain.RegisterRequest) error {
	gen := s.begin(ActionRegister)
	res, err := s.api.Register(ctx, req)
	if err != nil {
		return s.fail(ActionRegister, gen, err)
	}
	s.completeAuth(ctx, ActionRegister, gen, res)
	return nil
}

// completeAuth persists credentials, fetches the profile best-effort,
// and only then flips the session to authenticated. The persist-first
// ordering guarantees a restart rehydrates anything the navigator ever
// observed as signed in.
func (s *Store) completeAuth(ctx context.Context, action string, gen uint64, res *domain.AuthResult) {
	if s.currentGen() != gen {
		// Logged out while the sign-in round-trip was in flight; the
		// tokens must not reach the store.
		s.settle(action, gen, domain.SessionSignedIn, nil)
		return
	}

	pairs := map[string]string{
		domain.KeyAccessToken:  res.AccessToken,
		domain.KeyRefreshToken: res.RefreshToken,
		domain.KeyIsLoggedIn:   "true",
	}
	if err := s.tokens.SetMulti(ctx, pairs); err != nil {
		s.log.Warn("credential persistence failed; session will not survive restart", "err", err)
	}

	user, err := s.api.CurrentUser(ctx, res.AccessToken)
	if err != nil {
		// Partial success: tokens are valid, the profile refetches later.
		s.log.Debug("profile fetch after sign-in failed", "action", action, "err", err)
		user = nil
	} else if s.currentGen() == gen {
		s.persistUser(ctx, user)
	}

	s.settle(action, gen, domain.SessionSignedIn, func(sess *domain.Session) {
		sess.User = user
		sess.AccessToken = res.AccessToken
		sess.RefreshToken = res.RefreshToken
		sess.IsAuthenticated = true
	})

	if s.currentGen() != gen {
		// A logout slipped in between the persist and the settle; its
		// storage clear must win over the writes above.
		if err := s.tokens.Delete(ctx, domain.AuthKeys()...); err != nil {
			s.log.Warn("failed to clear token store after superseded sign-in", "err", err)
		}
	}
}

func (s *Store) persistUser(ctx context.Context, user *domain.User) {
	raw, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := s.tokens.Set(ctx, domain.KeyUserData, string(raw)); err != nil {
		s.log.Warn("user data persistence failed", "err", err)
	}
}

// Logout signs out. The remote call is best-effort; storage is cleared
// before in-memory state so a crash in between never leaves stale
// credentials behind. Logout supersedes every other in-flight
// operation.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.inflight++
	s.sess.IsLoading = true
	s.sess.Error = ""
	access := s.sess.AccessToken
	refresh := s.sess.RefreshToken
	snap := s.sess.Clone()
	s.mu.Unlock()
	s.emit(domain.NewSessionEvent(domain.SessionPending, ActionLogout, snap))

	if access != "" && refresh != "" {
		if err := s.api.Logout(ctx, access, refresh); err != nil {
			s.log.Warn("remote logout failed; clearing local session anyway", "err", err)
		}
	}
	if err := s.tokens.Delete(ctx, domain.AuthKeys()...); err != nil {
		s.log.Warn("failed to clear token store on logout", "err", err)
	}

	s.settle(ActionLogout, gen, domain.SessionSignedOut, func(sess *domain.Session) {
		sess.User = nil
		sess.AccessToken = ""
		sess.RefreshToken = ""
		sess.IsAuthenticated = false
		sess.Error = ""
	})
	return nil
}

// GetCurrentUser fetches the profile over the refresh-and-retry door
// and caches it in the session and the token store.
func (s *Store) GetCurrentUser(ctx context.Context) (*domain.User, error) {
	gen := s.begin(ActionGetCurrentUser)
	var user *domain.User
	err := s.Do(ctx, func(ctx context.Context, accessToken string) error {
		u, err := s.api.CurrentUser(ctx, accessToken)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, s.fail(ActionGetCurrentUser, gen, err)
	}
	if s.currentGen() == gen {
		s.persistUser(ctx, user)
	}
	s.settle(ActionGetCurrentUser, gen, domain.SessionSettled, func(sess *domain.Session) {
		sess.User = user
	})
	return user, nil
}

// CheckAuthStatus rehydrates the session from the token store. Storage
// errors read as "no session". A persisted access token alone is not
// enough; the isLoggedIn flag must also be present.
func (s *Store) CheckAuthStatus(ctx context.Context) error {
	gen := s.begin(ActionCheckAuthStatus)

	access := s.readKey(ctx, domain.KeyAccessToken)
	flag := s.readKey(ctx, domain.KeyIsLoggedIn)
	if access == "" || flag != "true" {
		s.settle(ActionCheckAuthStatus, gen, domain.SessionRehydrated, nil)
		return nil
	}
	refresh := s.readKey(ctx, domain.KeyRefreshToken)

	var user *domain.User
	if raw := s.readKey(ctx, domain.KeyUserData); raw != "" {
		var u domain.User
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			user = &u
		}
	}
	if user == nil {
		// Best-effort: tokens stay valid even if this fetch fails.
		if u, err := s.api.CurrentUser(ctx, access); err == nil {
			user = u
			s.persistUser(ctx, u)
		} else {
			s.log.Debug("profile fetch during rehydration failed", "err", err)
		}
	}

	if exp, err := domain.TokenExpiry(access); err == nil && exp.Before(time.Now()) {
		s.log.Debug("rehydrated with an expired access token; first authenticated call will refresh")
	}

	s.settle(ActionCheckAuthStatus, gen, domain.SessionRehydrated, func(sess *domain.Session) {
		sess.User = user
		sess.AccessToken = access
		sess.RefreshToken = refresh
		sess.IsAuthenticated = true
	})
	return nil
}

func (s *Store) currentGen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// readKey reads one storage key, folding both absence and storage
// failure into the empty string. Rehydration fails open.
func (s *Store) readKey(ctx context.Context, key string) string {
	v, err := s.tokens.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			s.log.Warn("token store read failed; treating as no session", "key", key, "err", err)
		}
		return ""
	}
	return v
}
