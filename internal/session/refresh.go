package session

import (
	"context"

	"github.com/you/trisonapp/domain"
)

// Do runs fn with the current access token. On a structured 401 it
// refreshes the token pair and retries fn exactly once; a failed
// refresh force-clears the session. No backoff, no second retry.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, accessToken string) error) error {
	s.mu.Lock()
	access := s.sess.AccessToken
	gen := s.gen
	s.mu.Unlock()
	if access == "" {
		return domain.ErrNoAccessToken
	}

	err := fn(ctx, access)
	if err == nil || !domain.IsAuthExpired(err) {
		return err
	}

	newAccess, rerr := s.refresh(ctx, gen)
	if rerr != nil {
		return rerr
	}
	return fn(ctx, newAccess)
}

// refresh exchanges the refresh token for a new pair, persisting the
// pair before swapping it into memory. gen guards against a logout
// that happened while the refresh round-trip was in flight.
func (s *Store) refresh(ctx context.Context, gen uint64) (string, error) {
	s.mu.Lock()
	refreshToken := s.sess.RefreshToken
	s.mu.Unlock()
	if refreshToken == "" {
		s.forceClear(ctx)
		return "", domain.ErrNoRefreshToken
	}

	res, err := s.api.Refresh(ctx, refreshToken)
	if err != nil {
		s.log.Warn("token refresh failed; signing out locally", "err", err)
		s.forceClear(ctx)
		return "", err
	}

	if s.currentGen() != gen {
		// Logged out while the refresh round-trip was in flight; the
		// new pair must not resurrect the cleared session.
		return "", domain.ErrSessionExpired
	}

	pairs := map[string]string{
		domain.KeyAccessToken:  res.AccessToken,
		domain.KeyRefreshToken: res.RefreshToken,
		domain.KeyIsLoggedIn:   "true",
	}
	if err := s.tokens.SetMulti(ctx, pairs); err != nil {
		s.log.Warn("refreshed credential persistence failed", "err", err)
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return "", domain.ErrSessionExpired
	}
	s.sess.AccessToken = res.AccessToken
	s.sess.RefreshToken = res.RefreshToken
	snap := s.sess.Clone()
	s.mu.Unlock()
	s.emit(domain.NewSessionEvent(domain.SessionRefreshed, "refresh", snap))
	return res.AccessToken, nil
}

// forceClear is logout without the remote call: unrecoverable refresh
// failure routes the user back to login. Storage is cleared first.
func (s *Store) forceClear(ctx context.Context) {
	if err := s.tokens.Delete(ctx, domain.AuthKeys()...); err != nil {
		s.log.Warn("failed to clear token store", "err", err)
	}
	s.mu.Lock()
	s.gen++
	s.sess.User = nil
	s.sess.AccessToken = ""
	s.sess.RefreshToken = ""
	s.sess.IsAuthenticated = false
	snap := s.sess.Clone()
	s.mu.Unlock()
	s.emit(domain.NewSessionEvent(domain.SessionForceClear, "refresh", snap))
}
