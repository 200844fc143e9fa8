package session

import (
	"context"
	"time"

	"github.com/you/trisonapp/domain"
)

// BootstrapResult is the single terminal outcome of startup
// rehydration, consumed exactly once by the navigation root.
type BootstrapResult int

const (
	BootstrapAuthenticated BootstrapResult = iota
	BootstrapUnauthenticated
	BootstrapTimedOut
)

func (r BootstrapResult) String() string {
	switch r {
	case BootstrapAuthenticated:
		return "authenticated"
	case BootstrapUnauthenticated:
		return "unauthenticated"
	case BootstrapTimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Bootstrap rehydrates the session with a deadline. While it runs the
// session reads as loading, so the navigator shows neither route; a
// store that never answers resolves to unauthenticated when the
// deadline passes. A rehydration settling after the deadline is
// superseded and cannot flip the decision.
func (s *Store) Bootstrap(ctx context.Context, timeout time.Duration) BootstrapResult {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.CheckAuthStatus(cctx)
	}()

	select {
	case <-done:
		if s.Snapshot().IsAuthenticated {
			return BootstrapAuthenticated
		}
		return BootstrapUnauthenticated
	case <-cctx.Done():
		s.mu.Lock()
		s.gen++
		// The stalled rehydration's slot is released here; its own
		// settle, if it ever arrives, decrements against the floor.
		if s.inflight > 0 {
			s.inflight--
		}
		s.sess.IsLoading = s.inflight > 0
		snap := s.sess.Clone()
		s.mu.Unlock()
		s.log.Warn("session rehydration missed its deadline; defaulting to unauthenticated", "timeout", timeout)
		s.emit(domain.NewSessionEvent(domain.SessionRehydrated, ActionCheckAuthStatus, snap))
		return BootstrapTimedOut
	}
}
