package core

// janitor.go evicts editing sessions nobody has touched for a while.
//
// Sessions live in memory only, so a closed browser tab would otherwise keep
// its rows forever. The janitor runs on a ticker until its context ends; it
// never evicts a session whose save is still in flight.

import (
	"context"
	"time"

	"github.com/JonMunkholm/pastegrid/internal/metrics"
)

// Janitor defaults.
const (
	DefaultSessionTTL    = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

// StartSessionJanitor evicts sessions idle for longer than ttl, checking
// every interval. It blocks until ctx is cancelled.
func (s *Service) StartSessionJanitor(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	s.logger.Info("session janitor started", "ttl", ttl, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session janitor stopped")
			return
		case <-ticker.C:
			if n := s.sweepIdleSessions(s.now().Add(-ttl)); n > 0 {
				s.logger.Info("evicted idle sessions", "count", n, "remaining", s.SessionCount())
			}
		}
	}
}

// sweepIdleSessions removes sessions last used before cutoff and returns how
// many were removed.
func (s *Service) sweepIdleSessions(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		if !sess.mu.TryLock() {
			continue // busy, so not idle
		}
		idle := sess.lastUsed.Before(cutoff) && !sess.table.Saving()
		sess.mu.Unlock()
		if !idle {
			continue
		}
		delete(s.sessions, id)
		metrics.SessionsActive.Dec()
		s.logger.Debug("session evicted", "session", id, "table", sess.Def.Info.Key)
		evicted++
	}
	return evicted
}
