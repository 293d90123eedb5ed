package service

import "context"

// Pinger answers a no-op round trip against the backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports whether the backing store is reachable. The /health
// command, the HTTP probe and the heartbeat job all share this check.
type Health struct {
	pinger Pinger
}

func NewHealth(pinger Pinger) *Health {
	return &Health{pinger: pinger}
}

func (s *Health) Check(ctx context.Context) error {
	return s.pinger.Ping(ctx)
}
