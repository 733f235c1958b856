package session

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ReconnectPolicy controls redialing after an unexpected connection
// loss. Disabled by default: a dropped connection stays dropped until
// the user reselects the room. Enabling it gives bounded exponential
// backoff instead.
type ReconnectPolicy struct {
	Enabled         bool
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxAttempts caps the number of redials; 0 means unbounded.
	MaxAttempts uint64
}

func (p ReconnectPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0
	if p.MaxAttempts > 0 {
		return backoff.WithMaxRetries(b, p.MaxAttempts)
	}
	return b
}
