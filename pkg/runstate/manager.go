// Package runstate tracks which named jobs are currently running, using
// Redis as the shared ledger. It lets cooperating processes avoid starting
// the same job twice and find stale runs after a crash.
package runstate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// DefaultPrefix namespaces the run-state keys.
	DefaultPrefix = "toil:run:"

	// DefaultLease is how long a run is considered live without a
	// heartbeat. It keeps runs that died without cleanup from staying
	// marked as running forever.
	DefaultLease = 24 * time.Hour

	runningState = "running"
)

// ErrAlreadyActive is returned by Acquire when another holder already marks
// the run as live.
var ErrAlreadyActive = errors.New("toil: run already active")

// Manager marks runs as live in Redis for the duration of their lease.
type Manager struct {
	client redis.UniversalClient
	prefix string
	lease  time.Duration
	log    zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(m *Manager) { m.prefix = prefix }
}

// WithLease overrides the lease duration.
func WithLease(lease time.Duration) Option {
	return func(m *Manager) { m.lease = lease }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// NewManager creates a Manager on the given Redis client.
func NewManager(client redis.UniversalClient, opts ...Option) *Manager {
	m := &Manager{
		client: client,
		prefix: DefaultPrefix,
		lease:  DefaultLease,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) key(name string) string {
	return m.prefix + name
}

// Acquire marks the named run as live. It fails with ErrAlreadyActive when
// the key already exists, so at most one holder is live per name.
func (m *Manager) Acquire(ctx context.Context, name string) error {
	ok, err := m.client.SetNX(ctx, m.key(name), runningState, m.lease).Result()
	if err != nil {
		return fmt.Errorf("acquire run %s: %w", name, err)
	}
	if !ok {
		return ErrAlreadyActive
	}

	m.log.Debug().Str("run", name).Dur("lease", m.lease).Msg("run acquired")
	return nil
}

// Heartbeat extends the lease of a live run. It reports false when the run
// is no longer marked live (the lease expired or the run was released).
func (m *Manager) Heartbeat(ctx context.Context, name string) (bool, error) {
	ok, err := m.client.Expire(ctx, m.key(name), m.lease).Result()
	if err != nil {
		return false, fmt.Errorf("heartbeat run %s: %w", name, err)
	}
	return ok, nil
}

// IsLive reports whether the named run is currently marked live.
func (m *Manager) IsLive(ctx context.Context, name string) (bool, error) {
	state, err := m.client.Get(ctx, m.key(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("get run state %s: %w", name, err)
	}
	return state == runningState, nil
}

// Release removes the run's live marker. Releasing a run that is not live
// is a no-op.
func (m *Manager) Release(ctx context.Context, name string) error {
	if err := m.client.Del(ctx, m.key(name)).Err(); err != nil {
		return fmt.Errorf("release run %s: %w", name, err)
	}

	m.log.Debug().Str("run", name).Msg("run released")
	return nil
}

// ListLive returns the names of all runs currently marked live. It uses
// SCAN so large keyspaces do not block the Redis server.
func (m *Manager) ListLive(ctx context.Context) ([]string, error) {
	var names []string

	iter := m.client.Scan(ctx, 0, m.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), m.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan live runs: %w", err)
	}

	return names, nil
}
