// Package relay publishes run lifecycle notices to NATS so other processes
// can react to runs starting and ending without polling the history store.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/askoja/toil/pkg/api"
)

// DefaultSubjectPrefix is the subject prefix for run notices.
const DefaultSubjectPrefix = "toil.run"

// Notice is the JSON payload published for each lifecycle transition.
type Notice struct {
	WorkerID string    `json:"worker_id"`
	RunID    string    `json:"run_id"`
	Name     string    `json:"name,omitempty"`
	Outcome  string    `json:"outcome"`
	Duration int64     `json:"duration_ms,omitempty"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Relay is an api.Observer that publishes a Notice when a run starts and
// when it settles. Progress reports are not relayed. Publish failures are
// logged and swallowed: messaging must never affect the run itself.
type Relay struct {
	conn    *nats.Conn
	ownConn bool
	prefix  string
	log     zerolog.Logger
}

// Ensure Relay implements Observer.
var _ api.Observer = (*Relay)(nil)

// Option configures a Relay.
type Option func(*Relay)

// WithSubjectPrefix overrides the subject prefix.
func WithSubjectPrefix(prefix string) Option {
	return func(r *Relay) { r.prefix = prefix }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Relay) { r.log = log }
}

// NewRelay connects to the NATS server at url and returns a Relay owning
// that connection. Close drains it.
func NewRelay(url string, opts ...Option) (*Relay, error) {
	r := &Relay{
		ownConn: true,
		prefix:  DefaultSubjectPrefix,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	conn, err := nats.Connect(url,
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			r.log.Warn().Err(err).Msg("disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			r.log.Info().Str("server", nc.ConnectedUrl()).Msg("reconnected to NATS")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			r.log.Info().Msg("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	r.conn = conn

	r.log.Info().Str("server", conn.ConnectedUrl()).Msg("connected to NATS")
	return r, nil
}

// NewRelayWithConn returns a Relay on an existing connection. The caller
// keeps ownership; Close will not drain it.
func NewRelayWithConn(conn *nats.Conn, opts ...Option) *Relay {
	r := &Relay{
		conn:   conn,
		prefix: DefaultSubjectPrefix,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close drains the connection if the Relay owns it.
func (r *Relay) Close() error {
	if r.ownConn && r.conn != nil && r.conn.IsConnected() {
		return r.conn.Drain()
	}
	return nil
}

func (r *Relay) OnRunStart(ctx context.Context, run api.RunInfo) {
	r.publish("started", Notice{
		WorkerID: run.WorkerID,
		RunID:    run.RunID,
		Name:     run.Name,
		Outcome:  string(api.OutcomeRunning),
		At:       time.Now(),
	})
}

func (r *Relay) OnProgress(ctx context.Context, run api.RunInfo, pct int) {}

func (r *Relay) OnRunCompleted(ctx context.Context, run api.RunInfo, d time.Duration) {
	r.publish("completed", Notice{
		WorkerID: run.WorkerID,
		RunID:    run.RunID,
		Name:     run.Name,
		Outcome:  string(api.OutcomeCompleted),
		Duration: d.Milliseconds(),
		At:       time.Now(),
	})
}

func (r *Relay) OnRunFailed(ctx context.Context, run api.RunInfo, werr *api.WorkError, d time.Duration) {
	errText := ""
	if werr != nil {
		errText = werr.Error()
	}
	r.publish("failed", Notice{
		WorkerID: run.WorkerID,
		RunID:    run.RunID,
		Name:     run.Name,
		Outcome:  string(api.OutcomeFailed),
		Duration: d.Milliseconds(),
		Error:    errText,
		At:       time.Now(),
	})
}

func (r *Relay) OnRunCancelled(ctx context.Context, run api.RunInfo, d time.Duration) {
	r.publish("cancelled", Notice{
		WorkerID: run.WorkerID,
		RunID:    run.RunID,
		Name:     run.Name,
		Outcome:  string(api.OutcomeCancelled),
		Duration: d.Milliseconds(),
		At:       time.Now(),
	})
}

func (r *Relay) publish(kind string, notice Notice) {
	subject := r.prefix + "." + kind

	data, err := json.Marshal(notice)
	if err != nil {
		r.log.Error().Err(err).Str("subject", subject).Msg("failed to encode run notice")
		return
	}

	if err := r.conn.Publish(subject, data); err != nil {
		r.log.Error().Err(err).Str("subject", subject).Msg("failed to publish run notice")
		return
	}

	r.log.Debug().Str("subject", subject).Str("runID", notice.RunID).Msg("published run notice")
}
