package backend

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/blazar-go/internal/connection"
	"github.com/yndnr/blazar-go/internal/core/domain"
	"github.com/yndnr/blazar-go/internal/telemetry/logger"
	"github.com/yndnr/blazar-go/internal/telemetry/metric"
	"github.com/yndnr/blazar-go/internal/topology"
	"github.com/yndnr/blazar-go/pkg/resp"
)

type result struct {
	frame resp.Frame
	err   error
}

type request struct {
	ctx context.Context
	cmd resp.Frame
	// reply has capacity 1 so the session never blocks on a submitter
	// that stopped waiting.
	reply chan result
}

// Status is a point-in-time view of a session.
type Status struct {
	Shard      int    `json:"shard"`
	Master     string `json:"master"`
	Connected  bool   `json:"connected"`
	QueueDepth int    `json:"queue_depth"`
	Reconnects uint64 `json:"reconnects"`
	LastError  string `json:"last_error,omitempty"`
}

// Session serializes all traffic to one shard master.
type Session struct {
	shard   topology.Shard
	opts    Options
	logger  logger.Logger
	metrics *metric.Registry

	queue   chan *request
	done    chan struct{}
	stopped chan struct{}
	started atomic.Bool
	once    sync.Once
	cancel  context.CancelFunc

	// Owned by the run goroutine.
	conn     *connection.Conn
	backoff  time.Duration
	retryAt  time.Time
	dialErr  error
	attached bool

	mu         sync.Mutex
	connected  bool
	reconnects uint64
	lastErr    string
}

// NewSession creates a session for shard. Call Start to begin processing.
func NewSession(shard topology.Shard, opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		shard:   shard,
		opts:    opts,
		logger:  opts.Logger.With("shard", shard.Index, "master", shard.Master),
		metrics: opts.Metrics,
		queue:   make(chan *request, opts.QueueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Shard returns the shard this session serves.
func (s *Session) Shard() topology.Shard {
	return s.shard
}

// Start launches the session goroutine. It makes one connection attempt
// before serving the queue.
func (s *Session) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
}

// Submit forwards cmd to the shard and returns its reply. It blocks while
// the queue is full. Backend error replies (e.g. WRONGTYPE) are returned as
// frames, not errors; errors are always *domain.DomainError.
func (s *Session) Submit(ctx context.Context, cmd resp.Frame) (resp.Frame, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.submitTimeout())
		defer cancel()
	}

	select {
	case <-s.done:
		return resp.Frame{}, s.shutdownErr()
	default:
	}

	req := &request{ctx: ctx, cmd: cmd, reply: make(chan result, 1)}
	select {
	case s.queue <- req:
		s.metrics.SetQueueDepth(s.shard.Index, len(s.queue))
	case <-ctx.Done():
		return resp.Frame{}, s.contextErr(ctx.Err())
	case <-s.done:
		return resp.Frame{}, s.shutdownErr()
	}

	select {
	case r := <-req.reply:
		return r.frame, r.err
	case <-ctx.Done():
		return resp.Frame{}, s.contextErr(ctx.Err())
	case <-s.stopped:
		// The loop may have drained the queue before this request landed.
		select {
		case r := <-req.reply:
			return r.frame, r.err
		default:
			return resp.Frame{}, s.shutdownErr()
		}
	}
}

// Status returns a snapshot of the session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Shard:      s.shard.Index,
		Master:     s.shard.Master,
		Connected:  s.connected,
		QueueDepth: len(s.queue),
		Reconnects: s.reconnects,
		LastError:  s.lastErr,
	}
}

// Close stops the session, fails queued requests and closes the backend
// connection. It waits for the session goroutine to exit.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.cancel != nil {
			s.cancel()
		}
	})
	if s.started.Load() {
		<-s.stopped
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.stopped)
	defer s.disconnect(nil)

	if err := s.ensureConnected(ctx); err != nil {
		s.logger.Warn("initial backend connection failed", "error", err)
	}

	var health <-chan time.Time
	if s.opts.HealthCheckInterval > 0 {
		t := time.NewTicker(s.opts.HealthCheckInterval)
		defer t.Stop()
		health = t.C
	}

	for {
		select {
		case <-s.done:
			s.drain()
			return
		case req := <-s.queue:
			s.metrics.SetQueueDepth(s.shard.Index, len(s.queue))
			s.handle(ctx, req)
		case <-health:
			if len(s.queue) == 0 {
				s.healthCheck(ctx)
			}
		}
	}
}

func (s *Session) handle(ctx context.Context, req *request) {
	// Nothing has been written for this entry yet, so dropping it keeps
	// the reply stream aligned.
	if err := req.ctx.Err(); err != nil {
		req.reply <- result{err: s.contextErr(err)}
		return
	}

	if err := s.ensureConnected(ctx); err != nil {
		s.metrics.ObserveBackend(s.shard.Index, metric.ResultError, 0)
		req.reply <- result{err: err}
		return
	}

	start := time.Now()
	f, err := s.roundTrip(req.cmd)
	if err != nil {
		derr := s.classify(err)
		s.disconnect(err)
		s.observeFailure(derr, time.Since(start))
		req.reply <- result{err: derr}
		return
	}

	s.metrics.ObserveBackend(s.shard.Index, metric.ResultOK, time.Since(start))
	req.reply <- result{frame: f}
}

// roundTrip writes cmd and reads exactly one reply under RequestTimeout.
func (s *Session) roundTrip(cmd resp.Frame) (resp.Frame, error) {
	if err := s.conn.SetDeadline(time.Now().Add(s.opts.RequestTimeout)); err != nil {
		return resp.Frame{}, err
	}
	if err := s.conn.WriteFrame(cmd); err != nil {
		return resp.Frame{}, err
	}
	return s.conn.ReadFrame()
}

// ensureConnected dials the master when there is no live connection.
// While a reconnect backoff is pending it fails fast with the last dial
// error instead of dialing again.
func (s *Session) ensureConnected(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}
	if time.Now().Before(s.retryAt) {
		return domain.ErrBackendUnavailable.
			WithDetails(s.shard.String() + ": reconnecting").
			WithCause(s.dialErr)
	}

	dctx, cancel := context.WithTimeout(ctx, s.opts.DialTimeout)
	defer cancel()

	nc, err := s.opts.Dial(dctx, "tcp", s.shard.Master)
	if err != nil {
		return s.dialFailed(err)
	}
	conn := connection.New(nc, connection.WithLimits(s.opts.Limits))
	s.conn = conn

	if s.shard.Password != "" {
		reply, err := s.roundTrip(resp.Command("AUTH", s.shard.Password))
		if err == nil && reply.IsError() {
			err = errors.New("backend AUTH rejected: " + reply.Str)
		}
		if err != nil {
			s.disconnect(err)
			return s.dialFailed(err)
		}
	}

	s.backoff = 0
	s.retryAt = time.Time{}
	s.dialErr = nil

	s.mu.Lock()
	s.connected = true
	s.lastErr = ""
	if s.attached {
		s.reconnects++
	}
	s.mu.Unlock()

	if s.attached {
		s.metrics.ObserveReconnect(s.shard.Index)
		s.logger.Info("reconnected to backend")
	} else {
		s.logger.Info("connected to backend")
	}
	s.attached = true
	return nil
}

// dialFailed schedules the next attempt with exponential backoff and
// jitter in [backoff/2, backoff].
func (s *Session) dialFailed(err error) error {
	if s.backoff == 0 {
		s.backoff = s.opts.ReconnectMinBackoff
	} else {
		s.backoff = min(2*s.backoff, s.opts.ReconnectMaxBackoff)
	}
	half := s.backoff / 2
	s.retryAt = time.Now().Add(half + time.Duration(rand.Int64N(int64(half)+1)))
	s.dialErr = err

	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()

	s.logger.Warn("backend connection failed", "error", err, "retry_in", time.Until(s.retryAt).Round(time.Millisecond))
	return s.classify(err)
}

// disconnect drops the connection. Any reply still in flight on it would
// be paired with the wrong request, so it is never reused after a failure.
func (s *Session) disconnect(cause error) {
	if s.conn == nil {
		return
	}
	_ = s.conn.Close()
	s.conn = nil

	s.mu.Lock()
	s.connected = false
	if cause != nil {
		s.lastErr = cause.Error()
	}
	s.mu.Unlock()

	if cause != nil {
		s.logger.Warn("backend connection dropped", "error", cause)
	}
}

func (s *Session) healthCheck(ctx context.Context) {
	if s.conn == nil {
		if time.Now().Before(s.retryAt) {
			return
		}
		if err := s.ensureConnected(ctx); err != nil {
			s.logger.Debug("health check reconnect failed", "error", err)
		}
		return
	}

	reply, err := s.roundTrip(resp.Command("PING"))
	if err != nil {
		s.disconnect(err)
		return
	}
	if reply.IsError() {
		s.logger.Warn("health check PING returned error", "reply", reply.Str)
	}
}

func (s *Session) drain() {
	for {
		select {
		case req := <-s.queue:
			req.reply <- result{err: s.shutdownErr()}
		default:
			s.metrics.SetQueueDepth(s.shard.Index, 0)
			return
		}
	}
}

// classify maps a transport or codec failure to a domain error.
func (s *Session) classify(err error) *domain.DomainError {
	if connection.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrBackendTimeout.WithDetails(s.shard.String()).WithCause(err)
	}
	return domain.ErrBackendUnavailable.WithDetails(s.shard.String()).WithCause(err)
}

func (s *Session) contextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrBackendTimeout.WithDetails(s.shard.String()).WithCause(err)
	}
	return domain.ErrBackendUnavailable.WithDetails(s.shard.String() + ": request canceled").WithCause(err)
}

func (s *Session) shutdownErr() error {
	return domain.ErrBackendShutdown.WithDetails(s.shard.String())
}

func (s *Session) observeFailure(err *domain.DomainError, d time.Duration) {
	outcome := metric.ResultError
	if errors.Is(err, domain.ErrBackendTimeout) {
		outcome = metric.ResultTimeout
	}
	if resp.IsTerminal(err) {
		s.metrics.ObserveProtocolError("backend")
	}
	s.metrics.ObserveBackend(s.shard.Index, outcome, d)
}
