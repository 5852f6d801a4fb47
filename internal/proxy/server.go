package proxy

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/blazar-go/internal/connection"
	"github.com/yndnr/blazar-go/internal/server/config"
	"github.com/yndnr/blazar-go/internal/telemetry/logger"
	"github.com/yndnr/blazar-go/internal/telemetry/metric"
	"github.com/yndnr/blazar-go/internal/topology"
	"github.com/yndnr/blazar-go/pkg/cmap"
	"github.com/yndnr/blazar-go/pkg/resp"
)

const limiterSweepInterval = time.Minute

// Backend forwards a command to one shard. *backend.Pool implements it.
type Backend interface {
	Submit(ctx context.Context, shard int, cmd resp.Frame) (resp.Frame, error)
}

// Config holds the client-facing server settings.
type Config struct {
	// ListenAddr is the TCP address clients connect to.
	ListenAddr string
	// Auth is the token clients must present with AUTH. Empty disables auth.
	Auth string
	// ReadTimeout bounds reading the rest of a command once it started.
	ReadTimeout time.Duration
	// WriteTimeout bounds writing one reply.
	WriteTimeout time.Duration
	// IdleTimeout closes clients that send nothing for this long.
	IdleTimeout time.Duration
	// MaxClients caps concurrent clients. 0 means unlimited.
	MaxClients int
	// RateLimit is the allowed commands per second per client IP. 0 disables it.
	RateLimit int
	// Limits bound decoding of client frames.
	Limits resp.Limits
}

// ConfigFrom builds a server Config from the proxy configuration.
func ConfigFrom(cfg *config.ProxyConfig) Config {
	return Config{
		ListenAddr:   cfg.Proxy.ListenAddr(),
		Auth:         cfg.Proxy.RedisAuth,
		ReadTimeout:  cfg.Proxy.ReadTimeout,
		WriteTimeout: cfg.Proxy.WriteTimeout,
		IdleTimeout:  cfg.Proxy.IdleTimeout,
		MaxClients:   cfg.Proxy.MaxClients,
		RateLimit:    cfg.Proxy.RateLimit,
		Limits:       cfg.Protocol.Limits(),
	}
}

func (c Config) withDefaults() Config {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = config.DefaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = config.DefaultWriteTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = config.DefaultIdleTimeout
	}
	return c
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Registry) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// Server accepts client connections and routes their commands.
type Server struct {
	cfg     Config
	router  *router
	limiter *rateLimiter
	logger  logger.Logger
	metrics *metric.Registry

	mu      sync.Mutex
	ln      net.Listener
	cancel  context.CancelFunc
	running atomic.Bool
	wg      sync.WaitGroup

	clients *cmap.Map[string, *client]
	active  atomic.Int64
}

// New creates a server routing over topo through backend.
func New(cfg Config, topo *topology.Topology, backend Backend, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg.withDefaults(),
		logger:  logger.Default(),
		clients: cmap.New[string, *client](),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = newRouter(topo, backend, s.logger)
	s.limiter = newRateLimiter(s.cfg.RateLimit)
	return s
}

// Start listens on the configured address and serves clients in the
// background. It returns once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.logger.Info("proxy listening", "address", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Serve(ctx, ln); err != nil {
			s.logger.Error("proxy accept loop stopped", "error", err)
		}
	}()
	return nil
}

// Serve accepts clients on ln until ln is closed or ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.ln = ln
	s.cancel = cancel
	s.mu.Unlock()
	s.running.Store(true)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	if s.limiter != nil {
		go s.sweepLimiter(ctx)
	}

	return s.acceptLoop(ctx, ln)
}

func (s *Server) sweepLimiter(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.sweep()
		}
	}
}

// Addr returns the bound listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	return int(s.active.Load())
}

// Shutdown stops accepting, closes every client and waits for their
// goroutines to exit or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	s.mu.Lock()
	ln, cancel := s.ln, s.cancel
	s.mu.Unlock()

	var firstErr error
	if ln != nil {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}
	if cancel != nil {
		cancel()
	}
	s.clients.Range(func(_ string, c *client) bool {
		_ = c.conn.Close()
		return true
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return firstErr
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			return err
		}

		conn := connection.New(nc, connection.WithLimits(s.cfg.Limits))
		if limit := s.cfg.MaxClients; limit > 0 && s.active.Load() >= int64(limit) {
			s.logger.Warn("rejecting client, max clients reached", "remote", nc.RemoteAddr().String(), "max_clients", limit)
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			_ = conn.WriteError(replyError(errTooManyClients()))
			_ = conn.Close()
			continue
		}

		c := s.newClient(conn)
		s.clients.Set(c.id, c)
		s.active.Add(1)
		s.metrics.ClientConnected()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.removeClient(c)
			c.serve(ctx)
		}()
	}
}

func (s *Server) newClient(conn *connection.Conn) *client {
	id := ulid.Make().String()
	remote := ""
	ip := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
		ip = remote
		if host, _, err := net.SplitHostPort(remote); err == nil {
			ip = host
		}
	}

	st := stateReady
	if s.cfg.Auth != "" {
		st = stateAuthenticating
	}
	return &client{
		id:     id,
		ip:     ip,
		conn:   conn,
		srv:    s,
		state:  st,
		logger: s.logger.With("remote", remote),
	}
}

func (s *Server) removeClient(c *client) {
	_ = c.conn.Close()
	if _, ok := s.clients.Pop(c.id); ok {
		s.active.Add(-1)
		s.metrics.ClientDisconnected()
	}
}
