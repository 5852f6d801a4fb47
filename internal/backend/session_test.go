package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/blazar-go/internal/core/domain"
	"github.com/yndnr/blazar-go/internal/fakeredis"
	"github.com/yndnr/blazar-go/internal/telemetry/logger"
	"github.com/yndnr/blazar-go/internal/topology"
	"github.com/yndnr/blazar-go/pkg/resp"
)

func testOptions() Options {
	return Options{
		DialTimeout:         time.Second,
		RequestTimeout:      time.Second,
		QueueSize:           16,
		ReconnectMinBackoff: 20 * time.Millisecond,
		ReconnectMaxBackoff: 80 * time.Millisecond,
		Logger:              logger.Discard(),
	}
}

func startFake(t *testing.T, opts ...fakeredis.Option) *fakeredis.Server {
	t.Helper()
	srv, err := fakeredis.Start(opts...)
	if err != nil {
		t.Fatalf("fakeredis.Start() error = %v", err)
	}
	t.Cleanup(srv.Close)
	return srv
}

func startSession(t *testing.T, shard topology.Shard, opts Options) *Session {
	t.Helper()
	s := NewSession(shard, opts)
	s.Start(context.Background())
	t.Cleanup(s.Close)
	return s
}

// unusedAddr returns a loopback address nothing listens on.
func unusedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func submit(t *testing.T, s *Session, args ...string) (resp.Frame, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.Submit(ctx, resp.Command(args...))
}

// ============================================================
// Forwarding
// ============================================================

func TestSession_Submit(t *testing.T) {
	srv := startFake(t)
	s := startSession(t, topology.Shard{Master: srv.Addr()}, testOptions())

	got, err := submit(t, s, "SET", "k", "v")
	if err != nil {
		t.Fatalf("SET error = %v", err)
	}
	if !got.Equal(resp.Simple("OK")) {
		t.Errorf("SET reply = %v", got)
	}

	got, err = submit(t, s, "GET", "k")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	if !got.Equal(resp.BulkString("v")) {
		t.Errorf("GET reply = %v", got)
	}

	got, err = submit(t, s, "GET", "missing")
	if err != nil || got.Kind != resp.KindNull {
		t.Errorf("GET missing = %v, %v", got, err)
	}
}

func TestSession_ErrorReplyIsFrame(t *testing.T) {
	srv := startFake(t)
	s := startSession(t, topology.Shard{Master: srv.Addr()}, testOptions())

	got, err := submit(t, s, "LPUSH", "k", "v")
	if err != nil {
		t.Fatalf("Submit() error = %v, want backend error frame", err)
	}
	if !got.IsError() {
		t.Errorf("reply = %v, want error frame", got)
	}
	if !s.Status().Connected {
		t.Error("an error reply must not drop the connection")
	}
}

func TestSession_Auth(t *testing.T) {
	srv := startFake(t, fakeredis.WithPassword("shard-pw"))

	s := startSession(t, topology.Shard{Master: srv.Addr(), Password: "shard-pw"}, testOptions())
	got, err := submit(t, s, "PING")
	if err != nil || !got.Equal(resp.Simple("PONG")) {
		t.Errorf("PING = %v, %v", got, err)
	}

	bad := startSession(t, topology.Shard{Index: 1, Master: srv.Addr(), Password: "wrong"}, testOptions())
	_, err = submit(t, bad, "PING")
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Errorf("PING with wrong backend password error = %v, want ErrBackendUnavailable", err)
	}
}

func TestSession_PerShardOrdering(t *testing.T) {
	srv := startFake(t)
	s := startSession(t, topology.Shard{Master: srv.Addr()}, testOptions())

	const n = 200
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := submit(t, s, "INCR", "counter")
			if err != nil {
				errs <- err
				return
			}
			if got.Kind != resp.KindInteger {
				errs <- fmt.Errorf("INCR reply = %v", got)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	v, _ := srv.Get("counter")
	if string(v) != fmt.Sprint(n) {
		t.Errorf("counter = %s, want %d", v, n)
	}
}

func TestSession_SequentialRepliesPaired(t *testing.T) {
	srv := startFake(t)
	s := startSession(t, topology.Shard{Master: srv.Addr()}, testOptions())

	for i := 0; i < 50; i++ {
		val := fmt.Sprintf("v%d", i)
		if _, err := submit(t, s, "SET", "k", val); err != nil {
			t.Fatalf("SET error = %v", err)
		}
		got, err := submit(t, s, "GET", "k")
		if err != nil {
			t.Fatalf("GET error = %v", err)
		}
		if got.Text() != val {
			t.Fatalf("GET after SET %s = %v", val, got)
		}
	}
}

// ============================================================
// Failures
// ============================================================

func TestSession_Unreachable(t *testing.T) {
	s := startSession(t, topology.Shard{Master: unusedAddr(t)}, testOptions())

	for i := 0; i < 3; i++ {
		start := time.Now()
		_, err := submit(t, s, "GET", "k")
		if !errors.Is(err, domain.ErrBackendUnavailable) {
			t.Fatalf("attempt %d: error = %v, want ErrBackendUnavailable", i, err)
		}
		if time.Since(start) > time.Second {
			t.Errorf("attempt %d took %v", i, time.Since(start))
		}
	}

	st := s.Status()
	if st.Connected {
		t.Error("Status().Connected = true for unreachable master")
	}
	if st.LastError == "" {
		t.Error("Status().LastError is empty")
	}
}

func TestSession_Timeout(t *testing.T) {
	srv := startFake(t)
	opts := testOptions()
	opts.RequestTimeout = 50 * time.Millisecond
	s := startSession(t, topology.Shard{Master: srv.Addr()}, opts)

	_, err := submit(t, s, "BZSLEEP", "300")
	if !errors.Is(err, domain.ErrBackendTimeout) {
		t.Fatalf("error = %v, want ErrBackendTimeout", err)
	}

	// The late reply belongs to a dropped connection; the next command
	// must get its own reply.
	got, err := submit(t, s, "PING")
	if err != nil {
		t.Fatalf("PING after timeout error = %v", err)
	}
	if !got.Equal(resp.Simple("PONG")) {
		t.Errorf("PING after timeout = %v, want PONG", got)
	}
}

func TestSession_AbandonedReplyDiscarded(t *testing.T) {
	srv := startFake(t)
	s := startSession(t, topology.Shard{Master: srv.Addr()}, testOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := s.Submit(ctx, resp.Command("BZSLEEP", "150"))
	if !errors.Is(err, domain.ErrBackendTimeout) {
		t.Fatalf("error = %v, want ErrBackendTimeout", err)
	}

	// The session still reads the BZSLEEP reply before this PING's.
	got, err := submit(t, s, "PING", "after")
	if err != nil {
		t.Fatalf("PING error = %v", err)
	}
	if got.Text() != "after" {
		t.Errorf("PING reply = %v, want \"after\"", got)
	}
	if !s.Status().Connected {
		t.Error("abandoning a request must not drop the connection")
	}
}

func TestSession_CanceledBeforeWriteIsSkipped(t *testing.T) {
	srv := startFake(t)
	s := startSession(t, topology.Shard{Master: srv.Addr()}, testOptions())

	if _, err := submit(t, s, "PING"); err != nil {
		t.Fatalf("PING error = %v", err)
	}
	before := srv.Commands()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Submit(ctx, resp.Command("SET", "skipped", "1")); err == nil {
		t.Fatal("Submit() with canceled context succeeded")
	}

	if _, err := submit(t, s, "PING"); err != nil {
		t.Fatalf("PING error = %v", err)
	}
	if _, ok := srv.Get("skipped"); ok {
		t.Error("command with canceled context reached the backend")
	}
	if got := srv.Commands() - before; got != 1 {
		t.Errorf("backend received %d commands, want 1", got)
	}
}

func TestSession_ConnectionDropReconnects(t *testing.T) {
	srv := startFake(t)
	s := startSession(t, topology.Shard{Master: srv.Addr()}, testOptions())

	if _, err := submit(t, s, "SET", "k", "v"); err != nil {
		t.Fatalf("SET error = %v", err)
	}

	_, err := submit(t, s, "BZCLOSE")
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("BZCLOSE error = %v, want ErrBackendUnavailable", err)
	}

	got, err := submit(t, s, "GET", "k")
	if err != nil {
		t.Fatalf("GET after drop error = %v", err)
	}
	if got.Text() != "v" {
		t.Errorf("GET after drop = %v", got)
	}
	if st := s.Status(); st.Reconnects != 1 || !st.Connected {
		t.Errorf("Status() = %+v, want 1 reconnect and connected", st)
	}
}

func TestSession_BackendProtocolError(t *testing.T) {
	srv := startFake(t)
	s := startSession(t, topology.Shard{Master: srv.Addr()}, testOptions())

	_, err := submit(t, s, "BZGARBAGE")
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("error = %v, want ErrBackendUnavailable", err)
	}
	if !errors.Is(err, resp.ErrProtocol) {
		t.Errorf("error = %v, want cause wrapping resp.ErrProtocol", err)
	}

	if _, err := submit(t, s, "PING"); err != nil {
		t.Errorf("PING after protocol error = %v", err)
	}
}

func TestSession_BackoffThenRecover(t *testing.T) {
	srv := startFake(t)

	var failures atomic.Int32
	failures.Store(2)
	opts := testOptions()
	opts.Dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
		if failures.Add(-1) >= 0 {
			return nil, errors.New("connection refused")
		}
		var d net.Dialer
		return d.DialContext(ctx, network, addr)
	}

	s := startSession(t, topology.Shard{Master: srv.Addr()}, opts)

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := submit(t, s, "PING")
		if err == nil {
			if !got.Equal(resp.Simple("PONG")) {
				t.Errorf("PING = %v", got)
			}
			break
		}
		if !errors.Is(err, domain.ErrBackendUnavailable) {
			t.Fatalf("error = %v, want ErrBackendUnavailable", err)
		}
		if time.Now().After(deadline) {
			t.Fatal("session did not recover")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSession_HealthCheckConnects(t *testing.T) {
	srv := startFake(t)

	var dials atomic.Int32
	opts := testOptions()
	opts.HealthCheckInterval = 20 * time.Millisecond
	opts.Dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
		if dials.Add(1) == 1 {
			return nil, errors.New("connection refused")
		}
		var d net.Dialer
		return d.DialContext(ctx, network, addr)
	}

	s := startSession(t, topology.Shard{Master: srv.Addr()}, opts)

	deadline := time.Now().Add(2 * time.Second)
	for !s.Status().Connected {
		if time.Now().After(deadline) {
			t.Fatal("health check did not reconnect the idle session")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// ============================================================
// Lifecycle
// ============================================================

func TestSession_CloseFailsPending(t *testing.T) {
	srv := startFake(t)
	s := NewSession(topology.Shard{Master: srv.Addr()}, testOptions())
	s.Start(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), resp.Command("BZSLEEP", "200"))
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)

	s.Close()

	if _, err := s.Submit(context.Background(), resp.Command("PING")); !errors.Is(err, domain.ErrBackendShutdown) {
		t.Errorf("Submit after Close error = %v, want ErrBackendShutdown", err)
	}
	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("in-flight Submit did not return after Close")
	}
}

func TestSession_CloseWithoutStart(t *testing.T) {
	s := NewSession(topology.Shard{Master: "127.0.0.1:1"}, testOptions())
	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close() on unstarted session blocked")
	}
}
