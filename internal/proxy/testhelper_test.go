package proxy

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/yndnr/blazar-go/internal/backend"
	"github.com/yndnr/blazar-go/internal/connection"
	"github.com/yndnr/blazar-go/internal/fakeredis"
	"github.com/yndnr/blazar-go/internal/server/config"
	"github.com/yndnr/blazar-go/internal/telemetry/logger"
	"github.com/yndnr/blazar-go/internal/topology"
	"github.com/yndnr/blazar-go/pkg/resp"
)

type testProxy struct {
	srv  *Server
	topo *topology.Topology
	pool *backend.Pool
	addr string
}

func testConfig() Config {
	return Config{
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		IdleTimeout:  5 * time.Second,
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

func newTopology(t *testing.T, masters ...string) *topology.Topology {
	t.Helper()
	slices := make([]config.SliceConfig, len(masters))
	for i, m := range masters {
		slices[i] = config.SliceConfig{Master: m}
	}
	topo, err := topology.New(slices)
	if err != nil {
		t.Fatalf("topology.New() error = %v", err)
	}
	return topo
}

// startProxy runs a proxy in front of the given masters on a loopback port.
func startProxy(t *testing.T, cfg Config, masters ...string) *testProxy {
	t.Helper()
	topo := newTopology(t, masters...)
	pool := backend.NewPool(topo, backend.Options{
		DialTimeout:         time.Second,
		RequestTimeout:      time.Second,
		QueueSize:           64,
		ReconnectMinBackoff: 20 * time.Millisecond,
		ReconnectMaxBackoff: 80 * time.Millisecond,
		Logger:              logger.Discard(),
	})
	pool.Start(context.Background())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	srv := New(cfg, topo, pool, WithLogger(logger.Discard()))
	go srv.Serve(context.Background(), ln)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		pool.Close()
	})
	return &testProxy{srv: srv, topo: topo, pool: pool, addr: ln.Addr().String()}
}

// keyOnShard returns a key the topology places on shard.
func (p *testProxy) keyOnShard(t *testing.T, shard int, prefix string) string {
	t.Helper()
	for i := 0; i < 10000; i++ {
		k := fmt.Sprintf("%s:%d", prefix, i)
		if p.topo.ShardFor([]byte(k)) == shard {
			return k
		}
	}
	t.Fatalf("no key with prefix %q on shard %d", prefix, shard)
	return ""
}

type testClient struct {
	t    *testing.T
	nc   net.Conn
	conn *connection.Conn
}

func dial(t *testing.T, addr string) *testClient {
	t.Helper()
	nc, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { nc.Close() })
	return &testClient{t: t, nc: nc, conn: connection.New(nc)}
}

func (c *testClient) send(args ...string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := c.conn.WriteFrame(resp.Command(args...)); err != nil {
		c.t.Fatalf("WriteFrame() error = %v", err)
	}
}

func (c *testClient) sendRaw(raw string) {
	c.t.Helper()
	if _, err := c.nc.Write([]byte(raw)); err != nil {
		c.t.Fatalf("Write() error = %v", err)
	}
}

func (c *testClient) read() resp.Frame {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	f, err := c.conn.ReadFrame()
	if err != nil {
		c.t.Fatalf("ReadFrame() error = %v", err)
	}
	return f
}

func (c *testClient) do(args ...string) resp.Frame {
	c.t.Helper()
	c.send(args...)
	return c.read()
}

// expectClosed asserts the proxy closed the connection.
func (c *testClient) expectClosed() {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	f, err := c.conn.ReadFrame()
	if err == nil {
		c.t.Fatalf("expected closed connection, got frame %v", f)
	}
	if connection.IsTimeout(err) {
		c.t.Fatal("expected closed connection, read timed out")
	}
}
