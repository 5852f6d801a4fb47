package benchmark

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/blazar-go/internal/backend"
	"github.com/yndnr/blazar-go/internal/connection"
	"github.com/yndnr/blazar-go/internal/fakeredis"
	"github.com/yndnr/blazar-go/internal/proxy"
	"github.com/yndnr/blazar-go/internal/server/config"
	"github.com/yndnr/blazar-go/internal/telemetry/logger"
	"github.com/yndnr/blazar-go/internal/topology"
	"github.com/yndnr/blazar-go/pkg/resp"
)

// ShardCounts are the topology sizes benchmarked.
var ShardCounts = []int{1, 4, 16}

// KeySizes are the bulk payload sizes benchmarked.
var KeySizes = []int{16, 512, 16 * 1024}

func newTopology(b *testing.B, n int) *topology.Topology {
	b.Helper()
	slices := make([]config.SliceConfig, n)
	for i := range slices {
		slices[i] = config.SliceConfig{Master: fmt.Sprintf("10.0.0.%d:6379", i+1)}
	}
	topo, err := topology.New(slices)
	if err != nil {
		b.Fatal(err)
	}
	return topo
}

// encoded returns the wire form of a SET with a value of size bytes.
func encoded(size int) []byte {
	return resp.AppendFrame(nil, resp.Command("SET", "bench:key", strings.Repeat("x", size)))
}

// startProxy runs a proxy over n fake masters and returns a connected client.
func startProxy(b *testing.B, n int) *connection.Conn {
	b.Helper()

	slices := make([]config.SliceConfig, n)
	for i := range slices {
		m, err := fakeredis.Start()
		if err != nil {
			b.Fatal(err)
		}
		b.Cleanup(m.Close)
		slices[i] = config.SliceConfig{Master: m.Addr()}
	}
	topo, err := topology.New(slices)
	if err != nil {
		b.Fatal(err)
	}

	pool := backend.NewPool(topo, backend.Options{
		DialTimeout:    time.Second,
		RequestTimeout: time.Second,
		QueueSize:      1024,
		Logger:         logger.Discard(),
	})
	pool.Start(context.Background())

	srv := proxy.New(proxy.Config{ListenAddr: "127.0.0.1:0"}, topo, pool, proxy.WithLogger(logger.Discard()))
	if err := srv.Start(context.Background()); err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		_ = pool.Close()
	})

	nc, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		b.Fatal(err)
	}
	c := connection.New(nc)
	b.Cleanup(func() { _ = c.Close() })
	return c
}

func roundTrip(b *testing.B, c *connection.Conn, cmd resp.Frame) resp.Frame {
	if err := c.WriteFrame(cmd); err != nil {
		b.Fatal(err)
	}
	f, err := c.ReadFrame()
	if err != nil {
		b.Fatal(err)
	}
	if f.IsError() {
		b.Fatalf("error reply: %s", f.Str)
	}
	return f
}
