package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/yndnr/blazar-go/internal/core/domain"
	"github.com/yndnr/blazar-go/internal/telemetry/metric"
	"github.com/yndnr/blazar-go/internal/topology"
	"github.com/yndnr/blazar-go/pkg/resp"
)

// Pool holds one session per shard of a topology.
type Pool struct {
	topo     *topology.Topology
	sessions []*Session
	once     sync.Once
}

// NewPool creates a session for every shard. Sessions do not run until
// Start is called.
func NewPool(topo *topology.Topology, opts Options) *Pool {
	p := &Pool{topo: topo}
	for _, shard := range topo.Shards() {
		p.sessions = append(p.sessions, NewSession(shard, opts))
	}
	return p
}

// Start launches every session.
func (p *Pool) Start(ctx context.Context) {
	for _, s := range p.sessions {
		s.Start(ctx)
	}
}

// Topology returns the topology the pool was built from.
func (p *Pool) Topology() *topology.Topology {
	return p.topo
}

// Len returns the number of sessions.
func (p *Pool) Len() int {
	return len(p.sessions)
}

// Session returns the session for shard i.
func (p *Pool) Session(i int) *Session {
	return p.sessions[i]
}

// Submit forwards cmd to shard i.
func (p *Pool) Submit(ctx context.Context, shard int, cmd resp.Frame) (resp.Frame, error) {
	if shard < 0 || shard >= len(p.sessions) {
		return resp.Frame{}, domain.ErrBackendUnavailable.WithDetails(fmt.Sprintf("no shard %d", shard))
	}
	return p.sessions[shard].Submit(ctx, cmd)
}

// Statuses returns a snapshot of every session, in shard order.
func (p *Pool) Statuses() []Status {
	out := make([]Status, len(p.sessions))
	for i, s := range p.sessions {
		out[i] = s.Status()
	}
	return out
}

// Ready reports whether every session holds a live connection.
func (p *Pool) Ready() bool {
	for _, s := range p.sessions {
		if !s.Status().Connected {
			return false
		}
	}
	return true
}

// ShardStates adapts Statuses for metric.Collector.
func (p *Pool) ShardStates() []metric.ShardState {
	out := make([]metric.ShardState, len(p.sessions))
	for i, st := range p.Statuses() {
		out[i] = metric.ShardState{Shard: st.Shard, Master: st.Master, Connected: st.Connected}
	}
	return out
}

// Close stops all sessions concurrently and waits for them.
func (p *Pool) Close() error {
	p.once.Do(func() {
		var wg sync.WaitGroup
		for _, s := range p.sessions {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Close()
			}()
		}
		wg.Wait()
	})
	return nil
}
