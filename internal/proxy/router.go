package proxy

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/blazar-go/internal/core/domain"
	"github.com/yndnr/blazar-go/internal/telemetry/logger"
	"github.com/yndnr/blazar-go/internal/topology"
	"github.com/yndnr/blazar-go/pkg/resp"
)

// errShardReplied stops a fan-out when one shard answered with an error
// frame. The frame itself is relayed to the client.
var errShardReplied = errors.New("shard replied with an error")

type router struct {
	topo    *topology.Topology
	backend Backend
	logger  logger.Logger
}

func newRouter(topo *topology.Topology, backend Backend, l logger.Logger) *router {
	return &router{topo: topo, backend: backend, logger: l}
}

// batch is the part of a multi-key command bound for one shard.
type batch struct {
	shard int
	// pos holds the index of each key group in the original command.
	pos  []int
	args []resp.Frame
}

// route forwards cmd to the shard owning its key, splitting multi-key
// commands across shards. cmd must already have passed the arity check.
func (r *router) route(ctx context.Context, spec cmdSpec, cmd resp.Frame) (resp.Frame, error) {
	if spec.kind == kindSingle {
		return r.backend.Submit(ctx, r.topo.ShardFor(cmd.Array[1].Bulk), cmd)
	}

	step := 1
	if spec.kind == kindMultiSet {
		step = 2
	}
	batches := r.split(cmd, step)
	if len(batches) == 1 {
		return r.backend.Submit(ctx, batches[0].shard, cmd)
	}

	replies, err := r.fanOut(ctx, cmd.Array[0], batches)
	if err != nil {
		return resp.Frame{}, err
	}
	for _, reply := range replies {
		if reply.IsError() {
			return reply, nil
		}
	}

	switch spec.kind {
	case kindMultiGet:
		return mergeArrays(cmd, batches, replies)
	case kindMultiCount:
		return mergeCounts(cmd, batches, replies)
	default:
		return mergeOK(cmd, batches, replies)
	}
}

// split groups the key groups of cmd by shard. Groups keep their relative
// order inside a batch, and batches are ordered by first appearance.
func (r *router) split(cmd resp.Frame, step int) []*batch {
	var batches []*batch
	byShard := make(map[int]*batch)
	for i := 1; i+step <= len(cmd.Array); i += step {
		shard := r.topo.ShardFor(cmd.Array[i].Bulk)
		b, ok := byShard[shard]
		if !ok {
			b = &batch{shard: shard}
			byShard[shard] = b
			batches = append(batches, b)
		}
		b.pos = append(b.pos, (i-1)/step)
		b.args = append(b.args, cmd.Array[i:i+step]...)
	}
	return batches
}

// fanOut submits one sub-command per batch concurrently. Replies are in
// batch order. The first transport failure cancels the remaining batches.
func (r *router) fanOut(ctx context.Context, name resp.Frame, batches []*batch) ([]resp.Frame, error) {
	replies := make([]resp.Frame, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range batches {
		g.Go(func() error {
			elems := make([]resp.Frame, 0, len(b.args)+1)
			elems = append(elems, name)
			elems = append(elems, b.args...)

			reply, err := r.backend.Submit(gctx, b.shard, resp.Array(elems...))
			if err != nil {
				return err
			}
			replies[i] = reply
			if reply.IsError() {
				return errShardReplied
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, errShardReplied) {
		r.logger.WithContext(ctx).Debug("fan-out failed", "command", name.Text(), "shards", len(batches), "error", err)
		return nil, err
	}
	return replies, nil
}

func mergeArrays(cmd resp.Frame, batches []*batch, replies []resp.Frame) (resp.Frame, error) {
	out := make([]resp.Frame, len(cmd.Array)-1)
	for i, b := range batches {
		reply := replies[i]
		if reply.Kind != resp.KindArray || len(reply.Array) != len(b.pos) {
			return resp.Frame{}, unexpectedReply(cmd, b.shard, reply)
		}
		for j, p := range b.pos {
			out[p] = reply.Array[j]
		}
	}
	return resp.Array(out...), nil
}

func mergeCounts(cmd resp.Frame, batches []*batch, replies []resp.Frame) (resp.Frame, error) {
	var total int64
	for i, reply := range replies {
		if reply.Kind != resp.KindInteger {
			return resp.Frame{}, unexpectedReply(cmd, batches[i].shard, reply)
		}
		total += reply.Int
	}
	return resp.Integer(total), nil
}

func mergeOK(cmd resp.Frame, batches []*batch, replies []resp.Frame) (resp.Frame, error) {
	for i, reply := range replies {
		if reply.Kind != resp.KindSimple || reply.Str != "OK" {
			return resp.Frame{}, unexpectedReply(cmd, batches[i].shard, reply)
		}
	}
	return resp.Simple("OK"), nil
}

func unexpectedReply(cmd resp.Frame, shard int, reply resp.Frame) error {
	return domain.ErrBackendUnavailable.WithDetails(
		fmt.Sprintf("unexpected %s reply from shard %d: %s", cmd.Array[0].Text(), shard, reply.Kind))
}
