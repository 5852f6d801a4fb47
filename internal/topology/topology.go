// Package topology maps keys to shards.
//
// A Topology is the ordered list of configured slices. Key placement is a
// pure function of the key and the slice count, so it is stable across
// calls and restarts as long as the slice list is unchanged.
package topology

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spaolacci/murmur3"

	"github.com/yndnr/blazar-go/internal/server/config"
)

// ErrEmptyTopology is returned by New when no slices are configured.
var ErrEmptyTopology = errors.New("topology: no slices configured")

// Shard is one backend master.
type Shard struct {
	Index    int
	Master   string
	Password string
}

// String returns "shard <index> (<master>)".
func (s Shard) String() string {
	return fmt.Sprintf("shard %d (%s)", s.Index, s.Master)
}

// Topology is an immutable list of shards.
type Topology struct {
	shards []Shard
}

// New builds a topology from the configured slices, in order.
func New(slices []config.SliceConfig) (*Topology, error) {
	if len(slices) == 0 {
		return nil, ErrEmptyTopology
	}
	shards := make([]Shard, len(slices))
	for i, s := range slices {
		shards[i] = Shard{Index: i, Master: s.Master, Password: s.Password}
	}
	return &Topology{shards: shards}, nil
}

// Len returns the number of shards.
func (t *Topology) Len() int {
	return len(t.shards)
}

// Shard returns the shard at index i.
func (t *Topology) Shard(i int) Shard {
	return t.shards[i]
}

// Shards returns a copy of the shard list.
func (t *Topology) Shards() []Shard {
	out := make([]Shard, len(t.shards))
	copy(out, t.shards)
	return out
}

// ShardFor returns the index of the shard that owns key.
func (t *Topology) ShardFor(key []byte) int {
	return int(murmur3.Sum64(HashKey(key)) % uint64(len(t.shards)))
}

// HashKey returns the part of key that is hashed. When key contains a
// non-empty "{...}" section, only the bytes between the first '{' and the
// following '}' are used, so keys sharing a tag land on the same shard.
func HashKey(key []byte) []byte {
	open := bytes.IndexByte(key, '{')
	if open < 0 {
		return key
	}
	end := bytes.IndexByte(key[open+1:], '}')
	if end <= 0 {
		return key
	}
	return key[open+1 : open+1+end]
}
