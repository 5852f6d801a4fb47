package benchmark

import (
	"fmt"
	"testing"

	"github.com/yndnr/blazar-go/pkg/token"
)

// BenchmarkShardFor benchmarks key placement.
func BenchmarkShardFor(b *testing.B) {
	keys := [][]byte{
		[]byte("user:1000"),
		[]byte("{user:1000}.sessions"),
		[]byte("a-much-longer-key-name-that-has-no-hash-tag-in-it:1234567890"),
	}

	for _, n := range ShardCounts {
		topo := newTopology(b, n)
		b.Run(fmt.Sprintf("shards_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				topo.ShardFor(keys[i%len(keys)])
			}
		})
	}
}

// BenchmarkAuthCompare benchmarks the constant-time AUTH comparison.
func BenchmarkAuthCompare(b *testing.B) {
	secret, _ := token.Generate()
	given := []byte(secret)
	expected := []byte(secret)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		token.Equal(given, expected)
	}
}
