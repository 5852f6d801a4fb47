// Package benchmark provides performance benchmarks for blazar.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Compare codec changes:
//
//	go test -bench=BenchmarkResp -benchmem -count=5 ./internal/tests/benchmark/... | tee new.txt
//	benchstat old.txt new.txt
package benchmark
