// Package benchmark holds performance benchmarks for pagegate.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// The resolver benchmarks show the cost of the reverse session scan used
// when tokens.session_index is off, against the back-reference lookup:
//
//	go test -bench=BenchmarkResolve -benchmem ./internal/tests/benchmark/...
//
// Compare results:
//
//	benchstat old.txt new.txt
package benchmark
