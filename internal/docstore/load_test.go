package docstore

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/loveeagles/planner/internal/logger"
)

// latencyStats summarizes per-operation latencies of a load run.
type latencyStats struct {
	Min, Max, Mean time.Duration
	P50, P95, P99  time.Duration
	Total, Errors  int
}

func computeLatencyStats(durations []time.Duration) latencyStats {
	if len(durations) == 0 {
		return latencyStats{}
	}
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	return latencyStats{
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Mean:  sum / time.Duration(len(sorted)),
		P50:   sorted[len(sorted)*50/100],
		P95:   sorted[len(sorted)*95/100],
		P99:   sorted[len(sorted)*99/100],
		Total: len(sorted),
	}
}

// seedAssignments fills one user's assignment collection with n documents.
func seedAssignments(t testing.TB, s *SQLStore, path Path, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("a%04d", i)
		err := s.Set(ctx, path, id, Record{
			"id":        id,
			"title":     fmt.Sprintf("Assignment %d", i),
			"subject":   "Math",
			"completed": i%3 == 0,
		})
		if err != nil {
			t.Fatalf("Set() failed: %v", err)
		}
	}
}

// runClients starts n clients that each list the collection ops times and
// write one document every fifth operation.
func runClients(s *SQLStore, path Path, clients, ops int) latencyStats {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		durations []time.Duration
		errs      int
	)
	for c := 0; c < clients; c++ {
		wg.Add(1)
		go func(client int) {
			defer wg.Done()
			ctx := context.Background()
			local := make([]time.Duration, 0, ops)
			failed := 0
			for j := 0; j < ops; j++ {
				start := time.Now()
				var err error
				if j%5 == 4 {
					id := fmt.Sprintf("c%03d-%03d", client, j)
					err = s.Set(ctx, path, id, Record{"id": id, "title": "load", "completed": false})
				} else {
					_, err = s.List(ctx, path)
				}
				local = append(local, time.Since(start))
				if err != nil {
					failed++
				}
			}
			mu.Lock()
			durations = append(durations, local...)
			errs += failed
			mu.Unlock()
		}(c)
	}
	wg.Wait()

	st := computeLatencyStats(durations)
	st.Errors = errs
	return st
}

func TestComputeLatencyStats(t *testing.T) {
	var ds []time.Duration
	for i := 100; i >= 1; i-- {
		ds = append(ds, time.Duration(i)*time.Millisecond)
	}
	st := computeLatencyStats(ds)
	if st.Min != time.Millisecond || st.Max != 100*time.Millisecond {
		t.Errorf("Min/Max = %v/%v, want 1ms/100ms", st.Min, st.Max)
	}
	if st.P50 != 51*time.Millisecond {
		t.Errorf("P50 = %v, want 51ms", st.P50)
	}
	if st.P99 != 100*time.Millisecond {
		t.Errorf("P99 = %v, want 100ms", st.P99)
	}
	if st.Total != 100 {
		t.Errorf("Total = %d, want 100", st.Total)
	}
	if got := computeLatencyStats(nil); got.Total != 0 {
		t.Errorf("empty Total = %d, want 0", got.Total)
	}
}

func TestConcurrentClients_Small(t *testing.T) {
	s := testStore(t)
	path := UserCollection("load-user", "assignments")
	seedAssignments(t, s, path, 50)

	st := runClients(s, path, 10, 10)
	if st.Errors > 0 {
		t.Errorf("got %d errors during load", st.Errors)
	}
	if st.Total != 100 {
		t.Errorf("Total = %d, want 100", st.Total)
	}

	got, err := s.List(context.Background(), path)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	// 10 clients each write on operations 4 and 9.
	if want := 50 + 10*2; len(got) != want {
		t.Errorf("List() returned %d records, want %d", len(got), want)
	}
}

func TestConcurrentClients_50(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping load test in short mode")
	}
	s := testStore(t)
	path := UserCollection("load-user", "assignments")
	seedAssignments(t, s, path, 500)

	start := time.Now()
	st := runClients(s, path, 50, 20)
	elapsed := time.Since(start)

	if st.Errors > 0 {
		t.Errorf("got %d errors during load", st.Errors)
	}
	t.Logf("ops=%d min=%v mean=%v p50=%v p95=%v p99=%v max=%v", st.Total, st.Min, st.Mean, st.P50, st.P95, st.P99, st.Max)
	t.Logf("throughput: %.0f ops/s", float64(st.Total)/elapsed.Seconds())

	if st.Min > 50*time.Millisecond {
		t.Errorf("minimum latency %v exceeds 50ms", st.Min)
	}
}

func BenchmarkList(b *testing.B) {
	s, err := Open(filepath.Join(b.TempDir(), "bench.db"), logger.Discard())
	if err != nil {
		b.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()
	path := UserCollection("bench", "assignments")
	seedAssignments(b, s, path, 200)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.List(ctx, path); err != nil {
			b.Fatalf("List() failed: %v", err)
		}
	}
}

func BenchmarkConcurrentClients(b *testing.B) {
	s, err := Open(filepath.Join(b.TempDir(), "bench.db"), logger.Discard())
	if err != nil {
		b.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()
	path := UserCollection("bench", "assignments")
	seedAssignments(b, s, path, 200)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		runClients(s, path, 20, 10)
	}
}
