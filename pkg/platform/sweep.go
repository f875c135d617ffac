package platform

import (
	"context"
	"sync"
	"time"
)

// SweepResult maps a probed host to its reachability.
type SweepResult map[string]bool

// PingSweep probes every host concurrently, bounded by threads workers.
// Probe failures count as unreachable; the sweep itself never fails.
func PingSweep(ctx context.Context, exec Executor, hosts []string, count int, perPacket time.Duration, threads int) SweepResult {
	if threads < 1 {
		threads = 1
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make(SweepResult, len(hosts))
	semaphore := make(chan struct{}, threads)

	for _, host := range hosts {
		wg.Add(1)
		go func(host string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			reachable, err := exec.Ping(ctx, host, count, perPacket)
			mu.Lock()
			results[host] = err == nil && reachable
			mu.Unlock()
		}(host)
	}

	wg.Wait()
	return results
}
