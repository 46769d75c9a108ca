package util

import (
	"runtime"
	"sync"
)

// NumChunks returns the number of chunks ParallelChunks will split a range
// of n elements into. Callers use it to pre-allocate per-chunk result
// buffers that are later concatenated in chunk order.
func NumChunks(n int) int {
	if n <= 0 {
		return 0
	}
	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	chunkSize := (n + workers - 1) / workers
	return (n + chunkSize - 1) / chunkSize
}

// ParallelChunks splits the half-open range [0, n) into NumChunks(n) chunks
// and processes each chunk in its own goroutine. Every chunk gets its index
// and its [start, end) sub-range, so workers can write to disjoint slice
// regions or fill their own chunk buffer without locking. The call blocks
// until all chunks are done.
func ParallelChunks(n int, fn func(chunk int, start int, end int)) {
	numChunks := NumChunks(n)
	if numChunks == 0 {
		return
	}
	chunkSize := (n + numChunks - 1) / numChunks

	waitGroup := &sync.WaitGroup{}
	for chunk := 0; chunk < numChunks; chunk++ {
		start := chunk * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}

		waitGroup.Add(1)
		go func(chunk int, start int, end int) {
			fn(chunk, start, end)
			waitGroup.Done()
		}(chunk, start, end)
	}
	waitGroup.Wait()
}
