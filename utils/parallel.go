package utils

import (
	"runtime"

	"github.com/dgravesa/go-parallel/parallel"
)

// Workers resolves a configured worker count; n <= 0 means one per CPU.
func Workers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// ForRows calls body once per row in [0, rows) across workers goroutines and
// returns when every row has finished. The return is the barrier between passes.
func ForRows(rows, workers int, body func(y int)) {
	if rows <= 0 {
		return
	}
	var w = Workers(workers)
	if w > rows {
		w = rows
	}
	if w == 1 {
		for y := 0; y < rows; y++ {
			body(y)
		}
		return
	}
	parallel.WithNumGoroutines(w).For(rows, func(y, _ int) {
		body(y)
	})
}
