// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package workers dispatches one sampling task per pixel across a bounded
// pool of goroutines, sized off the host's CPU count and memory, and
// collects every task's error. Grounded on the teacher's Promise/
// MaterializeAll pattern, retargeted from FITS-image promises to
// independent per-pixel sampling tasks.
package workers

import (
	"context"
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/pbnjay/memory"
)

// Budget sizes the worker pool and per-task scratch from host resources.
type Budget struct {
	MaxThreads   int
	TotalMemMB   int
	ScratchMemMB int // budget set aside for per-task scratch, 70% of total
}

// NewBudget inspects the host via cpuid and pbnjay/memory the way the
// teacher's ops.NewContext sizes its stacking memory budget.
func NewBudget() *Budget {
	threads := runtime.GOMAXPROCS(0)
	if n := cpuid.CPU.LogicalCores; n > 0 && n < threads {
		threads = n
	}
	totalMB := int(memory.TotalMemory() / 1024 / 1024)
	return &Budget{
		MaxThreads:   threads,
		TotalMemMB:   totalMB,
		ScratchMemMB: totalMB * 7 / 10,
	}
}

// Task is one independently-runnable unit of work, identified by its pixel
// index. It must return promptly when ctx is done.
type Task func(ctx context.Context, pixel int) error

// RunAll executes one Task per pixel in 0..n-1, bounded to maxThreads
// concurrent goroutines, the same fixed-size-channel-as-semaphore idiom the
// teacher's ops.MaterializeAll uses for bounded concurrency. Returns the
// first error encountered, if any, after every task has finished or the
// context was cancelled; remaining in-flight tasks observe ctx.Done() via
// the Task implementation and return early.
func RunAll(ctx context.Context, n, maxThreads int, task Task) error {
	if n == 0 {
		return nil
	}
	if maxThreads <= 0 {
		maxThreads = 1
	}
	limiter := make(chan struct{}, maxThreads)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		limiter <- struct{}{}
		go func(pixel int) {
			defer func() { <-limiter }()
			errs <- task(ctx, pixel)
		}(i)
	}
	for i := 0; i < cap(limiter); i++ { // wait for all goroutines to drain
		limiter <- struct{}{}
	}
	var firstErr error
	for i := 0; i < n; i++ {
		if e := <-errs; e != nil && firstErr == nil {
			firstErr = fmt.Errorf("pixel task failed: %w", e)
		}
	}
	return firstErr
}
