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

// Package workspace provides sync.Pool-backed typed scratch buffers, sized
// by pixel dimension, so that repeated posterior evaluations inside a
// sampler's inner loop don't allocate. Callers own the buffer for the
// duration of one task and return it explicitly; there is no sharing
// discipline beyond that borrow.
package workspace

import "sync"

type sizedPool struct {
	sync.RWMutex
	m map[int]*sync.Pool
}

func newSizedPool() *sizedPool {
	return &sizedPool{m: make(map[int]*sync.Pool)}
}

var poolFloat64 = newSizedPool()
var poolInt32 = newSizedPool()

func (p *sizedPool) get(size int, alloc func() interface{}) *sync.Pool {
	p.RLock()
	pool := p.m[size]
	p.RUnlock()
	if pool != nil {
		return pool
	}
	pool = &sync.Pool{New: alloc}
	p.Lock()
	p.m[size] = pool
	p.Unlock()
	return pool
}

// GetFloat64 retrieves a []float64 of length size from the pool, zeroed on
// first allocation only -- callers must overwrite before relying on content.
func GetFloat64(size int) []float64 {
	pool := poolFloat64.get(size, func() interface{} { return make([]float64, size) })
	return pool.Get().([]float64)
}

// PutFloat64 returns a []float64 to the pool for reuse.
func PutFloat64(arr []float64) {
	if cap(arr) == 0 {
		return
	}
	pool := poolFloat64.get(cap(arr), func() interface{} { return make([]float64, cap(arr)) })
	pool.Put(arr[:cap(arr)])
}

// GetInt32 retrieves a []int32 of length size from the pool.
func GetInt32(size int) []int32 {
	pool := poolInt32.get(size, func() interface{} { return make([]int32, size) })
	return pool.Get().([]int32)
}

// PutInt32 returns a []int32 to the pool for reuse.
func PutInt32(arr []int32) {
	if cap(arr) == 0 {
		return
	}
	pool := poolInt32.get(cap(arr), func() interface{} { return make([]int32, cap(arr)) })
	pool.Put(arr[:cap(arr)])
}

// LineIntegralSlab is one worker task's private scratch: per-star running
// line integrals plus a reusable delta buffer for incremental updates.
// Indexed by task-local id, never by a raw OS thread id (spec.md 9).
type LineIntegralSlab struct {
	LineInt []float64 // per-star line integral, length n_stars
	Delta   []float64 // scratch for incremental updates, length n_stars
}

// NewLineIntegralSlab borrows pooled buffers sized for nStars.
func NewLineIntegralSlab(nStars int) *LineIntegralSlab {
	return &LineIntegralSlab{
		LineInt: GetFloat64(nStars),
		Delta:   GetFloat64(nStars),
	}
}

// Release returns the slab's buffers to the pool.
func (s *LineIntegralSlab) Release() {
	PutFloat64(s.LineInt)
	PutFloat64(s.Delta)
	s.LineInt, s.Delta = nil, nil
}
