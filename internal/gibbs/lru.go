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

package gibbs

import (
	"container/list"
	"strconv"
	"strings"
)

// meanCache is a bounded map keyed by the neighbor-choice vector (the
// pixel being sampled set to Sentinel, -1), evicting least-recently
// used on insert once full -- spec.md 4.6/9. Values are the per-distance
// conditional-mean contribution from the other pixels, independent of
// which sample the pixel itself is scoring.
type meanCache struct {
	capacity int
	ll       *list.List
	items    map[string]*list.Element
	hits     int64
	misses   int64
}

type cacheEntry struct {
	key   string
	value []float64
}

func newMeanCache(capacity int) *meanCache {
	return &meanCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}
}

// choiceKey encodes a neighbor-choice vector into a map key.
func choiceKey(choices []int) string {
	var b strings.Builder
	for i, c := range choices {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(c))
	}
	return b.String()
}

func (c *meanCache) get(key string) ([]float64, bool) {
	if c == nil {
		return nil, false
	}
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).value, true
}

func (c *meanCache) put(key string, value []float64) {
	if c == nil || c.capacity <= 0 {
		return
	}
	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).value = value
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&cacheEntry{key: key, value: value})
	c.items[key] = el
	if c.ll.Len() > c.capacity {
		back := c.ll.Back()
		if back != nil {
			c.ll.Remove(back)
			delete(c.items, back.Value.(*cacheEntry).key)
		}
	}
}

// HitRate returns the fraction of get calls that hit, for diagnostics.
func (c *meanCache) HitRate() float64 {
	if c == nil || c.hits+c.misses == 0 {
		return 0
	}
	return float64(c.hits) / float64(c.hits+c.misses)
}
