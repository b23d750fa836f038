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

package numeric

// QSelectFloat64 selects the kth lowest element (1-indexed) from a, partially
// reordering it in place. a must not contain NaN.
func QSelectFloat64(a []float64, k int) float64 {
	left, right := 0, len(a)-1
	for left < right {
		mid := (left + right) >> 1
		pivot := a[mid]
		l, r := left-1, right+1
		for {
			for {
				l++
				if a[l] >= pivot {
					break
				}
			}
			for {
				r--
				if a[r] <= pivot {
					break
				}
			}
			if l >= r {
				break
			}
			a[l], a[r] = a[r], a[l]
		}
		if k-1 <= r {
			right = r
		} else {
			left = r + 1
		}
	}
	return a[k-1]
}

// QSelectMedianFloat64 selects the median of a, partially reordering it.
func QSelectMedianFloat64(a []float64) float64 {
	return QSelectFloat64(a, (len(a)>>1)+1)
}
