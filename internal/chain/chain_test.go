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

package chain

import "testing"

func TestStoreAppendAndCapacity(t *testing.T) {
	s := New(2)
	if err := s.Append(Point{LogL: 1}); err != nil {
		t.Fatalf("Append 1: %v", err)
	}
	if err := s.Append(Point{LogL: 2}); err != nil {
		t.Fatalf("Append 2: %v", err)
	}
	if err := s.Append(Point{LogL: 3}); err == nil {
		t.Errorf("expected error appending beyond capacity")
	}
	if s.Len() != 2 {
		t.Errorf("Len()=%d, want 2", s.Len())
	}
}

func TestNestedKeyStoreLookupFallsBackToAncestor(t *testing.T) {
	n := NewNestedKeyStore(4)
	root := n.StoreFor(Key{3})
	root.Append(Point{LogL: 9})

	leaf := n.Lookup(Key{3, 0, 2, 1})
	if leaf == nil || leaf.Len() != 1 {
		t.Fatalf("expected lookup to fall back to root store with 1 point, got %v", leaf)
	}

	sub := n.StoreFor(Key{3, 0})
	sub.Append(Point{LogL: 5})
	closer := n.Lookup(Key{3, 0, 2, 1})
	if closer.Len() != 1 || closer.At(0).LogL != 5 {
		t.Fatalf("expected lookup to resolve to deeper store once populated, got %+v", closer)
	}
}

func TestNestedKeyStoreLookupUnpopulatedReturnsNil(t *testing.T) {
	n := NewNestedKeyStore(4)
	if s := n.Lookup(Key{5, 1, 1}); s != nil {
		t.Errorf("expected nil for never-populated key, got %v", s)
	}
}
