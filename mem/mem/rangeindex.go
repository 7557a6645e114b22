package mem

import (
	"fmt"

	"github.com/google/btree"
)

type rangeEntry[T any] struct {
	Range AddrRange
	Value T
}

func lessRangeEntry[T any](a, b rangeEntry[T]) bool {
	if a.Range.Start != b.Range.Start {
		return a.Range.Start < b.Range.Start
	}

	return a.Range.IntlvMatch < b.Range.IntlvMatch
}

// RangeIndex maps non-intersecting address ranges to values and finds the
// value that holds a given address. Ranges whose extents overlap must be
// stripes of the same region: same start, same size, same interleaving bits.
type RangeIndex[T any] struct {
	tree *btree.BTreeG[rangeEntry[T]]
}

// NewRangeIndex creates an empty index.
func NewRangeIndex[T any]() *RangeIndex[T] {
	return &RangeIndex[T]{
		tree: btree.NewG(8, lessRangeEntry[T]),
	}
}

// Len returns the number of ranges in the index.
func (idx *RangeIndex[T]) Len() int {
	return idx.tree.Len()
}

// Insert adds a range. It fails if the range is invalid, intersects a range
// already in the index, or overlaps one that covers a different region.
func (idx *RangeIndex[T]) Insert(r AddrRange, v T) error {
	if err := r.Validate(); err != nil {
		return err
	}

	var conflict *AddrRange

	idx.tree.AscendLessThan(
		rangeEntry[T]{Range: AddrRange{Start: r.End()}},
		func(e rangeEntry[T]) bool {
			if e.Range.Intersects(r) || !sameRegion(e.Range, r) {
				conflict = &e.Range
				return false
			}

			return true
		})

	if conflict != nil {
		return fmt.Errorf("range %s intersects %s", r, conflict)
	}

	idx.tree.ReplaceOrInsert(rangeEntry[T]{Range: r, Value: v})

	return nil
}

func overlaps(a, b AddrRange) bool {
	return a.Start < b.End() && b.Start < a.End()
}

// sameRegion tells if two ranges either do not overlap at all or cover
// exactly the same addresses.
func sameRegion(a, b AddrRange) bool {
	if !overlaps(a, b) {
		return true
	}

	return a.Start == b.Start && a.Size == b.Size
}

// Lookup returns the value whose range holds the address.
func (idx *RangeIndex[T]) Lookup(addr uint64) (v T, r AddrRange, found bool) {
	pivot := rangeEntry[T]{Range: AddrRange{Start: addr, IntlvMatch: ^uint64(0)}}
	groupStart := uint64(0)
	first := true

	idx.tree.DescendLessOrEqual(pivot, func(e rangeEntry[T]) bool {
		if first {
			groupStart = e.Range.Start
			first = false
		}

		if e.Range.Start != groupStart {
			return false
		}

		if e.Range.Contains(addr) {
			v, r, found = e.Value, e.Range, true
			return false
		}

		return true
	})

	return v, r, found
}
