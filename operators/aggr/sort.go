package aggr

import (
	"cmp"
	"database/sql"
	"sort"
)

// order by col asc, col 2 desc .... etc
type SortKey struct {
	compare   func(i, j int) int // only called when both sides are non-null
	isNull    func(i int) bool
	Ascending bool // by default false -- DESC (highest values first -> smaller values)
	NullFirst bool // by default false -- nulls last
}

func sortOptions(options []bool) (asc, nullFirst bool) {
	switch len(options) {
	case 2:
		asc = options[0]
		nullFirst = options[1]
	case 1:
		asc = options[0]
	}
	return asc, nullFirst
}

func NewFloatSortKey(values []sql.NullFloat64, options ...bool) SortKey {
	asc, nullF := sortOptions(options)
	return SortKey{
		compare:   func(i, j int) int { return compareFloat(values[i].Float64, values[j].Float64) },
		isNull:    func(i int) bool { return !values[i].Valid },
		Ascending: asc,
		NullFirst: nullF,
	}
}

func NewIntSortKey(values []int64, options ...bool) SortKey {
	asc, nullF := sortOptions(options)
	return SortKey{
		compare:   func(i, j int) int { return compareNumeric(values[i], values[j]) },
		isNull:    func(int) bool { return false },
		Ascending: asc,
		NullFirst: nullF,
	}
}

func NewStringSortKey(values []string, options ...bool) SortKey {
	asc, nullF := sortOptions(options)
	return SortKey{
		compare:   func(i, j int) int { return cmp.Compare(values[i], values[j]) },
		isNull:    func(int) bool { return false },
		Ascending: asc,
		NullFirst: nullF,
	}
}

func NewTimeSortKey(values []sql.NullTime, options ...bool) SortKey {
	asc, nullF := sortOptions(options)
	return SortKey{
		compare:   func(i, j int) int { return values[i].Time.Compare(values[j].Time) },
		isNull:    func(i int) bool { return !values[i].Valid },
		Ascending: asc,
		NullFirst: nullF,
	}
}

// StableSort returns the permutation of 0..n-1 ordered by keys. Rows equal on
// every key keep their input order.
func StableSort(n int, keys ...SortKey) []int {
	idVector := make([]int, n)
	for i := range idVector {
		idVector[i] = i
	}
	sortIndexVector(idVector, keys)
	return idVector
}

func sortIndexVector(idVec []int, sortKeys []SortKey) {
	sort.SliceStable(idVec, func(a, b int) bool {
		i := idVec[a]
		j := idVec[b]

		// lexicographic: go through each sort key
		for _, sk := range sortKeys {
			c := compareWithNulls(sk, i, j)
			if c == 0 {
				continue // equal -> move to next key
			}
			return c < 0
		}
		// completely equal for all keys
		return false
	})
}

// compareWithNulls folds direction and null placement into one result where
// negative means i sorts first.
func compareWithNulls(sk SortKey, i, j int) int {
	iNull, jNull := sk.isNull(i), sk.isNull(j)
	switch {
	case iNull && jNull:
		return 0
	case iNull:
		if sk.NullFirst {
			return -1
		}
		return 1
	case jNull:
		if sk.NullFirst {
			return 1
		}
		return -1
	}
	c := sk.compare(i, j)
	if !sk.Ascending {
		c = -c
	}
	return c
}

func compareNumeric[T int64 | int32 | int16 | int8 | uint64 | uint32 | uint16 | uint8](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat[T float32 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Take reorders values by idx, the output of StableSort.
func Take[T any](values []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
