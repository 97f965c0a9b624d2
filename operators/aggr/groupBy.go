package aggr

import (
	"database/sql"
	"fmt"
	"strings"
)

/*
rules for group by:
1.Rows whose group key is null belong to no group at all
2.You can group by multiple columns - use a comparable struct as the key
3.Groups come back in first-seen order so output is deterministic before any sort
*/

// Measure is one aggregate computed per group over a row-indexed value.
type Measure struct {
	Func  AggrFunc
	Value func(row int) sql.NullFloat64
}

func NewMeasure(fn AggrFunc, value func(row int) sql.NullFloat64) Measure {
	return Measure{Func: fn, Value: value}
}

// place all unique keys into a hash table, each key gets its own accumulators
type Groups[K comparable] struct {
	Keys     []K
	measures []Measure
	accs     [][]*NullableAccumulator // group -> measure
	index    map[K]int
}

// GroupBy walks rows 0..n-1 once. key reports false for a null key.
func GroupBy[K comparable](n int, key func(row int) (K, bool), measures ...Measure) (*Groups[K], error) {
	g := &Groups[K]{
		measures: measures,
		index:    make(map[K]int),
	}
	for row := 0; row < n; row++ {
		k, ok := key(row)
		if !ok {
			continue
		}
		gi, found := g.index[k]
		if !found {
			accs, err := g.newAccumulators()
			if err != nil {
				return nil, err
			}
			gi = len(g.Keys)
			g.index[k] = gi
			g.Keys = append(g.Keys, k)
			g.accs = append(g.accs, accs)
		}
		for mi, m := range g.measures {
			g.accs[gi][mi].Update(m.Value(row))
		}
	}
	return g, nil
}

// GroupSum is GroupBy with a single SUM measure.
func GroupSum[K comparable](n int, key func(row int) (K, bool), value func(row int) sql.NullFloat64) *Groups[K] {
	// Sum is always supported, the error path is unreachable
	g, _ := GroupBy(n, key, NewMeasure(Sum, value))
	return g
}

func (g *Groups[K]) newAccumulators() ([]*NullableAccumulator, error) {
	accs := make([]*NullableAccumulator, len(g.measures))
	for i, m := range g.measures {
		acc, err := NewNullableAccumulator(m.Func)
		if err != nil {
			return nil, err
		}
		accs[i] = acc
	}
	return accs, nil
}

func (g *Groups[K]) Len() int {
	return len(g.Keys)
}

// Result is the finalized value of measure mi for group gi.
func (g *Groups[K]) Result(gi, mi int) sql.NullFloat64 {
	return g.accs[gi][mi].Finalize()
}

// Sum is Result for the first measure, what GroupSum builds.
func (g *Groups[K]) Sum(gi int) sql.NullFloat64 {
	return g.Result(gi, 0)
}

// Seen is how many non-null values measure mi took in for group gi.
func (g *Groups[K]) Seen(gi, mi int) int {
	return g.accs[gi][mi].Seen()
}

// Lookup finds the group index of k.
func (g *Groups[K]) Lookup(k K) (int, bool) {
	gi, ok := g.index[k]
	return gi, ok
}

func (g *Groups[K]) String() string {
	var sb strings.Builder
	for gi, k := range g.Keys {
		fmt.Fprintf(&sb, "%v:", k)
		for mi, m := range g.measures {
			r := g.Result(gi, mi)
			if r.Valid {
				fmt.Fprintf(&sb, " %s=%v", m.Func, r.Float64)
			} else {
				fmt.Fprintf(&sb, " %s=NULL", m.Func)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
