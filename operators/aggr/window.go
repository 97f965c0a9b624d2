package aggr

import (
	"database/sql"
)

// window functions over rows that are already in the wanted order

// RunningSum is SUM(v) OVER (ORDER BY ... ROWS UNBOUNDED PRECEDING): every row
// gets its own total, ties are not merged. A null value leaves the total where
// it was, so null counts as 0 and every total is valid.
func RunningSum(values []sql.NullFloat64) []sql.NullFloat64 {
	out := make([]sql.NullFloat64, len(values))
	acc := NewSumAggr()
	for i, v := range values {
		if v.Valid {
			acc.Update(v.Float64)
		}
		out[i] = sql.NullFloat64{Float64: acc.Finalize(), Valid: true}
	}
	return out
}

// LagByOne is LAG(v, 1): the first row has no previous value.
func LagByOne(values []sql.NullFloat64) []sql.NullFloat64 {
	out := make([]sql.NullFloat64, len(values))
	for i := 1; i < len(values); i++ {
		out[i] = values[i-1]
	}
	return out
}

// Growth is (current - previous) / previous, null when either side is null or
// previous is zero.
func Growth(current, previous sql.NullFloat64) sql.NullFloat64 {
	if !current.Valid || !previous.Valid || previous.Float64 == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: (current.Float64 - previous.Float64) / previous.Float64, Valid: true}
}

// RankWithinPartition is RANK() OVER (PARTITION BY p ORDER BY v). Equal values
// share a rank and the next distinct value skips ahead, so [100,100,90] ranks
// [1,1,3]. Nulls order last in either direction. ranks[i] belongs to row i.
func RankWithinPartition[K comparable](partitions []K, values []sql.NullFloat64, descending bool) []int64 {
	ranks := make([]int64, len(values))

	members := make(map[K][]int)
	order := make([]K, 0)
	for row, p := range partitions {
		if _, ok := members[p]; !ok {
			order = append(order, p)
		}
		members[p] = append(members[p], row)
	}

	for _, p := range order {
		rows := members[p]
		local := make([]sql.NullFloat64, len(rows))
		for i, row := range rows {
			local[i] = values[row]
		}
		sorted := StableSort(len(rows), NewFloatSortKey(local, !descending))

		var prev sql.NullFloat64
		var rank int64
		for pos, li := range sorted {
			v := local[li]
			if pos == 0 || !sameValue(prev, v) {
				rank = int64(pos) + 1
			}
			ranks[rows[li]] = rank
			prev = v
		}
	}
	return ranks
}

func sameValue(a, b sql.NullFloat64) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Float64 == b.Float64
}
