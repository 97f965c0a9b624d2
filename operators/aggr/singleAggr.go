package aggr

import (
	"database/sql"

	"github.com/cockroachdb/errors"
)

var (
	ErrUnsupportedAggrFunc = func(aggr int) error {
		return errors.Newf("%d is an unsupported aggregate function", aggr)
	}
)

// AggrFunc represents the type of aggregation function to be performed.
type AggrFunc int

const (
	Sum AggrFunc = iota
)

var (
	_ = (Accumulator)(&SumAggrAccumulator{})
)

// Accumulator only ever sees non-null values, callers skip nulls.
type Accumulator interface {
	Update(value float64)
	Finalize() float64
}

func NewAccumulator(fn AggrFunc) (Accumulator, error) {
	switch fn {
	case Sum:
		return NewSumAggr(), nil
	default:
		return nil, ErrUnsupportedAggrFunc(int(fn))
	}
}

func NewSumAggr() Accumulator {
	return &SumAggrAccumulator{}
}

type SumAggrAccumulator struct {
	summation float64
}

func (s *SumAggrAccumulator) Update(value float64) {
	s.summation += value
}
func (s *SumAggrAccumulator) Finalize() float64 { return s.summation }

// IntSum adds integers exactly. The zero value is ready to use and a sum over
// nothing but nulls finalizes to null.
type IntSum struct {
	total int64
	seen  int
}

func (s *IntSum) Update(v sql.NullInt64) {
	if !v.Valid {
		return
	}
	s.seen++
	s.total += v.Int64
}

func (s *IntSum) Finalize() sql.NullInt64 {
	if s.seen == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: s.total, Valid: true}
}

// NullableAccumulator pairs an accumulator with a count of the values it saw,
// so an aggregate over nothing but nulls finalizes to null like SQL does.
type NullableAccumulator struct {
	inner Accumulator
	seen  int
}

func NewNullableAccumulator(fn AggrFunc) (*NullableAccumulator, error) {
	inner, err := NewAccumulator(fn)
	if err != nil {
		return nil, err
	}
	return &NullableAccumulator{inner: inner}, nil
}

func (n *NullableAccumulator) Update(v sql.NullFloat64) {
	if !v.Valid {
		return
	}
	n.seen++
	n.inner.Update(v.Float64)
}

func (n *NullableAccumulator) Seen() int { return n.seen }

func (n *NullableAccumulator) Finalize() sql.NullFloat64 {
	if n.seen == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: n.inner.Finalize(), Valid: true}
}

func aggrToString(t int) string {
	switch AggrFunc(t) {
	case Sum:
		return "SUM"
	default:
		return "UNKNOWN_AGGREGATE_FUNCTION"
	}
}

func (a AggrFunc) String() string { return aggrToString(int(a)) }
