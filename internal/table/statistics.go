package table

import (
	"fmt"
	"math"
	"strings"

	"tupledb/internal/encoding"
	"tupledb/internal/expression"
	"tupledb/internal/transaction"
	"tupledb/internal/types"
)

// varcharPrefixLen bounds how much of a varchar min/max the statistics
// keep; a short prefix is enough for range-cut estimates.
const varcharPrefixLen = 8

// ColumnStats summarizes one column's distribution.
type ColumnStats struct {
	Type     types.ValueType
	Count    int
	Distinct int
	Min      types.Value
	Max      types.Value
}

// EstimateRange estimates how many rows fall into [begin, end]. Null bounds
// clamp to the observed min/max. The estimate assumes a uniform value
// distribution; varchar ranges use the stored prefixes only.
func (cs ColumnStats) EstimateRange(begin, end types.Value) float64 {
	if cs.Count == 0 {
		return 1
	}
	switch cs.Type {
	case types.TypeInt64:
		lo, hi := cs.Min.Int, cs.Max.Int
		from, to := lo, hi
		if !begin.IsNull() {
			from = begin.Int
		}
		if !end.IsNull() {
			to = end.Int
		}
		if to < from {
			from, to = to, from
		}
		from = max64(from, lo)
		to = min64(to, hi)
		if to < from {
			return 0
		}
		width := hi - lo + 1
		if width <= 0 {
			return float64(cs.Count)
		}
		est := float64(cs.Count) * float64(to-from+1) / float64(width)
		return math.Max(est, 1)
	case types.TypeDouble:
		lo, hi := cs.Min.Dbl, cs.Max.Dbl
		from, to := lo, hi
		if !begin.IsNull() {
			from = begin.Dbl
		}
		if !end.IsNull() {
			to = end.Dbl
		}
		if to < from {
			from, to = to, from
		}
		from = math.Max(from, lo)
		to = math.Min(to, hi)
		if to < from {
			return 0
		}
		if hi == lo {
			return float64(cs.Count)
		}
		est := float64(cs.Count) * (to - from) / (hi - lo)
		return math.Max(est, 1)
	case types.TypeVarchar:
		from, to := cs.Min.Str, cs.Max.Str
		if !begin.IsNull() {
			from = prefix(begin.Str)
		}
		if !end.IsNull() {
			to = prefix(end.Str)
		}
		if to < from {
			from, to = to, from
		}
		if to < cs.Min.Str || cs.Max.Str < from {
			return 1
		}
		if from == to {
			if cs.Distinct > 0 {
				return math.Max(float64(cs.Count)/float64(cs.Distinct), 1)
			}
			return 1
		}
		// prefix statistics cannot cut varchar ranges any finer
		return 2
	}
	return 1
}

func prefix(s string) string {
	if len(s) > varcharPrefixLen {
		return s[:varcharPrefixLen]
	}
	return s
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// TableStatistics is the read-only snapshot the planner costs plans with.
type TableStatistics struct {
	RowCount int
	Columns  []ColumnStats
}

// NewTableStatistics returns empty statistics shaped for the schema.
func NewTableStatistics(sc *types.Schema) *TableStatistics {
	cols := make([]ColumnStats, sc.ColumnCount())
	for i := range cols {
		cols[i].Type = sc.Column(i).Type
	}
	return &TableStatistics{Columns: cols}
}

// Update rebuilds the statistics from a full scan of the table.
func (ts *TableStatistics) Update(txn *transaction.Transaction, t *Table) error {
	sc := t.Schema()
	counters := make([]map[string]struct{}, sc.ColumnCount())
	cols := make([]ColumnStats, sc.ColumnCount())
	for i := range cols {
		cols[i].Type = sc.Column(i).Type
		counters[i] = make(map[string]struct{})
	}
	rows := 0
	it := t.BeginFullScan(txn)
	for it.Valid() {
		row := it.Row()
		for i := 0; i < sc.ColumnCount() && i < row.Len(); i++ {
			v := row.Get(i)
			if v.IsNull() {
				continue
			}
			cs := &cols[i]
			if cs.Count == 0 {
				cs.Min, cs.Max = clampValue(v), clampValue(v)
			} else {
				if cmp, err := clampValue(v).Compare(cs.Min); err == nil && cmp < 0 {
					cs.Min = clampValue(v)
				}
				if cmp, err := clampValue(v).Compare(cs.Max); err == nil && cmp > 0 {
					cs.Max = clampValue(v)
				}
			}
			cs.Count++
			counters[i][string(v.EncodeMemcomparable(nil))] = struct{}{}
		}
		rows++
		it.Next()
	}
	if err := it.Err(); err != nil {
		return err
	}
	for i := range cols {
		cols[i].Distinct = len(counters[i])
	}
	ts.RowCount = rows
	ts.Columns = cols
	return nil
}

// clampValue shortens varchar values to the stored prefix length.
func clampValue(v types.Value) types.Value {
	if v.Type == types.TypeVarchar {
		return types.NewVarchar(prefix(v.Str))
	}
	return v
}

// ReductionFactor estimates the inverse selectivity of a predicate over the
// schema: the predicate keeps roughly one row in every N. Returns 1 (no
// reduction) for shapes the model does not understand.
//
// OR is approximated as the sum of the branch factors; with disjunctive
// predicates the join order chosen from it degrades accordingly.
func (ts *TableStatistics) ReductionFactor(sc *types.Schema, pred expression.Expression) float64 {
	b, ok := pred.(*expression.Binary)
	if !ok {
		return 1
	}
	switch b.Op {
	case expression.OpAnd:
		return ts.ReductionFactor(sc, b.Left) * ts.ReductionFactor(sc, b.Right)
	case expression.OpOr:
		return ts.ReductionFactor(sc, b.Left) + ts.ReductionFactor(sc, b.Right)
	case expression.OpEq:
		lc, lIsCol := b.Left.(*expression.ColumnRef)
		rc, rIsCol := b.Right.(*expression.ColumnRef)
		lk, lIsConst := b.Left.(*expression.Constant)
		rk, rIsConst := b.Right.(*expression.Constant)
		switch {
		case lIsCol && rIsCol:
			lOff, lErr := sc.Offset(lc.Name)
			rOff, rErr := sc.Offset(rc.Name)
			if lErr != nil || rErr != nil || lOff >= len(ts.Columns) || rOff >= len(ts.Columns) {
				return 1
			}
			return math.Min(float64(ts.Columns[lOff].Distinct), float64(ts.Columns[rOff].Distinct))
		case lIsCol && rIsConst:
			return ts.distinctOf(sc, lc.Name)
		case rIsCol && lIsConst:
			return ts.distinctOf(sc, rc.Name)
		case lIsConst && rIsConst:
			if lk.Value.Equal(rk.Value) {
				return 1
			}
			return math.Inf(1)
		}
	}
	return 1
}

func (ts *TableStatistics) distinctOf(sc *types.Schema, cn types.ColumnName) float64 {
	off, err := sc.Offset(cn)
	if err != nil || off >= len(ts.Columns) {
		return 1
	}
	d := float64(ts.Columns[off].Distinct)
	if d < 1 {
		return 1
	}
	return d
}

// Encode serializes the statistics for catalog storage.
func (ts *TableStatistics) Encode(e *encoding.Encoder) {
	e.Uint64(uint64(ts.RowCount))
	e.Uint64(uint64(len(ts.Columns)))
	for _, c := range ts.Columns {
		e.Uint64(uint64(c.Type))
		e.Uint64(uint64(c.Count))
		e.Uint64(uint64(c.Distinct))
		e.Value(c.Min)
		e.Value(c.Max)
	}
}

// DecodeStatistics reads statistics back from catalog storage.
func DecodeStatistics(d *encoding.Decoder) (*TableStatistics, error) {
	rows, err := d.Uint64()
	if err != nil {
		return nil, err
	}
	n, err := d.Uint64()
	if err != nil {
		return nil, err
	}
	ts := &TableStatistics{RowCount: int(rows), Columns: make([]ColumnStats, 0, n)}
	for i := uint64(0); i < n; i++ {
		var c ColumnStats
		t, err := d.Uint64()
		if err != nil {
			return nil, err
		}
		c.Type = types.ValueType(t)
		cnt, err := d.Uint64()
		if err != nil {
			return nil, err
		}
		c.Count = int(cnt)
		dst, err := d.Uint64()
		if err != nil {
			return nil, err
		}
		c.Distinct = int(dst)
		if c.Min, err = d.Value(); err != nil {
			return nil, err
		}
		if c.Max, err = d.Value(); err != nil {
			return nil, err
		}
		ts.Columns = append(ts.Columns, c)
	}
	return ts, nil
}

// String renders the statistics for debug output.
func (ts *TableStatistics) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "rows: %d\n", ts.RowCount)
	for i, c := range ts.Columns {
		fmt.Fprintf(&b, "  col %d: count=%d distinct=%d min=%s max=%s\n",
			i, c.Count, c.Distinct, c.Min, c.Max)
	}
	return b.String()
}
