package optimizer

import (
	"tupledb/internal/expression"
	"tupledb/internal/index"
	"tupledb/internal/plan"
	"tupledb/internal/types"
)

// scanRange is the key range a table's local predicates pin down on one
// column. Null bounds are unbounded.
type scanRange struct {
	col   types.ColumnName
	begin types.Value
	end   types.Value
}

// tablePlan builds the best single-table subplan: the cheapest access
// method under the table's local predicates, then a projection down to the
// demanded columns.
func (o *Optimizer) tablePlan(entry *tableEntry, conjuncts []expression.Expression, demand []types.ColumnName) (plan.Plan, error) {
	sc := entry.tbl.Schema()
	var local []expression.Expression
	for _, i := range entry.preds {
		local = append(local, conjuncts[i])
	}
	predicate := expression.JoinConjunction(local)

	var p plan.Plan = plan.NewFullScan(entry.tbl, entry.stats)
	if predicate != nil {
		p = plan.NewSelection(p, predicate, entry.stats)
	}

	if o.cfg.IndexScanEnabled && predicate != nil {
		if indexed := o.indexPath(entry, local, demand); indexed != nil {
			// an index path enforces the whole local predicate as its
			// residual filter, so the two candidates are interchangeable
			if indexed.AccessRowCount() < p.AccessRowCount() {
				p = indexed
			}
		}
	}

	project := demandedColumns(sc, demand)
	if len(project) > 0 && len(project) < sc.ColumnCount() && p.ScanSource() != nil {
		if _, isIndexOnly := p.(*plan.IndexOnlyScanPlan); !isIndexOnly {
			var err error
			p, err = plan.NewProjection(p, project)
			if err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

// indexPath looks for a local predicate shaped like col = const or
// col ∈ [a, b] with an index keyed on col, and returns the matching
// index-scan plan (index-only when the demanded columns are covered).
func (o *Optimizer) indexPath(entry *tableEntry, local []expression.Expression, demand []types.ColumnName) plan.Plan {
	sc := entry.tbl.Schema()
	r := extractRange(local, sc)
	if r == nil {
		return nil
	}
	off, err := sc.Offset(r.col)
	if err != nil {
		return nil
	}
	for _, idx := range entry.tbl.Indexes() {
		if idx.Sc.Key[0] != off {
			continue
		}
		predicate := expression.JoinConjunction(local)
		if covered(idx, sc, demandedColumns(sc, demand)) {
			return plan.NewIndexOnlyScan(entry.tbl, idx, entry.stats, r.begin, r.end, true, predicate)
		}
		return plan.NewIndexScan(entry.tbl, idx, entry.stats, r.begin, r.end, true, predicate)
	}
	return nil
}

// extractRange scans the local conjuncts for bounds on a single column:
// an equality pins both ends; >= and <= tighten one end each. The first
// column that gets any bound wins.
func extractRange(local []expression.Expression, sc *types.Schema) *scanRange {
	var r *scanRange
	for _, pred := range local {
		b, ok := pred.(*expression.Binary)
		if !ok {
			continue
		}
		col, val, op, ok := columnConstShape(b)
		if !ok {
			continue
		}
		if !sc.HasColumn(col.Name) {
			continue
		}
		if r == nil {
			r = &scanRange{col: col.Name, begin: types.Null(), end: types.Null()}
		} else if r.col != col.Name {
			continue
		}
		switch op {
		case expression.OpEq:
			r.begin, r.end = val, val
			return r
		case expression.OpGe:
			if r.begin.IsNull() {
				r.begin = val
			}
		case expression.OpLe:
			if r.end.IsNull() {
				r.end = val
			}
		}
	}
	if r != nil && r.begin.IsNull() && r.end.IsNull() {
		return nil
	}
	return r
}

// columnConstShape normalizes a comparison into (column, constant, op),
// mirroring the operator when the constant sits on the left.
func columnConstShape(b *expression.Binary) (*expression.ColumnRef, types.Value, expression.BinaryOp, bool) {
	if col, ok := b.Left.(*expression.ColumnRef); ok {
		if k, ok2 := b.Right.(*expression.Constant); ok2 {
			switch b.Op {
			case expression.OpEq, expression.OpGe, expression.OpLe:
				return col, k.Value, b.Op, true
			}
		}
		return nil, types.Null(), 0, false
	}
	if k, ok := b.Left.(*expression.Constant); ok {
		if col, ok2 := b.Right.(*expression.ColumnRef); ok2 {
			switch b.Op {
			case expression.OpEq:
				return col, k.Value, expression.OpEq, true
			case expression.OpGe: // k >= col means col <= k
				return col, k.Value, expression.OpLe, true
			case expression.OpLe:
				return col, k.Value, expression.OpGe, true
			}
		}
	}
	return nil, types.Null(), 0, false
}

// covered reports whether every demanded column of the table lives in the
// index's key or include set.
func covered(idx *index.Index, sc *types.Schema, demanded []expression.NamedExpression) bool {
	inIndex := make(map[int]struct{}, len(idx.Sc.Key)+len(idx.Sc.Include))
	for _, k := range idx.Sc.Key {
		inIndex[k] = struct{}{}
	}
	for _, k := range idx.Sc.Include {
		inIndex[k] = struct{}{}
	}
	if len(demanded) == 0 {
		return false
	}
	for _, ne := range demanded {
		cr, ok := ne.Expr.(*expression.ColumnRef)
		if !ok {
			return false
		}
		off, err := sc.Offset(cr.Name)
		if err != nil {
			return false
		}
		if _, ok := inIndex[off]; !ok {
			return false
		}
	}
	return true
}

// demandedColumns projects the demand set onto one table's schema, in
// schema column order.
func demandedColumns(sc *types.Schema, demand []types.ColumnName) []expression.NamedExpression {
	want := make(map[int]struct{})
	for _, cn := range demand {
		if off, err := sc.Offset(cn); err == nil {
			want[off] = struct{}{}
		}
	}
	var out []expression.NamedExpression
	for i := 0; i < sc.ColumnCount(); i++ {
		if _, ok := want[i]; ok {
			out = append(out, expression.NamedExpression{
				Expr: &expression.ColumnRef{Name: sc.Column(i).Name},
			})
		}
	}
	return out
}
