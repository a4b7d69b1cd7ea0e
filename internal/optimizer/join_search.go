package optimizer

import (
	"tupledb/internal/expression"
	"tupledb/internal/plan"
	"tupledb/internal/table"
	"tupledb/internal/types"
)

// bestJoin builds every candidate join between two planned subsets and
// keeps the cheapest. Every conjunct that references exactly this pair is
// enforced by the chosen candidate, either as the join key or as a
// selection on top.
func (o *Optimizer) bestJoin(left, right costedPlan, entries []*tableEntry, conjuncts []expression.Expression) (costedPlan, error) {
	joinedSchema := left.plan.Schema().Concat(right.plan.Schema())

	var crossIdx []int
	for i, c := range conjuncts {
		if left.applied[i] || right.applied[i] {
			continue
		}
		if !expression.TouchesOnly(c, joinedSchema) {
			continue
		}
		if !expression.References(c, left.plan.Schema()) || !expression.References(c, right.plan.Schema()) {
			continue
		}
		crossIdx = append(crossIdx, i)
	}

	stats := left.plan.Stats()
	if stats == nil {
		stats = right.plan.Stats()
	}

	var candidates []plan.Plan
	for _, i := range crossIdx {
		lOff, rOff, ok := equiColumns(conjuncts[i], left.plan.Schema(), right.plan.Schema())
		if !ok {
			continue
		}
		residual := residualOf(conjuncts, crossIdx, i)
		candidates = appendWrapped(candidates,
			plan.NewHashProduct(left.plan, []int{lOff}, right.plan, []int{rOff}), residual, stats)
		candidates = appendWrapped(candidates,
			plan.NewHashProduct(right.plan, []int{rOff}, left.plan, []int{lOff}), residual, stats)
		if o.cfg.IndexJoinEnabled {
			if ij := indexJoinCandidate(left, right, lOff, rOff, entries); ij != nil {
				candidates = appendWrapped(candidates, ij, residual, stats)
			}
			if ij := indexJoinCandidate(right, left, rOff, lOff, entries); ij != nil {
				candidates = appendWrapped(candidates, ij, residual, stats)
			}
		}
	}

	if len(candidates) == 0 {
		residual := residualOf(conjuncts, crossIdx, -1)
		candidates = appendWrapped(candidates,
			plan.NewCrossProduct(left.plan, right.plan), residual, stats)
		candidates = appendWrapped(candidates,
			plan.NewCrossProduct(right.plan, left.plan), residual, stats)
	}

	bestPlan := candidates[0]
	for _, cand := range candidates[1:] {
		if cand.AccessRowCount() < bestPlan.AccessRowCount() {
			bestPlan = cand
		}
	}

	applied := make(map[int]bool, len(left.applied)+len(right.applied)+len(crossIdx))
	for i := range left.applied {
		applied[i] = true
	}
	for i := range right.applied {
		applied[i] = true
	}
	for _, i := range crossIdx {
		applied[i] = true
	}
	return costedPlan{plan: bestPlan, applied: applied}, nil
}

// residualOf rebuilds the conjunction of the pair's predicates minus the
// one used as a join key (pass used = -1 to keep all).
func residualOf(conjuncts []expression.Expression, crossIdx []int, used int) expression.Expression {
	var rest []expression.Expression
	for _, i := range crossIdx {
		if i != used {
			rest = append(rest, conjuncts[i])
		}
	}
	return expression.JoinConjunction(rest)
}

func appendWrapped(dst []plan.Plan, p plan.Plan, residual expression.Expression, stats *table.TableStatistics) []plan.Plan {
	if residual != nil {
		p = plan.NewSelection(p, residual, stats)
	}
	return append(dst, p)
}

// equiColumns recognizes a bare column equality L.a = R.b across the two
// schemas, in either spelling, and returns the column offsets per side.
func equiColumns(pred expression.Expression, left, right *types.Schema) (int, int, bool) {
	b, ok := pred.(*expression.Binary)
	if !ok || b.Op != expression.OpEq {
		return 0, 0, false
	}
	lc, ok := b.Left.(*expression.ColumnRef)
	if !ok {
		return 0, 0, false
	}
	rc, ok := b.Right.(*expression.ColumnRef)
	if !ok {
		return 0, 0, false
	}
	if lOff, err := left.Offset(lc.Name); err == nil {
		if rOff, err := right.Offset(rc.Name); err == nil {
			return lOff, rOff, true
		}
	}
	if lOff, err := left.Offset(rc.Name); err == nil {
		if rOff, err := right.Offset(lc.Name); err == nil {
			return lOff, rOff, true
		}
	}
	return 0, 0, false
}

// indexJoinCandidate builds an index join probing the right side, when the
// right side is a bare unfiltered table scan with an index keyed on the
// join column.
func indexJoinCandidate(left, right costedPlan, lOff, rOff int, entries []*tableEntry) plan.Plan {
	src := right.plan.ScanSource()
	if src == nil {
		return nil
	}
	// the executor emits whole heap rows from the right table, so the right
	// plan must expose the unpruned schema and carry no residual filter
	if right.plan.Schema().ColumnCount() != src.Schema().ColumnCount() {
		return nil
	}
	for _, e := range entries {
		if e.tbl == src && len(e.preds) > 0 {
			return nil
		}
	}
	baseOff, err := src.Schema().Offset(right.plan.Schema().Column(rOff).Name)
	if err != nil {
		return nil
	}
	for _, idx := range src.Indexes() {
		if len(idx.Sc.Key) == 1 && idx.Sc.Key[0] == baseOff {
			return plan.NewIndexProduct(left.plan, []int{lOff}, right.plan, []int{rOff}, idx)
		}
	}
	return nil
}
