// Package optimizer turns a logical QueryData into the cheapest plan it can
// find: single-table predicates are pushed below the joins, the access
// method per table is chosen from the available indexes, and join order is
// searched bottom-up with dynamic programming over table subsets.
package optimizer

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"tupledb/internal/config"
	"tupledb/internal/database"
	"tupledb/internal/expression"
	"tupledb/internal/plan"
	"tupledb/internal/table"
	"tupledb/internal/types"
)

// Optimizer builds plans under one configuration.
type Optimizer struct {
	cfg    config.OptimizerConfig
	logger *zap.Logger
}

// New returns an optimizer. logger may be nil.
func New(cfg config.OptimizerConfig, logger *zap.Logger) *Optimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Optimizer{cfg: cfg, logger: logger}
}

// Default returns an optimizer with every strategy enabled and no logging.
func Default() *Optimizer {
	return New(config.Default().Optimizer, nil)
}

// costedPlan tracks a candidate plan and which where-conjuncts it already
// enforces.
type costedPlan struct {
	plan    plan.Plan
	applied map[int]bool
}

// tableEntry carries the per-table inputs of planning.
type tableEntry struct {
	name  string
	tbl   *table.Table
	stats *table.TableStatistics
	preds []int // conjunct indices fully local to this table
}

// Optimize plans a query. The same inputs always produce a structurally
// identical plan: every enumeration below walks deterministically ordered
// slices, and cost ties keep the earlier candidate.
func (o *Optimizer) Optimize(q database.QueryData, ctx *database.TransactionContext) (plan.Plan, error) {
	if len(q.From) == 0 {
		return nil, types.ErrInvalidQuery.New("empty FROM list")
	}

	conjuncts := expression.SplitConjunction(q.Where)

	// Column demand above the scans: everything the predicate and the
	// select list reference.
	var demand []types.ColumnName
	for _, c := range conjuncts {
		demand = append(demand, expression.ReferencedColumns(c)...)
	}
	for _, ne := range q.Select {
		demand = append(demand, expression.ReferencedColumns(ne.Expr)...)
	}

	entries := make([]*tableEntry, 0, len(q.From))
	best := make(map[string]costedPlan)
	var keys []string
	for _, name := range q.From {
		tbl, err := ctx.DB.GetTable(name)
		if err != nil {
			return nil, err
		}
		stats, err := ctx.DB.GetStatistics(name)
		if err != nil {
			return nil, err
		}
		entry := &tableEntry{name: name, tbl: tbl, stats: stats}
		for i, c := range conjuncts {
			if expression.TouchesOnly(c, tbl.Schema()) && expression.References(c, tbl.Schema()) {
				entry.preds = append(entry.preds, i)
			}
		}
		entries = append(entries, entry)

		p, err := o.tablePlan(entry, conjuncts, demand)
		if err != nil {
			return nil, err
		}
		applied := make(map[int]bool)
		for _, i := range entry.preds {
			applied[i] = true
		}
		key := subsetKey([]string{name})
		best[key] = costedPlan{plan: p, applied: applied}
		keys = append(keys, key)
	}

	// Dynamic programming over table subsets, bottom-up: every round joins
	// every disjoint pair of already-planned subsets and keeps the cheapest
	// plan per union.
	for round := 1; round < len(q.From); round++ {
		snapshot := append([]string(nil), keys...)
		sort.Strings(snapshot)
		for _, lk := range snapshot {
			for _, rk := range snapshot {
				if lk == rk || overlaps(lk, rk) {
					continue
				}
				left, right := best[lk], best[rk]
				joined, err := o.bestJoin(left, right, entries, conjuncts)
				if err != nil {
					return nil, err
				}
				unionKey := subsetKey(append(splitKey(lk), splitKey(rk)...))
				cur, seen := best[unionKey]
				if !seen {
					best[unionKey] = joined
					keys = append(keys, unionKey)
				} else if joined.plan.AccessRowCount() < cur.plan.AccessRowCount() {
					best[unionKey] = joined
				}
			}
		}
	}

	full := best[subsetKey(q.From)]
	solution := full.plan

	// Anything still unapplied (predicates spanning three or more tables)
	// wraps the join tree.
	var rest []expression.Expression
	for i, c := range conjuncts {
		if !full.applied[i] {
			rest = append(rest, c)
		}
	}
	if len(rest) > 0 {
		solution = plan.NewSelection(solution, expression.JoinConjunction(rest), solution.Stats())
	}

	final, err := o.finalize(solution, q.Select)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("optimized query",
		zap.String("query", q.String()),
		zap.Int("cost", final.AccessRowCount()))
	return final, nil
}

// finalize attaches the output node: an aggregation when the select list
// aggregates, a projection otherwise.
func (o *Optimizer) finalize(p plan.Plan, selects []expression.NamedExpression) (plan.Plan, error) {
	hasAgg := false
	for _, ne := range selects {
		if expression.HasAggregate(ne.Expr) {
			hasAgg = true
			break
		}
	}
	if !hasAgg {
		return plan.NewProjection(p, selects)
	}
	for _, ne := range selects {
		if _, ok := ne.Expr.(*expression.AggregateRef); !ok {
			return nil, types.ErrInvalidQuery.New("select list mixes aggregates and plain expressions")
		}
	}
	return plan.NewAggregation(p, selects)
}

func subsetKey(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}

func splitKey(key string) []string { return strings.Split(key, "\x00") }

func overlaps(a, b string) bool {
	have := make(map[string]struct{})
	for _, n := range splitKey(a) {
		have[n] = struct{}{}
	}
	for _, n := range splitKey(b) {
		if _, ok := have[n]; ok {
			return true
		}
	}
	return false
}
