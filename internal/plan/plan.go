// Package plan implements the logical plan nodes the optimizer assembles.
// Every node knows its output schema, its cost estimates, and how to build
// the physical operator that runs it. Plans are immutable once built.
package plan

import (
	"strings"

	"tupledb/internal/database"
	"tupledb/internal/executor"
	"tupledb/internal/table"
	"tupledb/internal/types"
)

// Plan is one logical plan node.
type Plan interface {
	// Schema is the node's output schema.
	Schema() *types.Schema
	// ScanSource returns the base table this subtree roots at, or nil once
	// more than one table is involved.
	ScanSource() *table.Table
	// Stats returns the statistics snapshot of the scan source, or nil.
	Stats() *table.TableStatistics
	// AccessRowCount estimates the rows the whole subtree touches; it is
	// the planner's cost signal.
	AccessRowCount() int
	// EmitRowCount estimates the rows the node produces.
	EmitRowCount() int
	// EmitExecutor builds a fresh physical operator tree for one
	// execution.
	EmitExecutor(ctx *database.TransactionContext) (executor.Operator, error)
	// Dump writes the plan tree, children indented by two spaces.
	Dump(b *strings.Builder, indent int)
}

// Explain renders a plan tree as text.
func Explain(p Plan) string {
	var b strings.Builder
	p.Dump(&b, 0)
	return b.String()
}

func pad(b *strings.Builder, n int) {
	for i := 0; i < n; i++ {
		b.WriteByte(' ')
	}
}
