// Package executor implements the pull-based physical operators. The
// caller drives: each Next call either emits one row, signals exhaustion
// with a nil row, or fails with an error. Operators own their children and
// release them (and any materialized state) on Close.
package executor

import (
	"strings"

	"tupledb/internal/page"
	"tupledb/internal/types"
)

// Operator is the iterator contract every physical operator implements.
type Operator interface {
	// Next returns the next row, plus the storage position of the
	// underlying tuple when the operator is scan-shaped, or (nil, nil, nil)
	// when the input is exhausted.
	Next() (*types.Row, *page.RowPosition, error)
	// Close releases children and materialized buffers. It is safe to call
	// mid-iteration and more than once.
	Close() error
	// Dump writes the operator tree, children indented by two spaces.
	Dump(b *strings.Builder, indent int)
}

// Explain renders an operator tree as text.
func Explain(op Operator) string {
	var b strings.Builder
	op.Dump(&b, 0)
	return b.String()
}

func pad(b *strings.Builder, n int) {
	for i := 0; i < n; i++ {
		b.WriteByte(' ')
	}
}

// state tracks the operator lifecycle: Fresh until the first Next,
// Building while a materializing operator loads its input, Streaming while
// rows flow, Exhausted after the last one.
type state int

const (
	stateFresh state = iota
	stateBuilding
	stateStreaming
	stateExhausted
	stateClosed
)
