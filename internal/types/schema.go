package types

import (
	"strings"
)

// ColumnName is a qualified column identifier. An empty Qualifier matches a
// column by bare name alone.
type ColumnName struct {
	Qualifier string
	Name      string
}

// ParseColumnName splits "t.c" into a qualified name; a bare "c" keeps an
// empty qualifier.
func ParseColumnName(s string) ColumnName {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return ColumnName{Qualifier: s[:i], Name: s[i+1:]}
	}
	return ColumnName{Name: s}
}

// String renders the name back to "t.c" or "c".
func (cn ColumnName) String() string {
	if cn.Qualifier == "" {
		return cn.Name
	}
	return cn.Qualifier + "." + cn.Name
}

// Empty reports whether both parts are empty.
func (cn ColumnName) Empty() bool { return cn.Qualifier == "" && cn.Name == "" }

// ConstraintType enumerates column constraints. Row writes reject nulls in
// NotNull and Primary columns; the other kinds are recorded but not enforced.
type ConstraintType uint8

const (
	ConstraintNone ConstraintType = iota
	ConstraintNotNull
	ConstraintDefault
	ConstraintUnique
	ConstraintPrimary
	ConstraintForeign
	ConstraintCheck
	ConstraintIndex
)

// Constraint pairs a constraint type with its optional value (Default).
type Constraint struct {
	Type  ConstraintType
	Value Value
}

// Column describes one schema column.
type Column struct {
	Name       ColumnName
	Type       ValueType
	Constraint Constraint
}

// NewColumn builds a column from a possibly-qualified name string.
func NewColumn(name string, t ValueType, cst ...Constraint) Column {
	c := Column{Name: ParseColumnName(name), Type: t}
	if len(cst) > 0 {
		c.Constraint = cst[0]
	}
	return c
}

// Schema is a named, ordered column list. Columns with an empty qualifier
// inherit the schema's name at construction time.
type Schema struct {
	Name    string
	Columns []Column
}

// NewSchema builds a schema, stamping unqualified columns with its name.
func NewSchema(name string, columns []Column) *Schema {
	cols := make([]Column, len(columns))
	copy(cols, columns)
	for i := range cols {
		if cols[i].Name.Qualifier == "" {
			cols[i].Name.Qualifier = name
		}
	}
	return &Schema{Name: name, Columns: cols}
}

// ColumnCount returns the number of columns.
func (s *Schema) ColumnCount() int { return len(s.Columns) }

// Column returns the i-th column.
func (s *Schema) Column(i int) Column { return s.Columns[i] }

// Offset resolves a column reference to its position. A qualified reference
// must match both parts; an unqualified one matches on name alone and fails
// with ErrAmbiguousColumn when more than one column carries that name.
func (s *Schema) Offset(cn ColumnName) (int, error) {
	if cn.Qualifier != "" {
		for i, c := range s.Columns {
			if c.Name == cn {
				return i, nil
			}
		}
		return -1, ErrNameResolution.New("column " + cn.String() + " not in schema " + s.Name)
	}
	found := -1
	for i, c := range s.Columns {
		if c.Name.Name == cn.Name {
			if found >= 0 {
				return -1, ErrAmbiguousColumn.New(cn.Name)
			}
			found = i
		}
	}
	if found < 0 {
		return -1, ErrNameResolution.New("column " + cn.Name + " not in schema " + s.Name)
	}
	return found, nil
}

// Concat produces an unnamed joined schema with s's columns followed by o's,
// qualifiers preserved.
func (s *Schema) Concat(o *Schema) *Schema {
	cols := make([]Column, 0, len(s.Columns)+len(o.Columns))
	cols = append(cols, s.Columns...)
	cols = append(cols, o.Columns...)
	return &Schema{Columns: cols}
}

// ColumnSet returns the set of qualified column names.
func (s *Schema) ColumnSet() map[ColumnName]struct{} {
	out := make(map[ColumnName]struct{}, len(s.Columns))
	for _, c := range s.Columns {
		out[c.Name] = struct{}{}
	}
	return out
}

// HasColumn reports whether cn resolves in this schema without ambiguity.
func (s *Schema) HasColumn(cn ColumnName) bool {
	_, err := s.Offset(cn)
	return err == nil
}

// String renders the schema for debug output.
func (s *Schema) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteString(" [")
	for i, c := range s.Columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(c.Name.String())
		b.WriteByte(':')
		b.WriteString(c.Type.String())
	}
	b.WriteString("]")
	return b.String()
}
