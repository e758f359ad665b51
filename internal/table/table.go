// Package table renders a collection of records as an HTML table with a
// single-column, case-insensitive substring filter.
//
// A Table holds the column schema, the full row snapshot and its own filter
// state. The visible rows are always derived from those three inputs by
// Filter, so every state transition is followed by a fresh computation
// instead of an incremental update.
package table

import (
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/samber/lo"
)

// EmptyMessage is shown in the single placeholder row when nothing is visible.
const EmptyMessage = "No results."

var (
	// ErrNoColumns is returned when a table is built without columns.
	ErrNoColumns = errors.New("table needs at least one column")
	// ErrDuplicateColumn is returned when two columns share a key.
	ErrDuplicateColumn = errors.New("duplicate column key")
)

// Record is a row whose attributes can be read by column key.
// An unknown key reports false and is treated as an empty value.
type Record interface {
	Value(key string) (string, bool)
}

// Column describes one displayed attribute.
type Column[T Record] struct {
	Key   string
	Label string
	// Render produces the cell content. When nil the attribute value is
	// shown as escaped text.
	Render func(row T) template.HTML
}

// State is the filter state of a table: the active column key and the text
// matched against it.
type State struct {
	Column string
	Text   string
}

// Table is a filterable view over a fixed row snapshot.
type Table[T Record] struct {
	columns []Column[T]
	rows    []T
	state   State
}

// New builds a table. Columns must be non-empty with unique keys; rows may be empty.
func New[T Record](columns []Column[T], rows []T) (*Table[T], error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, ok := seen[c.Key]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Key)
		}
		seen[c.Key] = struct{}{}
	}
	return &Table[T]{
		columns: append([]Column[T](nil), columns...),
		rows:    append([]T(nil), rows...),
		state:   State{Column: columns[0].Key},
	}, nil
}

// Columns returns the column schema.
func (t *Table[T]) Columns() []Column[T] {
	return t.columns
}

// Rows returns the unfiltered rows in input order.
func (t *Table[T]) Rows() []T {
	return t.rows
}

// State returns the current filter state.
func (t *Table[T]) State() State {
	return t.state
}

// HasColumn reports whether key names one of the table's columns.
func (t *Table[T]) HasColumn(key string) bool {
	return lo.ContainsBy(t.columns, func(c Column[T]) bool { return c.Key == key })
}

// SelectColumn makes key the active filter column. Switching to a different
// column clears the filter text; selecting the active column again is a no-op.
// Unknown keys are ignored and reported with false.
func (t *Table[T]) SelectColumn(key string) bool {
	if !t.HasColumn(key) {
		return false
	}
	if key != t.state.Column {
		t.state = State{Column: key}
	}
	return true
}

// SetFilter replaces the filter text.
func (t *Table[T]) SetFilter(text string) {
	t.state.Text = text
}

// Visible returns the rows matching the current state, in input order.
func (t *Table[T]) Visible() []T {
	return Filter(t.rows, t.state.Column, t.state.Text)
}

// Filter returns the rows whose value for key contains text, ignoring case.
// The match is a literal substring match; an empty text keeps every row.
// Rows without the attribute are matched as an empty value.
func Filter[T Record](rows []T, key, text string) []T {
	needle := strings.ToLower(text)
	return lo.Filter(rows, func(row T, _ int) bool {
		value, _ := row.Value(key)
		return strings.Contains(strings.ToLower(value), needle)
	})
}
