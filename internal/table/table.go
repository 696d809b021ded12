package table

import "fmt"

// Table is the working sample table. Rows keep insertion order and are
// indexed by barcode. Stages mutate rows in place; the orchestrator runs
// stages strictly sequentially, so the table needs no internal locking.
type Table struct {
	rows  []*Record
	index map[string]int
}

// New returns an empty table.
func New() *Table {
	return &Table{index: make(map[string]int)}
}

// Append adds a record. Barcodes are the primary key and must be unique.
func (t *Table) Append(r *Record) error {
	if r.Barcode == "" {
		return fmt.Errorf("record has an empty barcode")
	}
	if _, exists := t.index[r.Barcode]; exists {
		return fmt.Errorf("duplicate barcode %q", r.Barcode)
	}
	t.index[r.Barcode] = len(t.rows)
	t.rows = append(t.rows, r)
	return nil
}

// Get returns the record for a barcode.
func (t *Table) Get(barcode string) (*Record, bool) {
	i, ok := t.index[barcode]
	if !ok {
		return nil, false
	}
	return t.rows[i], true
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns the records in insertion order. The slice is shared; callers
// iterate and mutate rows but must not reorder or grow it.
func (t *Table) Rows() []*Record { return t.rows }

// Filter returns the records matching pred, in insertion order.
func (t *Table) Filter(pred func(*Record) bool) []*Record {
	var out []*Record
	for _, r := range t.rows {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// Barcodes lists all barcodes in insertion order.
func (t *Table) Barcodes() []string {
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Barcode
	}
	return out
}
