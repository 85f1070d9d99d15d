package table

import (
	"sort"
	"strconv"
	"strings"

	"github.com/zerodha/snmp-lama/pkg/models"
)

// Row is one table entity: the values of every column found at Index.
type Row struct {
	Index  string
	values map[string]string
}

// Get returns the value of column at this row's index.
func (r Row) Get(column string) (string, bool) {
	v, ok := r.values[Normalize(column)]
	return v, ok
}

// Table groups OID/value pairs sharing a trailing index into rows.
type Table struct {
	columns    []string
	rows       map[string]Row
	collisions int
}

// Reconstruct builds a table from sample for the given column prefixes.
// Each key is assigned to the longest column it extends and the remaining
// suffix becomes the row index. Keys are visited in OID order, so when two
// raw keys decode to the same (index, column) the later one wins.
func Reconstruct(sample models.RawSample, columns ...string) *Table {
	t := &Table{
		rows: make(map[string]Row),
	}
	for _, c := range columns {
		t.columns = append(t.columns, Normalize(c))
	}
	// Longest first so nested column prefixes resolve to the most specific one.
	sort.SliceStable(t.columns, func(i, j int) bool {
		return len(t.columns[i]) > len(t.columns[j])
	})

	keys := make([]string, 0, len(sample))
	for k := range sample {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if c := Compare(Normalize(keys[i]), Normalize(keys[j])); c != 0 {
			return c < 0
		}
		return keys[i] < keys[j]
	})

	for _, raw := range keys {
		key := Normalize(raw)
		col, idx, ok := t.match(key)
		if !ok {
			continue
		}
		row, ok := t.rows[idx]
		if !ok {
			row = Row{Index: idx, values: make(map[string]string)}
			t.rows[idx] = row
		}
		if _, dup := row.values[col]; dup {
			t.collisions++
		}
		row.values[col] = sample[raw]
	}

	return t
}

func (t *Table) match(key string) (string, string, bool) {
	for _, c := range t.columns {
		if idx, ok := strings.CutPrefix(key, c+"."); ok && idx != "" {
			return c, idx, true
		}
	}
	return "", "", false
}

// Rows returns every row in index order.
func (t *Table) Rows() []Row {
	out := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return Compare(out[i].Index, out[j].Index) < 0
	})
	return out
}

// Entities returns the rows, in index order, that have a non-empty value in
// nameColumn. Other columns may be absent on the returned rows.
func (t *Table) Entities(nameColumn string) []Row {
	var out []Row
	for _, r := range t.Rows() {
		if v, ok := r.Get(nameColumn); ok && v != "" {
			out = append(out, r)
		}
	}
	return out
}

// Lookup returns the value of column at index.
func (t *Table) Lookup(index, column string) (string, bool) {
	r, ok := t.rows[index]
	if !ok {
		return "", false
	}
	return r.Get(column)
}

// Len returns the number of distinct indexes.
func (t *Table) Len() int {
	return len(t.rows)
}

// Collisions returns how many values were overwritten because two raw keys
// mapped to the same index and column.
func (t *Table) Collisions() int {
	return t.collisions
}

// Normalize strips leading dots from an OID.
func Normalize(oid string) string {
	return strings.TrimLeft(oid, ".")
}

// Compare orders two dotted OIDs numerically, arc by arc. Non-numeric arcs
// fall back to string comparison.
func Compare(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == bs[i] {
			continue
		}
		an, aerr := strconv.ParseUint(as[i], 10, 64)
		bn, berr := strconv.ParseUint(bs[i], 10, 64)
		if aerr != nil || berr != nil {
			return strings.Compare(as[i], bs[i])
		}
		if an == bn {
			continue
		}
		if an < bn {
			return -1
		}
		return 1
	}
	return len(as) - len(bs)
}
