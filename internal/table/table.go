// Package table is an in-memory CSV table that keeps cells as text.
//
// Cells equal to Null read as missing. Numeric helpers parse on demand and
// format with the shortest round-trip representation, so untouched cells are
// written back byte for byte.
package table

import (
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

const moduleName = "table"

// Null is the missing-value sentinel used by every input file.
const Null = "."

// Table is an ordered header plus rows of string cells.
type Table struct {
	header []string
	index  map[string]int
	rows   [][]string
}

// New creates an empty table with the given header.
func New(header ...string) *Table {
	t := &Table{index: make(map[string]int, len(header))}
	for _, h := range header {
		t.addHeader(h)
	}
	return t
}

func (t *Table) addHeader(name string) {
	t.index[name] = len(t.header)
	t.header = append(t.header, name)
}

// Read loads a CSV file. A missing file is reported as exception.ErrMissingInput.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, exception.MissingInput(moduleName, path, err)
		}
		return nil, exception.NewBatchErrorf(moduleName, "failed to open '%s'", path, err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, exception.NewBatchErrorf(moduleName, "failed to read '%s'", path, err)
	}
	return t, nil
}

// ReadOptional is Read that reports a missing file as ok=false instead of an error.
func ReadOptional(path string) (*Table, bool, error) {
	t, err := Read(path)
	if err != nil {
		if errors.Is(err, exception.ErrMissingInput) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return t, true, nil
}

// Parse reads CSV data whose first record is the header.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, exception.SchemaMismatch(moduleName, "csv has no header")
		}
		return nil, err
	}
	t := New(header...)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) != len(header) {
			line, _ := reader.FieldPos(0)
			return nil, exception.SchemaMismatch(moduleName, "line %d has %d fields, header has %d", line, len(record), len(header))
		}
		t.rows = append(t.rows, record)
	}
	return t, nil
}

// Write saves the table as CSV, creating the parent directory if needed.
func (t *Table) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to create directory for '%s'", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to create '%s'", path, err)
	}
	if err := t.WriteTo(f); err != nil {
		f.Close()
		return exception.NewBatchErrorf(moduleName, "failed to write '%s'", path, err)
	}
	return f.Close()
}

// WriteTo writes the table as CSV to w.
func (t *Table) WriteTo(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.header); err != nil {
		return err
	}
	if err := writer.WriteAll(t.rows); err != nil {
		return err
	}
	return writer.Error()
}

// Header returns a copy of the column names.
func (t *Table) Header() []string {
	return append([]string(nil), t.header...)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Column resolves a column name. When the exact name is absent the
// upper-case form is tried, e.g. "timeseries" -> "TIMESERIES".
func (t *Table) Column(name string) (string, bool) {
	if _, ok := t.index[name]; ok {
		return name, true
	}
	upper := strings.ToUpper(name)
	if _, ok := t.index[upper]; ok {
		return upper, true
	}
	return "", false
}

// RequireColumns returns ErrSchemaMismatch naming the first absent column.
func (t *Table) RequireColumns(names ...string) error {
	for _, n := range names {
		if _, ok := t.Column(n); !ok {
			return exception.SchemaMismatch(moduleName, "column '%s' not found in %v", n, t.header)
		}
	}
	return nil
}

func (t *Table) col(name string) int {
	resolved, ok := t.Column(name)
	if !ok {
		return -1
	}
	return t.index[resolved]
}

// Get returns the raw cell, or Null when the column does not exist.
func (t *Table) Get(row int, column string) string {
	c := t.col(column)
	if c < 0 {
		return Null
	}
	return t.rows[row][c]
}

// IsNull reports whether the cell is missing.
func (t *Table) IsNull(row int, column string) bool {
	return IsNullCell(t.Get(row, column))
}

// Set writes a raw cell. The column is added (filled with Null) if absent.
func (t *Table) Set(row int, column, value string) {
	c := t.col(column)
	if c < 0 {
		t.AddColumn(column, Null)
		c = t.index[column]
	}
	t.rows[row][c] = value
}

// Float parses a cell. ok is false for missing or non-numeric cells.
func (t *Table) Float(row int, column string) (float64, bool) {
	v, err := ParseFloat(t.Get(row, column))
	if err != nil || math.IsNaN(v) {
		return math.NaN(), false
	}
	return v, true
}

// SetFloat writes a number; NaN becomes Null.
func (t *Table) SetFloat(row int, column string, v float64) {
	t.Set(row, column, FormatFloat(v))
}

// Floats returns a column as numbers with NaN for missing cells.
// A non-numeric cell or an absent column is ErrSchemaMismatch.
func (t *Table) Floats(column string) ([]float64, error) {
	c := t.col(column)
	if c < 0 {
		return nil, exception.SchemaMismatch(moduleName, "column '%s' not found in %v", column, t.header)
	}
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		v, err := ParseFloat(r[c])
		if err != nil {
			return nil, exception.SchemaMismatch(moduleName, "column '%s' row %d: '%s' is not numeric", column, i, r[c])
		}
		out[i] = v
	}
	return out, nil
}

// SetFloats overwrites a column from a slice of the same length.
func (t *Table) SetFloats(column string, values []float64) {
	for i, v := range values {
		t.SetFloat(i, column, v)
	}
}

// Strings returns a copy of a column's raw cells.
func (t *Table) Strings(column string) []string {
	c := t.col(column)
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		if c < 0 {
			out[i] = Null
			continue
		}
		out[i] = r[c]
	}
	return out
}

// AddColumn appends a column filled with value. Existing columns are left alone.
func (t *Table) AddColumn(name, value string) {
	if _, ok := t.index[name]; ok {
		return
	}
	t.addHeader(name)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], value)
	}
}

// DropColumn removes a column if present.
func (t *Table) DropColumn(name string) {
	c := t.col(name)
	if c < 0 {
		return
	}
	t.header = append(t.header[:c:c], t.header[c+1:]...)
	t.index = make(map[string]int, len(t.header))
	for i, h := range t.header {
		t.index[h] = i
	}
	for i, r := range t.rows {
		t.rows[i] = append(r[:c:c], r[c+1:]...)
	}
}

// Record returns a row keyed by column name.
func (t *Table) Record(row int) map[string]string {
	out := make(map[string]string, len(t.header))
	for i, h := range t.header {
		out[h] = t.rows[row][i]
	}
	return out
}

// Append adds a row from a record. Columns absent from the record are Null;
// keys that are not columns are ignored.
func (t *Table) Append(record map[string]string) {
	row := make([]string, len(t.header))
	for i, h := range t.header {
		if v, ok := record[h]; ok {
			row[i] = v
		} else {
			row[i] = Null
		}
	}
	t.rows = append(t.rows, row)
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := New(t.header...)
	out.rows = make([][]string, len(t.rows))
	for i, r := range t.rows {
		out.rows[i] = append([]string(nil), r...)
	}
	return out
}

// Filter returns a copy holding the rows for which keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	out := New(t.header...)
	for i, r := range t.rows {
		if keep(i) {
			out.rows = append(out.rows, append([]string(nil), r...))
		}
	}
	return out
}

// Concat appends the rows of others. The result header is the union of
// headers in first-seen order and missing cells are Null.
func Concat(tables ...*Table) *Table {
	out := New()
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, h := range t.header {
			if _, ok := out.index[h]; !ok {
				out.addHeader(h)
			}
		}
	}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for i := range t.rows {
			out.Append(t.Record(i))
		}
	}
	return out
}

// CrossJoin pairs every row of t with every row of other.
// Shared column names take the value from other.
func (t *Table) CrossJoin(other *Table) *Table {
	out := Concat(New(t.header...), New(other.header...))
	for i := range t.rows {
		for j := range other.rows {
			rec := t.Record(i)
			for k, v := range other.Record(j) {
				rec[k] = v
			}
			out.Append(rec)
		}
	}
	return out
}

// SortByAllColumns sorts rows lexicographically over the columns in header
// order. Cells that both parse as numbers compare numerically; a missing
// cell sorts after any present one.
func (t *Table) SortByAllColumns() {
	sort.SliceStable(t.rows, func(a, b int) bool {
		ra, rb := t.rows[a], t.rows[b]
		for c := range t.header {
			if cmp := compareCells(ra[c], rb[c]); cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
}

func compareCells(a, b string) int {
	an, bn := IsNullCell(a), IsNullCell(b)
	switch {
	case an && bn:
		return 0
	case an:
		return 1
	case bn:
		return -1
	}
	fa, ea := strconv.ParseFloat(a, 64)
	fb, eb := strconv.ParseFloat(b, 64)
	if ea == nil && eb == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

// IsNullCell reports whether a raw cell is missing.
func IsNullCell(s string) bool {
	s = strings.TrimSpace(s)
	return s == Null || s == "" || strings.EqualFold(s, "nan")
}

// ParseFloat parses a cell; missing cells give NaN with no error.
func ParseFloat(s string) (float64, error) {
	if IsNullCell(s) {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// FormatFloat renders v with the shortest representation that round-trips.
// NaN is rendered as Null.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return Null
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatBool renders booleans the way the solver inputs spell them.
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// ParseBool accepts 1/0, true/false in any case; a missing cell is def.
func ParseBool(s string, def bool) bool {
	if IsNullCell(s) {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y":
		return true
	case "0", "false", "f", "no", "n":
		return false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v != 0
	}
	return def
}
