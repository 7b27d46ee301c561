package analysis

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// Options controls how an uploaded table is read.
type Options struct {
	// MaxRows limits rows loaded; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, picked from the file extension.
	Delimiter rune
	// Numeric parsing locale. Defaults to '.' with no thousands separator.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// XLSX sheet selection. SheetIndex is 1-based; both empty means first sheet.
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns reasonable defaults for dataset loading.
func DefaultOptions() Options {
	return Options{}
}

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumeric Kind = "numeric"
	KindText    Kind = "text"
)

// Column is one named column of a Dataset. Values is only populated for
// numeric columns; missing cells are NaN.
type Column struct {
	Name    string
	Kind    Kind
	Raw     []string
	Values  []float64
	Missing int
}

// Dataset is an uploaded table held in memory.
type Dataset struct {
	Name      string
	Rows      int
	Columns   []Column
	Truncated bool
}

// loader reads one tabular format.
type loader interface {
	CanLoad(name string) bool
	Load(name string, data []byte, opt Options) (*Dataset, error)
}

// Spreadsheet is the fallback, so it stays last.
var loaders = []loader{csvLoader{}, xlsxLoader{}}

// Load reads r according to the extension of name. Delimited-text extensions
// are parsed as CSV, anything else as an XLSX workbook.
func Load(name string, r io.Reader, opt Options) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	for _, l := range loaders {
		if l.CanLoad(name) {
			return l.Load(name, data, opt)
		}
	}
	return nil, &FormatError{Op: "load", Name: name, Err: errors.New("no loader for file")}
}

type csvLoader struct{}

func (csvLoader) CanLoad(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".txt":
		return true
	}
	return false
}

func (csvLoader) Load(name string, data []byte, opt Options) (*Dataset, error) {
	return LoadCSV(name, data, opt)
}

// LoadCSV parses delimited text. The first record is the header.
func LoadCSV(name string, data []byte, opt Options) (*Dataset, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(name)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &FormatError{Op: "parse csv", Name: name, Err: ErrEmptyDataset}
		}
		return nil, &FormatError{Op: "parse csv", Name: name, Err: err}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &FormatError{Op: "parse csv", Name: name, Err: fmt.Errorf("row %d: %w", len(rows)+1, err)}
		}
		rows = append(rows, rec)
	}
	return buildDataset(filepath.Base(name), header, rows, opt)
}

func sniffDelimiter(name string) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	return ','
}

// buildDataset pads ragged rows, applies MaxRows and infers column kinds.
func buildDataset(name string, header []string, rows [][]string, opt Options) (*Dataset, error) {
	ncol := len(header)
	if ncol == 0 {
		return nil, &FormatError{Op: "load", Name: name, Err: ErrEmptyDataset}
	}
	ds := &Dataset{Name: name}
	if opt.MaxRows > 0 && len(rows) > opt.MaxRows {
		rows = rows[:opt.MaxRows]
		ds.Truncated = true
	}
	ds.Rows = len(rows)
	ds.Columns = make([]Column, ncol)
	for j := range header {
		col := Column{Name: strings.TrimSpace(header[j]), Raw: make([]string, len(rows))}
		if col.Name == "" {
			col.Name = fmt.Sprintf("Unnamed: %d", j)
		}
		vals := make([]float64, len(rows))
		numeric, present := true, 0
		for i, rec := range rows {
			v := ""
			if j < len(rec) {
				v = strings.TrimSpace(rec[j])
			}
			col.Raw[i] = v
			if isMissing(v) {
				col.Missing++
				vals[i] = math.NaN()
				continue
			}
			present++
			if !numeric {
				continue
			}
			x, ok := parseNumeric(v, opt)
			if !ok {
				numeric = false
				continue
			}
			vals[i] = x
		}
		if numeric && present > 0 {
			col.Kind = KindNumeric
			col.Values = vals
		} else {
			col.Kind = KindText
		}
		ds.Columns[j] = col
	}
	return ds, nil
}

var missingTokens = map[string]bool{
	"": true, "NA": true, "N/A": true, "NaN": true, "nan": true,
	"null": true, "NULL": true, "-": true, "#N/A": true,
}

func isMissing(s string) bool { return missingTokens[s] }

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00A0", " "))
	dec := opt.DecimalSeparator
	if dec == 0 {
		dec = '.'
	}
	if thou := opt.ThousandsSeparator; thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		if strings.Contains(raw, ".") {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Column returns the named column.
func (d *Dataset) Column(name string) (*Column, bool) {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return &d.Columns[i], true
		}
	}
	return nil, false
}

// NumericColumns lists numeric column names in file order.
func (d *Dataset) NumericColumns() []string {
	var out []string
	for _, c := range d.Columns {
		if c.Kind == KindNumeric {
			out = append(out, c.Name)
		}
	}
	return out
}

// RequireNumeric returns the numeric column names, or a FormatError when
// fewer than two exist. A dataset in that state cannot be analysed.
func (d *Dataset) RequireNumeric() ([]string, error) {
	cols := d.NumericColumns()
	if len(cols) < 2 {
		return nil, &FormatError{Op: "select columns", Name: d.Name, Err: ErrTooFewNumeric}
	}
	return cols, nil
}

// SelectPair returns the values of two numeric columns. Selecting the same
// column twice is allowed.
func (d *Dataset) SelectPair(x, y string) ([]float64, []float64, error) {
	if _, err := d.RequireNumeric(); err != nil {
		return nil, nil, err
	}
	xs, err := d.numericValues(x)
	if err != nil {
		return nil, nil, err
	}
	ys, err := d.numericValues(y)
	if err != nil {
		return nil, nil, err
	}
	return xs, ys, nil
}

func (d *Dataset) numericValues(name string) ([]float64, error) {
	c, ok := d.Column(name)
	if !ok || c.Kind != KindNumeric {
		return nil, &FormatError{Op: "select columns", Name: name, Err: ErrUnknownColumn}
	}
	return c.Values, nil
}
