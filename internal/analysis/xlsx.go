package analysis

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(string) bool { return true }

func (xlsxLoader) Load(name string, data []byte, opt Options) (*Dataset, error) {
	return LoadXLSX(name, data, opt)
}

// LoadXLSX reads one sheet of an .xlsx workbook. Without SheetName or
// SheetIndex the first sheet in workbook order is used.
func LoadXLSX(name string, data []byte, opt Options) (*Dataset, error) {
	wb, err := openWorkbook(data)
	if err != nil {
		return nil, &FormatError{Op: "parse xlsx", Name: name, Err: err}
	}
	target, err := wb.resolveSheet(opt.SheetName, opt.SheetIndex)
	if err != nil {
		return nil, &FormatError{Op: "parse xlsx", Name: name, Err: err}
	}
	sheetXML, ok := wb.file(target)
	if !ok {
		return nil, &FormatError{Op: "parse xlsx", Name: name, Err: fmt.Errorf("worksheet %s missing", target)}
	}
	rr := newSheetRowReader(sheetXML, wb.shared)
	var header []string
	var rows [][]string
	for {
		row, ok := rr.Next()
		if !ok {
			break
		}
		if header == nil {
			// Exporters may write styled empty rows above the header.
			if blankRow(row) {
				continue
			}
			header = row
			continue
		}
		rows = append(rows, row)
	}
	if rr.err != nil {
		return nil, &FormatError{Op: "parse xlsx", Name: name, Err: rr.err}
	}
	if len(header) == 0 {
		return nil, &FormatError{Op: "parse xlsx", Name: name, Err: ErrEmptyDataset}
	}
	return buildDataset(filepath.Base(name), header, rows, opt)
}

type workbook struct {
	zr     *zip.Reader
	sheets []wbSheet
	rels   map[string]string
	shared []string
}

type wbSheet struct {
	Name    string `xml:"name,attr"`
	SheetID int    `xml:"sheetId,attr"`
	RID     string `xml:"id,attr"`
}

func openWorkbook(data []byte) (*workbook, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	wb := &workbook{zr: zr, rels: map[string]string{}}
	raw, ok := wb.file("xl/workbook.xml")
	if !ok {
		return nil, errors.New("not a spreadsheet: xl/workbook.xml missing")
	}
	var doc struct {
		Sheets []wbSheet `xml:"sheets>sheet"`
	}
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("workbook.xml: %w", err)
	}
	wb.sheets = doc.Sheets

	if raw, ok := wb.file("xl/_rels/workbook.xml.rels"); ok {
		var rels struct {
			Items []struct {
				ID     string `xml:"Id,attr"`
				Target string `xml:"Target,attr"`
			} `xml:"Relationship"`
		}
		if err := xml.Unmarshal(raw, &rels); err != nil {
			return nil, fmt.Errorf("workbook rels: %w", err)
		}
		for _, it := range rels.Items {
			if it.ID != "" && it.Target != "" {
				wb.rels[it.ID] = it.Target
			}
		}
	}
	if raw, ok := wb.file("xl/sharedStrings.xml"); ok {
		shared, err := parseSharedStrings(raw)
		if err != nil {
			return nil, fmt.Errorf("sharedStrings.xml: %w", err)
		}
		wb.shared = shared
	}
	return wb, nil
}

func (wb *workbook) file(name string) ([]byte, bool) {
	for _, f := range wb.zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, false
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil, false
		}
		return b, true
	}
	return nil, false
}

// resolveSheet maps a sheet name or 1-based sheetId to its zip entry.
func (wb *workbook) resolveSheet(name string, index int) (string, error) {
	if name != "" {
		for _, s := range wb.sheets {
			if strings.EqualFold(s.Name, name) {
				if rel, ok := wb.rels[s.RID]; ok {
					return normalizeRelPath(rel), nil
				}
			}
		}
		names := make([]string, len(wb.sheets))
		for i, s := range wb.sheets {
			names[i] = s.Name
		}
		return "", fmt.Errorf("sheet %q not found (available: %s)", name, strings.Join(names, ", "))
	}
	if index <= 0 {
		if len(wb.sheets) > 0 {
			if rel, ok := wb.rels[wb.sheets[0].RID]; ok {
				return normalizeRelPath(rel), nil
			}
		}
		index = 1
	}
	for _, s := range wb.sheets {
		if s.SheetID == index {
			if rel, ok := wb.rels[s.RID]; ok {
				return normalizeRelPath(rel), nil
			}
		}
	}
	return path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", index)), nil
}

// parseSharedStrings concatenates every <t> run inside each <si>.
func parseSharedStrings(data []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []string
	var buf strings.Builder
	inT, inPhonetic := false, false
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "si":
				buf.Reset()
			case "rPh":
				inPhonetic = true
			case "t":
				inT = !inPhonetic
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "t":
				inT = false
			case "rPh":
				inPhonetic = false
			case "si":
				out = append(out, buf.String())
			}
		case xml.CharData:
			if inT {
				buf.Write(se)
			}
		}
	}
}

// sheetRowReader streams rows out of a worksheet part.
type sheetRowReader struct {
	dec    *xml.Decoder
	shared []string
	err    error
}

func newSheetRowReader(data []byte, shared []string) *sheetRowReader {
	return &sheetRowReader{dec: xml.NewDecoder(bytes.NewReader(data)), shared: shared}
}

// Next returns the next <row>, placing each cell at the column given by its
// reference so gaps become empty strings.
func (r *sheetRowReader) Next() ([]string, bool) {
	var row []string
	inRow := false
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.err = err
			}
			return nil, false
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "row":
				inRow = true
				row = row[:0]
			case "c":
				if !inRow {
					continue
				}
				var ref, typ string
				for _, a := range se.Attr {
					switch a.Name.Local {
					case "r":
						ref = a.Value
					case "t":
						typ = a.Value
					}
				}
				idx := colIndexFromRef(ref)
				if idx < 0 {
					idx = len(row)
				}
				if idx >= MaxXLSXColumns {
					r.err = fmt.Errorf("%w: cell %q", ErrTooManyColumns, ref)
					return nil, false
				}
				val, err := r.cellValue(typ)
				if err != nil {
					r.err = err
					return nil, false
				}
				for len(row) <= idx {
					row = append(row, "")
				}
				row[idx] = val
			}
		case xml.EndElement:
			if se.Name.Local == "row" && inRow {
				out := make([]string, len(row))
				copy(out, row)
				return out, true
			}
		}
	}
}

// cellValue consumes tokens up to </c> and decodes the value by cell type.
func (r *sheetRowReader) cellValue(typ string) (string, error) {
	var val strings.Builder
	capture := false
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return "", err
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				capture = true
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "v", "t":
				capture = false
			case "c":
				return r.decode(typ, val.String()), nil
			}
		case xml.CharData:
			if capture {
				val.Write(se)
			}
		}
	}
}

func (r *sheetRowReader) decode(typ, raw string) string {
	switch typ {
	case "s":
		idx := atoiSafe(raw)
		if idx >= 0 && idx < len(r.shared) {
			return r.shared[idx]
		}
		return ""
	case "b":
		// Booleans are not numeric in the loaded table.
		if raw == "1" {
			return "TRUE"
		}
		return "FALSE"
	}
	return raw
}

// MaxXLSXColumns is the spreadsheet column limit (A..XFD).
const MaxXLSXColumns = 16384

// colIndexFromRef converts refs like "C12" to a 0-based column index.
// Letters past the column limit saturate at MaxXLSXColumns.
func colIndexFromRef(ref string) int {
	idx := 0
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c >= 'A' && c <= 'Z':
			idx = idx*26 + int(c-'A'+1)
		case c >= 'a' && c <= 'z':
			idx = idx*26 + int(c-'a'+1)
		default:
			return idx - 1
		}
		if idx > MaxXLSXColumns {
			return MaxXLSXColumns
		}
	}
	return idx - 1
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// normalizeRelPath converts relationship targets to zip entry names.
// Targets may be absolute ("/xl/worksheets/sheet1.xml") or relative to xl/.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
