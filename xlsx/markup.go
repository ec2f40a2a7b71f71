// Copyright 2020, 2023 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/valyala/quicktemplate"

	"github.com/UNO-SOFT/largexlsx"
)

const (
	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

	nsMain          = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	nsRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPackageRels   = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
)

// invalidXMLRune reports runes XML 1.0 cannot carry, not even escaped.
func invalidXMLRune(r rune) bool {
	return !(r == '\t' || r == '\n' || r == '\r' ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= utf8.MaxRune))
}

// cleanText returns s as valid UTF-8 without the runes XML cannot carry.
func cleanText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	if strings.IndexFunc(s, invalidXMLRune) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if invalidXMLRune(r) {
			return -1
		}
		return r
	}, s)
}

// needsPreserve reports whether consumers would trim s without xml:space="preserve".
func needsPreserve(s string) bool {
	if s == "" {
		return false
	}
	first, last := s[0], s[len(s)-1]
	return first == ' ' || first == '\t' || first == '\n' || first == '\r' ||
		last == ' ' || last == '\t' || last == '\n' || last == '\r'
}

// writeT writes the <t> element of a string item.
func writeT(qw *quicktemplate.Writer, s string) {
	n := qw.N()
	if needsPreserve(s) {
		n.S(`<t xml:space="preserve">`)
	} else {
		n.S(`<t>`)
	}
	qw.E().S(s)
	n.S(`</t>`)
}

// attr writes ` name="value"` with value escaped.
func attr(qw *quicktemplate.Writer, name, value string) {
	n := qw.N()
	n.S(` `)
	n.S(name)
	n.S(`="`)
	qw.E().S(value)
	n.S(`"`)
}

func attrInt(qw *quicktemplate.Writer, name string, value int) {
	n := qw.N()
	n.S(` `)
	n.S(name)
	n.S(`="`)
	n.D(value)
	n.S(`"`)
}

func attrFloat(qw *quicktemplate.Writer, name string, value float64) {
	n := qw.N()
	n.S(` `)
	n.S(name)
	n.S(`="`)
	n.F(value)
	n.S(`"`)
}

// writeFont writes the elements of a font, nameTag is "name" in the style
// table and "rFont" in rich text runs.
func writeFont(qw *quicktemplate.Writer, f largexlsx.Font, nameTag string) {
	n := qw.N()
	if f.Bold {
		n.S(`<b/>`)
	}
	if f.Italic {
		n.S(`<i/>`)
	}
	if f.Strike {
		n.S(`<strike/>`)
	}
	switch f.Underline {
	case largexlsx.UnderlineNone:
	case largexlsx.UnderlineSingle:
		n.S(`<u/>`)
	default:
		n.S(`<u`)
		attr(qw, "val", f.Underline.String())
		n.S(`/>`)
	}
	n.S(`<sz`)
	attrFloat(qw, "val", f.Size)
	n.S(`/><color`)
	attr(qw, "rgb", f.Color.String())
	n.S(`/><`)
	n.S(nameTag)
	attr(qw, "val", f.Name)
	n.S(`/>`)
}

// stickyWriter keeps the first error, failing every later Write with it.
type stickyWriter struct {
	w   io.Writer
	err error
}

func (s *stickyWriter) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.w.Write(p)
	s.err = err
	return n, err
}

// countingWriter counts the bytes written to the sink.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// MaxTextLength is the longest text a cell can hold, in characters.
const MaxTextLength = 32_767

// startCell writes `<c r=".." s=".." t=".."` leaving the tag open.
func (w *Writer) startCell(ws *worksheet, col, styleID int, typ string) {
	n := w.qw.N()
	n.S(`<c`)
	if w.opts.cellReferences || col != ws.emittedCol+1 {
		w.ref = appendCellRef(w.ref[:0], ws.lastRow, col, false)
		n.S(` r="`)
		n.Z(w.ref)
		n.S(`"`)
	}
	ws.emittedCol = col
	if styleID != 0 {
		attrInt(w.qw, "s", styleID)
	}
	if typ != "" {
		n.S(` t="`)
		n.S(typ)
		n.S(`"`)
	}
}

func (w *Writer) writeNumber(ws *worksheet, col, styleID int, num []byte) {
	w.startCell(ws, col, styleID, "")
	n := w.qw.N()
	n.S(`><v>`)
	n.Z(num)
	n.S(`</v></c>`)
}

func appendFloat(b []byte, f float64, bitSize int) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return b, fmt.Errorf("%g: %w", f, largexlsx.ErrInvalidCellValue)
	}
	return strconv.AppendFloat(b, f, 'g', -1, bitSize), nil
}

func checkText(s string) (string, error) {
	s = cleanText(s)
	if len(s) > MaxTextLength && utf8.RuneCountInString(s) > MaxTextLength {
		return s, fmt.Errorf("text of %d characters: %w", utf8.RuneCountInString(s), largexlsx.ErrInvalidCellValue)
	}
	return s, nil
}

// shareString decides by the policy whether s goes to the shared string table.
func (w *Writer) shareString(s string) bool {
	if w.opts.stringPolicy == InlineStrings {
		return false
	}
	n := w.opts.inlineThreshold
	return n == 0 || len(s) <= n || utf8.RuneCountInString(s) <= n
}

func (w *Writer) writeString(ws *worksheet, col, styleID int, s string, shared bool) error {
	s, err := checkText(s)
	if err != nil {
		return err
	}
	n := w.qw.N()
	if shared {
		w.startCell(ws, col, styleID, "s")
		n.S(`><v>`)
		n.D(w.strings.intern(s))
		n.S(`</v></c>`)
		return nil
	}
	w.startCell(ws, col, styleID, "inlineStr")
	n.S(`><is>`)
	writeT(w.qw, s)
	n.S(`</is></c>`)
	return nil
}

func (w *Writer) writeRichText(ws *worksheet, col, styleID int, rt largexlsx.RichText) error {
	runs := make([]largexlsx.TextRun, len(rt))
	var length int
	for i, r := range rt {
		if r.Font != nil {
			if err := r.Font.Validate(); err != nil {
				return err
			}
		}
		runs[i] = largexlsx.TextRun{Text: cleanText(r.Text), Font: r.Font}
		length += utf8.RuneCountInString(runs[i].Text)
	}
	if length > MaxTextLength {
		return fmt.Errorf("rich text of %d characters: %w", length, largexlsx.ErrInvalidCellValue)
	}
	w.startCell(ws, col, styleID, "inlineStr")
	n := w.qw.N()
	n.S(`><is>`)
	for _, r := range runs {
		n.S(`<r>`)
		if r.Font != nil {
			n.S(`<rPr>`)
			writeFont(w.qw, *r.Font, "rFont")
			n.S(`</rPr>`)
		}
		writeT(w.qw, r.Text)
		n.S(`</r>`)
	}
	n.S(`</is></c>`)
	return nil
}

func (w *Writer) writeFormula(ws *worksheet, col, styleID int, f largexlsx.Formula) error {
	expr := cleanText(strings.TrimPrefix(strings.TrimSpace(f.Expr), "="))
	if expr == "" {
		return fmt.Errorf("empty formula: %w", largexlsx.ErrInvalidCellValue)
	}
	var typ string
	var result []byte
	var text string
	switch x := normalizeValue(f.Result).(type) {
	case nil:
	case bool:
		typ = "b"
		if x {
			result = []byte{'1'}
		} else {
			result = []byte{'0'}
		}
	case string:
		typ = "str"
		var err error
		if text, err = checkText(x); err != nil {
			return err
		}
	case time.Time:
		serial, err := timeSerial(x)
		if err != nil {
			return err
		}
		if styleID, err = w.dateStyle(styleID, x); err != nil {
			return err
		}
		result = strconv.AppendFloat(nil, serial, 'f', -1, 64)
	default:
		var ok bool
		var err error
		if result, ok, err = appendNumber(nil, x); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("formula result %T: %w", f.Result, largexlsx.ErrInvalidCellValue)
		}
	}
	w.startCell(ws, col, styleID, typ)
	n := w.qw.N()
	n.S(`><f>`)
	w.qw.E().S(expr)
	n.S(`</f>`)
	switch {
	case typ == "str":
		n.S(`<v>`)
		w.qw.E().S(text)
		n.S(`</v>`)
	case result != nil:
		n.S(`<v>`)
		n.Z(result)
		n.S(`</v>`)
	}
	n.S(`</c>`)
	return nil
}

// appendNumber appends the number if v is one, ok is false for other types.
func appendNumber(b []byte, v any) (_ []byte, ok bool, err error) {
	switch x := v.(type) {
	case int:
		return strconv.AppendInt(b, int64(x), 10), true, nil
	case int8:
		return strconv.AppendInt(b, int64(x), 10), true, nil
	case int16:
		return strconv.AppendInt(b, int64(x), 10), true, nil
	case int32:
		return strconv.AppendInt(b, int64(x), 10), true, nil
	case int64:
		return strconv.AppendInt(b, x, 10), true, nil
	case uint:
		return strconv.AppendUint(b, uint64(x), 10), true, nil
	case uint8:
		return strconv.AppendUint(b, uint64(x), 10), true, nil
	case uint16:
		return strconv.AppendUint(b, uint64(x), 10), true, nil
	case uint32:
		return strconv.AppendUint(b, uint64(x), 10), true, nil
	case uint64:
		return strconv.AppendUint(b, x, 10), true, nil
	case float32:
		b, err = appendFloat(b, float64(x), 32)
		return b, true, err
	case float64:
		b, err = appendFloat(b, x, 64)
		return b, true, err
	case largexlsx.Number:
		s := strings.TrimSpace(string(x))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return b, true, fmt.Errorf("%q: %w", string(x), largexlsx.ErrInvalidCellValue)
		}
		// ParseFloat also takes Go syntax: hex mantissas, p exponents and underscores.
		if math.IsNaN(f) || math.IsInf(f, 0) || strings.ContainsAny(s, "xXpP_") {
			return b, true, fmt.Errorf("%q: %w", string(x), largexlsx.ErrInvalidCellValue)
		}
		return append(b, s...), true, nil
	}
	return b, false, nil
}

// The serial number of 1970-01-01 in the 1900 date system.
const unixEpochSerial = 25569

// timeSerial returns the 1900 date system serial number of the wall clock of t.
func timeSerial(t time.Time) (float64, error) {
	y, m, d := t.Date()
	h, mi, s := t.Clock()
	wall := time.Date(y, m, d, h, mi, s, t.Nanosecond(), time.UTC)
	serial := unixEpochSerial + float64(wall.Unix())/86400 + float64(wall.Nanosecond())/86400e9
	if serial < 61 {
		// 1900-02-29 does not exist, but has serial 60.
		serial--
	}
	if serial < 1 {
		return 0, fmt.Errorf("%s is before 1900: %w", t.Format(time.DateOnly), largexlsx.ErrInvalidCellValue)
	}
	return serial, nil
}

// dateStyle returns a style showing t as a date if the style has the General format.
func (w *Writer) dateStyle(styleID int, t time.Time) (int, error) {
	s := w.styles.export()[styleID]
	if s.NumberFormat != largexlsx.NumberFormatGeneral {
		return styleID, nil
	}
	h, m, sec := t.Clock()
	if h == 0 && m == 0 && sec == 0 && t.Nanosecond() == 0 {
		s.NumberFormat = largexlsx.NumberFormatShortDate
	} else {
		s.NumberFormat = largexlsx.NumberFormatShortDateTime
	}
	return w.internStyle(s)
}

// writeCell encodes the value into the row buffer.
func (w *Writer) writeCell(ws *worksheet, col, styleID int, value any) error {
	switch x := value.(type) {
	case nil, largexlsx.Empty:
		if styleID != w.defaultID {
			w.startCell(ws, col, styleID, "")
			w.qw.N().S(`/>`)
		}
		return nil
	case string:
		return w.writeString(ws, col, styleID, x, w.shareString(x))
	case largexlsx.SharedString:
		return w.writeString(ws, col, styleID, string(x), true)
	case largexlsx.InlineString:
		return w.writeString(ws, col, styleID, string(x), false)
	case bool:
		w.startCell(ws, col, styleID, "b")
		if x {
			w.qw.N().S(`><v>1</v></c>`)
		} else {
			w.qw.N().S(`><v>0</v></c>`)
		}
		return nil
	case time.Time:
		if x.IsZero() {
			return w.writeCell(ws, col, styleID, nil)
		}
		serial, err := timeSerial(x)
		if err != nil {
			return err
		}
		if styleID, err = w.dateStyle(styleID, x); err != nil {
			return err
		}
		w.scratch = strconv.AppendFloat(w.scratch[:0], serial, 'f', -1, 64)
		w.writeNumber(ws, col, styleID, w.scratch)
		return nil
	case largexlsx.Formula:
		return w.writeFormula(ws, col, styleID, x)
	case largexlsx.RichText:
		return w.writeRichText(ws, col, styleID, x)
	}

	num, ok, err := appendNumber(w.scratch[:0], value)
	if err != nil {
		return err
	}
	if ok {
		w.scratch = num
		w.writeNumber(ws, col, styleID, num)
		return nil
	}
	if v, ok := unwrapValue(value); ok {
		return w.writeCell(ws, col, styleID, v)
	}
	return fmt.Errorf("%T: %w", value, largexlsx.ErrInvalidCellValue)
}

// normalizeValue unwraps database values and Stringers.
func normalizeValue(v any) any {
	u, _ := unwrapValue(v)
	return u
}

// unwrapValue reports whether v was a wrapper, returning what it wraps.
func unwrapValue(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	if vr, ok := v.(driver.Valuer); ok {
		if vv, err := vr.Value(); err == nil {
			return normalizeValue(vv), true
		}
	}
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return nil, true
		}
		return x, false
	case sql.NullTime:
		if !x.Valid || x.Time.IsZero() {
			return nil, true
		}
		return x.Time, true
	case sql.NullFloat64:
		if x.Valid {
			return x.Float64, true
		}
		return nil, true
	case sql.NullInt64:
		if x.Valid {
			return x.Int64, true
		}
		return nil, true
	case sql.NullString:
		if x.Valid {
			return x.String, true
		}
		return nil, true
	case sql.NullBool:
		if x.Valid {
			return x.Bool, true
		}
		return nil, true
	case []byte:
		return string(x), true
	case fmt.Stringer:
		return x.String(), true
	}
	return v, false
}

// appendColumnName appends the letters of the 1-based column number.
func appendColumnName(b []byte, col int) []byte {
	var tmp [4]byte
	i := len(tmp)
	for col > 0 {
		i--
		tmp[i] = byte('A' + (col-1)%26)
		col = (col - 1) / 26
	}
	return append(b, tmp[i:]...)
}

// ColumnName returns the letters of the 1-based column number: 1 is A, 27 is AA.
func ColumnName(col int) string { return string(appendColumnName(nil, col)) }

// appendCellRef appends a reference like B3, with $ before both parts if absolute.
func appendCellRef(b []byte, row, col int, absolute bool) []byte {
	if absolute {
		b = append(b, '$')
	}
	b = appendColumnName(b, col)
	if absolute {
		b = append(b, '$')
	}
	return strconv.AppendInt(b, int64(row), 10)
}

// CellRef returns the reference of a cell, such as A1.
func CellRef(row, col int) string { return string(appendCellRef(nil, row, col, false)) }

// cellRange is a rectangle of cells, From inclusive, 1-based.
type cellRange struct {
	fromRow, fromCol, rows, cols int
}

func (r cellRange) lastRow() int { return r.fromRow + r.rows - 1 }
func (r cellRange) lastCol() int { return r.fromCol + r.cols - 1 }

func (r cellRange) ref(absolute bool) string {
	b := appendCellRef(make([]byte, 0, 16), r.fromRow, r.fromCol, absolute)
	b = append(b, ':')
	return string(appendCellRef(b, r.lastRow(), r.lastCol(), absolute))
}

// quoteSheetName quotes the name for use in a formula reference.
func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
