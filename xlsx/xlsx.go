// Copyright 2020, 2023 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package xlsx writes large XLSX workbooks in a single forward pass.
//
// Rows are streamed into the compressed worksheet entry as they are written,
// only the current row is kept in memory besides the style and shared string
// tables, which are written when the Writer is closed.
package xlsx

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/quicktemplate"
	"golang.org/x/text/cases"

	"github.com/UNO-SOFT/largexlsx"
)

const (
	// MaxRowCount is the number of maximum rows.
	MaxRowCount = 1_048_576
	// MaxColumnCount is the number of maximum columns.
	MaxColumnCount = 16_384
	// MaxSheetNameLength is in UTF-16 code units.
	MaxSheetNameLength = 31
)

// Writer writes one XLSX container.
//
// Worksheets, rows and cells are written in order: BeginWorksheet opens a
// worksheet, BeginRow a row in it and Write appends a cell to the row.
// Starting a row or worksheet finishes the previous one.
// Close writes the remaining parts of the container.
//
// An I/O error makes the Writer unusable: every later call returns
// ErrWriterFailed, and the output must be discarded.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	logger *slog.Logger
	closer io.Closer
	sink   *countingWriter
	bw     *bufio.Writer
	zw     *zip.Writer
	fold   cases.Caser

	styles      *registry[largexlsx.Style]
	strings     *stringRegistry
	lastStyle   largexlsx.Style
	lastStyleID int
	defaultID   int

	sheets []*worksheet
	names  map[string]struct{}
	sheet  *worksheet

	buf     *bytebufferpool.ByteBuffer
	qw      *quicktemplate.Writer
	scratch []byte // number text
	ref     []byte // cell reference

	opts  options
	state state
}

type worksheet struct {
	entry      io.Writer
	autoFilter *cellRange
	name       string
	merges     []cellRange
	colStyles  []int // by column number, -1 for none
	opts       worksheetOptions
	index      int
	selected   bool // the first visible sheet, the active tab
	lastRow    int
	col        int
	rowStyle   int
	rows       int
	// the last row and column present in the markup
	emittedRow int
	emittedCol int
}

func (ws *worksheet) path() string { return "xl/worksheets/sheet" + strconv.Itoa(ws.index) + ".xml" }

// Create creates the named file and returns a Writer into it.
// The file is closed when the Writer is closed, aborted or fails.
func Create(path string, options ...Option) (*Writer, error) {
	fh, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", largexlsx.ErrContainerIO, err)
	}
	w, err := NewWriter(fh, options...)
	if err != nil {
		fh.Close()
		os.Remove(path)
		return nil, err
	}
	w.closer = fh
	return w, nil
}

// NewWriter returns a Writer that writes the container into w.
func NewWriter(w io.Writer, options ...Option) (*Writer, error) {
	opts := defaultOptions()
	for _, o := range options {
		o(&opts)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	xw := &Writer{
		opts:    opts,
		logger:  opts.logger,
		sink:    &countingWriter{w: w},
		fold:    cases.Fold(),
		styles:  newRegistry(largexlsx.DefaultStyle),
		strings: newStringRegistry(),
		names:   make(map[string]struct{}),
		buf:     bytebufferpool.Get(),
	}
	xw.qw = quicktemplate.AcquireWriter(xw.buf)
	xw.bw = bufio.NewWriterSize(xw.sink, opts.bufferSize)
	xw.zw = zip.NewWriter(xw.bw)
	level := opts.compressionLevel
	xw.zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})
	xw.defaultID = xw.styles.intern(opts.defaultStyle)
	xw.lastStyle, xw.lastStyleID = opts.defaultStyle, xw.defaultID
	return xw, nil
}

// usable returns the error of a closed or failed Writer.
func (w *Writer) usable() error {
	switch w.state {
	case stateCompleted:
		return largexlsx.ErrWriterClosed
	case stateFailed:
		return largexlsx.ErrWriterFailed
	}
	return nil
}

// fail poisons the Writer and releases its resources.
func (w *Writer) fail(err error) error {
	if w.state != stateFailed {
		w.state = stateFailed
		w.logger.Error("xlsx writer failed", "error", err)
		w.release()
	}
	return err
}

func (w *Writer) ioError(op string, err error) error {
	return w.fail(fmt.Errorf("%s: %w: %w", op, largexlsx.ErrContainerIO, err))
}

// release frees the buffers and closes the file opened by Create.
func (w *Writer) release() error {
	if w.qw != nil {
		quicktemplate.ReleaseWriter(w.qw)
		w.qw = nil
	}
	if w.buf != nil {
		bytebufferpool.Put(w.buf)
		w.buf = nil
	}
	w.zw, w.bw, w.sheet = nil, nil, nil
	if c := w.closer; c != nil {
		w.closer = nil
		return c.Close()
	}
	return nil
}

// Abort releases the resources without finishing the container.
// What has been written so far is not a valid container.
func (w *Writer) Abort() error {
	if err := w.usable(); err != nil {
		return err
	}
	w.state = stateCompleted
	w.logger.Debug("xlsx writer aborted")
	return w.release()
}

// createEntry starts the next container entry, finishing the previous one.
func (w *Writer) createEntry(name string) (io.Writer, error) {
	return w.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: w.opts.modified,
	})
}

// flush writes the buffered markup into the open worksheet entry.
func (w *Writer) flush() error {
	if len(w.buf.B) == 0 {
		return nil
	}
	_, err := w.sheet.entry.Write(w.buf.B)
	w.buf.Reset()
	if err != nil {
		return w.ioError(w.sheet.name, err)
	}
	return nil
}

func validateSheetName(name string) error {
	if name == "" {
		return fmt.Errorf("empty: %w", largexlsx.ErrInvalidWorksheetName)
	}
	var n int
	for _, r := range name {
		n += utf16.RuneLen(r)
		if invalidXMLRune(r) || r == 0xFFFD {
			return fmt.Errorf("%q has invalid characters: %w", name, largexlsx.ErrInvalidWorksheetName)
		}
	}
	if n > MaxSheetNameLength {
		return fmt.Errorf("%q is longer than %d: %w", name, MaxSheetNameLength, largexlsx.ErrInvalidWorksheetName)
	}
	if strings.ContainsAny(name, `:\/?*[]`) {
		return fmt.Errorf(`%q contains one of :\/?*[]: %w`, name, largexlsx.ErrInvalidWorksheetName)
	}
	if name[0] == '\'' || name[len(name)-1] == '\'' {
		return fmt.Errorf("%q starts or ends with an apostrophe: %w", name, largexlsx.ErrInvalidWorksheetName)
	}
	if strings.EqualFold(name, "History") {
		return fmt.Errorf("%q is reserved: %w", name, largexlsx.ErrInvalidWorksheetName)
	}
	return nil
}

// BeginWorksheet finishes the current worksheet, if any, and starts a new one.
//
// The name must be unique, ignoring case.
func (w *Writer) BeginWorksheet(name string, options ...WorksheetOption) error {
	if err := w.usable(); err != nil {
		return err
	}
	if err := validateSheetName(name); err != nil {
		return err
	}
	folded := w.fold.String(name)
	if _, ok := w.names[folded]; ok {
		return fmt.Errorf("%q: %w", name, largexlsx.ErrDuplicateWorksheetName)
	}
	ws := &worksheet{name: name, index: len(w.sheets) + 1, rowStyle: -1}
	for _, o := range options {
		o(&ws.opts)
	}
	if err := w.prepareWorksheet(ws); err != nil {
		return err
	}

	if err := w.closeWorksheet(); err != nil {
		return err
	}
	entry, err := w.createEntry(ws.path())
	if err != nil {
		return w.ioError(name, err)
	}
	ws.entry = entry
	ws.selected = !ws.opts.hidden && w.allHidden()
	w.sheets = append(w.sheets, ws)
	w.names[folded] = struct{}{}
	w.sheet, w.state = ws, stateWorksheetOpen

	w.writeWorksheetStart(ws)
	if err := w.flush(); err != nil {
		return err
	}
	w.logger.Debug("worksheet begun", "name", name, "index", ws.index)
	return nil
}

// allHidden reports whether no worksheet begun so far is visible.
func (w *Writer) allHidden() bool {
	for _, ws := range w.sheets {
		if !ws.opts.hidden {
			return false
		}
	}
	return true
}

// prepareWorksheet validates the options and interns the column styles.
func (w *Writer) prepareWorksheet(ws *worksheet) error {
	o := &ws.opts
	if o.splitRows < 0 || o.splitColumns < 0 ||
		o.splitRows >= MaxRowCount || o.splitColumns >= MaxColumnCount {
		return fmt.Errorf("split at %d,%d: %w", o.splitRows, o.splitColumns, largexlsx.ErrInvalidOption)
	}
	var col int
	for i := range o.columns {
		c := &o.columns[i]
		if c.Count == 0 {
			c.Count = 1
		}
		if c.Count < 0 || c.Width < 0 || c.Width > maxColumnWidth {
			return fmt.Errorf("column format %d: %w", i, largexlsx.ErrInvalidOption)
		}
		if col+c.Count > MaxColumnCount {
			return fmt.Errorf("column formats: %w", largexlsx.ErrTooManyColumns)
		}
		if c.Style != nil {
			id, err := w.internStyle(*c.Style)
			if err != nil {
				return fmt.Errorf("column format %d: %w", i, err)
			}
			for len(ws.colStyles) <= col+c.Count {
				ws.colStyles = append(ws.colStyles, -1)
			}
			for j := col + 1; j <= col+c.Count; j++ {
				ws.colStyles[j] = id
			}
		}
		col += c.Count
	}
	return nil
}

func (w *Writer) writeWorksheetStart(ws *worksheet) {
	n := w.qw.N()
	n.S(xmlHeader)
	n.S(`<worksheet xmlns="` + nsMain + `" xmlns:r="` + nsRelationships + `">`)
	n.S(`<sheetViews><sheetView workbookViewId="0"`)
	if ws.selected {
		n.S(` tabSelected="1"`)
	}
	if ws.opts.rightToLeft {
		n.S(` rightToLeft="1"`)
	}
	if rows, cols := ws.opts.splitRows, ws.opts.splitColumns; rows > 0 || cols > 0 {
		pane := "bottomRight"
		switch {
		case cols == 0:
			pane = "bottomLeft"
		case rows == 0:
			pane = "topRight"
		}
		n.S(`><pane`)
		if cols > 0 {
			attrInt(w.qw, "xSplit", cols)
		}
		if rows > 0 {
			attrInt(w.qw, "ySplit", rows)
		}
		attr(w.qw, "topLeftCell", CellRef(rows+1, cols+1))
		attr(w.qw, "activePane", pane)
		n.S(` state="frozen"/><selection`)
		attr(w.qw, "pane", pane)
		n.S(`/></sheetView>`)
	} else {
		n.S(`/>`)
	}
	n.S(`</sheetViews>`)

	if len(ws.opts.columns) != 0 {
		n.S(`<cols>`)
		col := 1
		for _, c := range ws.opts.columns {
			n.S(`<col`)
			attrInt(w.qw, "min", col)
			attrInt(w.qw, "max", col+c.Count-1)
			if c.Width > 0 {
				attrFloat(w.qw, "width", c.Width)
				n.S(` customWidth="1"`)
			} else {
				n.S(` width="9.140625"`)
			}
			if col < len(ws.colStyles) && ws.colStyles[col] >= 0 {
				attrInt(w.qw, "style", ws.colStyles[col])
			}
			if c.Hidden {
				n.S(` hidden="1"`)
			}
			n.S(`/>`)
			col += c.Count
		}
		n.S(`</cols>`)
	}
	n.S(`<sheetData>`)
}

// closeRow flushes the open row.
func (w *Writer) closeRow() error {
	if w.state != stateRowOpen {
		return nil
	}
	w.qw.N().S(`</row>`)
	w.state = stateWorksheetOpen
	return w.flush()
}

// closeWorksheet finishes the open worksheet.
func (w *Writer) closeWorksheet() error {
	if !w.state.inWorksheet() {
		return nil
	}
	if err := w.closeRow(); err != nil {
		return err
	}
	ws := w.sheet
	n := w.qw.N()
	n.S(`</sheetData>`)
	if af := ws.autoFilter; af != nil {
		n.S(`<autoFilter`)
		attr(w.qw, "ref", af.ref(false))
		n.S(`/>`)
	}
	if len(ws.merges) != 0 {
		n.S(`<mergeCells`)
		attrInt(w.qw, "count", len(ws.merges))
		n.S(`>`)
		for _, m := range ws.merges {
			n.S(`<mergeCell`)
			attr(w.qw, "ref", m.ref(false))
			n.S(`/>`)
		}
		n.S(`</mergeCells>`)
	}
	n.S(`</worksheet>`)
	if err := w.flush(); err != nil {
		return err
	}
	w.logger.Debug("worksheet closed", "name", ws.name, "rows", ws.rows, "lastRow", ws.lastRow)
	ws.entry, ws.merges, ws.colStyles = nil, nil, nil
	w.state = stateWorksheetClosed
	return nil
}

func (w *Writer) requireWorksheet(op string) (*worksheet, error) {
	if err := w.usable(); err != nil {
		return nil, err
	}
	if !w.state.inWorksheet() {
		return nil, fmt.Errorf("%s in state %s: %w", op, w.state, largexlsx.ErrInvalidState)
	}
	return w.sheet, nil
}

// BeginRow finishes the current row, if any, and starts a new one.
// Rows are numbered from 1, following the last one unless AtRow is given.
func (w *Writer) BeginRow(options ...RowOption) error {
	ws, err := w.requireWorksheet("BeginRow")
	if err != nil {
		return err
	}
	var o rowOptions
	for _, f := range options {
		f(&o)
	}
	num := ws.lastRow + 1
	if o.explicit {
		if o.number <= ws.lastRow || o.number < 1 {
			return fmt.Errorf("row %d after %d: %w", o.number, ws.lastRow, largexlsx.ErrOutOfOrderRow)
		}
		num = o.number
	}
	if num > MaxRowCount {
		return fmt.Errorf("row %d: %w", num, largexlsx.ErrTooManyRows)
	}
	if o.height < 0 || o.height > maxRowHeight {
		return fmt.Errorf("row height %g: %w", o.height, largexlsx.ErrInvalidOption)
	}
	rowStyle := -1
	if o.style != nil {
		if rowStyle, err = w.internStyle(*o.style); err != nil {
			return err
		}
	}

	if err := w.closeRow(); err != nil {
		return err
	}
	n := w.qw.N()
	n.S(`<row`)
	if w.opts.cellReferences || num != ws.emittedRow+1 {
		attrInt(w.qw, "r", num)
	}
	if rowStyle >= 0 {
		attrInt(w.qw, "s", rowStyle)
		n.S(` customFormat="1"`)
	}
	if o.height > 0 {
		attrFloat(w.qw, "ht", o.height)
		n.S(` customHeight="1"`)
	}
	if o.hidden {
		n.S(` hidden="1"`)
	}
	n.S(`>`)
	ws.lastRow, ws.col, ws.rowStyle = num, 0, rowStyle
	ws.emittedRow, ws.emittedCol = num, 0
	ws.rows++
	w.state = stateRowOpen
	return nil
}

// SkipRows finishes the current row and leaves count rows empty.
func (w *Writer) SkipRows(count int) error {
	ws, err := w.requireWorksheet("SkipRows")
	if err != nil {
		return err
	}
	if count < 0 {
		return fmt.Errorf("skip %d rows: %w", count, largexlsx.ErrInvalidOption)
	}
	if ws.lastRow+count > MaxRowCount {
		return fmt.Errorf("row %d: %w", ws.lastRow+count, largexlsx.ErrTooManyRows)
	}
	if err := w.closeRow(); err != nil {
		return err
	}
	ws.lastRow += count
	return nil
}

// SkipColumns leaves count cells of the current row empty.
func (w *Writer) SkipColumns(count int) error {
	if err := w.usable(); err != nil {
		return err
	}
	if w.state != stateRowOpen {
		return fmt.Errorf("SkipColumns in state %s: %w", w.state, largexlsx.ErrInvalidState)
	}
	if count < 0 {
		return fmt.Errorf("skip %d columns: %w", count, largexlsx.ErrInvalidOption)
	}
	if w.sheet.col+count > MaxColumnCount {
		return fmt.Errorf("column %d: %w", w.sheet.col+count, largexlsx.ErrTooManyColumns)
	}
	w.sheet.col += count
	return nil
}

// CurrentRowNumber returns the number of the last begun or skipped row, 0 before any.
func (w *Writer) CurrentRowNumber() int {
	if w.sheet == nil {
		return 0
	}
	return w.sheet.lastRow
}

// CurrentColumnNumber returns the number of the last written or skipped column
// of the current row, 0 before any.
func (w *Writer) CurrentColumnNumber() int {
	if w.sheet == nil {
		return 0
	}
	return w.sheet.col
}

func newRange(fromRow, fromCol, rows, cols int) (cellRange, error) {
	r := cellRange{fromRow: fromRow, fromCol: fromCol, rows: rows, cols: cols}
	if fromRow < 1 || fromCol < 1 || rows < 1 || cols < 1 ||
		r.lastRow() > MaxRowCount || r.lastCol() > MaxColumnCount {
		return r, fmt.Errorf("range %d,%d+%d,%d: %w", fromRow, fromCol, rows, cols, largexlsx.ErrInvalidOption)
	}
	return r, nil
}

// AddMergedCell merges the rows x cols rectangle starting at fromRow, fromCol
// of the current worksheet.
func (w *Writer) AddMergedCell(fromRow, fromCol, rows, cols int) error {
	ws, err := w.requireWorksheet("AddMergedCell")
	if err != nil {
		return err
	}
	r, err := newRange(fromRow, fromCol, rows, cols)
	if err != nil {
		return err
	}
	ws.merges = append(ws.merges, r)
	return nil
}

// SetAutoFilter sets the auto filter of the current worksheet,
// the first row of the range holds the headers.
func (w *Writer) SetAutoFilter(fromRow, fromCol, rows, cols int) error {
	ws, err := w.requireWorksheet("SetAutoFilter")
	if err != nil {
		return err
	}
	r, err := newRange(fromRow, fromCol, rows, cols)
	if err != nil {
		return err
	}
	ws.autoFilter = &r
	return nil
}

// internStyle returns the index of s in the style table, validating new styles.
func (w *Writer) internStyle(s largexlsx.Style) (int, error) {
	if s == w.lastStyle {
		return w.lastStyleID, nil
	}
	id, ok := w.styles.lookup(s)
	if !ok {
		if err := s.Validate(); err != nil {
			return 0, err
		}
		id = w.styles.intern(s)
	}
	w.lastStyle, w.lastStyleID = s, id
	return id, nil
}

// resolveStyle returns the style of a cell: its own, the row's, the column's or the default.
func (w *Writer) resolveStyle(ws *worksheet, col int, s *largexlsx.Style) (int, error) {
	switch {
	case s != nil:
		return w.internStyle(*s)
	case ws.rowStyle >= 0:
		return ws.rowStyle, nil
	case col < len(ws.colStyles) && ws.colStyles[col] >= 0:
		return ws.colStyles[col], nil
	}
	return w.defaultID, nil
}

// Write appends a cell to the current row, after the last written one unless
// AtColumn is given.
//
// See the package largexlsx for the accepted value types.
func (w *Writer) Write(value any, options ...CellOption) error {
	if err := w.usable(); err != nil {
		return err
	}
	if w.state != stateRowOpen {
		return fmt.Errorf("Write in state %s: %w", w.state, largexlsx.ErrInvalidState)
	}
	ws := w.sheet
	var o cellOptions
	for _, f := range options {
		f(&o)
	}
	col := ws.col + 1
	if o.explicit {
		if o.column <= ws.col {
			return fmt.Errorf("column %d after %d: %w", o.column, ws.col, largexlsx.ErrOutOfOrderColumn)
		}
		col = o.column
	}
	if col > MaxColumnCount {
		return fmt.Errorf("column %d: %w", col, largexlsx.ErrTooManyColumns)
	}
	styleID, err := w.resolveStyle(ws, col, o.style)
	if err != nil {
		return err
	}
	mark := len(w.buf.B)
	if err := w.writeCell(ws, col, styleID, value); err != nil {
		w.buf.B = w.buf.B[:mark]
		return fmt.Errorf("%s!%s: %w", ws.name, CellRef(ws.lastRow, col), err)
	}
	ws.col = col
	return nil
}

// Close finishes the current worksheet and writes the style table, the shared
// string table and the workbook parts, then the container's directory.
//
// A Writer without worksheets gets an empty Sheet1. A workbook needs a
// visible worksheet: when every worksheet is hidden Close fails with
// ErrInvalidState and the Writer stays usable to begin a visible one.
func (w *Writer) Close() error {
	if err := w.usable(); err != nil {
		return err
	}
	if len(w.sheets) == 0 {
		if err := w.BeginWorksheet("Sheet1"); err != nil {
			return err
		}
	}
	if w.allHidden() {
		return fmt.Errorf("every worksheet is hidden: %w", largexlsx.ErrInvalidState)
	}
	if err := w.closeWorksheet(); err != nil {
		return err
	}
	if err := w.assemble(); err != nil {
		return err
	}
	w.state = stateCompleted
	if err := w.release(); err != nil {
		w.state = stateFailed
		return fmt.Errorf("close: %w: %w", largexlsx.ErrContainerIO, err)
	}
	return nil
}

type state uint8

const (
	stateCreated state = iota
	stateWorksheetOpen
	stateRowOpen
	stateWorksheetClosed
	stateCompleted
	stateFailed
)

var stateNames = [...]string{"created", "worksheet open", "row open", "worksheet closed", "completed", "failed"}

func (s state) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

func (s state) inWorksheet() bool { return s == stateWorksheetOpen || s == stateRowOpen }
