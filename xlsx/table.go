// Copyright 2020, 2023 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"fmt"

	"github.com/UNO-SOFT/largexlsx"
)

var _ = (largexlsx.Writer)((*TableWriter)(nil))

// TableWriter is a largexlsx.Writer over a streaming Writer.
//
// Sheets are written one after the other: NewSheet finishes the previous sheet,
// which cannot be appended to anymore.
type TableWriter struct {
	w       *Writer
	current *TableSheet
}

// TableSheet is a sheet of a TableWriter.
type TableSheet struct {
	tw   *TableWriter
	Name string
	row  int
}

// NewTableWriter returns a largexlsx.Writer writing into w.
func NewTableWriter(w *Writer) *TableWriter { return &TableWriter{w: w} }

// Close closes the underlying Writer.
func (tw *TableWriter) Close() error {
	if tw == nil || tw.w == nil {
		return nil
	}
	tw.current = nil
	return tw.w.Close()
}

// NewSheet begins a worksheet, with a header row if any of the columns has a name.
func (tw *TableWriter) NewSheet(name string, columns []largexlsx.Column) (largexlsx.Sheet, error) {
	formats := make([]ColumnFormat, len(columns))
	var hasHeader bool
	for i, c := range columns {
		formats[i] = ColumnFormat{Width: c.Width, Style: c.Column}
		hasHeader = hasHeader || c.Name != ""
	}
	var opts []WorksheetOption
	if len(formats) != 0 {
		opts = append(opts, WithColumns(formats...))
	}
	if err := tw.w.BeginWorksheet(name, opts...); err != nil {
		return nil, err
	}
	// the previous sheet is finished even if the header fails
	tw.current = nil
	xls := &TableSheet{tw: tw, Name: name}
	if hasHeader {
		if err := tw.w.BeginRow(); err != nil {
			return nil, err
		}
		for i, c := range columns {
			var cellOpts []CellOption
			if c.Header != nil {
				cellOpts = append(cellOpts, Styled(*c.Header))
			}
			if err := tw.w.Write(c.Name, cellOpts...); err != nil {
				return nil, fmt.Errorf("%s[%s]: %w", name, CellRef(1, i+1), err)
			}
		}
		xls.row++
	}
	tw.current = xls
	return xls, nil
}

// Close marks the sheet finished.
func (xls *TableSheet) Close() error {
	if xls.tw.current == xls {
		xls.tw.current = nil
	}
	return nil
}

// AppendRow writes the values into the next row. Nil values leave the cell empty.
func (xls *TableSheet) AppendRow(values ...any) error {
	if xls.tw.current != xls {
		return fmt.Errorf("%s is not the current sheet: %w", xls.Name, largexlsx.ErrInvalidState)
	}
	if xls.row >= MaxRowCount {
		return largexlsx.ErrTooManyRows
	}
	w := xls.tw.w
	if err := w.BeginRow(); err != nil {
		return err
	}
	xls.row++
	for i, v := range values {
		if err := w.Write(normalizeValue(v)); err != nil {
			return fmt.Errorf("%s[%s]: %w", xls.Name, CellRef(xls.row, i+1), err)
		}
	}
	return nil
}
