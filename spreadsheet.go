// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package largexlsx holds the formatting value model, the cell value types and
// the errors of the streaming XLSX writer in the xlsx subpackage.
package largexlsx

import (
	"errors"
	"io"
)

// Writer writes the spreadsheet consisting of the sheets created
// with NewSheet. The write finishes when Close is called.
//
// Implementations that stream their output allow only one open sheet:
// NewSheet finishes the previous one.
type Writer interface {
	io.Closer
	NewSheet(name string, cols []Column) (Sheet, error)
}

// Sheet should be Closed when finished.
type Sheet interface {
	io.Closer
	AppendRow(values ...any) error
}

// Column contains the Name of the column and header's style and column's style.
//
// A nil style means the writer's default.
type Column struct {
	Name           string
	Header, Column *Style
	// Width of the column in characters, 0 leaves it to the consumer.
	Width float64
}

// Number is a string that contains a number.
type Number string

// InlineString is text stored in the cell itself, bypassing the shared string table.
type InlineString string

// SharedString is text always stored in the shared string table.
type SharedString string

// Formula is a cell formula, without the leading '='.
//
// Result is the cached value shown until the consumer recalculates;
// it may be nil, a string, a bool, a number or a time.Time, which is
// stored as a serial number with a date format like a time cell.
type Formula struct {
	Expr   string
	Result any
}

// TextRun is a part of a RichText with its own font.
// A nil Font inherits the cell's font.
type TextRun struct {
	Text string
	Font *Font
}

// RichText is inline text made of differently formatted runs.
type RichText []TextRun

// Empty skips a cell; with a style it writes a styled blank cell.
type Empty struct{}

var (
	// ErrInvalidFormatValue is returned for an out-of-range formatting field.
	ErrInvalidFormatValue = errors.New("invalid format value")
	// ErrInvalidCellValue is returned for a value that has no cell encoding.
	ErrInvalidCellValue = errors.New("invalid cell value")
	// ErrInvalidOption is returned by constructors for a bad option.
	ErrInvalidOption = errors.New("invalid option")

	ErrDuplicateWorksheetName = errors.New("duplicate worksheet name")
	ErrInvalidWorksheetName   = errors.New("invalid worksheet name")

	// ErrInvalidState is returned when an operation is called out of order,
	// e.g. BeginRow before any BeginWorksheet.
	ErrInvalidState     = errors.New("invalid writer state")
	ErrOutOfOrderRow    = errors.New("row number must be greater than the last written")
	ErrOutOfOrderColumn = errors.New("column number must be greater than the last written")
	ErrTooManyRows      = errors.New("too many rows")
	ErrTooManyColumns   = errors.New("too many columns")

	// ErrWriterClosed is returned by every operation after Close or Abort.
	ErrWriterClosed = errors.New("writer is closed")
	// ErrWriterFailed is returned by every operation after an I/O error.
	// The output written so far is not a valid container.
	ErrWriterFailed = errors.New("writer has failed")
	// ErrContainerIO wraps the failure of the underlying sink.
	ErrContainerIO = errors.New("container I/O error")
)
