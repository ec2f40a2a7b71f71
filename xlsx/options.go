// Copyright 2020, 2023 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/UNO-SOFT/largexlsx"
	"github.com/klauspost/compress/flate"
)

// StringPolicy decides where text cells are stored.
type StringPolicy uint8

const (
	// SharedStrings stores every text once in the shared string table.
	SharedStrings StringPolicy = iota
	// InlineStrings stores text in the cells, keeping no table in memory.
	InlineStrings
)

const (
	// DefaultCompressionLevel is the deflate level when WithCompressionLevel is not given.
	DefaultCompressionLevel = 6
	// DefaultBufferSize is the size of the buffer before the sink.
	DefaultBufferSize = 64 << 10

	maxColumnWidth = 255
	maxRowHeight   = 409
)

type options struct {
	logger           *slog.Logger
	defaultStyle     largexlsx.Style
	modified         time.Time
	compressionLevel int
	bufferSize       int
	inlineThreshold  int
	stringPolicy     StringPolicy
	cellReferences   bool
}

func defaultOptions() options {
	return options{
		logger:           slog.New(slog.DiscardHandler),
		defaultStyle:     largexlsx.DefaultStyle,
		modified:         time.Now(),
		compressionLevel: DefaultCompressionLevel,
		bufferSize:       DefaultBufferSize,
		cellReferences:   true,
	}
}

func (o options) validate() error {
	if o.compressionLevel < flate.HuffmanOnly || o.compressionLevel > flate.BestCompression {
		return fmt.Errorf("compression level %d: %w", o.compressionLevel, largexlsx.ErrInvalidOption)
	}
	if o.bufferSize < 0 {
		return fmt.Errorf("buffer size %d: %w", o.bufferSize, largexlsx.ErrInvalidOption)
	}
	if o.inlineThreshold < 0 {
		return fmt.Errorf("inline threshold %d: %w", o.inlineThreshold, largexlsx.ErrInvalidOption)
	}
	if o.stringPolicy > InlineStrings {
		return fmt.Errorf("string policy %d: %w", o.stringPolicy, largexlsx.ErrInvalidOption)
	}
	if err := o.defaultStyle.Validate(); err != nil {
		return fmt.Errorf("default style: %w", err)
	}
	return nil
}

// Option configures a Writer.
type Option func(*options)

// WithLogger sets the logger, the default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDefaultStyle sets the style of cells written without a row, column or cell style.
func WithDefaultStyle(s largexlsx.Style) Option {
	return func(o *options) { o.defaultStyle = s }
}

// WithCompressionLevel sets the deflate level, from flate.HuffmanOnly (-2) to 9.
func WithCompressionLevel(level int) Option {
	return func(o *options) { o.compressionLevel = level }
}

// WithBufferSize sets the write buffer before the sink, 0 for the bufio default.
func WithBufferSize(size int) Option {
	return func(o *options) { o.bufferSize = size }
}

// WithStringPolicy sets where plain string values are stored (default: SharedStrings).
func WithStringPolicy(p StringPolicy) Option {
	return func(o *options) { o.stringPolicy = p }
}

// WithInlineThreshold stores strings longer than n characters inline
// even with SharedStrings. 0 disables the threshold.
func WithInlineThreshold(n int) Option {
	return func(o *options) { o.inlineThreshold = n }
}

// WithCellReferences controls whether every row and cell carries its reference
// (default: true). Without them the output is smaller, and references are
// still written where rows or columns are skipped.
func WithCellReferences(b bool) Option {
	return func(o *options) { o.cellReferences = b }
}

// WithModified sets the modification time of the container entries.
func WithModified(t time.Time) Option {
	return func(o *options) { o.modified = t }
}

// ColumnFormat describes Count consecutive columns of a worksheet.
type ColumnFormat struct {
	// Style is the default style of the cells in these columns.
	Style *largexlsx.Style
	// Width in characters, 0 for the default width.
	Width float64
	// Count of columns, 0 means 1.
	Count  int
	Hidden bool
}

type worksheetOptions struct {
	columns                 []ColumnFormat
	splitRows, splitColumns int
	rightToLeft, hidden     bool
}

// WorksheetOption configures a worksheet at BeginWorksheet.
type WorksheetOption func(*worksheetOptions)

// WithColumns sets the formats of the columns starting from A.
func WithColumns(cols ...ColumnFormat) WorksheetOption {
	return func(o *worksheetOptions) { o.columns = append(o.columns, cols...) }
}

// SplitAt freezes the first rows and columns.
func SplitAt(rows, columns int) WorksheetOption {
	return func(o *worksheetOptions) { o.splitRows, o.splitColumns = rows, columns }
}

// RightToLeft displays the worksheet from right to left.
func RightToLeft() WorksheetOption {
	return func(o *worksheetOptions) { o.rightToLeft = true }
}

// Hidden hides the worksheet tab.
func Hidden() WorksheetOption {
	return func(o *worksheetOptions) { o.hidden = true }
}

type rowOptions struct {
	style    *largexlsx.Style
	number   int
	height   float64
	explicit bool
	hidden   bool
}

// RowOption configures a row at BeginRow.
type RowOption func(*rowOptions)

// AtRow sets the 1-based row number, which must be greater than the last one.
// The rows between are left empty.
func AtRow(n int) RowOption {
	return func(o *rowOptions) { o.number, o.explicit = n, true }
}

// RowStyle sets the style of the row and the default of its cells.
func RowStyle(s largexlsx.Style) RowOption {
	return func(o *rowOptions) { o.style = &s }
}

// RowHeight sets the height of the row in points.
func RowHeight(h float64) RowOption {
	return func(o *rowOptions) { o.height = h }
}

// HiddenRow hides the row.
func HiddenRow() RowOption {
	return func(o *rowOptions) { o.hidden = true }
}

type cellOptions struct {
	style    *largexlsx.Style
	column   int
	explicit bool
}

// CellOption configures one Write.
type CellOption func(*cellOptions)

// AtColumn sets the 1-based column number, which must be greater than the last one.
func AtColumn(n int) CellOption {
	return func(o *cellOptions) { o.column, o.explicit = n, true }
}

// Styled sets the style of the cell.
func Styled(s largexlsx.Style) CellOption {
	return func(o *cellOptions) { o.style = &s }
}
