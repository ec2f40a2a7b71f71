// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package largexlsx

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// Style is the complete formatting of a cell.
//
// Styles are values: equal styles (==) share one entry of the style table,
// no matter how they were constructed.
type Style struct {
	NumberFormat NumberFormat
	Font         Font
	Fill         Fill
	Border       Border
	Alignment    Alignment
	Protection   Protection
}

// DefaultStyle is the style of cells written without one.
var DefaultStyle = Style{
	Font:       DefaultFont,
	Protection: DefaultProtection,
}

func (s Style) WithNumberFormat(f NumberFormat) Style { s.NumberFormat = f; return s }
func (s Style) WithFont(f Font) Style                 { s.Font = f; return s }
func (s Style) WithFill(f Fill) Style                 { s.Fill = f; return s }
func (s Style) WithBorder(b Border) Style             { s.Border = b; return s }
func (s Style) WithAlignment(a Alignment) Style       { s.Alignment = a; return s }
func (s Style) WithProtection(p Protection) Style     { s.Protection = p; return s }

// Validate validates every aspect.
func (s Style) Validate() error {
	if s.NumberFormat.IsCustom() && s.NumberFormat.code == "" {
		return ErrInvalidFormatValue
	}
	if err := s.Font.Validate(); err != nil {
		return err
	}
	if err := s.Fill.Validate(); err != nil {
		return err
	}
	if err := s.Border.Validate(); err != nil {
		return err
	}
	return s.Alignment.Validate()
}

// Hash combines the hashes of the aspects; it is consistent with ==.
func (s Style) Hash() uint64 {
	var k key
	k = s.NumberFormat.appendKey(k)
	k = s.Font.appendKey(k)
	k = s.Fill.appendKey(k)
	k = s.Border.appendKey(k)
	k = s.Alignment.appendKey(k)
	k = s.Protection.appendKey(k)
	return k.sum()
}

// FirstCustomNumberFormatID is the first id available for custom formats,
// lower ones are built into the consumers.
const FirstCustomNumberFormatID = 164

// NumberFormat is either a built-in format or a custom format code.
// The zero value is General.
type NumberFormat struct {
	code string
	id   int // -1 for custom codes
}

var (
	NumberFormatGeneral              = NumberFormat{}
	NumberFormatInteger              = NumberFormat{id: 1, code: "0"}
	NumberFormatTwoDecimal           = NumberFormat{id: 2, code: "0.00"}
	NumberFormatThousandInteger      = NumberFormat{id: 3, code: "#,##0"}
	NumberFormatThousandTwoDecimal   = NumberFormat{id: 4, code: "#,##0.00"}
	NumberFormatPercentage           = NumberFormat{id: 9, code: "0%"}
	NumberFormatPercentageTwoDecimal = NumberFormat{id: 10, code: "0.00%"}
	NumberFormatScientific           = NumberFormat{id: 11, code: "0.00E+00"}
	NumberFormatShortDate            = NumberFormat{id: 14, code: "mm-dd-yy"}
	NumberFormatShortDateTime        = NumberFormat{id: 22, code: "m/d/yy h:mm"}
	NumberFormatText                 = NumberFormat{id: 49, code: "@"}
)

// NewNumberFormat returns a custom format with the given code, such as "0.000" or "yyyy-mm-dd".
func NewNumberFormat(code string) (NumberFormat, error) {
	if strings.TrimSpace(code) == "" {
		return NumberFormat{}, fmt.Errorf("empty number format code: %w", ErrInvalidFormatValue)
	}
	return NumberFormat{id: -1, code: code}, nil
}

// IsCustom reports whether the format needs a numFmt entry in the style table.
func (f NumberFormat) IsCustom() bool { return f.id < 0 }

// ID returns the built-in id, -1 for custom formats.
func (f NumberFormat) ID() int { return f.id }

// Code returns the format code.
func (f NumberFormat) Code() string {
	if f.id == 0 {
		return "General"
	}
	return f.code
}

func (f NumberFormat) String() string { return f.Code() }

func (f NumberFormat) appendKey(k key) key { return k.int(f.id).string(f.code) }

// Hash is consistent with ==.
func (f NumberFormat) Hash() uint64 { return f.appendKey(nil).sum() }

// Color is an ARGB color.
type Color uint32

const (
	Black Color = 0xFF000000
	White Color = 0xFFFFFFFF
)

// RGB returns an opaque color.
func RGB(r, g, b uint8) Color {
	return Color(0xFF000000 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// String returns the 8 hex digits stored in the rgb attribute.
func (c Color) String() string { return fmt.Sprintf("%08X", uint32(c)) }

// Underline style of a font.
type Underline uint8

const (
	UnderlineNone Underline = iota
	UnderlineSingle
	UnderlineDouble
	UnderlineSingleAccounting
	UnderlineDoubleAccounting
)

var underlineNames = [...]string{"none", "single", "double", "singleAccounting", "doubleAccounting"}

func (u Underline) String() string {
	if int(u) < len(underlineNames) {
		return underlineNames[u]
	}
	return fmt.Sprintf("Underline(%d)", uint8(u))
}

// MaxFontSize is the largest point size a consumer accepts.
const MaxFontSize = 409

// Font of a cell or a rich text run.
type Font struct {
	Name      string
	Size      float64
	Color     Color
	Bold      bool
	Italic    bool
	Strike    bool
	Underline Underline
}

// DefaultFont is 11 point black Calibri.
var DefaultFont = Font{Name: "Calibri", Size: 11, Color: Black}

func (f Font) WithName(name string) Font      { f.Name = name; return f }
func (f Font) WithSize(size float64) Font     { f.Size = size; return f }
func (f Font) WithColor(c Color) Font         { f.Color = c; return f }
func (f Font) WithBold(bold bool) Font        { f.Bold = bold; return f }
func (f Font) WithItalic(italic bool) Font    { f.Italic = italic; return f }
func (f Font) WithStrike(strike bool) Font    { f.Strike = strike; return f }
func (f Font) WithUnderline(u Underline) Font { f.Underline = u; return f }

// Validate checks the name length and the size range.
func (f Font) Validate() error {
	if n := utf8.RuneCountInString(f.Name); n == 0 || n > 31 {
		return fmt.Errorf("font name %q: %w", f.Name, ErrInvalidFormatValue)
	}
	if !(f.Size > 0 && f.Size <= MaxFontSize) {
		return fmt.Errorf("font size %g: %w", f.Size, ErrInvalidFormatValue)
	}
	if int(f.Underline) >= len(underlineNames) {
		return fmt.Errorf("%s: %w", f.Underline, ErrInvalidFormatValue)
	}
	return nil
}

func (f Font) appendKey(k key) key {
	return k.string(f.Name).float(f.Size).uint32(uint32(f.Color)).
		bool(f.Bold).bool(f.Italic).bool(f.Strike).int(int(f.Underline))
}

// Hash is consistent with ==.
func (f Font) Hash() uint64 { return f.appendKey(nil).sum() }

// Pattern of a fill.
type Pattern uint8

const (
	PatternNone Pattern = iota
	PatternSolid
	PatternGray125
	PatternGray0625
	PatternDarkGray
	PatternMediumGray
	PatternLightGray
)

var patternNames = [...]string{"none", "solid", "gray125", "gray0625", "darkGray", "mediumGray", "lightGray"}

func (p Pattern) String() string {
	if int(p) < len(patternNames) {
		return patternNames[p]
	}
	return fmt.Sprintf("Pattern(%d)", uint8(p))
}

// Fill is the background of a cell. Color is the pattern's foreground.
type Fill struct {
	Pattern Pattern
	Color   Color
}

// DefaultFill has no pattern.
var DefaultFill Fill

// SolidFill returns a fill painting the cell with c.
func SolidFill(c Color) Fill { return Fill{Pattern: PatternSolid, Color: c} }

func (f Fill) WithPattern(p Pattern) Fill { f.Pattern = p; return f }
func (f Fill) WithColor(c Color) Fill     { f.Color = c; return f }

func (f Fill) Validate() error {
	if int(f.Pattern) >= len(patternNames) {
		return fmt.Errorf("%s: %w", f.Pattern, ErrInvalidFormatValue)
	}
	return nil
}

func (f Fill) appendKey(k key) key { return k.int(int(f.Pattern)).uint32(uint32(f.Color)) }

// Hash is consistent with ==.
func (f Fill) Hash() uint64 { return f.appendKey(nil).sum() }

// BorderStyle of one border line.
type BorderStyle uint8

const (
	BorderNone BorderStyle = iota
	BorderThin
	BorderMedium
	BorderDashed
	BorderDotted
	BorderThick
	BorderDouble
	BorderHair
	BorderMediumDashed
	BorderDashDot
	BorderMediumDashDot
	BorderDashDotDot
	BorderMediumDashDotDot
	BorderSlantDashDot
)

var borderStyleNames = [...]string{
	"none", "thin", "medium", "dashed", "dotted", "thick", "double", "hair",
	"mediumDashed", "dashDot", "mediumDashDot", "dashDotDot", "mediumDashDotDot", "slantDashDot",
}

func (s BorderStyle) String() string {
	if int(s) < len(borderStyleNames) {
		return borderStyleNames[s]
	}
	return fmt.Sprintf("BorderStyle(%d)", uint8(s))
}

// BorderLine is one side of a Border.
type BorderLine struct {
	Style BorderStyle
	Color Color
}

// Line returns a border line.
func Line(style BorderStyle, c Color) BorderLine { return BorderLine{Style: style, Color: c} }

func (l BorderLine) appendKey(k key) key { return k.int(int(l.Style)).uint32(uint32(l.Color)) }

// Border of a cell. The diagonal line is drawn when DiagonalUp or DiagonalDown is set.
type Border struct {
	Left, Right, Top, Bottom, Diagonal BorderLine
	DiagonalUp, DiagonalDown           bool
}

// DefaultBorder has no lines.
var DefaultBorder Border

// AllSides returns a border with the same line on the four sides.
func AllSides(l BorderLine) Border { return Border{Left: l, Right: l, Top: l, Bottom: l} }

func (b Border) WithLeft(l BorderLine) Border   { b.Left = l; return b }
func (b Border) WithRight(l BorderLine) Border  { b.Right = l; return b }
func (b Border) WithTop(l BorderLine) Border    { b.Top = l; return b }
func (b Border) WithBottom(l BorderLine) Border { b.Bottom = l; return b }
func (b Border) WithDiagonal(l BorderLine, up, down bool) Border {
	b.Diagonal, b.DiagonalUp, b.DiagonalDown = l, up, down
	return b
}

func (b Border) Validate() error {
	for _, l := range [...]BorderLine{b.Left, b.Right, b.Top, b.Bottom, b.Diagonal} {
		if int(l.Style) >= len(borderStyleNames) {
			return fmt.Errorf("%s: %w", l.Style, ErrInvalidFormatValue)
		}
	}
	return nil
}

func (b Border) appendKey(k key) key {
	k = b.Diagonal.appendKey(b.Bottom.appendKey(b.Top.appendKey(b.Right.appendKey(b.Left.appendKey(k)))))
	return k.bool(b.DiagonalUp).bool(b.DiagonalDown)
}

// Hash is consistent with ==.
func (b Border) Hash() uint64 { return b.appendKey(nil).sum() }

// HorizontalAlignment of the cell content.
type HorizontalAlignment uint8

const (
	HorizontalGeneral HorizontalAlignment = iota
	HorizontalLeft
	HorizontalCenter
	HorizontalRight
	HorizontalFill
	HorizontalJustify
	HorizontalCenterContinuous
	HorizontalDistributed
)

var horizontalNames = [...]string{"general", "left", "center", "right", "fill", "justify", "centerContinuous", "distributed"}

// String returns the attribute value used in the style table.
func (h HorizontalAlignment) String() string {
	if int(h) < len(horizontalNames) {
		return horizontalNames[h]
	}
	return fmt.Sprintf("HorizontalAlignment(%d)", uint8(h))
}

// VerticalAlignment of the cell content. The zero value is Bottom.
type VerticalAlignment uint8

const (
	VerticalBottom VerticalAlignment = iota
	VerticalTop
	VerticalCenter
	VerticalJustify
	VerticalDistributed
)

var verticalNames = [...]string{"bottom", "top", "center", "justify", "distributed"}

func (v VerticalAlignment) String() string {
	if int(v) < len(verticalNames) {
		return verticalNames[v]
	}
	return fmt.Sprintf("VerticalAlignment(%d)", uint8(v))
}

// ReadingOrder values are the ones stored in the file.
type ReadingOrder uint8

const (
	ReadingOrderContextDependent ReadingOrder = 0
	ReadingOrderLeftToRight      ReadingOrder = 1
	ReadingOrderRightToLeft      ReadingOrder = 2
)

const (
	// VerticalText is the TextRotation of top-to-bottom stacked letters.
	VerticalText = 255
	// MaxIndent is the largest accepted Indent and RelativeIndent.
	MaxIndent = 250
)

// Alignment of a cell. The zero value is the default alignment:
// general horizontal, bottom vertical, no wrapping, no shrinking,
// no rotation, no indent and a context dependent reading order.
type Alignment struct {
	Horizontal      HorizontalAlignment
	Vertical        VerticalAlignment
	ReadingOrder    ReadingOrder
	TextRotation    int
	Indent          int
	RelativeIndent  int
	WrapText        bool
	ShrinkToFit     bool
	JustifyLastLine bool
}

// DefaultAlignment is the zero Alignment.
var DefaultAlignment Alignment

func (a Alignment) WithHorizontal(h HorizontalAlignment) Alignment { a.Horizontal = h; return a }
func (a Alignment) WithVertical(v VerticalAlignment) Alignment     { a.Vertical = v; return a }
func (a Alignment) WithReadingOrder(r ReadingOrder) Alignment      { a.ReadingOrder = r; return a }
func (a Alignment) WithWrapText(wrap bool) Alignment               { a.WrapText = wrap; return a }
func (a Alignment) WithShrinkToFit(shrink bool) Alignment          { a.ShrinkToFit = shrink; return a }
func (a Alignment) WithJustifyLastLine(j bool) Alignment           { a.JustifyLastLine = j; return a }

// WithTextRotation returns a copy with the rotation in degrees: 0..90 is
// counterclockwise, 91..180 is clockwise by (rotation-90), VerticalText stacks.
func (a Alignment) WithTextRotation(rotation int) (Alignment, error) {
	a.TextRotation = rotation
	return a, a.validateRotation()
}

// WithIndent returns a copy with the indent, in steps of three spaces.
func (a Alignment) WithIndent(indent int) (Alignment, error) {
	a.Indent = indent
	return a, a.validateIndent()
}

// WithRelativeIndent returns a copy with the relative indent.
func (a Alignment) WithRelativeIndent(indent int) (Alignment, error) {
	a.RelativeIndent = indent
	return a, a.validateIndent()
}

func (a Alignment) validateRotation() error {
	if (a.TextRotation < 0 || a.TextRotation > 180) && a.TextRotation != VerticalText {
		return fmt.Errorf("text rotation %d: %w", a.TextRotation, ErrInvalidFormatValue)
	}
	return nil
}

func (a Alignment) validateIndent() error {
	if a.Indent < 0 || a.Indent > MaxIndent {
		return fmt.Errorf("indent %d: %w", a.Indent, ErrInvalidFormatValue)
	}
	if a.RelativeIndent < -MaxIndent || a.RelativeIndent > MaxIndent {
		return fmt.Errorf("relative indent %d: %w", a.RelativeIndent, ErrInvalidFormatValue)
	}
	return nil
}

// Validate checks every field, for values built as literals.
func (a Alignment) Validate() error {
	if int(a.Horizontal) >= len(horizontalNames) {
		return fmt.Errorf("%s: %w", a.Horizontal, ErrInvalidFormatValue)
	}
	if int(a.Vertical) >= len(verticalNames) {
		return fmt.Errorf("%s: %w", a.Vertical, ErrInvalidFormatValue)
	}
	if a.ReadingOrder > ReadingOrderRightToLeft {
		return fmt.Errorf("reading order %d: %w", a.ReadingOrder, ErrInvalidFormatValue)
	}
	if err := a.validateRotation(); err != nil {
		return err
	}
	return a.validateIndent()
}

func (a Alignment) appendKey(k key) key {
	return k.int(int(a.Horizontal)).int(int(a.Vertical)).int(int(a.ReadingOrder)).
		int(a.TextRotation).int(a.Indent).int(a.RelativeIndent).
		bool(a.WrapText).bool(a.ShrinkToFit).bool(a.JustifyLastLine)
}

// Hash is consistent with ==.
func (a Alignment) Hash() uint64 { return a.appendKey(nil).sum() }

// Protection of a cell. It is effective only when the worksheet is protected.
type Protection struct {
	Locked        bool
	HiddenFormula bool
}

// DefaultProtection is locked with the formula visible.
var DefaultProtection = Protection{Locked: true}

// WithLocked returns a copy of p with Locked set.
func (p Protection) WithLocked(locked bool) Protection {
	p.Locked = locked
	return p
}

// WithHiddenFormula returns a copy of p with HiddenFormula set.
func (p Protection) WithHiddenFormula(hidden bool) Protection {
	p.HiddenFormula = hidden
	return p
}

func (p Protection) appendKey(k key) key { return k.bool(p.Locked).bool(p.HiddenFormula) }

// Hash is consistent with ==.
func (p Protection) Hash() uint64 { return p.appendKey(nil).sum() }

// key is the canonical byte encoding of a formatting record,
// fed to xxhash for a hash that is stable across processes.
type key []byte

func (k key) bool(b bool) key {
	if b {
		return append(k, 1)
	}
	return append(k, 0)
}
func (k key) int(i int) key { return binary.AppendVarint(k, int64(i)) }
func (k key) uint32(u uint32) key {
	return binary.LittleEndian.AppendUint32(k, u)
}
func (k key) float(f float64) key {
	return binary.LittleEndian.AppendUint64(k, math.Float64bits(f))
}
func (k key) string(s string) key {
	return append(binary.AppendUvarint(k, uint64(len(s))), s...)
}
func (k key) sum() uint64 { return xxhash.Sum64(k) }
