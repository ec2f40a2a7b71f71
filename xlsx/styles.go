// Copyright 2020, 2023 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"fmt"

	"github.com/valyala/quicktemplate"

	"github.com/UNO-SOFT/largexlsx"
)

// xf is a cellXfs entry: indexes into the aspect tables.
type xf struct {
	numFmt, font, fill, border int
}

// styleTable is the style registry split into its aspect tables.
type styleTable struct {
	styles  []largexlsx.Style
	xfs     []xf
	fonts   *registry[largexlsx.Font]
	fills   *registry[largexlsx.Fill]
	borders *registry[largexlsx.Border]
	numFmts *registry[string]
}

// newStyleTable dedups the aspects of styles, which is in index order.
func newStyleTable(styles []largexlsx.Style) *styleTable {
	t := &styleTable{
		styles: styles,
		xfs:    make([]xf, len(styles)),
		fonts:  newRegistry(largexlsx.DefaultFont),
		// the second fill is reserved by consumers
		fills:   newRegistry(largexlsx.DefaultFill, largexlsx.Fill{Pattern: largexlsx.PatternGray125}),
		borders: newRegistry(largexlsx.DefaultBorder),
		numFmts: newRegistry[string](),
	}
	for i, s := range styles {
		x := xf{
			font:   t.fonts.intern(s.Font),
			fill:   t.fills.intern(s.Fill),
			border: t.borders.intern(s.Border),
			numFmt: s.NumberFormat.ID(),
		}
		if s.NumberFormat.IsCustom() {
			x.numFmt = largexlsx.FirstCustomNumberFormatID + t.numFmts.intern(s.NumberFormat.Code())
		}
		t.xfs[i] = x
	}
	return t
}

func (t *styleTable) write(qw *quicktemplate.Writer) {
	n := qw.N()
	n.S(xmlHeader)
	n.S(`<styleSheet xmlns="` + nsMain + `">`)

	if codes := t.numFmts.export(); len(codes) != 0 {
		n.S(`<numFmts`)
		attrInt(qw, "count", len(codes))
		n.S(`>`)
		for i, code := range codes {
			n.S(`<numFmt`)
			attrInt(qw, "numFmtId", largexlsx.FirstCustomNumberFormatID+i)
			attr(qw, "formatCode", code)
			n.S(`/>`)
		}
		n.S(`</numFmts>`)
	}

	fonts := t.fonts.export()
	n.S(`<fonts`)
	attrInt(qw, "count", len(fonts))
	n.S(`>`)
	for _, f := range fonts {
		n.S(`<font>`)
		writeFont(qw, f, "name")
		n.S(`</font>`)
	}
	n.S(`</fonts>`)

	fills := t.fills.export()
	n.S(`<fills`)
	attrInt(qw, "count", len(fills))
	n.S(`>`)
	for _, f := range fills {
		n.S(`<fill><patternFill`)
		attr(qw, "patternType", f.Pattern.String())
		if f.Pattern == largexlsx.PatternNone || f.Color == 0 {
			n.S(`/></fill>`)
			continue
		}
		n.S(`><fgColor`)
		attr(qw, "rgb", f.Color.String())
		n.S(`/><bgColor indexed="64"/></patternFill></fill>`)
	}
	n.S(`</fills>`)

	borders := t.borders.export()
	n.S(`<borders`)
	attrInt(qw, "count", len(borders))
	n.S(`>`)
	for _, b := range borders {
		n.S(`<border`)
		if b.DiagonalUp {
			n.S(` diagonalUp="1"`)
		}
		if b.DiagonalDown {
			n.S(` diagonalDown="1"`)
		}
		n.S(`>`)
		writeBorderLine(qw, "left", b.Left)
		writeBorderLine(qw, "right", b.Right)
		writeBorderLine(qw, "top", b.Top)
		writeBorderLine(qw, "bottom", b.Bottom)
		writeBorderLine(qw, "diagonal", b.Diagonal)
		n.S(`</border>`)
	}
	n.S(`</borders>`)

	n.S(`<cellStyleXfs count="1"><xf numFmtId="0" fontId="0" fillId="0" borderId="0"/></cellStyleXfs>`)
	n.S(`<cellXfs`)
	attrInt(qw, "count", len(t.xfs))
	n.S(`>`)
	for i, x := range t.xfs {
		writeXf(qw, x, t.styles[i])
	}
	n.S(`</cellXfs>`)
	n.S(`<cellStyles count="1"><cellStyle name="Normal" xfId="0" builtinId="0"/></cellStyles>`)
	n.S(`<dxfs count="0"/>`)
	n.S(`</styleSheet>`)
}

func writeBorderLine(qw *quicktemplate.Writer, tag string, l largexlsx.BorderLine) {
	n := qw.N()
	n.S(`<`)
	n.S(tag)
	if l.Style == largexlsx.BorderNone {
		n.S(`/>`)
		return
	}
	attr(qw, "style", l.Style.String())
	n.S(`>`)
	if l.Color != 0 {
		n.S(`<color`)
		attr(qw, "rgb", l.Color.String())
		n.S(`/>`)
	}
	n.S(`</`)
	n.S(tag)
	n.S(`>`)
}

func writeXf(qw *quicktemplate.Writer, x xf, s largexlsx.Style) {
	n := qw.N()
	n.S(`<xf`)
	attrInt(qw, "numFmtId", x.numFmt)
	attrInt(qw, "fontId", x.font)
	attrInt(qw, "fillId", x.fill)
	attrInt(qw, "borderId", x.border)
	n.S(` xfId="0"`)
	if x.numFmt != 0 {
		n.S(` applyNumberFormat="1"`)
	}
	if x.font != 0 {
		n.S(` applyFont="1"`)
	}
	if x.fill != 0 {
		n.S(` applyFill="1"`)
	}
	if x.border != 0 {
		n.S(` applyBorder="1"`)
	}
	hasAlignment := s.Alignment != largexlsx.DefaultAlignment
	hasProtection := s.Protection != largexlsx.DefaultProtection
	if hasAlignment {
		n.S(` applyAlignment="1"`)
	}
	if hasProtection {
		n.S(` applyProtection="1"`)
	}
	if !hasAlignment && !hasProtection {
		n.S(`/>`)
		return
	}
	n.S(`>`)
	if hasAlignment {
		writeAlignment(qw, s.Alignment)
	}
	if hasProtection {
		n.S(`<protection`)
		attr(qw, "locked", boolAttr(s.Protection.Locked))
		attr(qw, "hidden", boolAttr(s.Protection.HiddenFormula))
		n.S(`/>`)
	}
	n.S(`</xf>`)
}

func writeAlignment(qw *quicktemplate.Writer, a largexlsx.Alignment) {
	n := qw.N()
	n.S(`<alignment`)
	if a.Horizontal != largexlsx.HorizontalGeneral {
		attr(qw, "horizontal", a.Horizontal.String())
	}
	if a.Vertical != largexlsx.VerticalBottom {
		attr(qw, "vertical", a.Vertical.String())
	}
	if a.TextRotation != 0 {
		attrInt(qw, "textRotation", a.TextRotation)
	}
	if a.WrapText {
		n.S(` wrapText="1"`)
	}
	if a.Indent != 0 {
		attrInt(qw, "indent", a.Indent)
	}
	if a.RelativeIndent != 0 {
		attrInt(qw, "relativeIndent", a.RelativeIndent)
	}
	if a.JustifyLastLine {
		n.S(` justifyLastLine="1"`)
	}
	if a.ShrinkToFit {
		n.S(` shrinkToFit="1"`)
	}
	if a.ReadingOrder != largexlsx.ReadingOrderContextDependent {
		attrInt(qw, "readingOrder", int(a.ReadingOrder))
	}
	n.S(`/>`)
}

func boolAttr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// registry interns values to sequential indexes, first seen first.
// An index, once returned, is never changed.
//
// Not safe for concurrent use.
type registry[K comparable] struct {
	index map[K]int
	items []K
}

func newRegistry[K comparable](preset ...K) *registry[K] {
	r := &registry[K]{index: make(map[K]int, len(preset))}
	for _, k := range preset {
		r.intern(k)
	}
	return r
}

// intern returns the index of k, assigning the next one if k is new.
func (r *registry[K]) intern(k K) int {
	if i, ok := r.index[k]; ok {
		return i
	}
	i := len(r.items)
	r.index[k] = i
	r.items = append(r.items, k)
	if len(r.index) != len(r.items) {
		panic(fmt.Sprintf("registry: %d keys for %d items", len(r.index), len(r.items)))
	}
	return i
}

// lookup returns the index of an already interned k.
func (r *registry[K]) lookup(k K) (int, bool) {
	i, ok := r.index[k]
	return i, ok
}

// export returns the interned values, position equals index.
// The returned slice must not be modified.
func (r *registry[K]) export() []K { return r.items[:len(r.items):len(r.items)] }

func (r *registry[K]) len() int { return len(r.items) }

// stringRegistry is the shared string table.
type stringRegistry struct {
	*registry[string]
	refs int
}

func newStringRegistry() *stringRegistry {
	return &stringRegistry{registry: newRegistry[string]()}
}

// intern also counts the reference for the table's count attribute.
func (r *stringRegistry) intern(s string) int {
	r.refs++
	return r.registry.intern(s)
}
