// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package largexlsx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UNO-SOFT/largexlsx"
)

func TestDefaultProtection(t *testing.T) {
	p := largexlsx.DefaultProtection
	assert.True(t, p.Locked)
	assert.False(t, p.HiddenFormula)
	assert.Equal(t, largexlsx.DefaultProtection, largexlsx.DefaultStyle.Protection)
}

func TestProtectionWith(t *testing.T) {
	p := largexlsx.DefaultProtection.WithLocked(false)
	assert.False(t, p.Locked)
	assert.False(t, p.HiddenFormula)
	assert.True(t, largexlsx.DefaultProtection.Locked, "the receiver is a copy")

	p = largexlsx.DefaultProtection.WithHiddenFormula(true)
	assert.True(t, p.Locked)
	assert.True(t, p.HiddenFormula)

	q := largexlsx.Protection{}.WithLocked(true).WithHiddenFormula(true)
	assert.Equal(t, p, q)
	assert.Equal(t, p.Hash(), q.Hash())
	assert.NotEqual(t, p.Hash(), largexlsx.DefaultProtection.Hash())
}

func TestStyleEquality(t *testing.T) {
	f1, err := largexlsx.NewNumberFormat("0.000")
	require.NoError(t, err)
	f2, err := largexlsx.NewNumberFormat("0.000")
	require.NoError(t, err)

	a := largexlsx.DefaultStyle.
		WithNumberFormat(f1).
		WithFont(largexlsx.DefaultFont.WithBold(true).WithColor(largexlsx.RGB(0x12, 0x34, 0x56))).
		WithFill(largexlsx.SolidFill(largexlsx.White)).
		WithBorder(largexlsx.AllSides(largexlsx.Line(largexlsx.BorderThin, largexlsx.Black)))
	b := largexlsx.Style{
		NumberFormat: f2,
		Font:         largexlsx.Font{Name: "Calibri", Size: 11, Color: 0xFF123456, Bold: true},
		Fill:         largexlsx.Fill{Pattern: largexlsx.PatternSolid, Color: 0xFFFFFFFF},
		Border: largexlsx.DefaultBorder.
			WithLeft(largexlsx.Line(largexlsx.BorderThin, largexlsx.Black)).
			WithRight(largexlsx.Line(largexlsx.BorderThin, largexlsx.Black)).
			WithTop(largexlsx.Line(largexlsx.BorderThin, largexlsx.Black)).
			WithBottom(largexlsx.Line(largexlsx.BorderThin, largexlsx.Black)),
		Protection: largexlsx.DefaultProtection,
	}
	assert.Equal(t, a, b)
	assert.True(t, a == b)
	assert.Equal(t, a.Hash(), b.Hash())
	require.NoError(t, a.Validate())

	c := a.WithAlignment(largexlsx.DefaultAlignment.WithWrapText(true))
	assert.False(t, a == c)
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestStyleValidate(t *testing.T) {
	for name, s := range map[string]largexlsx.Style{
		"empty font name":    largexlsx.DefaultStyle.WithFont(largexlsx.DefaultFont.WithName("")),
		"zero font size":     largexlsx.DefaultStyle.WithFont(largexlsx.DefaultFont.WithSize(0)),
		"huge font size":     largexlsx.DefaultStyle.WithFont(largexlsx.DefaultFont.WithSize(410)),
		"unknown pattern":    largexlsx.DefaultStyle.WithFill(largexlsx.Fill{Pattern: 99}),
		"unknown border":     largexlsx.DefaultStyle.WithBorder(largexlsx.Border{Top: largexlsx.BorderLine{Style: 99}}),
		"rotation literal":   largexlsx.DefaultStyle.WithAlignment(largexlsx.Alignment{TextRotation: 200}),
		"unknown underline":  largexlsx.DefaultStyle.WithFont(largexlsx.DefaultFont.WithUnderline(42)),
		"unknown horizontal": largexlsx.DefaultStyle.WithAlignment(largexlsx.Alignment{Horizontal: 42}),
	} {
		assert.ErrorIs(t, s.Validate(), largexlsx.ErrInvalidFormatValue, name)
	}
	assert.NoError(t, largexlsx.DefaultStyle.Validate())
}

func TestNumberFormat(t *testing.T) {
	assert.Equal(t, "General", largexlsx.NumberFormatGeneral.Code())
	assert.Equal(t, 0, largexlsx.NumberFormatGeneral.ID())
	assert.Equal(t, 14, largexlsx.NumberFormatShortDate.ID())
	assert.False(t, largexlsx.NumberFormatText.IsCustom())

	f, err := largexlsx.NewNumberFormat("yyyy-mm-dd")
	require.NoError(t, err)
	assert.True(t, f.IsCustom())
	assert.Equal(t, "yyyy-mm-dd", f.Code())

	_, err = largexlsx.NewNumberFormat("  ")
	assert.ErrorIs(t, err, largexlsx.ErrInvalidFormatValue)
}

func TestColor(t *testing.T) {
	assert.Equal(t, "FF000000", largexlsx.Black.String())
	assert.Equal(t, "FFFF8000", largexlsx.RGB(255, 128, 0).String())
}

func TestDefaultAlignment(t *testing.T) {
	a := largexlsx.DefaultAlignment
	assert.Equal(t, largexlsx.HorizontalGeneral, a.Horizontal)
	assert.Equal(t, largexlsx.VerticalBottom, a.Vertical)
	assert.Equal(t, largexlsx.ReadingOrderContextDependent, a.ReadingOrder)
	assert.Zero(t, a.TextRotation)
	assert.Zero(t, a.Indent)
	assert.Zero(t, a.RelativeIndent)
	assert.False(t, a.WrapText)
	assert.False(t, a.ShrinkToFit)
	assert.False(t, a.JustifyLastLine)
	assert.Equal(t, largexlsx.Alignment{}, a)
	require.NoError(t, a.Validate())
}

func TestAlignmentNames(t *testing.T) {
	assert.Equal(t, "centerContinuous", largexlsx.HorizontalCenterContinuous.String())
	assert.Equal(t, "distributed", largexlsx.HorizontalDistributed.String())
	assert.Equal(t, "top", largexlsx.VerticalTop.String())
	assert.Equal(t, "bottom", largexlsx.VerticalBottom.String())
	assert.EqualValues(t, 2, largexlsx.ReadingOrderRightToLeft)
}

func TestAlignmentTextRotation(t *testing.T) {
	for _, r := range []int{0, 45, 90, 91, 180, largexlsx.VerticalText} {
		a, err := largexlsx.DefaultAlignment.WithTextRotation(r)
		require.NoError(t, err, r)
		assert.Equal(t, r, a.TextRotation)
	}
	for _, r := range []int{-1, 181, 254, 256} {
		_, err := largexlsx.DefaultAlignment.WithTextRotation(r)
		assert.ErrorIs(t, err, largexlsx.ErrInvalidFormatValue, r)
	}
}

func TestAlignmentIndent(t *testing.T) {
	a, err := largexlsx.DefaultAlignment.WithIndent(largexlsx.MaxIndent)
	require.NoError(t, err)
	assert.Equal(t, largexlsx.MaxIndent, a.Indent)
	_, err = largexlsx.DefaultAlignment.WithIndent(-1)
	assert.ErrorIs(t, err, largexlsx.ErrInvalidFormatValue)
	_, err = largexlsx.DefaultAlignment.WithIndent(largexlsx.MaxIndent + 1)
	assert.ErrorIs(t, err, largexlsx.ErrInvalidFormatValue)

	a, err = largexlsx.DefaultAlignment.WithRelativeIndent(-3)
	require.NoError(t, err)
	assert.Equal(t, -3, a.RelativeIndent)
}

func TestAlignmentEquality(t *testing.T) {
	a := largexlsx.DefaultAlignment.
		WithHorizontal(largexlsx.HorizontalCenter).
		WithVertical(largexlsx.VerticalTop).
		WithWrapText(true).
		WithReadingOrder(largexlsx.ReadingOrderRightToLeft)
	b := largexlsx.Alignment{
		Horizontal:   largexlsx.HorizontalCenter,
		Vertical:     largexlsx.VerticalTop,
		WrapText:     true,
		ReadingOrder: largexlsx.ReadingOrderRightToLeft,
	}
	assert.True(t, a == b)
	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), a.WithShrinkToFit(true).Hash())
	assert.NotEqual(t, a.Hash(), largexlsx.DefaultAlignment.Hash())
}
