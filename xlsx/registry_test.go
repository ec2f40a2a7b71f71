// Copyright 2020, 2023 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"testing"
	"time"

	"github.com/UNO-SOFT/largexlsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := newRegistry("zero")
	assert.Equal(t, 0, r.intern("zero"))
	assert.Equal(t, 1, r.intern("one"))
	assert.Equal(t, 2, r.intern("two"))
	assert.Equal(t, 1, r.intern("one"))
	assert.Equal(t, 3, r.len())

	i, ok := r.lookup("two")
	assert.True(t, ok)
	assert.Equal(t, 2, i)
	_, ok = r.lookup("three")
	assert.False(t, ok)

	assert.Equal(t, []string{"zero", "one", "two"}, r.export())
}

func TestStyleRegistry(t *testing.T) {
	r := newRegistry(largexlsx.DefaultStyle)
	bold := largexlsx.DefaultStyle.WithFont(largexlsx.DefaultFont.WithBold(true))
	alsoBold := largexlsx.Style{
		Font:       largexlsx.Font{Name: "Calibri", Size: 11, Color: largexlsx.Black, Bold: true},
		Protection: largexlsx.Protection{Locked: true},
	}
	assert.Equal(t, 0, r.intern(largexlsx.DefaultStyle))
	assert.Equal(t, 1, r.intern(bold))
	assert.Equal(t, 1, r.intern(alsoBold))
	assert.Equal(t, 2, r.len())
}

func TestStringRegistry(t *testing.T) {
	r := newStringRegistry()
	assert.Equal(t, 0, r.intern("a"))
	assert.Equal(t, 1, r.intern("b"))
	assert.Equal(t, 0, r.intern("a"))
	assert.Equal(t, 2, r.len())
	assert.Equal(t, 3, r.refs)
}

func TestStyleTable(t *testing.T) {
	code, err := largexlsx.NewNumberFormat("0.000")
	require.NoError(t, err)
	red := largexlsx.SolidFill(largexlsx.RGB(255, 0, 0))
	styles := []largexlsx.Style{
		largexlsx.DefaultStyle,
		largexlsx.DefaultStyle.WithFill(red),
		largexlsx.DefaultStyle.WithFill(red).WithNumberFormat(code),
		largexlsx.DefaultStyle.WithNumberFormat(code).WithFont(largexlsx.DefaultFont.WithItalic(true)),
	}
	st := newStyleTable(styles)
	assert.Equal(t, 2, st.fonts.len())
	assert.Equal(t, 3, st.fills.len(), "none, gray125 and red")
	assert.Equal(t, 1, st.borders.len())
	assert.Equal(t, 1, st.numFmts.len())
	assert.Equal(t, []xf{
		{},
		{fill: 2},
		{fill: 2, numFmt: largexlsx.FirstCustomNumberFormatID},
		{font: 1, numFmt: largexlsx.FirstCustomNumberFormatID},
	}, st.xfs)
}

func TestColumnName(t *testing.T) {
	for col, want := range map[int]string{
		1: "A", 2: "B", 26: "Z", 27: "AA", 52: "AZ", 53: "BA", 702: "ZZ", 703: "AAA",
		MaxColumnCount: "XFD",
	} {
		assert.Equal(t, want, ColumnName(col), col)
	}
	assert.Equal(t, "C7", CellRef(7, 3))
	assert.Equal(t, "$B$2", string(appendCellRef(nil, 2, 2, true)))
	assert.Equal(t, "A1:C4", cellRange{fromRow: 1, fromCol: 1, rows: 4, cols: 3}.ref(false))
	assert.Equal(t, "'it''s'", quoteSheetName("it's"))
}

func TestTimeSerial(t *testing.T) {
	for _, tc := range []struct {
		t    time.Time
		want float64
	}{
		{time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(1900, 2, 28, 0, 0, 0, 0, time.UTC), 59},
		{time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC), 61},
		{time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), 45306},
		{time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), 45306.5},
		// the wall clock counts, not the instant
		{time.Date(2024, 1, 15, 18, 0, 0, 0, time.FixedZone("X", 5*3600)), 45306.75},
	} {
		got, err := timeSerial(tc.t)
		require.NoError(t, err, tc.t)
		assert.InDelta(t, tc.want, got, 1e-9, tc.t)
	}
	_, err := timeSerial(time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, largexlsx.ErrInvalidCellValue)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "ab", cleanText("a\x00b"))
	assert.Equal(t, "a\tb\n", cleanText("a\tb\n"))
	assert.Equal(t, "a�b", cleanText("a\xffb"))
	assert.True(t, needsPreserve(" x"))
	assert.True(t, needsPreserve("x\n"))
	assert.False(t, needsPreserve("x y"))
}
