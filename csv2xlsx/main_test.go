// Copyright 2021 Tamas Gulacsi. All rights reserved.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/UNO-SOFT/largexlsx"
	"github.com/UNO-SOFT/largexlsx/xlsx"
)

func TestCellValue(t *testing.T) {
	assert.Nil(t, cellValue("", true))
	assert.Equal(t, largexlsx.Number("12.5"), cellValue("12.5", true))
	assert.Equal(t, "12.5", cellValue("12.5", false))
	for _, s := range []string{"NaN", "Inf", "0x1F", "1_000", "12a"} {
		assert.Equal(t, s, cellValue(s, true), s)
	}
}

func TestCopyFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(fn, []byte("name;qty\nalma;3\nkörte;\n"), 0o644))

	var buf bytes.Buffer
	w, err := xlsx.NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, copyFile(context.Background(), w, "Fruits", fn,
		config{encName: "utf-8", numbers: true, freeze: true}))
	require.NoError(t, w.Close())

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Fruits")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"name", "qty"}, {"alma", "3"}, {"körte"}}, rows)

	idx, err := f.GetCellStyle("Fruits", "B1")
	require.NoError(t, err)
	st, err := f.GetStyle(idx)
	require.NoError(t, err)
	assert.True(t, st.Font.Bold)

	typ, err := f.GetCellType("Fruits", "B2")
	require.NoError(t, err)
	assert.Equal(t, excelize.CellTypeUnset, typ, "numbers have no type attribute")
}

func TestCopyFileCanceled(t *testing.T) {
	var data bytes.Buffer
	data.WriteString("a,b\n")
	for i := 0; i < 20_000; i++ {
		data.WriteString("x,1\n")
	}
	fn := filepath.Join(t.TempDir(), "big.csv")
	require.NoError(t, os.WriteFile(fn, data.Bytes(), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	w, err := xlsx.NewWriter(&buf)
	require.NoError(t, err)
	err = copyFile(ctx, w, "Big", fn, config{encName: "utf-8"})
	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, w.Abort())
}
