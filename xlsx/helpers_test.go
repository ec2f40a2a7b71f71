// Copyright 2020, 2023 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx_test

import (
	"bytes"
	"encoding/xml"
	"io"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/UNO-SOFT/largexlsx/xlsx"
)

func newWriter(t *testing.T, options ...xlsx.Option) (*xlsx.Writer, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	w, err := xlsx.NewWriter(&buf, options...)
	require.NoError(t, err)
	return w, &buf
}

// open closes w and opens the result.
func open(t *testing.T, w *xlsx.Writer, buf *bytes.Buffer) *excelize.File {
	t.Helper()
	require.NoError(t, w.Close())
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

// readPart returns the uncompressed content of the named container entry.
func readPart(t *testing.T, buf *bytes.Buffer, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(b)
	}
	require.Failf(t, "missing part", "%s not in %v", name, entryNames(t, buf))
	return ""
}

func entryNames(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	return names
}

type styleSheet struct {
	NumFmts struct {
		NumFmt []struct {
			ID   int    `xml:"numFmtId,attr"`
			Code string `xml:"formatCode,attr"`
		} `xml:"numFmt"`
	} `xml:"numFmts"`
	Fonts struct {
		Count int        `xml:"count,attr"`
		Font  []struct{} `xml:"font"`
	} `xml:"fonts"`
	Fills struct {
		Count int `xml:"count,attr"`
		Fill  []struct {
			Pattern struct {
				Type string `xml:"patternType,attr"`
			} `xml:"patternFill"`
		} `xml:"fill"`
	} `xml:"fills"`
	CellXfs struct {
		Count int        `xml:"count,attr"`
		Xf    []struct{} `xml:"xf"`
	} `xml:"cellXfs"`
}

func readStyles(t *testing.T, buf *bytes.Buffer) styleSheet {
	t.Helper()
	var ss styleSheet
	require.NoError(t, xml.Unmarshal([]byte(readPart(t, buf, "xl/styles.xml")), &ss))
	return ss
}

type sharedStrings struct {
	Count       int `xml:"count,attr"`
	UniqueCount int `xml:"uniqueCount,attr"`
	SI          []struct {
		T string `xml:"t"`
	} `xml:"si"`
}

func readSharedStrings(t *testing.T, buf *bytes.Buffer) sharedStrings {
	t.Helper()
	var sst sharedStrings
	require.NoError(t, xml.Unmarshal([]byte(readPart(t, buf, "xl/sharedStrings.xml")), &sst))
	return sst
}

// errSink fails every Write.
type errSink struct{ err error }

func (s errSink) Write(p []byte) (int, error) { return 0, s.err }
