// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package largexlsx

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// EncName is the charset of the environment's LANG, "utf-8" by default.
var EncName = "utf-8"

func init() {
	EncName = os.Getenv("LANG")
	if i := strings.IndexByte(EncName, '.'); i >= 0 {
		EncName = strings.ToLower(EncName[i+1:])
	}
	if EncName == "" || EncName == "c" || EncName == "posix" {
		EncName = "utf-8"
	}
}

// GetEncoding returns nil for UTF-8, which needs no decoding.
func GetEncoding(encName string) (encoding.Encoding, error) {
	encName = strings.ToLower(encName)
	if encName == "" || encName == "utf-8" || encName == "utf8" {
		return nil, nil
	}
	enc, err := htmlindex.Get(encName)
	if err != nil {
		err = fmt.Errorf("%q: %w", encName, err)
	}
	return enc, err
}

// CsvReader is a csv.Reader owning its source.
type CsvReader struct {
	*csv.Reader
	io.Closer
}

// OpenCsv opens fn (stdin for "" or "-") decoding it from encName,
// with the field separator guessed from the first KiB.
func OpenCsv(fn, encName string) (CsvReader, error) {
	var enc encoding.Encoding
	if encName != "" {
		var err error
		if enc, err = GetEncoding(encName); err != nil {
			return CsvReader{}, err
		}
	}
	fh := os.Stdin
	if !(fn == "" || fn == "-") {
		var err error
		if fh, err = os.Open(fn); err != nil {
			return CsvReader{}, err
		}
	}
	return NewCsvReader(fh, enc)
}

// NewCsvReader wraps r; enc may be nil for UTF-8.
func NewCsvReader(r io.ReadCloser, enc encoding.Encoding) (CsvReader, error) {
	src := io.Reader(r)
	if enc != nil {
		src = enc.NewDecoder().Reader(r)
	}
	br := bufio.NewReaderSize(src, 1<<20)
	b, err := br.Peek(1024)
	if err != nil && len(b) == 0 {
		r.Close()
		return CsvReader{}, err
	}

	cr := csv.NewReader(br)
	cr.ReuseRecord = true
	cr.Comma = DetectSeparator(b)
	return CsvReader{Reader: cr, Closer: r}, nil
}

// DetectSeparator returns the first rune of b that cannot be part of a field,
// ',' if there is none.
func DetectSeparator(b []byte) rune {
	for _, r := range string(b) {
		if r == '"' || r == '_' || r == '.' || r == '-' || r == ' ' ||
			unicode.IsLetter(r) || unicode.IsNumber(r) {
			continue
		}
		if r == '\r' || r == '\n' {
			break
		}
		return r
	}
	return ','
}
