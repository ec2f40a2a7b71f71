// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package largexlsx_test

import (
	"io"
	"strings"
	"testing"

	"github.com/UNO-SOFT/largexlsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestDetectSeparator(t *testing.T) {
	for in, want := range map[string]rune{
		"a,b,c\n1,2,3":    ',',
		"name;value\nx;1": ';',
		"first\tsecond":   '\t',
		`"a b"|"c"`:       '|',
		"single\nx,y":     ',',
		"":                ',',
		"árvíztűrő;tükör": ';',
	} {
		assert.Equal(t, want, largexlsx.DetectSeparator([]byte(in)), in)
	}
}

func TestGetEncoding(t *testing.T) {
	enc, err := largexlsx.GetEncoding("UTF-8")
	require.NoError(t, err)
	assert.Nil(t, enc)

	enc, err = largexlsx.GetEncoding("iso-8859-2")
	require.NoError(t, err)
	assert.NotNil(t, enc)

	_, err = largexlsx.GetEncoding("no-such-charset")
	assert.Error(t, err)
}

func TestNewCsvReader(t *testing.T) {
	latin2, err := charmap.ISO8859_2.NewEncoder().String("név;érték\nőz;1\n")
	require.NoError(t, err)
	cr, err := largexlsx.NewCsvReader(io.NopCloser(strings.NewReader(latin2)), charmap.ISO8859_2)
	require.NoError(t, err)
	defer cr.Close()
	assert.Equal(t, ';', cr.Comma)

	rec, err := cr.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"név", "érték"}, rec)
	rec, err = cr.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"őz", "1"}, rec)
	_, err = cr.Read()
	assert.ErrorIs(t, err, io.EOF)
}
