package npz

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNPYHeader(t *testing.T) {
	tests := []struct {
		name  string
		descr string
		shape []int
		dict  string
	}{
		{"matrix", "<f4", []int{3, 384}, "{'descr': '<f4', 'fortran_order': False, 'shape': (3, 384), }"},
		{"vector", "<U17", []int{3}, "{'descr': '<U17', 'fortran_order': False, 'shape': (3,), }"},
		{"empty", "<U1", []int{0}, "{'descr': '<U1', 'fortran_order': False, 'shape': (0,), }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := npyHeader(tt.descr, tt.shape...)

			assert.Equal(t, "\x93NUMPY\x01\x00", string(h[:8]))
			assert.Zero(t, len(h)%headerAlign)
			assert.Equal(t, byte('\n'), h[len(h)-1])
			assert.Equal(t, len(h)-10, int(h[8])|int(h[9])<<8)
			assert.Contains(t, string(h), tt.dict)

			arr, err := parseNPY(h)
			require.NoError(t, err)
			assert.Equal(t, tt.descr, arr.descr)
			assert.Equal(t, tt.shape, arr.shape)
			assert.Empty(t, arr.data)
		})
	}
}

func TestUnicodeArray(t *testing.T) {
	values := []string{"abc", "", "日本語テキスト"}
	var buf bytes.Buffer
	require.NoError(t, writeUnicodeArray(&buf, values))

	arr, err := parseNPY(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "<U7", arr.descr)
	assert.Len(t, arr.data, 3*7*4)

	got, err := arr.unicodeValues()
	require.NoError(t, err)
	assert.Equal(t, values, got)
}

func TestUnicodeWidth(t *testing.T) {
	assert.Equal(t, 1, unicodeWidth(nil))
	assert.Equal(t, 1, unicodeWidth([]string{"", ""}))
	assert.Equal(t, 4, unicodeWidth([]string{"ab", "café"}))
}

func TestFloat32Matrix(t *testing.T) {
	rows := [][]float32{{1, 2}, {-0.5, 3.25}}
	var buf bytes.Buffer
	require.NoError(t, writeFloat32Matrix(&buf, rows, 2))

	arr, err := parseNPY(buf.Bytes())
	require.NoError(t, err)
	got, dims, err := arr.float32Rows()
	require.NoError(t, err)
	assert.Equal(t, 2, dims)
	assert.Equal(t, rows, got)

	err = writeFloat32Matrix(&bytes.Buffer{}, [][]float32{{1}}, 2)
	assert.ErrorContains(t, err, "row 0")
}

func TestParseNPY_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{"short", []byte("abc"), "not a .npy"},
		{"bad magic", []byte("NOTNUMPY\x00\x00"), "not a .npy"},
		{"bad version", []byte("\x93NUMPY\x09\x00\x00\x00"), "unsupported .npy version"},
		{"truncated", []byte("\x93NUMPY\x01\x00\xff\x00{}"), "truncated"},
		{"fortran", []byte("\x93NUMPY\x01\x00\x3a\x00{'descr': '<f4', 'fortran_order': True, 'shape': (1, 1), }"), "fortran"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseNPY(tt.raw)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestNPYArray_DtypeMismatch(t *testing.T) {
	arr, err := parseNPY(npyHeader("<U3", 0))
	require.NoError(t, err)
	_, _, err = arr.float32Rows()
	assert.ErrorContains(t, err, "expected <f4")

	arr, err = parseNPY(npyHeader("<f4", 0, 2))
	require.NoError(t, err)
	_, err = arr.unicodeValues()
	assert.ErrorContains(t, err, "expected <U")
}
