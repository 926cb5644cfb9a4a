package npz

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// npyMagic starts every .npy file.
const npyMagic = "\x93NUMPY"

// headerAlign is the alignment numpy uses for the data section.
const headerAlign = 64

// float32Descr is the dtype of the embedding matrix.
const float32Descr = "<f4"

var (
	descrPattern   = regexp.MustCompile(`'descr':\s*'([^']*)'`)
	fortranPattern = regexp.MustCompile(`'fortran_order':\s*(True|False)`)
	shapePattern   = regexp.MustCompile(`'shape':\s*\(([^)]*)\)`)
)

// npyHeader returns a version 1.0 header for an array of descr and shape.
func npyHeader(descr string, shape ...int) []byte {
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = strconv.Itoa(d)
	}
	shapeText := "(" + strings.Join(dims, ", ")
	if len(shape) == 1 {
		shapeText += ","
	}
	shapeText += ")"

	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", descr, shapeText)
	prefix := len(npyMagic) + 4
	pad := (headerAlign - (prefix+len(dict)+1)%headerAlign) % headerAlign
	dict += strings.Repeat(" ", pad) + "\n"

	var buf bytes.Buffer
	buf.WriteString(npyMagic)
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(dict)))
	buf.WriteString(dict)
	return buf.Bytes()
}

// writeFloat32Matrix writes rows as a (len(rows), dims) little-endian float32 array.
func writeFloat32Matrix(w io.Writer, rows [][]float32, dims int) error {
	if _, err := w.Write(npyHeader(float32Descr, len(rows), dims)); err != nil {
		return err
	}
	row := make([]byte, 4*dims)
	for i, v := range rows {
		if len(v) != dims {
			return fmt.Errorf("row %d has %d values, expected %d", i, len(v), dims)
		}
		for j, f := range v {
			binary.LittleEndian.PutUint32(row[4*j:], math.Float32bits(f))
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// unicodeWidth returns the fixed code point width numpy picks for values.
// An array of empty strings still has width 1.
func unicodeWidth(values []string) int {
	width := 1
	for _, s := range values {
		width = max(width, utf8.RuneCountInString(s))
	}
	return width
}

// writeUnicodeArray writes values as a 1-d "<U{width}" array: UTF-32LE code
// points padded with zeros to the widest value.
func writeUnicodeArray(w io.Writer, values []string) error {
	width := unicodeWidth(values)
	descr := "<U" + strconv.Itoa(width)
	if _, err := w.Write(npyHeader(descr, len(values))); err != nil {
		return err
	}
	cell := make([]byte, 4*width)
	for _, s := range values {
		clear(cell)
		i := 0
		for _, r := range s {
			binary.LittleEndian.PutUint32(cell[4*i:], uint32(r))
			i++
		}
		if _, err := w.Write(cell); err != nil {
			return err
		}
	}
	return nil
}

// npyArray is a decoded .npy header plus its raw data.
type npyArray struct {
	descr string
	shape []int
	data  []byte
}

// parseNPY decodes a .npy file held in memory. Versions 1.0 to 3.0 are accepted.
func parseNPY(raw []byte) (*npyArray, error) {
	if len(raw) < len(npyMagic)+4 || string(raw[:len(npyMagic)]) != npyMagic {
		return nil, fmt.Errorf("not a .npy array")
	}
	major := raw[len(npyMagic)]
	offset := len(npyMagic) + 2

	var headerLen int
	switch major {
	case 1:
		headerLen = int(binary.LittleEndian.Uint16(raw[offset:]))
		offset += 2
	case 2, 3:
		if len(raw) < offset+4 {
			return nil, fmt.Errorf("truncated .npy header")
		}
		headerLen = int(binary.LittleEndian.Uint32(raw[offset:]))
		offset += 4
	default:
		return nil, fmt.Errorf("unsupported .npy version %d", major)
	}
	if len(raw) < offset+headerLen {
		return nil, fmt.Errorf("truncated .npy header")
	}
	header := string(raw[offset : offset+headerLen])

	descr := descrPattern.FindStringSubmatch(header)
	if descr == nil {
		return nil, fmt.Errorf("header has no descr")
	}
	if m := fortranPattern.FindStringSubmatch(header); m != nil && m[1] == "True" {
		return nil, fmt.Errorf("fortran order arrays are not supported")
	}
	shapeMatch := shapePattern.FindStringSubmatch(header)
	if shapeMatch == nil {
		return nil, fmt.Errorf("header has no shape")
	}

	var shape []int
	for _, part := range strings.Split(shapeMatch[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid shape %q", shapeMatch[1])
		}
		shape = append(shape, d)
	}

	return &npyArray{descr: descr[1], shape: shape, data: raw[offset+headerLen:]}, nil
}

// float32Rows decodes a 2-d "<f4" array.
func (a *npyArray) float32Rows() ([][]float32, int, error) {
	if a.descr != float32Descr {
		return nil, 0, fmt.Errorf("dtype %s, expected %s", a.descr, float32Descr)
	}
	if len(a.shape) != 2 {
		return nil, 0, fmt.Errorf("expected 2 dimensions, got %d", len(a.shape))
	}
	n, dims := a.shape[0], a.shape[1]
	if len(a.data) != 4*n*dims {
		return nil, 0, fmt.Errorf("data has %d bytes, expected %d", len(a.data), 4*n*dims)
	}

	rows := make([][]float32, n)
	for i := range rows {
		row := make([]float32, dims)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(a.data[4*(i*dims+j):]))
		}
		rows[i] = row
	}
	return rows, dims, nil
}

// unicodeValues decodes a 1-d "<U{width}" array, dropping the zero padding.
func (a *npyArray) unicodeValues() ([]string, error) {
	if !strings.HasPrefix(a.descr, "<U") {
		return nil, fmt.Errorf("dtype %s, expected <U", a.descr)
	}
	width, err := strconv.Atoi(a.descr[2:])
	if err != nil || width < 0 {
		return nil, fmt.Errorf("invalid dtype %s", a.descr)
	}
	if len(a.shape) != 1 {
		return nil, fmt.Errorf("expected 1 dimension, got %d", len(a.shape))
	}
	n := a.shape[0]
	if len(a.data) != 4*n*width {
		return nil, fmt.Errorf("data has %d bytes, expected %d", len(a.data), 4*n*width)
	}

	out := make([]string, n)
	var sb strings.Builder
	for i := range out {
		sb.Reset()
		cell := a.data[4*i*width : 4*(i+1)*width]
		for j := 0; j < width; j++ {
			r := rune(binary.LittleEndian.Uint32(cell[4*j:]))
			if r == 0 {
				break
			}
			sb.WriteRune(r)
		}
		out[i] = sb.String()
	}
	return out, nil
}
