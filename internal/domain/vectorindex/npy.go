package vectorindex

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// The embedding matrix artifact uses the NumPy .npy v1.0 layout so the file can
// be inspected with standard tooling:
//
//	\x93NUMPY | major=1 minor=0 | uint16 LE header length | ASCII dict header | N*D float32 LE
//
// The header dict is {'descr': '<f4', 'fortran_order': False, 'shape': (N, D), }
// padded with spaces and terminated by '\n' so the payload starts on a 64-byte boundary.

const (
	npyMagic       = "\x93NUMPY"
	npyAlignment   = 64
	npyMaxElements = 1 << 28
)

var (
	npyDescrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	npyFortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	npyShapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// EncodeMatrix writes m to w in .npy format.
func EncodeMatrix(w io.Writer, m Matrix) error {
	if err := m.Validate(); err != nil {
		return err
	}
	dict := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", m.Rows, m.Dim)
	preamble := len(npyMagic) + 2 + 2
	pad := npyAlignment - (preamble+len(dict)+1)%npyAlignment
	if pad == npyAlignment {
		pad = 0
	}
	header := dict + strings.Repeat(" ", pad) + "\n"

	var buf bytes.Buffer
	buf.Grow(preamble + len(header) + 4*len(m.Data))
	buf.WriteString(npyMagic)
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	word := make([]byte, 4)
	for _, v := range m.Data {
		binary.LittleEndian.PutUint32(word, math.Float32bits(v))
		buf.Write(word)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// MarshalMatrix is EncodeMatrix into a byte slice.
func MarshalMatrix(m Matrix) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeMatrix(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeMatrix reads a 2-D little-endian float32 .npy payload.
func DecodeMatrix(r io.Reader) (Matrix, error) {
	magic := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(r, magic); err != nil {
		return Matrix{}, fmt.Errorf("%w: read magic: %v", ErrMalformedMatrix, err)
	}
	if string(magic[:len(npyMagic)]) != npyMagic {
		return Matrix{}, fmt.Errorf("%w: bad magic", ErrMalformedMatrix)
	}

	var headerLen int
	switch major := magic[len(npyMagic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return Matrix{}, fmt.Errorf("%w: read header length: %v", ErrMalformedMatrix, err)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return Matrix{}, fmt.Errorf("%w: read header length: %v", ErrMalformedMatrix, err)
		}
		if n > 1<<20 {
			return Matrix{}, fmt.Errorf("%w: header too large", ErrMalformedMatrix)
		}
		headerLen = int(n)
	default:
		return Matrix{}, fmt.Errorf("%w: unsupported version %d", ErrMalformedMatrix, major)
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return Matrix{}, fmt.Errorf("%w: read header: %v", ErrMalformedMatrix, err)
	}
	rows, dim, err := parseNPYHeader(string(header))
	if err != nil {
		return Matrix{}, err
	}

	payload := make([]byte, 4*rows*dim)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Matrix{}, fmt.Errorf("%w: read payload: %v", ErrMalformedMatrix, err)
	}
	data := make([]float32, rows*dim)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[4*i:]))
	}
	return Matrix{Rows: rows, Dim: dim, Data: data}, nil
}

// UnmarshalMatrix is DecodeMatrix over a byte slice. Trailing bytes are rejected.
func UnmarshalMatrix(data []byte) (Matrix, error) {
	reader := bytes.NewReader(data)
	m, err := DecodeMatrix(reader)
	if err != nil {
		return Matrix{}, err
	}
	if reader.Len() != 0 {
		return Matrix{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformedMatrix, reader.Len())
	}
	return m, nil
}

func parseNPYHeader(header string) (int, int, error) {
	descr := npyDescrRe.FindStringSubmatch(header)
	if descr == nil {
		return 0, 0, fmt.Errorf("%w: header missing descr", ErrMalformedMatrix)
	}
	if descr[1] != "<f4" {
		return 0, 0, fmt.Errorf("%w: unsupported dtype %q", ErrMalformedMatrix, descr[1])
	}
	fortran := npyFortranRe.FindStringSubmatch(header)
	if fortran == nil || fortran[1] != "False" {
		return 0, 0, fmt.Errorf("%w: only C-order arrays are supported", ErrMalformedMatrix)
	}
	shape := npyShapeRe.FindStringSubmatch(header)
	if shape == nil {
		return 0, 0, fmt.Errorf("%w: header missing shape", ErrMalformedMatrix)
	}
	var dims []int
	for _, part := range strings.Split(shape[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, 0, fmt.Errorf("%w: bad shape %q", ErrMalformedMatrix, shape[1])
		}
		dims = append(dims, n)
	}
	if len(dims) != 2 {
		return 0, 0, fmt.Errorf("%w: expected 2-D shape, got %d-D", ErrMalformedMatrix, len(dims))
	}
	if dims[1] > 0 && dims[0] > npyMaxElements/dims[1] {
		return 0, 0, fmt.Errorf("%w: shape (%d, %d) too large", ErrMalformedMatrix, dims[0], dims[1])
	}
	return dims[0], dims[1], nil
}
