package vectorindex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
)

// ErrMalformedIndex is returned when a serialized index fails validation.
var ErrMalformedIndex = errors.New("vectorindex: malformed index")

const (
	indexMagic   = "FAQFLAT\x00"
	indexVersion = uint16(1)
	maxModelLen  = math.MaxUint16
)

// MarshalBinary serializes the index. Layout (little endian):
//
//	magic[8] | version u16 | metric u8 | model len u16 | model | count u32 | dim u32 | count*dim f32 | crc32 u32
//
// The trailing CRC-32 (IEEE) covers every preceding byte.
func (f *Flat) MarshalBinary() ([]byte, error) {
	if len(f.model) > maxModelLen {
		return nil, fmt.Errorf("vectorindex: model identifier too long (%d bytes)", len(f.model))
	}
	if uint64(f.count) > math.MaxUint32 || uint64(f.dim) > math.MaxUint32 {
		return nil, fmt.Errorf("vectorindex: index too large to encode")
	}
	var buf bytes.Buffer
	buf.Grow(len(indexMagic) + 2 + 1 + 2 + len(f.model) + 8 + 4*len(f.data) + 4)
	buf.WriteString(indexMagic)
	_ = binary.Write(&buf, binary.LittleEndian, indexVersion)
	buf.WriteByte(byte(MetricL2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(f.model)))
	buf.WriteString(f.model)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(f.count))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(f.dim))
	word := make([]byte, 4)
	for _, v := range f.data {
		binary.LittleEndian.PutUint32(word, math.Float32bits(v))
		buf.Write(word)
	}
	_ = binary.Write(&buf, binary.LittleEndian, crc32.ChecksumIEEE(buf.Bytes()))
	return buf.Bytes(), nil
}

// UnmarshalIndex restores an index produced by MarshalBinary.
func UnmarshalIndex(data []byte) (*Flat, error) {
	const fixed = len(indexMagic) + 2 + 1 + 2 + 4 + 4 + 4
	if len(data) < fixed {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrMalformedIndex, len(data))
	}
	body, sum := data[:len(data)-4], binary.LittleEndian.Uint32(data[len(data)-4:])
	if crc32.ChecksumIEEE(body) != sum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrMalformedIndex)
	}
	if string(body[:len(indexMagic)]) != indexMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrMalformedIndex)
	}
	reader := bytes.NewReader(body[len(indexMagic):])

	var (
		version  uint16
		metric   uint8
		modelLen uint16
	)
	if err := binary.Read(reader, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIndex, err)
	}
	if version != indexVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedIndex, version)
	}
	if err := binary.Read(reader, binary.LittleEndian, &metric); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIndex, err)
	}
	if Metric(metric) != MetricL2 {
		return nil, fmt.Errorf("%w: unsupported metric %d", ErrMalformedIndex, metric)
	}
	if err := binary.Read(reader, binary.LittleEndian, &modelLen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIndex, err)
	}
	model := make([]byte, modelLen)
	if _, err := io.ReadFull(reader, model); err != nil {
		return nil, fmt.Errorf("%w: read model: %v", ErrMalformedIndex, err)
	}

	var count, dim uint32
	if err := binary.Read(reader, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIndex, err)
	}
	if err := binary.Read(reader, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIndex, err)
	}
	values := uint64(count) * uint64(dim)
	remaining := uint64(reader.Len())
	if values > remaining/4 || remaining != 4*values {
		return nil, fmt.Errorf("%w: payload holds %d bytes for %d x %d values", ErrMalformedIndex, remaining, count, dim)
	}

	payload := make([]byte, reader.Len())
	_, _ = reader.Read(payload)
	vectors := make([]float32, values)
	for i := range vectors {
		vectors[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[4*i:]))
	}
	return &Flat{model: string(model), dim: int(dim), count: int(count), data: vectors}, nil
}
