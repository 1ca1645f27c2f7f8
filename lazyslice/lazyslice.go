// Package lazyslice is the canonical encoding of ordered lists of byte slices. Outputs, inputs,
// transactions and signed payloads are all encoded as such lists
package lazyslice

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/lunfardo314/epochledger"
)

// Array is a list of byte slices kept both as elements and as canonical bytes.
// Each side is computed from the other on first access
type Array struct {
	bytes          []byte
	parsed         [][]byte
	maxNumElements int
}

// header is the 2-byte big-endian prefix of the encoded array.
// Top 2 bits select width of the element length field (0, 1, 2 or 4 bytes), the rest is the number of elements
type header uint16

const (
	DataLenBytes0  = uint16(0x00) << 14
	DataLenBytes8  = uint16(0x01) << 14
	DataLenBytes16 = uint16(0x02) << 14
	DataLenBytes32 = uint16(0x03) << 14

	DataLenMask  = uint16(0x03) << 14
	ArrayLenMask = ^DataLenMask
	MaxArrayLen  = int(ArrayLenMask)

	emptyHeader = header(0)
)

var lenFieldWidth = map[uint16]int{
	DataLenBytes0:  0,
	DataLenBytes8:  1,
	DataLenBytes16: 2,
	DataLenBytes32: 4,
}

func (h header) lenWidth() int {
	return lenFieldWidth[uint16(h)&DataLenMask]
}

func (h header) numElements() int {
	return int(uint16(h) & ArrayLenMask)
}

func (h header) Bytes() []byte {
	return epochledger.EncodeInteger(uint16(h))
}

// ArrayFromBytes wraps data without parsing. Wrong data panics on first access
func ArrayFromBytes(data []byte, maxNumElements ...int) *Array {
	mx := MaxArrayLen
	if len(maxNumElements) > 0 {
		mx = maxNumElements[0]
	}
	return &Array{
		bytes:          data,
		maxNumElements: mx,
	}
}

// ParseArray parses data eagerly and returns error instead of panicking
func ParseArray(data []byte, maxNumElements int) (*Array, error) {
	parsed, err := decode(data, maxNumElements)
	if err != nil {
		return nil, err
	}
	return &Array{
		bytes:          data,
		parsed:         parsed,
		maxNumElements: maxNumElements,
	}, nil
}

// ParseArrayOfSize parses data and checks exact number of elements
func ParseArrayOfSize(data []byte, numElements int) (*Array, error) {
	ret, err := ParseArray(data, numElements)
	if err != nil {
		return nil, err
	}
	if ret.NumElements() != numElements {
		return nil, fmt.Errorf("ParseArrayOfSize: expected %d elements, got %d", numElements, ret.NumElements())
	}
	return ret, nil
}

func EmptyArray(maxNumElements ...int) *Array {
	return ArrayFromBytes(emptyHeader.Bytes(), maxNumElements...)
}

// MakeArray creates array of exactly the given elements
func MakeArray(elems ...[]byte) *Array {
	ret := EmptyArray(len(elems))
	for _, e := range elems {
		ret.Push(e)
	}
	return ret
}

// Push appends element and returns its index. Panics when the array is full
func (a *Array) Push(data []byte) int {
	a.ensureParsed()
	if len(a.parsed) >= a.maxNumElements {
		panic(fmt.Errorf("Array.Push: can't have more than %d elements", a.maxNumElements))
	}
	a.parsed = append(a.parsed, data)
	a.bytes = nil
	return len(a.parsed) - 1
}

func (a *Array) At(idx int) []byte {
	a.ensureParsed()
	return a.parsed[idx]
}

func (a *Array) NumElements() int {
	a.ensureParsed()
	return len(a.parsed)
}

func (a *Array) Bytes() []byte {
	if a.bytes == nil && a.parsed != nil {
		var buf bytes.Buffer
		if err := encode(a.parsed, &buf); err != nil {
			panic(err)
		}
		a.bytes = buf.Bytes()
	}
	return a.bytes
}

func (a *Array) ensureParsed() {
	if a.parsed != nil {
		return
	}
	var err error
	if a.parsed, err = decode(a.bytes, a.maxNumElements); err != nil {
		panic(err)
	}
}

// makeHeader chooses the narrowest length field which fits the longest element
func makeHeader(elems [][]byte) (header, error) {
	if len(elems) > MaxArrayLen {
		return 0, fmt.Errorf("array can't have more than %d elements", MaxArrayLen)
	}
	longest := 0
	for _, e := range elems {
		if len(e) > longest {
			longest = len(e)
		}
	}
	var width uint16
	switch {
	case longest > math.MaxUint32:
		return 0, errors.New("element is too long")
	case longest > math.MaxUint16:
		width = DataLenBytes32
	case longest > math.MaxUint8:
		width = DataLenBytes16
	case longest > 0:
		width = DataLenBytes8
	default:
		width = DataLenBytes0
	}
	return header(width | uint16(len(elems))), nil
}

func writeLen(w io.Writer, n int, width int) error {
	switch width {
	case 1:
		return epochledger.WriteInteger(w, uint8(n))
	case 2:
		return epochledger.WriteInteger(w, uint16(n))
	case 4:
		return epochledger.WriteInteger(w, uint32(n))
	}
	return nil
}

func encode(elems [][]byte, w io.Writer) error {
	h, err := makeHeader(elems)
	if err != nil {
		return err
	}
	if _, err = w.Write(h.Bytes()); err != nil {
		return err
	}
	width := h.lenWidth()
	if width == 0 {
		// all elements are empty
		return nil
	}
	for _, e := range elems {
		if err = writeLen(w, len(e), width); err != nil {
			return err
		}
		if _, err = w.Write(e); err != nil {
			return err
		}
	}
	return nil
}

var errEOF = errors.New("lazyslice: unexpected end of data")

// nextElement splits off the first element. Elements are sub-slices of data, not copies
func nextElement(data []byte, width int) (elem []byte, rest []byte, err error) {
	if len(data) < width {
		return nil, nil, errEOF
	}
	var sz int
	switch width {
	case 1:
		sz = int(data[0])
	case 2:
		sz = int(epochledger.DecodeInteger[uint16](data[:2]))
	case 4:
		sz = int(epochledger.DecodeInteger[uint32](data[:4]))
	}
	if len(data) < width+sz {
		return nil, nil, errEOF
	}
	return data[width : width+sz], data[width+sz:], nil
}

func decode(data []byte, maxNumElements int) ([][]byte, error) {
	if len(data) < 2 {
		return nil, errEOF
	}
	h := header(epochledger.DecodeInteger[uint16](data[:2]))
	if h.numElements() > maxNumElements {
		return nil, fmt.Errorf("lazyslice: %d elements, expected at most %d", h.numElements(), maxNumElements)
	}
	ret := make([][]byte, h.numElements())
	rest := data[2:]
	var err error
	for i := range ret {
		if ret[i], rest, err = nextElement(rest, h.lenWidth()); err != nil {
			return nil, err
		}
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("lazyslice: %d trailing bytes", len(rest))
	}
	return ret, nil
}
