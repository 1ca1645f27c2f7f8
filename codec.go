package epochledger

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// all integers are serialized big-endian
var byteOrder = binary.BigEndian

type integer interface {
	uint8 | int8 | uint16 | int16 | uint32 | int32 | uint64 | int64
}

func ReadInteger[T integer](r io.Reader, pval *T) error {
	return binary.Read(r, byteOrder, pval)
}

func WriteInteger[T integer](w io.Writer, val T) error {
	return binary.Write(w, byteOrder, val)
}

// EncodeInteger returns fixed size big-endian bytes of the integer
func EncodeInteger[T integer](v T) []byte {
	var buf bytes.Buffer
	if err := WriteInteger(&buf, v); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// DecodeInteger panics if data is shorter than the size of T
func DecodeInteger[T integer](data []byte) T {
	var ret T
	if err := ReadInteger(bytes.NewReader(data), &ret); err != nil {
		panic(err)
	}
	return ret
}

// DecodeIntegerStrict requires exact size of the data
func DecodeIntegerStrict[T integer](data []byte) (T, error) {
	var ret T
	if len(data) != binary.Size(ret) {
		return ret, fmt.Errorf("DecodeIntegerStrict: expected %d bytes, got %d", binary.Size(ret), len(data))
	}
	return DecodeInteger[T](data), nil
}
