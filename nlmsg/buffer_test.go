package nlmsg

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestAlign4(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 0},
		{1, 4},
		{2, 4},
		{3, 4},
		{4, 4},
		{5, 8},
		{17, 20},
		{20, 20},
	}
	for _, test := range tests {
		if got := Align4(test.in); got != test.want {
			t.Errorf("Align4(%d): got %d, want %d", test.in, got, test.want)
		}
	}
}

func TestBufferRoundTrip(t *testing.T) {
	buf := NewBuffer(make([]byte, 32))
	buf.PutByte(0xAB)
	buf.PutUint16(0x1234)
	buf.PutUint32(0xDEADBEEF)
	buf.PutUint64(0x0102030405060708)
	buf.PutWireUint16(443)
	buf.PutWireUint32(0xAABBCCDD)
	buf.PutZero(3)

	buf.SetPos(0)
	if got := buf.Byte(); got != 0xAB {
		t.Errorf("Byte: got %#x, want 0xab", got)
	}
	if got := buf.Uint16(); got != 0x1234 {
		t.Errorf("Uint16: got %#x, want 0x1234", got)
	}
	if got := buf.Uint32(); got != 0xDEADBEEF {
		t.Errorf("Uint32: got %#x, want 0xdeadbeef", got)
	}
	if got := buf.Uint64(); got != 0x0102030405060708 {
		t.Errorf("Uint64: got %#x", got)
	}
	if got := buf.WireUint16(); got != 443 {
		t.Errorf("WireUint16: got %d, want 443", got)
	}
	if got := buf.WireUint32(); got != 0xAABBCCDD {
		t.Errorf("WireUint32: got %#x, want 0xaabbccdd", got)
	}
	if got := buf.Next(3); !bytes.Equal(got, []byte{0, 0, 0}) {
		t.Errorf("Next: got %v, want zeros", got)
	}
	if buf.Remaining() != 8 {
		t.Errorf("Remaining: got %d, want 8", buf.Remaining())
	}
}

// The Wire accessors must produce network order bytes whatever the buffer's
// default order says.
func TestBufferWireOrder(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		buf := NewBufferOrder(make([]byte, 6), order)
		buf.PutWireUint16(0x0102)
		buf.PutWireUint32(0x03040506)
		want := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
		if !bytes.Equal(buf.Bytes(), want) {
			t.Errorf("%v buffer: got %v, want %v", order, buf.Bytes(), want)
		}
	}
}

func TestBufferSkipClamps(t *testing.T) {
	buf := NewBuffer(make([]byte, 8))
	buf.Skip(100)
	if buf.Pos() != 8 || buf.Remaining() != 0 {
		t.Errorf("Skip past end: pos %d remaining %d, want 8/0", buf.Pos(), buf.Remaining())
	}
}

func TestHtons(t *testing.T) {
	got := Htons(0x1234)
	if hostIsLittleEndian() {
		if got != 0x3412 {
			t.Errorf("Htons(0x1234): got %#x, want 0x3412", got)
		}
	} else if got != 0x1234 {
		t.Errorf("Htons(0x1234): got %#x, want 0x1234", got)
	}
}
