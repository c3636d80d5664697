package audio

import (
	"bytes"
	"testing"
)

func TestRingBuffer_Write(t *testing.T) {
	rb := NewRingBuffer(10)

	if written := rb.Write([]byte{1, 2, 3, 4, 5}); written != 5 {
		t.Errorf("Expected to write 5 bytes, got %d", written)
	}
	if rb.Available() != 5 {
		t.Errorf("Expected available 5, got %d", rb.Available())
	}

	if written := rb.Write([]byte{6, 7, 8}); written != 3 {
		t.Errorf("Expected to write 3 bytes, got %d", written)
	}
	if rb.Available() != 8 {
		t.Errorf("Expected available 8, got %d", rb.Available())
	}
	if rb.Space() != 1 {
		t.Errorf("Expected space 1, got %d", rb.Space())
	}
}

func TestRingBuffer_WriteOverflow(t *testing.T) {
	rb := NewRingBuffer(5)

	rb.Write([]byte{1, 2, 3, 4})
	if !rb.IsFull() {
		t.Error("Expected buffer to be full after writing size-1 bytes")
	}

	if written := rb.Write([]byte{5, 6}); written != 0 {
		t.Errorf("Expected to write 0 bytes (buffer already full), got %d", written)
	}
	if rb.Available() != 4 {
		t.Errorf("Expected available 4 after overflow, got %d", rb.Available())
	}
}

func TestRingBuffer_PartialWrite(t *testing.T) {
	rb := NewRingBuffer(4)

	if written := rb.Write([]byte{1, 2, 3, 4, 5}); written != 3 {
		t.Errorf("Expected partial write of 3 bytes, got %d", written)
	}
}

func TestRingBuffer_Read(t *testing.T) {
	rb := NewRingBuffer(10)
	rb.Write([]byte{1, 2, 3, 4, 5})

	readBuf := make([]byte, 3)
	if read := rb.Read(readBuf); read != 3 {
		t.Errorf("Expected to read 3 bytes, got %d", read)
	}
	if !bytes.Equal(readBuf, []byte{1, 2, 3}) {
		t.Errorf("Read incorrect data: %v", readBuf)
	}
	if rb.Available() != 2 {
		t.Errorf("Expected available 2 after read, got %d", rb.Available())
	}
}

func TestRingBuffer_ReadEmpty(t *testing.T) {
	rb := NewRingBuffer(10)

	if !rb.IsEmpty() {
		t.Error("Expected buffer to be empty initially")
	}
	if read := rb.Read(make([]byte, 5)); read != 0 {
		t.Errorf("Expected to read 0 bytes from empty buffer, got %d", read)
	}
}

func TestRingBuffer_WrapAround(t *testing.T) {
	rb := NewRingBuffer(5)

	rb.Write([]byte{1, 2, 3, 4})
	rb.Read(make([]byte, 2))

	rb.Write([]byte{5, 6})
	if rb.Available() != 4 {
		t.Errorf("Expected available 4, got %d", rb.Available())
	}

	readBuf := make([]byte, 4)
	if read := rb.Read(readBuf); read != 4 {
		t.Errorf("Expected to read 4 bytes, got %d", read)
	}
	if !bytes.Equal(readBuf, []byte{3, 4, 5, 6}) {
		t.Errorf("Expected [3 4 5 6], got %v", readBuf)
	}
}

func TestRingBuffer_Drain(t *testing.T) {
	rb := NewRingBuffer(5)
	rb.Write([]byte{1, 2, 3, 4})
	rb.Read(make([]byte, 3))
	rb.Write([]byte{5, 6})

	got := rb.Drain()
	if !bytes.Equal(got, []byte{4, 5, 6}) {
		t.Errorf("Expected [4 5 6], got %v", got)
	}
	if !rb.IsEmpty() {
		t.Error("Expected buffer to be empty after drain")
	}
	if len(rb.Drain()) != 0 {
		t.Error("Expected draining an empty buffer to return nothing")
	}
}

func TestRingBuffer_Clear(t *testing.T) {
	rb := NewRingBuffer(10)
	rb.Write([]byte{1, 2, 3, 4, 5})

	rb.Clear()
	if !rb.IsEmpty() {
		t.Error("Expected buffer to be empty after clear")
	}
	if rb.Space() != 9 {
		t.Errorf("Expected space 9 after clear, got %d", rb.Space())
	}
}

func TestNewRingBuffer_MinimumSize(t *testing.T) {
	rb := NewRingBuffer(0)
	if written := rb.Write([]byte{1, 2}); written != 1 {
		t.Errorf("Expected a minimal buffer to hold 1 byte, got %d", written)
	}
}
