package chunk

import (
	"bytes"
	"testing"
)

func TestSplitJoinRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 10000)
	chunks, err := Split(data, 4096)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("want 3 chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if !VerifyDebug(c) {
			t.Fatalf("chunk %d failed debug CRC", c.Index)
		}
	}

	payloads := make([][]byte, len(chunks))
	for i, c := range chunks {
		payloads[i] = c.Payload
	}
	joined, err := Join(payloads, int64(len(data)))
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !bytes.Equal(joined, data) {
		t.Fatalf("round trip mismatch")
	}
}

func TestSplitChunkBoundary(t *testing.T) {
	data := make([]byte, 4096)
	chunks, err := Split(data, 4096)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("want 1 chunk, got %d", len(chunks))
	}
}

func TestSplitEmptyInput(t *testing.T) {
	if _, err := Split(nil, 4096); err == nil {
		t.Fatalf("want error for empty input")
	}
}

func TestSplitInvalidSize(t *testing.T) {
	if _, err := Split([]byte{1, 2, 3}, 0); err == nil {
		t.Fatalf("want error for non-positive chunk size")
	}
}

func TestCount(t *testing.T) {
	cases := []struct {
		size      int64
		chunkSize int
		want      uint32
	}{
		{11, 4096, 1},
		{4096, 4096, 1},
		{4097, 4096, 2},
		{10 * 1024 * 1024, 4096, 2560},
	}
	for _, c := range cases {
		if got := Count(c.size, c.chunkSize); got != c.want {
			t.Errorf("Count(%d, %d) = %d, want %d", c.size, c.chunkSize, got, c.want)
		}
	}
}
