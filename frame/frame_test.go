package frame

import (
	"bytes"
	"testing"

	"github.com/willf/bitset"

	"github.com/n0remac/rvs/fountain"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	const n = 37
	mask := bitset.New(n)
	mask.Set(3)
	mask.Set(19)
	mask.Set(36)
	pkt := fountain.NewPacket(0xC0FFEE, mask, bytes.Repeat([]byte{0x5A}, 4096))

	capacity := Capacity(3840, 2160)
	buf, err := Pack(pkt, n, capacity)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if len(buf) != capacity {
		t.Fatalf("packed frame size = %d, want %d", len(buf), capacity)
	}

	got, err := Unpack(buf, 4096)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got.Seed != pkt.Seed || got.XorCRC != pkt.XorCRC {
		t.Fatalf("header mismatch: %+v vs %+v", got, pkt)
	}
	if !bytes.Equal(got.XorPayload, pkt.XorPayload) {
		t.Fatalf("payload mismatch")
	}
	for i := 0; i < n; i++ {
		if got.Mask.Test(uint(i)) != pkt.Mask.Test(uint(i)) {
			t.Fatalf("mask bit %d mismatch", i)
		}
	}
}

func TestPackRejectsOversizedPacket(t *testing.T) {
	mask := bitset.New(8)
	pkt := fountain.NewPacket(1, mask, make([]byte, 100))
	if _, err := Pack(pkt, 8, 10); err == nil {
		t.Fatalf("want error when packet exceeds capacity")
	}
}

func TestPadRejectsOversizedData(t *testing.T) {
	if _, err := Pad(make([]byte, 100), 10); err == nil {
		t.Fatalf("want error when data exceeds capacity")
	}
}
