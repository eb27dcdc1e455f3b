// Package fountain implements the LT-style fountain erasure code: the
// encoder (component B) that emits systematic-then-random XOR packets, and
// the decoder (component C) that accumulates them and solves the resulting
// GF(2) linear system (spec §4.B, §4.C).
package fountain

import (
	"hash/crc32"

	"github.com/willf/bitset"
)

// Packet is a self-contained fountain code symbol (spec §3): the decoder
// needs only the packet, N, and B to make progress.
type Packet struct {
	Seed       uint32
	Mask       *bitset.BitSet
	XorPayload []byte
	XorCRC     uint32
}

// NewPacket builds a packet from a seed, the mask of source chunk indices it
// covers, and the XOR of those chunks' payloads, stamping the CRC over the
// payload (the on-wire integrity check; spec §3).
func NewPacket(seed uint32, mask *bitset.BitSet, payload []byte) Packet {
	return Packet{
		Seed:       seed,
		Mask:       mask,
		XorPayload: payload,
		XorCRC:     crc32.ChecksumIEEE(payload),
	}
}

// VerifyCRC reports whether XorCRC still matches XorPayload.
func (p Packet) VerifyCRC() bool {
	return crc32.ChecksumIEEE(p.XorPayload) == p.XorCRC
}

// xorInto XORs src into dst byte-by-word; both must be the same length. This
// is the "stream payload XOR by word" complexity constraint from spec §4.C.
func xorInto(dst, src []byte) {
	n := len(dst)
	i := 0
	for ; i+8 <= n; i += 8 {
		d := dst[i : i+8 : i+8]
		s := src[i : i+8 : i+8]
		d[0] ^= s[0]
		d[1] ^= s[1]
		d[2] ^= s[2]
		d[3] ^= s[3]
		d[4] ^= s[4]
		d[5] ^= s[5]
		d[6] ^= s[6]
		d[7] ^= s[7]
	}
	for ; i < n; i++ {
		dst[i] ^= src[i]
	}
}
