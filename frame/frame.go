// Package frame implements the byte↔pixel serialization of one fountain
// packet into one video frame's pixels and back (component D, spec §4.D).
package frame

import (
	"encoding/binary"

	"github.com/willf/bitset"

	"github.com/n0remac/rvs/fountain"
	"github.com/n0remac/rvs/rvserr"
)

// headerFixedSize is the part of the packet serialization before the
// variable-length mask: seed(4) | mask_len(4).
const headerFixedSize = 4 + 4

// trailerSize is xor_crc(4), which follows the mask.
const trailerSize = 4

// Capacity returns C, the pixel-byte capacity of one frame at the given
// resolution: width * height * 3 (one byte per channel, R/G/B).
func Capacity(width, height int) int {
	return width * height * 3
}

// MaskBytes returns ceil(n/8), the number of bytes needed to hold a bitset
// mask over n source chunks.
func MaskBytes(n int) int {
	return (n + 7) / 8
}

// PacketSize returns the exact serialized size of a packet (before padding)
// for n source chunks of chunkSize bytes: seed | mask_len | mask_bits |
// xor_crc | xor_payload.
func PacketSize(n, chunkSize int) int {
	return headerFixedSize + MaskBytes(n) + trailerSize + chunkSize
}

// Pack serializes pkt into a zero-padded byte buffer of exactly capacity
// bytes, the frame's full pixel-byte capacity (spec §4.D: frames are
// serialized at full capacity; the per-frame packet length is recovered on
// read from the self-delimiting header, not from a sentinel).
func Pack(pkt fountain.Packet, n, capacity int) ([]byte, error) {
	size := PacketSize(n, len(pkt.XorPayload))
	if size > capacity {
		return nil, rvserr.InvalidInput("packet size %d exceeds frame capacity %d", size, capacity)
	}

	buf := make([]byte, capacity)
	off := 0
	binary.LittleEndian.PutUint32(buf[off:], pkt.Seed)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(n))
	off += 4

	maskBytes := bitsetToBytes(pkt.Mask, n)
	copy(buf[off:], maskBytes)
	off += len(maskBytes)

	binary.LittleEndian.PutUint32(buf[off:], pkt.XorCRC)
	off += 4
	copy(buf[off:], pkt.XorPayload)

	return buf, nil
}

// Unpack reverses Pack. mask_len is read from the header to derive the
// bitset size; chunkSize (B, known from the metadata preamble, not carried
// per-packet) delimits the payload within the zero-padded frame (spec
// §4.D: "the header itself is self-delimiting given N and B").
func Unpack(buf []byte, chunkSize int) (fountain.Packet, error) {
	if len(buf) < headerFixedSize {
		return fountain.Packet{}, rvserr.InvalidVideo("frame too short for packet header")
	}
	off := 0
	seed := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	n := int(binary.LittleEndian.Uint32(buf[off:]))
	off += 4

	maskLen := MaskBytes(n)
	if len(buf) < off+maskLen+trailerSize+chunkSize {
		return fountain.Packet{}, rvserr.InvalidVideo("frame too short for mask of %d chunks", n)
	}
	mask := bytesToBitset(buf[off:off+maskLen], n)
	off += maskLen

	crc := binary.LittleEndian.Uint32(buf[off:])
	off += 4

	payload := append([]byte(nil), buf[off:off+chunkSize]...)
	return fountain.Packet{Seed: seed, Mask: mask, XorPayload: payload, XorCRC: crc}, nil
}

// Pad zero-pads data (e.g. a marshaled metadata record) to capacity using
// the same byte-to-pixel mapping data frames use (spec §4.E).
func Pad(data []byte, capacity int) ([]byte, error) {
	if len(data) > capacity {
		return nil, rvserr.InvalidInput("data size %d exceeds frame capacity %d", len(data), capacity)
	}
	buf := make([]byte, capacity)
	copy(buf, data)
	return buf, nil
}

func bitsetToBytes(bs *bitset.BitSet, n int) []byte {
	out := make([]byte, MaskBytes(n))
	if bs == nil {
		return out
	}
	for i, ok := bs.NextSet(0); ok && int(i) < n; i, ok = bs.NextSet(i + 1) {
		out[i/8] |= 1 << (i % 8)
	}
	return out
}

func bytesToBitset(b []byte, n int) *bitset.BitSet {
	bs := bitset.New(uint(n))
	for i := 0; i < n; i++ {
		if b[i/8]&(1<<uint(i%8)) != 0 {
			bs.Set(uint(i))
		}
	}
	return bs
}
