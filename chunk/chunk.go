// Package chunk implements the fixed-size, CRC-carrying split/join step that
// sits between the AEAD envelope and the fountain encoder (spec §4.A).
package chunk

import (
	"hash/crc32"

	"github.com/n0remac/rvs/rvserr"
)

// DefaultSize is the default chunk payload size B, recorded in the metadata
// preamble so the decoder side never has to guess it.
const DefaultSize = 4096

// Chunk is one fixed-size source symbol for the fountain code.
type Chunk struct {
	Index   uint32
	Payload []byte

	// DebugCRC32 is the IEEE CRC32 of Payload, computed for diagnostics only.
	// Nothing in the decode path checks it; the on-wire integrity check is
	// always the packet's xor_crc (spec §4.A).
	DebugCRC32 uint32
}

// Split divides data into ceil(len(data)/size) fixed-size chunks, zero-padding
// the final chunk. size must be positive.
func Split(data []byte, size int) ([]Chunk, error) {
	if size <= 0 {
		return nil, rvserr.InvalidInput("chunk size must be positive, got %d", size)
	}
	if len(data) == 0 {
		return nil, rvserr.InvalidInput("input is empty")
	}

	n := (len(data) + size - 1) / size
	chunks := make([]Chunk, n)
	for i := 0; i < n; i++ {
		payload := make([]byte, size)
		start := i * size
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		copy(payload, data[start:end])
		chunks[i] = Chunk{
			Index:      uint32(i),
			Payload:    payload,
			DebugCRC32: crc32.ChecksumIEEE(payload),
		}
	}
	return chunks, nil
}

// Join concatenates recovered chunk payloads in index order and trims the
// result to fileSize, the single authoritative length (spec §3).
func Join(chunks [][]byte, fileSize int64) ([]byte, error) {
	total := int64(0)
	for _, c := range chunks {
		total += int64(len(c))
	}
	if fileSize > total {
		return nil, rvserr.InvalidVideo("declared file size %d exceeds recovered data %d", fileSize, total)
	}

	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out[:fileSize], nil
}

// VerifyDebug recomputes DebugCRC32 over payload and reports whether it still
// matches. Used only by tests; never consulted during decode.
func VerifyDebug(c Chunk) bool {
	return crc32.ChecksumIEEE(c.Payload) == c.DebugCRC32
}

// Count returns ceil(size/chunkSize), the chunk count N for a file of the
// given size (spec §3).
func Count(size int64, chunkSize int) uint32 {
	if chunkSize <= 0 {
		return 0
	}
	return uint32((size + int64(chunkSize) - 1) / int64(chunkSize))
}
