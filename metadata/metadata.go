// Package metadata implements the MetadataRecord preamble (spec §3, §4.E,
// §6): the self-describing header carried in the first frames of the stream
// so decoding never needs a side channel.
package metadata

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/n0remac/rvs/rvserr"
)

// Magic identifies the container format: "RVS1" (spec §6).
var Magic = [4]byte{'R', 'V', 'S', '1'}

// Version is the only metadata record version this codec understands.
const Version = 1

// FlagEncrypted is bit 0 of Flags: the payload chunked after this preamble
// is an AEAD envelope, not raw plaintext.
const FlagEncrypted = 1 << 0

// Record is the fixed-layout metadata preamble:
//
//	magic(4) | version(1) | flags(1) | N(4) | B(4) | file_size(8) |
//	name_len(2) | name(name_len) | header_crc32(4)
//
// All integers are little-endian (spec §6). When Encrypted, Name is the
// plaintext file's name, while FileSize is the length fed to the chunker,
// i.e. the ciphertext envelope length (spec §3).
type Record struct {
	Flags     uint8
	N         uint32
	ChunkSize uint32
	FileSize  uint64
	Name      string
}

// Encrypted reports whether FlagEncrypted is set.
func (r Record) Encrypted() bool { return r.Flags&FlagEncrypted != 0 }

// Marshal serializes r to its wire form, including the trailing header CRC.
func (r Record) Marshal() ([]byte, error) {
	name := []byte(r.Name)
	if len(name) > 0xFFFF {
		return nil, rvserr.InvalidInput("name too long: %d bytes", len(name))
	}

	size := 4 + 1 + 1 + 4 + 4 + 8 + 2 + len(name)
	buf := make([]byte, size+4) // +4 for header_crc32
	off := 0
	copy(buf[off:], Magic[:])
	off += 4
	buf[off] = Version
	off++
	buf[off] = r.Flags
	off++
	binary.LittleEndian.PutUint32(buf[off:], r.N)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], r.ChunkSize)
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], r.FileSize)
	off += 8
	binary.LittleEndian.PutUint16(buf[off:], uint16(len(name)))
	off += 2
	copy(buf[off:], name)
	off += len(name)

	crc := crc32.ChecksumIEEE(buf[:off])
	binary.LittleEndian.PutUint32(buf[off:], crc)

	return buf, nil
}

// Parse reads a Record from its wire form, validating magic, version, and
// header CRC. Unrecognized magic/version or a CRC mismatch is
// rvserr.InvalidVideoError (spec §7.2).
func Parse(buf []byte) (Record, error) {
	const fixed = 4 + 1 + 1 + 4 + 4 + 8 + 2
	if len(buf) < fixed+4 {
		return Record{}, rvserr.InvalidVideo("metadata frame too short: %d bytes", len(buf))
	}
	if string(buf[0:4]) != string(Magic[:]) {
		return Record{}, rvserr.InvalidVideo("bad magic %q", buf[0:4])
	}
	off := 4
	version := buf[off]
	off++
	if version != Version {
		return Record{}, rvserr.InvalidVideo("unsupported version %d", version)
	}
	flags := buf[off]
	off++
	n := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	chunkSize := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	fileSize := binary.LittleEndian.Uint64(buf[off:])
	off += 8
	nameLen := int(binary.LittleEndian.Uint16(buf[off:]))
	off += 2

	if len(buf) < off+nameLen+4 {
		return Record{}, rvserr.InvalidVideo("metadata frame truncated: name_len=%d", nameLen)
	}
	name := string(buf[off : off+nameLen])
	off += nameLen

	wantCRC := binary.LittleEndian.Uint32(buf[off:])
	gotCRC := crc32.ChecksumIEEE(buf[:off])
	if wantCRC != gotCRC {
		return Record{}, rvserr.InvalidVideo("header CRC mismatch: got %08x want %08x", gotCRC, wantCRC)
	}

	return Record{
		Flags:     flags,
		N:         n,
		ChunkSize: chunkSize,
		FileSize:  fileSize,
		Name:      name,
	}, nil
}
