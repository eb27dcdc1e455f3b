// Package pipeline is the controller (component G): it orchestrates
// A→F→B→D→E on encode and E→D→C→A⁻¹→F⁻¹ on decode, and is the only package
// that calls os and the codec/crypto layers directly.
package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/n0remac/rvs/chunk"
	"github.com/n0remac/rvs/envelope"
	"github.com/n0remac/rvs/fountain"
	"github.com/n0remac/rvs/frame"
	"github.com/n0remac/rvs/metadata"
	"github.com/n0remac/rvs/rvserr"
	"github.com/n0remac/rvs/stream"
)

// Options is the closed set of encode-time parameters (spec §6).
type Options struct {
	ChunkSize  uint32
	Redundancy float32
	Width      uint32
	Height     uint32
	Fps        uint32
}

// DefaultOptions returns the spec's documented defaults.
func DefaultOptions() Options {
	return Options{
		ChunkSize:  chunk.DefaultSize,
		Redundancy: fountain.DefaultRedundancy,
		Width:      3840,
		Height:     2160,
		Fps:        30,
	}
}

// Validate reports rvserr.InvalidInputError for any option outside its
// supported range (spec §7.1).
func (o Options) Validate() error {
	if o.ChunkSize == 0 {
		return rvserr.InvalidInput("chunk_size must be positive")
	}
	if o.Redundancy < 0 || o.Redundancy > 2 {
		return rvserr.InvalidInput("redundancy %f out of range [0, 2]", o.Redundancy)
	}
	if o.Width == 0 || o.Height == 0 {
		return rvserr.InvalidInput("width and height must be positive")
	}
	if o.Fps == 0 {
		return rvserr.InvalidInput("fps must be positive")
	}
	return nil
}

// Encode reads inputPath, optionally encrypts it, chunks, fountain-encodes,
// and writes a lossless video file to outputPath. A fresh fountain seed is
// drawn from crypto/rand per call; EncodeWithSeed exists for deterministic
// tests (spec §8).
func Encode(inputPath, outputPath, password string, opts Options) error {
	seed, err := randomSeed()
	if err != nil {
		return err
	}
	return EncodeWithSeed(inputPath, outputPath, password, opts, seed)
}

// EncodeWithSeed is Encode with an explicit fountain-encoder seed.
func EncodeWithSeed(inputPath, outputPath, password string, opts Options, seed uint32) (err error) {
	if err := opts.Validate(); err != nil {
		return err
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return rvserr.IoError("read input file", err)
	}

	tempPath := tempPathFor(outputPath)
	codec, err := stream.NewGocvWriter(tempPath, int(opts.Width), int(opts.Height), int(opts.Fps))
	if err != nil {
		return rvserr.IoError("open video writer", err)
	}
	defer func() {
		if err != nil {
			_ = codec.Close()
			_ = os.Remove(tempPath)
		}
	}()

	name := filepath.Base(inputPath)
	if err = encodeTo(codec, int(opts.Width), int(opts.Height), data, name, password, opts, seed); err != nil {
		return err
	}
	if err = codec.Close(); err != nil {
		err = rvserr.IoError("close video writer", err)
		return err
	}
	if renameErr := os.Rename(tempPath, outputPath); renameErr != nil {
		err = rvserr.IoError("rename output into place", renameErr)
		return err
	}
	return nil
}

// encodeTo runs the A→F→B→D→E encode orchestration against an already-open
// codec writer, so the real (gocv/FFV1) and in-memory (stream.MemoryCodec)
// codecs share one code path.
func encodeTo(codec stream.CodecWriter, width, height int, data []byte, name, password string, opts Options, seed uint32) error {
	if len(data) == 0 {
		return rvserr.InvalidInput("input file is empty")
	}

	var flags uint8
	payload := data
	if password != "" {
		env, err := envelope.Encrypt(data, password)
		if err != nil {
			return err
		}
		payload = env
		flags |= metadata.FlagEncrypted
	}

	chunks, err := chunk.Split(payload, int(opts.ChunkSize))
	if err != nil {
		return err
	}
	n := len(chunks)

	capacity := frame.Capacity(width, height)
	if frame.PacketSize(n, int(opts.ChunkSize)) > capacity {
		return rvserr.InvalidInput(
			"chunk_size %d with %d chunks exceeds frame capacity at %dx%d",
			opts.ChunkSize, n, width, height)
	}

	chunkPayloads := make([][]byte, n)
	for i, c := range chunks {
		chunkPayloads[i] = c.Payload
	}
	enc, err := fountain.NewEncoder(chunkPayloads, float64(opts.Redundancy), seed)
	if err != nil {
		return err
	}

	writer := stream.NewWriter(codec, n, width, height)
	rec := metadata.Record{
		Flags:     flags,
		N:         uint32(n),
		ChunkSize: opts.ChunkSize,
		FileSize:  uint64(len(payload)),
		Name:      name,
	}
	if err := writer.WriteMetadata(rec); err != nil {
		return err
	}
	for {
		pkt, ok := enc.Next()
		if !ok {
			break
		}
		if err := writer.WritePacket(pkt); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads a video file produced by Encode and recovers the original
// bytes byte-for-byte, or a fatal error from §7. Required parameters
// (chunk count, chunk size, whether a password is needed) come entirely
// from the metadata preamble (spec §6).
func Decode(inputPath, outputPath, password string) (err error) {
	gr, err := stream.NewGocvReader(inputPath)
	if err != nil {
		return rvserr.IoError("open video reader", err)
	}
	defer gr.Close()

	data, rec, err := decodeFrom(gr, stream.Capacity(gr.Width(), gr.Height()), password)
	if err != nil {
		return err
	}

	finalPath := outputPath
	if info, statErr := os.Stat(outputPath); statErr == nil && info.IsDir() {
		name := rec.Name
		if name == "" {
			name = "decoded.bin"
		}
		finalPath = filepath.Join(outputPath, name)
	}

	tempPath := tempPathFor(finalPath)
	if err = os.WriteFile(tempPath, data, 0o644); err != nil {
		_ = os.Remove(tempPath)
		err = rvserr.IoError("write decoded output", err)
		return err
	}
	if renameErr := os.Rename(tempPath, finalPath); renameErr != nil {
		_ = os.Remove(tempPath)
		err = rvserr.IoError("rename output into place", renameErr)
		return err
	}
	return nil
}

// decodeFrom runs the E→D→C→A⁻¹→F⁻¹ decode orchestration against an
// already-open codec reader at the given frame capacity, so the real and
// in-memory codecs share one code path.
func decodeFrom(codec stream.CodecReader, frameCapacity int, password string) ([]byte, metadata.Record, error) {
	reader, err := stream.NewReader(codec, frameCapacity)
	if err != nil {
		return nil, metadata.Record{}, err
	}

	rec := reader.Metadata()
	if rec.Encrypted() && password == "" {
		return nil, rec, rvserr.AuthFailure("input is encrypted but no password was supplied")
	}

	dec := fountain.NewDecoder(int(rec.N), int(rec.ChunkSize))
	for {
		pkt, readErr := reader.ReadPacket()
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return nil, rec, readErr
		}
		if addErr := dec.Add(pkt); addErr != nil {
			return nil, rec, addErr
		}
	}

	chunks, err := dec.Finalize()
	if err != nil {
		return nil, rec, err
	}

	joined, err := chunk.Join(chunks, int64(rec.FileSize))
	if err != nil {
		return nil, rec, err
	}

	if rec.Encrypted() {
		plaintext, decErr := envelope.Decrypt(joined, password)
		if decErr != nil {
			return nil, rec, decErr
		}
		return plaintext, rec, nil
	}
	return joined, rec, nil
}

func tempPathFor(dst string) string {
	return dst + "." + uuid.New().String() + ".tmp"
}

func randomSeed() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, rvserr.IoError("generate fountain seed", err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
