package stream

import (
	"io"

	"github.com/n0remac/rvs/fountain"
	"github.com/n0remac/rvs/frame"
	"github.com/n0remac/rvs/metadata"
	"github.com/n0remac/rvs/rvserr"
)

// maxMetadataScan bounds how many leading frames the reader inspects before
// declaring the input invalid (spec §4.E).
const maxMetadataScan = 8

// Capacity is the usable payload-byte capacity of one frame at width x
// height (spec §4.D), re-exported so callers outside this package don't need
// to import frame directly just to size a codec's frames.
func Capacity(width, height int) int {
	return frame.Capacity(width, height)
}

// Writer orders the frames spec §4.E mandates: the metadata preamble first,
// then the M data frames in emission order (systematic packets first).
type Writer struct {
	codec    CodecWriter
	n        int
	capacity int
}

// NewWriter prepares a Writer for n source chunks at the given resolution.
func NewWriter(codec CodecWriter, n, width, height int) *Writer {
	return &Writer{codec: codec, n: n, capacity: frame.Capacity(width, height)}
}

// WriteMetadata emits the metadata preamble as the stream's first frame.
func (w *Writer) WriteMetadata(rec metadata.Record) error {
	buf, err := rec.Marshal()
	if err != nil {
		return err
	}
	padded, err := frame.Pad(buf, w.capacity)
	if err != nil {
		return err
	}
	if err := w.codec.WriteFrame(padded); err != nil {
		return rvserr.IoError("write metadata frame", err)
	}
	return nil
}

// WritePacket emits one data frame for pkt.
func (w *Writer) WritePacket(pkt fountain.Packet) error {
	buf, err := frame.Pack(pkt, w.n, w.capacity)
	if err != nil {
		return err
	}
	if err := w.codec.WriteFrame(buf); err != nil {
		return rvserr.IoError("write data frame", err)
	}
	return nil
}

// Close closes the underlying codec writer.
func (w *Writer) Close() error {
	return w.codec.Close()
}

// Reader mirrors Writer on the read side: it locates the metadata preamble,
// then yields data frames as fountain packets in stream order.
type Reader struct {
	codec     CodecReader
	chunkSize int
	record    metadata.Record
}

// NewReader scans up to maxMetadataScan leading frames of codec for a valid
// metadata record (spec §4.E: "if the first frame's CRC fails, it scans up
// to a bounded number of frames before declaring the input invalid").
// frameCapacity is the pixel-byte capacity the caller's codec actually
// reports (e.g. from the container's own width/height), used to check that
// every packet for N/B fits the frame (spec §7.2: frame dimensions not
// matching metadata).
func NewReader(codec CodecReader, frameCapacity int) (*Reader, error) {
	var lastErr error
	for i := 0; i < maxMetadataScan; i++ {
		buf, err := codec.ReadFrame()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, rvserr.IoError("read metadata frame", err)
		}
		rec, perr := metadata.Parse(buf)
		if perr != nil {
			lastErr = perr
			continue
		}
		required := frame.PacketSize(int(rec.N), int(rec.ChunkSize))
		if required > frameCapacity {
			return nil, rvserr.InvalidVideo(
				"frame dimensions too small for metadata: need %d bytes, have %d", required, frameCapacity)
		}
		return &Reader{codec: codec, chunkSize: int(rec.ChunkSize), record: rec}, nil
	}
	if lastErr == nil {
		lastErr = rvserr.InvalidVideo("no frames present")
	}
	return nil, lastErr
}

// Metadata returns the parsed metadata record.
func (r *Reader) Metadata() metadata.Record { return r.record }

// ReadPacket returns the next data frame as a fountain packet, or io.EOF once
// the stream is exhausted.
func (r *Reader) ReadPacket() (fountain.Packet, error) {
	buf, err := r.codec.ReadFrame()
	if err != nil {
		if err == io.EOF {
			return fountain.Packet{}, io.EOF
		}
		return fountain.Packet{}, rvserr.IoError("read data frame", err)
	}
	return frame.Unpack(buf, r.chunkSize)
}

// Close closes the underlying codec reader.
func (r *Reader) Close() error {
	return r.codec.Close()
}
