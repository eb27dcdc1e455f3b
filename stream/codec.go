// Package stream drives a lossless intra-frame video codec at fixed
// resolution and orders the metadata/data frames the way spec §4.E
// specifies (component E). It is deliberately decoupled from any one codec
// backend through the two-method adapter interface spec §9 calls for.
package stream

// CodecWriter is the narrow write side of the codec adapter: WriteFrame,
// taking one frame's raw pixel bytes, plus Close.
type CodecWriter interface {
	WriteFrame(rgb []byte) error
	Close() error
}

// CodecReader is the narrow read side of the codec adapter. ReadFrame
// returns io.EOF once every frame has been consumed.
type CodecReader interface {
	ReadFrame() ([]byte, error)
	Close() error
}
