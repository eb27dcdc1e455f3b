package stream

import (
	"fmt"
	"io"

	"gocv.io/x/gocv"
)

// ffv1FourCC selects the reference lossless codec profile spec §4.E names:
// FFV1 in a Matroska container. gocv opens it through OpenCV's FFmpeg
// backend, the same way the teacher drives GStreamer processes around raw
// frame buffers in cvpipe/pipeline.go, but in-process rather than over a
// pair of pipes to an external binary.
const ffv1FourCC = "FFV1"

// GocvWriter is the CodecWriter implementation backed by gocv.VideoWriter.
type GocvWriter struct {
	vw            *gocv.VideoWriter
	width, height int
}

// NewGocvWriter opens path for writing at the given resolution and frame
// rate using the FFV1 lossless codec.
func NewGocvWriter(path string, width, height, fps int) (*GocvWriter, error) {
	vw, err := gocv.VideoWriterFile(path, ffv1FourCC, float64(fps), width, height, true)
	if err != nil {
		return nil, fmt.Errorf("open video writer %s: %w", path, err)
	}
	return &GocvWriter{vw: vw, width: width, height: height}, nil
}

// WriteFrame accepts one frame of R,G,B row-major pixel bytes (the wire
// convention of the frame package) and writes it through OpenCV, which
// expects B,G,R channel order internally.
func (w *GocvWriter) WriteFrame(rgb []byte) error {
	bgr := swapRB(rgb)
	mat, err := gocv.NewMatFromBytes(w.height, w.width, gocv.MatTypeCV8UC3, bgr)
	if err != nil {
		return fmt.Errorf("build frame mat: %w", err)
	}
	defer mat.Close()
	return w.vw.Write(mat)
}

// Close flushes and closes the underlying video writer.
func (w *GocvWriter) Close() error {
	return w.vw.Close()
}

// GocvReader is the CodecReader implementation backed by gocv.VideoCapture.
type GocvReader struct {
	vc *gocv.VideoCapture
}

// NewGocvReader opens path for reading.
func NewGocvReader(path string) (*GocvReader, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video capture %s: %w", path, err)
	}
	return &GocvReader{vc: vc}, nil
}

// Width reports the frame width OpenCV discovered in the container itself,
// used to validate against the metadata preamble (spec §7.2).
func (r *GocvReader) Width() int { return int(r.vc.Get(gocv.VideoCaptureFrameWidth)) }

// Height reports the frame height OpenCV discovered in the container.
func (r *GocvReader) Height() int { return int(r.vc.Get(gocv.VideoCaptureFrameHeight)) }

// ReadFrame returns the next frame's R,G,B row-major pixel bytes, converting
// out of OpenCV's B,G,R Mat layout.
func (r *GocvReader) ReadFrame() ([]byte, error) {
	mat := gocv.NewMat()
	defer mat.Close()
	if ok := r.vc.Read(&mat); !ok || mat.Empty() {
		return nil, io.EOF
	}
	return swapRB(mat.ToBytes()), nil
}

// Close releases the underlying video capture.
func (r *GocvReader) Close() error {
	r.vc.Close()
	return nil
}

func swapRB(buf []byte) []byte {
	out := make([]byte, len(buf))
	for i := 0; i+2 < len(buf); i += 3 {
		out[i], out[i+1], out[i+2] = buf[i+2], buf[i+1], buf[i]
	}
	return out
}
