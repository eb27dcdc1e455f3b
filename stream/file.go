package stream

// NewWriterFromFile opens path as an FFV1/Matroska video writer at the given
// resolution and frame rate and wraps it with the frame-ordering Writer.
func NewWriterFromFile(path string, n, width, height, fps int) (*Writer, error) {
	gw, err := NewGocvWriter(path, width, height, fps)
	if err != nil {
		return nil, err
	}
	return NewWriter(gw, n, width, height), nil
}

// NewReaderFromFile opens path for reading. Resolution is discovered from
// the container itself rather than supplied by the caller, since decode has
// no options besides the input path and an optional password (spec §6).
func NewReaderFromFile(path string) (*Reader, error) {
	gr, err := NewGocvReader(path)
	if err != nil {
		return nil, err
	}
	capacity := Capacity(gr.Width(), gr.Height())
	return NewReader(gr, capacity)
}
