package pipeline

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/n0remac/rvs/rvserr"
	"github.com/n0remac/rvs/stream"
)

const (
	testWidth  = 64
	testHeight = 64
	testFps    = 30
)

func testOptions(chunkSize uint32, redundancy float32) Options {
	return Options{
		ChunkSize:  chunkSize,
		Redundancy: redundancy,
		Width:      testWidth,
		Height:     testHeight,
		Fps:        testFps,
	}
}

// dropFrames keeps the first frame (the metadata preamble) and drops data
// frames at random according to rate, mirroring the erasure the fountain
// code is meant to tolerate.
func dropFrames(frames [][]byte, rate float64, seed int64) [][]byte {
	r := rand.New(rand.NewSource(seed))
	kept := make([][]byte, 0, len(frames))
	for i, f := range frames {
		if i > 0 && r.Float64() < rate {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func TestPipelineRoundTripNoLoss(t *testing.T) {
	data := make([]byte, 100_000)
	if _, err := rand.New(rand.NewSource(1)).Read(data); err != nil {
		t.Fatalf("generate data: %v", err)
	}
	opts := testOptions(512, 0.3)

	mem := stream.NewMemoryCodec()
	if err := encodeTo(mem, testWidth, testHeight, data, "payload.bin", "", opts, 0xC0FFEE); err != nil {
		t.Fatalf("encodeTo: %v", err)
	}

	reader := stream.NewMemoryCodecFromFrames(mem.Frames())
	got, rec, err := decodeFrom(reader, stream.Capacity(testWidth, testHeight), "")
	if err != nil {
		t.Fatalf("decodeFrom: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(data))
	}
	if rec.Name != "payload.bin" {
		t.Fatalf("name mismatch: %q", rec.Name)
	}
}

func TestPipelineTolerates25PercentFrameLoss(t *testing.T) {
	data := make([]byte, 200_000)
	if _, err := rand.New(rand.NewSource(2)).Read(data); err != nil {
		t.Fatalf("generate data: %v", err)
	}
	// 60% redundancy gives real margin above N at a 25% drop rate; see the
	// matching comment in fountain/fountain_test.go.
	opts := testOptions(256, 0.6)

	mem := stream.NewMemoryCodec()
	if err := encodeTo(mem, testWidth, testHeight, data, "lossy.bin", "", opts, 0xDEADBEEF); err != nil {
		t.Fatalf("encodeTo: %v", err)
	}

	kept := dropFrames(mem.Frames(), 0.25, 42)
	reader := stream.NewMemoryCodecFromFrames(kept)
	got, _, err := decodeFrom(reader, stream.Capacity(testWidth, testHeight), "")
	if err != nil {
		t.Fatalf("decodeFrom with 25%% frame loss: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch after partial loss")
	}
}

func TestPipelineReportsIncompleteRecoveryBeyondRedundancyBudget(t *testing.T) {
	data := make([]byte, 200_000)
	if _, err := rand.New(rand.NewSource(3)).Read(data); err != nil {
		t.Fatalf("generate data: %v", err)
	}
	opts := testOptions(256, 0.3)

	mem := stream.NewMemoryCodec()
	if err := encodeTo(mem, testWidth, testHeight, data, "lossy.bin", "", opts, 7); err != nil {
		t.Fatalf("encodeTo: %v", err)
	}

	kept := dropFrames(mem.Frames(), 0.40, 99)
	reader := stream.NewMemoryCodecFromFrames(kept)
	_, _, err := decodeFrom(reader, stream.Capacity(testWidth, testHeight), "")
	if err == nil {
		t.Fatalf("want IncompleteRecoveryError, got success")
	}
	if _, ok := err.(*rvserr.IncompleteRecoveryError); !ok {
		t.Fatalf("want IncompleteRecoveryError, got %T: %v", err, err)
	}
}

func TestPipelineEncryptedRoundTrip(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog, many times over and over")
	opts := testOptions(16, 0.3)

	mem := stream.NewMemoryCodec()
	if err := encodeTo(mem, testWidth, testHeight, data, "secret.txt", "hunter2", opts, 11); err != nil {
		t.Fatalf("encodeTo: %v", err)
	}

	reader := stream.NewMemoryCodecFromFrames(mem.Frames())
	got, rec, err := decodeFrom(reader, stream.Capacity(testWidth, testHeight), "hunter2")
	if err != nil {
		t.Fatalf("decodeFrom: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("encrypted round trip mismatch")
	}
	if !rec.Encrypted() {
		t.Fatalf("want encrypted flag set")
	}
}

func TestPipelineEncryptedRejectsMissingPassword(t *testing.T) {
	data := []byte("top secret")
	opts := testOptions(16, 0.3)

	mem := stream.NewMemoryCodec()
	if err := encodeTo(mem, testWidth, testHeight, data, "secret.txt", "hunter2", opts, 13); err != nil {
		t.Fatalf("encodeTo: %v", err)
	}

	reader := stream.NewMemoryCodecFromFrames(mem.Frames())
	_, _, err := decodeFrom(reader, stream.Capacity(testWidth, testHeight), "")
	if _, ok := err.(*rvserr.AuthFailureError); !ok {
		t.Fatalf("want AuthFailureError, got %T: %v", err, err)
	}
}

func TestPipelineEncryptedRejectsWrongPassword(t *testing.T) {
	data := []byte("top secret")
	opts := testOptions(16, 0.3)

	mem := stream.NewMemoryCodec()
	if err := encodeTo(mem, testWidth, testHeight, data, "secret.txt", "hunter2", opts, 17); err != nil {
		t.Fatalf("encodeTo: %v", err)
	}

	reader := stream.NewMemoryCodecFromFrames(mem.Frames())
	_, _, err := decodeFrom(reader, stream.Capacity(testWidth, testHeight), "wrong")
	if _, ok := err.(*rvserr.AuthFailureError); !ok {
		t.Fatalf("want AuthFailureError, got %T: %v", err, err)
	}
}

func TestEncodeToRejectsOversizedChunkLayout(t *testing.T) {
	data := make([]byte, 1<<20)
	opts := testOptions(4096, 0.3)

	mem := stream.NewMemoryCodec()
	err := encodeTo(mem, 4, 4, data, "too-big.bin", "", opts, 1)
	if _, ok := err.(*rvserr.InvalidInputError); !ok {
		t.Fatalf("want InvalidInputError, got %T: %v", err, err)
	}
}

func TestValidateRejectsBadOptions(t *testing.T) {
	cases := []Options{
		{ChunkSize: 0, Redundancy: 0.3, Width: 1, Height: 1, Fps: 1},
		{ChunkSize: 1, Redundancy: -0.1, Width: 1, Height: 1, Fps: 1},
		{ChunkSize: 1, Redundancy: 2.1, Width: 1, Height: 1, Fps: 1},
		{ChunkSize: 1, Redundancy: 0.3, Width: 0, Height: 1, Fps: 1},
		{ChunkSize: 1, Redundancy: 0.3, Width: 1, Height: 1, Fps: 0},
	}
	for i, opts := range cases {
		if err := opts.Validate(); err == nil {
			t.Fatalf("case %d: want error for %+v", i, opts)
		}
	}
}
