// main.go
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/n0remac/rvs/pipeline"
	"github.com/n0remac/rvs/rvserr"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "encode":
		runEncode(os.Args[2:])
	case "decode":
		runDecode(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: rvs encode -in FILE -out FILE.mkv [flags]")
	fmt.Fprintln(os.Stderr, "       rvs decode -in FILE.mkv -out FILE [-password PASS]")
}

func runEncode(args []string) {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	in := fs.String("in", "", "input file to hide")
	out := fs.String("out", "", "output video path (.mkv)")
	password := fs.String("password", "", "if set, the input is AEAD-encrypted before chunking")
	chunkSize := fs.Uint("chunk-size", uint(pipeline.DefaultOptions().ChunkSize), "source chunk size in bytes (B)")
	redundancy := fs.Float64("redundancy", float64(pipeline.DefaultOptions().Redundancy), "fountain redundancy, e.g. 0.3 for 30% extra packets")
	width := fs.Uint("width", uint(pipeline.DefaultOptions().Width), "frame width in pixels")
	height := fs.Uint("height", uint(pipeline.DefaultOptions().Height), "frame height in pixels")
	fps := fs.Uint("fps", uint(pipeline.DefaultOptions().Fps), "output frame rate")
	fs.Parse(args)

	if *in == "" || *out == "" {
		log.Fatalf("encode: -in and -out are required")
	}

	opts := pipeline.Options{
		ChunkSize:  uint32(*chunkSize),
		Redundancy: float32(*redundancy),
		Width:      uint32(*width),
		Height:     uint32(*height),
		Fps:        uint32(*fps),
	}

	if err := pipeline.Encode(*in, *out, *password, opts); err != nil {
		log.Fatalf("encode %s -> %s: %v", *in, *out, describe(err))
	}
	log.Printf("encoded %s into %s", *in, *out)
}

func runDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	in := fs.String("in", "", "input video produced by rvs encode")
	out := fs.String("out", "", "output file or directory")
	password := fs.String("password", "", "required if the input was encrypted")
	fs.Parse(args)

	if *in == "" || *out == "" {
		log.Fatalf("decode: -in and -out are required")
	}

	if err := pipeline.Decode(*in, *out, *password); err != nil {
		log.Fatalf("decode %s -> %s: %v", *in, *out, describe(err))
	}
	log.Printf("decoded %s into %s", *in, *out)
}

// describe adds the operator-facing hint spec §7 calls for on the two kinds
// a caller can plausibly act on: a missing/wrong password, and a dropped
// stream that lost too many frames to recover.
func describe(err error) string {
	switch e := err.(type) {
	case *rvserr.AuthFailureError:
		return e.Error() + " (supply -password, or check it's correct)"
	case *rvserr.IncompleteRecoveryError:
		return fmt.Sprintf("%s (re-encode with higher -redundancy, or recover more of the video)", e.Error())
	default:
		return err.Error()
	}
}
