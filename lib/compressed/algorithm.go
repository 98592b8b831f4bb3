// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compressed

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm identifies the compression applied to a document. The
// values are written to the wire as a single byte: changing them
// breaks compatibility with every encoded template.
type Algorithm uint8

const (
	// None stores the canonical content uncompressed.
	None Algorithm = 0

	// LZ4 is LZ4 block compression.
	LZ4 Algorithm = 1

	// Zstd is zstd compression at the default level.
	Zstd Algorithm = 2
)

// String returns the configuration name of the algorithm.
func (algorithm Algorithm) String() string {
	switch algorithm {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", algorithm)
	}
}

// Valid reports whether the algorithm is one this package can decode.
func (algorithm Algorithm) Valid() bool {
	return algorithm <= Zstd
}

// ParseAlgorithm parses an algorithm name as used in configuration
// files and command-line flags.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return 0, fmt.Errorf("unknown compression algorithm %q (want none, lz4, or zstd)", name)
	}
}

// zstdEncoder and zstdDecoder are shared across calls; both are safe
// for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("compressed: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxSize))
	if err != nil {
		panic("compressed: zstd decoder initialization failed: " + err.Error())
	}
}

// compress applies algorithm to content. The returned algorithm is
// None when compression would not make the content smaller.
func compress(content []byte, algorithm Algorithm) ([]byte, Algorithm, error) {
	switch algorithm {
	case None:
		return content, None, nil

	case LZ4:
		destination := make([]byte, lz4.CompressBlockBound(len(content)))
		written, err := lz4.CompressBlock(content, destination, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("lz4 compress: %w", err)
		}
		// CompressBlock returns 0 for incompressible input.
		if written == 0 || written >= len(content) {
			return content, None, nil
		}
		return destination[:written], LZ4, nil

	case Zstd:
		compressedBytes := zstdEncoder.EncodeAll(content, nil)
		if len(compressedBytes) >= len(content) {
			return content, None, nil
		}
		return compressedBytes, Zstd, nil

	default:
		return nil, 0, fmt.Errorf("unsupported compression algorithm %d", algorithm)
	}
}

// decompress reverses compress. size is the declared uncompressed
// length; a mismatch is an error.
func decompress(data []byte, algorithm Algorithm, size int) ([]byte, error) {
	switch algorithm {
	case None:
		if len(data) != size {
			return nil, fmt.Errorf("uncompressed document: size %d does not match declared %d", len(data), size)
		}
		return data, nil

	case LZ4:
		destination := make([]byte, size)
		read, err := lz4.UncompressBlock(data, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, declared %d", read, size)
		}
		return destination, nil

	case Zstd:
		result, err := zstdDecoder.DecodeAll(data, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(result) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, declared %d", len(result), size)
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unsupported compression algorithm %d", algorithm)
	}
}
