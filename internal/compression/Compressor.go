package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/substantialcattle5/dupefiles/internal/constants"
)

// zstd frames start with this magic number
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// gzip members start with this header
var gzipMagic = []byte{0x1f, 0x8b}

// CompressData compresses a snapshot according to the specified compression algorithm
func CompressData(data []byte, algorithm string) ([]byte, error) {
	switch algorithm {
	case constants.CompressionTypeNone, "":
		return data, nil
	case constants.CompressionTypeGzip:
		var buf bytes.Buffer
		writer := gzip.NewWriter(&buf)
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write gzip data: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("failed to close gzip writer: %w", err)
		}
		return buf.Bytes(), nil
	case constants.CompressionTypeZstd:
		encoder, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		defer encoder.Close()
		return encoder.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
}

// DecompressData decompresses data according to the specified compression algorithm
func DecompressData(data []byte, algorithm string) ([]byte, error) {
	switch algorithm {
	case constants.CompressionTypeNone, "":
		return data, nil
	case constants.CompressionTypeGzip:
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer reader.Close()

		var buf bytes.Buffer
		// Limit decompression size to guard against bombs
		n, err := io.CopyN(&buf, reader, constants.MaxDecompressionSize)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to decompress gzip data: %w", err)
		}
		if n == constants.MaxDecompressionSize {
			var extraByte [1]byte
			if _, err := reader.Read(extraByte[:]); err == nil {
				return nil, fmt.Errorf("decompressed data exceeds maximum size limit (%d bytes)", constants.MaxDecompressionSize)
			}
		}
		return buf.Bytes(), nil
	case constants.CompressionTypeZstd:
		decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(constants.MaxDecompressionSize))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer decoder.Close()

		decompressed, err := decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress zstd data: %w", err)
		}
		return decompressed, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
}

// Detect reports which algorithm produced data by looking at its magic bytes.
// Snapshots written before compression was switched on decode as "none".
func Detect(data []byte) string {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return constants.CompressionTypeZstd
	case bytes.HasPrefix(data, gzipMagic):
		return constants.CompressionTypeGzip
	default:
		return constants.CompressionTypeNone
	}
}

// Decode decompresses a snapshot whatever algorithm wrote it
func Decode(data []byte) ([]byte, error) {
	return DecompressData(data, Detect(data))
}
