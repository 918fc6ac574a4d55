package repositories

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Event detail blobs are stored zstd-compressed in the SQL backends.

var detailEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
var detailDecoder, _ = zstd.NewReader(nil)

func compressDetail(detail []byte) []byte {
	if len(detail) == 0 {
		return nil
	}
	return detailEncoder.EncodeAll(detail, nil)
}

func decompressDetail(blob []byte) ([]byte, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	detail, err := detailDecoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress event detail: %w", err)
	}
	return detail, nil
}
