// Package analyze implements the record-transformation stage of the pipeline:
// decoding inbound payloads, classifying their text, and merging the verdict
// back into the record.
package analyze

import (
	"encoding/base64"
	"fmt"
)

// PayloadEncoding names how a trigger source wraps its record payloads. The
// transformer mirrors the input encoding on output, so a base64-wrapped batch
// comes back base64-wrapped.
type PayloadEncoding string

const (
	// EncodingRaw means the payload bytes are the JSON record itself.
	EncodingRaw PayloadEncoding = "raw"
	// EncodingBase64 means the payload is standard-base64-encoded JSON.
	EncodingBase64 PayloadEncoding = "base64"
)

// Decode normalizes a trigger payload to raw JSON bytes.
func (e PayloadEncoding) Decode(data []byte) ([]byte, error) {
	switch e {
	case EncodingRaw:
		return data, nil
	case EncodingBase64:
		decoded, err := base64.StdEncoding.DecodeString(string(data))
		if err != nil {
			return nil, fmt.Errorf("base64 decode payload: %w", err)
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("unknown payload encoding %q", string(e))
	}
}

// Encode re-wraps raw JSON bytes to match the encoding convention of the
// batch's consumer.
func (e PayloadEncoding) Encode(data []byte) ([]byte, error) {
	switch e {
	case EncodingRaw:
		return data, nil
	case EncodingBase64:
		return []byte(base64.StdEncoding.EncodeToString(data)), nil
	default:
		return nil, fmt.Errorf("unknown payload encoding %q", string(e))
	}
}
