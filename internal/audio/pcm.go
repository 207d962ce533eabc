package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

type DecodeErrorKind string

const (
	DecodeInvalidBase64 DecodeErrorKind = "invalid_base64"
	DecodeOddByteLength DecodeErrorKind = "odd_byte_length"
)

// DecodeError reports why a synthesized audio payload could not be decoded.
type DecodeError struct {
	Kind DecodeErrorKind
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pcm decode %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("pcm decode %s", e.Kind)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeBase64PCM16 decodes a base64 payload and reinterprets the bytes as
// little-endian signed 16-bit samples. An odd byte count cannot form whole
// samples and fails; there are no partial results.
func DecodeBase64PCM16(payload string) ([]int16, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &DecodeError{Kind: DecodeInvalidBase64, Err: err}
	}
	if len(raw)%2 != 0 {
		return nil, &DecodeError{Kind: DecodeOddByteLength, Err: fmt.Errorf("%d bytes", len(raw))}
	}

	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples, nil
}
