package audio

import (
	"encoding/binary"
	"testing"
)

func TestEncodeWAV_HeaderLayout(t *testing.T) {
	samples := []int16{0, 100, -100, 32767, -32768}
	data, err := EncodeWAV(samples, 24000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(data) != 44+2*len(samples) {
		t.Fatalf("expected %d bytes, got %d", 44+2*len(samples), len(data))
	}
	if string(data[0:4]) != "RIFF" {
		t.Fatalf("missing RIFF chunk ID: %q", data[0:4])
	}
	if string(data[8:12]) != "WAVE" {
		t.Fatalf("missing WAVE format: %q", data[8:12])
	}
	if string(data[12:16]) != "fmt " {
		t.Fatalf("missing fmt chunk: %q", data[12:16])
	}
	if string(data[36:40]) != "data" {
		t.Fatalf("missing data chunk: %q", data[36:40])
	}

	chunkSize := binary.LittleEndian.Uint32(data[4:8])
	if chunkSize != uint32(36+2*len(samples)) {
		t.Fatalf("expected chunk size %d, got %d", 36+2*len(samples), chunkSize)
	}
	if format := binary.LittleEndian.Uint16(data[20:22]); format != 1 {
		t.Fatalf("expected PCM format 1, got %d", format)
	}
	if channels := binary.LittleEndian.Uint16(data[22:24]); channels != 1 {
		t.Fatalf("expected mono, got %d channels", channels)
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 24000 {
		t.Fatalf("expected sample rate 24000, got %d", rate)
	}
	if byteRate := binary.LittleEndian.Uint32(data[28:32]); byteRate != 48000 {
		t.Fatalf("expected byte rate 48000, got %d", byteRate)
	}
	if blockAlign := binary.LittleEndian.Uint16(data[32:34]); blockAlign != 2 {
		t.Fatalf("expected block align 2, got %d", blockAlign)
	}
	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != 16 {
		t.Fatalf("expected 16 bits per sample, got %d", bits)
	}
	if dataSize := binary.LittleEndian.Uint32(data[40:44]); dataSize != uint32(2*len(samples)) {
		t.Fatalf("expected data size %d, got %d", 2*len(samples), dataSize)
	}
}

func TestEncodeWAV_SamplePayloadLittleEndian(t *testing.T) {
	data, err := EncodeWAV([]int16{0x0102, -2}, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payload := data[44:]
	if payload[0] != 0x02 || payload[1] != 0x01 {
		t.Fatalf("first sample not little-endian: % x", payload[:2])
	}
	if payload[2] != 0xFE || payload[3] != 0xFF {
		t.Fatalf("negative sample not two's complement little-endian: % x", payload[2:4])
	}
}

func TestEncodeWAV_EmptySamples(t *testing.T) {
	data, err := EncodeWAV(nil, 8000)
	if err != nil {
		t.Fatalf("empty sample buffer must encode: %v", err)
	}
	if len(data) != 44 {
		t.Fatalf("expected bare 44-byte header, got %d bytes", len(data))
	}
	if chunkSize := binary.LittleEndian.Uint32(data[4:8]); chunkSize != 36 {
		t.Fatalf("expected chunk size 36, got %d", chunkSize)
	}
}

func TestEncodeWAV_InvalidRate(t *testing.T) {
	if _, err := EncodeWAV([]int16{1}, 0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
	if _, err := EncodeWAV([]int16{1}, -8000); err == nil {
		t.Fatal("expected error for negative sample rate")
	}
}

func TestDuration(t *testing.T) {
	data, err := EncodeWAV(make([]int16, 24000), 24000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := Duration(data); d != 1.0 {
		t.Fatalf("expected 1s, got %v", d)
	}
	if d := Duration([]byte{1, 2, 3}); d != 0 {
		t.Fatalf("expected 0 for truncated data, got %v", d)
	}
}
