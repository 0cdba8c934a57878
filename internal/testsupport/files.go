package testsupport

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteMediaFile creates a placeholder asset of exactly size bytes at path
// (at least one byte) and returns path. Tests stub ffprobe and the engine, so
// only the name and size matter; .wav files also get a RIFF header.
func WriteMediaFile(t testing.TB, path string, size int64) string {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	data := bytes.Repeat([]byte{0x42}, int(size))
	if strings.EqualFold(filepath.Ext(path), ".wav") && size >= 12 {
		copy(data, "RIFF")
		binary.LittleEndian.PutUint32(data[4:8], uint32(size-8))
		copy(data[8:], "WAVE")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write media fixture %s: %v", path, err)
	}
	return path
}
