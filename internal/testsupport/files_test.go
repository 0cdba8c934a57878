package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteMediaFileSizes(t *testing.T) {
	dir := t.TempDir()

	wav := WriteMediaFile(t, filepath.Join(dir, "nested", "talk.wav"), 64)
	data, err := os.ReadFile(wav)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) != 64 || string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("unexpected wav fixture: len=%d header=%q", len(data), data[:12])
	}

	mp3 := WriteMediaFile(t, filepath.Join(dir, "talk.mp3"), 0)
	info, err := os.Stat(mp3)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != 1 {
		t.Fatalf("expected one byte for non-positive size, got %d", info.Size())
	}
}
