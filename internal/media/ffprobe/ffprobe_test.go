package ffprobe

import "testing"

const sampleJSON = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264"},
    {"index": 1, "codec_type": "audio", "codec_name": "aac", "duration": "2399.98", "channels": 2}
  ],
  "format": {"filename": "lecture.mp4", "duration": "2400.000000", "size": "73400320"}
}`

func TestParseAndHelpers(t *testing.T) {
	result, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if !result.HasAudio() || result.AudioStreamCount() != 1 {
		t.Fatalf("expected one audio stream, got %d", result.AudioStreamCount())
	}
	if result.FirstAudioIndex() != 1 {
		t.Fatalf("expected audio index 1, got %d", result.FirstAudioIndex())
	}
	if result.DurationSeconds() != 2400 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 73400320 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
}

func TestDurationFallsBackToAudioStream(t *testing.T) {
	result := Result{
		Streams: []Stream{{Index: 0, CodecType: "audio", Duration: "61.5"}},
		Format:  Format{Duration: "N/A", Size: "-1"},
	}
	if result.DurationSeconds() != 61.5 {
		t.Fatalf("expected stream duration fallback, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
}

func TestNoAudio(t *testing.T) {
	result := Result{Streams: []Stream{{Index: 0, CodecType: "video"}}}
	if result.HasAudio() || result.FirstAudioIndex() != -1 {
		t.Fatal("expected no audio stream")
	}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected unknown duration, got %v", result.DurationSeconds())
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}
