package assets_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/assets"
	"scribe/internal/services"
	"scribe/internal/testsupport"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		ref  string
		kind assets.Kind
		ok   bool
	}{
		{"/media/interview.MP3", assets.KindAudio, true},
		{"file:///media/lecture.mp4", assets.KindVideo, true},
		{"https://cdn.example.com/a/b/podcast.m4a?sig=abc", assets.KindAudio, true},
		{"/docs/report.pdf", "", false},
		{"/media/noextension", "", false},
		{"ftp://example.com/a.mp3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		kind, err := assets.Validate(tc.ref)
		if tc.ok {
			if err != nil || kind != tc.kind {
				t.Errorf("Validate(%q) = %q, %v; want %q", tc.ref, kind, err, tc.kind)
			}
			continue
		}
		if !errors.Is(err, services.ErrValidation) {
			t.Errorf("Validate(%q) expected validation error, got %v", tc.ref, err)
		}
	}
}

func TestResolveLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	testsupport.WriteMediaFile(t, path, 2048)

	asset, err := (&assets.Resolver{}).Resolve(context.Background(), path, t.TempDir())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if asset.Path != path || asset.Size != 2048 || asset.Remote {
		t.Fatalf("unexpected asset: %#v", asset)
	}
}

func TestResolveMissingLocalFileIsStorageError(t *testing.T) {
	_, err := (&assets.Resolver{}).Resolve(context.Background(), "/nowhere/clip.wav", t.TempDir())
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestResolveDownloadsRemoteAsset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.mp3" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-fake-audio"))
	}))
	defer server.Close()

	workDir := t.TempDir()
	resolver := assets.NewResolver(0)
	asset, err := resolver.Resolve(context.Background(), server.URL+"/episode.mp3", workDir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !asset.Remote || asset.Path != filepath.Join(workDir, "source.mp3") {
		t.Fatalf("unexpected asset: %#v", asset)
	}
	data, err := os.ReadFile(asset.Path)
	if err != nil || string(data) != "ID3-fake-audio" {
		t.Fatalf("unexpected download contents %q err=%v", data, err)
	}

	_, err = resolver.Resolve(context.Background(), server.URL+"/missing.mp3", workDir)
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage error for 404, got %v", err)
	}
}

func TestKindForContentType(t *testing.T) {
	if kind, ok := assets.KindForContentType("video/mp4; codecs=avc1"); !ok || kind != assets.KindVideo {
		t.Fatalf("unexpected kind %q ok=%v", kind, ok)
	}
	if _, ok := assets.KindForContentType("text/html"); ok {
		t.Fatal("expected text/html to be rejected")
	}
}
