// Package assets validates and resolves the source references jobs are
// created from.
//
// A reference is a bare filesystem path, a file:// URL, or an http(s) URL.
// Remote assets are downloaded into the job's working directory and disappear
// with it; the pipeline never manages the lifecycle of the original asset.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"scribe/internal/services"
)

// Kind is the media class of an asset.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

var extensionKinds = map[string]Kind{
	".aac":  KindAudio,
	".aiff": KindAudio,
	".amr":  KindAudio,
	".flac": KindAudio,
	".m4a":  KindAudio,
	".mp3":  KindAudio,
	".mpga": KindAudio,
	".oga":  KindAudio,
	".ogg":  KindAudio,
	".opus": KindAudio,
	".wav":  KindAudio,
	".weba": KindAudio,
	".wma":  KindAudio,
	".avi":  KindVideo,
	".m4v":  KindVideo,
	".mkv":  KindVideo,
	".mov":  KindVideo,
	".mp4":  KindVideo,
	".mpeg": KindVideo,
	".mpg":  KindVideo,
	".ts":   KindVideo,
	".webm": KindVideo,
	".wmv":  KindVideo,
}

// Asset is a source reference resolved to a readable local file.
type Asset struct {
	Ref    string
	Path   string
	Kind   Kind
	Size   int64
	Remote bool
}

type parsedRef struct {
	local  string
	remote *url.URL
}

func parseRef(ref string) (parsedRef, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return parsedRef{}, errors.New("asset reference is empty")
	}
	if !strings.Contains(ref, "://") {
		return parsedRef{local: ref}, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return parsedRef{}, fmt.Errorf("invalid asset url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		return parsedRef{local: u.Path}, nil
	case "http", "https":
		if u.Host == "" {
			return parsedRef{}, fmt.Errorf("asset url %q has no host", ref)
		}
		return parsedRef{remote: u}, nil
	default:
		return parsedRef{}, fmt.Errorf("unsupported asset scheme %q", u.Scheme)
	}
}

func (p parsedRef) name() string {
	if p.remote != nil {
		return path.Base(p.remote.Path)
	}
	return filepath.Base(p.local)
}

// KindForName classifies a file name by extension, consulting the system MIME
// table for extensions outside the built-in list.
func KindForName(name string) (Kind, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "", false
	}
	if kind, ok := extensionKinds[ext]; ok {
		return kind, true
	}
	return KindForContentType(mime.TypeByExtension(ext))
}

// KindForContentType classifies a MIME type.
func KindForContentType(contentType string) (Kind, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	switch {
	case strings.HasPrefix(mediaType, "audio/"):
		return KindAudio, true
	case strings.HasPrefix(mediaType, "video/"):
		return KindVideo, true
	default:
		return "", false
	}
}

// Validate checks that ref names an audio or video asset. It does not touch
// the asset itself.
func Validate(ref string) (Kind, error) {
	parsed, err := parseRef(ref)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "assets", "validate", "invalid asset reference", err)
	}
	kind, ok := KindForName(parsed.name())
	if !ok {
		return "", services.Wrap(
			services.ErrValidation,
			"assets",
			"validate",
			fmt.Sprintf("asset %q is not a transcribable audio or video file", strings.TrimSpace(ref)),
			nil,
		)
	}
	return kind, nil
}

// Resolver turns references into local files.
type Resolver struct {
	Client *http.Client
}

// NewResolver returns a resolver whose downloads time out after timeout.
func NewResolver(timeout time.Duration) *Resolver {
	return &Resolver{Client: &http.Client{Timeout: timeout}}
}

// Resolve makes ref readable as a local file. Remote assets are downloaded
// into workDir.
func (r *Resolver) Resolve(ctx context.Context, ref, workDir string) (*Asset, error) {
	kind, err := Validate(ref)
	if err != nil {
		return nil, err
	}
	parsed, _ := parseRef(ref)

	if parsed.remote == nil {
		info, err := os.Stat(parsed.local)
		if err != nil {
			return nil, services.Wrap(services.ErrStorage, "assets", "stat source", "source asset is not readable", err)
		}
		if info.IsDir() {
			return nil, services.Wrap(services.ErrStorage, "assets", "stat source", fmt.Sprintf("source %q is a directory", parsed.local), nil)
		}
		return &Asset{Ref: ref, Path: parsed.local, Kind: kind, Size: info.Size()}, nil
	}

	dest := filepath.Join(workDir, "source"+strings.ToLower(path.Ext(parsed.remote.Path)))
	size, err := r.download(ctx, parsed.remote.String(), dest)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "assets", "download", "failed to fetch remote asset", err)
	}
	return &Asset{Ref: ref, Path: dest, Kind: kind, Size: size, Remote: true}, nil
}

func (r *Resolver) download(ctx context.Context, rawURL, dest string) (int64, error) {
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("GET %s: unexpected status %s", rawURL, resp.Status)
	}

	file, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	written, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(dest)
		return 0, copyErr
	}
	if closeErr != nil {
		_ = os.Remove(dest)
		return 0, closeErr
	}
	return written, nil
}
