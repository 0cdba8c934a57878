package chunking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"scribe/internal/assets"
)

// DefaultChunkDuration is the slice length used when none is configured.
const DefaultChunkDuration = 600.0

// Limits describe what the engine accepts in a single call. Zero disables a limit.
type Limits struct {
	MaxSeconds float64
	MaxBytes   int64
}

// NeedsSplit reports whether an asset of the given duration and size exceeds
// the single-call limits.
func NeedsSplit(durationSeconds float64, sizeBytes int64, limits Limits) bool {
	if limits.MaxSeconds > 0 && durationSeconds > limits.MaxSeconds {
		return true
	}
	if limits.MaxBytes > 0 && sizeBytes > limits.MaxBytes {
		return true
	}
	return false
}

// Chunk is one time slice of the source asset.
type Chunk struct {
	Index    int
	Start    float64
	Duration float64
	// Path is the temporary audio handle sent to the engine.
	Path string
}

// Plan computes ceil(total/chunkDuration) contiguous, non-overlapping slices.
// The last slice carries the remainder.
func Plan(total, chunkDuration float64) []Chunk {
	if total <= 0 {
		return nil
	}
	if chunkDuration <= 0 {
		chunkDuration = DefaultChunkDuration
	}
	count := int(math.Ceil(total / chunkDuration))
	chunks := make([]Chunk, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * chunkDuration
		duration := math.Min(chunkDuration, total-start)
		chunks = append(chunks, Chunk{Index: i, Start: start, Duration: duration})
	}
	return chunks
}

// Set is the ordered chunk list of one job plus the files backing it.
type Set struct {
	Chunks []Chunk
	// Total is the probed duration of the source in seconds.
	Total float64
	// Split reports whether the source was cut; an unsplit set points at the
	// source itself and Release leaves it alone.
	Split bool

	dir     string
	once    sync.Once
	release error
}

// NewSet wraps chunks whose files live under dir. Release removes dir.
func NewSet(chunks []Chunk, total float64, dir string) *Set {
	return &Set{Chunks: chunks, Total: total, Split: dir != "", dir: dir}
}

// Single returns an unsplit set that sends the whole asset in one call.
func Single(asset *assets.Asset, total float64) *Set {
	return &Set{
		Chunks: []Chunk{{Index: 0, Start: 0, Duration: total, Path: asset.Path}},
		Total:  total,
	}
}

// Len returns the number of chunks.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Chunks)
}

// Release deletes every materialized chunk. It is idempotent.
func (s *Set) Release() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		if !s.Split || s.dir == "" {
			return
		}
		var errs []error
		for _, chunk := range s.Chunks {
			if chunk.Path == "" {
				continue
			}
			if err := os.Remove(chunk.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
		}
		if err := os.RemoveAll(s.dir); err != nil {
			errs = append(errs, err)
		}
		if len(errs) > 0 {
			s.release = fmt.Errorf("release chunks: %w", errors.Join(errs...))
		}
	})
	return s.release
}

// Splitter produces the chunk set for an asset.
type Splitter interface {
	Split(ctx context.Context, asset *assets.Asset, workDir string) (*Set, error)
}
