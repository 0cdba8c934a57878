package staging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/logging"
)

// JobDirPrefix prefixes every per-job scratch directory under the staging dir.
const JobDirPrefix = "job-"

// CleanResult contains the outcome of a scratch directory cleanup.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// NewJobDir creates a fresh scratch directory for one job attempt.
func NewJobDir(stagingDir, jobID string) (string, error) {
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return "", err
	}
	return os.MkdirTemp(stagingDir, JobDirPrefix+shortID(jobID)+"-")
}

// CleanJobDirs removes every job scratch directory under stagingDir. It is
// only safe while no worker is running, e.g. at daemon start after orphaned
// jobs were failed. Other entries are left alone.
func CleanJobDirs(stagingDir string, logger *slog.Logger) CleanResult {
	result := CleanResult{}

	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return result
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), JobDirPrefix) {
			continue
		}
		dirPath := filepath.Join(stagingDir, entry.Name())
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove leftover job directory",
					logging.String("path", dirPath),
					logging.Error(err),
					logging.String(logging.FieldEventType, "staging_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed leftover job directory",
				logging.String("path", dirPath),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}

	return result
}

// DirUsage summarizes the scratch directories currently on disk.
type DirUsage struct {
	Count int
	Bytes int64
}

// JobDirUsage reports how many job scratch directories exist and their size.
func JobDirUsage(stagingDir string) (DirUsage, error) {
	var usage DirUsage
	entries, err := os.ReadDir(strings.TrimSpace(stagingDir))
	if err != nil {
		if os.IsNotExist(err) {
			return usage, nil
		}
		return usage, err
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), JobDirPrefix) {
			continue
		}
		usage.Count++
		size, _ := dirSize(filepath.Join(stagingDir, entry.Name()))
		usage.Bytes += size
	}
	return usage, nil
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size, err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
