package testsupport

import (
	"context"
	"testing"

	"scribe/internal/config"
	"scribe/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustEnqueue adds a pending job for tests.
func MustEnqueue(t testing.TB, store *queue.Store, sourceRef string, priority int) *queue.Job {
	t.Helper()

	job, err := store.Enqueue(context.Background(), queue.NewJob{
		SourceRef:  sourceRef,
		Language:   "en",
		EngineName: "fake",
		Priority:   priority,
	})
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return job
}
