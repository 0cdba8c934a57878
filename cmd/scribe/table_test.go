package main

import (
	"strings"
	"testing"
	"time"

	"scribe/internal/api"
	"scribe/internal/qa"
)

func TestRenderQueueStatsTableOrdersByLifecycle(t *testing.T) {
	if out := renderQueueStatsTable(map[string]int{"pending": 0}); out != "" {
		t.Fatalf("expected no table for all-zero counts, got %q", out)
	}

	out := renderQueueStatsTable(map[string]int{"completed": 2, "pending": 1})
	pending := strings.Index(out, "pending")
	completed := strings.Index(out, "completed")
	if pending < 0 || completed < 0 || pending > completed {
		t.Fatalf("expected pending before completed:\n%s", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("expected trailing newline, got %q", out)
	}
}

func TestRenderJobTableColumns(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	out := renderJobTable([]api.Job{{
		ID:        "0f3c9a2e-5b8d-4c1e-9a7f-1234567890ab",
		SourceRef: "/media/talk.mp3",
		Status:    "processing",
		Priority:  10,
		CreatedAt: now.Add(-2 * time.Minute).Format(time.RFC3339),
	}}, now)
	for _, want := range []string{"ID", "Priority", "Source", "0f3c9a2e", "processing", "10", "/media/talk.mp3"} {
		requireContains(t, out, want)
	}
}

func TestRenderQAIssueTableJoinsSamples(t *testing.T) {
	out := renderQAIssueTable([]qa.Issue{
		{Type: qa.IssueUnits, Count: 2, Samples: []string{"50km", "20€"}},
		{Type: qa.IssuePunctuation, Count: 1},
	})
	requireContains(t, out, "50km | 20€")
	requireContains(t, out, "punctuation")
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(qaIssueColumns, [][]string{{"numbers"}, {"urls", "1", "a", "extra"}})
	requireContains(t, out, "numbers")
	if strings.Contains(out, "extra") {
		t.Fatalf("extra cells should be dropped:\n%s", out)
	}
}
