package services_test

import (
	"errors"
	"strings"
	"testing"

	"scribe/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrEngine, "transcribe", "chunk 2", "engine call failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrEngine) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcribe", "chunk 2", "engine call failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestKindMapping(t *testing.T) {
	cases := []struct {
		err  error
		want services.Kind
	}{
		{services.Wrap(services.ErrValidation, "dispatcher", "enqueue", "bad asset", nil), services.KindValidation},
		{services.Wrap(services.ErrNotFound, "api", "status", "unknown job", nil), services.KindNotFound},
		{services.Wrap(services.ErrEngine, "engine", "call", "quota", nil), services.KindEngine},
		{services.Wrap(services.ErrTimeout, "engine", "call", "deadline", nil), services.KindEngine},
		{services.Wrap(services.ErrStorage, "chunking", "extract", "disk full", nil), services.KindStorage},
		{services.Wrap(services.ErrCancelled, "worker", "checkpoint", "cancelled", nil), services.KindCancelled},
		{errors.New("plain"), services.KindInternal},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := services.KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestDetailsAndFailureMessage(t *testing.T) {
	cause := errors.New("429 too many requests")
	err := services.WithHint(
		services.Wrap(services.ErrEngine, "engine", "transcribe", "quota exceeded", cause),
		"raise the engine quota or resubmit later",
	)
	details := services.Details(err)
	if details.Kind != services.KindEngine {
		t.Fatalf("unexpected kind %q", details.Kind)
	}
	if details.Operation != "transcribe" || details.Hint == "" {
		t.Fatalf("unexpected details: %+v", details)
	}
	if msg := services.FailureMessage(err); msg != "quota exceeded: 429 too many requests" {
		t.Fatalf("unexpected failure message %q", msg)
	}
	if msg := services.FailureMessage(errors.New("raw")); msg != "raw" {
		t.Fatalf("unexpected failure message %q", msg)
	}
}
