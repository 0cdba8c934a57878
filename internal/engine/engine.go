package engine

import (
	"context"
	"errors"
	"fmt"

	"scribe/internal/services"
	"scribe/internal/transcript"
)

// Request is one engine call.
type Request struct {
	// AudioPath is the local audio handle (a chunk WAV or the source asset).
	AudioPath string
	// Language is an ISO 639-1 hint; empty lets the engine detect it.
	Language string
	// Prompt is an optional vocabulary hint.
	Prompt string
}

// Adapter wraps a single external speech-to-text engine.
type Adapter interface {
	Name() string
	Transcribe(ctx context.Context, req Request) (transcript.Result, error)
}

// Reason classifies why an engine call failed.
type Reason string

const (
	ReasonTimeout   Reason = "timeout"
	ReasonQuota     Reason = "quota"
	ReasonMalformed Reason = "malformed"
	ReasonRejected  Reason = "rejected"
	ReasonExecution Reason = "execution"
)

// Error is a classified engine failure. It unwraps to services.ErrEngine, and
// to services.ErrTimeout for timeouts.
type Error struct {
	Engine string
	Reason Reason
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s", e.Engine, e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	errs := []error{services.ErrEngine}
	if e.Reason == ReasonTimeout {
		errs = append(errs, services.ErrTimeout)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// NewError builds a classified engine error.
func NewError(engineName string, reason Reason, detail string, cause error) error {
	return &Error{Engine: engineName, Reason: reason, Detail: detail, Cause: cause}
}

// ReasonOf returns the failure reason carried by err, if any.
func ReasonOf(err error) (Reason, bool) {
	var engErr *Error
	if errors.As(err, &engErr) {
		return engErr.Reason, true
	}
	return "", false
}

// Wrap turns an adapter error into the job-level failure recorded on the job.
func Wrap(err error, chunkIndex, chunkCount int) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	msg := "transcription failed"
	if chunkCount > 1 {
		msg = fmt.Sprintf("transcription failed on chunk %d/%d", chunkIndex+1, chunkCount)
	}
	if !errors.Is(err, services.ErrEngine) {
		err = NewError("engine", ReasonExecution, "", err)
	}
	return services.Wrap(services.ErrEngine, "transcribe", "engine call", msg, err)
}
