// Package export renders transcripts into subtitle, text, and JSON formats.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"scribe/internal/services"
	"scribe/internal/textutil"
	"scribe/internal/transcript"
)

// Format names an export target.
type Format string

const (
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatTXT  Format = "txt"
	FormatJSON Format = "json"
)

var contentTypes = map[Format]string{
	FormatSRT:  "application/x-subrip",
	FormatVTT:  "text/vtt",
	FormatTXT:  "text/plain; charset=utf-8",
	FormatJSON: "application/json",
}

// Formats lists the supported targets in display order.
func Formats() []Format {
	return []Format{FormatSRT, FormatVTT, FormatTXT, FormatJSON}
}

// ParseFormat validates a caller-supplied format name.
func ParseFormat(value string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := contentTypes[format]; !ok {
		return "", services.Wrap(
			services.ErrValidation,
			"export",
			"parse format",
			fmt.Sprintf("unsupported export format %q", value),
			nil,
		)
	}
	return format, nil
}

// ContentType returns the MIME type served for format.
func (f Format) ContentType() string {
	return contentTypes[f]
}

// FileName names a download of a transcript rendered from sourceRef.
func (f Format) FileName(sourceRef string) string {
	return textutil.FileStem(sourceRef, "transcript") + "." + string(f)
}

// Render formats tr for target, returning the bytes and their content type.
func Render(tr transcript.Transcript, target string) ([]byte, string, error) {
	format, err := ParseFormat(target)
	if err != nil {
		return nil, "", err
	}
	var data []byte
	switch format {
	case FormatSRT:
		data = SRT(tr.Segments)
	case FormatVTT:
		data = VTT(tr.Segments)
	case FormatTXT:
		data = []byte(tr.Text)
	case FormatJSON:
		data, err = JSON(tr.Segments)
		if err != nil {
			return nil, "", err
		}
	}
	return data, format.ContentType(), nil
}

// SRT renders numbered cues separated by blank lines.
func SRT(segments []transcript.Segment) []byte {
	var buf bytes.Buffer
	for i, seg := range segments {
		fmt.Fprintf(&buf, "%d\n%s --> %s\n%s\n\n",
			i+1,
			Timecode(seg.Start, ','),
			Timecode(seg.End, ','),
			strings.TrimSpace(seg.Text),
		)
	}
	return buf.Bytes()
}

// VTT renders a WEBVTT document without cue numbers.
func VTT(segments []transcript.Segment) []byte {
	var buf bytes.Buffer
	buf.WriteString("WEBVTT\n\n")
	for _, seg := range segments {
		fmt.Fprintf(&buf, "%s --> %s\n%s\n\n",
			Timecode(seg.Start, '.'),
			Timecode(seg.End, '.'),
			strings.TrimSpace(seg.Text),
		)
	}
	return buf.Bytes()
}

// JSON serializes the segment list.
func JSON(segments []transcript.Segment) ([]byte, error) {
	if segments == nil {
		segments = []transcript.Segment{}
	}
	data, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "export", "encode json", "failed to encode segments", err)
	}
	return data, nil
}
