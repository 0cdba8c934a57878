package export_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"scribe/internal/export"
	"scribe/internal/services"
	"scribe/internal/transcript"
)

func sample() transcript.Transcript {
	return transcript.Transcript{
		Text: "Hello there. General Kenobi.",
		Segments: []transcript.Segment{
			{ID: 0, Start: 0, End: 1.5, Text: "Hello there."},
			{ID: 1, Start: 3661.0429, End: 3663.9999, Text: " General Kenobi. "},
		},
		Duration: 3664,
	}
}

func TestTimecodeFloorsComponents(t *testing.T) {
	cases := []struct {
		seconds float64
		sep     byte
		want    string
	}{
		{0, ',', "00:00:00,000"},
		{1.5, ',', "00:00:01,500"},
		{59.9999, ',', "00:00:59,999"},
		{3661.0429, '.', "01:01:01.042"},
		{1.001, ',', "00:00:01,001"},
		{36000, '.', "10:00:00.000"},
		{-2, ',', "00:00:00,000"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, export.Timecode(tc.seconds, tc.sep), "seconds=%v", tc.seconds)
	}
}

func TestTimecodeRoundTripWithinMillisecond(t *testing.T) {
	for _, seconds := range []float64{0, 0.0005, 1.2345, 59.999, 61.5, 3599.9994, 7322.123, 86399.5} {
		parsed, err := export.ParseTimestamp(export.Timecode(seconds, ','))
		require.NoError(t, err)
		require.InDelta(t, seconds, parsed, 0.001)
		require.LessOrEqual(t, parsed, seconds+1e-9)
	}
}

func TestParseTimestampRejectsMalformed(t *testing.T) {
	for _, value := range []string{"", "00:00:01", "00:01,000", "aa:00:00,000", "00:00:00,1"} {
		_, err := export.ParseTimestamp(value)
		require.Error(t, err, value)
	}
}

func TestSRTLayout(t *testing.T) {
	got := string(export.SRT(sample().Segments))
	want := "1\n00:00:00,000 --> 00:00:01,500\nHello there.\n\n" +
		"2\n01:01:01,042 --> 01:01:03,999\nGeneral Kenobi.\n\n"
	require.Equal(t, want, got)
}

func TestVTTLayout(t *testing.T) {
	got := string(export.VTT(sample().Segments))
	require.True(t, strings.HasPrefix(got, "WEBVTT\n\n"))
	require.Equal(t, "WEBVTT", strings.SplitN(got, "\n", 2)[0])
	require.Contains(t, got, "00:00:00.000 --> 00:00:01.500\nHello there.\n\n")
	require.NotContains(t, got, "1\n00:00")
}

func TestRenderFormats(t *testing.T) {
	tr := sample()

	data, contentType, err := export.Render(tr, "TXT")
	require.NoError(t, err)
	require.Equal(t, tr.Text, string(data))
	require.Equal(t, "text/plain; charset=utf-8", contentType)

	data, contentType, err = export.Render(tr, "json")
	require.NoError(t, err)
	require.Equal(t, "application/json", contentType)
	var segments []transcript.Segment
	require.NoError(t, json.Unmarshal(data, &segments))
	require.Len(t, segments, 2)

	_, contentType, err = export.Render(tr, "srt")
	require.NoError(t, err)
	require.Equal(t, "application/x-subrip", contentType)

	_, contentType, err = export.Render(tr, "vtt")
	require.NoError(t, err)
	require.Equal(t, "text/vtt", contentType)
}

func TestRenderUnsupportedFormatNamesIt(t *testing.T) {
	_, _, err := export.Render(sample(), "docx")
	require.Error(t, err)
	require.True(t, errors.Is(err, services.ErrValidation))
	require.Contains(t, err.Error(), `"docx"`)
}

func TestJSONEmptySegments(t *testing.T) {
	data, err := export.JSON(nil)
	require.NoError(t, err)
	require.Equal(t, "[]", string(data))
}

func TestFormatFileName(t *testing.T) {
	require.Equal(t, "talk.srt", export.FormatSRT.FileName("/media/talk.mp3"))
	require.Equal(t, "Week 3- Intro.vtt", export.FormatVTT.FileName("/srv/Week 3: Intro.wav"))
	require.Equal(t, "transcript.txt", export.FormatTXT.FileName(""))
}
