package transcript

import (
	"sort"
	"strings"
)

// Merge concatenates per-chunk results into one transcript.
//
// Parts are ordered by Index regardless of the order they arrive in. Every
// segment and word of part i is shifted by the summed duration of parts
// 0..i-1. A shifted segment never starts before the previous segment ends.
func Merge(parts []Part) Transcript {
	ordered := make([]Part, len(parts))
	copy(ordered, parts)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	var (
		out      Transcript
		texts    []string
		offset   float64
		lastEnd  float64
		segments []Segment
		words    []Word
	)
	for _, part := range ordered {
		res := part.Result
		if text := strings.TrimSpace(res.Text); text != "" {
			texts = append(texts, text)
		}
		if out.Language == "" {
			out.Language = res.Language
		}

		for _, seg := range res.Segments {
			shifted := seg
			shifted.Start = seg.Start + offset
			shifted.End = seg.End + offset
			if shifted.Start < lastEnd {
				shifted.Start = lastEnd
			}
			if shifted.End < shifted.Start {
				shifted.End = shifted.Start
			}
			shifted.Words = shiftWords(seg.Words, offset)
			shifted.ID = len(segments)
			segments = append(segments, shifted)
			lastEnd = shifted.End
		}
		words = append(words, shiftWords(res.Words, offset)...)

		offset += partDuration(part)
	}

	if len(words) == 0 {
		for _, seg := range segments {
			words = append(words, seg.Words...)
		}
	}
	sort.SliceStable(words, func(i, j int) bool { return words[i].Start < words[j].Start })

	out.Text = strings.Join(texts, " ")
	out.Segments = segments
	out.Words = words
	out.Duration = offset
	if out.Segments == nil {
		out.Segments = []Segment{}
	}
	if out.Words == nil {
		out.Words = []Word{}
	}
	return out
}

func partDuration(part Part) float64 {
	if part.Duration > 0 {
		return part.Duration
	}
	if part.Result.DurationSeconds > 0 {
		return part.Result.DurationSeconds
	}
	if n := len(part.Result.Segments); n > 0 {
		return part.Result.Segments[n-1].End
	}
	return 0
}

func shiftWords(words []Word, offset float64) []Word {
	if len(words) == 0 {
		return nil
	}
	out := make([]Word, len(words))
	for i, w := range words {
		w.Start += offset
		w.End += offset
		out[i] = w
	}
	return out
}
