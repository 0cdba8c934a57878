package transcript

import "math"

// LowConfidenceThreshold is the word probability below which a word is
// reported as uncertain.
const LowConfidenceThreshold = 0.7

// SegmentScore is the per-segment entry of a ConfidenceReport.
type SegmentScore struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Metrics summarises the raw signals behind a ConfidenceReport.
type Metrics struct {
	AvgLogProb     float64 `json:"avgLogProb"`
	TotalSegments  int     `json:"totalSegments"`
	TotalWords     int     `json:"totalWords"`
	UncertainWords int     `json:"uncertainWords"`
}

// ConfidenceReport describes how much the engine trusted its own output.
type ConfidenceReport struct {
	OverallScore       float64        `json:"overallScore"`
	PerSegment         []SegmentScore `json:"perSegment"`
	LowConfidenceWords []Word         `json:"lowConfidenceWords"`
	Metrics            Metrics        `json:"metrics"`
}

// SegmentConfidence converts engine signals into a 0-100 score:
// exp(avgLogProb) * (1 - noSpeechProb) * 100.
func SegmentConfidence(avgLogProb, noSpeechProb float64) float64 {
	score := math.Exp(avgLogProb) * (1 - noSpeechProb) * 100
	switch {
	case math.IsNaN(score) || score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}

// Confidence builds a ConfidenceReport. It has no side effects and returns
// equal reports for equal inputs.
func Confidence(segments []Segment, words []Word) ConfidenceReport {
	report := ConfidenceReport{
		PerSegment:         make([]SegmentScore, 0, len(segments)),
		LowConfidenceWords: []Word{},
	}

	var scoreSum, logProbSum float64
	for _, seg := range segments {
		score := SegmentConfidence(seg.AvgLogProb, seg.NoSpeechProb)
		scoreSum += score
		logProbSum += seg.AvgLogProb
		report.PerSegment = append(report.PerSegment, SegmentScore{
			Start:      seg.Start,
			End:        seg.End,
			Text:       seg.Text,
			Confidence: score,
		})
	}
	if len(segments) > 0 {
		report.OverallScore = scoreSum / float64(len(segments))
		report.Metrics.AvgLogProb = logProbSum / float64(len(segments))
	}

	for _, w := range words {
		if w.Probability < LowConfidenceThreshold {
			report.LowConfidenceWords = append(report.LowConfidenceWords, w)
		}
	}

	report.Metrics.TotalSegments = len(segments)
	report.Metrics.TotalWords = len(words)
	report.Metrics.UncertainWords = len(report.LowConfidenceWords)
	return report
}

// Annotate returns a copy of segments with Confidence filled from report.
func Annotate(segments []Segment, report ConfidenceReport) []Segment {
	out := make([]Segment, len(segments))
	copy(out, segments)
	for i := range out {
		if i < len(report.PerSegment) {
			out[i].Confidence = report.PerSegment[i].Confidence
		}
	}
	return out
}
