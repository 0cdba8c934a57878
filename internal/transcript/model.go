package transcript

import "strings"

// Word is a single recognized token with its timing and probability (0-1).
type Word struct {
	Text        string  `json:"text"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability"`
}

// Segment is a time-bounded span of transcript text.
//
// Confidence is a 0-100 score. AvgLogProb and NoSpeechProb are the raw engine
// signals it is derived from.
type Segment struct {
	ID           int     `json:"id"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Text         string  `json:"text"`
	Confidence   float64 `json:"confidence"`
	SpeakerID    string  `json:"speakerId,omitempty"`
	AvgLogProb   float64 `json:"avgLogProb"`
	NoSpeechProb float64 `json:"noSpeechProb"`
	Words        []Word  `json:"words,omitempty"`
}

// Result is the output of one engine call, with times relative to the start
// of the audio that was sent.
type Result struct {
	Text            string    `json:"text"`
	Language        string    `json:"language,omitempty"`
	Segments        []Segment `json:"segments"`
	Words           []Word    `json:"words"`
	DurationSeconds float64   `json:"durationSeconds"`
}

// Part pairs an engine result with the chunk it came from.
type Part struct {
	Index int
	// Duration is the planned chunk length in seconds. When zero the engine's
	// reported duration is used.
	Duration float64
	Result   Result
}

// Transcript is the merged, globally ordered transcript of one asset.
type Transcript struct {
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
	Words    []Word    `json:"words"`
	Duration float64   `json:"duration"`
}

// WordCount returns the number of words in the transcript. Word-level timing
// is preferred; plain text is counted when the engine returned none.
func (t *Transcript) WordCount() int {
	if t == nil {
		return 0
	}
	if len(t.Words) > 0 {
		return len(t.Words)
	}
	return len(strings.Fields(t.Text))
}
