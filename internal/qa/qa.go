// Package qa scans completed transcript text for categories of likely
// transcription error.
//
// The checks are regular-expression heuristics. They flag places a human
// should look at and make no claim that the flagged text is wrong or that
// unflagged text is right.
package qa

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// IssueType names a category of likely transcription error.
type IssueType string

const (
	IssueNumbers     IssueType = "numbers"
	IssueUnits       IssueType = "units"
	IssueEmails      IssueType = "emails"
	IssueURLs        IssueType = "urls"
	IssuePunctuation IssueType = "punctuation"
)

// DefaultMaxSamples bounds the sample list of each issue.
const DefaultMaxSamples = 5

// ManualReviewSuggestion is added when more than two categories are flagged.
const ManualReviewSuggestion = "Several categories were flagged; a full manual review of the transcript is recommended."

const (
	punctuationMinLength    = 100
	punctuationMinSentences = 2
	manualReviewThreshold   = 2
)

var (
	numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	// Unit abbreviations must not run into a following letter or digit in any
	// script, so "50 mètres" is not read as "50 m". The trailing character is
	// consumed outside the capture groups.
	unitPattern   = regexp.MustCompile(`(\d+(?:[.,]\d+)?\s?(?:km|cm|mm|kg|mg|ml|lbs?|oz|mi|ft|m|g|l))(?:$|[^\p{L}\p{N}])|(\d+(?:[.,]\d+)?\s?[%€$£])|([€$£]\s?\d+(?:[.,]\d+)?)`)
	emailPattern  = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	urlPattern    = regexp.MustCompile(`https?://\S+|www\.\S+`)
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
)

type patternCheck struct {
	issue      IssueType
	find       func(text string) []string
	suggestion string
}

var patternChecks = []patternCheck{
	{IssueNumbers, allMatches(numberPattern), "Verify spoken numbers were transcribed with the correct digits."},
	{IssueUnits, firstGroups(unitPattern), "Check units of measure, percentages and currency symbols against the audio."},
	{IssueEmails, allMatches(emailPattern), "Confirm the spelling of email addresses."},
	{IssueURLs, urlMatches, "Confirm web addresses and domain names."},
}

func allMatches(re *regexp.Regexp) func(string) []string {
	return func(text string) []string { return re.FindAllString(text, -1) }
}

// firstGroups returns, per match, the first non-empty capture group.
func firstGroups(re *regexp.Regexp) func(string) []string {
	return func(text string) []string {
		var out []string
		for _, groups := range re.FindAllStringSubmatch(text, -1) {
			for _, group := range groups[1:] {
				if group != "" {
					out = append(out, group)
					break
				}
			}
		}
		return out
	}
}

// urlMatches drops sentence punctuation that trails a web address.
func urlMatches(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	out := matches[:0]
	for _, m := range matches {
		if m = strings.TrimRight(m, ".,;:!?)"); m != "" {
			out = append(out, m)
		}
	}
	return out
}

const punctuationSuggestion = "Add sentence punctuation; long stretches of text have no sentence breaks."

// Issue is one flagged category with its match count and a bounded sample list.
type Issue struct {
	Type       IssueType `json:"type"`
	Count      int       `json:"count"`
	Samples    []string  `json:"samples,omitempty"`
	Suggestion string    `json:"suggestion"`
}

// Stats describes the text the analyzer looked at.
type Stats struct {
	TotalWords          int     `json:"totalWords"`
	TotalSentences      int     `json:"totalSentences"`
	AvgWordsPerSentence float64 `json:"avgWordsPerSentence"`
}

// Result is the outcome of one QA pass. Heuristic is always true.
type Result struct {
	HasIssues   bool     `json:"hasIssues"`
	Issues      []Issue  `json:"issues"`
	Suggestions []string `json:"suggestions"`
	Stats       Stats    `json:"stats"`
	Heuristic   bool     `json:"heuristic"`
}

// Analyzer runs the heuristic checks.
type Analyzer struct {
	MaxSamples int
}

// Analyze runs the checks with the default sample bound.
func Analyze(text string) Result {
	return Analyzer{MaxSamples: DefaultMaxSamples}.Analyze(text)
}

// Analyze scans text and returns the flagged categories.
func (a Analyzer) Analyze(text string) Result {
	limit := a.MaxSamples
	if limit <= 0 {
		limit = DefaultMaxSamples
	}

	issues := make([]Issue, 0, len(patternChecks)+1)
	for _, check := range patternChecks {
		matches := check.find(text)
		if len(matches) == 0 {
			continue
		}
		samples := matches
		if len(samples) > limit {
			samples = samples[:limit]
		}
		issues = append(issues, Issue{
			Type:       check.issue,
			Count:      len(matches),
			Samples:    append([]string(nil), samples...),
			Suggestion: check.suggestion,
		})
	}

	sentences := countSentences(text)
	if sentences < punctuationMinSentences && utf8.RuneCountInString(text) > punctuationMinLength {
		issues = append(issues, Issue{
			Type:       IssuePunctuation,
			Count:      1,
			Suggestion: punctuationSuggestion,
		})
	}

	words := len(strings.Fields(text))
	stats := Stats{TotalWords: words, TotalSentences: sentences}
	if sentences > 0 {
		stats.AvgWordsPerSentence = float64(words) / float64(sentences)
	}

	return Result{
		HasIssues:   len(issues) > 0,
		Issues:      issues,
		Suggestions: GenerateSuggestions(issues),
		Stats:       stats,
		Heuristic:   true,
	}
}

// GenerateSuggestions collects the distinct suggestion of each issue, adding
// ManualReviewSuggestion when more than two issues were raised.
func GenerateSuggestions(issues []Issue) []string {
	seen := make(map[string]struct{}, len(issues))
	out := make([]string, 0, len(issues)+1)
	for _, issue := range issues {
		if issue.Suggestion == "" {
			continue
		}
		if _, ok := seen[issue.Suggestion]; ok {
			continue
		}
		seen[issue.Suggestion] = struct{}{}
		out = append(out, issue.Suggestion)
	}
	if len(issues) > manualReviewThreshold {
		out = append(out, ManualReviewSuggestion)
	}
	return out
}

func countSentences(text string) int {
	count := 0
	for _, part := range sentenceSplit.Split(text, -1) {
		if strings.TrimSpace(part) != "" {
			count++
		}
	}
	return count
}
