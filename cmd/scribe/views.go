package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"scribe/internal/api"
	"scribe/internal/queue"
)

func buildJobListRows(jobs []api.Job, now time.Time) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			shortJobID(job.ID),
			job.Status,
			fmt.Sprintf("%d", job.Priority),
			formatPercent(job.Progress.Percent),
			relativeTime(job.CreatedAt, now),
			truncate(job.SourceRef, 48),
		})
	}
	return rows
}

func buildStatsRows(counts map[string]int) [][]string {
	order := make(map[string]int, len(queue.AllStatuses()))
	for i, status := range queue.AllStatuses() {
		order[string(status)] = i
	}
	keys := make([]string, 0, len(counts))
	for key, count := range counts {
		if count > 0 {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		oi, iok := order[keys[i]]
		oj, jok := order[keys[j]]
		if iok && jok {
			return oi < oj
		}
		if iok != jok {
			return iok
		}
		return keys[i] < keys[j]
	})
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, fmt.Sprintf("%d", counts[key])})
	}
	return rows
}

func renderJobStatus(status api.JobStatus, now time.Time, colorize bool) string {
	lines := renderSectionHeader("Job "+status.ID, colorize)
	lines = append(lines, renderStatusLine("Status", jobStatusKind(status.Status), status.Status, colorize))
	if status.Progress.Message != "" || status.Progress.Percent > 0 {
		lines = append(lines, renderStatusLine("Progress", statusInfo,
			strings.TrimSpace(formatPercent(status.Progress.Percent)+" "+status.Progress.Message), colorize))
	}
	if status.Confidence != nil {
		lines = append(lines, renderStatusLine("Confidence", confidenceKind(*status.Confidence),
			fmt.Sprintf("%.1f", *status.Confidence), colorize))
	}
	if status.DurationSeconds != nil {
		lines = append(lines, renderStatusLine("Duration", statusInfo, formatSeconds(*status.DurationSeconds), colorize))
	}
	if status.WordCount != nil {
		lines = append(lines, renderStatusLine("Words", statusInfo, humanize.Comma(int64(*status.WordCount)), colorize))
	}
	if status.Error != "" {
		lines = append(lines, renderStatusLine("Error", statusError, status.Error, colorize))
	}
	if status.CreatedAt != "" {
		lines = append(lines, renderStatusLine("Created", statusInfo, relativeTime(status.CreatedAt, now), colorize))
	}
	if status.CompletedAt != "" {
		lines = append(lines, renderStatusLine("Finished", statusInfo, relativeTime(status.CompletedAt, now), colorize))
	}
	return strings.Join(lines, "\n") + "\n"
}

func renderQA(result api.QAResponse, colorize bool) string {
	lines := renderSectionHeader("QA "+result.JobID, colorize)
	kind := statusOK
	verdict := "no issues flagged"
	if result.HasIssues {
		kind = statusWarn
		verdict = fmt.Sprintf("%d categories flagged", len(result.Issues))
	}
	lines = append(lines, renderStatusLine("Verdict", kind, verdict+" (heuristic)", colorize))
	lines = append(lines, renderStatusLine("Words", statusInfo, humanize.Comma(int64(result.Stats.TotalWords)), colorize))
	lines = append(lines, renderStatusLine("Sentences", statusInfo,
		fmt.Sprintf("%d (%.1f words each)", result.Stats.TotalSentences, result.Stats.AvgWordsPerSentence), colorize))
	out := strings.Join(lines, "\n") + "\n"
	if len(result.Issues) > 0 {
		out += renderQAIssueTable(result.Issues)
	}
	for _, suggestion := range result.Suggestions {
		out += "- " + suggestion + "\n"
	}
	return out
}

func confidenceKind(score float64) statusKind {
	switch {
	case score >= 80:
		return statusOK
	case score >= 50:
		return statusWarn
	default:
		return statusError
	}
}

func relativeTime(value string, now time.Time) string {
	if value == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return value
	}
	return humanize.RelTime(parsed, now, "ago", "from now")
}

func formatSeconds(seconds float64) string {
	return (time.Duration(seconds * float64(time.Second))).Round(time.Second).String()
}

func formatPercent(percent float64) string {
	return fmt.Sprintf("%.0f%%", percent)
}

func shortJobID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return "..." + string(runes[len(runes)-limit+3:])
}
