package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"scribe/internal/api"
	"scribe/internal/qa"
)

// column is one table column. Numeric columns are right-aligned; headers
// always stay left-aligned.
type column struct {
	title   string
	numeric bool
}

var (
	jobListColumns = []column{
		{title: "ID"},
		{title: "Status"},
		{title: "Priority", numeric: true},
		{title: "Progress", numeric: true},
		{title: "Created"},
		{title: "Source"},
	}
	queueStatsColumns = []column{
		{title: "Status"},
		{title: "Count", numeric: true},
	}
	qaIssueColumns = []column{
		{title: "Category"},
		{title: "Count", numeric: true},
		{title: "Samples"},
	}
)

func renderJobTable(jobs []api.Job, now time.Time) string {
	return renderTable(jobListColumns, buildJobListRows(jobs, now))
}

// renderQueueStatsTable returns "" when every status count is zero.
func renderQueueStatsTable(counts map[string]int) string {
	rows := buildStatsRows(counts)
	if len(rows) == 0 {
		return ""
	}
	return renderTable(queueStatsColumns, rows)
}

func renderQAIssueTable(issues []qa.Issue) string {
	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, []string{
			string(issue.Type),
			fmt.Sprintf("%d", issue.Count),
			strings.Join(issue.Samples, " | "),
		})
	}
	return renderTable(qaIssueColumns, rows)
}

// renderTable draws rows in the rounded style. Short rows are padded with
// empty cells; extra cells are dropped.
func renderTable(columns []column, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.title
		align := text.AlignLeft
		if col.numeric {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, cells := range rows {
		row := make(table.Row, len(columns))
		for i := range row {
			row[i] = ""
			if i < len(cells) {
				row[i] = cells[i]
			}
		}
		tw.AppendRow(row)
	}
	return tw.Render() + "\n"
}
