package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/ipc"
	"scribe/internal/preflight"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Inspect the scribed daemon",
	}
	daemonCmd.AddCommand(newDaemonStatusCommand(ctx))
	return daemonCmd
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	var checks bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, worker, queue, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				if handled, err := writeStructured(cmd, ctx.output(), status); handled {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprint(out, renderDaemonStatus(status, colorize))
				if checks {
					cfg, err := ctx.ensureConfig()
					if err != nil {
						return err
					}
					lines := renderSectionHeader("Local checks", colorize)
					for _, result := range preflight.RunAll(cmd.Context(), cfg) {
						kind := statusOK
						if !result.Passed {
							kind = statusError
						}
						lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
					}
					fmt.Fprintln(out, strings.Join(lines, "\n"))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&checks, "checks", false, "Also run preflight checks from this host")
	return cmd
}

func renderDaemonStatus(status api.DaemonStatus, colorize bool) string {
	lines := renderSectionHeader("Daemon", colorize)
	running := statusError
	if status.Running {
		running = statusOK
	}
	lines = append(lines, renderStatusLine("Running", running, fmt.Sprintf("%s (pid %d)", yesNo(status.Running), status.PID), colorize))
	if status.Version != "" {
		lines = append(lines, renderStatusLine("Version", statusInfo, status.Version, colorize))
	}
	lines = append(lines, renderStatusLine("Engine", statusInfo, status.Workflow.Engine, colorize))
	lines = append(lines, renderStatusLine("Workers", statusInfo,
		fmt.Sprintf("%d (%d busy)", status.Workflow.Workers, len(status.Workflow.ActiveJobs)), colorize))
	lines = append(lines, renderStatusLine("Job database", statusInfo, status.QueueDBPath, colorize))
	lines = append(lines, renderStatusLine("Staging", statusInfo,
		fmt.Sprintf("%s (%s free)", status.StagingDir, humanize.IBytes(status.StagingFreeBytes)), colorize))
	if status.Workflow.LastError != "" {
		lines = append(lines, renderStatusLine("Last error", statusWarn, status.Workflow.LastError, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	for _, dep := range status.Dependencies {
		kind := statusOK
		detail := dep.Command
		if !dep.Available {
			kind = statusError
			if dep.Optional {
				kind = statusWarn
			}
			detail = dep.Detail
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}

	return strings.Join(lines, "\n") + "\n" + renderQueueStatsTable(status.Workflow.QueueStats)
}
