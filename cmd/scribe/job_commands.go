package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/ipc"
	"scribe/internal/queue"
	"scribe/internal/workflow"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var language string
	var tier string
	var prompt string
	var wait bool

	cmd := &cobra.Command{
		Use:   "submit <source>",
		Short: "Submit an audio or video asset for transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := strings.TrimSpace(args[0])
			if !strings.Contains(source, "://") {
				expanded, err := config.ExpandPath(source)
				if err != nil {
					return err
				}
				source = expanded
			}
			options := map[string]string{}
			if tier != "" {
				options[queue.OptionTier] = tier
			}
			if prompt != "" {
				options[queue.OptionPrompt] = prompt
			}
			req := api.CreateJobRequest{SourceRef: source, Language: language}
			if len(options) > 0 {
				req.Options = options
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CreateJob(cmd.Context(), req)
				if err != nil {
					return err
				}
				if !wait {
					if handled, err := writeStructured(cmd, ctx.output(), resp); handled {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Queued job %s (priority %d)\n", resp.ID, resp.Priority)
					return nil
				}
				if ctx.output() == outputTable {
					fmt.Fprintf(cmd.OutOrStdout(), "Queued job %s, waiting for it to finish\n", resp.ID)
				}
				if err := followJob(cmd, client, resp.ID, ctx.output() == outputTable); err != nil {
					return err
				}
				return printJobStatus(cmd, ctx, client, resp.ID)
			})
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "Language hint (e.g. en, de, French)")
	cmd.Flags().StringVar(&tier, "tier", "", "Priority tier: high or normal")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Vocabulary hint passed to the engine")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait until the job reaches a terminal status")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				return printJobStatus(cmd, ctx, client, args[0])
			})
		},
	}
}

func printJobStatus(cmd *cobra.Command, ctx *commandContext, client *ipc.Client, id string) error {
	status, err := client.JobStatus(cmd.Context(), id)
	if err != nil {
		return err
	}
	if handled, err := writeStructured(cmd, ctx.output(), status); handled {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderJobStatus(status, time.Now(), shouldColorize(cmd.OutOrStdout())))
	return nil
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, value := range statuses {
				if _, ok := queue.ParseStatus(value); !ok {
					return fmt.Errorf("unknown status %q", value)
				}
			}
			return ctx.withClient(func(client *ipc.Client) error {
				jobs, err := client.ListJobs(cmd.Context(), statuses)
				if err != nil {
					return err
				}
				if handled, err := writeStructured(cmd, ctx.output(), api.JobListResponse{Jobs: jobs}); handled {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderJobTable(jobs, time.Now()))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by job status (repeatable)")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a pending or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Cancel(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if handled, err := writeStructured(cmd, ctx.output(), resp); handled {
					return err
				}
				out := cmd.OutOrStdout()
				switch queue.CancelOutcome(resp.Outcome) {
				case queue.CancelRemoved:
					fmt.Fprintf(out, "Job %s cancelled\n", resp.ID)
				case queue.CancelFlagged:
					fmt.Fprintf(out, "Job %s is running; it will stop at the next chunk boundary\n", resp.ID)
				case queue.CancelNoop:
					fmt.Fprintf(out, "Job %s already finished; nothing to cancel\n", resp.ID)
				default:
					fmt.Fprintf(out, "Job %s: %s\n", resp.ID, resp.Outcome)
				}
				return nil
			})
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a finished job and its transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s deleted\n", args[0])
				return nil
			})
		},
	}
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var format string
	var outPath string

	cmd := &cobra.Command{
		Use:   "export <job-id>",
		Short: "Download a completed transcript as srt, vtt, txt, or json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				file, err := client.Export(cmd.Context(), args[0], format)
				if err != nil {
					return err
				}
				if outPath == "" || outPath == "-" {
					_, err := cmd.OutOrStdout().Write(file.Data)
					return err
				}
				target, err := config.ExpandPath(outPath)
				if err != nil {
					return err
				}
				if info, statErr := os.Stat(target); statErr == nil && info.IsDir() {
					name := file.FileName
					if name == "" || name == "." {
						name = args[0] + "." + format
					}
					target = filepath.Join(target, name)
				}
				if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
				if err := os.WriteFile(target, file.Data, 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", target)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "srt", "Export format: srt, vtt, txt, or json")
	cmd.Flags().StringVar(&outPath, "out", "", "Write to this file, or into this directory under the source name, instead of stdout")
	return cmd
}

func newQACommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "qa <job-id>",
		Short: "Run heuristic quality checks on a completed transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				result, err := client.QA(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if handled, err := writeStructured(cmd, ctx.output(), result); handled {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderQA(result, shouldColorize(cmd.OutOrStdout())))
				return nil
			})
		},
	}
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Follow a job's progress until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if ctx.output() != outputTable {
					return client.WatchEvents(cmd.Context(), args[0], func(event workflow.Event) error {
						_, err := writeStructured(cmd, ctx.output(), event)
						return err
					})
				}
				return followJob(cmd, client, args[0], true)
			})
		},
	}
}

// followJob blocks until the job is terminal, printing progress lines when
// verbose is set.
func followJob(cmd *cobra.Command, client *ipc.Client, id string, verbose bool) error {
	colorize := shouldColorize(cmd.OutOrStdout())
	var final queue.Status
	err := client.WatchEvents(cmd.Context(), id, func(event workflow.Event) error {
		if event.Status.IsTerminal() {
			final = event.Status
		}
		if verbose {
			fmt.Fprintln(cmd.OutOrStdout(), formatEvent(event, colorize))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if final == "" {
		return errors.New("event stream closed before the job finished")
	}
	return nil
}

func formatEvent(event workflow.Event, colorize bool) string {
	message := event.Message
	if event.Chunks > 0 {
		message = fmt.Sprintf("%s (chunk %d/%d)", message, event.Chunk, event.Chunks)
	}
	if event.Percent > 0 {
		message = strings.TrimSpace(formatPercent(event.Percent) + " " + message)
	}
	return renderStatusLine(string(event.Status), jobStatusKind(string(event.Status)), message, colorize)
}
