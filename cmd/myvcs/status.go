package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"myvcs/internal/config"
	"myvcs/internal/repository"
	"myvcs/internal/status"
	"myvcs/internal/watch"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *cli) statusCmd() *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show working tree status",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.open()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if err := showStatus(out, r); err != nil {
				return err
			}
			if !follow {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			w := &watch.Watcher{
				Root:       r.Root,
				ControlDir: config.ControlDir,
				Logger:     c.logger,
			}
			return w.Run(ctx, func() {
				fmt.Fprintf(out, "\n--- %s ---\n", time.Now().Format("15:04:05"))
				if err := showStatus(out, r); err != nil {
					c.logger.Warn("status failed", zap.Error(err))
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "watch", "w", false, "keep running and re-print status on changes")
	return cmd
}

func showStatus(out io.Writer, r *repository.Repository) error {
	head, err := r.Head()
	if err != nil {
		return err
	}
	report, err := r.Status()
	if err != nil {
		return err
	}

	if head.Head.Branch != "" {
		fmt.Fprintf(out, "On branch %s\n", head.Head.Branch)
	} else {
		fmt.Fprintf(out, "HEAD detached at %s\n", short(head.Commit))
	}
	if head.Unborn {
		fmt.Fprintln(out, "No commits yet")
	}
	printReport(out, report)
	return nil
}

func printReport(out io.Writer, report *status.Report) {
	if report.Clean() {
		fmt.Fprintln(out, "Nothing to commit, working tree clean")
		return
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	blue := color.New(color.FgBlue).SprintFunc()

	section := func(title, hint string, paths []string, mark string) {
		if len(paths) == 0 {
			return
		}
		fmt.Fprintf(out, "\n%s\n", title)
		if hint != "" {
			fmt.Fprintf(out, "  (%s)\n", hint)
		}
		for _, p := range paths {
			fmt.Fprintf(out, "\t%s %s\n", mark, p)
		}
	}

	section("Changes to be committed:", "new files staged since the last commit", report.Added, green("A"))
	section("Modified files:", "content differs from HEAD", report.Modified, yellow("M"))
	section("Deleted files:", "", report.Deleted, red("D"))
	section("Untracked files:", `use "myvcs add <file>..." to stage`, report.Untracked, blue("?"))
}
