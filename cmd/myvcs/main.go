// cmd/myvcs/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"myvcs/internal/config"
	"myvcs/internal/logging"
	"myvcs/internal/repository"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type cli struct {
	repoPath string
	logLevel string
	logger   *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "myvcs",
		Short: "myvcs is a minimal local version control system",
		Long: `myvcs stores whole-file snapshots in a content-addressed object store,
stages files in an index, and moves between branches by rewriting the working tree.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.NewCLILogger(c.logLevel)
			if err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			c.logger = logger.Logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&c.repoPath, "repo", "C", ".", "path inside the repository")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		c.initCmd(),
		c.addCmd(),
		c.commitCmd(),
		c.branchCmd(),
		c.checkoutCmd(),
		c.statusCmd(),
		c.logCmd(),
	)
	return rootCmd
}

// open finds the repository containing --repo and applies its config.
func (c *cli) open() (*repository.Repository, error) {
	return repository.Open(c.repoPath, repository.Options{Logger: c.logger})
}

func (c *cli) initCmd() *cobra.Command {
	var branch string
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create an empty repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.repoPath
			if len(args) == 1 {
				path = args[0]
			}
			r, err := repository.Init(path, repository.Options{Logger: c.logger, DefaultBranch: branch})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Initialized empty repository in", r.ControlDir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&branch, "branch", "b", config.DefaultBranch, "name of the initial branch")
	return cmd
}

func (c *cli) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>...",
		Short: "Stage files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.open()
			if err != nil {
				return err
			}
			total := 0
			for _, arg := range args {
				// Arguments are relative to the shell, not the repository root.
				abs, err := filepath.Abs(arg)
				if err != nil {
					return err
				}
				entries, err := r.Add(abs)
				if err != nil {
					return err
				}
				total += len(entries)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Staged %d file(s).\n", total)
			return nil
		},
	}
}

func (c *cli) commitCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "commit [-m message | message]",
		Short: "Record the staged files as a new commit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				message = strings.Join(args, " ")
			}
			r, err := c.open()
			if err != nil {
				return err
			}
			res, err := r.Commit(message)
			if res == nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", refLabel(res.Head.RefName()), short(res.Hash), message)
			fmt.Fprintf(cmd.OutOrStdout(), " %d file(s) committed\n", res.Files)
			return err
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	return cmd
}

func (c *cli) branchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "branch [name]",
		Short: "List branches, or create one at HEAD",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.open()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				commit, err := r.CreateBranch(args[0])
				if commit == "" {
					return err
				}
				fmt.Fprintf(out, "Branch '%s' created at %s.\n", args[0], short(commit))
				return err
			}

			list, err := r.Branches()
			if err != nil {
				return err
			}
			green := color.New(color.FgGreen).SprintFunc()
			for _, b := range list.Branches {
				if b == list.Current {
					fmt.Fprintf(out, "* %s\n", green(b))
				} else {
					fmt.Fprintf(out, "  %s\n", b)
				}
			}
			if list.Current == "" {
				head, err := r.Head()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "* %s\n", green("(HEAD detached at "+short(head.Commit)+")"))
			}
			return nil
		},
	}
}

func (c *cli) checkoutCmd() *cobra.Command {
	var detach bool
	cmd := &cobra.Command{
		Use:   "checkout <branch> | --detach <commit>",
		Short: "Switch branches, replacing the working tree",
		Long: `Switch to a branch. Tracked files are rewritten from the branch's snapshot and
files the snapshot does not contain are deleted. Uncommitted edits to tracked
files are overwritten; untracked files are left alone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.open()
			if err != nil {
				return err
			}

			var res *repository.CheckoutResult
			if detach {
				res, err = r.Detach(args[0])
			} else {
				res, err = r.SwitchBranch(args[0])
			}
			if res == nil {
				return err
			}

			if detach {
				fmt.Fprintf(cmd.OutOrStdout(), "HEAD is now at %s.\n", short(res.To))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Switched to branch '%s'.\n", res.Branch)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&detach, "detach", false, "check out a commit hash and detach HEAD")
	return cmd
}

func (c *cli) logCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "log [ref]",
		Short: "Show the reflog, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			r, err := c.open()
			if err != nil {
				return err
			}
			entries, err := r.Log(ref, limit)
			if err != nil {
				return err
			}

			yellow := color.New(color.FgYellow).SprintFunc()
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%s %-20s %s  %s\n",
					yellow(short(e.New)),
					refLabel(e.Ref),
					e.Time.Local().Format("2006-01-02 15:04:05"),
					e.Message)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "max-count", "n", 0, "limit the number of entries")
	return cmd
}

func refLabel(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}

func short(hash string) string {
	if len(hash) > 10 {
		return hash[:10]
	}
	return hash
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}
