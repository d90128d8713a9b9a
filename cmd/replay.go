package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/grovetools/notify/cli"
	"github.com/grovetools/notify/internal/session"
	"github.com/grovetools/notify/pkg/source"
)

// NewReplayCmd creates the `replay` command.
func NewReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <trace|->",
		Short: "Classify recorded inotifywait output",
		Long: `Reads inotifywait output recorded with the notify line format and prints
the semantic events it describes. Use "-" to read from stdin.

Link checks run against the current filesystem, so hard links and symlinks
are only recognized while the recorded paths still exist.`,
		Example: `notify replay trace.log
notify replay --follow trace.log
inotifywait -m -r --format '{ "type": "%e", "file": "%w%f", "date": "%T" }' --timefmt %s . | notify replay -`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().Bool("follow", false, "Keep reading as the trace grows")
	cmd.Flags().Bool("watch-directory", false, "Emit events for directories themselves")
	cmd.Flags().Bool("touch-attributes", false, "Report touch-like updates as attributes")
	cmd.Flags().StringSlice("exclude-glob", nil, "Glob dropped before classification (repeatable)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(cmd)
		if err != nil {
			return err
		}
		applyWatchFlags(cmd, cfg, nil)
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger := cli.GetLogger(cmd)
		follow, _ := cmd.Flags().GetBool("follow")
		trace := args[0]

		factory := func() (source.Source, error) {
			if trace == "-" {
				return source.NewLines(cmd.InOrStdin(), cfg.BufferSize), nil
			}
			return source.NewTrace(source.TraceOptions{
				Path:       trace,
				Follow:     follow,
				BufferSize: cfg.BufferSize,
				Logger:     logger,
			}), nil
		}

		sess, err := session.New(session.Options{Config: cfg, Factory: factory, Logger: logger})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), cli.GetOptions(cmd).JSONOutput)
		return stream(ctx, sess, p)
	}

	return cmd
}
