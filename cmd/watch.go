package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/grovetools/notify/cli"
	"github.com/grovetools/notify/config"
	"github.com/grovetools/notify/internal/session"
	"github.com/grovetools/notify/logging"
	"github.com/grovetools/notify/tui"
	"github.com/grovetools/notify/tui/components/eventview"
)

// NewWatchCmd creates the `watch` command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Watch a path and print semantic events",
		Long: `Runs inotifywait on a path and prints one line per semantic event.
Flags override the values in notify.yml.`,
		Example: `notify watch .
notify watch --no-recursive --event modify --event attrib /etc
notify watch --path-list watched.txt --reload
notify watch --json . | jq .`,
		Args: cobra.MaximumNArgs(1),
	}

	addWatchFlags(cmd.Flags())
	cmd.Flags().Bool("tui", false, "Show a live view instead of printing lines")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(cmd)
		if err != nil {
			return err
		}
		applyWatchFlags(cmd, cfg, args)
		if err := cfg.ValidateWatch(); err != nil {
			return err
		}

		logger := cli.GetLogger(cmd)
		sess, err := session.New(session.Options{Config: cfg, Logger: logger})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if useTUI, _ := cmd.Flags().GetBool("tui"); useTUI {
			return runLive(ctx, sess, watchTitle(cfg))
		}
		p := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), cli.GetOptions(cmd).JSONOutput)
		return stream(ctx, sess, p)
	}

	return cmd
}

// addWatchFlags registers the flags shared by watch and serve.
func addWatchFlags(f *pflag.FlagSet) {
	f.Bool("no-recursive", false, "Watch only the top level of the path")
	f.Bool("watch-directory", false, "Emit events for directories themselves")
	f.StringSlice("exclude", nil, "POSIX regex excluded by inotifywait (repeatable)")
	f.StringSlice("exclude-glob", nil, "Glob dropped before classification, .dockerignore syntax (repeatable)")
	f.String("path-list", "", "File listing the paths to watch, one per line")
	f.Bool("reload", false, "Restart inotifywait when --path-list changes")
	f.StringSlice("event", nil, "Raw kinds inotifywait should report (repeatable)")
	f.Bool("touch-attributes", false, "Report touch-like updates as attributes")
	f.Bool("journal", false, "Record events in the journal")
	f.String("binary", "", "Path to the inotifywait binary")
}

// applyWatchFlags copies explicitly set flags onto cfg.
func applyWatchFlags(cmd *cobra.Command, cfg *config.Config, args []string) {
	f := cmd.Flags()
	if len(args) == 1 {
		cfg.Path = args[0]
	}
	if f.Changed("no-recursive") {
		v, _ := f.GetBool("no-recursive")
		recursive := !v
		cfg.Recursive = &recursive
	}
	if f.Changed("watch-directory") {
		cfg.WatchDirectory, _ = f.GetBool("watch-directory")
	}
	if f.Changed("exclude") {
		v, _ := f.GetStringSlice("exclude")
		cfg.ExcludePatterns = append(cfg.ExcludePatterns, v...)
	}
	if f.Changed("exclude-glob") {
		v, _ := f.GetStringSlice("exclude-glob")
		cfg.ExcludeGlobs = append(cfg.ExcludeGlobs, v...)
	}
	if f.Changed("path-list") {
		cfg.ExplicitPathList, _ = f.GetString("path-list")
	}
	if f.Changed("reload") {
		cfg.ReloadOnListChange, _ = f.GetBool("reload")
	}
	if f.Changed("event") {
		cfg.RawKindFilter, _ = f.GetStringSlice("event")
	}
	if f.Changed("touch-attributes") {
		cfg.TouchGeneratesAttributes, _ = f.GetBool("touch-attributes")
	}
	if f.Changed("journal") {
		cfg.Journal.Enabled, _ = f.GetBool("journal")
	}
	if f.Changed("binary") {
		cfg.Source.Binary, _ = f.GetString("binary")
	}
}

func watchTitle(cfg *config.Config) string {
	if cfg.Path != "" {
		return cfg.Path
	}
	return "@" + cfg.ExplicitPathList
}

// stream prints every update until the session ends. The subscription is
// reliable, so a slow writer slows the session instead of losing events.
func stream(ctx context.Context, sess *session.Session, p *printer) error {
	updates := sess.Hub().SubscribeReliable()
	if err := sess.Start(ctx); err != nil {
		return err
	}
	for u := range updates {
		if err := p.Print(u); err != nil {
			sess.Hub().Unsubscribe(updates)
			_ = sess.Close()
			return err
		}
	}
	return sess.Wait()
}

// quietLogs keeps stderr logging from tearing the alt screen. File sinks
// still receive everything. The returned func restores stderr.
func quietLogs() func() {
	logging.SetGlobalOutput(io.Discard)
	return func() { logging.SetGlobalOutput(os.Stderr) }
}

// runLive drives the event view until the user quits or the session ends.
func runLive(ctx context.Context, sess *session.Session, title string) error {
	tui.InitializeTUI()
	defer quietLogs()()
	updates := sess.Hub().SubscribeReliable()
	if err := sess.Start(ctx); err != nil {
		return err
	}

	program := tea.NewProgram(eventview.New(updates, title), tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := program.Run()
	// The view no longer reads, so release the session before closing it.
	sess.Hub().Unsubscribe(updates)
	closeErr := sess.Close()
	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("live view: %w", runErr)
	}
	return closeErr
}
