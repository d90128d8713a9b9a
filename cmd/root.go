// Package cmd holds the notify subcommands.
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/grovetools/notify/cli"
	"github.com/grovetools/notify/pkg/events"
	"github.com/grovetools/notify/pkg/profiling"
	"github.com/grovetools/notify/tui/theme"
	"github.com/grovetools/notify/version"
)

// ErrSilentExit asks main to exit non-zero without printing anything.
var ErrSilentExit = fmt.Errorf("exit status 1")

// NewRootCmd assembles the notify command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand(
		"notify",
		"Turn inotifywait notifications into add, change, attributes, unlink and move events",
	)
	root.Long = `notify runs inotifywait and classifies its raw notifications into
semantic filesystem events. Sequences such as a temporary-file save or a
rename across directories are reported as a single event.

Examples:
  notify watch ./src
  notify watch --tui --exclude-glob '**/*.swp' .
  inotifywait -m -r --format '{ "type": "%e", "file": "%w%f", "date": "%T" }' --timefmt %s . | notify replay -`

	info := version.GetInfo()
	cli.SetVersionTemplate(root, info)

	root.AddCommand(NewWatchCmd())
	root.AddCommand(NewReplayCmd())
	root.AddCommand(NewServeCmd())
	root.AddCommand(NewTailCmd())
	root.AddCommand(NewHistoryCmd())
	root.AddCommand(NewConfigCmd())
	root.AddCommand(cli.NewVersionCommand("notify", info))

	// Flag and argument mistakes get the short usage hint instead of
	// the coded error output.
	root.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		cli.PrintError(c, err)
		return ErrSilentExit
	})

	profiling.NewCobraProfiler().Attach(root)
	cli.ApplyStyledHelpRecursive(root)
	cli.SetStyledHelpWithExtras(root, kindsHelp)
	return root
}

func kindsHelp(w io.Writer, t *theme.Theme) {
	section := t.Header.Italic(true)
	fmt.Fprintln(w, "\n "+section.Render("EVENT KINDS"))
	descriptions := map[events.Kind]string{
		events.Add:        "a file or directory appeared",
		events.Change:     "content was written",
		events.Attributes: "metadata changed or a hard link was made",
		events.Unlink:     "a file or directory went away",
		events.Move:       "a rename within the watched tree",
	}
	for _, k := range events.Kinds {
		fmt.Fprintf(w, " %s %s\n", t.Kind(k).Render(fmt.Sprintf("%-10s", k)), descriptions[k])
	}
}
