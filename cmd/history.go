package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grovetools/notify/cli"
	"github.com/grovetools/notify/internal/journal"
	"github.com/grovetools/notify/pkg/events"
	"github.com/grovetools/notify/pkg/paths"
	"github.com/grovetools/notify/tui/theme"
)

// NewHistoryCmd creates the `history` command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show events recorded in the journal",
		Long: `Lists journaled events, oldest first. Events are journaled by watch and
serve when journal.enabled is set or --journal is passed.`,
		Example: `notify history -n 20
notify history --kind move --kind unlink --prefix /home/me/src`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().IntP("limit", "n", 50, "Number of events to show (0 for all)")
	cmd.Flags().StringSlice("kind", nil, "Only show these kinds (repeatable)")
	cmd.Flags().String("session", "", "Only show events from this session")
	cmd.Flags().String("prefix", "", "Only show events under this path")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(cmd)
		if err != nil {
			return err
		}
		path := cfg.Journal.Path
		if path == "" {
			path = paths.JournalPath()
		}

		filter := journal.Filter{}
		filter.Limit, _ = cmd.Flags().GetInt("limit")
		filter.Session, _ = cmd.Flags().GetString("session")
		filter.PathPrefix, _ = cmd.Flags().GetString("prefix")
		kinds, _ := cmd.Flags().GetStringSlice("kind")
		for _, raw := range kinds {
			k, err := events.ParseKind(strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			filter.Kinds = append(filter.Kinds, k)
		}

		j, err := journal.Open(path)
		if err != nil {
			return err
		}
		defer j.Close()

		entries, err := j.Recent(cmd.Context(), filter)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if cli.GetOptions(cmd).JSONOutput {
			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if len(entries) == 0 {
			fmt.Fprintln(out, "No events recorded")
			return nil
		}
		t := theme.DefaultTheme
		for _, e := range entries {
			ts := e.Event.Stats.ObservedAt.Local().Format("2006-01-02 15:04:05")
			fmt.Fprintf(out, "%s %s %s\n", t.Muted.Render(ts), t.Muted.Render(shortID(e.Session)), t.RenderEvent(e.Event))
		}
		return nil
	}

	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
