package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/grovetools/notify/cli"
	"github.com/grovetools/notify/internal/client"
	"github.com/grovetools/notify/internal/hub"
	"github.com/grovetools/notify/pkg/events"
	"github.com/grovetools/notify/tui"
	"github.com/grovetools/notify/tui/components/eventview"
)

// NewTailCmd creates the `tail` command.
func NewTailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow the events of a running notify serve",
		Example: `notify tail
notify tail --kind move --json
notify tail --tui`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringSlice("kind", nil, "Only show these kinds (repeatable)")
	cmd.Flags().String("socket", "", "Unix socket of the server (default: runtime dir)")
	cmd.Flags().Bool("tui", false, "Show a live view instead of printing lines")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("socket") {
			cfg.Server.Socket, _ = cmd.Flags().GetString("socket")
		}
		rawKinds, _ := cmd.Flags().GetStringSlice("kind")
		var kinds []events.Kind
		for _, raw := range rawKinds {
			k, err := events.ParseKind(strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			kinds = append(kinds, k)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c := client.New(socketPath(cfg))
		defer c.Close()
		if !c.IsRunning(ctx) {
			return fmt.Errorf("no notify server is listening on %s", socketPath(cfg))
		}

		updates, err := c.Stream(ctx, kinds)
		if err != nil {
			return err
		}

		if useTUI, _ := cmd.Flags().GetBool("tui"); useTUI {
			title := socketPath(cfg)
			if running, err := c.Config(ctx); err == nil && running.Path != "" {
				title = running.Path
			}
			return tailLive(ctx, updates, title)
		}

		p := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), cli.GetOptions(cmd).JSONOutput)
		for u := range updates {
			if err := p.Print(u); err != nil {
				return err
			}
		}
		return nil
	}

	return cmd
}

func tailLive(ctx context.Context, updates <-chan hub.Update, title string) error {
	tui.InitializeTUI()
	defer quietLogs()()
	program := tea.NewProgram(eventview.New(updates, title), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("live view: %w", err)
	}
	return nil
}
