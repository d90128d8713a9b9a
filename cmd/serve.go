package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/grovetools/notify/cli"
	"github.com/grovetools/notify/config"
	"github.com/grovetools/notify/internal/client"
	"github.com/grovetools/notify/internal/hub"
	"github.com/grovetools/notify/internal/journal"
	"github.com/grovetools/notify/internal/pidfile"
	"github.com/grovetools/notify/internal/server"
	"github.com/grovetools/notify/internal/session"
	"github.com/grovetools/notify/logging"
	"github.com/grovetools/notify/pkg/events"
	"github.com/grovetools/notify/pkg/paths"
)

// recentKept is how many events the server replays to new stream clients.
const recentKept = 256

// NewServeCmd returns the serve command with its stop and status subcommands.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [path]",
		Short: "Watch a path and stream events over a unix socket",
		Long: `Runs a watch session in the foreground and serves its events on a unix
socket: /api/stream (server-sent events), /api/ws (websocket),
/api/history, /api/counters, /api/config and /health.`,
		Example: `notify serve --journal ~/src
curl --unix-socket $XDG_RUNTIME_DIR/notify/notify.sock http://notify/api/stream?kinds=add,move
notify serve status`,
		Args: cobra.MaximumNArgs(1),
	}
	addWatchFlags(cmd.Flags())
	cmd.Flags().String("socket", "", "Unix socket path (default: runtime dir)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(cmd)
		if err != nil {
			return err
		}
		applyWatchFlags(cmd, cfg, args)
		if cmd.Flags().Changed("socket") {
			cfg.Server.Socket, _ = cmd.Flags().GetString("socket")
		}
		if err := cfg.ValidateWatch(); err != nil {
			return err
		}
		return serve(cmd.Context(), cfg, cli.GetLogger(cmd))
	}

	cmd.AddCommand(newServeStopCmd())
	cmd.AddCommand(newServeStatusCmd())
	return cmd
}

func socketPath(cfg *config.Config) string {
	if cfg.Server.Socket != "" {
		return cfg.Server.Socket
	}
	return paths.SocketPath()
}

func serve(ctx context.Context, cfg *config.Config, logger *logrus.Entry) error {
	pidPath := paths.PidFilePath()
	sockPath := socketPath(cfg)

	if err := pidfile.Acquire(pidPath); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		if err := pidfile.Release(pidPath); err != nil {
			logger.Errorf("Failed to release pidfile: %v", err)
		}
	}()

	var jrnl *journal.Journal
	if cfg.Journal.Enabled {
		path := cfg.Journal.Path
		if path == "" {
			path = paths.JournalPath()
		}
		j, err := journal.Open(path)
		if err != nil {
			return err
		}
		defer j.Close()
		jrnl = j
	}

	h := hub.New(cfg.BufferSize, recentKept, logger)
	defer h.Close()

	sess, err := session.New(session.Options{Config: cfg, Hub: h, Journal: jrnl, Logger: logger})
	if err != nil {
		return err
	}

	srv := server.New(logger)
	srv.SetSession(sess)
	srv.SetJournal(jrnl)
	srv.SetRunningConfig(&server.RunningConfig{
		Session:   sess.ID(),
		Path:      cfg.Path,
		PathList:  cfg.ExplicitPathList,
		Recursive: cfg.IsRecursive(),
		Socket:    sockPath,
		Journal:   jrnl != nil,
		StartedAt: time.Now(),
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sess.Start(ctx); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe(sockPath) }()
	logger.WithField("pid", os.Getpid()).Info("Serving events")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Received stop signal")
	case <-sess.Done():
		runErr = sess.Wait()
	case runErr = <-serveErr:
		if runErr != nil {
			runErr = fmt.Errorf("server error: %w", runErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown error: %v", err)
	}
	if err := sess.Close(); err != nil && runErr == nil {
		runErr = err
	}
	_ = os.Remove(sockPath)
	return runErr
}

func newServeStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			running, pid, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}
			if !running {
				fmt.Fprintln(cmd.OutOrStdout(), "Server is not running")
				return nil
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("failed to find process %d: %w", pid, err)
			}
			if err := process.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("failed to send stop signal: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent SIGTERM to process %d\n", pid)
			return nil
		},
	}
}

func newServeStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check server status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			running, pid, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return fmt.Errorf("error: %w", err)
			}
			if !running {
				pretty.WarnPretty("Stopped")
				return ErrSilentExit
			}

			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				cfg = config.Default()
			}
			sock := socketPath(cfg)
			pretty.Success(fmt.Sprintf("Running (PID: %d)", pid))
			pretty.Path("Socket", sock)

			c := client.New(sock)
			defer c.Close()
			snap, err := c.Counters(cmd.Context())
			if err != nil {
				pretty.ErrorPretty("Server not responding", err)
				return nil
			}
			pretty.Field("Session", snap.Session)
			pretty.Field("Ready", snap.Ready)
			pretty.Field("Notifications", snap.Classifier.Notifications)
			for _, k := range events.Kinds {
				pretty.Field("  "+k.String(), snap.Classifier.Emitted[k])
			}
			return nil
		},
	}
}
