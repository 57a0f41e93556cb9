package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/feed/cli"
	"github.com/grovetools/feed/errors"
	"github.com/grovetools/feed/internal/app"
	"github.com/grovetools/feed/internal/loop"
	"github.com/grovetools/feed/pkg/channel"
	"github.com/grovetools/feed/version"
	"github.com/spf13/cobra"
)

// NewRunCmd starts an interactive feed session on the terminal.
func NewRunCmd() *cobra.Command {
	var (
		url     string
		offline bool
		noWatch bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start an interactive feed session",
		Long: `Start an interactive feed session on the terminal.

Lines typed on stdin are published as posts. Lines starting with a slash
are commands; type /help for the list. The session connects to the live
channel configured in feed.yml unless --offline is given.

Examples:
  # Connect to a local mock peer
  feed run --url ws://localhost:8787/ws

  # Work without a live channel
  feed run --offline`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if offline {
				cfg.Channel.URL = ""
			} else if url != "" {
				cfg.Channel.URL = url
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := cli.GetLogger(cmd, "feed")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			lp := loop.New(logger.WithField("module", "loop"))
			transport := channel.NewWebsocketTransport(logger.WithField("module", "websocket"))
			transport.Header = http.Header{"User-Agent": {version.GetInfo().UserAgent()}}

			out := cmd.OutOrStdout()
			session, err := app.NewSession(app.Options{
				Config:           cfg,
				Scheduler:        lp,
				Transport:        transport,
				WatchPreferences: !noWatch,
				Output:           out,
				Logger:           logger,
			})
			if err != nil {
				return err
			}
			defer session.Close()

			lp.Post(func() {
				if err := session.Start(); err != nil {
					logger.WithError(err).Error("Failed to start session")
					stop()
				}
			})
			go readCommands(ctx, cmd.InOrStdin(), out, lp, session, stop)

			lp.Run(ctx)
			logger.Debug("Session ended")
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Live channel websocket URL (overrides channel.url)")
	cmd.Flags().BoolVar(&offline, "offline", false, "Run without a live channel")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not follow edits of the preference file")

	return cmd
}

// readCommands feeds stdin lines to the session on the loop. It stops the
// session on EOF or /quit.
func readCommands(ctx context.Context, in io.Reader, out io.Writer, lp *loop.Loop, s *app.Session, stop func()) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		done := make(chan bool, 1)
		lp.Post(func() {
			quit, err := s.Exec(line)
			if err != nil {
				reportInputError(out, err)
			}
			done <- quit
		})
		select {
		case quit := <-done:
			if quit {
				stop()
				return
			}
		case <-ctx.Done():
			return
		}
	}
	// Queued behind pending work so EOF never preempts Start.
	lp.Post(stop)
}

// reportInputError prints command errors. Validation failures already show
// as notifications.
func reportInputError(w io.Writer, err error) {
	if errors.Is(err, errors.ErrCodeValidationFailed) {
		return
	}
	msg := err.Error()
	if fe, ok := errors.As(err); ok {
		msg = fe.Message
	}
	fmt.Fprintf(w, "! %s\n", msg)
}
