package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/grovetools/feed/cli"
	"github.com/grovetools/feed/internal/mockpeer"
	"github.com/grovetools/feed/internal/pidfile"
	"github.com/grovetools/feed/logging"
	"github.com/grovetools/feed/pkg/paths"
	"github.com/spf13/cobra"
)

// NewMockPeerCmd runs a local websocket peer for development.
func NewMockPeerCmd() *cobra.Command {
	var (
		addr          string
		presence      time.Duration
		notifications time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mock-peer",
		Short: "Run a local live channel peer",
		Long: `Run a local websocket peer that relays frames between connected
sessions and simulates presence changes and notifications.

Examples:
  feed mock-peer --addr :8787
  feed mock-peer --notifications=-1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cli.GetLogger(cmd, "mock-peer")
			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())

			pidPath := filepath.Join(paths.StateDir(), "mock-peer.pid")
			if err := pidfile.Acquire(pidPath); err != nil {
				return fmt.Errorf("mock peer: %w", err)
			}
			defer func() { _ = pidfile.Release(pidPath) }()

			hub := mockpeer.NewHub(mockpeer.Config{
				PresenceInterval:     presence,
				NotificationInterval: notifications,
			}, logger.WithField("module", "hub"))
			server := mockpeer.NewServer(hub, logger.WithField("module", "server"))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- server.ListenAndServe(addr) }()

			pretty.Success("Mock peer listening")
			pretty.Field("address", addr)
			pretty.Path("pid file", pidPath)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return err
			}
			pretty.InfoPretty("Mock peer stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8787", "Address to listen on")
	cmd.Flags().DurationVar(&presence, "presence", mockpeer.DefaultPresenceInterval, "Presence toggle interval (negative disables)")
	cmd.Flags().DurationVar(&notifications, "notifications", mockpeer.DefaultNotificationInterval, "Notification interval (negative disables)")

	return cmd
}
