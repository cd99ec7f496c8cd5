package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ragdesk/internal/devserver"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	devAddr     string
	devDelay    time.Duration
	devFailChat bool
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Serve an in-memory backend for trying the client",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := devserver.New(logger)
		srv.Delay = devDelay
		srv.FailChat = devFailChat

		server := &http.Server{
			Addr:              devAddr,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       2 * time.Minute,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("devserver listening", zap.String("addr", devAddr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()
		fmt.Fprintf(cmd.OutOrStdout(), "devserver listening on %s\n", devAddr)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		case <-quit:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("devserver stopped")
		return nil
	},
}

func init() {
	devserverCmd.Flags().StringVar(&devAddr, "addr", ":8000", "Listen address")
	devserverCmd.Flags().DurationVar(&devDelay, "delay", 0, "Artificial latency added to every request")
	devserverCmd.Flags().BoolVar(&devFailChat, "fail-chat", false, "Answer every chat with an application error")
	rootCmd.AddCommand(devserverCmd)
}
