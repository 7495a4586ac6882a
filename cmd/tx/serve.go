package main

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/tx/internal/demo"
)

const shutdownTimeout = 5 * time.Second

func serveCmd(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the to-do demo application",
		Long: `Serve a small to-do application that speaks the tx exchange protocol
over HTTP and over the WebSocket bridge at <handlerPrefix>ws.

Examples:
  tx serve
  tx serve --addr=127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Serve.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", c.cfg.Serve.Addr)
			if err != nil {
				return err
			}
			success(cmd.ErrOrStderr(), "serving todo demo on http://%s/", ln.Addr())
			return serve(ctx, c, ln)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config, :8080)")

	return cmd
}

// serve runs the demo on ln until ctx is done.
func serve(ctx context.Context, c *cli, ln net.Listener) error {
	app := demo.New(c.logger, c.cfg.HandlerPrefix)
	srv := &http.Server{
		Handler:           app.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	c.logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
