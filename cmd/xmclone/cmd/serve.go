package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/homemade/xmclone/clone"
	"github.com/spf13/cobra"
)

var (
	// serverPort is the port to listen on
	serverPort int
	// serverHost is the host to bind to
	serverHost string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the notification response webhook server",
		Example: `  xmclone serve --deployment acme
  xmclone serve --config-dir /etc/xmclone --port 9000`,
		RunE: runServe,
	}

	cmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "port to listen on")
	cmd.Flags().StringVar(&serverHost, "host", "localhost", "host to bind to")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", serverHost, serverPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           clone.NewRouter(clone.NewResponder(config)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s with %d response actions", addr, len(config.Responses))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
