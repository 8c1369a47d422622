package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/hpn/vocab-master/internal/handler"
	"github.com/hpn/vocab-master/internal/worker"
)

const (
	defaultServeAddr = "127.0.0.1:8765"
	shutdownTimeout  = 10 * time.Second
)

func newServeCommand(cc *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve actions over a loopback HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, cc, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultServeAddr, "Listen address")
	return cmd
}

func serve(cmd *cobra.Command, cc *commandContext, addr string) error {
	logger := cc.logger
	console := cc.console(cmd)

	store, err := cc.openStore()
	if err != nil {
		return err
	}
	w := worker.New(store.Path(), worker.WithLogger(logger))
	defer w.Stop()

	if !logger.Enabled(cmd.Context(), slog.LevelDebug) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(handler.NewActionHandler(store, w, handler.WithLogger(logger)), logger)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("address", listener.Addr().String()))
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	console.Banner(version)
	console.StartupInfo(listener.Addr().String(), store.Path())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	console.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server stopped gracefully")
	console.Goodbye()
	return nil
}
