package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pfrederiksen/silat-watch/internal/logger"
	"github.com/pfrederiksen/silat-watch/internal/notifier"
	"github.com/pfrederiksen/silat-watch/internal/scraper"
	"github.com/pfrederiksen/silat-watch/internal/watcher"
	"github.com/pfrederiksen/silat-watch/internal/web"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

type serveOptions struct {
	listenAddr   string
	runOnStart   bool
	cycleTimeout time.Duration
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the schedule watcher and the subscription web form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.listenAddr, "listen", "", "HTTP listen address (env LISTEN_ADDR)")
	cmd.Flags().BoolVar(&opts.runOnStart, "run-on-start", false, "Run a check immediately instead of waiting for the first interval")
	cmd.Flags().DurationVar(&opts.cycleTimeout, "cycle-timeout", 10*time.Minute, "Upper bound for one check including email delivery")

	return cmd
}

func runServe(cmd *cobra.Command, root *rootOptions, opts *serveOptions) error {
	cfg := root.cfg
	if opts.listenAddr != "" {
		cfg.ListenAddr = opts.listenAddr
	}

	if err := errors.Join(cfg.ValidateServe(), cfg.ValidateSMTP()); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.Close() // nolint:errcheck

	signer, err := newSigner(cfg)
	if err != nil {
		return err
	}

	metrics := logger.DefaultMetrics()
	n := notifier.NewEmailNotifier(st.subscribers, newSMTPTransport(cfg), newComposer(cfg, signer))
	w := watcher.New(scraper.New(cfg.TargetURL), st.snapshots, n, watcher.Options{
		Interval:     cfg.CheckInterval(),
		RunOnStart:   opts.runOnStart,
		CycleTimeout: opts.cycleTimeout,
		Metrics:      metrics,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           web.New(st.subscribers, signer, metrics).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", logger.Fields{"addr": cfg.ListenAddr, "base_url": cfg.BaseURL})
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down", nil)
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", nil, err)
	}
	if err := w.Stop(shutdownCtx); err != nil {
		logger.Error("Watcher did not stop cleanly", nil, err)
	}

	return serveErr
}
