package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/riptide-engine/riptide/internal/httpapi"
	"github.com/riptide-engine/riptide/internal/logging"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := buildRuntime(cfg)
		if rt.warmTracker != nil {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			rt.warmTracker.Start(ctx)
			defer rt.warmTracker.Stop()
		}

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}

		server := httpapi.New(rt.orchestrator, nil, Version)
		server.Dependencies = map[string]httpapi.DependencyChecker{
			"browser_pool": func() bool {
				stats := rt.browsers.Stats()
				return stats.InUse <= cfg.Browser.MaxInstances
			},
		}
		server.BudgetMgr = rt.budgetMgr
		server.SpiderConfig.RobotsTTL = time.Duration(cfg.Spider.RobotsTTLSecs) * time.Second
		server.SpiderConfig.DefaultRPS = cfg.Spider.RequestsPerSecond

		httpServer := &http.Server{
			Addr:    addr,
			Handler: server.Router(),
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		errCh := make(chan error, 1)
		go func() {
			logging.Infof("listening on %s", addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		select {
		case sig := <-sigCh:
			logging.Infof("received %v, shutting down", sig)
		case err := <-errCh:
			return fmt.Errorf("server error: %w", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		rt.browsers.Shutdown()
		return httpServer.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config server.addr)")
}
