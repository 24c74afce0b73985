// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/leifmetcalf/zola-db/internal/catalog"
	"github.com/leifmetcalf/zola-db/internal/wire"
	"github.com/leifmetcalf/zola-db/internal/zconfig"
	"github.com/leifmetcalf/zola-db/internal/zlog"
	"github.com/leifmetcalf/zola-db/internal/zmetrics"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open a store and serve it over the wire protocol",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "path to a zolad config file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := zconfig.Load(serveConfigPath)
	if err != nil {
		return err
	}

	log := zlog.New(zlog.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	metrics := zmetrics.New()

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	cat, err := catalog.Open(cfg.DataDir, log, metrics)
	if err != nil {
		return fmt.Errorf("opening catalog at %s: %w", cfg.DataDir, err)
	}
	defer cat.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
			log.WithField("addr", cfg.MetricsAddr).Info("metrics server listening")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithField("err", err).Error("metrics server failed")
			}
		}()
	}

	srv := wire.NewServer(cat, log, cfg.RateLimit, cfg.Burst)
	return srv.Serve(ctx, cfg.ListenAddr)
}
