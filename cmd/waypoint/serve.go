// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/tigerwill90/waypoint"
	"github.com/tigerwill90/waypoint/manifest"
	"github.com/tigerwill90/waypoint/signals"
	"github.com/tigerwill90/waypoint/waypointdebug"
)

// Collector priorities. Pages are collected before permalinks, and permalinks before the manifest.
const (
	permalinkPriority = 100
	manifestPriority  = 50
)

func serveCmd() *cobra.Command {
	var (
		addr         string
		manifestPath string
		delay        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the demo content server",
		Long: `Start an HTTP server routing demo pages, permalinks and the redirects
and rewrites of an optional manifest. Send SIGHUP to reload the manifest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd)
			ctx, reloads := signals.SetupHandlerWithReload()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			var svc *waypoint.Service
			store := newPageStore(func() {
				svc.RequestRebuild()
			})

			opts := []waypoint.Option{
				waypoint.WithLogger(logger),
				waypoint.WithMetrics(reg),
				waypoint.WithRebuildDelay(delay),
				waypoint.WithRoutes(store.register),
				waypoint.WithRoutes(func(b *waypoint.Builder) error {
					return b.Handle(http.MethodGet, "/debug/info", waypointdebug.DebugHandler(), waypoint.WithName("debug info"))
				}),
				waypoint.WithCollector("permalinks", permalinkPriority, func(ctx context.Context, b *waypoint.Builder) (*waypoint.Builder, error) {
					return b, store.permalinks(b)
				}),
			}
			if manifestPath != "" {
				opts = append(opts, waypoint.WithCollector("manifest", manifestPriority, manifest.FileCollector(manifestPath, logger)))
			}

			var err error
			svc, err = waypoint.New(opts...)
			if err != nil {
				return err
			}
			defer svc.Close()

			r := chi.NewRouter()
			r.Use(waypoint.LoggerWithHandler(logger.Handler()))
			r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
			r.Handle("/debug/routes", waypointdebug.Handler(svc))
			r.Handle("/*", svc)

			srv := &http.Server{
				Addr:              addr,
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-reloads:
						logger.Info("reload requested")
						svc.RequestRebuild()
					}
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server started", slog.String("addr", addr), slog.String("build", svc.Current().ID()))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("server shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Path to a YAML or TOML route manifest")
	cmd.Flags().DurationVar(&delay, "rebuild-delay", waypoint.DefaultRebuildDelay, "Debounce window of rebuild requests")

	return cmd
}
