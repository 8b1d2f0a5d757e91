// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/morales-javx/javxseek/internal/config"
	"github.com/morales-javx/javxseek/internal/server"
	"github.com/morales-javx/javxseek/internal/session"
	"github.com/morales-javx/javxseek/internal/telemetry"
)

type serveFlags struct {
	addr  string
	watch bool
}

func newServeCommand(g *globalFlags) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web backend",
		Long: `serve exposes the chat over HTTP: replies stream as server-sent events
from POST /api/chat/stream, with session control endpoints under
/api/session and Prometheus metrics on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, f)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&f.watch, "watch", true, "reload logging.level when the config file changes")
	return cmd
}

func runServe(cmd *cobra.Command, g *globalFlags, f *serveFlags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := telemetry.NewRecorder(reg)

	a, err := newApp(g, appOptions{consoleLog: true, consoleWriter: cmd.ErrOrStderr(), recorder: rec})
	if err != nil {
		return err
	}
	defer a.Close()

	scfg := a.cfg.Server
	if f.addr != "" {
		scfg.Addr = f.addr
	}

	registry := session.NewRegistry(a.newChat, session.RegistryConfig{
		IdleTimeout:   time.Duration(scfg.IdleTimeoutMins) * time.Minute,
		SweepInterval: time.Minute,
	}, a.log.Logger, rec)

	srv, err := server.New(server.Options{
		Config:   scfg,
		Registry: registry,
		Recorder: rec,
		Gatherer: reg,
		Logger:   a.log.Logger,
		Version:  Version,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "javxseek %s listening on %s\n", Version, scfg.Addr)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.Run(gctx)
	})
	if f.watch && a.cfgPath != "" {
		group.Go(func() error {
			err := config.Watch(gctx, a.cfgPath, config.DefaultDebounce, func(cfg *config.Config, err error) {
				if err != nil {
					a.log.Warn("config reload rejected", zap.Error(err))
					return
				}
				a.log.SetLevel(cfg.Logging.Level)
				a.log.Info("config reloaded", zap.String("level", cfg.Logging.Level))
			})
			if err != nil {
				a.log.Warn("config watch unavailable", zap.Error(err))
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
