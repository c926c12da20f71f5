package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/bramble/pkg/graph"
	"github.com/Ramsey-B/bramble/pkg/routes"
	graphroutes "github.com/Ramsey-B/bramble/pkg/routes/graph"
	"github.com/Ramsey-B/bramble/pkg/routes/health"
)

var version = "dev"

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read API over the graph",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
			}
			return a.runServe(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&port, "port", 3004, "HTTP port (overrides PORT)")
	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	rt, err := a.connect(ctx, false)
	if err != nil {
		return err
	}
	defer a.closeRuntime(rt)

	checker := health.NewChecker(version)
	checker.AddCheck("graph", rt.client.VerifyConnectivity)

	handler := graphroutes.NewHandler(graph.NewQueryService(rt.client, rt.statements, a.logger), a.logger)
	e := routes.NewServer(routes.Options{
		ServiceName:    a.cfg.AppName,
		MetricsEnabled: a.cfg.MetricsEnabled,
		TracingEnabled: a.cfg.TracingEnabled,
	}, checker, handler, a.logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Port),
		Handler:      e,
		ReadTimeout:  time.Duration(a.cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HttpServerWriteTimeoutSeconds) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.WithFields(map[string]any{"port": a.cfg.Port}).Info("Read API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	checker.SetReady(true)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	checker.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.logger.Info("Shutting down read API")
	return server.Shutdown(shutdownCtx)
}
