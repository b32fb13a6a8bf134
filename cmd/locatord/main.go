// Command locatord serves a locator from a YAML file. SIGHUP reloads the
// file; routing subscribers receive the new table.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mesh-rpc/locator"
	"mesh-rpc/registry"
	"mesh-rpc/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:          "locatord",
	Short:        "Serve a static locator",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()
		return run(logger)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "locatord.yaml", "configuration file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(logger *zap.Logger) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	catalog := locator.NewCatalog()
	if err := apply(catalog, cfg); err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithMetrics(server.NewMetrics(promReg)),
	}
	if len(cfg.Etcd.Endpoints) > 0 {
		reg, err := registry.NewEtcdRegistry(cfg.Etcd.Endpoints, logger)
		if err != nil {
			return err
		}
		defer reg.Close()
		opts = append(opts, server.WithRegistry(reg, cfg.Advertise, cfg.Etcd.TTL))
	}

	srv := server.NewServer(locator.ServiceName, opts...)
	locator.Register(srv, catalog, logger)

	var metricsSrv *http.Server
	if cfg.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.MetricsListen, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics listener failed", zap.Error(err))
			}
		}()
	}

	served := make(chan error, 1)
	go func() { served <- srv.Serve("tcp", cfg.Listen) }()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	for {
		select {
		case err := <-served:
			return err
		case sig := <-signals:
			if sig == syscall.SIGHUP {
				reload(catalog, logger)
				continue
			}
			logger.Info("shutting down", zap.Stringer("signal", sig))
			if metricsSrv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				metricsSrv.Shutdown(ctx)
				cancel()
			}
			if err := srv.Shutdown(5 * time.Second); err != nil {
				logger.Warn("shutdown incomplete", zap.Error(err))
			}
			return <-served
		}
	}
}

func apply(catalog *locator.Catalog, cfg *Config) error {
	services, table, err := cfg.catalog()
	if err != nil {
		return err
	}
	catalog.Replace(services, table)
	return nil
}

// reload keeps the previous catalog when the file is broken.
func reload(catalog *locator.Catalog, logger *zap.Logger) {
	cfg, err := loadConfig(configPath)
	if err == nil {
		err = apply(catalog, cfg)
	}
	if err != nil {
		logger.Error("reload failed", zap.String("config", configPath), zap.Error(err))
		return
	}
	logger.Info("configuration reloaded", zap.Strings("services", catalog.Services()))
}
