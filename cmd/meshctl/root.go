package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"mesh-rpc/client"
	"mesh-rpc/codec"
	"mesh-rpc/loadbalance"
	"mesh-rpc/locator"
	"mesh-rpc/middleware"
	"mesh-rpc/registry"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type globalFlags struct {
	locators []string
	etcd     []string
	codec    string
	balancer string
	timeout  time.Duration
	verbose  bool
}

var flags globalFlags

var rootCmd = &cobra.Command{
	Use:           "meshctl",
	Short:         "Query a mesh-rpc locator",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringSliceVar(&flags.locators, "locator", []string{"127.0.0.1:10053"}, "locator addresses")
	pf.StringSliceVar(&flags.etcd, "etcd", nil, "etcd endpoints; when set the locator is discovered through etcd")
	pf.StringVar(&flags.codec, "codec", "msgpack", "body codec: msgpack|json")
	pf.StringVar(&flags.balancer, "balancer", "round_robin", "locator instance picker: round_robin|weighted_random")
	pf.DurationVar(&flags.timeout, "timeout", 5*time.Second, "connect and send timeout")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(resolveCmd, routingCmd, routeCmd)
}

func newLogger() (*zap.Logger, error) {
	if flags.verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// session is one connected locator client.
type session struct {
	locator *locator.Locator
	logger  *zap.Logger
	closers []func() error
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.logger.Sync()
}

func connect(ctx context.Context) (*session, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	s := &session{logger: logger}

	ct, err := codec.ParseCodecType(flags.codec)
	if err != nil {
		return nil, err
	}
	cd, err := codec.GetCodec(ct)
	if err != nil {
		return nil, err
	}
	balancer, err := loadbalance.New(flags.balancer)
	if err != nil {
		return nil, err
	}

	var resolver client.Resolver
	if len(flags.etcd) > 0 {
		reg, err := registry.NewEtcdRegistry(flags.etcd, logger)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, reg.Close)
		resolver = reg
	} else {
		reg := registry.NewStaticRegistry()
		for _, addr := range flags.locators {
			if err := reg.Register(ctx, locator.ServiceName, registry.ServiceInstance{Addr: addr, Weight: 1}, 0); err != nil {
				return nil, err
			}
		}
		resolver = reg
	}

	svc := client.NewService(locator.ServiceName, resolver,
		client.WithLogger(logger),
		client.WithCodec(cd),
		client.WithBalancer(balancer),
		client.WithDialTimeout(flags.timeout),
		client.WithMiddlewares(
			middleware.LoggingMiddleware(logger),
			middleware.TimeoutMiddleware(flags.timeout),
		),
	)
	s.closers = append(s.closers, svc.Close)
	s.locator = locator.New(svc, logger)
	return s, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to print result: %w", err)
	}
	return nil
}
