package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"mesh-rpc/routing"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var routingKey string

var routingCmd = &cobra.Command{
	Use:   "routing",
	Short: "Print routing table snapshots until the locator closes the stream",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := connect(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		for table, err := range s.locator.Routing(ctx, routingKey).All(ctx) {
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			if err := printJSON(table); err != nil {
				return err
			}
		}
		return nil
	},
}

var routeCmd = &cobra.Command{
	Use:   "route APP KEY",
	Short: "Print the node serving KEY within APP",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*flags.timeout)
		defer cancel()

		s, err := connect(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		stream := s.locator.Routing(ctx, routingKey)
		defer stream.Close()

		table, err := stream.Recv(ctx)
		if errors.Is(err, io.EOF) {
			return errors.New("locator closed the routing stream without a table")
		}
		if err != nil {
			return err
		}

		router := routing.NewRouter(nil, s.logger)
		router.Update(table)
		node, err := router.Route(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(node)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{routingCmd, routeCmd} {
		cmd.Flags().StringVar(&routingKey, "uuid", uuid.NewString(), "subscriber key sent to the locator")
	}
}
