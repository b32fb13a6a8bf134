package main

import (
	"context"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve NAME",
	Short: "Resolve a service to its endpoints and protocol description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*flags.timeout)
		defer cancel()

		s, err := connect(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		info, err := s.locator.Resolve(ctx, args[0]).Wait(ctx)
		if err != nil {
			return err
		}
		return printJSON(info)
	},
}
