// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/newsgate/rpc"
	"github.com/newsgate/rpc/bootstrap"
	"github.com/newsgate/rpc/fraud"
)

func checkCmd() *cobra.Command {
	var (
		addr, transportName, event string
		count, times, window       uint32
		timeout                    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one fraud limit check against a server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client, err := rpc.Dial(ctx, addr, rpc.WithTransport(transportName))
			if err != nil {
				return err
			}
			defer client.Close()

			check := fraud.NewEventLimitCheck(event, count, times, window)
			reply := fraud.LimitCheckResultPack.New()
			if err := client.Call(ctx, "fraud.check", fraud.LimitCheckPack.Of(check), reply); err != nil {
				return err
			}
			for _, result := range reply.Items() {
				fmt.Fprintf(cmd.OutOrStdout(), "event %s (%d): limit exceeded: %t\n", event, check.EventID, result.LimitExceeded)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9000", "Server address")
	cmd.Flags().StringVarP(&transportName, "transport", "t", rpc.DefaultTransport, "Transport (zap, grpc, json)")
	cmd.Flags().StringVar(&event, "event", "", "Event name")
	cmd.Flags().Uint32Var(&count, "count", 1, "Occurrences to record")
	cmd.Flags().Uint32Var(&times, "times", 1, "Occurrences allowed within the window")
	cmd.Flags().Uint32Var(&window, "window", 60, "Window in seconds")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Call timeout")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func typesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the wire types known to this build",
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := bootstrap.InitializeTransportRegistry()
			if err != nil {
				return err
			}
			for _, id := range registry.IDs() {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}
