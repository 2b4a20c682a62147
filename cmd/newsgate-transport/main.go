// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Command newsgate-transport serves the NewsGate entity services over the
// configured RPC transport and offers client-side probes for them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "newsgate-transport",
		Short: "NewsGate entity transport daemon",
		Long: `Serves the fraud, ad, statistics, search segmentation and
moderation log services over ZAP, gRPC or JSON-RPC.

Example:
  newsgate-transport serve --config /etc/newsgate/transport.yaml
  newsgate-transport check --addr 127.0.0.1:9000 --event login:alice --times 5 --window 60`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file (YAML or TOML)")

	root.AddCommand(serveCmd(), checkCmd(), typesCmd())
	return root
}
