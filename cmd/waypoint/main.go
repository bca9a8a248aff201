// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tigerwill90/waypoint/internal/slogpretty"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "waypoint",
		Short: "Content routing core",
		Long: `Waypoint routes requests through an immutable tree rebuilt at runtime.

Pages, redirects and rewrites are collected on every rebuild and the
live router is swapped atomically, without interrupting in-flight requests.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logs")

	rootCmd.AddCommand(
		serveCmd(),
		routesCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	lvl := slog.LevelInfo
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		lvl = slog.LevelDebug
	}
	return slog.New(slogpretty.New(os.Stdout, lvl))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("waypoint %s (%s)\n", version, commit)
		},
	}
}
