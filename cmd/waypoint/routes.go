// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tigerwill90/waypoint"
	"github.com/tigerwill90/waypoint/manifest"
)

func routesCmd() *cobra.Command {
	var (
		manifestPath string
		method       string
	)

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the routing tree",
		Long:  `Build the demo routes and the optional manifest, then print the routing tree of a method.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd)
			store := newPageStore(func() {})

			b := waypoint.NewBuilder(nil)
			if err := store.register(b); err != nil {
				return err
			}
			if err := store.permalinks(b); err != nil {
				return err
			}
			if manifestPath != "" {
				if _, err := manifest.FileCollector(manifestPath, logger)(cmd.Context(), b); err != nil {
					return err
				}
			}

			rt, err := b.Build()
			if err != nil {
				return err
			}

			method = strings.ToUpper(method)
			out := cmd.OutOrStdout()
			for _, md := range rt.Metadata(method) {
				fmt.Fprintf(out, "%s%s", strings.Repeat("  ", md.Depth-1), md.Key)
				if md.Type != waypoint.IntermediateNode {
					fmt.Fprintf(out, " [%s]", md.Type)
				}
				if md.Target != "" {
					fmt.Fprintf(out, " -> %s", md.Target)
				}
				if md.DisplayName != "" {
					fmt.Fprintf(out, " (%s)", md.DisplayName)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Path to a YAML or TOML route manifest")
	cmd.Flags().StringVarP(&method, "method", "X", http.MethodGet, "Method tree to print")

	return cmd
}
