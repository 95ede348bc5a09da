package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/archi-map/archidb"
)

func newProbeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Measure connection quality to the database host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := flags.probeURL
			if target == "" {
				target = flags.configURL
			}
			if target == "" {
				target = flags.dbURL
			}
			if target == "" {
				return fmt.Errorf("either --probe-url, --config-url or --db-url is required")
			}

			start := time.Now()
			quality := archidb.ProbeConnection(cmd.Context(), http.DefaultClient, target)
			fmt.Printf("%s\t%s\t%s\n", target, quality, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
