package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCoverageCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "coverage <sql>",
		Short: "Run a query and report how much of the file it fetched",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := flags.session()
			if err != nil {
				return err
			}
			defer session.Close()

			res, err := session.Execute(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			cov, ok := session.Coverage()
			if !ok {
				fmt.Println("no chunked engine active (direct download fetches everything)")
				return nil
			}
			fmt.Printf("rows returned:  %d\n", len(res.Values))
			fmt.Printf("chunk size:     %d bytes\n", cov.BlockSize)
			fmt.Printf("chunks fetched: %d of %d\n", cov.BlocksLoaded, cov.BlocksTotal)
			fmt.Printf("bytes fetched:  %d (%.1f%% of file)\n", cov.BytesLoaded, cov.Fraction*100)
			return nil
		},
	}
}
