package main

import (
	"github.com/spf13/cobra"
)

func newTablesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := flags.session()
			if err != nil {
				return err
			}
			defer session.Close()

			res, err := session.Execute(cmd.Context(),
				"SELECT name, type FROM sqlite_master WHERE type IN ('table', 'view') ORDER BY name")
			if err != nil {
				return err
			}
			return printTable(res.Columns, res.Values)
		},
	}
}
