package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newQueryCmd(flags *rootFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "query <sql> [args...]",
		Short: "Run a read-only SQL query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := flags.session()
			if err != nil {
				return err
			}
			defer session.Close()

			queryArgs := make([]any, 0, len(args)-1)
			for _, a := range args[1:] {
				queryArgs = append(queryArgs, a)
			}

			res, err := session.Execute(cmd.Context(), args[0], queryArgs...)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res.Maps())
			}
			return printTable(res.Columns, res.Values)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json-output", false, "print rows as JSON")
	return cmd
}

func printTable(columns []string, rows [][]any) error {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(columns, "\t"))

	cells := make([]string, len(columns))
	for _, row := range rows {
		for i := range cells {
			if i < len(row) {
				cells[i] = fmt.Sprint(row[i])
			} else {
				cells[i] = ""
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}
