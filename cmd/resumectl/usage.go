package main

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"resume-optimizer/internal/usage"
)

func (c *cli) usageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Inspect the usage ledger",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <email>",
		Short: "Print the ledger account for an email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			database, err := c.openDB(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			acct, err := usage.NewServiceWithStore(usage.NewPGStore(database)).CheckUsage(ctx, args[0])
			if err != nil {
				return errors.Wrap(err, "check usage")
			}
			if acct == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "no account for %s\n", args[0])
				return nil
			}
			out, err := json.MarshalIndent(acct, "", "  ")
			if err != nil {
				return errors.Wrap(err, "encode account")
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	})
	return cmd
}
