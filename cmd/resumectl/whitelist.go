package main

import (
	"context"
	"database/sql"
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"resume-optimizer/internal/eligibility"
	"resume-optimizer/internal/usage"
)

func eligibilityService(database *sql.DB) *eligibility.Service {
	return eligibility.NewService(
		&eligibility.PGWhitelistRepo{DB: database},
		&eligibility.PGSignalRepo{DB: database},
		usage.NewServiceWithStore(usage.NewPGStore(database)),
	)
}

func (c *cli) withEligibility(ctx context.Context, fn func(*eligibility.Service) error) error {
	database, err := c.openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(eligibilityService(database))
}

func (c *cli) whitelistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whitelist",
		Short: "Manage free-allowance whitelist entries",
	}

	var (
		matchType string
		allowance int
		discount  int
		premium   bool
		tag       string
	)
	add := &cobra.Command{
		Use:   "add <value>",
		Short: "Add an email, domain or ip_range entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := buildEntry(matchType, args[0], allowance, discount, premium, tag)
			if err != nil {
				return err
			}
			return c.withEligibility(cmd.Context(), func(svc *eligibility.Service) error {
				created, err := svc.AddWhitelistEntry(cmd.Context(), entry)
				if err != nil {
					return errors.Wrap(err, "add whitelist entry")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s %s)\n", created.ID, created.MatchType, created.MatchValue)
				return nil
			})
		},
	}
	add.Flags().StringVar(&matchType, "type", string(eligibility.MatchEmail), "match type: email, domain or ip_range")
	add.Flags().IntVar(&allowance, "allowance", -1, "free generations granted; negative means unlimited")
	add.Flags().IntVar(&discount, "discount", 0, "discount percent applied to paid generations")
	add.Flags().BoolVar(&premium, "premium", false, "grant premium templates without payment")
	add.Flags().StringVar(&tag, "tag", "", "account tag recorded on matching accounts")

	var includeInactive bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List whitelist entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEligibility(cmd.Context(), func(svc *eligibility.Service) error {
				entries, err := svc.ListWhitelist(cmd.Context(), includeInactive)
				if err != nil {
					return errors.Wrap(err, "list whitelist")
				}
				printEntries(cmd, entries)
				return nil
			})
		},
	}
	list.Flags().BoolVar(&includeInactive, "all", false, "include deactivated entries")

	deactivate := &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Stop an entry from matching",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEligibility(cmd.Context(), func(svc *eligibility.Service) error {
				if err := svc.DeactivateWhitelistEntry(cmd.Context(), args[0]); err != nil {
					return errors.Wrapf(err, "deactivate %s", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deactivated %s\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(add, list, deactivate)
	return cmd
}

// buildEntry validates flag input before any database work.
func buildEntry(matchType, value string, allowance, discount int, premium bool, tag string) (eligibility.WhitelistEntry, error) {
	entry := eligibility.WhitelistEntry{
		MatchType:       eligibility.MatchType(matchType),
		MatchValue:      value,
		DiscountPercent: discount,
		PremiumAccess:   premium,
		AccountTag:      tag,
	}
	if allowance >= 0 {
		n := allowance
		entry.FreeAllowance = &n
	}
	normalized, err := entry.Normalize()
	if err != nil {
		return eligibility.WhitelistEntry{}, errors.Wrap(err, "invalid entry")
	}
	return normalized, nil
}

func printEntries(cmd *cobra.Command, entries []eligibility.WhitelistEntry) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tVALUE\tALLOWANCE\tDISCOUNT\tPREMIUM\tACTIVE")
	for _, e := range entries {
		allowance := "unlimited"
		if !e.Unlimited() {
			allowance = fmt.Sprint(e.Limit())
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%t\t%t\n",
			e.ID, e.MatchType, e.MatchValue, allowance, e.DiscountPercent, e.PremiumAccess, e.Active)
	}
	_ = w.Flush()
}
