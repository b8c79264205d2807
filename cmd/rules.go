package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List built-in and loaded rule sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			reg, err := newRegistry(cfg)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ACTIVE\tNAME\tBASE\tRULES\tDESCRIPTION")
			for _, name := range reg.Names() {
				engine, err := reg.Engine(name)
				if err != nil {
					return err
				}
				rs := engine.RuleSet()
				mark := ""
				if name == reg.ActiveName() {
					mark = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%.0f\t%d\t%s\n", mark, rs.Name, rs.Base, len(rs.Rules), rs.Description)
			}
			return tw.Flush()
		},
	}
}
