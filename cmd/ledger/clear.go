package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete every expense without --yes")
			}
			if err := a.ledger.ClearAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "All expenses deleted.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting every expense")
	return cmd
}
