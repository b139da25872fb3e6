package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"scratch-card.backend/internal/infrastructure/blockchain"
)

func selectorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "selectors",
		Short: "List revert selectors and the messages they decode to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SELECTOR\tSIGNATURE\tMESSAGE")
			for _, s := range blockchain.KnownSelectors() {
				sig, msg := s.Signature, s.Message
				if sig == "" {
					sig = "-"
				}
				if msg == "" {
					msg = "(decoded from revert data)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Selector, sig, msg)
			}
			return w.Flush()
		},
	}
}
