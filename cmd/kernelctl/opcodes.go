package main

// kernelctl opcodes lint — a subcommand since the guard opcode table is
// already collision-checked at package init time (core/opcode_dispatcher.go);
// this command just surfaces that check and prints the catalogue for
// operator review.

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valence-kernel/valence/core"
)

func opcodesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "opcodes", Short: "Inspect the guard opcode catalogue"}
	cmd.AddCommand(&cobra.Command{
		Use:   "lint",
		Short: "Verify the opcode catalogue has no collisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ops := core.Catalogue()
			fmt.Fprintf(cmd.OutOrStdout(), "checked %d opcodes, no collisions detected\n", len(ops))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the opcode catalogue with per-opcode compute cost",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, op := range core.Catalogue() {
				fmt.Fprintf(cmd.OutOrStdout(), "0x%02X  %-16s cost=%d\n", byte(op.Op), op.Name, core.OpcodeCost[op.Op])
			}
			return nil
		},
	})
	return cmd
}
