package main

// kernelctl guard decode/cost — decodes compiled guard blobs with the same
// Decode core/guard_blob.go exposes, letting an operator inspect a blob
// received from a client-side guard compiler, or print its worst-case
// cost, without writing Go.

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valence-kernel/valence/core"
	"github.com/valence-kernel/valence/pkg/config"
	"github.com/valence-kernel/valence/pkg/utils"
)

func guardCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "guard", Short: "Inspect compiled guard blobs"}

	cmd.AddCommand(&cobra.Command{
		Use:   "decode <hex-blob>",
		Short: "Decode and print a compiled guard blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := hex.DecodeString(args[0])
			if err != nil {
				return utils.Wrapf(err, "decode hex blob %q", args[0])
			}
			g, err := core.Decode(blob, config.AppConfig.Kernel.GuardStepBudget)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version=%d ops=%d constants=%d manifest=%d\n", g.Version, len(g.Program), len(g.Constants), len(g.Manifest))
			for i, ins := range g.Program {
				fmt.Fprintf(out, "  %03d  %-12s imm=%d\n", i, ins.Op.String(), ins.Immediate)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cost <hex-blob>",
		Short: "Print the worst-case compute cost of a guard blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := hex.DecodeString(args[0])
			if err != nil {
				return utils.Wrapf(err, "decode hex blob %q", args[0])
			}
			g, err := core.Decode(blob, config.AppConfig.Kernel.GuardStepBudget)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), core.MaxProgramCost(len(g.Program)))
			return nil
		},
	})

	return cmd
}
