package main

// kernelctl program decode — inspects a wire-format operation program,
// the batch engine's other compiled input besides the guard blob.

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valence-kernel/valence/core"
	"github.com/valence-kernel/valence/pkg/config"
	"github.com/valence-kernel/valence/pkg/utils"
)

func programCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "program", Short: "Inspect operation programs"}

	cmd.AddCommand(&cobra.Command{
		Use:   "decode <hex-program>",
		Short: "Decode and print an operation program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wire, err := hex.DecodeString(args[0])
			if err != nil {
				return utils.Wrapf(err, "decode hex program %q", args[0])
			}
			p, err := core.DecodeProgram(wire, config.AppConfig.Kernel.MaxOps)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version=%d borrow_total=%d ops=%d\n", p.Version, p.BorrowTotal, len(p.Ops))
			for i, op := range p.Ops {
				fmt.Fprintf(out, "  %03d  kind=%d read=%032b write=%032b payload_len=%d\n", i, op.Kind, op.Borrow.Read, op.Borrow.Write, len(op.Payload))
			}
			return nil
		},
	})

	return cmd
}
