package main

// kernelctl simulate batch — runs a decoded operation program against a
// scratch, in-memory session. ALT slots default to two pre-registered
// System-role slots (payer at index 0, recipient at index 1), seeded with a
// native balance; a --scenario YAML file can describe a richer slot layout,
// the same way the reference repo's `testnet start <config.yaml>` loads a
// typed struct straight off disk with yaml.Unmarshal instead of going
// through the viper/mapstructure path used for kernel limits. A quick local
// dry run, not a connection to a live kernel instance.

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/valence-kernel/valence/core"
	"github.com/valence-kernel/valence/pkg/config"
	"github.com/valence-kernel/valence/pkg/utils"
)

// scenarioSlot describes one ALT registration in a --scenario file.
type scenarioSlot struct {
	Index   int    `yaml:"index"`
	Address byte   `yaml:"address"` // scratch addresses are scratchAddr(Address): low-fidelity but deterministic for dry runs
	Role    string `yaml:"role"`
	Label   string `yaml:"label"`
}

// scenario is the --scenario file's top-level shape: an ALT layout plus
// starting native balances, read straight off disk the way the teacher's
// `testnet start` command reads a node list.
type scenario struct {
	Owner          byte           `yaml:"owner"`
	Slots          []scenarioSlot `yaml:"slots"`
	NativeBalances map[int]uint64 `yaml:"native_balances"` // keyed by slot index
}

func scratchAddr(b byte) core.Address {
	var a core.Address
	a[31] = b
	return a
}

func roleByName(name string) (core.Role, error) {
	switch name {
	case "System":
		return core.RoleSystem, nil
	case "Token":
		return core.RoleToken, nil
	case "Data":
		return core.RoleData, nil
	case "Program":
		return core.RoleProgram, nil
	default:
		return 0, fmt.Errorf("unknown role %q", name)
	}
}

func loadScenario(path string) (*scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &s, nil
}

func simulateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "simulate", Short: "Dry-run a batch against a scratch in-memory session"}

	var payerBalance uint64
	var programHex string
	var scenarioPath string

	batch := &cobra.Command{
		Use:   "batch",
		Short: "Execute a hex-encoded operation program against a scratch session",
		RunE: func(cmd *cobra.Command, args []string) error {
			wire, err := hex.DecodeString(programHex)
			if err != nil {
				return utils.Wrapf(err, "decode hex program %q", programHex)
			}
			limits := config.AppConfig.Kernel
			program, err := core.DecodeProgram(wire, limits.MaxOps)
			if err != nil {
				return err
			}

			sessions := core.NewSessionService()
			store := core.NewStore()
			allowlist := core.NewCPIAllowlist()

			var owner core.Address
			var sess *core.Session
			var slotAddrs map[int]core.Address

			if scenarioPath != "" {
				sc, err := loadScenario(scenarioPath)
				if err != nil {
					return err
				}
				owner = scratchAddr(sc.Owner)
				sess, err = sessions.CreateSession(owner, []byte("kernelctl-simulate"), 1, limits.ALTCapacity, nil, limits.GuardStepBudget, allowlist)
				if err != nil {
					return err
				}
				slotAddrs = make(map[int]core.Address, len(sc.Slots))
				for _, slot := range sc.Slots {
					role, err := roleByName(slot.Role)
					if err != nil {
						return err
					}
					addr := scratchAddr(slot.Address)
					if err := sess.ALT.Register(owner, slot.Index, addr, role, slot.Label); err != nil {
						return err
					}
					slotAddrs[slot.Index] = addr
				}
				for idx, bal := range sc.NativeBalances {
					addr, ok := slotAddrs[idx]
					if !ok {
						return fmt.Errorf("native_balances references unregistered slot %d", idx)
					}
					store.CreditNative(addr, bal)
				}
			} else {
				payer, recipient := scratchAddr(10), scratchAddr(11)
				sess, err = sessions.CreateSession(owner, []byte("kernelctl-simulate"), 1, limits.ALTCapacity, nil, limits.GuardStepBudget, allowlist)
				if err != nil {
					return err
				}
				if err := sess.ALT.Register(owner, 0, payer, core.RoleSystem, "payer"); err != nil {
					return err
				}
				if err := sess.ALT.Register(owner, 1, recipient, core.RoleSystem, "recipient"); err != nil {
					return err
				}
				store.CreditNative(payer, payerBalance)
				slotAddrs = map[int]core.Address{0: payer, 1: recipient}
			}

			engine := core.NewEngine(sessions, store, core.NewStaticFunctionRegistry(), nil, core.EngineLimits{
				ALTCapacity: limits.ALTCapacity, MaxOps: limits.MaxOps,
				GuardStackDepth: limits.GuardStackDepth, GuardStepBudget: limits.GuardStepBudget,
			})

			result, err := engine.ExecuteBatch(core.BatchRequest{Session: sess.Address, Program: program})
			out := cmd.OutOrStdout()
			if err != nil {
				fmt.Fprintf(out, "batch failed: %v\n", err)
				return nil
			}
			fmt.Fprintf(out, "batch succeeded, sequence=%d\n", result.SequenceAfter)
			for idx, addr := range slotAddrs {
				fmt.Fprintf(out, "slot %d balance=%d\n", idx, store.NativeBalance(addr))
			}
			return nil
		},
	}
	batch.Flags().Uint64Var(&payerBalance, "payer-balance", 1_000_000, "starting native balance credited to the scratch payer slot (ignored if --scenario is set)")
	batch.Flags().StringVar(&programHex, "program", "", "hex-encoded operation program")
	batch.Flags().StringVar(&scenarioPath, "scenario", "", "YAML file describing the ALT slot layout and starting balances")
	cmd.AddCommand(batch)

	return cmd
}
