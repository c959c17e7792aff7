// Guard ▸ Opcode Catalogue
// ------------------------
//
// Carries the per-opcode compute-cost table for the small, fixed guard
// instruction set (§4.4), checked for collisions and completeness against
// the opcode catalogue at start-up, plus MaxProgramCost for bounding a
// compiled guard program's worst-case cost from its length alone (§4.4
// design rationale).
package core

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// OpcodeCost maps each opcode to the compute units it charges the guard VM
// per execution. Invoke dominates the cost because it issues a synchronous
// CPI (§9 open question — Invoke/other weighting is implementation-defined;
// decision recorded in DESIGN.md).
var OpcodeCost = map[Opcode]int{
	OpCheckOwner:      1,
	OpCheckExpiry:     1,
	OpCheckUsageLimit: 1,
	OpCheckSignature:  1,
	OpInvoke:          200,
	OpNot:             1,
	OpAnd:             1,
	OpOr:              1,
	OpJumpIfFalse:     1,
	OpJump:            1,
	OpTerminate:       1,
	OpAbort:           1,
}

func init() {
	seenOps := make(map[Opcode]struct{}, len(catalogue))
	seenNames := make(map[string]struct{}, len(catalogue))
	for _, info := range catalogue {
		if _, ok := seenOps[info.Op]; ok {
			panic(fmt.Sprintf("guard opcode collision: 0x%02X", info.Op))
		}
		seenOps[info.Op] = struct{}{}
		if _, ok := seenNames[info.Name]; ok {
			panic(fmt.Sprintf("guard opcode name collision: %s", info.Name))
		}
		seenNames[info.Name] = struct{}{}
		if _, ok := OpcodeCost[info.Op]; !ok {
			panic(fmt.Sprintf("guard opcode %s has no cost entry", info.Name))
		}
	}
	logrus.WithField("count", len(catalogue)).Debug("guard opcode catalogue verified")
}

// MaxProgramCost returns the worst-case compute cost of a compiled guard
// program of the given opcode count, assuming every opcode were the most
// expensive one (Invoke). `kernelctl guard cost` prints it; Decode does not
// consult it, so a blob is not rejected at load time on cost grounds.
func MaxProgramCost(opcodeCount int) int {
	return opcodeCount * OpcodeCost[OpInvoke]
}
