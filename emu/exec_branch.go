package emu

import "github.com/sarchlab/a64sim/insts"

// executeBranch executes B and BL.
func (e *Emulator) executeBranch(inst *insts.Instruction) {
	target := uint64(int64(e.regFile.PC) + inst.BranchOffset)
	if inst.Op == insts.OpBL {
		e.regFile.WriteReg(30, e.regFile.PC+4)
	}
	e.setPC(target)
}

// executeBranchCond executes B.cond.
func (e *Emulator) executeBranchCond(inst *insts.Instruction) {
	if e.alu.CheckCondition(inst.Cond) {
		e.setPC(uint64(int64(e.regFile.PC) + inst.BranchOffset))
	}
}

// executeBranchReg executes the indirect branches: BR, BLR, RET, and their
// pointer-authenticated variants. Indirect branches stage the branch-type
// state the next instruction's BTI check observes.
func (e *Emulator) executeBranchReg(inst *insts.Instruction) {
	target := e.regFile.ReadReg(inst.Rn)

	switch inst.Op {
	case insts.OpBRAA, insts.OpBRAB, insts.OpBLRAA, insts.OpBLRAB:
		target = e.authBranchTarget(target, e.regFile.Read(inst.Rm, Reg31IsSP), inst.Op)
	case insts.OpBRAAZ, insts.OpBRABZ, insts.OpBLRAAZ, insts.OpBLRABZ:
		target = e.authBranchTarget(target, 0, inst.Op)
	case insts.OpRETAA, insts.OpRETAB:
		target = e.authBranchTarget(target, e.regFile.SP, inst.Op)
	}

	switch inst.Op {
	case insts.OpBLR, insts.OpBLRAA, insts.OpBLRAB,
		insts.OpBLRAAZ, insts.OpBLRABZ:
		e.regFile.WriteReg(30, e.regFile.PC+4)
		e.nextBType = BranchAndLink
	case insts.OpBR, insts.OpBRAA, insts.OpBRAB,
		insts.OpBRAAZ, insts.OpBRABZ:
		e.nextBType = e.indirectBranchBType(inst.Rn)
	}

	e.setPC(target)
}

// authBranchTarget authenticates a branch target and aborts on failure.
func (e *Emulator) authBranchTarget(ptr, modifier uint64, op insts.Op) uint64 {
	key := e.keyIA
	switch op {
	case insts.OpBRAB, insts.OpBLRAB, insts.OpBRABZ, insts.OpBLRABZ,
		insts.OpRETAB:
		key = e.keyIB
	}
	target := AuthPAC(ptr, modifier, key)
	if PACFailed(target) {
		e.fatalf("pointer authentication failed for branch target 0x%X", ptr)
	}
	return target
}

// indirectBranchBType returns the branch type a BR-family branch stages.
// Branches through the intra-procedure-call registers, and branches from
// unguarded pages, take the weaker type.
func (e *Emulator) indirectBranchBType(rn uint8) BType {
	if rn == 16 || rn == 17 || !e.guardedPages {
		return BranchFromUnguardedOrToIP
	}
	return BranchFromGuardedNotToIP
}

// executeTestBranch executes TBZ and TBNZ.
func (e *Emulator) executeTestBranch(inst *insts.Instruction) {
	bit := (e.regFile.ReadReg(inst.Rd) >> inst.Imm) & 1

	var take bool
	if inst.Op == insts.OpTBZ {
		take = bit == 0
	} else {
		take = bit != 0
	}

	if take {
		e.setPC(uint64(int64(e.regFile.PC) + inst.BranchOffset))
	}
}

// executeCompareBranch executes CBZ and CBNZ.
func (e *Emulator) executeCompareBranch(inst *insts.Instruction) {
	value := e.regFile.ReadReg(inst.Rd)
	if !inst.Is64Bit {
		value = uint64(uint32(value))
	}

	var take bool
	if inst.Op == insts.OpCBZ {
		take = value == 0
	} else {
		take = value != 0
	}

	if take {
		e.setPC(uint64(int64(e.regFile.PC) + inst.BranchOffset))
	}
}
