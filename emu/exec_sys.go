package emu

import (
	"fmt"

	"github.com/sarchlab/a64sim/insts"
)

// System register identifiers, encoded as op0:op1:CRn:CRm:op2 the way the
// decoder captures them.
const (
	sysRegNZCV     = 0xDA10
	sysRegFPCR     = 0xDA20
	sysRegTPIDREL0 = 0xDE82
)

// executeSystem executes the system space: hints (including BTI and the
// pointer-authentication hints), barriers, CLREX, and MRS/MSR.
func (e *Emulator) executeSystem(inst *insts.Instruction) {
	switch inst.Op {
	case insts.OpNOP, insts.OpHint:
		// Nothing to do.
	case insts.OpBTI:
		// Landing pad; the dispatcher validates the branch type.
	case insts.OpPACIASP:
		lr := e.regFile.ReadReg(30)
		e.regFile.WriteReg(30, AddPAC(lr, e.regFile.SP, e.keyIA))
	case insts.OpPACIBSP:
		lr := e.regFile.ReadReg(30)
		e.regFile.WriteReg(30, AddPAC(lr, e.regFile.SP, e.keyIB))
	case insts.OpAUTIASP:
		lr := e.regFile.ReadReg(30)
		e.regFile.WriteReg(30, AuthPAC(lr, e.regFile.SP, e.keyIA))
	case insts.OpAUTIBSP:
		lr := e.regFile.ReadReg(30)
		e.regFile.WriteReg(30, AuthPAC(lr, e.regFile.SP, e.keyIB))
	case insts.OpPACIAZ:
		e.regFile.WriteReg(30, AddPAC(e.regFile.ReadReg(30), 0, e.keyIA))
	case insts.OpPACIBZ:
		e.regFile.WriteReg(30, AddPAC(e.regFile.ReadReg(30), 0, e.keyIB))
	case insts.OpAUTIAZ:
		e.regFile.WriteReg(30, AuthPAC(e.regFile.ReadReg(30), 0, e.keyIA))
	case insts.OpAUTIBZ:
		e.regFile.WriteReg(30, AuthPAC(e.regFile.ReadReg(30), 0, e.keyIB))
	case insts.OpPACIA1716:
		x17 := e.regFile.ReadReg(17)
		e.regFile.WriteReg(17, AddPAC(x17, e.regFile.ReadReg(16), e.keyIA))
	case insts.OpPACIB1716:
		x17 := e.regFile.ReadReg(17)
		e.regFile.WriteReg(17, AddPAC(x17, e.regFile.ReadReg(16), e.keyIB))
	case insts.OpAUTIA1716:
		x17 := e.regFile.ReadReg(17)
		e.regFile.WriteReg(17, AuthPAC(x17, e.regFile.ReadReg(16), e.keyIA))
	case insts.OpAUTIB1716:
		x17 := e.regFile.ReadReg(17)
		e.regFile.WriteReg(17, AuthPAC(x17, e.regFile.ReadReg(16), e.keyIB))
	case insts.OpXPACLRI:
		e.regFile.WriteReg(30, StripPAC(e.regFile.ReadReg(30)))
	case insts.OpCLREX:
		e.localMonitor.Clear()
		e.globalMonitor.Clear(&e.localMonitor)
	case insts.OpDMB, insts.OpDSB:
		e.memory.Fence()
	case insts.OpISB:
		// Context synchronization is implicit in stepped execution.
	case insts.OpMRS:
		e.executeMRS(inst)
	case insts.OpMSR:
		e.executeMSR(inst)
	}
}

// executeMRS reads a system register.
func (e *Emulator) executeMRS(inst *insts.Instruction) {
	switch inst.Imm {
	case sysRegNZCV:
		e.regFile.WriteReg(inst.Rd, e.regFile.NZCV())
	case sysRegFPCR:
		e.regFile.WriteReg(inst.Rd, e.regFile.FPCR())
	case sysRegTPIDREL0:
		e.regFile.WriteReg(inst.Rd, e.tpidr)
	default:
		e.fatalf("unimplemented system register read 0x%X", inst.Imm)
	}
}

// executeMSR writes a system register.
func (e *Emulator) executeMSR(inst *insts.Instruction) {
	value := e.regFile.ReadReg(inst.Rd)
	switch inst.Imm {
	case sysRegNZCV:
		e.regFile.SetNZCV(value)
	case sysRegFPCR:
		e.regFile.SetFPCR(value)
	case sysRegTPIDREL0:
		e.tpidr = value
	default:
		e.fatalf("unimplemented system register write 0x%X", inst.Imm)
	}
}

// executeException executes SVC, BRK, and HLT. HLT doubles as the host
// call interface for programs built against the simulator runtime.
func (e *Emulator) executeException(inst *insts.Instruction) {
	switch inst.Op {
	case insts.OpSVC:
		result := e.syscallHandler.Handle()
		e.exited = result.Exited
		e.exitCode = result.ExitCode
	case insts.OpBRK:
		e.exited = true
		e.exitCode = -1
		e.stepErr = fmt.Errorf("BRK trap #0x%X at PC=0x%X",
			inst.Imm, e.regFile.PC)
	case insts.OpHLT:
		e.executeHostCall(inst)
	}
}
