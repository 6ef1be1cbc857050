package emu

import (
	"fmt"
	"io"

	"github.com/sarchlab/a64sim/insts"
)

// Hook observes instruction execution. Hooks run on every step: once
// before the handler with the decoded instruction, and once after with
// the architectural state updated.
type Hook interface {
	BeforeExecute(e *Emulator, inst *insts.Instruction)
	AfterExecute(e *Emulator, inst *insts.Instruction)
}

// TraceHook writes a one-line trace of every executed instruction.
type TraceHook struct {
	w io.Writer
}

// NewTraceHook creates a trace hook writing to w.
func NewTraceHook(w io.Writer) *TraceHook {
	return &TraceHook{w: w}
}

// BeforeExecute logs the instruction about to run.
func (h *TraceHook) BeforeExecute(e *Emulator, inst *insts.Instruction) {
	fmt.Fprintf(h.w, "0x%016X: 0x%08X op=%d\n",
		e.regFile.PC, inst.Raw, inst.Op)
}

// AfterExecute is a no-op for the trace hook.
func (h *TraceHook) AfterExecute(e *Emulator, inst *insts.Instruction) {}
