package emu

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/a64sim/insts"
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true if the program terminated (via exit syscall or by
	// returning to the end-of-simulation address).
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64

	// Err is set if an error occurred during execution.
	Err error
}

// handlerFunc executes one decoded instruction. Handlers that branch call
// setPC; for all others the emulator advances PC past the instruction.
type handlerFunc func(inst *insts.Instruction)

// Emulator executes ARM64 instructions functionally.
type Emulator struct {
	regFile        *RegFile
	vecFile        *VecFile
	memory         *Memory
	decoder        *insts.Decoder
	syscallHandler SyscallHandler

	// Execution units
	alu *ALU
	fpu *FPU

	// Exclusive access monitors. The local monitor belongs to this
	// emulator; the global monitor may be shared between emulators.
	localMonitor  LocalMonitor
	globalMonitor *GlobalMonitor

	// Dispatch table, indexed by instruction format.
	handlers map[insts.Format]handlerFunc

	// Branch target identification state.
	btype        BType
	nextBType    BType
	guardedPages bool

	// Pointer authentication keys.
	keyIA, keyIB, keyDA, keyDB, keyGA PACKey

	// tpidr is the TPIDR_EL0 thread pointer register.
	tpidr uint64

	// Host call state (printf, runtime calls, CPU feature tracking).
	runtimeCalls []RuntimeCall
	cpuFeatures  uint64
	featureStack []uint64
	traceParams  uint32
	traceHook    *TraceHook

	// I/O
	stdout io.Writer
	stderr io.Writer

	hooks []Hook

	// Execution state
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
	pcModified       bool
	exited           bool
	exitCode         int64
	stepErr          error
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithStdout sets a custom stdout writer.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stdout = w
	}
}

// WithStderr sets a custom stderr writer.
func WithStderr(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stderr = w
	}
}

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler SyscallHandler) EmulatorOption {
	return func(e *Emulator) {
		e.syscallHandler = handler
	}
}

// WithStackPointer sets the initial stack pointer value.
func WithStackPointer(sp uint64) EmulatorOption {
	return func(e *Emulator) {
		e.regFile.SP = sp
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithVectorLength sets the vector length in bits. The length must be a
// multiple of 128 between 128 and 2048.
func WithVectorLength(vlBits int) EmulatorOption {
	return func(e *Emulator) {
		e.vecFile.SetVectorLengthInBits(vlBits)
	}
}

// WithMemory shares an existing memory, so several emulators can model
// threads of one process.
func WithMemory(m *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = m
	}
}

// WithGlobalMonitor shares a global exclusive monitor between emulators.
func WithGlobalMonitor(g *GlobalMonitor) EmulatorOption {
	return func(e *Emulator) {
		e.globalMonitor = g
	}
}

// WithGuardedPages marks all code pages as guarded, enabling the branch
// target identification checks.
func WithGuardedPages(guarded bool) EmulatorOption {
	return func(e *Emulator) {
		e.guardedPages = guarded
	}
}

// NewEmulator creates a new ARM64 emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	regFile := NewRegFile()

	e := &Emulator{
		regFile: regFile,
		vecFile: NewVecFile(MinVectorLengthBits),
		memory:  NewMemory(),
		decoder: insts.NewDecoder(),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		keyIA:   KeyIA,
		keyIB:   KeyIB,
		keyDA:   KeyDA,
		keyDB:   KeyDB,
		keyGA:   KeyGA,
	}

	// Apply options first (may replace memory or I/O writers)
	for _, opt := range opts {
		opt(e)
	}

	e.alu = NewALU(regFile)
	e.fpu = NewFPU(regFile)

	if e.globalMonitor == nil {
		e.globalMonitor = NewGlobalMonitor()
	}
	if e.syscallHandler == nil {
		e.syscallHandler = NewDefaultSyscallHandler(
			regFile, e.memory, e.stdout, e.stderr)
	}

	e.buildHandlerTable()

	return e
}

// buildHandlerTable wires each instruction format to its handler.
func (e *Emulator) buildHandlerTable() {
	e.handlers = map[insts.Format]handlerFunc{
		insts.FormatPCRel:              e.executePCRel,
		insts.FormatDPImm:              e.executeAddSubImm,
		insts.FormatLogicalImm:         e.executeLogicalImm,
		insts.FormatMoveWide:           e.executeMoveWide,
		insts.FormatBitfield:           e.executeBitfield,
		insts.FormatExtract:            e.executeExtract,
		insts.FormatDPReg:              e.executeDPReg,
		insts.FormatAddSubExt:          e.executeAddSubExtended,
		insts.FormatAddSubCarry:        e.executeAddSubCarry,
		insts.FormatCondCmp:            e.executeCondCmp,
		insts.FormatCondSelect:         e.executeCondSelect,
		insts.FormatDataProc1Src:       e.executeDataProc1Src,
		insts.FormatDataProc2Src:       e.executeDataProc2Src,
		insts.FormatDataProc3Src:       e.executeDataProc3Src,
		insts.FormatBranch:             e.executeBranch,
		insts.FormatBranchCond:         e.executeBranchCond,
		insts.FormatBranchReg:          e.executeBranchReg,
		insts.FormatTestBranch:         e.executeTestBranch,
		insts.FormatCompareBranch:      e.executeCompareBranch,
		insts.FormatSystem:             e.executeSystem,
		insts.FormatException:          e.executeException,
		insts.FormatLoadStore:          e.executeLoadStore,
		insts.FormatLoadStoreLit:       e.executeLoadStoreLit,
		insts.FormatLoadStorePair:      e.executeLoadStorePair,
		insts.FormatLoadStoreExclusive: e.executeLoadStoreExclusive,
		insts.FormatAtomicMemory:       e.executeAtomicMemory,
		insts.FormatFPCompare:          e.executeFPCompare,
		insts.FormatFPCondSelect:       e.executeFPCondSelect,
		insts.FormatSIMDThreeSame:      e.executeSIMDThreeSame,
		insts.FormatSIMDTwoMisc:        e.executeSIMDTwoMisc,
		insts.FormatSIMDAcrossLanes:    e.executeSIMDAcrossLanes,
		insts.FormatSIMDCopy:           e.executeSIMDCopy,
		insts.FormatSIMDModImm:         e.executeSIMDModImm,
		insts.FormatSIMDShiftImm:       e.executeSIMDShiftImm,
		insts.FormatSIMDByElement:      e.executeSIMDByElement,
		insts.FormatSVE:                e.executeSVE,
	}
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// VecFile returns the emulator's vector register file.
func (e *Emulator) VecFile() *VecFile {
	return e.vecFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// LocalMonitor returns the emulator's local exclusive monitor.
func (e *Emulator) LocalMonitor() *LocalMonitor {
	return &e.localMonitor
}

// GlobalMonitor returns the global exclusive monitor this emulator
// participates in.
func (e *Emulator) GlobalMonitor() *GlobalMonitor {
	return e.globalMonitor
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// AddHook registers an execution hook.
func (e *Emulator) AddHook(h Hook) {
	e.hooks = append(e.hooks, h)
}

// LoadProgram loads a program image into memory and sets the entry point.
// The link register is pointed at the end-of-simulation address so a
// return from the outermost frame terminates Run.
func (e *Emulator) LoadProgram(entry uint64, program []byte) {
	e.memory.LoadProgram(entry, program)
	e.SetEntry(entry)
}

// SetEntry points execution at an entry address already present in
// memory, for callers that populate memory themselves. The link register
// is pointed at the end-of-simulation address.
func (e *Emulator) SetEntry(entry uint64) {
	e.regFile.PC = entry
	e.regFile.WriteReg(30, endOfSimAddress)
}

// endOfSimAddress is the PC value that terminates Run. LoadProgram places
// it in the link register.
const endOfSimAddress = 0

// setPC redirects execution to target. The emulator then skips the usual
// PC increment for this step.
func (e *Emulator) setPC(target uint64) {
	e.regFile.PC = target
	e.pcModified = true
}

// fatalf aborts the simulation with a diagnostic. It is used for contract
// violations: unimplemented behavior, failed pointer authentication,
// branch target violations, and misaligned accesses the architecture
// traps on.
func (e *Emulator) fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	panic(fmt.Sprintf("emu: %s (PC=0x%X)", msg, e.regFile.PC))
}

// Step executes a single instruction.
// Returns a StepResult indicating whether execution should continue.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{
			Err: fmt.Errorf("max instructions reached"),
		}
	}

	// 1. Fetch: Read 4 bytes at PC
	word := e.memory.Read32(e.regFile.PC)

	// 2. Decode
	inst := e.decoder.Decode(word)

	// 3. Execute
	result := e.execute(inst)

	e.instructionCount++

	return result
}

// Run executes instructions until the program exits, returns to the
// end-of-simulation address, or an error occurs. Returns the exit code
// (-1 on error).
func (e *Emulator) Run() int64 {
	for {
		if e.regFile.PC == endOfSimAddress {
			return int64(e.regFile.ReadReg(0))
		}
		result := e.Step()
		if result.Exited {
			return result.ExitCode
		}
		if result.Err != nil {
			_, _ = fmt.Fprintf(e.stderr, "Emulation error: %v\n", result.Err)
			return -1
		}
	}
}

// checkBranchTarget enforces branch target identification: after an
// indirect branch into guarded code, only a landing pad accepting the
// branch type may execute. PACIASP and PACIBSP act as BTI c.
func (e *Emulator) checkBranchTarget(inst *insts.Instruction) {
	switch inst.Op {
	case insts.OpBTI:
		if !btiAccepts(inst.Imm2, e.btype) {
			e.fatalf("branch target exception: BTI kind %d does not accept branch type %d",
				inst.Imm2, e.btype)
		}
	case insts.OpPACIASP, insts.OpPACIBSP:
		if !btiAccepts(btiC, e.btype) {
			e.fatalf("branch target exception at PACIxSP: branch type %d", e.btype)
		}
	default:
		e.fatalf("branch target exception: instruction 0x%08X with branch type %d",
			inst.Raw, e.btype)
	}
}

// execute dispatches a decoded instruction through the handler table.
func (e *Emulator) execute(inst *insts.Instruction) StepResult {
	if inst.Op == insts.OpUnknown || inst.Format == insts.FormatUnknown {
		return StepResult{
			Err: fmt.Errorf("unknown instruction 0x%08X at PC=0x%X",
				inst.Raw, e.regFile.PC),
		}
	}

	handler, ok := e.handlers[inst.Format]
	if !ok {
		return StepResult{
			Err: fmt.Errorf("unimplemented format %d at PC=0x%X",
				inst.Format, e.regFile.PC),
		}
	}

	e.pcModified = false
	e.exited = false
	e.stepErr = nil

	if e.guardedPages && e.btype != DefaultBType {
		e.checkBranchTarget(inst)
	}

	for _, h := range e.hooks {
		h.BeforeExecute(e, inst)
	}

	handler(inst)

	// The branch-type state advances every instruction: the value the
	// handler staged (if any) becomes visible to the next instruction.
	e.btype = e.nextBType
	e.nextBType = DefaultBType

	if !e.pcModified {
		e.regFile.PC += 4
	}

	for _, h := range e.hooks {
		h.AfterExecute(e, inst)
	}

	return StepResult{
		Exited:   e.exited,
		ExitCode: e.exitCode,
		Err:      e.stepErr,
	}
}
