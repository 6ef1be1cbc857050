package emu

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/sarchlab/a64sim/insts"
)

// Host call opcodes, carried in the HLT immediate. Programs built against
// the simulator runtime use these to reach host facilities.
const (
	hostPrintfOpcode        = 0xdeb1
	hostTraceOpcode         = 0xdeb2
	hostLogOpcode           = 0xdeb3
	hostRuntimeCallOpcode   = 0xdeb4
	hostSetCPUFeatures      = 0xdeb5
	hostEnableCPUFeatures   = 0xdeb6
	hostDisableCPUFeatures  = 0xdeb7
	hostSaveCPUFeatures     = 0xdeb8
	hostRestoreCPUFeatures  = 0xdeb9
)

// Printf argument pattern codes, two bits per argument.
const (
	printfArgW = 1
	printfArgX = 2
	printfArgD = 3

	printfMaxArgCount = 4
)

// RuntimeCall is a host function a simulated program can invoke through
// the runtime-call trap. The index the trap carries selects a call
// registered with RegisterRuntimeCall.
type RuntimeCall func(e *Emulator)

// RegisterRuntimeCall registers a host function and returns the index a
// simulated program passes in the runtime-call trap.
func (e *Emulator) RegisterRuntimeCall(call RuntimeCall) uint32 {
	e.runtimeCalls = append(e.runtimeCalls, call)
	return uint32(len(e.runtimeCalls) - 1)
}

// CPUFeatures returns the feature set the simulated program declared.
func (e *Emulator) CPUFeatures() uint64 {
	return e.cpuFeatures
}

// executeHostCall dispatches a HLT-based host call. Each call knows how
// many words follow the HLT and advances PC past them.
func (e *Emulator) executeHostCall(inst *insts.Instruction) {
	pc := e.regFile.PC

	switch inst.Imm {
	case hostPrintfOpcode:
		argCount := e.memory.Read32(pc + 4)
		argPattern := e.memory.Read32(pc + 8)
		e.doPrintf(argCount, argPattern)
		e.setPC(pc + 12)
	case hostTraceOpcode:
		params := e.memory.Read32(pc + 4)
		command := e.memory.Read32(pc + 8)
		e.doTrace(params, command)
		e.setPC(pc + 12)
	case hostLogOpcode:
		e.doLog()
		e.setPC(pc + 8)
	case hostRuntimeCallOpcode:
		index := e.memory.Read32(pc + 4)
		if int(index) >= len(e.runtimeCalls) {
			e.fatalf("runtime call index %d not registered", index)
		}
		e.runtimeCalls[index](e)
		e.setPC(pc + 8)
	case hostSetCPUFeatures:
		e.cpuFeatures = uint64(e.memory.Read32(pc + 4))
		e.setPC(pc + 8)
	case hostEnableCPUFeatures:
		e.cpuFeatures |= uint64(e.memory.Read32(pc + 4))
		e.setPC(pc + 8)
	case hostDisableCPUFeatures:
		e.cpuFeatures &^= uint64(e.memory.Read32(pc + 4))
		e.setPC(pc + 8)
	case hostSaveCPUFeatures:
		e.featureStack = append(e.featureStack, e.cpuFeatures)
	case hostRestoreCPUFeatures:
		if len(e.featureStack) == 0 {
			e.fatalf("CPU feature restore without matching save")
		}
		e.cpuFeatures = e.featureStack[len(e.featureStack)-1]
		e.featureStack = e.featureStack[:len(e.featureStack)-1]
	default:
		e.fatalf("unexpected HLT #0x%X", inst.Imm)
	}
}

// readCString reads a NUL-terminated string from simulated memory.
func (e *Emulator) readCString(addr uint64) string {
	var buf bytes.Buffer
	for {
		b := e.memory.Read8(addr)
		if b == 0 {
			return buf.String()
		}
		buf.WriteByte(b)
		addr++
	}
}

// doPrintf implements the printf trap. The format string pointer is in
// x0; integer arguments follow in x1 upward and double arguments in d0
// upward, in the order the two-bit pattern list gives.
func (e *Emulator) doPrintf(argCount, argPattern uint32) {
	if argCount > printfMaxArgCount {
		e.fatalf("printf trap with %d arguments (max %d)",
			argCount, printfMaxArgCount)
	}

	format := e.readCString(e.regFile.ReadReg(0))

	// Gather arguments by class, in pattern order.
	var args []interface{}
	nextX := uint8(1)
	nextD := uint8(0)
	for i := uint32(0); i < argCount; i++ {
		pattern := (argPattern >> (2 * i)) & 0x3
		switch pattern {
		case printfArgW:
			args = append(args, uint32(e.regFile.ReadReg(nextX)))
			nextX++
		case printfArgX:
			args = append(args, e.regFile.ReadReg(nextX))
			nextX++
		case printfArgD:
			args = append(args, math.Float64frombits(e.vecFile.ReadScalar(nextD)))
			nextD++
		default:
			e.fatalf("printf trap with malformed argument pattern 0x%X",
				argPattern)
		}
	}

	n := e.formatPrintf(format, args)
	e.regFile.WriteReg(0, uint64(n))
}

// formatPrintf renders a C-style format string with the gathered
// arguments and returns the number of bytes written.
func (e *Emulator) formatPrintf(format string, args []interface{}) int {
	var out strings.Builder
	argIndex := 0

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			out.WriteByte(c)
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			out.WriteByte('%')
			i++
			continue
		}

		// Scan the conversion: flags, width, length modifiers, verb.
		j := i + 1
		for j < len(format) && strings.ContainsRune("-+ #0123456789.lhzjt", rune(format[j])) {
			j++
		}
		if j >= len(format) || argIndex >= len(args) {
			out.WriteString(format[i:])
			break
		}
		verb := format[j]
		spec := "%" + stripLengthModifiers(format[i+1:j]) + string(verb)
		arg := args[argIndex]
		argIndex++

		switch verb {
		case 'd', 'i':
			spec = spec[:len(spec)-1] + "d"
			fmt.Fprintf(&out, spec, toSigned(arg))
		case 'u':
			spec = spec[:len(spec)-1] + "d"
			fmt.Fprintf(&out, spec, arg)
		case 'x', 'X', 'o', 'b':
			fmt.Fprintf(&out, spec, arg)
		case 'c':
			fmt.Fprintf(&out, spec, toSigned(arg))
		case 'f', 'e', 'E', 'g', 'G':
			fmt.Fprintf(&out, spec, arg)
		case 's':
			ptr, _ := arg.(uint64)
			fmt.Fprintf(&out, spec, e.readCString(ptr))
		case 'p':
			fmt.Fprintf(&out, "0x%x", arg)
		default:
			fmt.Fprintf(&out, "%v", arg)
		}
		i = j
	}

	n, _ := fmt.Fprint(e.stdout, out.String())
	return n
}

func stripLengthModifiers(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case 'l', 'h', 'z', 'j', 't':
			return -1
		}
		return r
	}, s)
}

func toSigned(arg interface{}) interface{} {
	switch v := arg.(type) {
	case uint32:
		return int32(v)
	case uint64:
		return int64(v)
	}
	return arg
}

// doTrace adjusts instruction tracing. A non-zero command enables the
// trace hook; zero disables it.
func (e *Emulator) doTrace(params, command uint32) {
	e.traceParams = params
	if command != 0 && e.traceHook == nil {
		e.traceHook = NewTraceHook(e.stderr)
		e.AddHook(e.traceHook)
		return
	}
	if command == 0 && e.traceHook != nil {
		for i, h := range e.hooks {
			if h == Hook(e.traceHook) {
				e.hooks = append(e.hooks[:i], e.hooks[i+1:]...)
				break
			}
		}
		e.traceHook = nil
	}
}

// doLog writes a one-shot dump of the general-purpose registers.
func (e *Emulator) doLog() {
	fmt.Fprintf(e.stderr, "# PC = 0x%016X  SP = 0x%016X\n",
		e.regFile.PC, e.regFile.SP)
	for i := uint8(0); i < 31; i++ {
		fmt.Fprintf(e.stderr, "# x%-2d = 0x%016X\n", i, e.regFile.ReadReg(i))
	}
}
