// Package main provides the entry point for a64sim, a functional ARM64
// instruction simulator.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xyproto/env/v2"

	"github.com/sarchlab/a64sim/emu"
	"github.com/sarchlab/a64sim/loader"
)

var (
	verbose = flag.Bool("v", env.Bool("A64SIM_VERBOSE"), "Verbose output")
	vlBits  = flag.Int("vl", env.Int("A64SIM_VL", emu.MinVectorLengthBits),
		"Vector length in bits (multiple of 128, up to 2048)")
	guarded = flag.Bool("bti", env.Bool("A64SIM_BTI"),
		"Treat code pages as guarded for branch target identification")
	maxInsts = flag.Uint64("max", 0,
		"Maximum number of instructions to execute (0 = no limit)")
	trace = flag.Bool("trace", env.Bool("A64SIM_TRACE"),
		"Trace executed instructions to stderr")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: a64sim [options] <program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Loaded: %s\n", programPath)
		fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)
		fmt.Printf("Segments: %d\n", len(prog.Segments))
	}

	os.Exit(int(run(prog, programPath)))
}

// run executes the loaded program and returns its exit code.
func run(prog *loader.Program, programPath string) int64 {
	memory := emu.NewMemory()
	for _, seg := range prog.Segments {
		memory.WriteBytes(seg.VirtAddr, seg.Image())
	}

	emulator := emu.NewEmulator(
		emu.WithMemory(memory),
		emu.WithStackPointer(prog.InitialSP),
		emu.WithVectorLength(*vlBits),
		emu.WithGuardedPages(*guarded),
		emu.WithMaxInstructions(*maxInsts),
	)
	emulator.SetEntry(prog.EntryPoint)

	if *trace {
		emulator.AddHook(emu.NewTraceHook(os.Stderr))
	}

	exitCode := emulator.Run()

	if *verbose {
		fmt.Printf("\nProgram: %s\n", programPath)
		fmt.Printf("Exit code: %d\n", exitCode)
		fmt.Printf("Instructions executed: %d\n", emulator.InstructionCount())
	}

	return exitCode
}
