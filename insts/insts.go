// Package insts provides AArch64 instruction definitions and decoding.
//
// This package turns raw 32-bit instruction words into structured
// Instruction values that the execution engine consumes. The engine never
// parses encodings itself; it reads decoded fields through the accessor
// surface on Instruction and, for the rare case where a handler needs an
// undecoded field, through the Bit/Bits/Mask extractors on the raw word.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x91002820) // ADD X0, X1, #10
//	fmt.Printf("Op: %v, Rd: %d, Rn: %d, Imm: %d\n", inst.Op, inst.GetRd(), inst.GetRn(), inst.Imm)
package insts
