package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64sim/emu"
)

func encodeBR(rn uint8) uint32 {
	return 0xD61F0000 | uint32(rn)<<5
}

func encodeBLR(rn uint8) uint32 {
	return 0xD63F0000 | uint32(rn)<<5
}

func encodeBTI(kind uint8) uint32 {
	return 0xD503241F | uint32(kind)<<6
}

func encodePACIASP() uint32 {
	return 0xD503233F
}

const (
	btiKindC = 1
	btiKindJ = 2
)

var _ = Describe("Branch target identification", func() {
	var e *emu.Emulator

	BeforeEach(func() {
		e = emu.NewEmulator(emu.WithGuardedPages(true))
	})

	// The first word branches through the prepared register to the second
	// word, which is the landing pad under test.
	branchTo := func(branch, target uint32) {
		e.RegFile().WriteReg(1, 0x1004)
		e.RegFile().WriteReg(16, 0x1004)
		e.LoadProgram(0x1000, wordsToProgram(branch, target))
		Expect(e.Step().Err).To(BeNil())
	}

	It("should accept BTI c after a branch with link", func() {
		branchTo(encodeBLR(1), encodeBTI(btiKindC))
		Expect(e.Step().Err).To(BeNil())
	})

	It("should reject BTI j after a branch with link", func() {
		branchTo(encodeBLR(1), encodeBTI(btiKindJ))
		Expect(func() { e.Step() }).To(Panic())
	})

	It("should reject a plain instruction after an indirect branch", func() {
		branchTo(encodeBR(1), encodeMOVZ64(0, 1, 0))
		Expect(func() { e.Step() }).To(Panic())
	})

	It("should reject BTI c after an indirect branch from guarded code", func() {
		branchTo(encodeBR(1), encodeBTI(btiKindC))
		Expect(func() { e.Step() }).To(Panic())
	})

	It("should accept BTI j after an indirect branch from guarded code", func() {
		branchTo(encodeBR(1), encodeBTI(btiKindJ))
		Expect(e.Step().Err).To(BeNil())
	})

	It("should accept BTI c after a branch through X16", func() {
		branchTo(encodeBR(16), encodeBTI(btiKindC))
		Expect(e.Step().Err).To(BeNil())
	})

	It("should accept PACIASP as a landing pad after a branch with link", func() {
		branchTo(encodeBLR(1), encodePACIASP())
		Expect(e.Step().Err).To(BeNil())
	})

	It("should not check targets of direct branches", func() {
		e.LoadProgram(0x1000, wordsToProgram(
			encodeB(4),
			encodeMOVZ64(0, 1, 0),
		))
		Expect(e.Step().Err).To(BeNil())
		Expect(e.Step().Err).To(BeNil())
	})

	It("should not check anything without guarded pages", func() {
		unguarded := emu.NewEmulator()
		unguarded.RegFile().WriteReg(1, 0x1004)
		unguarded.LoadProgram(0x1000, wordsToProgram(
			encodeBR(1),
			encodeMOVZ64(0, 1, 0),
		))
		Expect(unguarded.Step().Err).To(BeNil())
		Expect(unguarded.Step().Err).To(BeNil())
	})
})
