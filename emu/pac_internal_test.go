package emu

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Pointer authentication", func() {
	const ptr = uint64(0x0000_1234_5678_9ABC)
	const modifier = uint64(0xFEED)

	Describe("AddPAC", func() {
		It("should leave the address bits intact", func() {
			signed := AddPAC(ptr, modifier, KeyIA)
			mask := uint64(1)<<pacVASize - 1
			Expect(signed & mask).To(Equal(ptr & mask))
		})

		It("should place a code in the PAC bit range", func() {
			signed := AddPAC(ptr, modifier, KeyIA)
			Expect(signed).NotTo(Equal(ptr))
			Expect(signed &^ PACMask()).To(Equal(ptr &^ PACMask()))
		})

		It("should produce different codes for different keys", func() {
			Expect(AddPAC(ptr, modifier, KeyIA)).
				NotTo(Equal(AddPAC(ptr, modifier, KeyIB)))
		})

		It("should produce different codes for different modifiers", func() {
			Expect(AddPAC(ptr, modifier, KeyIA)).
				NotTo(Equal(AddPAC(ptr, modifier+1, KeyIA)))
		})
	})

	Describe("AuthPAC", func() {
		It("should restore the pointer when the modifier matches", func() {
			signed := AddPAC(ptr, modifier, KeyIA)
			Expect(AuthPAC(signed, modifier, KeyIA)).To(Equal(ptr))
			Expect(PACFailed(AuthPAC(signed, modifier, KeyIA))).To(BeFalse())
		})

		It("should flag a failure when the modifier differs", func() {
			signed := AddPAC(ptr, modifier, KeyIA)
			authed := AuthPAC(signed, modifier+1, KeyIA)
			Expect(PACFailed(authed)).To(BeTrue())
		})

		It("should flag a failure when the key differs", func() {
			signed := AddPAC(ptr, modifier, KeyIA)
			authed := AuthPAC(signed, modifier, KeyIB)
			Expect(PACFailed(authed)).To(BeTrue())
		})

		It("should place the error code by key number", func() {
			signedA := AddPAC(ptr, modifier, KeyIA)
			authedA := AuthPAC(signedA, modifier+1, KeyIA)
			Expect((authedA >> pacErrorLSB) & 0x3).To(Equal(uint64(1)))

			signedB := AddPAC(ptr, modifier, KeyIB)
			authedB := AuthPAC(signedB, modifier+1, KeyIB)
			Expect((authedB >> pacErrorLSB) & 0x3).To(Equal(uint64(2)))
		})
	})

	Describe("StripPAC", func() {
		It("should recover the canonical pointer without a key", func() {
			signed := AddPAC(ptr, modifier, KeyDA)
			Expect(StripPAC(signed)).To(Equal(ptr))
		})

		It("should replicate bit 55 for high-half pointers", func() {
			kernelPtr := uint64(0xFFFF_FFFF_FFFF_0000)
			signed := AddPAC(kernelPtr, modifier, KeyDA)
			Expect(StripPAC(signed)).To(Equal(kernelPtr))
		})
	})

	Describe("ComputePAC", func() {
		It("should be deterministic", func() {
			Expect(ComputePAC(ptr, modifier, KeyGA)).
				To(Equal(ComputePAC(ptr, modifier, KeyGA)))
		})
	})
})
