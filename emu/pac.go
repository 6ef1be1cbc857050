package emu

import "math/bits"

// The simulated virtual address size. Pointer authentication codes occupy
// the bits between the address and the address-space selector at bit 55.
const pacVASize = 48

// PACKey identifies one of the pointer-authentication keys. Number is the
// architectural key number (IA=0, IB=1, DA=2, DB=3) and selects which
// error-code bit a failed authentication sets.
type PACKey struct {
	Lo     uint64
	Hi     uint64
	Number int
}

// The default key values. Any fixed values work for simulation since both
// sign and authenticate run through the same ComputePAC.
var (
	KeyIA = PACKey{Lo: 0xFEDCBA9876543210, Hi: 0x0123456789ABCDEF, Number: 0}
	KeyIB = PACKey{Lo: 0xDEADB0D1DEADB0D1, Hi: 0xB0D1DEADB0D1DEAD, Number: 1}
	KeyDA = PACKey{Lo: 0x0F0E0D0C0B0A0908, Hi: 0x0706050403020100, Number: 2}
	KeyDB = PACKey{Lo: 0x3F3E3D3C3B3A3938, Hi: 0x3736353433323130, Number: 3}
	KeyGA = PACKey{Lo: 0x4948474645444342, Hi: 0x5857565554535251, Number: 4}
)

// PACMask returns the pointer bits that hold the authentication code:
// bits [54:vaSize]. Bit 55 is the address-space selector and is never
// part of the code.
func PACMask() uint64 {
	const topPACBit = 55
	return ((uint64(1) << (topPACBit - pacVASize)) - 1) << pacVASize
}

// canonicalPointer replicates bit 55 through the PAC field, recovering the
// pointer as it was before signing.
func canonicalPointer(ptr uint64) uint64 {
	mask := PACMask()
	if ptr&(1<<55) != 0 {
		return ptr | mask
	}
	return ptr &^ mask
}

// ComputePAC computes the authentication code for a pointer and modifier
// under a key. This is not the architectural QARMA cipher; any fixed
// one-way mix works for simulation because signing and authentication
// share it.
func ComputePAC(data, modifier uint64, key PACKey) uint64 {
	working := data ^ key.Lo
	working = bits.RotateLeft64(working, 13) ^ modifier
	working *= 0x9E3779B97F4A7C15
	working = bits.RotateLeft64(working, 39) ^ key.Hi
	working *= 0xC2B2AE3D27D4EB4F
	working ^= working >> 29
	working *= 0x165667B19E3779F9
	working ^= working >> 32
	return working
}

// AddPAC signs a pointer: the authentication code is spliced into the PAC
// field. A pointer whose PAC field is not canonical produces a code that
// can never authenticate, matching the architectural corruption of
// pre-signed pointers.
func AddPAC(ptr, modifier uint64, key PACKey) uint64 {
	mask := PACMask()
	pac := ComputePAC(canonicalPointer(ptr), modifier, key)

	if ptr != canonicalPointer(ptr) {
		// Signing an already-signed pointer corrupts the code.
		pac = ^pac
	}

	return (ptr &^ mask) | (pac & mask)
}

// pacErrorLSB is the position of the two-bit error code a failed
// authentication leaves in the pointer.
const pacErrorLSB = 53

// AuthPAC authenticates a signed pointer. On success the canonical pointer
// is returned. On failure the canonical pointer is returned with an error
// code in bits [54:53]: 01 for an instruction/data A key, 10 for a B key.
func AuthPAC(ptr, modifier uint64, key PACKey) uint64 {
	mask := PACMask()
	canonical := canonicalPointer(ptr)
	pac := ComputePAC(canonical, modifier, key)

	if pac&mask == ptr&mask {
		return canonical
	}

	errorCode := uint64(1) << (key.Number & 1)
	result := canonical &^ (uint64(0x3) << pacErrorLSB)
	return result | errorCode<<pacErrorLSB
}

// StripPAC removes the authentication code without checking it.
func StripPAC(ptr uint64) uint64 {
	return canonicalPointer(ptr)
}

// PACFailed reports whether a pointer carries the error code of a failed
// authentication.
func PACFailed(ptr uint64) bool {
	return (ptr>>pacErrorLSB)&0x3 != 0
}
