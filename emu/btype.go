package emu

// BType represents the PSTATE branch-type field used by the branch target
// identification checks. It records what kind of indirect branch reached
// the current instruction.
type BType uint8

// Branch types.
const (
	// DefaultBType means the last instruction was not an indirect
	// branch, or was a branch the target need not guard against.
	DefaultBType BType = iota

	// BranchFromUnguardedOrToIP means an indirect branch arrived either
	// from an unguarded page or through one of the intra-procedure-call
	// registers (X16/X17).
	BranchFromUnguardedOrToIP

	// BranchFromGuardedNotToIP means an indirect branch arrived from a
	// guarded page through a register other than X16/X17.
	BranchFromGuardedNotToIP

	// BranchAndLink means a branch-with-link (BLR family) arrived.
	BranchAndLink
)

// BTI operand kinds, decoded from the hint immediate.
const (
	btiNone = 0 // BTI
	btiC    = 1 // BTI c
	btiJ    = 2 // BTI j
	btiJC   = 3 // BTI jc
)

// btiAccepts reports whether a BTI instruction with the given operand kind
// accepts an incoming branch of the given type.
func btiAccepts(kind uint64, btype BType) bool {
	switch btype {
	case DefaultBType:
		return true
	case BranchFromUnguardedOrToIP:
		return kind != btiNone
	case BranchFromGuardedNotToIP:
		return kind == btiJ || kind == btiJC
	case BranchAndLink:
		return kind == btiC || kind == btiJC
	}
	return false
}
