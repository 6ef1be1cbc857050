// Package insts provides AArch64 instruction definitions and decoding.
package insts

// Op represents an AArch64 opcode tag.
type Op uint16

// AArch64 opcodes.
const (
	OpUnknown Op = iota

	// Data processing, immediate.
	OpADD
	OpSUB
	OpADC
	OpSBC
	OpAND
	OpORR
	OpEOR
	OpBIC
	OpORN
	OpEON
	OpMOVZ
	OpMOVN
	OpMOVK
	OpSBFM
	OpBFM
	OpUBFM
	OpEXTR
	OpADR
	OpADRP

	// Data processing, one source.
	OpRBIT
	OpREV16
	OpREV32
	OpREV
	OpCLZ
	OpCLS
	OpPACIA
	OpPACIB
	OpPACDA
	OpPACDB
	OpAUTIA
	OpAUTIB
	OpAUTDA
	OpAUTDB
	OpPACIZA
	OpPACIZB
	OpPACDZA
	OpPACDZB
	OpAUTIZA
	OpAUTIZB
	OpAUTDZA
	OpAUTDZB
	OpXPACI
	OpXPACD

	// Data processing, two sources.
	OpUDIV
	OpSDIV
	OpLSLV
	OpLSRV
	OpASRV
	OpRORV
	OpPACGA

	// Data processing, three sources.
	OpMADD
	OpMSUB
	OpSMADDL
	OpSMSUBL
	OpUMADDL
	OpUMSUBL
	OpSMULH
	OpUMULH

	// Conditional operations.
	OpCSEL
	OpCSINC
	OpCSINV
	OpCSNEG
	OpCCMP
	OpCCMN

	// Branches.
	OpB
	OpBL
	OpBCond
	OpBR
	OpBLR
	OpRET
	OpBRAA
	OpBRAB
	OpBRAAZ
	OpBRABZ
	OpBLRAA
	OpBLRAB
	OpBLRAAZ
	OpBLRABZ
	OpRETAA
	OpRETAB
	OpCBZ
	OpCBNZ
	OpTBZ
	OpTBNZ

	// Loads and stores.
	OpLDR
	OpSTR
	OpLDRB
	OpSTRB
	OpLDRSB
	OpLDRH
	OpSTRH
	OpLDRSH
	OpLDRSW
	OpLDRLit
	OpLDRSWLit
	OpLDP
	OpSTP
	OpLDPSW
	OpPRFM

	// SIMD&FP loads and stores.
	OpLDRV
	OpSTRV
	OpLDRVLit
	OpLDPV
	OpSTPV

	// Exclusive and ordered accesses.
	OpLDXR
	OpLDAXR
	OpSTXR
	OpSTLXR
	OpLDXP
	OpLDAXP
	OpSTXP
	OpSTLXP
	OpLDAR
	OpSTLR
	OpCAS
	OpCASP

	// Atomic read-modify-write.
	OpLDADD
	OpLDCLR
	OpLDEOR
	OpLDSET
	OpLDSMAX
	OpLDSMIN
	OpLDUMAX
	OpLDUMIN
	OpSWP
	OpLDAPR

	// System.
	OpNOP
	OpHint
	OpBTI
	OpPACIASP
	OpPACIBSP
	OpPACIAZ
	OpPACIBZ
	OpAUTIASP
	OpAUTIBSP
	OpAUTIAZ
	OpAUTIBZ
	OpPACIA1716
	OpPACIB1716
	OpAUTIA1716
	OpAUTIB1716
	OpXPACLRI
	OpMRS
	OpMSR
	OpDMB
	OpDSB
	OpISB
	OpCLREX
	OpSVC
	OpBRK
	OpHLT

	// Scalar floating point.
	OpFCMP
	OpFCMPE
	OpFCSEL

	// NEON, vector and scalar.
	OpVAND
	OpVBIC
	OpVORR
	OpVORN
	OpVEOR
	OpVBSL
	OpVBIT
	OpVBIF
	OpVADD
	OpVSUB
	OpVMUL
	OpVMLA
	OpVMLS
	OpVSQADD
	OpVUQADD
	OpVSQSUB
	OpVUQSUB
	OpVSHADD
	OpVUHADD
	OpVSRHADD
	OpVURHADD
	OpVSHSUB
	OpVUHSUB
	OpVSSHL
	OpVUSHL
	OpVSRSHL
	OpVURSHL
	OpVSQSHL
	OpVUQSHL
	OpVSMAX
	OpVSMIN
	OpVUMAX
	OpVUMIN
	OpVCMEQ
	OpVCMGT
	OpVCMGE
	OpVCMHI
	OpVCMHS
	OpVCMTST
	OpVADDP
	OpVFADD
	OpVFSUB
	OpVFMUL
	OpVFDIV
	OpVFMLA
	OpVFMLS
	OpVFMAX
	OpVFMIN
	OpVFMAXNM
	OpVFMINNM
	OpVFCMEQ
	OpVFCMGE
	OpVFCMGT
	OpVABS
	OpVNEG
	OpVNOT
	OpVCNT
	OpVREV64
	OpVCMEQ0
	OpVCMGE0
	OpVCMGT0
	OpVCMLE0
	OpVCMLT0
	OpVFABS
	OpVFNEG
	OpVFSQRT
	OpVFRINTN
	OpVFRINTP
	OpVFRINTM
	OpVFRINTZ
	OpVFRINTA
	OpVFRINTX
	OpVFRINTI
	OpVSCVTF
	OpVUCVTF
	OpVFCVTZS
	OpVFCVTZU
	OpVADDV
	OpVSMAXV
	OpVSMINV
	OpVUMAXV
	OpVUMINV
	OpVDUPElem
	OpVDUPGen
	OpVSMOV
	OpVUMOV
	OpVINSGen
	OpVINSElem
	OpVMOVI
	OpVMVNI
	OpVORRImm
	OpVBICImm
	OpVFMOVImm
	OpVSSHR
	OpVUSHR
	OpVSHLImm
	OpVSQSHLImm
	OpVUQSHLImm
	OpVMULElem
	OpVMLAElem
	OpVMLSElem
	OpVFMULElem
	OpVFMLAElem
	OpVFMLSElem

	// SVE, predicated and unpredicated subsets.
	OpZADD
	OpZSUB
	OpZAND
	OpZORR
	OpZEOR
	OpZBIC
	OpZMUL
	OpZSMAX
	OpZSMIN
	OpZUMAX
	OpZUMIN
	OpZADDUnpred
	OpZSUBUnpred
	OpPTRUE
	OpPFALSE
	OpPAND
	OpPORR
	OpPEOR
	OpCNTB
	OpCNTH
	OpCNTW
	OpCNTD
	OpRDVL
	OpSVEUnsupported
)

// Format represents an instruction encoding category. The execution engine
// dispatches on Format through a handler table; the Op tag selects the
// operation within a handler.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatPCRel
	FormatDPImm
	FormatLogicalImm
	FormatMoveWide
	FormatBitfield
	FormatExtract
	FormatDPReg
	FormatAddSubExt
	FormatAddSubCarry
	FormatCondCmp
	FormatCondSelect
	FormatDataProc1Src
	FormatDataProc2Src
	FormatDataProc3Src
	FormatBranch
	FormatBranchCond
	FormatBranchReg
	FormatTestBranch
	FormatCompareBranch
	FormatSystem
	FormatException
	FormatLoadStore
	FormatLoadStoreLit
	FormatLoadStorePair
	FormatLoadStoreExclusive
	FormatAtomicMemory
	FormatFPCompare
	FormatFPCondSelect
	FormatSIMDThreeSame
	FormatSIMDTwoMisc
	FormatSIMDAcrossLanes
	FormatSIMDCopy
	FormatSIMDModImm
	FormatSIMDShiftImm
	FormatSIMDByElement
	FormatSVE
)

// Cond represents an AArch64 condition code.
type Cond uint8

// AArch64 condition codes.
const (
	CondEQ Cond = 0b0000 // Equal (Z == 1)
	CondNE Cond = 0b0001 // Not Equal (Z == 0)
	CondCS Cond = 0b0010 // Carry Set / Unsigned higher or same (C == 1)
	CondCC Cond = 0b0011 // Carry Clear / Unsigned lower (C == 0)
	CondMI Cond = 0b0100 // Minus / Negative (N == 1)
	CondPL Cond = 0b0101 // Plus / Positive or zero (N == 0)
	CondVS Cond = 0b0110 // Overflow (V == 1)
	CondVC Cond = 0b0111 // No overflow (V == 0)
	CondHI Cond = 0b1000 // Unsigned higher (C == 1 && Z == 0)
	CondLS Cond = 0b1001 // Unsigned lower or same (C == 0 || Z == 1)
	CondGE Cond = 0b1010 // Signed greater than or equal (N == V)
	CondLT Cond = 0b1011 // Signed less than (N != V)
	CondGT Cond = 0b1100 // Signed greater than (Z == 0 && N == V)
	CondLE Cond = 0b1101 // Signed less than or equal (Z == 1 || N != V)
	CondAL Cond = 0b1110 // Always (unconditional)
	CondNV Cond = 0b1111 // Always (unconditional, reserved)
)

// ShiftType represents a shift type for register operands.
type ShiftType uint8

// Shift types.
const (
	ShiftLSL ShiftType = 0b00 // Logical shift left
	ShiftLSR ShiftType = 0b01 // Logical shift right
	ShiftASR ShiftType = 0b10 // Arithmetic shift right
	ShiftROR ShiftType = 0b11 // Rotate right
)

// ExtendType represents a register extend kind for extended-register
// operands and register-offset addressing.
type ExtendType uint8

// Extend kinds.
const (
	ExtendUXTB ExtendType = 0b000
	ExtendUXTH ExtendType = 0b001
	ExtendUXTW ExtendType = 0b010
	ExtendUXTX ExtendType = 0b011
	ExtendSXTB ExtendType = 0b100
	ExtendSXTH ExtendType = 0b101
	ExtendSXTW ExtendType = 0b110
	ExtendSXTX ExtendType = 0b111
)

// IndexMode represents a load/store addressing mode.
type IndexMode uint8

// Addressing modes.
const (
	IndexOffset IndexMode = iota // base + immediate offset, no writeback
	IndexPre                     // pre-index with writeback
	IndexPost                    // post-index with writeback
	IndexReg                     // base + extended register offset
)

// Arrangement represents a NEON vector arrangement (lane size and count).
type Arrangement uint8

// Vector arrangements.
const (
	Arr8B Arrangement = iota
	Arr16B
	Arr4H
	Arr8H
	Arr2S
	Arr4S
	Arr1D
	Arr2D
)

// Instruction represents a decoded AArch64 instruction. The raw word is
// retained so handlers can extract encoding fields the decoder does not
// break out.
type Instruction struct {
	Raw    uint32 // Raw instruction word
	Op     Op     // Operation tag
	Format Format // Encoding category

	// Common fields
	Is64Bit  bool  // true for X-register forms, false for W-register forms
	SetFlags bool  // true if the instruction sets NZCV (S suffix)
	Rd       uint8 // Destination register (also Rt for loads/stores)
	Rn       uint8 // First source register (base register for loads/stores)
	Rm       uint8 // Second source register
	Ra       uint8 // Third source register (MADD family)
	Rt2      uint8 // Second transfer register (pairs)
	Rs       uint8 // Status/compare register (exclusives, CAS, atomics)

	// Immediate operands
	Imm       uint64 // Primary immediate
	Imm2      uint64 // Secondary immediate (imms, nzcv, ...)
	SignedImm int64  // Signed immediate offset (loads/stores)
	Shift     uint8  // Shift amount for immediates

	// Branch fields
	BranchOffset int64 // Signed branch offset in bytes
	Cond         Cond  // Condition code

	// Register operand modifiers
	ShiftType   ShiftType  // Shift applied to Rm
	Extend      ExtendType // Extend applied to Rm
	ShiftAmount uint8      // Shift/extend amount for Rm

	// Load/store fields
	IndexMode IndexMode // Addressing mode
	SizeLog2  uint8     // Access or element size, log2 bytes
	Acquire   bool      // Load-acquire ordering
	Release   bool      // Store-release ordering

	// Vector fields
	Arrangement Arrangement // NEON arrangement
	ElemIndex   uint8       // Lane index for by-element and copy forms
	Pg          uint8       // Governing predicate register (SVE)
	Merging     bool        // SVE merging (vs zeroing) predication
}

// GetRd returns the destination register index.
func (i *Instruction) GetRd() uint8 { return i.Rd }

// GetRt returns the transfer register index. Loads and stores share the Rd
// slot for Rt.
func (i *Instruction) GetRt() uint8 { return i.Rd }

// GetRn returns the first source register index.
func (i *Instruction) GetRn() uint8 { return i.Rn }

// GetRm returns the second source register index.
func (i *Instruction) GetRm() uint8 { return i.Rm }

// GetRa returns the third source register index.
func (i *Instruction) GetRa() uint8 { return i.Ra }

// GetRt2 returns the second transfer register index.
func (i *Instruction) GetRt2() uint8 { return i.Rt2 }

// GetRs returns the status/compare register index.
func (i *Instruction) GetRs() uint8 { return i.Rs }

// GetCond returns the condition code.
func (i *Instruction) GetCond() Cond { return i.Cond }

// Mask returns the raw word ANDed with the given mask.
func (i *Instruction) Mask(m uint32) uint32 { return i.Raw & m }

// Bit returns the raw word bit at the given position.
func (i *Instruction) Bit(pos uint) uint32 { return (i.Raw >> pos) & 1 }

// Bits returns raw word bits [hi:lo], inclusive.
func (i *Instruction) Bits(hi, lo uint) uint32 {
	return (i.Raw >> lo) & ((1 << (hi - lo + 1)) - 1)
}
