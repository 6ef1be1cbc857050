package emu

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/sarchlab/akita/v4/mem/mem"
)

// memoryCapacity is the size of the simulated address space. Storage
// allocates frames lazily, so the full 48-bit space costs nothing until
// touched.
const memoryCapacity = 1 << 48

// Memory represents the simulated flat memory.
type Memory struct {
	storage *mem.Storage

	// fenceMu is locked and unlocked by Fence to order simulated memory
	// accesses against other threads sharing this memory.
	fenceMu sync.Mutex
}

// NewMemory creates a new memory with a 48-bit address space.
func NewMemory() *Memory {
	return &Memory{
		storage: mem.NewStorage(memoryCapacity),
	}
}

// Fence orders memory accesses. Acquire loads fence after the read,
// release stores fence before the write.
func (m *Memory) Fence() {
	m.fenceMu.Lock()
	defer m.fenceMu.Unlock()
}

// ReadBytes reads byteSize bytes at the given address.
func (m *Memory) ReadBytes(addr, byteSize uint64) []byte {
	data, err := m.storage.Read(addr, byteSize)
	if err != nil {
		panic(fmt.Sprintf(
			"emu: memory read of %d bytes at 0x%X failed: %v",
			byteSize, addr, err))
	}
	return data
}

// WriteBytes writes data at the given address.
func (m *Memory) WriteBytes(addr uint64, data []byte) {
	err := m.storage.Write(addr, data)
	if err != nil {
		panic(fmt.Sprintf(
			"emu: memory write of %d bytes at 0x%X failed: %v",
			len(data), addr, err))
	}
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint64) uint8 {
	return m.ReadBytes(addr, 1)[0]
}

// Read16 reads a little-endian 16-bit value.
func (m *Memory) Read16(addr uint64) uint16 {
	return binary.LittleEndian.Uint16(m.ReadBytes(addr, 2))
}

// Read32 reads a little-endian 32-bit value.
func (m *Memory) Read32(addr uint64) uint32 {
	return binary.LittleEndian.Uint32(m.ReadBytes(addr, 4))
}

// Read64 reads a little-endian 64-bit value.
func (m *Memory) Read64(addr uint64) uint64 {
	return binary.LittleEndian.Uint64(m.ReadBytes(addr, 8))
}

// Read128 reads a little-endian 128-bit value as two 64-bit halves.
func (m *Memory) Read128(addr uint64) (lo, hi uint64) {
	data := m.ReadBytes(addr, 16)
	return binary.LittleEndian.Uint64(data), binary.LittleEndian.Uint64(data[8:])
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint64, value uint8) {
	m.WriteBytes(addr, []byte{value})
}

// Write16 writes a little-endian 16-bit value.
func (m *Memory) Write16(addr uint64, value uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], value)
	m.WriteBytes(addr, buf[:])
}

// Write32 writes a little-endian 32-bit value.
func (m *Memory) Write32(addr uint64, value uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	m.WriteBytes(addr, buf[:])
}

// Write64 writes a little-endian 64-bit value.
func (m *Memory) Write64(addr uint64, value uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	m.WriteBytes(addr, buf[:])
}

// Write128 writes a little-endian 128-bit value from two 64-bit halves.
func (m *Memory) Write128(addr uint64, lo, hi uint64) {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:], lo)
	binary.LittleEndian.PutUint64(buf[8:], hi)
	m.WriteBytes(addr, buf[:])
}

// ReadSized reads a value of 1<<sizeLog2 bytes, zero-extended to 64 bits.
func (m *Memory) ReadSized(addr uint64, sizeLog2 uint8) uint64 {
	switch sizeLog2 {
	case 0:
		return uint64(m.Read8(addr))
	case 1:
		return uint64(m.Read16(addr))
	case 2:
		return uint64(m.Read32(addr))
	default:
		return m.Read64(addr)
	}
}

// WriteSized writes the low 1<<sizeLog2 bytes of value.
func (m *Memory) WriteSized(addr uint64, sizeLog2 uint8, value uint64) {
	switch sizeLog2 {
	case 0:
		m.Write8(addr, uint8(value))
	case 1:
		m.Write16(addr, uint16(value))
	case 2:
		m.Write32(addr, uint32(value))
	default:
		m.Write64(addr, value)
	}
}

// LoadProgram copies a program image into memory at the given address.
func (m *Memory) LoadProgram(addr uint64, program []byte) {
	m.WriteBytes(addr, program)
}

// exclusiveAddressMask aligns monitored addresses to the size of an
// exclusive reservation granule.
const exclusiveAddressMask = ^uint64(1<<11 - 1)

// LocalMonitor tracks the exclusive reservation of a single processor.
// Each emulator owns one; it needs no synchronization.
type LocalMonitor struct {
	exclusive bool
	addr      uint64
}

// MarkExclusive records a reservation for the granule containing addr.
func (l *LocalMonitor) MarkExclusive(addr uint64) {
	l.exclusive = true
	l.addr = addr & exclusiveAddressMask
}

// IsExclusive reports whether the granule containing addr is reserved.
func (l *LocalMonitor) IsExclusive(addr uint64) bool {
	return l.exclusive && l.addr == addr&exclusiveAddressMask
}

// Clear drops the reservation.
func (l *LocalMonitor) Clear() {
	l.exclusive = false
}

// MaybeClear drops the reservation when an event that can legitimately do
// so occurs. The architecture permits spurious clears; keeping the
// reservation here keeps store-exclusive sequences deterministic in tests.
func (l *LocalMonitor) MaybeClear() {}

// GlobalMonitor tracks exclusive reservations across all processors that
// share a memory. It is safe for concurrent use.
type GlobalMonitor struct {
	mu           sync.Mutex
	reservations map[*LocalMonitor]uint64
}

// NewGlobalMonitor creates an empty global monitor.
func NewGlobalMonitor() *GlobalMonitor {
	return &GlobalMonitor{
		reservations: map[*LocalMonitor]uint64{},
	}
}

// MarkExclusive records a reservation for the given processor, displacing
// any previous reservation it held.
func (g *GlobalMonitor) MarkExclusive(owner *LocalMonitor, addr uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reservations[owner] = addr & exclusiveAddressMask
}

// IsExclusive reports whether the given processor still holds a
// reservation for the granule containing addr.
func (g *GlobalMonitor) IsExclusive(owner *LocalMonitor, addr uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	granule, ok := g.reservations[owner]
	return ok && granule == addr&exclusiveAddressMask
}

// Clear drops the reservation of the given processor.
func (g *GlobalMonitor) Clear(owner *LocalMonitor) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.reservations, owner)
}

// NotifyWrite invalidates the reservations of all other processors whose
// granule contains addr. The writer's own reservation survives so its
// store-exclusive can succeed.
func (g *GlobalMonitor) NotifyWrite(writer *LocalMonitor, addr uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	granule := addr & exclusiveAddressMask
	for owner, reserved := range g.reservations {
		if owner != writer && reserved == granule {
			delete(g.reservations, owner)
		}
	}
}
