package emu

import (
	"io"
	"os"
)

// ARM64 Linux syscall numbers.
const (
	SyscallOpenat    uint64 = 56  // openat(dirfd, path, flags, mode)
	SyscallClose     uint64 = 57  // close(fd)
	SyscallLseek     uint64 = 62  // lseek(fd, offset, whence)
	SyscallRead      uint64 = 63  // read(fd, buf, count)
	SyscallWrite     uint64 = 64  // write(fd, buf, count)
	SyscallExit      uint64 = 93  // exit(status)
	SyscallExitGroup uint64 = 94  // exit_group(status)
	SyscallBrk       uint64 = 214 // brk(addr)
)

// Linux error codes.
const (
	EBADF  = 9  // Bad file descriptor
	ENOSYS = 38 // Function not implemented
	EIO    = 5  // I/O error
	ENOENT = 2  // No such file or directory
	EINVAL = 22 // Invalid argument
)

// AT_FDCWD is the openat dirfd meaning "relative to the current
// directory", as a 64-bit two's complement value.
const atFDCWD = ^uint64(0) - 99 // -100

// Guest open flags, ARM64 Linux encoding.
const (
	guestWRONLY = 0x1
	guestRDWR   = 0x2
	guestCREAT  = 0x40
	guestTRUNC  = 0x200
	guestAPPEND = 0x400
)

// SyscallResult represents the result of a syscall execution.
type SyscallResult struct {
	// Exited is true if the syscall caused program termination.
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64
}

// SyscallHandler is the interface for handling ARM64 syscalls.
type SyscallHandler interface {
	// Handle executes the syscall indicated by the register file state.
	// ARM64 Linux syscall convention:
	//   - Syscall number in X8
	//   - Arguments in X0-X5
	//   - Return value in X0
	Handle() SyscallResult
}

// DefaultSyscallHandler provides a basic syscall handler implementation.
// The standard streams route to configurable readers and writers; other
// descriptors go through a file descriptor table to host files.
type DefaultSyscallHandler struct {
	regFile *RegFile
	memory  *Memory
	fdTable *FDTable
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer

	// brk is the current program break. Zero until the program queries it.
	brk uint64
}

// NewDefaultSyscallHandler creates a default syscall handler.
func NewDefaultSyscallHandler(regFile *RegFile, memory *Memory, stdout, stderr io.Writer) *DefaultSyscallHandler {
	return &DefaultSyscallHandler{
		regFile: regFile,
		memory:  memory,
		fdTable: NewFDTable(),
		stdin:   nil,
		stdout:  stdout,
		stderr:  stderr,
	}
}

// SetStdin sets the stdin reader for the syscall handler.
func (h *DefaultSyscallHandler) SetStdin(stdin io.Reader) {
	h.stdin = stdin
}

// FDTable returns the handler's file descriptor table.
func (h *DefaultSyscallHandler) FDTable() *FDTable {
	return h.fdTable
}

// Handle executes the syscall indicated by the register file state.
func (h *DefaultSyscallHandler) Handle() SyscallResult {
	syscallNum := h.regFile.ReadReg(8)

	switch syscallNum {
	case SyscallOpenat:
		return h.handleOpenat()
	case SyscallClose:
		return h.handleClose()
	case SyscallLseek:
		return h.handleLseek()
	case SyscallRead:
		return h.handleRead()
	case SyscallWrite:
		return h.handleWrite()
	case SyscallExit, SyscallExitGroup:
		return h.handleExit()
	case SyscallBrk:
		return h.handleBrk()
	default:
		return h.handleUnknown()
	}
}

// handleExit handles the exit and exit_group syscalls (93, 94).
func (h *DefaultSyscallHandler) handleExit() SyscallResult {
	exitCode := int64(h.regFile.ReadReg(0))
	return SyscallResult{
		Exited:   true,
		ExitCode: exitCode,
	}
}

// handleOpenat handles the openat syscall (56). Only AT_FDCWD-relative
// opens are supported.
func (h *DefaultSyscallHandler) handleOpenat() SyscallResult {
	dirfd := h.regFile.ReadReg(0)
	pathPtr := h.regFile.ReadReg(1)
	flags := h.regFile.ReadReg(2)
	mode := h.regFile.ReadReg(3)

	if dirfd != atFDCWD {
		h.setError(EBADF)
		return SyscallResult{}
	}

	path := h.readPath(pathPtr)

	fd, err := h.fdTable.Open(path, hostOpenFlags(flags), os.FileMode(mode)&0777)
	if err != nil {
		h.setError(ENOENT)
		return SyscallResult{}
	}

	h.regFile.WriteReg(0, fd)
	return SyscallResult{}
}

// hostOpenFlags translates guest open flags to host flags.
func hostOpenFlags(guest uint64) int {
	var flags int
	switch {
	case guest&guestRDWR != 0:
		flags = os.O_RDWR
	case guest&guestWRONLY != 0:
		flags = os.O_WRONLY
	default:
		flags = os.O_RDONLY
	}
	if guest&guestCREAT != 0 {
		flags |= os.O_CREATE
	}
	if guest&guestTRUNC != 0 {
		flags |= os.O_TRUNC
	}
	if guest&guestAPPEND != 0 {
		flags |= os.O_APPEND
	}
	return flags
}

// readPath reads a NUL-terminated path from simulated memory.
func (h *DefaultSyscallHandler) readPath(addr uint64) string {
	var path []byte
	for {
		b := h.memory.Read8(addr)
		if b == 0 {
			return string(path)
		}
		path = append(path, b)
		addr++
	}
}

// handleClose handles the close syscall (57).
func (h *DefaultSyscallHandler) handleClose() SyscallResult {
	fd := h.regFile.ReadReg(0)

	if err := h.fdTable.Close(fd); err != nil {
		h.setError(EBADF)
		return SyscallResult{}
	}

	h.regFile.WriteReg(0, 0)
	return SyscallResult{}
}

// handleLseek handles the lseek syscall (62).
func (h *DefaultSyscallHandler) handleLseek() SyscallResult {
	fd := h.regFile.ReadReg(0)
	offset := int64(h.regFile.ReadReg(1))
	whence := int(h.regFile.ReadReg(2))

	if whence < 0 || whence > 2 {
		h.setError(EINVAL)
		return SyscallResult{}
	}

	pos, err := h.fdTable.Seek(fd, offset, whence)
	if err != nil {
		h.setError(EBADF)
		return SyscallResult{}
	}

	h.regFile.WriteReg(0, uint64(pos))
	return SyscallResult{}
}

// handleRead handles the read syscall (63).
func (h *DefaultSyscallHandler) handleRead() SyscallResult {
	fd := h.regFile.ReadReg(0)
	bufPtr := h.regFile.ReadReg(1)
	count := h.regFile.ReadReg(2)

	if fd == 0 {
		return h.readStdin(bufPtr, count)
	}

	buf := make([]byte, count)
	n, err := h.fdTable.Read(fd, buf)
	if err != nil && n == 0 {
		if err == io.EOF {
			h.regFile.WriteReg(0, 0)
		} else {
			h.setError(EBADF)
		}
		return SyscallResult{}
	}

	h.memory.WriteBytes(bufPtr, buf[:n])
	h.regFile.WriteReg(0, uint64(n))
	return SyscallResult{}
}

// readStdin reads from the configured stdin. With no stdin configured,
// reads return EOF.
func (h *DefaultSyscallHandler) readStdin(bufPtr, count uint64) SyscallResult {
	if h.stdin == nil {
		h.regFile.WriteReg(0, 0)
		return SyscallResult{}
	}

	buf := make([]byte, count)
	n, err := h.stdin.Read(buf)
	if err != nil && n == 0 {
		h.regFile.WriteReg(0, 0)
		return SyscallResult{}
	}

	h.memory.WriteBytes(bufPtr, buf[:n])
	h.regFile.WriteReg(0, uint64(n))
	return SyscallResult{}
}

// handleWrite handles the write syscall (64).
func (h *DefaultSyscallHandler) handleWrite() SyscallResult {
	fd := h.regFile.ReadReg(0)
	bufPtr := h.regFile.ReadReg(1)
	count := h.regFile.ReadReg(2)

	buf := h.memory.ReadBytes(bufPtr, count)

	var n int
	var err error
	switch fd {
	case 1:
		n, err = h.stdout.Write(buf)
	case 2:
		n, err = h.stderr.Write(buf)
	default:
		n, err = h.fdTable.Write(fd, buf)
		if err != nil {
			h.setError(EBADF)
			return SyscallResult{}
		}
	}
	if err != nil {
		h.setError(EIO)
		return SyscallResult{}
	}

	h.regFile.WriteReg(0, uint64(n))
	return SyscallResult{}
}

// handleBrk handles the brk syscall (214). Memory is a flat address
// space, so the break just tracks whatever the program requests.
func (h *DefaultSyscallHandler) handleBrk() SyscallResult {
	addr := h.regFile.ReadReg(0)
	if addr != 0 {
		h.brk = addr
	}
	h.regFile.WriteReg(0, h.brk)
	return SyscallResult{}
}

// handleUnknown handles unrecognized syscalls.
func (h *DefaultSyscallHandler) handleUnknown() SyscallResult {
	h.setError(ENOSYS)
	return SyscallResult{}
}

// setError sets X0 to -errno (as two's complement).
func (h *DefaultSyscallHandler) setError(errno int) {
	h.regFile.WriteReg(0, uint64(-int64(errno)))
}
