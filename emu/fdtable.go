package emu

import (
	"os"
	"sync"
)

// FileDescriptor represents an open file descriptor.
type FileDescriptor struct {
	HostFile *os.File // Host file handle (nil for the standard streams)
	Path     string
	Flags    int
	IsOpen   bool
}

// FDTable manages file descriptors for syscall emulation.
type FDTable struct {
	fds    map[uint64]*FileDescriptor
	nextFD uint64
	mu     sync.Mutex
}

// NewFDTable creates a file descriptor table with the standard streams
// initialized. FDs 0-2 have no host files; the syscall handler routes
// them to its configured readers and writers.
func NewFDTable() *FDTable {
	t := &FDTable{
		fds:    make(map[uint64]*FileDescriptor),
		nextFD: 3,
	}

	t.fds[0] = &FileDescriptor{Path: "stdin", IsOpen: true}
	t.fds[1] = &FileDescriptor{Path: "stdout", IsOpen: true}
	t.fds[2] = &FileDescriptor{Path: "stderr", IsOpen: true}

	return t
}

// Open opens a file on the host and returns a new file descriptor.
func (t *FDTable) Open(path string, flags int, mode os.FileMode) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	hostFile, err := os.OpenFile(path, flags, mode)
	if err != nil {
		return 0, err
	}

	fd := t.nextFD
	t.nextFD++

	t.fds[fd] = &FileDescriptor{
		HostFile: hostFile,
		Path:     path,
		Flags:    flags,
		IsOpen:   true,
	}

	return fd, nil
}

// Close closes a file descriptor.
func (t *FDTable) Close(fd uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.fds[fd]
	if !exists || !entry.IsOpen {
		return os.ErrInvalid
	}

	// The standard streams are marked closed but nothing host-side closes.
	if fd <= 2 {
		entry.IsOpen = false
		return nil
	}

	if entry.HostFile != nil {
		if err := entry.HostFile.Close(); err != nil {
			return err
		}
	}

	entry.HostFile = nil
	entry.IsOpen = false

	return nil
}

// IsOpen checks if a file descriptor is open.
func (t *FDTable) IsOpen(fd uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.fds[fd]
	return exists && entry.IsOpen
}

// hostFile returns the host file behind an open, non-standard descriptor.
func (t *FDTable) hostFile(fd uint64) (*os.File, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.fds[fd]
	if !exists || !entry.IsOpen {
		return nil, os.ErrInvalid
	}
	if fd <= 2 || entry.HostFile == nil {
		// The standard streams are handled by the syscall handler.
		return nil, os.ErrInvalid
	}
	return entry.HostFile, nil
}

// Read reads from a file descriptor into a buffer.
func (t *FDTable) Read(fd uint64, buf []byte) (int, error) {
	hostFile, err := t.hostFile(fd)
	if err != nil {
		return 0, err
	}
	return hostFile.Read(buf)
}

// Write writes a buffer to a file descriptor.
func (t *FDTable) Write(fd uint64, buf []byte) (int, error) {
	hostFile, err := t.hostFile(fd)
	if err != nil {
		return 0, err
	}
	return hostFile.Write(buf)
}

// Seek sets the file position for the given file descriptor.
func (t *FDTable) Seek(fd uint64, offset int64, whence int) (int64, error) {
	hostFile, err := t.hostFile(fd)
	if err != nil {
		return 0, err
	}
	return hostFile.Seek(offset, whence)
}
