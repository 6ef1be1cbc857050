package emu_test

import (
	"bytes"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64sim/emu"
)

var _ = Describe("Syscall handler", func() {
	var (
		rf        *emu.RegFile
		memory    *emu.Memory
		stdoutBuf *bytes.Buffer
		stderrBuf *bytes.Buffer
		handler   *emu.DefaultSyscallHandler
	)

	const atFDCWD = ^uint64(0) - 99

	BeforeEach(func() {
		rf = emu.NewRegFile()
		memory = emu.NewMemory()
		stdoutBuf = &bytes.Buffer{}
		stderrBuf = &bytes.Buffer{}
		handler = emu.NewDefaultSyscallHandler(rf, memory, stdoutBuf, stderrBuf)
	})

	invoke := func(num uint64, args ...uint64) emu.SyscallResult {
		rf.WriteReg(8, num)
		for i, a := range args {
			rf.WriteReg(uint8(i), a)
		}
		return handler.Handle()
	}

	writePath := func(addr uint64, path string) {
		memory.WriteBytes(addr, append([]byte(path), 0))
	}

	Describe("exit", func() {
		It("should terminate with the status in x0", func() {
			result := invoke(93, 17)

			Expect(result.Exited).To(BeTrue())
			Expect(result.ExitCode).To(Equal(int64(17)))
		})

		It("should treat exit_group the same way", func() {
			result := invoke(94, 3)

			Expect(result.Exited).To(BeTrue())
			Expect(result.ExitCode).To(Equal(int64(3)))
		})
	})

	Describe("write", func() {
		It("should route fd 1 to stdout", func() {
			memory.WriteBytes(0x3000, []byte("hello"))
			invoke(64, 1, 0x3000, 5)

			Expect(stdoutBuf.String()).To(Equal("hello"))
			Expect(rf.ReadReg(0)).To(Equal(uint64(5)))
		})

		It("should route fd 2 to stderr", func() {
			memory.WriteBytes(0x3000, []byte("oops"))
			invoke(64, 2, 0x3000, 4)

			Expect(stderrBuf.String()).To(Equal("oops"))
		})

		It("should return EBADF for an unopened descriptor", func() {
			invoke(64, 7, 0x3000, 1)

			Expect(int64(rf.ReadReg(0))).To(Equal(int64(-9)))
		})
	})

	Describe("read", func() {
		It("should return zero bytes with no stdin attached", func() {
			invoke(63, 0, 0x3000, 16)

			Expect(rf.ReadReg(0)).To(Equal(uint64(0)))
		})

		It("should copy stdin bytes into simulated memory", func() {
			handler.SetStdin(strings.NewReader("abc"))
			invoke(63, 0, 0x3000, 16)

			Expect(rf.ReadReg(0)).To(Equal(uint64(3)))
			Expect(memory.ReadBytes(0x3000, 3)).To(Equal([]byte("abc")))
		})
	})

	Describe("file descriptors", func() {
		It("should round-trip a file through openat, write, and read", func() {
			path := filepath.Join(GinkgoT().TempDir(), "out.txt")
			writePath(0x3000, path)

			// O_WRONLY | O_CREAT
			invoke(56, atFDCWD, 0x3000, 0x41, 0644)
			fd := rf.ReadReg(0)
			Expect(fd).To(BeNumerically(">=", 3))

			memory.WriteBytes(0x4000, []byte("payload"))
			invoke(64, fd, 0x4000, 7)
			Expect(rf.ReadReg(0)).To(Equal(uint64(7)))

			invoke(57, fd)
			Expect(rf.ReadReg(0)).To(Equal(uint64(0)))

			// Reopen read-only and read the contents back.
			invoke(56, atFDCWD, 0x3000, 0, 0)
			fd = rf.ReadReg(0)

			invoke(63, fd, 0x5000, 32)
			Expect(rf.ReadReg(0)).To(Equal(uint64(7)))
			Expect(memory.ReadBytes(0x5000, 7)).To(Equal([]byte("payload")))
		})

		It("should seek within an open file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "seek.txt")
			writePath(0x3000, path)

			invoke(56, atFDCWD, 0x3000, 0x41, 0644)
			fd := rf.ReadReg(0)

			memory.WriteBytes(0x4000, []byte("abcdef"))
			invoke(64, fd, 0x4000, 6)

			invoke(62, fd, 2, 0) // SEEK_SET
			Expect(rf.ReadReg(0)).To(Equal(uint64(2)))
		})

		It("should reject a seek with a bad whence", func() {
			invoke(62, 3, 0, 9)

			Expect(int64(rf.ReadReg(0))).To(Equal(int64(-22)))
		})

		It("should reject dirfds other than AT_FDCWD", func() {
			writePath(0x3000, "whatever")
			invoke(56, 5, 0x3000, 0, 0)

			Expect(int64(rf.ReadReg(0))).To(Equal(int64(-9)))
		})

		It("should return ENOENT for a missing file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "missing.txt")
			writePath(0x3000, path)
			invoke(56, atFDCWD, 0x3000, 0, 0)

			Expect(int64(rf.ReadReg(0))).To(Equal(int64(-2)))
		})

		It("should return EBADF when closing an unopened descriptor", func() {
			invoke(57, 9)

			Expect(int64(rf.ReadReg(0))).To(Equal(int64(-9)))
		})
	})

	Describe("brk", func() {
		It("should track the program break", func() {
			invoke(214, 0)
			Expect(rf.ReadReg(0)).To(Equal(uint64(0)))

			invoke(214, 0x5000)
			Expect(rf.ReadReg(0)).To(Equal(uint64(0x5000)))

			invoke(214, 0)
			Expect(rf.ReadReg(0)).To(Equal(uint64(0x5000)))
		})
	})

	Describe("unknown syscalls", func() {
		It("should return ENOSYS", func() {
			invoke(9999)

			Expect(int64(rf.ReadReg(0))).To(Equal(int64(-38)))
		})
	})
})
