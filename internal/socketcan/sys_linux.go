//go:build linux

package socketcan

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Syscall seams, replaced in tests to simulate kernel replies.
var (
	sysGetsockopt = getsockoptInt32
	sysRecvfrom   = recvfrom
	sysSendmsg    = unix.SendmsgN
	sysIoctlIfreq = unix.IoctlIfreq
)

// minSockaddrCANLen is CAN_REQUIRED_SIZE(struct sockaddr_can, can_ifindex):
// recent kernels report only this much of the source address for CAN_RAW.
const minSockaddrCANLen = 8

// getsockoptInt32 reads an int option and returns the length the kernel
// reported alongside the value, which unix.GetsockoptInt hides.
func getsockoptInt32(fd, level, opt int) (int32, uint32, error) {
	var v int32
	l := uint32(unsafe.Sizeof(v))
	_, _, e := unix.Syscall6(unix.SYS_GETSOCKOPT, uintptr(fd), uintptr(level), uintptr(opt),
		uintptr(unsafe.Pointer(&v)), uintptr(unsafe.Pointer(&l)), 0)
	if e != 0 {
		return 0, 0, e
	}
	return v, l, nil
}

// recvfrom is recvfrom(2) with the raw source address and its length, so
// the caller can check them against struct sockaddr_can.
func recvfrom(fd int, p []byte) (int, unix.RawSockaddrCAN, uint32, error) {
	var rsa unix.RawSockaddrCAN
	for {
		l := uint32(unix.SizeofSockaddrCAN)
		r, _, e := unix.Syscall6(unix.SYS_RECVFROM, uintptr(fd), uintptr(unsafe.Pointer(&p[0])), uintptr(len(p)), 0,
			uintptr(unsafe.Pointer(&rsa)), uintptr(unsafe.Pointer(&l)))
		if e == unix.EINTR {
			continue
		}
		if e != 0 {
			return 0, rsa, 0, e
		}
		return int(r), rsa, l, nil
	}
}
