//go:build linux

package socketcan

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kstaniek/go-cansock/internal/can"
	"github.com/kstaniek/go-cansock/internal/logging"
)

// Socket is a PF_CAN socket. The mutex only guards fd and state; blocking
// send/receive run without it so Close may be called from another goroutine.
type Socket struct {
	mu      sync.Mutex
	fd      int
	mode    Mode
	state   state
	ifindex int
}

// OpenRaw opens a raw CAN socket (SOCK_RAW, CAN_RAW).
func OpenRaw() (*Socket, error) { return open(ModeRaw, unix.SOCK_RAW, unix.CAN_RAW) }

// OpenBCM opens a broadcast manager socket (SOCK_DGRAM, CAN_BCM).
func OpenBCM() (*Socket, error) { return open(ModeBCM, unix.SOCK_DGRAM, unix.CAN_BCM) }

func open(mode Mode, typ, proto int) (*Socket, error) {
	fd, err := unix.Socket(unix.AF_CAN, typ|unix.SOCK_CLOEXEC, proto)
	if err != nil {
		return nil, ioError("socket", err)
	}
	logging.L().Debug("socket_open", "fd", fd, "mode", mode.String())
	return &Socket{fd: fd, mode: mode}, nil
}

// acquire returns the fd of a socket that is not closed.
func (s *Socket) acquire(op string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateClosed {
		return -1, ioError(op, unix.EBADF)
	}
	return s.fd, nil
}

// Close releases the descriptor. The socket is closed even if close(2)
// reports an error; any further call, Close included, fails with EBADF.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return ioError("close", unix.EBADF)
	}
	fd := s.fd
	s.state = stateClosed
	s.fd = -1
	s.mu.Unlock()
	logging.L().Debug("socket_close", "fd", fd)
	return ioError("close", unix.Close(fd))
}

// Bind attaches the socket to ifindex, or to every interface for
// AllInterfaces. A socket can be bound once.
func (s *Socket) Bind(ifindex int) error {
	if ifindex < 0 {
		return invalidArgument("bind", fmt.Sprintf("negative interface index %d", ifindex))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateClosed:
		return ioError("bind", unix.EBADF)
	case stateBound:
		return invalidArgument("bind", fmt.Sprintf("already bound to interface #%d", s.ifindex))
	}
	if err := unix.Bind(s.fd, &unix.SockaddrCAN{Ifindex: ifindex}); err != nil {
		return ioError("bind", err)
	}
	s.state = stateBound
	s.ifindex = ifindex
	logging.L().Debug("socket_bind", "fd", s.fd, "ifindex", ifindex)
	return nil
}

// Fd returns the descriptor, or -1 once closed.
func (s *Socket) Fd() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fd
}

func (s *Socket) Mode() Mode { return s.mode }

// BoundIndex returns the interface index passed to Bind and whether the
// socket is currently bound.
func (s *Socket) BoundIndex() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ifindex, s.state == stateBound
}

// SetOption sets an int option at level SOL_CAN_RAW.
func (s *Socket) SetOption(opt int, v int32) error {
	fd, err := s.acquire("setsockopt")
	if err != nil {
		return err
	}
	return ioError("setsockopt", unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, opt, int(v)))
}

// GetOption reads an int option at level SOL_CAN_RAW. A reply whose length
// is not that of an int is a protocol violation and its value is dropped.
func (s *Socket) GetOption(opt int) (int32, error) {
	fd, err := s.acquire("getsockopt")
	if err != nil {
		return 0, err
	}
	v, size, err := sysGetsockopt(fd, unix.SOL_CAN_RAW, opt)
	if err != nil {
		return 0, ioError("getsockopt", err)
	}
	if size != 4 {
		return 0, protocolViolation("getsockopt", fmt.Sprintf("option %d returned %d bytes, want 4", opt, size))
	}
	return v, nil
}

func boolOpt(on bool) int32 {
	if on {
		return 1
	}
	return 0
}

// SetLoopback controls whether sent frames are looped back to other local sockets.
func (s *Socket) SetLoopback(on bool) error {
	return s.SetOption(can.CAN_RAW_LOOPBACK, boolOpt(on))
}

func (s *Socket) Loopback() (bool, error) {
	v, err := s.GetOption(can.CAN_RAW_LOOPBACK)
	return v != 0, err
}

// SetRecvOwnMsgs controls whether the socket receives the frames it sent.
func (s *Socket) SetRecvOwnMsgs(on bool) error {
	return s.SetOption(can.CAN_RAW_RECV_OWN_MSGS, boolOpt(on))
}

func (s *Socket) RecvOwnMsgs() (bool, error) {
	v, err := s.GetOption(can.CAN_RAW_RECV_OWN_MSGS)
	return v != 0, err
}

// SetFDFrames toggles CAN_RAW_FD_FRAMES. Kernels without FD support reject
// it with ENOPROTOOPT.
func (s *Socket) SetFDFrames(on bool) error {
	return s.SetOption(can.CAN_RAW_FD_FRAMES, boolOpt(on))
}

// SetErrorFilter selects which error classes (CAN_ERR_* bits) are delivered
// as error frames.
func (s *Socket) SetErrorFilter(mask uint32) error {
	return s.SetOption(can.CAN_RAW_ERR_FILTER, int32(mask&can.CAN_ERR_MASK))
}

// SetFilters replaces the receive filter list. An empty list receives nothing.
func (s *Socket) SetFilters(filters []can.Filter) error {
	fd, err := s.acquire("setsockopt")
	if err != nil {
		return err
	}
	kf := make([]unix.CanFilter, len(filters))
	for i, f := range filters {
		kf[i] = unix.CanFilter{Id: f.ID, Mask: f.Mask}
	}
	return ioError("setsockopt", unix.SetsockoptCanRawFilter(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, kf))
}

// SetReadTimeout bounds how long Receive blocks; zero waits forever.
// An expired wait is reported as an ErrIO for which IsTimeout is true.
func (s *Socket) SetReadTimeout(d time.Duration) error {
	if d < 0 {
		return invalidArgument("setsockopt", fmt.Sprintf("negative read timeout %s", d))
	}
	fd, err := s.acquire("setsockopt")
	if err != nil {
		return err
	}
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return ioError("setsockopt", unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv))
}

// Send writes one classic frame. With AllInterfaces the frame goes out on
// the bound interface; otherwise ifindex is the explicit destination.
func (s *Socket) Send(ifindex int, id uint32, payload []byte) error {
	if ifindex < 0 {
		return invalidArgument("sendto", fmt.Sprintf("negative interface index %d", ifindex))
	}
	var buf [can.CAN_MTU]byte
	if err := EncodeFrame(&buf, id, payload); err != nil {
		return withOp(err, "sendto")
	}
	fd, err := s.acquire("sendto")
	if err != nil {
		return err
	}
	var to unix.Sockaddr
	if ifindex != AllInterfaces {
		to = &unix.SockaddrCAN{Ifindex: ifindex}
	}
	n, err := sysSendmsg(fd, buf[:], nil, to, 0)
	if err != nil {
		return ioError("sendto", err)
	}
	if n != can.CAN_MTU {
		return &Error{Op: "sendto", Kind: KindPartialWrite, Msg: fmt.Sprintf("wrote %d of %d bytes", n, can.CAN_MTU)}
	}
	return nil
}

// SendFrame sends fr to fr.Ifindex (AllInterfaces for the bound interface).
func (s *Socket) SendFrame(fr can.Frame) error {
	return s.Send(fr.Ifindex, fr.CANID, fr.Payload())
}

// Receive blocks until one frame arrives. The frame carries the index of
// the interface it was received on and the raw identifier, flags included.
func (s *Socket) Receive() (can.Frame, error) {
	fd, err := s.acquire("recvfrom")
	if err != nil {
		return can.Frame{}, err
	}
	var buf [can.CAN_MTU]byte
	n, rsa, alen, err := sysRecvfrom(fd, buf[:])
	if err != nil {
		return can.Frame{}, ioError("recvfrom", err)
	}
	if alen < minSockaddrCANLen || alen > unix.SizeofSockaddrCAN || rsa.Family != unix.AF_CAN {
		return can.Frame{}, protocolViolation("recvfrom",
			fmt.Sprintf("illegal source address (family %d, %d bytes)", rsa.Family, alen))
	}
	fr, err := DecodeFrame(buf[:], n, int(rsa.Ifindex))
	if err != nil {
		return can.Frame{}, withOp(err, "recvfrom")
	}
	return fr, nil
}

func withOp(err error, op string) error {
	if e, ok := err.(*Error); ok {
		e.Op = op
	}
	return err
}
