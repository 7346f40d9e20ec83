package socketcan

import "github.com/kstaniek/go-cansock/internal/can"

// AllInterfaces is the wildcard interface index. Bound to it, a raw socket
// receives from every CAN interface; passed to Send, it selects the
// interface the socket is bound to.
const AllInterfaces = 0

// Mode selects the CAN protocol of a socket.
type Mode int

const (
	ModeRaw Mode = iota + 1 // SOCK_RAW / CAN_RAW
	ModeBCM                 // SOCK_DGRAM / CAN_BCM
)

func (m Mode) String() string {
	switch m {
	case ModeRaw:
		return "raw"
	case ModeBCM:
		return "bcm"
	default:
		return "unknown"
	}
}

// state of a Socket. A nil *Socket is the unopened state.
type state uint8

const (
	stateUnbound state = iota
	stateBound
	stateClosed
)

// FDCapable reports whether an interface MTU (see Socket.InterfaceMTU)
// allows CAN FD frames.
func FDCapable(mtu int) bool { return mtu == can.CANFD_MTU }
