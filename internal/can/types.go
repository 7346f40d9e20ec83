package can

import (
	"errors"
	"fmt"
)

// SocketCAN flag bits and masks for can_id (same values as <linux/can.h>).
const (
	CAN_EFF_FLAG = 0x80000000 // extended frame format (29 bit id)
	CAN_RTR_FLAG = 0x40000000 // remote transmission request
	CAN_ERR_FLAG = 0x20000000 // error message frame
	CAN_SFF_MASK = 0x000007FF
	CAN_EFF_MASK = 0x1FFFFFFF
	CAN_ERR_MASK = 0x1FFFFFFF // omit EFF, RTR, ERR flags
)

// Frame sizes (struct can_frame / struct canfd_frame).
const (
	CAN_MAX_DLEN = 8
	CAN_MTU      = 16
	CANFD_MTU    = 72
	// HeaderLen is offsetof(struct can_frame, data).
	HeaderLen = 8
)

// CAN_RAW socket options (level SOL_CAN_RAW, <linux/can/raw.h>).
const (
	CAN_RAW_FILTER        = 1
	CAN_RAW_ERR_FILTER    = 2
	CAN_RAW_LOOPBACK      = 3
	CAN_RAW_RECV_OWN_MSGS = 4
	CAN_RAW_FD_FRAMES     = 5
)

// IFNAMSIZ is the kernel interface name buffer size, terminator included.
const IFNAMSIZ = 16

// ErrPayloadTooLong is returned when a classic frame would carry more than 8 bytes.
var ErrPayloadTooLong = errors.New("can: payload longer than 8 bytes")

// Frame is a classic CAN frame as exchanged with a SocketCAN socket.
// CANID keeps the EFF/RTR/ERR flags in its upper bits like SocketCAN.
// Len is payload length (0..8); only the first Len bytes of Data are valid.
// Ifindex is the interface the frame was received on or is destined to
// (0 means "any" / the bound interface).
type Frame struct {
	Ifindex int
	CANID   uint32
	Len     uint8
	Data    [CAN_MAX_DLEN]byte
}

// NewFrame builds a frame from a payload slice.
func NewFrame(ifindex int, id uint32, payload []byte) (Frame, error) {
	var f Frame
	if len(payload) > CAN_MAX_DLEN {
		return f, fmt.Errorf("%w (%d)", ErrPayloadTooLong, len(payload))
	}
	f.Ifindex = ifindex
	f.CANID = id
	f.Len = uint8(len(payload))
	copy(f.Data[:], payload)
	return f, nil
}

// Payload returns a copy of the valid data bytes. It is never nil.
func (f Frame) Payload() []byte {
	n := int(f.Len)
	if n > CAN_MAX_DLEN {
		n = CAN_MAX_DLEN
	}
	return f.Data[:n]
}

func (f Frame) String() string {
	return fmt.Sprintf("if=%d id=%s len=%d data=% X", f.Ifindex, FormatID(f.CANID), f.Len, f.Payload())
}

// Interface pairs a kernel interface index with its name.
type Interface struct {
	Index int
	Name  string
}

func (i Interface) String() string {
	if i.Name == "" {
		return fmt.Sprintf("#%d", i.Index)
	}
	return fmt.Sprintf("%s(#%d)", i.Name, i.Index)
}

// Filter mirrors struct can_filter: a frame matches when
// received_can_id & Mask == ID & Mask.
type Filter struct {
	ID   uint32
	Mask uint32
}
