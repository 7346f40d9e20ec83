package socketcan

import (
	"encoding/binary"
	"fmt"

	"github.com/kstaniek/go-cansock/internal/can"
)

// struct can_frame (linux/can.h):
//
//	can_id  u32   [0:4]  (includes EFF/RTR/ERR flags)
//	len     u8    [4]
//	pad/res 3B    [5:8]
//	data    [8]   [8:16]
//
// The kernel uses host byte order for can_id.

// EncodeFrame writes a classic frame into dst. Unused pad and data bytes are
// zeroed. Payloads longer than CAN_MAX_DLEN are rejected, never clamped.
func EncodeFrame(dst *[can.CAN_MTU]byte, id uint32, payload []byte) error {
	if len(payload) > can.CAN_MAX_DLEN {
		return invalidArgument("encode", fmt.Sprintf("payload of %d bytes exceeds %d", len(payload), can.CAN_MAX_DLEN))
	}
	*dst = [can.CAN_MTU]byte{}
	binary.NativeEndian.PutUint32(dst[0:4], id)
	dst[4] = uint8(len(payload))
	copy(dst[can.HeaderLen:], payload)
	return nil
}

// DecodeFrame rebuilds a frame from the first n bytes the kernel delivered
// into buf. Reads shorter than the header are fatal (ErrTruncatedFrame);
// anything longer is clamped: the payload is min(len, n-HeaderLen) bytes,
// with len itself capped at CAN_MAX_DLEN.
func DecodeFrame(buf []byte, n int, ifindex int) (can.Frame, error) {
	var f can.Frame
	if n > len(buf) {
		n = len(buf)
	}
	if n < can.HeaderLen {
		return f, &Error{Op: "decode", Kind: KindTruncatedFrame, Msg: fmt.Sprintf("got %d bytes, header needs %d", n, can.HeaderLen)}
	}
	f.Ifindex = ifindex
	f.CANID = binary.NativeEndian.Uint32(buf[0:4])
	ln := min(int(buf[4]), can.CAN_MAX_DLEN, n-can.HeaderLen)
	f.Len = uint8(ln)
	copy(f.Data[:], buf[can.HeaderLen:can.HeaderLen+ln])
	return f, nil
}
