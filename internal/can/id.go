package can

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaskSFF returns the 11 bit standard frame address.
func MaskSFF(id uint32) uint32 { return id & CAN_SFF_MASK }

// MaskEFF returns the 29 bit extended frame address.
func MaskEFF(id uint32) uint32 { return id & CAN_EFF_MASK }

// MaskERR returns the error class bits of an error frame id.
func MaskERR(id uint32) uint32 { return id & CAN_ERR_MASK }

func IsEFF(id uint32) bool { return id&CAN_EFF_FLAG != 0 }
func IsRTR(id uint32) bool { return id&CAN_RTR_FLAG != 0 }
func IsERR(id uint32) bool { return id&CAN_ERR_FLAG != 0 }

func SetEFF(id uint32) uint32 { return id | CAN_EFF_FLAG }
func SetRTR(id uint32) uint32 { return id | CAN_RTR_FLAG }
func SetERR(id uint32) uint32 { return id | CAN_ERR_FLAG }

func ClearEFF(id uint32) uint32 { return id &^ CAN_EFF_FLAG }
func ClearRTR(id uint32) uint32 { return id &^ CAN_RTR_FLAG }
func ClearERR(id uint32) uint32 { return id &^ CAN_ERR_FLAG }

// FlagNames lists the flags set in id, in ERR, EFF, RTR order.
func FlagNames(id uint32) []string {
	var out []string
	if IsERR(id) {
		out = append(out, "ERR")
	}
	if IsEFF(id) {
		out = append(out, "EFF")
	}
	if IsRTR(id) {
		out = append(out, "RTR")
	}
	return out
}

// FormatID renders the address part of id (29 bit when EFF is set, 11 bit
// otherwise) followed by any flags, e.g. "0x123" or "0x1ABCDE [EFF,RTR]".
func FormatID(id uint32) string {
	addr := MaskSFF(id)
	if IsEFF(id) {
		addr = MaskEFF(id)
	}
	s := fmt.Sprintf("0x%X", addr)
	if flags := FlagNames(id); len(flags) > 0 {
		s += " [" + strings.Join(flags, ",") + "]"
	}
	return s
}

// ErrBadFrameSpec is returned by ParseFrame for malformed input.
var ErrBadFrameSpec = errors.New("can: bad frame spec")

// ParseFrame parses the candump/cansend notation "<id>#<data>".
// Three hex digits give a standard id, eight give an extended id (EFF set).
// Data is up to 8 hex byte pairs, optionally separated by '.' between whole
// bytes; "R" instead
// of data requests a remote frame.
func ParseFrame(spec string) (Frame, error) {
	var f Frame
	idPart, dataPart, ok := strings.Cut(spec, "#")
	if !ok {
		return f, fmt.Errorf("%w: missing '#' in %q", ErrBadFrameSpec, spec)
	}
	id, err := strconv.ParseUint(idPart, 16, 32)
	if err != nil {
		return f, fmt.Errorf("%w: id %q: %v", ErrBadFrameSpec, idPart, err)
	}
	switch len(idPart) {
	case 3:
		if id > CAN_SFF_MASK {
			return f, fmt.Errorf("%w: standard id %q out of range", ErrBadFrameSpec, idPart)
		}
		f.CANID = uint32(id)
	case 8:
		if id > CAN_EFF_MASK {
			return f, fmt.Errorf("%w: extended id %q out of range", ErrBadFrameSpec, idPart)
		}
		f.CANID = SetEFF(uint32(id))
	default:
		return f, fmt.Errorf("%w: id %q must have 3 or 8 hex digits", ErrBadFrameSpec, idPart)
	}
	if strings.EqualFold(dataPart, "R") {
		f.CANID = SetRTR(f.CANID)
		return f, nil
	}
	digits := 0
	for i := 0; i < len(dataPart); i++ {
		if dataPart[i] != '.' {
			digits++
		} else if digits%2 != 0 {
			return f, fmt.Errorf("%w: '.' inside a data byte in %q", ErrBadFrameSpec, dataPart)
		}
	}
	hex := strings.ReplaceAll(dataPart, ".", "")
	if len(hex)%2 != 0 {
		return f, fmt.Errorf("%w: odd number of data digits in %q", ErrBadFrameSpec, dataPart)
	}
	if len(hex)/2 > CAN_MAX_DLEN {
		return f, fmt.Errorf("%w: %w", ErrBadFrameSpec, ErrPayloadTooLong)
	}
	for i := 0; i < len(hex); i += 2 {
		b, err := strconv.ParseUint(hex[i:i+2], 16, 8)
		if err != nil {
			return f, fmt.Errorf("%w: data %q: %v", ErrBadFrameSpec, dataPart, err)
		}
		f.Data[i/2] = byte(b)
	}
	f.Len = uint8(len(hex) / 2)
	return f, nil
}
