package socketcan

import (
	"errors"
	"strings"
)

// Kind classifies a socket failure.
type Kind uint8

const (
	// KindIO is any failed kernel call (socket, bind, send, receive, ioctl, sockopt).
	KindIO Kind = iota + 1
	// KindInvalidArgument is a precondition violated before any kernel call.
	KindInvalidArgument
	// KindProtocolViolation is a kernel reply that breaks the expected wire contract.
	KindProtocolViolation
	// KindPartialWrite means fewer than CAN_MTU bytes were sent.
	KindPartialWrite
	// KindTruncatedFrame means a received datagram was shorter than the frame header.
	KindTruncatedFrame
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindProtocolViolation:
		return "protocol_violation"
	case KindPartialWrite:
		return "partial_write"
	case KindTruncatedFrame:
		return "truncated_frame"
	default:
		return "unknown"
	}
}

// Sentinel errors used for classification via errors.Is.
var (
	ErrIO                = errors.New("socketcan: i/o error")
	ErrInvalidArgument   = errors.New("socketcan: invalid argument")
	ErrProtocolViolation = errors.New("socketcan: protocol violation")
	ErrPartialWrite      = errors.New("socketcan: partial frame written")
	ErrTruncatedFrame    = errors.New("socketcan: truncated frame received")
)

var kindSentinels = map[Kind]error{
	KindIO:                ErrIO,
	KindInvalidArgument:   ErrInvalidArgument,
	KindProtocolViolation: ErrProtocolViolation,
	KindPartialWrite:      ErrPartialWrite,
	KindTruncatedFrame:    ErrTruncatedFrame,
}

// Error is the error type returned by every Socket operation.
// Err is the captured OS error (a unix.Errno for KindIO) and may be nil
// for kinds detected locally; Msg carries the local detail in that case.
// The message is only built when Error is called.
type Error struct {
	Op   string
	Kind Kind
	Err  error
	Msg  string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("socketcan: ")
	b.WriteString(e.Op)
	b.WriteString(": ")
	switch {
	case e.Msg != "" && e.Err != nil:
		b.WriteString(e.Msg)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Msg != "":
		b.WriteString(e.Msg)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Kind.String())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

func ioError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: KindIO, Err: err}
}

func invalidArgument(op, msg string) error {
	return &Error{Op: op, Kind: KindInvalidArgument, Msg: msg}
}

func protocolViolation(op, msg string) error {
	return &Error{Op: op, Kind: KindProtocolViolation, Msg: msg}
}

// KindOf returns the Kind of err, or 0 if err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsTimeout reports whether err is a receive timeout set with SetReadTimeout.
func IsTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
