//go:build !linux

package socketcan

import (
	"errors"

	"github.com/kstaniek/go-cansock/internal/can"
)

// Socket is unavailable outside Linux; the constructors always fail.
type Socket struct{}

func OpenRaw() (*Socket, error) { return nil, ioError("socket", errors.ErrUnsupported) }

func OpenBCM() (*Socket, error) { return nil, ioError("socket", errors.ErrUnsupported) }

func (s *Socket) Close() error { return ioError("close", errors.ErrUnsupported) }

// Device is unavailable outside Linux.
type Device struct{}

func Open(iface string) (*Device, error) { return nil, ioError("socket", errors.ErrUnsupported) }

func (d *Device) Close() error                  { return ioError("close", errors.ErrUnsupported) }
func (d *Device) ReadFrame(*can.Frame) error    { return ioError("recvfrom", errors.ErrUnsupported) }
func (d *Device) WriteFrame(fr can.Frame) error { return ioError("sendto", errors.ErrUnsupported) }
