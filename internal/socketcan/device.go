//go:build linux

package socketcan

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/kstaniek/go-cansock/internal/can"
	"github.com/kstaniek/go-cansock/internal/metrics"
)

// Device is a raw socket bound to one interface (or all of them), ready
// for classic frame I/O.
type Device struct {
	sock *Socket
	ifi  can.Interface
}

// Open binds a classic raw socket to iface. An empty name or "any" binds to
// every interface.
func Open(iface string) (*Device, error) {
	s, err := OpenRaw()
	if err != nil {
		return nil, err
	}
	if err := s.SetFDFrames(false); err != nil {
		// Older kernels may not know this option.
		if !errors.Is(err, unix.ENOPROTOOPT) {
			return nil, errors.Join(fmt.Errorf("disable CAN FD: %w", err), s.Close())
		}
	}
	ifi := can.Interface{Index: AllInterfaces, Name: iface}
	if iface != "" && iface != "any" {
		if ifi, err = s.Interface(iface); err != nil {
			return nil, errors.Join(fmt.Errorf("if %q: %w", iface, err), s.Close())
		}
	}
	if err := s.Bind(ifi.Index); err != nil {
		return nil, errors.Join(fmt.Errorf("bind(can@%s): %w", ifi, err), s.Close())
	}
	return &Device{sock: s, ifi: ifi}, nil
}

// Socket exposes the underlying socket for option tuning.
func (d *Device) Socket() *Socket { return d.sock }

func (d *Device) Interface() can.Interface { return d.ifi }

func (d *Device) Close() error { return d.sock.Close() }

// ReadFrame reads one classic CAN frame.
func (d *Device) ReadFrame(fr *can.Frame) error {
	f, err := d.sock.Receive()
	if err != nil {
		if errors.Is(err, ErrTruncatedFrame) {
			metrics.IncTruncated()
		}
		return err
	}
	*fr = f
	return nil
}

// WriteFrame writes one classic CAN frame to fr.Ifindex, or to the bound
// interface when it is AllInterfaces.
func (d *Device) WriteFrame(fr can.Frame) error { return d.sock.SendFrame(fr) }
