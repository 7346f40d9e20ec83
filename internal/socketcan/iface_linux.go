//go:build linux

package socketcan

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/kstaniek/go-cansock/internal/can"
)

func checkIfName(op, name string) error {
	if len(name) > can.IFNAMSIZ-1 {
		return invalidArgument(op, fmt.Sprintf("interface name %q is %d bytes, max %d", name, len(name), can.IFNAMSIZ-1))
	}
	return nil
}

// ifreq runs one interface ioctl on the socket. name may be empty for
// requests keyed by index.
func (s *Socket) ifreq(op string, req uint, name string, in uint32) (*unix.Ifreq, error) {
	if err := checkIfName(op, name); err != nil {
		return nil, err
	}
	fd, err := s.acquire(op)
	if err != nil {
		return nil, err
	}
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return nil, invalidArgument(op, err.Error())
	}
	if in != 0 {
		ifr.SetUint32(in)
	}
	if err := sysIoctlIfreq(fd, req, ifr); err != nil {
		return nil, &Error{Op: op, Kind: KindIO, Err: err, Msg: describeIf(name, in)}
	}
	return ifr, nil
}

func describeIf(name string, index uint32) string {
	if name != "" {
		return fmt.Sprintf("interface %q", name)
	}
	return fmt.Sprintf("interface #%d", index)
}

// InterfaceIndex resolves an interface name to its kernel index.
func (s *Socket) InterfaceIndex(name string) (int, error) {
	ifr, err := s.ifreq("ioctl(SIOCGIFINDEX)", unix.SIOCGIFINDEX, name, 0)
	if err != nil {
		return 0, err
	}
	return int(int32(ifr.Uint32())), nil
}

// InterfaceName resolves an interface index to its name. Index 0 is the
// AllInterfaces wildcard and negative indexes never name a device, so both
// fail with ErrInvalidArgument before any ioctl; an unknown positive index
// is an ErrIO from the kernel.
func (s *Socket) InterfaceName(index int) (string, error) {
	if index <= 0 {
		return "", invalidArgument("ioctl(SIOCGIFNAME)", fmt.Sprintf("interface index %d", index))
	}
	ifr, err := s.ifreq("ioctl(SIOCGIFNAME)", unix.SIOCGIFNAME, "", uint32(index))
	if err != nil {
		return "", err
	}
	return ifr.Name(), nil
}

// InterfaceMTU returns the MTU of the named interface: CAN_MTU for classic
// CAN, CANFD_MTU for FD-capable interfaces.
func (s *Socket) InterfaceMTU(name string) (int, error) {
	ifr, err := s.ifreq("ioctl(SIOCGIFMTU)", unix.SIOCGIFMTU, name, 0)
	if err != nil {
		return 0, err
	}
	return int(int32(ifr.Uint32())), nil
}

// Interface resolves name into an index/name pair.
func (s *Socket) Interface(name string) (can.Interface, error) {
	idx, err := s.InterfaceIndex(name)
	if err != nil {
		return can.Interface{}, err
	}
	return can.Interface{Index: idx, Name: name}, nil
}
