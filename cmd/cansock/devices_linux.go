//go:build linux

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/kstaniek/go-cansock/internal/can"
	"github.com/kstaniek/go-cansock/internal/socketcan"
)

type dumpOptions struct {
	loopback bool
	own      bool
	filters  []can.Filter
	errMask  uint32
	timeout  time.Duration
}

// openDumpDevice is a hook for tests.
var openDumpDevice = func(iface string, o dumpOptions) (socketcan.Dev, error) {
	d, err := socketcan.Open(iface)
	if err != nil {
		return nil, err
	}
	if err := configureDump(d.Socket(), o); err != nil {
		return nil, errors.Join(err, d.Close())
	}
	return d, nil
}

func configureDump(s *socketcan.Socket, o dumpOptions) error {
	if err := s.SetLoopback(o.loopback); err != nil {
		return fmt.Errorf("loopback: %w", err)
	}
	if err := s.SetRecvOwnMsgs(o.own); err != nil {
		return fmt.Errorf("recv own msgs: %w", err)
	}
	if len(o.filters) > 0 {
		if err := s.SetFilters(o.filters); err != nil {
			return fmt.Errorf("filters: %w", err)
		}
	}
	if o.errMask != 0 {
		if err := s.SetErrorFilter(o.errMask); err != nil {
			return fmt.Errorf("error filter: %w", err)
		}
	}
	if err := s.SetReadTimeout(o.timeout); err != nil {
		return fmt.Errorf("read timeout: %w", err)
	}
	return nil
}

// queryInterface is a hook for tests.
var queryInterface = func(name string) (ifaceInfo, error) {
	s, err := socketcan.OpenRaw()
	if err != nil {
		return ifaceInfo{}, err
	}
	defer s.Close()
	ifi, err := s.Interface(name)
	if err != nil {
		return ifaceInfo{}, err
	}
	back, err := s.InterfaceName(ifi.Index)
	if err != nil {
		return ifaceInfo{}, err
	}
	mtu, err := s.InterfaceMTU(name)
	if err != nil {
		return ifaceInfo{}, err
	}
	info := ifaceInfo{Interface: ifi, KernelName: back, MTU: mtu, FD: socketcan.FDCapable(mtu)}
	if b, err := socketcan.OpenBCM(); err == nil {
		info.BCM = true
		_ = b.Close()
	}
	return info, nil
}
