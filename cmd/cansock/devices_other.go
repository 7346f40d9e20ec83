//go:build !linux

package main

import (
	"errors"
	"time"

	"github.com/kstaniek/go-cansock/internal/can"
	"github.com/kstaniek/go-cansock/internal/socketcan"
)

var errUnsupported = errors.New("SocketCAN is only available on Linux")

type dumpOptions struct {
	loopback bool
	own      bool
	filters  []can.Filter
	errMask  uint32
	timeout  time.Duration
}

var openDumpDevice = func(iface string, o dumpOptions) (socketcan.Dev, error) { return nil, errUnsupported }

var queryInterface = func(name string) (ifaceInfo, error) { return ifaceInfo{}, errUnsupported }
