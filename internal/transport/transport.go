// Package transport holds the frame plumbing shared by device writers and
// the CLI: sinks and the single-goroutine asynchronous transmitter.
package transport

import "github.com/kstaniek/go-cansock/internal/can"

// FrameSink is a CAN frame transmission target.
type FrameSink interface {
	SendFrame(can.Frame) error
}

// FrameSource yields received CAN frames.
type FrameSource interface {
	ReadFrame(*can.Frame) error
}
