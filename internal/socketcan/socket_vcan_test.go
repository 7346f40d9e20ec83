//go:build linux

package socketcan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/kstaniek/go-cansock/internal/can"
)

const testIface = "vcan0"

func openRawOrSkip(t *testing.T) *Socket {
	t.Helper()
	s, err := OpenRaw()
	if err != nil {
		t.Skipf("PF_CAN unavailable: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func vcanIndexOrSkip(t *testing.T, s *Socket) int {
	t.Helper()
	idx, err := s.InterfaceIndex(testIface)
	if err != nil {
		t.Skipf("%s unavailable: %v", testIface, err)
	}
	return idx
}

func TestOpenBCMAndClose(t *testing.T) {
	s, err := OpenBCM()
	if err != nil {
		t.Skipf("CAN_BCM unavailable: %v", err)
	}
	assert.Equal(t, ModeBCM, s.Mode())
	assert.GreaterOrEqual(t, s.Fd(), 0)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), unix.EBADF)
}

func TestRawOptionsRoundTrip(t *testing.T) {
	s := openRawOrSkip(t)

	require.NoError(t, s.SetLoopback(false))
	lb, err := s.Loopback()
	require.NoError(t, err)
	assert.False(t, lb)

	require.NoError(t, s.SetRecvOwnMsgs(true))
	own, err := s.RecvOwnMsgs()
	require.NoError(t, err)
	assert.True(t, own)

	require.NoError(t, s.SetErrorFilter(can.CAN_ERR_MASK))
	require.NoError(t, s.SetFilters([]can.Filter{{ID: 0x123, Mask: can.CAN_SFF_MASK}}))
	require.NoError(t, s.SetReadTimeout(100*time.Millisecond))
}

func TestInterfaceRoundTrip(t *testing.T) {
	s := openRawOrSkip(t)
	idx := vcanIndexOrSkip(t, s)
	assert.Positive(t, idx)

	name, err := s.InterfaceName(idx)
	require.NoError(t, err)
	assert.Equal(t, testIface, name)

	mtu, err := s.InterfaceMTU(testIface)
	require.NoError(t, err)
	assert.Contains(t, []int{can.CAN_MTU, can.CANFD_MTU}, mtu)

	ifi, err := s.Interface(testIface)
	require.NoError(t, err)
	assert.Equal(t, can.Interface{Index: idx, Name: testIface}, ifi)
}

func TestSendReceiveVCAN(t *testing.T) {
	rx := openRawOrSkip(t)
	idx := vcanIndexOrSkip(t, rx)
	require.NoError(t, rx.Bind(idx))
	require.NoError(t, rx.SetReadTimeout(time.Second))
	assert.ErrorIs(t, rx.Bind(idx), ErrInvalidArgument)

	tx := openRawOrSkip(t)
	require.NoError(t, tx.Bind(idx))
	require.NoError(t, tx.Send(AllInterfaces, 0x123, []byte{0x11, 0x22, 0x33}))

	fr, err := rx.Receive()
	require.NoError(t, err)
	assert.Equal(t, idx, fr.Ifindex)
	assert.Equal(t, uint32(0x123), fr.CANID)
	assert.Equal(t, []byte{0x11, 0x22, 0x33}, fr.Payload())

	// Explicit destination from an unbound socket, extended id, empty payload.
	u := openRawOrSkip(t)
	require.NoError(t, u.Send(idx, can.SetEFF(0x1ABCDE), nil))
	fr, err = rx.Receive()
	require.NoError(t, err)
	assert.True(t, can.IsEFF(fr.CANID))
	assert.Equal(t, uint32(0x1ABCDE), can.MaskEFF(fr.CANID))
	assert.Empty(t, fr.Payload())
}

func TestReceiveTimesOut(t *testing.T) {
	rx := openRawOrSkip(t)
	idx := vcanIndexOrSkip(t, rx)
	require.NoError(t, rx.SetFilters(nil))
	require.NoError(t, rx.Bind(idx))
	require.NoError(t, rx.SetReadTimeout(20*time.Millisecond))
	_, err := rx.Receive()
	assert.True(t, IsTimeout(err), "got %v", err)
}

func TestDeviceWithTXWriter(t *testing.T) {
	probe := openRawOrSkip(t)
	vcanIndexOrSkip(t, probe)

	rx, err := Open(testIface)
	require.NoError(t, err)
	defer rx.Close()
	require.NoError(t, rx.Socket().SetReadTimeout(time.Second))

	tx, err := Open(testIface)
	require.NoError(t, err)
	defer tx.Close()
	assert.Equal(t, testIface, tx.Interface().Name)

	w := NewTXWriter(context.Background(), tx, 4)
	defer w.Close()
	fr, _ := can.NewFrame(AllInterfaces, 0x321, []byte{0xCA, 0xFE})
	require.NoError(t, w.SendFrame(fr))

	var got can.Frame
	require.NoError(t, rx.ReadFrame(&got))
	assert.Equal(t, uint32(0x321), got.CANID)
	assert.Equal(t, []byte{0xCA, 0xFE}, got.Payload())
}

func TestOpenUnknownInterfaceClosesSocket(t *testing.T) {
	openRawOrSkip(t)
	_, err := Open("nosuchcan0")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIO))
}
