package can

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsOnZeroAndAllOnes(t *testing.T) {
	var zero uint32
	all := uint32(0xFFFFFFFF)

	assert.False(t, IsEFF(zero))
	assert.False(t, IsRTR(zero))
	assert.False(t, IsERR(zero))
	assert.True(t, IsEFF(all))
	assert.True(t, IsRTR(all))
	assert.True(t, IsERR(all))

	id := SetEFF(zero)
	assert.True(t, IsEFF(id))
	assert.False(t, IsEFF(ClearEFF(id)))

	id = SetRTR(zero)
	assert.True(t, IsRTR(id))
	assert.False(t, IsRTR(ClearRTR(id)))

	id = SetERR(zero)
	assert.True(t, IsERR(id))
	assert.False(t, IsERR(ClearERR(id)))

	assert.Equal(t, uint32(0), MaskEFF(zero))
}

func TestSetEFFKnownValues(t *testing.T) {
	assert.Equal(t, uint32(0x80000123), SetEFF(0x123))
	assert.Equal(t, uint32(0x123), MaskEFF(0x80000123))
	assert.Equal(t, uint32(0x123), MaskSFF(0xC0000123))
	assert.Equal(t, uint32(0x00000004), MaskERR(SetERR(0x4)))
}

func TestFlagHelpersPreserveAddressBits(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		x := r.Uint32()
		require.Equal(t, MaskSFF(x), MaskSFF(SetEFF(x)))
		require.Equal(t, MaskEFF(x), MaskEFF(SetRTR(x)))
		require.Equal(t, x&^uint32(CAN_EFF_FLAG), ClearEFF(SetEFF(x)))
		require.Equal(t, x&^uint32(CAN_RTR_FLAG), ClearRTR(SetRTR(x)))
		require.Equal(t, x&^uint32(CAN_ERR_FLAG), ClearERR(SetERR(x)))
		require.Equal(t, x|CAN_ERR_FLAG, SetERR(ClearERR(x)))
	}
}

func TestFormatID(t *testing.T) {
	assert.Equal(t, "0x123", FormatID(0x123))
	assert.Equal(t, "0x1ABCDE [EFF]", FormatID(SetEFF(0x1ABCDE)))
	assert.Equal(t, "0x7FF [RTR]", FormatID(SetRTR(0xFFFF)))
	assert.Equal(t, "0x4 [ERR,EFF]", FormatID(SetEFF(SetERR(0x4))))
	assert.Nil(t, FlagNames(0x7FF))
}

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame("123#112233")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x123), f.CANID)
	assert.Equal(t, []byte{0x11, 0x22, 0x33}, f.Payload())

	f, err = ParseFrame("00012345#DE.AD.BE.EF")
	require.NoError(t, err)
	assert.Equal(t, SetEFF(0x12345), f.CANID)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, f.Payload())

	f, err = ParseFrame("7FF#")
	require.NoError(t, err)
	assert.Equal(t, uint8(0), f.Len)
	assert.NotNil(t, f.Payload())
	assert.Empty(t, f.Payload())

	f, err = ParseFrame("100#R")
	require.NoError(t, err)
	assert.True(t, IsRTR(f.CANID))
}

func TestParseFrameErrors(t *testing.T) {
	for _, spec := range []string{
		"123",
		"12#00",
		"800#00",
		"20000000#00",
		"123#0",
		"123#zz",
		"123#000102030405060708",
		"xyz#00",
		"123#1.122",
		"123#11.2.2",
	} {
		_, err := ParseFrame(spec)
		if !errors.Is(err, ErrBadFrameSpec) {
			t.Fatalf("%q: expected ErrBadFrameSpec, got %v", spec, err)
		}
	}
}

func FuzzParseFrame(f *testing.F) {
	for _, seed := range []string{"123#112233", "00012345#DE.AD.BE.EF", "7FF#", "100#R", "123#1.122", "#", ""} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, spec string) {
		fr, err := ParseFrame(spec)
		if err != nil {
			if !errors.Is(err, ErrBadFrameSpec) {
				t.Fatalf("%q: error not ErrBadFrameSpec: %v", spec, err)
			}
			return
		}
		if fr.Len > CAN_MAX_DLEN {
			t.Fatalf("%q: len %d", spec, fr.Len)
		}
		if IsRTR(fr.CANID) && fr.Len != 0 {
			t.Fatalf("%q: remote frame with payload", spec)
		}
		if !IsEFF(fr.CANID) && ClearRTR(fr.CANID) > CAN_SFF_MASK {
			t.Fatalf("%q: id %#x out of range", spec, fr.CANID)
		}
	})
}
