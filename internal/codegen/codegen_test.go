package codegen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

var wantRe = regexp.MustCompile(`^CHM-\d{3}-\d{8}$`)

func TestNewCode_Format(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := NewCode(nil)
		require.NoError(t, err)
		require.Regexp(t, wantRe, code)
		require.True(t, Valid(code))
	}
}

func TestNewCode_RetriesOnCollision(t *testing.T) {
	rejected := 0
	code, err := NewCode(func(string) bool {
		// Reject the first 50 draws, then let one through.
		if rejected < 50 {
			rejected++
			return true
		}
		return false
	})
	require.NoError(t, err)
	require.Equal(t, 50, rejected)
	require.Regexp(t, wantRe, code)
}

func TestNewCode_Exhausted(t *testing.T) {
	_, err := NewCode(func(string) bool { return true })
	require.ErrorIs(t, err, ErrExhausted)
}

func TestValid(t *testing.T) {
	require.True(t, Valid("CHM-000-00000000"))
	require.True(t, Valid("CHM-482-00391021"))

	require.False(t, Valid("CHM-48-00391021"))
	require.False(t, Valid("CHM-4821-00391021"))
	require.False(t, Valid("CHM-482-0039102"))
	require.False(t, Valid("XYZ-482-00391021"))
	require.False(t, Valid("chm-482-00391021"))
	require.False(t, Valid(" CHM-482-00391021"))
	require.False(t, Valid(""))
}
