package sequences

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	require.Equal(t, "JE-0042", Format("JE", 42, 4))
	require.Equal(t, "CN-0042", Format("CN-", 42, 4))
	require.Equal(t, "RF-000007", Format("RF", 7, 6))
	require.Equal(t, "0042", Format("", 42, 4))
}

func TestFormatDefaultsPadding(t *testing.T) {
	require.Equal(t, "JE-0001", Format("JE", 1, 0))
	require.Equal(t, "JE-0001", Format("JE", 1, -3))
}

func TestFormatOverflowsPadding(t *testing.T) {
	// Counters past the pad width keep all digits.
	require.Equal(t, "JE-12345", Format("JE", 12345, 4))
}
