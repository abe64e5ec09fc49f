package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanLine(t *testing.T) {
	t.Parallel()

	t.Run("trims and strips control characters", func(t *testing.T) {
		require.Equal(t, "Badan Permusyawaratan Desa", CleanLine(" Badan\x00 Permusyawaratan\x07 Desa \n"))
	})

	t.Run("strips zero-width characters", func(t *testing.T) {
		require.Equal(t, "BPD", CleanLine("B\u200bP\u200dD\ufeff"))
	})

	t.Run("newlines are removed", func(t *testing.T) {
		require.Equal(t, "RT01", CleanLine("RT\n01"))
	})

	t.Run("keeps non-latin text", func(t *testing.T) {
		require.Equal(t, "Dusun Krajan 日本", CleanLine("Dusun Krajan 日本"))
	})
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Visi:\n\tMaju\nMisi", CleanText("  Visi:\r\n\tMaju\u200b\nMisi\x00  "))
	require.Empty(t, CleanText("\u200b \x01 "))
}
