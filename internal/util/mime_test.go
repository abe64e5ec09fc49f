package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectDocument(t *testing.T) {
	t.Parallel()

	t.Run("pdf", func(t *testing.T) {
		mime, ext, ok := DetectDocument([]byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n"))
		require.True(t, ok)
		require.Equal(t, "application/pdf", mime)
		require.Equal(t, ".pdf", ext)
	})

	t.Run("png", func(t *testing.T) {
		_, ext, ok := DetectDocument([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
		require.True(t, ok)
		require.Equal(t, ".png", ext)
	})

	t.Run("plain text is rejected", func(t *testing.T) {
		mime, _, ok := DetectDocument([]byte("just some notes"))
		require.False(t, ok)
		require.Contains(t, mime, "text/plain")
	})

	t.Run("executables are rejected", func(t *testing.T) {
		_, _, ok := DetectDocument([]byte("MZ\x90\x00\x03\x00\x00\x00"))
		require.False(t, ok)
	})
}

func TestIsLogoFormat(t *testing.T) {
	t.Parallel()

	require.True(t, IsLogoFormat("png"))
	require.True(t, IsLogoFormat(" JPEG "))
	require.True(t, IsLogoFormat("webp"))
	require.False(t, IsLogoFormat("bmp"))
	require.False(t, IsLogoFormat(""))
	require.True(t, IsImageMIME("image/webp"))
	require.False(t, IsImageMIME("application/pdf"))
}
