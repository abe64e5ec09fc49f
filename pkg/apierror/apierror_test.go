package apierror

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAPIErrorFormatting(t *testing.T) {
	t.Parallel()

	require.Equal(t, "BAD_REQUEST: invalid year", BadRequest("invalid year", "").Error())
	require.Equal(t, "UNSUPPORTED_TYPE: logo must be an image (text/plain)",
		UnsupportedMediaType("logo must be an image", "text/plain").Error())

	var nilErr *APIError
	require.Empty(t, nilErr.Error())
}

func TestAsFindsWrappedError(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("parse upload: %w", PayloadTooLarge(1024))

	apiErr, ok := As(wrapped)
	require.True(t, ok)
	require.Equal(t, http.StatusRequestEntityTooLarge, apiErr.HTTPStatus)
	require.Equal(t, "PAYLOAD_TOO_LARGE", apiErr.Code)

	_, ok = As(fmt.Errorf("plain"))
	require.False(t, ok)
}
