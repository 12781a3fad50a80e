package cloudinary

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestPublicID(t *testing.T) {
	require.Equal(t, "rocnik-2024-2025_serie-1.pdf", PublicID("rocnik 2024/2025_serie-1.pdf"))
	require.Equal(t, "brochure.pdf", PublicID(" // "))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "ksicht"}, zerolog.New(io.Discard))
	require.Error(t, err)
}
