package transport

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBodyReader(t *testing.T) {
	payload := []byte(strings.Repeat("shared state round trip ", 64))

	encoders := map[string]func(t *testing.T) []byte{
		"gzip": func(t *testing.T) []byte {
			var buf bytes.Buffer
			w := gzip.NewWriter(&buf)
			_, err := w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())
			return buf.Bytes()
		},
		"deflate": func(t *testing.T) []byte {
			var buf bytes.Buffer
			w := zlib.NewWriter(&buf)
			_, err := w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())
			return buf.Bytes()
		},
		"br": func(t *testing.T) []byte {
			var buf bytes.Buffer
			w := brotli.NewWriter(&buf)
			_, err := w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())
			return buf.Bytes()
		},
		"zstd": func(t *testing.T) []byte {
			var buf bytes.Buffer
			w, err := zstd.NewWriter(&buf)
			require.NoError(t, err)
			_, err = w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())
			return buf.Bytes()
		},
	}

	for encoding, encode := range encoders {
		t.Run(encoding, func(t *testing.T) {
			body, err := NewBodyReader(encoding, bytes.NewReader(encode(t)))
			require.NoError(t, err)
			defer body.Close()

			got, err := io.ReadAll(body)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}

	t.Run("identity passthrough", func(t *testing.T) {
		for _, encoding := range []string{"", "identity", " Identity "} {
			body, err := NewBodyReader(encoding, bytes.NewReader(payload))
			require.NoError(t, err)
			got, err := io.ReadAll(body)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		}
	})

	t.Run("unsupported encoding", func(t *testing.T) {
		_, err := NewBodyReader("compress", bytes.NewReader(payload))
		assert.Error(t, err)
	})
}
