package compressor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZstdRoundTrip(t *testing.T) {
	c, err := NewZstdCompressorWithConcurrency(2)
	require.NoError(t, err)
	defer c.Close()

	src := bytes.Repeat([]byte("RG3D visitor payload "), 256)
	packet, err := c.Compress(nil, src)
	require.NoError(t, err)
	assert.True(t, IsZstd(packet))
	assert.Less(t, len(packet), len(src))

	plain, err := c.Decompress(nil, packet)
	require.NoError(t, err)
	assert.Equal(t, src, plain)
}

func TestZstdMinCompressSize(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)
	defer c.Close()

	c.SetMinCompressSize(1024)
	src := []byte("small")
	packet, err := c.Compress(nil, src)
	require.NoError(t, err)
	assert.Equal(t, src, packet)
	assert.False(t, IsZstd(packet))
}

func TestZstdClosed(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)
	c.Close()
	c.Close()

	_, err = c.Compress(nil, []byte("x"))
	assert.Error(t, err)
	_, err = c.Decompress(nil, []byte("x"))
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	c, err := New("", 0)
	require.NoError(t, err)
	assert.Equal(t, NameNone, c.Name())

	c, err = New(" ZSTD ", 1)
	require.NoError(t, err)
	assert.Equal(t, NameZstd, c.Name())
	c.(*ZstdCompressor).Close()

	_, err = New("lz4", 0)
	assert.Error(t, err)
}

func TestNopCompressor(t *testing.T) {
	var c NopCompressor
	src := []byte("RG3D")
	out, err := c.Compress(nil, src)
	require.NoError(t, err)
	assert.Equal(t, src, out)
	out, err = c.Decompress(nil, src)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}
