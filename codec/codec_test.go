package codec_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkerhalil/kvlite/codec"
)

type sample struct {
	Name  string
	Count int
}

func TestGobSerializerRoundTrip(t *testing.T) {
	ser := codec.GobSerializer{}
	in := sample{Name: "widget", Count: 7}

	data, err := ser.Encode(in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, ser.Decode(data, &out))
	assert.Equal(t, in, out)
}

func TestZstdCompressorRoundTrip(t *testing.T) {
	comp := codec.ZstdCompressor{}
	raw := []byte(strings.Repeat("abcdefgh", 1024))

	packed, err := comp.Compress(raw)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(raw), "repetitive input should compress smaller")

	unpacked, err := comp.Decompress(packed)
	require.NoError(t, err)
	assert.Equal(t, raw, unpacked)
}

func TestPipelineSkipsCompressionBelowThreshold(t *testing.T) {
	p := &codec.Pipeline{
		Serializer:              codec.GobSerializer{},
		Compressor:              codec.ZstdCompressor{},
		MinLengthForCompression: 4096,
	}

	data, compressed, err := p.Encode(sample{Name: "tiny", Count: 1})
	require.NoError(t, err)
	assert.False(t, compressed)

	var out sample
	require.NoError(t, p.Decode(data, compressed, &out))
	assert.Equal(t, sample{Name: "tiny", Count: 1}, out)
}

func TestPipelineCompressesAboveThreshold(t *testing.T) {
	p := &codec.Pipeline{
		Serializer:              codec.GobSerializer{},
		Compressor:              codec.ZstdCompressor{},
		MinLengthForCompression: 8,
	}

	big := strings.Repeat("payload-", 256)
	data, compressed, err := p.Encode(sample{Name: big, Count: 99})
	require.NoError(t, err)
	assert.True(t, compressed)

	var out sample
	require.NoError(t, p.Decode(data, compressed, &out))
	assert.Equal(t, big, out.Name)
	assert.Equal(t, 99, out.Count)
}

func TestPipelineDecodeWithoutCompressorErrors(t *testing.T) {
	p := &codec.Pipeline{Serializer: codec.GobSerializer{}}
	var out sample
	err := p.Decode([]byte("whatever"), true, &out)
	assert.Error(t, err)
}

func TestNoopCompressorIsIdentity(t *testing.T) {
	n := codec.NoopCompressor{}
	raw := []byte("same bytes in, same bytes out")
	packed, err := n.Compress(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, packed)

	unpacked, err := n.Decompress(packed)
	require.NoError(t, err)
	assert.Equal(t, raw, unpacked)
}
