package codec

// NoopCompressor is the identity Compressor — useful in tests that want to
// assert on raw stored bytes without zstd framing getting in the way.
type NoopCompressor struct{}

func (NoopCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (NoopCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
