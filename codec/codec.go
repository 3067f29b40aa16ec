// Package codec implements the value codec pipeline: a Serializer
// (object <-> byte stream) composed with an optional Compressor
// (byte stream <-> byte stream), consumed by the core through these two
// narrow interfaces.
package codec

// Serializer turns an arbitrary Go value into bytes and back. Encode
// failures are reported to the caller as an invalid argument; Decode
// failures are treated as internal and cause the offending row to be
// deleted.
type Serializer interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

// Compressor turns a byte stream into a (presumably smaller) byte stream
// and back. It is only invoked when the serialized length exceeds the
// configured MinValueLengthForCompression threshold.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// Pipeline is Serializer ∘ optional Compressor, both directions.
type Pipeline struct {
	Serializer Serializer
	Compressor Compressor

	// MinLengthForCompression is the byte threshold above which the
	// compressor runs. A value <= 0 disables compression entirely.
	MinLengthForCompression int
}

// Encode serializes v and compresses the result if it's long enough and a
// Compressor is configured. The compressed flag tells Decode which path to
// mirror.
func (p *Pipeline) Encode(v any) (data []byte, compressed bool, err error) {
	raw, err := p.Serializer.Encode(v)
	if err != nil {
		return nil, false, err
	}
	if p.Compressor == nil || p.MinLengthForCompression <= 0 || len(raw) <= p.MinLengthForCompression {
		return raw, false, nil
	}
	packed, err := p.Compressor.Compress(raw)
	if err != nil {
		return nil, false, err
	}
	return packed, true, nil
}

// Decode mirrors Encode: if compressed, the decompressor runs before the
// deserializer.
func (p *Pipeline) Decode(data []byte, compressed bool, out any) error {
	raw := data
	if compressed {
		if p.Compressor == nil {
			return errNoCompressor
		}
		decompressed, err := p.Compressor.Decompress(data)
		if err != nil {
			return err
		}
		raw = decompressed
	}
	return p.Serializer.Decode(raw, out)
}
