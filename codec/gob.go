package codec

import (
	"bytes"
	"encoding/gob"
	"errors"
)

var errNoCompressor = errors.New("codec: row marked compressed but no Compressor configured")

// GobSerializer is the default Serializer, a narrow wrapper around
// encoding/gob — the same two-function Encode/Decode shape
// neekrasov-kvdb's pkg/gob package uses.
type GobSerializer struct{}

func (GobSerializer) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobSerializer) Decode(data []byte, out any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(out)
}
