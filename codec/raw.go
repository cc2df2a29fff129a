package codec

// Bytes is an identity codec for results that are already encoded (e.g. a
// raw response body kept as json.RawMessage).
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return append([]byte(nil), b...), nil }
