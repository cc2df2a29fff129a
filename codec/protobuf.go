package codec

import "google.golang.org/protobuf/proto"

// Protobuf is for resources whose client returns generated messages.
type Protobuf[T proto.Message] struct {
	new func() T // e.g. func() *pb.Customer { return &pb.Customer{} }
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}
