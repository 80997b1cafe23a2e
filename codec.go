package callcore

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
)

// isNil reports whether v is an untyped nil or a nil pointer/interface
// value, adapted from the teacher's clone-path nil guard for use ahead of
// marshalling: a nil message has no wire representation.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}

// Codec is the pluggable serializer/deserializer pair spec §1 calls out as
// an external collaborator ("wire serialization of individual messages
// ... treated as a pluggable serializer/deserializer pair"). The core never
// marshals bytes itself; it only calls Marshal/Unmarshal around the
// length-prefixed framing in framing.go.
//
// This mirrors the teacher's [Cloner] contract (cloner.go), adjusted from
// clone/copy semantics (appropriate for an in-process channel where both
// sides share an address space) to marshal/unmarshal semantics (appropriate
// once a real length-prefixed wire format separates the two ends).
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// ProtoCodec is the default [Codec], backed by
// [google.golang.org/protobuf/proto]. Non-proto messages are rejected;
// provide a custom [Codec] (e.g. via [CodecFunc]) for other message types.
type ProtoCodec struct{}

func (ProtoCodec) Name() string { return "proto" }

func (ProtoCodec) Marshal(v any) ([]byte, error) {
	if isNil(v) {
		return nil, fmt.Errorf("callcore: ProtoCodec cannot marshal a nil message")
	}
	msg, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("callcore: ProtoCodec cannot marshal %T: not a proto.Message", v)
	}
	return proto.Marshal(msg)
}

func (ProtoCodec) Unmarshal(data []byte, v any) error {
	msg, ok := v.(proto.Message)
	if !ok {
		return fmt.Errorf("callcore: ProtoCodec cannot unmarshal into %T: not a proto.Message", v)
	}
	return proto.Unmarshal(data, msg)
}

// codecFunc adapts a pair of functions to the [Codec] interface.
type codecFunc struct {
	name        string
	marshalFn   func(any) ([]byte, error)
	unmarshalFn func([]byte, any) error
}

func (c codecFunc) Name() string                       { return c.name }
func (c codecFunc) Marshal(v any) ([]byte, error)      { return c.marshalFn(v) }
func (c codecFunc) Unmarshal(data []byte, v any) error { return c.unmarshalFn(data, v) }

// CodecFunc builds a [Codec] from a name and a pair of marshal/unmarshal
// functions, for message types other than proto.Message.
func CodecFunc(name string, marshal func(any) ([]byte, error), unmarshal func([]byte, any) error) Codec {
	return codecFunc{name: name, marshalFn: marshal, unmarshalFn: unmarshal}
}
