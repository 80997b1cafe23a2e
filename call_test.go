package callcore

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func mustOpts(t *testing.T, opts ...CallOption) *CallOptions {
	t.Helper()
	cfg, err := NewCallOptions(opts...)
	require.NoError(t, err)
	return cfg
}

// stringCodec marshals the plain string messages these tests send; the
// default ProtoCodec rejects anything that is not a proto.Message.
var stringCodec = CodecFunc("string", func(v any) ([]byte, error) {
	return []byte(v.(string)), nil
}, func(data []byte, v any) error {
	*(v.(*string)) = string(data)
	return nil
})

func TestCall_UnarySuccess(t *testing.T) {
	stream := &fakeStream{}
	opts := mustOpts(t, WithCodec(stringCodec))
	call := NewUnaryCall(inlineExecutor{}, "/svc/Method", func() (Stream, error) {
		return stream, nil
	}, nil, opts)

	require.Nil(t, call.Invoke(context.Background()))
	require.Nil(t, call.Send("request", MessageOptions{}))
	require.Nil(t, call.End())

	require.Len(t, stream.written, 3)
	assert.Equal(t, RequestMetadata, stream.written[0].Kind)
	assert.Equal(t, RequestMessage, stream.written[1].Kind)
	assert.Equal(t, RequestEnd, stream.written[2].Kind)

	call.DeliverResponsePart(NewResponseMetadataPart(nil))
	call.DeliverResponsePart(NewResponseMessagePart("response"))
	call.DeliverResponsePart(NewResponseEndPart(OK, nil))

	result := <-call.Response().Response()
	assert.Equal(t, "response", result.message)

	st := <-call.Response().StatusChan()
	assert.True(t, st.OK())
}

func TestCall_InvokeTwiceIsInvalidState(t *testing.T) {
	call := NewUnaryCall(inlineExecutor{}, "/svc/Method", func() (Stream, error) {
		return &fakeStream{}, nil
	}, nil, mustOpts(t))

	require.Nil(t, call.Invoke(context.Background()))
	st := call.Invoke(context.Background())
	require.NotNil(t, st)
	assert.Equal(t, codes.FailedPrecondition, st.Code())
}

func TestCall_SendBeforeInvokeIsInvalidState(t *testing.T) {
	call := NewUnaryCall(inlineExecutor{}, "/svc/Method", func() (Stream, error) {
		return &fakeStream{}, nil
	}, nil, mustOpts(t))

	st := call.Send("x", MessageOptions{})
	require.NotNil(t, st)
	assert.Equal(t, codes.FailedPrecondition, st.Code())
}

func TestCall_SendAfterEndIsInvalidState(t *testing.T) {
	call := NewUnaryCall(inlineExecutor{}, "/svc/Method", func() (Stream, error) {
		return &fakeStream{}, nil
	}, nil, mustOpts(t))

	require.Nil(t, call.Invoke(context.Background()))
	require.Nil(t, call.End())
	st := call.Send("x", MessageOptions{})
	require.NotNil(t, st)
}

func TestCall_CancelBeforeInvokeIsSafe(t *testing.T) {
	call := NewUnaryCall(inlineExecutor{}, "/svc/Method", func() (Stream, error) {
		return &fakeStream{}, nil
	}, nil, mustOpts(t))

	call.Cancel(New(codes.Canceled, "gone"))

	st := <-call.Response().StatusChan()
	assert.Equal(t, codes.Canceled, st.Code())
}

func TestCall_DeadlineExceededCancelsCall(t *testing.T) {
	call := NewUnaryCall(inlineExecutor{}, "/svc/Method", func() (Stream, error) {
		return &fakeStream{}, nil
	}, nil, mustOpts(t, WithTimeout(5*time.Millisecond)))

	require.Nil(t, call.Invoke(context.Background()))

	select {
	case st := <-call.Response().StatusChan():
		assert.Equal(t, codes.DeadlineExceeded, st.Code())
	case <-time.After(time.Second):
		t.Fatal("deadline never triggered cancellation")
	}
}

func TestCall_InvokeUnaryRequestConvenienceWrapper(t *testing.T) {
	stream := &fakeStream{}
	call := NewUnaryCall(inlineExecutor{}, "/svc/Method", func() (Stream, error) {
		return stream, nil
	}, nil, mustOpts(t, WithCodec(stringCodec)))

	require.Nil(t, call.InvokeUnaryRequest(context.Background(), "req"))
	require.Len(t, stream.written, 3)
	assert.Equal(t, "req", stream.written[1].Message)
}

func TestCall_InvokeSetsGRPCTimeoutHeaderWhenDeadlineConfigured(t *testing.T) {
	stream := &fakeStream{}
	call := NewUnaryCall(inlineExecutor{}, "/svc/Method", func() (Stream, error) {
		return stream, nil
	}, nil, mustOpts(t, WithTimeout(time.Minute)))

	require.Nil(t, call.Invoke(context.Background()))
	require.Len(t, stream.written, 1)
	vals := stream.written[0].Metadata.Get("grpc-timeout")
	require.Len(t, vals, 1)
	assert.NotEmpty(t, vals[0])
}

func TestCall_InvokeOmitsGRPCTimeoutWithoutDeadline(t *testing.T) {
	stream := &fakeStream{}
	call := NewUnaryCall(inlineExecutor{}, "/svc/Method", func() (Stream, error) {
		return stream, nil
	}, nil, mustOpts(t))

	require.Nil(t, call.Invoke(context.Background()))
	require.Len(t, stream.written, 1)
	assert.Empty(t, stream.written[0].Metadata.Get("grpc-timeout"))
}

func TestCall_DeliverResponseBytesDecodesFramedMessages(t *testing.T) {
	var received []any
	call := NewServerStreamingCall(inlineExecutor{}, "/svc/Stream", func() (Stream, error) {
		return &fakeStream{}, nil
	}, nil, mustOpts(t), func(part ResponsePart) {
		if part.Kind == ResponseMessage {
			received = append(received, part.Message)
		}
	})

	var buf bytes.Buffer
	require.NoError(t, EncodeFrame(&buf, false, []byte("hello")))
	call.DeliverResponseBytes(buf.Bytes())

	require.Len(t, received, 1)
	assert.Equal(t, []byte("hello"), received[0])
}

func TestCall_DeliverResponseBytesRejectsOversizeFrame(t *testing.T) {
	var gotErr error
	call := NewServerStreamingCall(inlineExecutor{}, "/svc/Stream", func() (Stream, error) {
		return &fakeStream{}, nil
	}, nil, mustOpts(t, WithMaxReceiveMessageLength(2)), func(part ResponsePart) {
		if part.Kind == ResponseError {
			gotErr = part.Err
		}
	})

	var buf bytes.Buffer
	require.NoError(t, EncodeFrame(&buf, false, []byte("too big")))
	call.DeliverResponseBytes(buf.Bytes())

	require.Error(t, gotErr)
	assert.Equal(t, codes.ResourceExhausted, FromError(gotErr).Code())
}

func TestCall_DecodeIntoUnmarshalsRawPayload(t *testing.T) {
	call := NewUnaryCall(inlineExecutor{}, "/svc/Method", func() (Stream, error) {
		return &fakeStream{}, nil
	}, nil, mustOpts(t, WithCodec(CodecFunc("upper", nil, func(data []byte, v any) error {
		*(v.(*string)) = string(data) + "!"
		return nil
	}))))

	var dst string
	st := call.DecodeInto([]byte("hi"), &dst)
	require.Nil(t, st)
	assert.Equal(t, "hi!", dst)
}

func TestCall_ServerStreamingDeliversInOrder(t *testing.T) {
	var received []any
	stream := &fakeStream{}
	call := NewServerStreamingCall(inlineExecutor{}, "/svc/Stream", func() (Stream, error) {
		return stream, nil
	}, nil, mustOpts(t), func(part ResponsePart) {
		if part.Kind == ResponseMessage {
			received = append(received, part.Message)
		}
	})

	require.Nil(t, call.InvokeUnaryRequest(context.Background(), "req"))
	call.DeliverResponsePart(NewResponseMessagePart(1))
	call.DeliverResponsePart(NewResponseMessagePart(2))
	call.DeliverResponsePart(NewResponseEndPart(OK, nil))

	assert.Equal(t, []any{1, 2}, received)
}
