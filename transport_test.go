package callcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_FirstWriteActivatesTransport(t *testing.T) {
	stream := &fakeStream{}
	tr := NewTransport(inlineExecutor{}, func() (Stream, error) {
		return stream, nil
	}, nil, nil)

	assert.Equal(t, TransportIdle, tr.State())
	st := tr.Write(NewMetadataPart(nil))
	require.Nil(t, st)
	assert.Equal(t, TransportActive, tr.State())
	require.Len(t, stream.written, 1)
	assert.Equal(t, RequestMetadata, stream.written[0].Kind)
}

func TestTransport_DrainsQueuedWritesOnActivation(t *testing.T) {
	stream := &fakeStream{}
	tr := NewTransport(inlineExecutor{}, func() (Stream, error) {
		return stream, nil
	}, nil, nil)

	tr.Write(NewMetadataPart(nil))
	tr.Write(NewMessagePart("m1", MessageOptions{}))
	tr.Write(EndPart)

	require.Len(t, stream.written, 3)
	assert.Equal(t, RequestMetadata, stream.written[0].Kind)
	assert.Equal(t, RequestMessage, stream.written[1].Kind)
	assert.Equal(t, RequestEnd, stream.written[2].Kind)
	assert.True(t, stream.closedSend)
}

func TestTransport_FactoryErrorClosesTransport(t *testing.T) {
	tr := NewTransport(inlineExecutor{}, func() (Stream, error) {
		return nil, assertError{}
	}, nil, nil)
	var closed *Status
	tr.OnClosed(func(st *Status) { closed = st })

	tr.Write(NewMetadataPart(nil))
	require.NotNil(t, closed)
	assert.Equal(t, TransportClosed, tr.State())
}

func TestTransport_WriteAfterCloseIsInvalidState(t *testing.T) {
	stream := &fakeStream{}
	tr := NewTransport(inlineExecutor{}, func() (Stream, error) { return stream, nil }, nil, nil)
	tr.Cancel(OK)

	st := tr.Write(NewMetadataPart(nil))
	require.NotNil(t, st)
}

func TestTransport_DeadlineFiresOnExpiry(t *testing.T) {
	tr := NewTransport(inlineExecutor{}, func() (Stream, error) { return &fakeStream{}, nil }, nil, nil)
	fired := make(chan struct{})
	tr.SetDeadline(time.Now().Add(10*time.Millisecond), func() {
		close(fired)
	})
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("deadline never fired")
	}
}

func TestTransport_PeerRecordedOnActivation(t *testing.T) {
	stream := &fakeStream{peer: &PeerInfo{Addr: nil}}
	tr := NewTransport(inlineExecutor{}, func() (Stream, error) { return stream, nil }, nil, nil)
	tr.Write(NewMetadataPart(nil))
	assert.Same(t, stream.peer, tr.peer)
}

func TestTransport_MarshalsMessagesThroughConfiguredCodec(t *testing.T) {
	stream := &fakeStream{}
	tr := NewTransport(inlineExecutor{}, func() (Stream, error) {
		return stream, nil
	}, CodecFunc("upper", func(v any) ([]byte, error) {
		return []byte(v.(string) + "!"), nil
	}, nil), nil)

	tr.Write(NewMetadataPart(nil))
	tr.Write(NewMessagePart("hi", MessageOptions{}))

	require.Len(t, stream.written, 2)
	assert.Equal(t, []byte("hi!"), stream.written[1].Payload)
	assert.Equal(t, "hi", stream.written[1].Message)
}

func TestTransport_MarshalErrorFailsTransport(t *testing.T) {
	stream := &fakeStream{}
	tr := NewTransport(inlineExecutor{}, func() (Stream, error) {
		return stream, nil
	}, CodecFunc("broken", func(v any) ([]byte, error) {
		return nil, assertError{}
	}, nil), nil)

	tr.Write(NewMetadataPart(nil))
	st := tr.Write(NewMessagePart("hi", MessageOptions{}))
	require.NotNil(t, st)
	assert.Equal(t, TransportClosed, tr.State())
}

func TestTransport_WriteAfterCloseLogsWithoutPanickingOnNilLogger(t *testing.T) {
	stream := &fakeStream{}
	tr := NewTransport(inlineExecutor{}, func() (Stream, error) { return stream, nil }, nil, nil)
	tr.Cancel(OK)
	assert.NotPanics(t, func() {
		tr.Write(NewMetadataPart(nil))
	})
}
