package callcore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestEncodeFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeFrame(&buf, false, []byte("hello")))

	r := NewFrameReader(0)
	r.Feed(buf.Bytes())
	payload, compressed, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, compressed)
	assert.Equal(t, []byte("hello"), payload)
}

func TestEncodeFrame_EmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeFrame(&buf, false, nil))
	assert.Equal(t, frameHeaderLen, buf.Len())

	r := NewFrameReader(0)
	r.Feed(buf.Bytes())
	payload, _, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, payload)
}

func TestEncodeFrame_CompressionFlag(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeFrame(&buf, true, []byte("x")))

	r := NewFrameReader(0)
	r.Feed(buf.Bytes())
	_, compressed, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, compressed)
}

func TestFrameReader_IncrementalFeed(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeFrame(&buf, false, []byte("abcdef")))

	r := NewFrameReader(0)
	full := buf.Bytes()
	for i := 0; i < len(full); i++ {
		r.Feed(full[i : i+1])
		_, _, ok, err := r.Next()
		require.NoError(t, err)
		if i < len(full)-1 {
			assert.False(t, ok, "should not be ready before last byte")
		} else {
			assert.True(t, ok)
		}
	}
}

func TestFrameReader_MultipleFramesInOneFeed(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeFrame(&buf, false, []byte("one")))
	require.NoError(t, EncodeFrame(&buf, false, []byte("two")))

	r := NewFrameReader(0)
	r.Feed(buf.Bytes())

	payload1, _, ok1, err1 := r.Next()
	require.NoError(t, err1)
	require.True(t, ok1)
	assert.Equal(t, []byte("one"), payload1)

	payload2, _, ok2, err2 := r.Next()
	require.NoError(t, err2)
	require.True(t, ok2)
	assert.Equal(t, []byte("two"), payload2)

	_, _, ok3, err3 := r.Next()
	require.NoError(t, err3)
	assert.False(t, ok3)
}

func TestFrameReader_OversizeRejected(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeFrame(&buf, false, []byte("0123456789")))

	r := NewFrameReader(4)
	r.Feed(buf.Bytes())
	_, _, ok, err := r.Next()
	assert.False(t, ok)
	require.Error(t, err)
	st := FromError(err)
	assert.Equal(t, codes.ResourceExhausted, st.Code())
}
