package callcore

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequestHead_CacheableUnaryUsesGET(t *testing.T) {
	h := buildRequestHead(true, false, ProtoCodec{}, time.Time{}, false)
	assert.Equal(t, "GET", h.Method)
}

func TestBuildRequestHead_CacheableStreamingStillUsesPOST(t *testing.T) {
	h := buildRequestHead(true, true, ProtoCodec{}, time.Time{}, false)
	assert.Equal(t, "POST", h.Method)
}

func TestBuildRequestHead_NotCacheableUsesPOST(t *testing.T) {
	h := buildRequestHead(false, false, ProtoCodec{}, time.Time{}, false)
	assert.Equal(t, "POST", h.Method)
}

func TestBuildRequestHead_NonProtoCodecNamesContentType(t *testing.T) {
	h := buildRequestHead(false, false, CodecFunc("json", nil, nil), time.Time{}, false)
	assert.Equal(t, "application/grpc+json", h.ContentType)
}

func TestBuildRequestHead_NoDeadlineOmitsTimeout(t *testing.T) {
	h := buildRequestHead(false, false, ProtoCodec{}, time.Time{}, false)
	assert.Empty(t, h.Timeout)
	assert.NotContains(t, h.Metadata(), "grpc-timeout")
}

func TestBuildRequestHead_DeadlineSetsTimeout(t *testing.T) {
	h := buildRequestHead(false, false, ProtoCodec{}, time.Now().Add(5*time.Second), true)
	require.NotEmpty(t, h.Timeout)
	md := h.Metadata()
	vals := md.Get("grpc-timeout")
	require.Len(t, vals, 1)
	assert.Equal(t, h.Timeout, vals[0])
}

func TestEncodeDecodeGRPCTimeout_RoundTrip(t *testing.T) {
	d, err := decodeGRPCTimeout(encodeGRPCTimeout(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}

func TestEncodeGRPCTimeout_NeverExceedsEightDigits(t *testing.T) {
	for _, d := range []time.Duration{
		time.Nanosecond,
		time.Millisecond,
		time.Hour,
		100000 * time.Hour,
	} {
		value := encodeGRPCTimeout(d)
		digits := value[:len(value)-1]
		assert.LessOrEqual(t, len(digits), 8, "encoded value %q exceeds 8 digits", value)
	}
}

func TestEncodeGRPCTimeout_NonPositiveClampsToPositive(t *testing.T) {
	value := encodeGRPCTimeout(-5 * time.Second)
	assert.True(t, strings.HasSuffix(value, "n"))
}

func TestDecodeGRPCTimeout_EightDigitsAccepted(t *testing.T) {
	_, err := decodeGRPCTimeout("99999999S")
	require.NoError(t, err)
}

func TestDecodeGRPCTimeout_NineDigitsRejected(t *testing.T) {
	_, err := decodeGRPCTimeout("999999999S")
	require.Error(t, err)
}

func TestDecodeGRPCTimeout_UnrecognizedUnitRejected(t *testing.T) {
	_, err := decodeGRPCTimeout("10Q")
	require.Error(t, err)
}

func TestDecodeGRPCTimeout_NoDigitsRejected(t *testing.T) {
	_, err := decodeGRPCTimeout("S")
	require.Error(t, err)
}
