package callcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/metadata"
)

func TestRequestPart_Constructors(t *testing.T) {
	md := metadata.Pairs("k", "v")
	p := NewMetadataPart(md)
	assert.Equal(t, RequestMetadata, p.Kind)
	assert.Equal(t, md, p.Metadata)

	m := NewMessagePart("payload", MessageOptions{Flush: true})
	assert.Equal(t, RequestMessage, m.Kind)
	assert.Equal(t, "payload", m.Message)
	assert.True(t, m.Options.Flush)

	assert.Equal(t, RequestEnd, EndPart.Kind)
}

func TestResponsePart_IsTerminal(t *testing.T) {
	assert.False(t, NewResponseMetadataPart(nil).IsTerminal())
	assert.False(t, NewResponseMessagePart("x").IsTerminal())
	assert.True(t, NewResponseEndPart(OK, nil).IsTerminal())
	assert.True(t, NewResponseErrorPart(assertErr).IsTerminal())
}

var assertErr = assertError{}

type assertError struct{}

func (assertError) Error() string { return "boom" }
