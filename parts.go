package callcore

import "google.golang.org/grpc/metadata"

// RequestPartKind tags a [RequestPart]'s case.
type RequestPartKind int

const (
	// RequestMetadata carries the single leading metadata part. Spec §3:
	// "exactly one metadata first, then zero or more message, then
	// exactly one end".
	RequestMetadata RequestPartKind = iota
	// RequestMessage carries one request message.
	RequestMessage
	// RequestEnd marks the end of the request stream.
	RequestEnd
)

// MessageOptions carries the per-message bits spec §4.3's flush policy and
// §6's compression flag act on.
type MessageOptions struct {
	// Compress requests per-message compression (the core never performs
	// compression itself; spec §1 Non-goals: "compression algorithm
	// implementations"). The transport does not act on it; it reaches the
	// [Stream] on the part, where a wire implementation can pass it to
	// [EncodeFrame] as the frame header's compression flag.
	Compress bool
	// Flush is carried on the part to the [Stream]. The [Transport] does
	// not read it: it writes every part as soon as the stream is active
	// and has no flush step of its own.
	Flush bool
}

// RequestPart is a tagged union of the three request-part cases described
// in spec §3. Exactly one field group is meaningful per Kind.
type RequestPart struct {
	Kind RequestPartKind

	// Metadata is populated when Kind == RequestMetadata.
	Metadata metadata.MD

	// Message and Options are populated when Kind == RequestMessage.
	Message any
	Options MessageOptions

	// Payload is Message marshaled by the configured [Codec], populated by
	// [Transport.writeThrough] before the part reaches [Stream.WritePart].
	// A [Stream] implementation that talks to a real wire may use this
	// directly instead of marshaling Message itself; one that already owns
	// serialization (e.g. an in-process stream sharing an address space)
	// can ignore it.
	Payload []byte
}

// NewMetadataPart constructs the leading metadata [RequestPart].
func NewMetadataPart(md metadata.MD) RequestPart {
	return RequestPart{Kind: RequestMetadata, Metadata: md}
}

// NewMessagePart constructs a message [RequestPart].
func NewMessagePart(msg any, opts MessageOptions) RequestPart {
	return RequestPart{Kind: RequestMessage, Message: msg, Options: opts}
}

// EndPart is the single terminal request part.
var EndPart = RequestPart{Kind: RequestEnd}

// ResponsePartKind tags a [ResponsePart]'s case.
type ResponsePartKind int

const (
	// ResponseMetadata carries initial (leading) response metadata.
	ResponseMetadata ResponsePartKind = iota
	// ResponseMessage carries one response message.
	ResponseMessage
	// ResponseEnd is a successful terminal delivery, carrying a status
	// (possibly non-OK — spec §3: "end with a non-OK status is not an
	// error; it is a successful delivery of a negative outcome") and
	// trailing metadata.
	ResponseEnd
	// ResponseError is a terminal delivery representing an abnormal
	// failure distinct from a server-declared status (spec §9's Open
	// Question: this repo uses the four-case vocabulary, with error as a
	// distinct part, "because it makes pipeline teardown ordering
	// explicit").
	ResponseError
)

// ResponsePart is a tagged union of the four response-part cases described
// in spec §3. Ordering invariant: zero or one Metadata, then zero or more
// Message, then exactly one of End or Error.
type ResponsePart struct {
	Kind ResponsePartKind

	Metadata metadata.MD // ResponseMetadata
	Message  any         // ResponseMessage

	Status   *Status     // ResponseEnd
	Trailers metadata.MD // ResponseEnd

	Err error // ResponseError
}

// NewResponseMetadataPart constructs an initial-metadata [ResponsePart].
func NewResponseMetadataPart(md metadata.MD) ResponsePart {
	return ResponsePart{Kind: ResponseMetadata, Metadata: md}
}

// NewResponseMessagePart constructs a message [ResponsePart].
func NewResponseMessagePart(msg any) ResponsePart {
	return ResponsePart{Kind: ResponseMessage, Message: msg}
}

// NewResponseEndPart constructs the successful terminal [ResponsePart].
func NewResponseEndPart(status *Status, trailers metadata.MD) ResponsePart {
	return ResponsePart{Kind: ResponseEnd, Status: status, Trailers: trailers}
}

// NewResponseErrorPart constructs the abnormal terminal [ResponsePart].
func NewResponseErrorPart(err error) ResponsePart {
	return ResponsePart{Kind: ResponseError, Err: err}
}

// IsTerminal reports whether p is one of the two terminal kinds.
func (p ResponsePart) IsTerminal() bool {
	return p.Kind == ResponseEnd || p.Kind == ResponseError
}
