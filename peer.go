package callcore

import "google.golang.org/grpc/peer"

// PeerInfo is the call's view of who is on the other end of the wire. It
// reuses [google.golang.org/grpc/peer.Peer] directly rather than inventing
// a parallel type, the same way [Status] reuses grpc/status.
//
// This generalizes the teacher's inprocessPeer (a constant, hardcoded
// "inproc:0" stand-in appropriate only when client and server share a
// process) into something a real [Stream] implementation supplies once
// its connection is actually established.
type PeerInfo = peer.Peer

// Peer returns the call's peer info and whether it has been observed yet.
// It becomes available once the transport activates (see
// [Transport.activate]); before that, ok is false.
func (c *Call) Peer() (*PeerInfo, bool) {
	var p *PeerInfo
	_ = runOnExecutor(c.executor, func() {
		p = c.transport.peer
	})
	return p, p != nil
}
