package session

import "context"

// ConnectionInfo carries the resolved connection parameters handed to the
// external protocol bridge. This core never speaks the downstream debugging
// protocol itself.
type ConnectionInfo struct {
	// LocalPort is the local TCP port forwarded to the device-side debug
	// socket. Zero when the session is browser-class.
	LocalPort int

	// InspectURL is a browser-inspectable endpoint, when one exists.
	InspectURL string

	// TargetID identifies the device the session is attached to, when any.
	TargetID string
}

// ProtocolBridge is the downstream collaborator that relays debugging
// protocol traffic between the host debugger and the target. The session
// guarantees Release is called during cleanup if Attach was called.
type ProtocolBridge interface {
	Attach(ctx context.Context, info ConnectionInfo) error
	Release(ctx context.Context) error
}

// NopBridge is a ProtocolBridge that does nothing. Used by CLI commands that
// only exercise launch without a host debugger present.
type NopBridge struct{}

func (NopBridge) Attach(context.Context, ConnectionInfo) error { return nil }
func (NopBridge) Release(context.Context) error                { return nil }
