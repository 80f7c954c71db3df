package session

import (
	"context"

	"github.com/lfsouza/finzap/pkg/bus"
)

// ConnectionState is the session lifecycle state, owned exclusively by the
// Manager.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// CloseCause describes why the transport dropped. LoggedOut closes are
// terminal regardless of remaining reconnect budget.
type CloseCause struct {
	Code      int
	Reason    string
	LoggedOut bool
}

type EventKind int

const (
	EventConnection EventKind = iota
	EventMessage
	EventCredentials
)

// Event is one item from the transport's event stream.
type Event struct {
	Kind EventKind

	// EventConnection
	Open             bool
	Close            *CloseCause
	PairingChallenge string

	// EventMessage
	Message *bus.InboundMessage

	// EventCredentials
	Credentials []byte
}

// Transport is the messaging-session collaborator. Connect returns a stream
// that is closed when the underlying connection is gone; the final close
// cause arrives as a connection event before the close.
type Transport interface {
	Connect(ctx context.Context, creds []byte) (<-chan Event, error)
	Send(ctx context.Context, recipientID, text string) error
	Download(ctx context.Context, ref bus.MediaRef) ([]byte, error)
	Close() error
}

// CredentialStore persists session material across restarts. Load returns
// nil bytes when no credentials exist yet.
type CredentialStore interface {
	Load() ([]byte, error)
	Save(creds []byte) error
}
