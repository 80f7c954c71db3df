// Package session owns the messaging-session lifecycle: connect, classify
// disconnects, apply the bounded reconnect policy and persist credential
// updates.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lfsouza/finzap/pkg/bus"
	"github.com/lfsouza/finzap/pkg/logger"
)

// ErrLoggedOut is returned by Run when the network logged the session out.
// Recovery requires re-pairing; the process must not retry.
var ErrLoggedOut = errors.New("session logged out")

// ErrReconnectExhausted is returned by Run when the reconnect budget is
// spent.
var ErrReconnectExhausted = errors.New("max reconnect attempts reached")

// Manager maintains exactly one logical connection. It publishes inbound
// messages to the bus and drains outbound replies back through the
// transport.
type Manager struct {
	transport   Transport
	credentials CredentialStore
	msgBus      *bus.MessageBus

	maxAttempts int
	delay       time.Duration

	mu       sync.Mutex
	state    ConnectionState
	attempts int
}

func NewManager(
	transport Transport,
	credentials CredentialStore,
	msgBus *bus.MessageBus,
	maxAttempts int,
	delay time.Duration,
) *Manager {
	return &Manager{
		transport:   transport,
		credentials: credentials,
		msgBus:      msgBus,
		maxAttempts: maxAttempts,
		delay:       delay,
		state:       StateDisconnected,
	}
}

func (m *Manager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

func (m *Manager) setState(s ConnectionState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Download exposes the transport's media fetch to the pipeline.
func (m *Manager) Download(ctx context.Context, ref bus.MediaRef) ([]byte, error) {
	return m.transport.Download(ctx, ref)
}

// Run drives the session until ctx is cancelled or a fatal condition is
// reached. A logout or an exhausted reconnect budget terminates with
// ErrLoggedOut / ErrReconnectExhausted; external supervision restarts the
// process.
func (m *Manager) Run(ctx context.Context) error {
	go m.sendLoop(ctx)
	defer m.transport.Close()

	for {
		cause, err := m.connectOnce(ctx)
		if err != nil {
			m.setState(StateClosed)
			return err
		}

		m.setState(StateDisconnected)

		if cause != nil && cause.LoggedOut {
			logger.ErrorCF("session", "Logged out, re-pairing required", map[string]any{
				"reason": cause.Reason,
			})
			m.setState(StateClosed)
			return ErrLoggedOut
		}

		m.mu.Lock()
		if m.attempts >= m.maxAttempts {
			m.mu.Unlock()
			m.setState(StateClosed)
			return fmt.Errorf("%w (%d)", ErrReconnectExhausted, m.maxAttempts)
		}
		m.attempts++
		attempt := m.attempts
		m.mu.Unlock()

		logger.InfoCF("session", "Reconnecting", map[string]any{
			"attempt": attempt,
			"max":     m.maxAttempts,
			"reason":  closeReason(cause),
		})

		select {
		case <-ctx.Done():
			m.setState(StateClosed)
			return ctx.Err()
		case <-time.After(m.delay):
		}
	}
}

// connectOnce runs one connection from dial to close. It returns the close
// cause (nil only when ctx ended), or a non-nil error for ctx cancellation.
func (m *Manager) connectOnce(ctx context.Context) (*CloseCause, error) {
	m.setState(StateConnecting)

	creds, err := m.credentials.Load()
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	events, err := m.transport.Connect(ctx, creds)
	if err != nil {
		logger.WarnCF("session", "Connect failed", map[string]any{"error": err.Error()})
		return &CloseCause{Reason: err.Error()}, nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				// Stream ended without an explicit close frame.
				return &CloseCause{Reason: "event stream closed"}, nil
			}
			if cause := m.handleEvent(ctx, ev); cause != nil {
				return cause, nil
			}
		}
	}
}

// handleEvent returns a non-nil cause when the connection closed.
func (m *Manager) handleEvent(ctx context.Context, ev Event) *CloseCause {
	switch ev.Kind {
	case EventConnection:
		if ev.PairingChallenge != "" {
			logger.InfoCF("session", "Pairing challenge received, scan to link", map[string]any{
				"challenge": ev.PairingChallenge,
			})
		}
		if ev.Open {
			m.mu.Lock()
			m.state = StateOpen
			m.attempts = 0
			m.mu.Unlock()
			logger.InfoC("session", "Connected")
			return nil
		}
		if ev.Close != nil {
			logger.WarnCF("session", "Connection closed", map[string]any{
				"code":       ev.Close.Code,
				"reason":     ev.Close.Reason,
				"logged_out": ev.Close.LoggedOut,
			})
			return ev.Close
		}

	case EventCredentials:
		// Must hit disk before any reconnect so a crash-restart resumes
		// with the latest session material.
		if err := m.credentials.Save(ev.Credentials); err != nil {
			logger.ErrorCF("session", "Credential persistence failed", map[string]any{
				"error": err.Error(),
			})
		}

	case EventMessage:
		if ev.Message != nil {
			if err := m.msgBus.PublishInbound(ctx, *ev.Message); err != nil {
				logger.WarnCF("session", "Inbound publish failed", map[string]any{
					"error": err.Error(),
				})
			}
		}
	}
	return nil
}

// sendLoop drains outbound replies. Send failures are logged and dropped;
// delivery is not exactly-once.
func (m *Manager) sendLoop(ctx context.Context) {
	for {
		msg, ok := m.msgBus.SubscribeOutbound(ctx)
		if !ok {
			return
		}
		if err := m.transport.Send(ctx, msg.RecipientID, msg.Text); err != nil {
			logger.ErrorCF("session", "Send failed", map[string]any{
				"recipient": msg.RecipientID,
				"error":     err.Error(),
			})
			continue
		}
		logger.DebugCF("session", "Message sent", map[string]any{"recipient": msg.RecipientID})
	}
}

func closeReason(cause *CloseCause) string {
	if cause == nil {
		return "unknown"
	}
	return cause.Reason
}
