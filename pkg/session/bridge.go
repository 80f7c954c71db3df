package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lfsouza/finzap/pkg/bus"
	"github.com/lfsouza/finzap/pkg/logger"
)

// frame is the wire envelope spoken with the WhatsApp bridge over the
// websocket. The bridge multiplexes connection updates, inbound messages
// and credential updates over one stream; we send auth and send frames.
type frame struct {
	Type       string          `json:"type"`
	To         string          `json:"to,omitempty"`
	Text       string          `json:"text,omitempty"`
	Creds      json.RawMessage `json:"creds,omitempty"`
	Challenge  string          `json:"challenge,omitempty"`
	Connection *connFrame      `json:"connection,omitempty"`
	Message    *messageFrame   `json:"message,omitempty"`
}

type connFrame struct {
	State     string `json:"state"`
	Code      int    `json:"code,omitempty"`
	Reason    string `json:"reason,omitempty"`
	LoggedOut bool   `json:"logged_out,omitempty"`
}

type messageFrame struct {
	SenderID    string        `json:"sender_id"`
	DisplayName string        `json:"display_name,omitempty"`
	Kind        string        `json:"kind"`
	Text        string        `json:"text,omitempty"`
	Media       *bus.MediaRef `json:"media,omitempty"`
	FromSelf    bool          `json:"from_self,omitempty"`
	Internal    bool          `json:"internal,omitempty"`
}

// Bridge is the websocket Transport implementation. Attachment bytes are
// fetched from the bridge's HTTP media endpoint, never inlined in frames.
type Bridge struct {
	url            string
	connectTimeout time.Duration
	httpClient     *http.Client

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewBridge(bridgeURL string, connectTimeout time.Duration) *Bridge {
	return &Bridge{
		url:            bridgeURL,
		connectTimeout: connectTimeout,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (b *Bridge) Connect(ctx context.Context, creds []byte) (<-chan Event, error) {
	dialer := websocket.Dialer{HandshakeTimeout: b.connectTimeout}
	conn, _, err := dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing bridge: %w", err)
	}

	auth := frame{Type: "auth"}
	if len(creds) > 0 {
		auth.Creds = json.RawMessage(creds)
	}
	if err := conn.WriteJSON(auth); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sending auth frame: %w", err)
	}

	b.mu.Lock()
	if b.conn != nil {
		b.conn.Close()
	}
	b.conn = conn
	b.mu.Unlock()

	events := make(chan Event, 32)
	go b.readLoop(conn, events)
	return events, nil
}

func (b *Bridge) readLoop(conn *websocket.Conn, events chan<- Event) {
	defer close(events)
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			cause := &CloseCause{Reason: err.Error()}
			if ce, ok := err.(*websocket.CloseError); ok {
				cause.Code = ce.Code
				cause.Reason = ce.Text
			}
			events <- Event{Kind: EventConnection, Close: cause}
			return
		}

		switch f.Type {
		case "connection":
			if f.Connection == nil {
				continue
			}
			if f.Connection.State == "open" {
				events <- Event{Kind: EventConnection, Open: true}
				continue
			}
			events <- Event{Kind: EventConnection, Close: &CloseCause{
				Code:      f.Connection.Code,
				Reason:    f.Connection.Reason,
				LoggedOut: f.Connection.LoggedOut,
			}}
		case "pairing":
			events <- Event{Kind: EventConnection, PairingChallenge: f.Challenge}
		case "creds":
			events <- Event{Kind: EventCredentials, Credentials: []byte(f.Creds)}
		case "message":
			if f.Message == nil {
				continue
			}
			events <- Event{Kind: EventMessage, Message: toInbound(f.Message)}
		default:
			logger.DebugCF("bridge", "Unknown frame type", map[string]any{"type": f.Type})
		}
	}
}

func toInbound(mf *messageFrame) *bus.InboundMessage {
	kind := bus.PayloadOther
	switch mf.Kind {
	case "text":
		kind = bus.PayloadText
	case "image":
		kind = bus.PayloadImage
	case "document":
		kind = bus.PayloadDocument
	}
	return &bus.InboundMessage{
		SenderID:    mf.SenderID,
		DisplayName: mf.DisplayName,
		Kind:        kind,
		Text:        mf.Text,
		Media:       mf.Media,
		FromSelf:    mf.FromSelf,
		Internal:    mf.Internal,
		ReceivedAt:  time.Now(),
	}
}

func (b *Bridge) Send(ctx context.Context, recipientID, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return fmt.Errorf("not connected")
	}
	if deadline, ok := ctx.Deadline(); ok {
		b.conn.SetWriteDeadline(deadline)
	} else {
		b.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	}
	return b.conn.WriteJSON(frame{Type: "send", To: recipientID, Text: text})
}

// Download fetches attachment bytes from the bridge's /media/{id} endpoint,
// reached over HTTP on the same host as the websocket.
func (b *Bridge) Download(ctx context.Context, ref bus.MediaRef) ([]byte, error) {
	endpoint, err := b.mediaEndpoint(ref.ID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bridge media endpoint returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (b *Bridge) mediaEndpoint(mediaID string) (string, error) {
	u, err := url.Parse(b.url)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "wss":
		u.Scheme = "https"
	default:
		u.Scheme = "http"
	}
	u.Path = "/media/" + mediaID
	return u.String(), nil
}

func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}
