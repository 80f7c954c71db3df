package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lfsouza/finzap/pkg/bus"
)

var upgrader = websocket.Upgrader{}

// newBridgeServer serves the websocket at / and attachment bytes at
// /media/{id}, and hands each upgraded connection to serve.
func newBridgeServer(t *testing.T, serve func(*websocket.Conn)) *Bridge {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimPrefix(r.URL.Path, "/media/") == "m1" {
			_, _ = w.Write([]byte("attachment-bytes"))
			return
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		serve(conn)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewBridge("ws"+strings.TrimPrefix(srv.URL, "http"), 5*time.Second)
}

func readAuthFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Errorf("reading auth frame: %v", err)
	}
	return f
}

func TestBridge_ConnectSendsAuth(t *testing.T) {
	authed := make(chan frame, 1)
	b := newBridgeServer(t, func(conn *websocket.Conn) {
		authed <- readAuthFrame(t, conn)
	})
	defer b.Close()

	creds := []byte(`{"noiseKey":"abc"}`)
	events, err := b.Connect(context.Background(), creds)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	select {
	case f := <-authed:
		if f.Type != "auth" {
			t.Errorf("first frame type = %q, want auth", f.Type)
		}
		if string(f.Creds) != string(creds) {
			t.Errorf("auth creds = %s", f.Creds)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("auth frame never arrived")
	}

	// Server side hung up; the stream must end with a close event.
	for ev := range events {
		if ev.Kind == EventConnection && ev.Close != nil {
			return
		}
	}
	t.Fatal("no close event before stream end")
}

func TestBridge_EventMapping(t *testing.T) {
	b := newBridgeServer(t, func(conn *websocket.Conn) {
		readAuthFrame(t, conn)
		for _, raw := range []string{
			`{"type":"pairing","challenge":"2@abc123"}`,
			`{"type":"connection","connection":{"state":"open"}}`,
			`{"type":"creds","creds":{"noiseKey":"xyz"}}`,
			`{"type":"message","message":{"sender_id":"5511@s.whatsapp.net","display_name":"Ana","kind":"image","media":{"id":"m1","mime_type":"image/jpeg"}}}`,
			`{"type":"heartbeat"}`,
			`{"type":"connection","connection":{"state":"close","code":401,"reason":"loggedOut","logged_out":true}}`,
		} {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
				t.Errorf("write: %v", err)
				return
			}
		}
	})
	defer b.Close()

	events, err := b.Connect(context.Background(), nil)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	var got []Event
	timeout := time.After(2 * time.Second)
	for len(got) < 5 {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("stream ended after %d events", len(got))
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("only %d events after timeout", len(got))
		}
	}

	if got[0].PairingChallenge != "2@abc123" {
		t.Errorf("event 0 = %+v, want pairing challenge", got[0])
	}
	if !got[1].Open {
		t.Errorf("event 1 = %+v, want open", got[1])
	}
	if got[2].Kind != EventCredentials || string(got[2].Credentials) != `{"noiseKey":"xyz"}` {
		t.Errorf("event 2 = %+v, want credentials", got[2])
	}
	msg := got[3].Message
	if got[3].Kind != EventMessage || msg == nil {
		t.Fatalf("event 3 = %+v, want message", got[3])
	}
	if msg.Kind != bus.PayloadImage || msg.SenderID != "5511@s.whatsapp.net" || msg.Media == nil || msg.Media.ID != "m1" {
		t.Errorf("inbound = %+v", msg)
	}
	// The unknown heartbeat frame is skipped, so event 4 is the close.
	close4 := got[4].Close
	if close4 == nil || !close4.LoggedOut || close4.Code != 401 {
		t.Errorf("event 4 = %+v, want logged-out close", got[4])
	}
}

func TestBridge_SendFrame(t *testing.T) {
	frames := make(chan frame, 2)
	b := newBridgeServer(t, func(conn *websocket.Conn) {
		readAuthFrame(t, conn)
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Errorf("reading send frame: %v", err)
			return
		}
		frames <- f
	})
	defer b.Close()

	if _, err := b.Connect(context.Background(), nil); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := b.Send(context.Background(), "5511@s.whatsapp.net", "pronto"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	select {
	case f := <-frames:
		if f.Type != "send" || f.To != "5511@s.whatsapp.net" || f.Text != "pronto" {
			t.Errorf("send frame = %+v", f)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send frame never arrived")
	}
}

func TestBridge_SendWithoutConnection(t *testing.T) {
	b := NewBridge("ws://127.0.0.1:1/session", time.Second)
	if err := b.Send(context.Background(), "a@b", "x"); err == nil {
		t.Error("expected error when not connected")
	}
}

func TestBridge_Download(t *testing.T) {
	b := newBridgeServer(t, func(conn *websocket.Conn) {})
	defer b.Close()

	data, err := b.Download(context.Background(), bus.MediaRef{ID: "m1", MimeType: "image/jpeg"})
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if string(data) != "attachment-bytes" {
		t.Errorf("Download() = %q", data)
	}

	if _, err := b.Download(context.Background(), bus.MediaRef{ID: "missing"}); err == nil {
		t.Error("expected error for unknown media id")
	}
}

func TestBridge_MediaEndpointSchemes(t *testing.T) {
	for in, want := range map[string]string{
		"ws://bridge:8765/session":  "http://bridge:8765/media/m1",
		"wss://bridge:8765/session": "https://bridge:8765/media/m1",
	} {
		b := NewBridge(in, time.Second)
		got, err := b.mediaEndpoint("m1")
		if err != nil {
			t.Fatalf("mediaEndpoint(%q) error: %v", in, err)
		}
		if got != want {
			t.Errorf("mediaEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}
