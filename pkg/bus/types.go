package bus

import "time"

// PayloadKind is the coarse classification of an inbound message payload as
// reported by the session transport.
type PayloadKind int

const (
	PayloadText PayloadKind = iota
	PayloadImage
	PayloadDocument
	PayloadOther
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadText:
		return "text"
	case PayloadImage:
		return "image"
	case PayloadDocument:
		return "document"
	default:
		return "other"
	}
}

// MediaRef points at an attachment held by the bridge. The bytes are fetched
// on demand through the transport, never carried on the bus.
type MediaRef struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	FileName string `json:"file_name,omitempty"`
}

type InboundMessage struct {
	SenderID    string
	DisplayName string
	Kind        PayloadKind
	Text        string
	Media       *MediaRef
	FromSelf    bool
	Internal    bool
	ReceivedAt  time.Time
}

type OutboundMessage struct {
	RecipientID string
	Text        string
}
