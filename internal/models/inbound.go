// Package models defines inbound message event types shared across modules.
package models

// Inbound message types delivered by the messaging provider.
const (
	MessageTypeText        = "text"
	MessageTypeImage       = "image"
	MessageTypeDocument    = "document"
	MessageTypeAudio       = "audio"
	MessageTypeVideo       = "video"
	MessageTypeInteractive = "interactive"
)

// TextContent is the text payload of an inbound message.
type TextContent struct {
	Body string `json:"body"`
}

// MediaContent references provider-hosted media attached to an inbound message.
type MediaContent struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type,omitempty"`
	Filename string `json:"filename,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// InboundMessage is one message event from the provider webhook. The engine
// only inspects From, Type, the text body, and the media id.
type InboundMessage struct {
	From     string        `json:"from"`
	Type     string        `json:"type"`
	Text     *TextContent  `json:"text,omitempty"`
	Image    *MediaContent `json:"image,omitempty"`
	Document *MediaContent `json:"document,omitempty"`
	Audio    *MediaContent `json:"audio,omitempty"`
	Video    *MediaContent `json:"video,omitempty"`
}

// Body returns the text body, or empty for non-text messages.
func (m *InboundMessage) Body() string {
	if m.Text == nil {
		return ""
	}
	return m.Text.Body
}

// Media returns the attached media content, if any.
func (m *InboundMessage) Media() *MediaContent {
	switch {
	case m.Image != nil:
		return m.Image
	case m.Document != nil:
		return m.Document
	case m.Audio != nil:
		return m.Audio
	case m.Video != nil:
		return m.Video
	default:
		return nil
	}
}
