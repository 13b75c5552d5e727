// Package models defines inbound event, reply and side-effect shapes for KayitFlow.
package models

import "time"

// InboundEvent is a single webhook delivery normalized by the transport layer.
type InboundEvent struct {
	UserID   string    `json:"user_id"`
	Kind     EventKind `json:"kind"`
	Text     string    `json:"text,omitempty"`
	Media    *MediaRef `json:"media,omitempty"`
	ButtonID string    `json:"button_id,omitempty"`
	Time     int64     `json:"time,omitempty"` // epoch milliseconds
}

// Validate checks the structural validity of an inbound event.
func (e *InboundEvent) Validate() error {
	if e.UserID == "" {
		return ErrEmptyUserID
	}
	if !IsValidEventKind(e.Kind) {
		return ErrInvalidEventKind
	}
	return nil
}

// ReplyKind classifies an outbound reply for the dispatcher.
type ReplyKind string

const (
	// ReplyText is a plain text message.
	ReplyText ReplyKind = "text"
	// ReplyButtons is a text message with interactive reply buttons.
	ReplyButtons ReplyKind = "buttons"
	// ReplyMedia is a media attachment with a caption.
	ReplyMedia ReplyKind = "media"
)

// Button is a single interactive reply option shown to the user.
type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Well-known button identifiers, kept stable so button replies round-trip
// through the transport unchanged.
const (
	ButtonRegister = "register_btn"
	ButtonStatus   = "status_btn"
	ButtonHelp     = "help_btn"
)

// Reply is the engine's decided outbound message. Exactly one transport call
// corresponds to one reply.
type Reply struct {
	Kind    ReplyKind `json:"kind"`
	Text    string    `json:"text,omitempty"`
	Buttons []Button  `json:"buttons,omitempty"`
	Media   *MediaRef `json:"media,omitempty"`
	Caption string    `json:"caption,omitempty"`
}

// TextReply builds a plain text reply.
func TextReply(text string) *Reply {
	return &Reply{Kind: ReplyText, Text: text}
}

// ButtonsReply builds a text reply carrying interactive buttons.
func ButtonsReply(text string, buttons ...Button) *Reply {
	return &Reply{Kind: ReplyButtons, Text: text, Buttons: buttons}
}

// MediaReply builds a media reply with a caption.
func MediaReply(media MediaRef, caption string) *Reply {
	return &Reply{Kind: ReplyMedia, Media: &media, Caption: caption}
}

// EffectKind classifies a side effect requested by a transition.
type EffectKind string

const (
	// EffectRecordCompletion persists the collected answers.
	EffectRecordCompletion EffectKind = "record_completion"
	// EffectGenerateContent runs content generation over the collected media.
	EffectGenerateContent EffectKind = "generate_content"
	// EffectLookupStatus reads the completion record for a status report.
	EffectLookupStatus EffectKind = "lookup_status"
)

// CompletionRecord is what gets written when a session finishes all stages.
type CompletionRecord struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Answers     map[string]string `json:"answers"`
	CompletedAt time.Time         `json:"completed_at"`
}

// GenerationRequest describes a content-generation collaborator call.
type GenerationRequest struct {
	UserID string     `json:"user_id"`
	Prompt string     `json:"prompt"`
	Media  []MediaRef `json:"media"`
}

// SideEffect is an explicit collaborator call decided by the transition function
// and executed by the outer driver, keeping the transition itself pure.
type SideEffect struct {
	Kind       EffectKind         `json:"kind"`
	Completion *CompletionRecord  `json:"completion,omitempty"`
	Generation *GenerationRequest `json:"generation,omitempty"`
}

// Outcome is the full result of one state-machine transition.
// Session carries the updated session to store; Delete requests removal instead.
// Reply may be nil when a side effect produces the user-facing message.
type Outcome struct {
	Session *Session
	Delete  bool
	Reply   *Reply
	Effects []SideEffect
}
