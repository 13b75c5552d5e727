// Package models defines session state structures for KayitFlow conversations.
package models

import "time"

// MediaRef is a reference to a received or generated attachment. For inbound
// photos the transport fills Data with the downloaded bytes; for generated
// content only URL is set.
type MediaRef struct {
	ID       string `json:"id,omitempty"`
	URL      string `json:"url,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// Session tracks a single user's progress through the registration conversation.
// One session exists per user identifier (canonical phone number) between the
// first inbound message and completion, cancellation or idle timeout.
type Session struct {
	ID           string            `json:"id"`
	Flow         FlowVariant       `json:"flow"`
	Stage        Stage             `json:"stage"`
	Answers      map[string]string `json:"answers,omitempty"`
	Attempts     int               `json:"attempts"`
	Media        []MediaRef        `json:"media,omitempty"`
	CreatedAt    int64             `json:"created_at"`      // epoch milliseconds
	LastActiveAt int64             `json:"last_active_at"`  // epoch milliseconds
}

// NewSession creates a fresh session for the given user at the first stage of a flow.
func NewSession(id string, flow FlowVariant, firstStage Stage, now time.Time) *Session {
	ms := now.UnixMilli()
	return &Session{
		ID:        id,
		Flow:      flow,
		Stage:     firstStage,
		Answers:   make(map[string]string),
		CreatedAt: ms,
		LastActiveAt: ms,
	}
}

// Touch updates the last-activity timestamp.
func (s *Session) Touch(now time.Time) {
	s.LastActiveAt = now.UnixMilli()
}

// Answer returns a collected answer value, or "" when not yet collected.
func (s *Session) Answer(field string) string {
	if s.Answers == nil {
		return ""
	}
	return s.Answers[field]
}

// SetAnswer records a validated answer. Answers only grow; re-answering the
// same field overwrites with the last validated value.
func (s *Session) SetAnswer(field, value string) {
	if s.Answers == nil {
		s.Answers = make(map[string]string)
	}
	s.Answers[field] = value
}

// Clone returns a deep copy so the engine never mutates the stored session in place.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Answers != nil {
		out.Answers = make(map[string]string, len(s.Answers))
		for k, v := range s.Answers {
			out.Answers[k] = v
		}
	}
	if s.Media != nil {
		out.Media = make([]MediaRef, len(s.Media))
		copy(out.Media, s.Media)
	}
	return &out
}
