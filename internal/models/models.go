// Package models defines the core data structures for KayitFlow.
//
// It includes the session and stage types for the registration conversation,
// inbound/outbound message shapes, and side-effect descriptors shared across modules.
package models

import "errors"

// Stage identifies the current point in the scripted conversation.
type Stage string

const (
	// StageIdle means a session exists but no question has been asked yet.
	StageIdle Stage = "idle"
	// StageAwaitingName waits for the user's full name.
	StageAwaitingName Stage = "awaiting_name"
	// StageAwaitingPhone waits for the user's phone number.
	StageAwaitingPhone Stage = "awaiting_phone"
	// StageAwaitingEmail waits for the user's e-mail address.
	StageAwaitingEmail Stage = "awaiting_email"
	// StageAwaitingCity waits for the user's city.
	StageAwaitingCity Stage = "awaiting_city"
	// StageAwaitingDream waits for the optional free-form wizard question.
	StageAwaitingDream Stage = "awaiting_dream"
	// StageAwaitingPhotoOne waits for the first photo in the wizard flow.
	StageAwaitingPhotoOne Stage = "awaiting_photo_one"
	// StageAwaitingPhotoTwo waits for the second photo in the wizard flow.
	StageAwaitingPhotoTwo Stage = "awaiting_photo_two"
	// StageProcessing means all inputs were collected and content generation is running.
	StageProcessing Stage = "processing"
	// StageComplete is the terminal stage; sessions never persist in it.
	StageComplete Stage = "complete"
)

// Field keys used in Session.Answers and CompletionRecord.Answers.
const (
	FieldName  = "name"
	FieldPhone = "phone"
	FieldEmail = "email"
	FieldCity  = "city"
	FieldDream = "dream"
)

// Validation constants for collected fields.
const (
	// MinNameLength is the minimum accepted length for names and cities.
	MinNameLength = 2
	// MaxNameLength is the maximum accepted length for names.
	MaxNameLength = 50
	// MaxCityLength is the maximum accepted length for city names.
	MaxCityLength = 30
	// MaxMediaPerSession bounds the attachments a single session may accumulate.
	MaxMediaPerSession = 2
	// DefaultMaxAttempts is how many consecutive invalid inputs end a session.
	DefaultMaxAttempts = 3
)

// Error variables for better error handling and testability
var (
	ErrEmptyUserID        = errors.New("user identifier cannot be empty")
	ErrSessionNotFound    = errors.New("session not found")
	ErrAlreadyRegistered  = errors.New("completion record already exists for user")
	ErrCompletionNotFound = errors.New("completion record not found")
	ErrInvalidEventKind   = errors.New("invalid inbound event kind")
	ErrServiceStopped     = errors.New("messaging service is stopped")
)

// EventKind classifies an inbound webhook event.
type EventKind string

const (
	// EventText is a plain text message from the user.
	EventText EventKind = "text"
	// EventMedia is an attachment (photo) from the user.
	EventMedia EventKind = "media"
	// EventButton is an interactive button reply from the user.
	EventButton EventKind = "button"
)

// IsValidEventKind checks if the given event kind is supported.
func IsValidEventKind(k EventKind) bool {
	switch k {
	case EventText, EventMedia, EventButton:
		return true
	default:
		return false
	}
}

// FlowVariant selects which conversation script a deployment runs.
type FlowVariant string

const (
	// FlowBasic collects name, phone, email and city, then records the registration.
	FlowBasic FlowVariant = "basic"
	// FlowWizard extends FlowBasic with an optional dream question and two photos
	// feeding content generation.
	FlowWizard FlowVariant = "wizard"
)

// IsValidFlowVariant checks if the given flow variant is supported.
func IsValidFlowVariant(v FlowVariant) bool {
	switch v {
	case FlowBasic, FlowWizard:
		return true
	default:
		return false
	}
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
