// Package testutil provides common test utilities and helpers for KayitFlow tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KayitWorks/KayitFlow/internal/models"
	"github.com/KayitWorks/KayitFlow/internal/store"
)

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, msg string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", msg, expected, actual)
	}
}

// AssertJSONResponse decodes a JSON API response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// MustMarshalJSON marshals an object to JSON and fails the test on error.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// SeedCompletion writes a completed registration for userID and returns it.
func SeedCompletion(t *testing.T, completions store.CompletionStore, userID string) models.CompletionRecord {
	t.Helper()
	rec := models.CompletionRecord{
		ID:     "reg_test_" + userID,
		UserID: userID,
		Answers: map[string]string{
			models.FieldName:  "Test Kullanıcı",
			models.FieldPhone: "+905551112233",
			models.FieldEmail: "test@example.com",
			models.FieldCity:  "Ankara",
		},
		CompletedAt: time.Now().UTC(),
	}
	if err := completions.RecordCompletion(context.Background(), rec); err != nil {
		t.Fatalf("failed to seed completion for %s: %v", userID, err)
	}
	return rec
}

// AssertCompletionCount validates the number of completion records in the store.
func AssertCompletionCount(t *testing.T, completions store.CompletionStore, expected int, msg string) {
	t.Helper()
	records, err := completions.ListCompletions(context.Background())
	if err != nil {
		t.Fatalf("%s: failed to list completions: %v", msg, err)
	}
	if len(records) != expected {
		t.Errorf("%s: expected %d completions, got %d", msg, expected, len(records))
	}
}
