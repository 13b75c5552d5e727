package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KayitWorks/KayitFlow/internal/dispatch"
	"github.com/KayitWorks/KayitFlow/internal/engine"
	"github.com/KayitWorks/KayitFlow/internal/models"
	"github.com/KayitWorks/KayitFlow/internal/session"
	"github.com/KayitWorks/KayitFlow/internal/store"
	"github.com/KayitWorks/KayitFlow/internal/testutil"
)

type stubService struct {
	events chan models.InboundEvent
	sent   chan string
}

func newStubService() *stubService {
	return &stubService{
		events: make(chan models.InboundEvent, 10),
		sent:   make(chan string, 10),
	}
}

func (s *stubService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return recipient, nil
}

func (s *stubService) SendText(_ context.Context, _ string, body string) error {
	s.sent <- body
	return nil
}

func (s *stubService) SendButtons(_ context.Context, _ string, body string, _ []models.Button) error {
	s.sent <- body
	return nil
}

func (s *stubService) SendMediaWithCaption(_ context.Context, _ string, _ models.MediaRef, caption string) error {
	s.sent <- caption
	return nil
}

func (s *stubService) Start(context.Context) error        { return nil }
func (s *stubService) Stop() error                        { return nil }
func (s *stubService) Events() <-chan models.InboundEvent { return s.events }

func newTestServer(t *testing.T) (*Server, *stubService, store.CompletionStore) {
	t.Helper()
	svc := newStubService()
	sessions := session.NewMemoryStore()
	t.Cleanup(func() { sessions.Close() })
	completions := store.NewInMemoryStore()
	driver := engine.NewDriver(engine.NewFlow(models.FlowBasic, 0), sessions, completions, nil, dispatch.NewDispatcher(svc))
	return NewServer(svc, driver, completions, WithVerifyToken("sir-parola")), svc, completions
}

func TestWebhookVerification(t *testing.T) {
	s, _, _ := newTestServer(t)

	cases := []struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}{
		{"valid", "hub.mode=subscribe&hub.verify_token=sir-parola&hub.challenge=12345", http.StatusOK, "12345"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=yanlis&hub.challenge=12345", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=sir-parola&hub.challenge=12345", http.StatusForbidden, ""},
		{"missing everything", "", http.StatusForbidden, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/webhook?"+tc.query, nil)
			rec := httptest.NewRecorder()
			s.webhookHandler(rec, req)
			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if tc.wantBody != "" && rec.Body.String() != tc.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestWebhookAcknowledgesMalformedPayload(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.webhookHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("malformed payload status = %d, want 200 to stop provider retries", rec.Code)
	}
}

func TestWebhookProcessesEvent(t *testing.T) {
	s, svc, _ := newTestServer(t)

	payload := `{"user_id":"905551112233","kind":"text","text":"merhaba"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	s.webhookHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	select {
	case body := <-svc.sent:
		if body == "" {
			t.Error("empty welcome reply")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reply dispatched for webhook event")
	}
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	s, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodDelete, "/webhook", nil)
	rec := httptest.NewRecorder()
	s.webhookHandler(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	s, _, _ := newTestServer(t)
	req := testutil.CreateHTTPRequest(t, http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.healthHandler(rec, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rec.Code, "health endpoint")
	testutil.AssertJSONResponse(t, rec, string(models.APIStatusOK))
}

func TestCompletionsHandler(t *testing.T) {
	s, _, completions := newTestServer(t)
	seeded := testutil.SeedCompletion(t, completions, "905551112233")

	req := testutil.CreateHTTPRequest(t, http.MethodGet, "/completions", nil)
	w := httptest.NewRecorder()
	s.completionsHandler(w, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, w.Code, "completions listing")
	if !strings.Contains(w.Body.String(), seeded.UserID) {
		t.Errorf("listing missing record: %s", w.Body.String())
	}
}
