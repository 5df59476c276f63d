package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync"
	"testing"

	"lendingdesk/pkg/domain"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recordingNotifier) Notify(_ context.Context, req domain.Requester, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, req.Name+":"+title)
	return r.err
}

func TestMultiAttemptsEveryChannel(t *testing.T) {
	broken := &recordingNotifier{err: errors.New("channel down")}
	healthy := &recordingNotifier{}
	m := NewMulti(broken, healthy, nil)

	err := m.Notify(context.Background(), domain.Requester{Name: "Bob"}, "Atlas")
	if err == nil {
		t.Fatalf("expected error from broken channel")
	}
	if len(broken.calls) != 1 || len(healthy.calls) != 1 {
		t.Fatalf("channels not all attempted: broken=%d healthy=%d", len(broken.calls), len(healthy.calls))
	}
	if healthy.calls[0] != "Bob:Atlas" {
		t.Fatalf("unexpected call payload: %q", healthy.calls[0])
	}
}

func TestSMSNotifierPostsToGateway(t *testing.T) {
	var got smsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n, err := NewSMSNotifier(srv.URL)
	if err != nil {
		t.Fatalf("new sms notifier: %v", err)
	}
	req := domain.Requester{Name: "Bob", Phone: "555-1234"}
	if err := n.Notify(context.Background(), req, "Atlas"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.To != "555-1234" {
		t.Fatalf("gateway to = %q, want 555-1234", got.To)
	}
	if !strings.Contains(got.Message, `"Atlas"`) || !strings.Contains(got.Message, "Bob") {
		t.Fatalf("unexpected message body: %q", got.Message)
	}
}

func TestSMSNotifierRejectsMissingPhone(t *testing.T) {
	n, err := NewSMSNotifier("http://localhost:0")
	if err != nil {
		t.Fatalf("new sms notifier: %v", err)
	}
	if err := n.Notify(context.Background(), domain.Requester{Name: "Bob"}, "Atlas"); err == nil {
		t.Fatalf("expected error for requester without phone")
	}
}

func TestSMSNotifierSurfacesGatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "provider quota exceeded", http.StatusBadGateway)
	}))
	defer srv.Close()

	n, err := NewSMSNotifier(srv.URL)
	if err != nil {
		t.Fatalf("new sms notifier: %v", err)
	}
	err = n.Notify(context.Background(), domain.Requester{Name: "Bob", Phone: "555"}, "Atlas")
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected gateway status error, got %v", err)
	}
}

func TestEmailNotifierBuildsMessage(t *testing.T) {
	var sentTo []string
	var sentBody string
	n, err := NewEmailNotifier("mail.example.com:587", "library@example.com", "", "")
	if err != nil {
		t.Fatalf("new email notifier: %v", err)
	}
	n.send = func(_ string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		sentTo = to
		sentBody = string(msg)
		return nil
	}

	req := domain.Requester{Name: "Bob", Email: "bob@example.com"}
	if err := n.Notify(context.Background(), req, "Atlas"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sentTo) != 1 || sentTo[0] != "bob@example.com" {
		t.Fatalf("sent to %v, want bob@example.com", sentTo)
	}
	if !strings.Contains(sentBody, "Subject: Your book is available") {
		t.Fatalf("missing subject header: %q", sentBody)
	}
	if !strings.Contains(sentBody, `"Atlas"`) {
		t.Fatalf("missing title in body: %q", sentBody)
	}

	if err := n.Notify(context.Background(), domain.Requester{Name: "NoMail"}, "Atlas"); err == nil {
		t.Fatalf("expected error for requester without email")
	}
}
