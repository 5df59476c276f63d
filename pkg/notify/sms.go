package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lendingdesk/pkg/domain"
)

// SMSNotifier posts availability notices to an SMS gateway over HTTP.
type SMSNotifier struct {
	baseURL    string
	httpClient *http.Client
}

// NewSMSNotifier constructs the SMS gateway client.
func NewSMSNotifier(baseURL string) (*SMSNotifier, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("sms gateway URL required")
	}
	return &SMSNotifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type smsRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// Notify texts the requester. Requesters without a phone number cannot be
// reached on this channel.
func (n *SMSNotifier) Notify(ctx context.Context, req domain.Requester, title string) error {
	if req.Phone == "" {
		return fmt.Errorf("requester %q has no phone number", req.Name)
	}
	body, err := json.Marshal(smsRequest{To: req.Phone, Message: Message(req, title)})
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return nil
}
