package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"lendingdesk/pkg/domain"
)

// EmailNotifier sends availability notices over plain SMTP.
type EmailNotifier struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailNotifier configures the SMTP channel. Username may be empty for
// servers that accept unauthenticated submission.
func NewEmailNotifier(addr, from, username, password string) (*EmailNotifier, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("smtp addr required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from address required")
	}
	n := &EmailNotifier{addr: addr, from: from, send: smtp.SendMail}
	if username != "" {
		host := addr
		if i := strings.LastIndex(addr, ":"); i >= 0 {
			host = addr[:i]
		}
		n.auth = smtp.PlainAuth("", username, password, host)
	}
	return n, nil
}

// Notify emails the requester. Requesters without an email address cannot
// be reached on this channel.
func (n *EmailNotifier) Notify(ctx context.Context, req domain.Requester, title string) error {
	if req.Email == "" {
		return fmt.Errorf("requester %q has no email address", req.Name)
	}
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Your book is available\r\n\r\n%s\r\n",
		n.from, req.Email, Message(req, title),
	)
	if err := n.send(n.addr, n.auth, n.from, []string{req.Email}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", req.Email, err)
	}
	return nil
}
