// Package gservice wraps the Google mail and calendar APIs behind
// session-authenticated capability clients.
package gservice

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/voxmail/voxmail/internal/auth"
)

const gmailUserID = "me"

type credentials interface {
	Credentials() (*auth.Context, error)
}

// NewMail creates the Gmail capability client.
func NewMail(cfg *oauth2.Config, creds credentials, conv htmlConverter) *Mail {
	return &Mail{cfg: cfg, creds: creds, conv: conv}
}

// Mail exposes the mailbox operations the dispatcher routes to. Every call
// builds a fresh service from the session credentials; nothing is cached.
type Mail struct {
	cfg   *oauth2.Config
	creds credentials
	conv  htmlConverter
}

// ListInbox returns summaries of the most recent inbox messages. query uses
// Gmail search syntax; empty means the whole inbox.
func (m *Mail) ListInbox(ctx context.Context, maxResults int64, query string) ([]EmailSummary, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	q := "in:inbox"
	if query != "" {
		q = query
	}

	list, err := svc.Users.Messages.List(gmailUserID).
		Q(q).
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("messages.List failed: %w", err)
	}

	emails := make([]EmailSummary, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := svc.Users.Messages.Get(gmailUserID, ref.Id).
			Format("METADATA").
			MetadataHeaders("Subject", "From", "To", "Date").
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("messages.Get %s failed: %w", ref.Id, err)
		}

		emails = append(emails, extractSummary(msg))
	}

	return emails, nil
}

// ListSent fetches recent sent messages with bodies, for the profiler and
// the contact resolver's history scan.
func (m *Mail) ListSent(ctx context.Context, maxResults int64) ([]SentEmail, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	list, err := svc.Users.Messages.List(gmailUserID).
		Q("in:sent").
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("messages.List failed: %w", err)
	}

	sent := make([]SentEmail, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := svc.Users.Messages.Get(gmailUserID, ref.Id).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("messages.Get %s failed: %w", ref.Id, err)
		}

		var entry SentEmail
		if msg.Payload != nil {
			entry.Subject = headerValue(msg.Payload.Headers, "Subject")
			entry.From = headerValue(msg.Payload.Headers, "From")
			entry.To = splitAddressList(headerValue(msg.Payload.Headers, "To"))
			entry.Body = extractBody(msg.Payload, m.conv)
		}
		sent = append(sent, entry)
	}

	return sent, nil
}

// GetMessage returns the full content of one message.
func (m *Mail) GetMessage(ctx context.Context, msgID string) (*EmailDetails, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	msg, err := svc.Users.Messages.Get(gmailUserID, msgID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("messages.Get failed: %w", err)
	}

	details := &EmailDetails{EmailSummary: extractSummary(msg)}
	if msg.Payload != nil {
		details.Body = extractBody(msg.Payload, m.conv)
	}

	return details, nil
}

// Send delivers a message, threading it as a reply when replyToID is set.
// All recipients must already be concrete addresses.
func (m *Mail) Send(ctx context.Context, to string, cc []string, subject, body, replyToID string) (*SendReceipt, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	var headers strings.Builder
	fmt.Fprintf(&headers, "To: %s\r\n", to)
	if len(cc) > 0 {
		fmt.Fprintf(&headers, "Cc: %s\r\n", strings.Join(cc, ", "))
	}
	fmt.Fprintf(&headers, "Subject: %s\r\n", subject)
	headers.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")

	if replyToID != "" {
		orig, err := svc.Users.Messages.Get(gmailUserID, replyToID).
			Format("METADATA").
			MetadataHeaders("Message-ID", "References").
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("messages.Get reply target failed: %w", err)
		}

		if orig.Payload != nil {
			if msgID := headerValue(orig.Payload.Headers, "Message-ID"); msgID != "" {
				fmt.Fprintf(&headers, "In-Reply-To: %s\r\n", msgID)
				refs := headerValue(orig.Payload.Headers, "References")
				fmt.Fprintf(&headers, "References: %s\r\n", strings.TrimSpace(refs+" "+msgID))
			}
		}
	}

	raw := base64.RawURLEncoding.EncodeToString([]byte(headers.String() + "\r\n" + body))

	sent, err := svc.Users.Messages.Send(gmailUserID, &gmail.Message{
		Raw:      raw,
		ThreadId: replyThread(replyToID),
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("messages.Send failed: %w", err)
	}

	return &SendReceipt{ID: sent.Id, ThreadID: sent.ThreadId, Status: "sent"}, nil
}

func replyThread(replyToID string) string {
	// Gmail threads replies by the original message's thread; passing the
	// message ID works because thread IDs equal their first message ID.
	return replyToID
}

// MarkRead toggles the UNREAD label on a message.
func (m *Mail) MarkRead(ctx context.Context, msgID string, read bool) (*ModifyReceipt, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	req := &gmail.ModifyMessageRequest{}
	if read {
		req.RemoveLabelIds = []string{"UNREAD"}
	} else {
		req.AddLabelIds = []string{"UNREAD"}
	}

	if _, err := svc.Users.Messages.Modify(gmailUserID, msgID, req).Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("messages.Modify failed: %w", err)
	}

	return &ModifyReceipt{ID: msgID, IsRead: read}, nil
}

// Delete moves a message to trash.
func (m *Mail) Delete(ctx context.Context, msgID string) (*DeleteReceipt, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	if _, err := svc.Users.Messages.Trash(gmailUserID, msgID).Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("messages.Trash failed: %w", err)
	}

	return &DeleteReceipt{ID: msgID, Status: "trashed"}, nil
}

func (m *Mail) newSvc(ctx context.Context) (*gmail.Service, error) {
	creds, err := m.creds.Credentials()
	if err != nil {
		return nil, fmt.Errorf("creds.Credentials failed: %w", err)
	}

	clt := m.cfg.Client(ctx, creds.Token())

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(clt))
	if err != nil {
		return nil, fmt.Errorf("gmail.NewService failed: %w", err)
	}

	return svc, nil
}
