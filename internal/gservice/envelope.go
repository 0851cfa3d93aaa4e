package gservice

import (
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"

	"google.golang.org/api/gmail/v1"
)

// EmailSummary is the read-only mirror of one inbox message. It is never
// cached across calls.
type EmailSummary struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	To      string `json:"to,omitempty"`
	Date    string `json:"date"`
	IsRead  bool   `json:"isRead"`
	Snippet string `json:"snippet"`
}

// EmailDetails adds the message body to the summary.
type EmailDetails struct {
	EmailSummary
	Body string `json:"body"`
}

// SentEmail is profiler/resolver input extracted from the sent folder.
type SentEmail struct {
	Subject string
	From    string
	To      []string
	Body    string
}

// SendReceipt confirms an outgoing message.
type SendReceipt struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id,omitempty"`
	Status   string `json:"status"`
}

// ModifyReceipt confirms a read/unread label change.
type ModifyReceipt struct {
	ID     string `json:"id"`
	IsRead bool   `json:"isRead"`
}

// DeleteReceipt confirms a trashed message or removed event.
type DeleteReceipt struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// InboxSummary aggregates unread counts for the assistant to narrate.
type InboxSummary struct {
	UnreadCount int    `json:"unreadCount"`
	TotalCount  int    `json:"totalCount"`
	Summary     string `json:"summary"`
}

// SummarizeInbox counts unread envelopes and phrases the result.
func SummarizeInbox(emails []EmailSummary) InboxSummary {
	unread := 0
	for _, e := range emails {
		if !e.IsRead {
			unread++
		}
	}

	return InboxSummary{
		UnreadCount: unread,
		TotalCount:  len(emails),
		Summary: fmt.Sprintf("You have %d unread emails out of %d total emails in your inbox.",
			unread, len(emails)),
	}
}

// Event is the read-only mirror of one calendar event.
type Event struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Location     string   `json:"location,omitempty"`
	StartTime    string   `json:"start_time"`
	EndTime      string   `json:"end_time"`
	Timezone     string   `json:"timezone,omitempty"`
	Attendees    []string `json:"attendees,omitempty"`
	MeetLink     string   `json:"meet_link,omitempty"`
	CalendarLink string   `json:"calendar_link,omitempty"`
	Status       string   `json:"status,omitempty"`
	CreatedBy    string   `json:"created_by,omitempty"`
}

// FreeBusy reports busy windows per queried calendar.
type FreeBusy struct {
	TimeMin   string                    `json:"timeMin"`
	TimeMax   string                    `json:"timeMax"`
	Calendars map[string][]BusyInterval `json:"calendars"`
}

// BusyInterval is one occupied window.
type BusyInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

const displayDateLayout = "Jan 2, 2006 3:04 PM"

// normalizeDate renders an RFC822-style mail date for display, keeping the
// raw value when parsing fails.
func normalizeDate(raw string) string {
	if raw == "" {
		return "Unknown"
	}

	t, err := mail.ParseDate(raw)
	if err != nil {
		return raw
	}

	return t.Format(displayDateLayout)
}

func headerValue(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

func isRead(labelIDs []string) bool {
	for _, id := range labelIDs {
		if id == "UNREAD" {
			return false
		}
	}
	return true
}

func extractSummary(msg *gmail.Message) EmailSummary {
	summary := EmailSummary{
		ID:      msg.Id,
		Subject: "No Subject",
		From:    "Unknown",
		IsRead:  isRead(msg.LabelIds),
		Snippet: msg.Snippet,
	}

	if msg.Payload == nil {
		summary.Date = normalizeDate("")
		return summary
	}

	headers := msg.Payload.Headers
	if v := headerValue(headers, "Subject"); v != "" {
		summary.Subject = v
	}
	if v := headerValue(headers, "From"); v != "" {
		summary.From = v
	}
	summary.To = headerValue(headers, "To")
	summary.Date = normalizeDate(headerValue(headers, "Date"))

	return summary
}

// splitAddressList breaks a recipient header into individual entries,
// respecting quoted display names well enough for real-world mail.
func splitAddressList(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type htmlConverter interface {
	Text(raw []byte) string
}

// extractBody pulls the readable body out of a full-format message: the
// direct body, then the first text/plain part, then text/html converted to
// plain text.
func extractBody(payload *gmail.MessagePart, conv htmlConverter) string {
	textBody, htmlBody := collectBodies(payload)

	if textBody != "" {
		return textBody
	}
	if htmlBody != "" && conv != nil {
		return conv.Text([]byte(htmlBody))
	}
	return htmlBody
}

func collectBodies(part *gmail.MessagePart) (textBody, htmlBody string) {
	if part == nil {
		return "", ""
	}

	if part.Body != nil && part.Body.Data != "" {
		decoded := decodeBase64URL(part.Body.Data)
		switch part.MimeType {
		case "text/plain":
			textBody = decoded
		case "text/html":
			htmlBody = decoded
		default:
			if len(part.Parts) == 0 {
				textBody = decoded
			}
		}
	}

	for _, child := range part.Parts {
		childText, childHTML := collectBodies(child)
		if textBody == "" {
			textBody = childText
		}
		if htmlBody == "" {
			htmlBody = childHTML
		}
	}

	return textBody, htmlBody
}

func decodeBase64URL(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return data
		}
	}
	return string(decoded)
}
