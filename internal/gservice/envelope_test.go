package gservice

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/gmail/v1"
)

func TestExtractSummary(t *testing.T) {
	tests := map[string]struct {
		msg      *gmail.Message
		expected EmailSummary
	}{
		"full headers": {
			msg: &gmail.Message{
				Id:      "m1",
				Snippet: "hey there",
				Payload: &gmail.MessagePart{Headers: []*gmail.MessagePartHeader{
					{Name: "Subject", Value: "Lunch"},
					{Name: "From", Value: "Marie <marie@vendor.io>"},
					{Name: "To", Value: "pat@acme.com"},
					{Name: "Date", Value: "Mon, 02 Jan 2006 15:04:05 -0700"},
				}},
			},
			expected: EmailSummary{
				ID:      "m1",
				Subject: "Lunch",
				From:    "Marie <marie@vendor.io>",
				To:      "pat@acme.com",
				Date:    "Jan 2, 2006 3:04 PM",
				IsRead:  true,
				Snippet: "hey there",
			},
		},
		"missing headers fall back to defaults": {
			msg: &gmail.Message{Id: "m2", Payload: &gmail.MessagePart{}},
			expected: EmailSummary{
				ID:      "m2",
				Subject: "No Subject",
				From:    "Unknown",
				Date:    "Unknown",
				IsRead:  true,
			},
		},
		"unread label": {
			msg: &gmail.Message{
				Id:       "m3",
				LabelIds: []string{"INBOX", "UNREAD"},
				Payload:  &gmail.MessagePart{},
			},
			expected: EmailSummary{
				ID:      "m3",
				Subject: "No Subject",
				From:    "Unknown",
				Date:    "Unknown",
				IsRead:  false,
			},
		},
		"nil payload": {
			msg: &gmail.Message{Id: "m4"},
			expected: EmailSummary{
				ID:      "m4",
				Subject: "No Subject",
				From:    "Unknown",
				Date:    "Unknown",
				IsRead:  true,
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, extractSummary(tc.msg))
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "Unknown", normalizeDate(""))
	assert.Equal(t, "not a date", normalizeDate("not a date"))
	assert.Equal(t, "Mar 15, 2024 9:30 AM", normalizeDate("Fri, 15 Mar 2024 09:30:00 +0000"))
}

func TestSummarizeInbox(t *testing.T) {
	emails := []EmailSummary{
		{ID: "a", IsRead: true},
		{ID: "b", IsRead: false},
		{ID: "c", IsRead: false},
	}

	got := SummarizeInbox(emails)

	assert.Equal(t, 2, got.UnreadCount)
	assert.Equal(t, 3, got.TotalCount)
	assert.Equal(t, "You have 2 unread emails out of 3 total emails in your inbox.", got.Summary)
}

func TestSplitAddressList(t *testing.T) {
	assert.Nil(t, splitAddressList(""))
	assert.Equal(t,
		[]string{"a@x.com", "Bob <b@x.com>"},
		splitAddressList("a@x.com, Bob <b@x.com>, "))
}

type stubConverter struct{}

func (stubConverter) Text(raw []byte) string { return "converted:" + string(raw) }

func TestExtractBody(t *testing.T) {
	encode := func(s string) string {
		return base64.URLEncoding.EncodeToString([]byte(s))
	}

	tests := map[string]struct {
		payload  *gmail.MessagePart
		expected string
	}{
		"direct plain body": {
			payload: &gmail.MessagePart{
				MimeType: "text/plain",
				Body:     &gmail.MessagePartBody{Data: encode("plain text")},
			},
			expected: "plain text",
		},
		"plain part preferred over html": {
			payload: &gmail.MessagePart{
				MimeType: "multipart/alternative",
				Parts: []*gmail.MessagePart{
					{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: encode("<p>hi</p>")}},
					{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: encode("hi")}},
				},
			},
			expected: "hi",
		},
		"html only goes through converter": {
			payload: &gmail.MessagePart{
				MimeType: "multipart/alternative",
				Parts: []*gmail.MessagePart{
					{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: encode("<p>hi</p>")}},
				},
			},
			expected: "converted:<p>hi</p>",
		},
		"nested multipart": {
			payload: &gmail.MessagePart{
				MimeType: "multipart/mixed",
				Parts: []*gmail.MessagePart{
					{
						MimeType: "multipart/alternative",
						Parts: []*gmail.MessagePart{
							{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: encode("nested")}},
						},
					},
				},
			},
			expected: "nested",
		},
		"empty payload": {
			payload:  &gmail.MessagePart{},
			expected: "",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, extractBody(tc.payload, stubConverter{}))
		})
	}
}

func TestDecodeBase64URL(t *testing.T) {
	assert.Equal(t, "hello", decodeBase64URL(base64.URLEncoding.EncodeToString([]byte("hello"))))
	assert.Equal(t, "hello", decodeBase64URL(base64.RawURLEncoding.EncodeToString([]byte("hello"))))
	assert.Equal(t, "!!not base64!!", decodeBase64URL("!!not base64!!"))
}
