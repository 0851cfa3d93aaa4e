package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxmail/voxmail/internal/gservice"
	"github.com/voxmail/voxmail/internal/profile"
)

type sessionMock struct {
	authenticated bool
	profile       *profile.Profile
}

func (m *sessionMock) Authenticated() bool       { return m.authenticated }
func (m *sessionMock) Profile() *profile.Profile { return m.profile }

type mailClientMock struct {
	ListInboxFunc  func(ctx context.Context, maxResults int64, query string) ([]gservice.EmailSummary, error)
	GetMessageFunc func(ctx context.Context, msgID string) (*gservice.EmailDetails, error)
	SendFunc       func(ctx context.Context, to string, cc []string, subject, body, replyToID string) (*gservice.SendReceipt, error)
	MarkReadFunc   func(ctx context.Context, msgID string, read bool) (*gservice.ModifyReceipt, error)
	DeleteFunc     func(ctx context.Context, msgID string) (*gservice.DeleteReceipt, error)
	calls          int
}

func (m *mailClientMock) ListInbox(ctx context.Context, maxResults int64, query string) ([]gservice.EmailSummary, error) {
	m.calls++
	return m.ListInboxFunc(ctx, maxResults, query)
}

func (m *mailClientMock) GetMessage(ctx context.Context, msgID string) (*gservice.EmailDetails, error) {
	m.calls++
	return m.GetMessageFunc(ctx, msgID)
}

func (m *mailClientMock) Send(ctx context.Context, to string, cc []string, subject, body, replyToID string) (*gservice.SendReceipt, error) {
	m.calls++
	return m.SendFunc(ctx, to, cc, subject, body, replyToID)
}

func (m *mailClientMock) MarkRead(ctx context.Context, msgID string, read bool) (*gservice.ModifyReceipt, error) {
	m.calls++
	return m.MarkReadFunc(ctx, msgID, read)
}

func (m *mailClientMock) Delete(ctx context.Context, msgID string) (*gservice.DeleteReceipt, error) {
	m.calls++
	return m.DeleteFunc(ctx, msgID)
}

type calendarClientMock struct {
	CreateEventFunc  func(ctx context.Context, in gservice.EventInput) (*gservice.Event, error)
	ListEventsFunc   func(ctx context.Context, q gservice.EventQuery) ([]gservice.Event, error)
	SearchEventsFunc func(ctx context.Context, q gservice.EventQuery) ([]gservice.Event, error)
	GetEventFunc     func(ctx context.Context, eventID string) (*gservice.Event, error)
	UpdateEventFunc  func(ctx context.Context, eventID string, in gservice.EventInput) (*gservice.Event, error)
	DeleteEventFunc  func(ctx context.Context, eventID string) (*gservice.DeleteReceipt, error)
	calls            int
}

func (m *calendarClientMock) CreateEvent(ctx context.Context, in gservice.EventInput) (*gservice.Event, error) {
	m.calls++
	return m.CreateEventFunc(ctx, in)
}

func (m *calendarClientMock) ListEvents(ctx context.Context, q gservice.EventQuery) ([]gservice.Event, error) {
	m.calls++
	return m.ListEventsFunc(ctx, q)
}

func (m *calendarClientMock) SearchEvents(ctx context.Context, q gservice.EventQuery) ([]gservice.Event, error) {
	m.calls++
	return m.SearchEventsFunc(ctx, q)
}

func (m *calendarClientMock) GetEvent(ctx context.Context, eventID string) (*gservice.Event, error) {
	m.calls++
	return m.GetEventFunc(ctx, eventID)
}

func (m *calendarClientMock) UpdateEvent(ctx context.Context, eventID string, in gservice.EventInput) (*gservice.Event, error) {
	m.calls++
	return m.UpdateEventFunc(ctx, eventID, in)
}

func (m *calendarClientMock) DeleteEvent(ctx context.Context, eventID string) (*gservice.DeleteReceipt, error) {
	m.calls++
	return m.DeleteEventFunc(ctx, eventID)
}

type resolverMock struct {
	ResolveFunc func(ctx context.Context, nameOrAddress string) (string, error)
}

func (m *resolverMock) Resolve(ctx context.Context, nameOrAddress string) (string, error) {
	if m.ResolveFunc == nil {
		return nameOrAddress, nil
	}
	return m.ResolveFunc(ctx, nameOrAddress)
}

func newTestDispatcher(sess *sessionMock, mail *mailClientMock, cal *calendarClientMock, res *resolverMock) *Dispatcher {
	if sess == nil {
		sess = &sessionMock{authenticated: true}
	}
	if mail == nil {
		mail = &mailClientMock{}
	}
	if cal == nil {
		cal = &calendarClientMock{}
	}
	if res == nil {
		res = &resolverMock{}
	}
	return NewDispatcher(sess, mail, cal, res)
}

func TestDispatchUnauthenticated(t *testing.T) {
	mail := &mailClientMock{}
	d := newTestDispatcher(&sessionMock{authenticated: false}, mail, nil, nil)

	result := d.Dispatch(context.Background(), Call{Name: ToolListEmails})

	assert.Equal(t, ErrAuthRequired.Error(), result.Error)
	assert.Zero(t, mail.calls)
}

func TestDispatchUnknownTool(t *testing.T) {
	d := newTestDispatcher(nil, nil, nil, nil)

	result := d.Dispatch(context.Background(), Call{Name: "format_disk"})

	assert.Contains(t, result.Error, "unknown tool")
	assert.Contains(t, result.Error, "format_disk")
}

func TestDispatchMissingRequiredParam(t *testing.T) {
	mail := &mailClientMock{}
	d := newTestDispatcher(nil, mail, nil, nil)

	result := d.Dispatch(context.Background(), Call{
		Name:      ToolSendEmail,
		Arguments: map[string]any{"subject": "hi", "body": "there"},
	})

	assert.Contains(t, result.Error, `"to"`)
	assert.Zero(t, mail.calls)
}

func TestDispatchWrongArgumentType(t *testing.T) {
	d := newTestDispatcher(nil, nil, nil, nil)

	result := d.Dispatch(context.Background(), Call{
		Name:      ToolListEmails,
		Arguments: map[string]any{"maxResults": "ten"},
	})

	assert.Contains(t, result.Error, `"maxResults"`)
	assert.Contains(t, result.Error, "number")
}

func TestDispatchListEmailsAppliesDefaultAndSummarizes(t *testing.T) {
	mail := &mailClientMock{
		ListInboxFunc: func(_ context.Context, maxResults int64, query string) ([]gservice.EmailSummary, error) {
			assert.Equal(t, int64(10), maxResults)
			assert.Empty(t, query)
			return []gservice.EmailSummary{
				{ID: "1", IsRead: true},
				{ID: "2", IsRead: false},
				{ID: "3", IsRead: false},
				{ID: "4", IsRead: true},
				{ID: "5", IsRead: false},
			}, nil
		},
	}
	d := newTestDispatcher(nil, mail, nil, nil)

	result := d.Dispatch(context.Background(), Call{Name: ToolListEmails, Arguments: map[string]any{}})

	require.Empty(t, result.Error)
	payload, ok := result.Output.(inboxPayload)
	require.True(t, ok)
	assert.Len(t, payload.Emails, 5)
	assert.Equal(t, 3, payload.UnreadCount)
	assert.Equal(t, 5, payload.TotalCount)
}

func TestDispatchSendEmailResolvesRecipients(t *testing.T) {
	var sentTo string
	var sentCC []string
	mail := &mailClientMock{
		SendFunc: func(_ context.Context, to string, cc []string, subject, body, replyToID string) (*gservice.SendReceipt, error) {
			sentTo = to
			sentCC = cc
			return &gservice.SendReceipt{ID: "m1", Status: "sent"}, nil
		},
	}
	res := &resolverMock{
		ResolveFunc: func(_ context.Context, name string) (string, error) {
			switch name {
			case "Marie":
				return "marie@vendor.io", nil
			case "john@x.com":
				return "john@x.com", nil
			}
			return "", errors.New("unexpected recipient")
		},
	}
	d := newTestDispatcher(nil, mail, nil, res)

	result := d.Dispatch(context.Background(), Call{
		Name: ToolSendEmail,
		Arguments: map[string]any{
			"to":      "Marie",
			"subject": "Hi",
			"body":    "Lunch tomorrow?",
			"cc":      []any{"john@x.com"},
		},
	})

	require.Empty(t, result.Error)
	assert.Equal(t, "marie@vendor.io", sentTo)
	assert.Equal(t, []string{"john@x.com"}, sentCC)
}

func TestDispatchSendEmailUnresolvedRecipientFailsWholeCall(t *testing.T) {
	mail := &mailClientMock{
		SendFunc: func(_ context.Context, _ string, _ []string, _, _, _ string) (*gservice.SendReceipt, error) {
			t.Fatal("send must not run when a recipient is unresolved")
			return nil, nil
		},
	}
	res := &resolverMock{
		ResolveFunc: func(_ context.Context, name string) (string, error) {
			return "", errors.New(`could not resolve recipient "nobody" to an email address`)
		},
	}
	d := newTestDispatcher(nil, mail, nil, res)

	result := d.Dispatch(context.Background(), Call{
		Name: ToolSendEmail,
		Arguments: map[string]any{
			"to":      "nobody",
			"subject": "Hi",
			"body":    "text",
		},
	})

	assert.Contains(t, result.Error, "nobody")
	assert.Zero(t, mail.calls)
}

func TestDispatchMarkEmailReadDefaultsTrue(t *testing.T) {
	var gotRead bool
	mail := &mailClientMock{
		MarkReadFunc: func(_ context.Context, msgID string, read bool) (*gservice.ModifyReceipt, error) {
			gotRead = read
			return &gservice.ModifyReceipt{ID: msgID, IsRead: read}, nil
		},
	}
	d := newTestDispatcher(nil, mail, nil, nil)

	result := d.Dispatch(context.Background(), Call{
		Name:      ToolMarkEmailRead,
		Arguments: map[string]any{"emailId": "m1"},
	})

	require.Empty(t, result.Error)
	assert.True(t, gotRead)
}

func TestDispatchCreateEventResolvesAttendees(t *testing.T) {
	var got gservice.EventInput
	cal := &calendarClientMock{
		CreateEventFunc: func(_ context.Context, in gservice.EventInput) (*gservice.Event, error) {
			got = in
			return &gservice.Event{ID: "ev1", Title: in.Title}, nil
		},
	}
	res := &resolverMock{
		ResolveFunc: func(_ context.Context, name string) (string, error) {
			if name == "John" {
				return "js@x.com", nil
			}
			return name, nil
		},
	}
	d := newTestDispatcher(nil, nil, cal, res)

	result := d.Dispatch(context.Background(), Call{
		Name: ToolCreateEvent,
		Arguments: map[string]any{
			"title":          "Planning",
			"startTime":      "2026-09-01T10:00:00Z",
			"endTime":        "2026-09-01T11:00:00Z",
			"attendees":      []any{"John", "marie@vendor.io"},
			"createMeetLink": true,
		},
	})

	require.Empty(t, result.Error)
	assert.Equal(t, []string{"js@x.com", "marie@vendor.io"}, got.Attendees)
	assert.True(t, got.CreateMeetLink)
}

func TestDispatchCapabilityErrorIsPayload(t *testing.T) {
	mail := &mailClientMock{
		GetMessageFunc: func(_ context.Context, msgID string) (*gservice.EmailDetails, error) {
			return nil, errors.New("message not found")
		},
	}
	d := newTestDispatcher(nil, mail, nil, nil)

	result := d.Dispatch(context.Background(), Call{
		Name:      ToolGetEmailDetails,
		Arguments: map[string]any{"emailId": "missing"},
	})

	assert.Contains(t, result.Error, "message not found")
	payload, ok := result.Payload().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, payload["error"], "message not found")
}

func TestDispatchGetUserProfile(t *testing.T) {
	sess := &sessionMock{
		authenticated: true,
		profile:       &profile.Profile{DisplayName: "Pat", Tone: "friendly and casual"},
	}
	d := newTestDispatcher(sess, nil, nil, nil)

	result := d.Dispatch(context.Background(), Call{Name: ToolGetUserProfile})

	require.Empty(t, result.Error)
	p, ok := result.Output.(*profile.Profile)
	require.True(t, ok)
	assert.Equal(t, "Pat", p.DisplayName)
}

func TestDispatchGetUserProfileAbsent(t *testing.T) {
	d := newTestDispatcher(&sessionMock{authenticated: true}, nil, nil, nil)

	result := d.Dispatch(context.Background(), Call{Name: ToolGetUserProfile})

	assert.Contains(t, result.Error, "profile")
}

func TestDispatchPreservesCallID(t *testing.T) {
	d := newTestDispatcher(&sessionMock{authenticated: false}, nil, nil, nil)

	result := d.Dispatch(context.Background(), Call{CallID: "call_42", Name: ToolListEmails})

	assert.Equal(t, "call_42", result.CallID)
}
