package gservice

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const primaryCalendarID = "primary"

// EventInput carries the writable fields for create/update operations.
// Zero values mean "not provided"; UpdateEvent only touches set fields.
type EventInput struct {
	Title          string
	Description    string
	Location       string
	StartTime      string
	EndTime        string
	Timezone       string
	Attendees      []string
	CreateMeetLink bool
}

// EventQuery bounds list/search operations.
type EventQuery struct {
	Query      string
	MaxResults int64
	TimeMin    string
	TimeMax    string
}

// NewCalendar creates the Google Calendar capability client.
func NewCalendar(cfg *oauth2.Config, creds credentials) *Calendar {
	return &Calendar{cfg: cfg, creds: creds}
}

// Calendar exposes the event operations the dispatcher routes to.
type Calendar struct {
	cfg   *oauth2.Config
	creds credentials
}

// CreateEvent inserts an event on the primary calendar, optionally with a
// Meet conference, notifying attendees.
func (c *Calendar) CreateEvent(ctx context.Context, in EventInput) (*Event, error) {
	svc, err := c.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	tz := in.Timezone
	if tz == "" {
		tz = "UTC"
	}

	ev := &calendar.Event{
		Summary:     in.Title,
		Description: in.Description,
		Location:    in.Location,
		Start:       &calendar.EventDateTime{DateTime: in.StartTime, TimeZone: tz},
		End:         &calendar.EventDateTime{DateTime: in.EndTime, TimeZone: tz},
		Attendees:   makeAttendees(in.Attendees),
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 10},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	conferenceVersion := int64(0)
	if in.CreateMeetLink {
		conferenceVersion = 1
		ev.ConferenceData = meetRequest()
	}

	created, err := svc.Events.Insert(primaryCalendarID, ev).
		ConferenceDataVersion(conferenceVersion).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("events.Insert failed: %w", err)
	}

	return mapEvent(created), nil
}

// ListEvents returns upcoming events ordered by start time. TimeMin defaults
// to now.
func (c *Calendar) ListEvents(ctx context.Context, q EventQuery) ([]Event, error) {
	svc, err := c.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	timeMin := q.TimeMin
	if timeMin == "" {
		timeMin = time.Now().Format(time.RFC3339)
	}

	call := svc.Events.List(primaryCalendarID).
		TimeMin(timeMin).
		MaxResults(q.MaxResults).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)

	if q.TimeMax != "" {
		call = call.TimeMax(q.TimeMax)
	}
	if q.Query != "" {
		call = call.Q(q.Query)
	}

	result, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("events.List failed: %w", err)
	}

	return mapEvents(result.Items), nil
}

// SearchEvents finds events matching a text query, unbounded in time unless
// the query says otherwise.
func (c *Calendar) SearchEvents(ctx context.Context, q EventQuery) ([]Event, error) {
	svc, err := c.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	call := svc.Events.List(primaryCalendarID).
		Q(q.Query).
		MaxResults(q.MaxResults).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)

	if q.TimeMin != "" {
		call = call.TimeMin(q.TimeMin)
	}
	if q.TimeMax != "" {
		call = call.TimeMax(q.TimeMax)
	}

	result, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("events.List failed: %w", err)
	}

	return mapEvents(result.Items), nil
}

// GetEvent returns one event by ID.
func (c *Calendar) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	svc, err := c.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	ev, err := svc.Events.Get(primaryCalendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("events.Get failed: %w", err)
	}

	return mapEvent(ev), nil
}

// UpdateEvent merges the set fields of in into the stored event and writes
// it back, notifying attendees.
func (c *Calendar) UpdateEvent(ctx context.Context, eventID string, in EventInput) (*Event, error) {
	svc, err := c.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	current, err := svc.Events.Get(primaryCalendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("events.Get failed: %w", err)
	}

	if in.Title != "" {
		current.Summary = in.Title
	}
	if in.Description != "" {
		current.Description = in.Description
	}
	if in.Location != "" {
		current.Location = in.Location
	}
	if in.StartTime != "" {
		current.Start = &calendar.EventDateTime{DateTime: in.StartTime, TimeZone: mergedTimezone(in.Timezone, current.Start)}
	}
	if in.EndTime != "" {
		current.End = &calendar.EventDateTime{DateTime: in.EndTime, TimeZone: mergedTimezone(in.Timezone, current.End)}
	}
	if in.Attendees != nil {
		current.Attendees = makeAttendees(in.Attendees)
	}

	conferenceVersion := int64(0)
	if in.CreateMeetLink && current.ConferenceData == nil {
		conferenceVersion = 1
		current.ConferenceData = meetRequest()
	}

	updated, err := svc.Events.Update(primaryCalendarID, eventID, current).
		ConferenceDataVersion(conferenceVersion).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("events.Update failed: %w", err)
	}

	return mapEvent(updated), nil
}

// DeleteEvent removes an event, notifying attendees.
func (c *Calendar) DeleteEvent(ctx context.Context, eventID string) (*DeleteReceipt, error) {
	svc, err := c.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	if err := svc.Events.Delete(primaryCalendarID, eventID).SendUpdates("all").Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("events.Delete failed: %w", err)
	}

	return &DeleteReceipt{ID: eventID, Status: "deleted"}, nil
}

// QueryFreeBusy returns busy windows for the given calendars (primary when
// empty) between timeMin and timeMax.
func (c *Calendar) QueryFreeBusy(ctx context.Context, timeMin, timeMax string, calendars []string) (*FreeBusy, error) {
	svc, err := c.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	if len(calendars) == 0 {
		calendars = []string{primaryCalendarID}
	}

	items := make([]*calendar.FreeBusyRequestItem, 0, len(calendars))
	for _, id := range calendars {
		items = append(items, &calendar.FreeBusyRequestItem{Id: id})
	}

	resp, err := svc.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: timeMin,
		TimeMax: timeMax,
		Items:   items,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy.Query failed: %w", err)
	}

	out := &FreeBusy{TimeMin: timeMin, TimeMax: timeMax, Calendars: map[string][]BusyInterval{}}
	for id, cal := range resp.Calendars {
		intervals := make([]BusyInterval, 0, len(cal.Busy))
		for _, b := range cal.Busy {
			intervals = append(intervals, BusyInterval{Start: b.Start, End: b.End})
		}
		out.Calendars[id] = intervals
	}

	return out, nil
}

func (c *Calendar) newSvc(ctx context.Context) (*calendar.Service, error) {
	creds, err := c.creds.Credentials()
	if err != nil {
		return nil, fmt.Errorf("creds.Credentials failed: %w", err)
	}

	clt := c.cfg.Client(ctx, creds.Token())

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(clt))
	if err != nil {
		return nil, fmt.Errorf("calendar.NewService failed: %w", err)
	}

	return svc, nil
}

func makeAttendees(addrs []string) []*calendar.EventAttendee {
	out := make([]*calendar.EventAttendee, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, &calendar.EventAttendee{Email: a})
	}
	return out
}

func meetRequest() *calendar.ConferenceData {
	return &calendar.ConferenceData{
		CreateRequest: &calendar.CreateConferenceRequest{
			RequestId:             fmt.Sprintf("meet_%d", time.Now().UnixNano()),
			ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
		},
	}
}

func mergedTimezone(override string, dt *calendar.EventDateTime) string {
	if override != "" {
		return override
	}
	if dt != nil && dt.TimeZone != "" {
		return dt.TimeZone
	}
	return "UTC"
}

func mapEvents(items []*calendar.Event) []Event {
	out := make([]Event, 0, len(items))
	for _, ev := range items {
		out = append(out, *mapEvent(ev))
	}
	return out
}

func mapEvent(ev *calendar.Event) *Event {
	out := &Event{
		ID:           ev.Id,
		Title:        ev.Summary,
		Description:  ev.Description,
		Location:     ev.Location,
		CalendarLink: ev.HtmlLink,
		Status:       ev.Status,
	}
	if out.Title == "" {
		out.Title = "No Title"
	}

	if ev.Start != nil {
		out.StartTime = ev.Start.DateTime
		if out.StartTime == "" {
			out.StartTime = ev.Start.Date
		}
		out.Timezone = ev.Start.TimeZone
	}
	if ev.End != nil {
		out.EndTime = ev.End.DateTime
		if out.EndTime == "" {
			out.EndTime = ev.End.Date
		}
	}

	for _, a := range ev.Attendees {
		out.Attendees = append(out.Attendees, a.Email)
	}

	if ev.ConferenceData != nil && len(ev.ConferenceData.EntryPoints) > 0 {
		out.MeetLink = ev.ConferenceData.EntryPoints[0].Uri
	}

	if ev.Creator != nil {
		out.CreatedBy = ev.Creator.Email
	}

	return out
}
