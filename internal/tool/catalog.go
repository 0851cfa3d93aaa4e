// Package tool defines the catalog of operations the assistant may invoke
// and the dispatcher that validates and routes calls to the mail and
// calendar clients. The catalog is the single source of truth: what it
// advertises is exactly what the dispatcher accepts.
package tool

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// Tool names form a closed set. The dispatcher switches over these
// exhaustively; adding a tool means touching both the catalog and the switch.
const (
	ToolListEmails      = "list_emails"
	ToolGetEmailDetails = "get_email_details"
	ToolSendEmail       = "send_email"
	ToolMarkEmailRead   = "mark_email_read"
	ToolDeleteEmail     = "delete_email"
	ToolCreateEvent     = "create_event"
	ToolListEvents      = "list_events"
	ToolGetEventDetails = "get_event_details"
	ToolUpdateEvent     = "update_event"
	ToolDeleteEvent     = "delete_event"
	ToolSearchEvents    = "search_events"
	ToolGetUserProfile  = "get_user_profile"
)

// Param declares one input parameter of a tool.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Default     any
	Enum        []string
}

// Definition is one catalog entry: a named operation and its input contract.
type Definition struct {
	Name        string
	Description string
	Params      []Param
}

// InputSchema renders the parameter contract as a JSON schema object. The
// same schema drives validation, the HTTP listing, the realtime session
// bootstrap, and the MCP tool registration.
func (d Definition) InputSchema() *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(d.Params))
	var required []string

	for _, p := range d.Params {
		s := &jsonschema.Schema{
			Type:        p.Type,
			Description: p.Description,
		}
		if p.Type == "array" {
			s.Items = &jsonschema.Schema{Type: "string"}
		}
		for _, v := range p.Enum {
			s.Enum = append(s.Enum, v)
		}
		properties[p.Name] = s

		if p.Required {
			required = append(required, p.Name)
		}
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// FunctionSpec is a catalog entry shaped for the model's function-calling
// schema.
type FunctionSpec struct {
	Type        string             `json:"type"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

// FunctionSpecs renders the whole catalog for session bootstrap and the
// listing endpoint.
func FunctionSpecs() []FunctionSpec {
	defs := Catalog()
	specs := make([]FunctionSpec, 0, len(defs))
	for _, d := range defs {
		specs = append(specs, FunctionSpec{
			Type:        "function",
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.InputSchema(),
		})
	}
	return specs
}

// Find returns the catalog entry for name.
func Find(name string) (Definition, bool) {
	for _, d := range Catalog() {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Catalog returns the fixed, ordered set of callable operations. Pure and
// safe to call without authentication.
func Catalog() []Definition {
	return []Definition{
		{
			Name:        ToolListEmails,
			Description: "List recent emails from the user's inbox with an unread summary",
			Params: []Param{
				{Name: "maxResults", Type: "number", Description: "Maximum number of emails to return", Default: float64(10)},
				{Name: "query", Type: "string", Description: "Gmail search query, defaults to the whole inbox"},
			},
		},
		{
			Name:        ToolGetEmailDetails,
			Description: "Get the full content of a specific email",
			Params: []Param{
				{Name: "emailId", Type: "string", Description: "ID of the email to fetch", Required: true},
			},
		},
		{
			Name:        ToolSendEmail,
			Description: "Send an email on the user's behalf. Recipients may be contact names or addresses",
			Params: []Param{
				{Name: "to", Type: "string", Description: "Recipient name or email address", Required: true},
				{Name: "subject", Type: "string", Description: "Email subject line", Required: true},
				{Name: "body", Type: "string", Description: "Plain-text email body", Required: true},
				{Name: "cc", Type: "array", Description: "Additional recipient names or addresses"},
				{Name: "replyToId", Type: "string", Description: "ID of the email being replied to, for threading"},
			},
		},
		{
			Name:        ToolMarkEmailRead,
			Description: "Mark an email as read or unread",
			Params: []Param{
				{Name: "emailId", Type: "string", Description: "ID of the email to modify", Required: true},
				{Name: "isRead", Type: "boolean", Description: "true marks read, false marks unread", Default: true},
			},
		},
		{
			Name:        ToolDeleteEmail,
			Description: "Move an email to the trash",
			Params: []Param{
				{Name: "emailId", Type: "string", Description: "ID of the email to delete", Required: true},
			},
		},
		{
			Name:        ToolCreateEvent,
			Description: "Create a calendar event, optionally with a Google Meet link, notifying attendees",
			Params: []Param{
				{Name: "title", Type: "string", Description: "Event title", Required: true},
				{Name: "startTime", Type: "string", Description: "Start time in RFC3339 format", Required: true},
				{Name: "endTime", Type: "string", Description: "End time in RFC3339 format", Required: true},
				{Name: "description", Type: "string", Description: "Event description"},
				{Name: "location", Type: "string", Description: "Event location"},
				{Name: "attendees", Type: "array", Description: "Attendee names or email addresses"},
				{Name: "timezone", Type: "string", Description: "IANA timezone for the event times"},
				{Name: "createMeetLink", Type: "boolean", Description: "Attach a Google Meet conference", Default: false},
			},
		},
		{
			Name:        ToolListEvents,
			Description: "List upcoming calendar events",
			Params: []Param{
				{Name: "maxResults", Type: "number", Description: "Maximum number of events to return", Default: float64(10)},
				{Name: "timeMin", Type: "string", Description: "Earliest start time in RFC3339 format, defaults to now"},
				{Name: "timeMax", Type: "string", Description: "Latest start time in RFC3339 format"},
			},
		},
		{
			Name:        ToolGetEventDetails,
			Description: "Get the full details of a specific calendar event",
			Params: []Param{
				{Name: "eventId", Type: "string", Description: "ID of the event to fetch", Required: true},
			},
		},
		{
			Name:        ToolUpdateEvent,
			Description: "Update fields of an existing calendar event, notifying attendees",
			Params: []Param{
				{Name: "eventId", Type: "string", Description: "ID of the event to update", Required: true},
				{Name: "title", Type: "string", Description: "New event title"},
				{Name: "startTime", Type: "string", Description: "New start time in RFC3339 format"},
				{Name: "endTime", Type: "string", Description: "New end time in RFC3339 format"},
				{Name: "description", Type: "string", Description: "New event description"},
				{Name: "location", Type: "string", Description: "New event location"},
				{Name: "attendees", Type: "array", Description: "Replacement attendee names or addresses"},
				{Name: "timezone", Type: "string", Description: "IANA timezone for the new times"},
			},
		},
		{
			Name:        ToolDeleteEvent,
			Description: "Delete a calendar event, notifying attendees",
			Params: []Param{
				{Name: "eventId", Type: "string", Description: "ID of the event to delete", Required: true},
			},
		},
		{
			Name:        ToolSearchEvents,
			Description: "Search calendar events by text query",
			Params: []Param{
				{Name: "query", Type: "string", Description: "Text to match against event fields", Required: true},
				{Name: "maxResults", Type: "number", Description: "Maximum number of events to return", Default: float64(10)},
				{Name: "timeMin", Type: "string", Description: "Earliest start time in RFC3339 format"},
				{Name: "timeMax", Type: "string", Description: "Latest start time in RFC3339 format"},
			},
		},
		{
			Name:        ToolGetUserProfile,
			Description: "Get the user's behavioral profile built from their sent mail",
			Params:      []Param{},
		},
	}
}
