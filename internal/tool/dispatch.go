package tool

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voxmail/voxmail/internal/gservice"
	"github.com/voxmail/voxmail/internal/profile"
)

// Call is one requested tool invocation. CallID is caller-assigned and
// opaque; deduplication by CallID belongs to the session layer, not here.
type Call struct {
	CallID    string         `json:"call_id,omitempty"`
	Name      string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
}

// Result is the structured outcome of one call. Exactly one of Output and
// Error is meaningful; errors are payload, never panics.
type Result struct {
	CallID string
	Output any
	Error  string
}

// Payload returns the value handed back to the model: the success output or
// an {error: message} object.
func (r Result) Payload() any {
	if r.Error != "" {
		return map[string]string{"error": r.Error}
	}
	return r.Output
}

type session interface {
	Authenticated() bool
	Profile() *profile.Profile
}

type mailClient interface {
	ListInbox(ctx context.Context, maxResults int64, query string) ([]gservice.EmailSummary, error)
	GetMessage(ctx context.Context, msgID string) (*gservice.EmailDetails, error)
	Send(ctx context.Context, to string, cc []string, subject, body, replyToID string) (*gservice.SendReceipt, error)
	MarkRead(ctx context.Context, msgID string, read bool) (*gservice.ModifyReceipt, error)
	Delete(ctx context.Context, msgID string) (*gservice.DeleteReceipt, error)
}

type calendarClient interface {
	CreateEvent(ctx context.Context, in gservice.EventInput) (*gservice.Event, error)
	ListEvents(ctx context.Context, q gservice.EventQuery) ([]gservice.Event, error)
	SearchEvents(ctx context.Context, q gservice.EventQuery) ([]gservice.Event, error)
	GetEvent(ctx context.Context, eventID string) (*gservice.Event, error)
	UpdateEvent(ctx context.Context, eventID string, in gservice.EventInput) (*gservice.Event, error)
	DeleteEvent(ctx context.Context, eventID string) (*gservice.DeleteReceipt, error)
}

type recipientResolver interface {
	Resolve(ctx context.Context, nameOrAddress string) (string, error)
}

const callTimeout = 60 * time.Second

// NewDispatcher wires the dispatcher core to its collaborators.
func NewDispatcher(sess session, mail mailClient, cal calendarClient, resolver recipientResolver) *Dispatcher {
	return &Dispatcher{sess: sess, mail: mail, cal: cal, resolver: resolver}
}

// Dispatcher validates and routes tool calls. It is stateless and safe to
// invoke concurrently for distinct call identifiers.
type Dispatcher struct {
	sess     session
	mail     mailClient
	cal      calendarClient
	resolver recipientResolver
}

// Dispatch runs one call through the auth gate, the name gate, argument
// validation, recipient resolution and routing. Every failure lands in the
// Result's Error field; nothing escapes to the transport.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) Result {
	result := Result{CallID: call.CallID}

	if !d.sess.Authenticated() {
		result.Error = ErrAuthRequired.Error()
		return result
	}

	def, ok := Find(call.Name)
	if !ok {
		result.Error = (&UnknownToolError{Name: call.Name}).Error()
		return result
	}

	args, err := validateArgs(def, call.Arguments)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	output, err := d.route(ctx, call.Name, args)
	if err != nil {
		log.Debug().Str("tool", call.Name).Str("call_id", call.CallID).Err(err).Msg("tool call failed")
		result.Error = err.Error()
		return result
	}

	result.Output = output
	return result
}

// route binds each catalog name to exactly one capability-client method.
// The switch is exhaustive over the tool-name constants; Find has already
// rejected anything else.
func (d *Dispatcher) route(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolListEmails:
		return d.listEmails(ctx, args)
	case ToolGetEmailDetails:
		details, err := d.mail.GetMessage(ctx, stringArg(args, "emailId"))
		return d.capability(name, details, err)
	case ToolSendEmail:
		return d.sendEmail(ctx, args)
	case ToolMarkEmailRead:
		receipt, err := d.mail.MarkRead(ctx, stringArg(args, "emailId"), boolArg(args, "isRead"))
		return d.capability(name, receipt, err)
	case ToolDeleteEmail:
		receipt, err := d.mail.Delete(ctx, stringArg(args, "emailId"))
		return d.capability(name, receipt, err)
	case ToolCreateEvent:
		return d.createEvent(ctx, args)
	case ToolListEvents:
		return d.listEvents(ctx, args)
	case ToolGetEventDetails:
		event, err := d.cal.GetEvent(ctx, stringArg(args, "eventId"))
		return d.capability(name, event, err)
	case ToolUpdateEvent:
		return d.updateEvent(ctx, args)
	case ToolDeleteEvent:
		receipt, err := d.cal.DeleteEvent(ctx, stringArg(args, "eventId"))
		return d.capability(name, receipt, err)
	case ToolSearchEvents:
		return d.searchEvents(ctx, args)
	case ToolGetUserProfile:
		return d.userProfile()
	}

	return nil, &UnknownToolError{Name: name}
}

func (d *Dispatcher) capability(tool string, output any, err error) (any, error) {
	if err != nil {
		return nil, &CapabilityError{Tool: tool, Err: err}
	}
	return output, nil
}

type inboxPayload struct {
	Emails []gservice.EmailSummary `json:"emails"`
	gservice.InboxSummary
}

func (d *Dispatcher) listEmails(ctx context.Context, args map[string]any) (any, error) {
	emails, err := d.mail.ListInbox(ctx, numberArg(args, "maxResults"), stringArg(args, "query"))
	if err != nil {
		return nil, &CapabilityError{Tool: ToolListEmails, Err: err}
	}

	return inboxPayload{Emails: emails, InboxSummary: gservice.SummarizeInbox(emails)}, nil
}

func (d *Dispatcher) sendEmail(ctx context.Context, args map[string]any) (any, error) {
	to, err := d.resolver.Resolve(ctx, stringArg(args, "to"))
	if err != nil {
		return nil, err
	}

	cc, err := d.resolveAll(ctx, stringSliceArg(args, "cc"))
	if err != nil {
		return nil, err
	}

	receipt, err := d.mail.Send(ctx, to, cc,
		stringArg(args, "subject"), stringArg(args, "body"), stringArg(args, "replyToId"))
	if err != nil {
		return nil, &CapabilityError{Tool: ToolSendEmail, Err: err}
	}

	return receipt, nil
}

func (d *Dispatcher) createEvent(ctx context.Context, args map[string]any) (any, error) {
	attendees, err := d.resolveAll(ctx, stringSliceArg(args, "attendees"))
	if err != nil {
		return nil, err
	}

	event, err := d.cal.CreateEvent(ctx, gservice.EventInput{
		Title:          stringArg(args, "title"),
		Description:    stringArg(args, "description"),
		Location:       stringArg(args, "location"),
		StartTime:      stringArg(args, "startTime"),
		EndTime:        stringArg(args, "endTime"),
		Timezone:       stringArg(args, "timezone"),
		Attendees:      attendees,
		CreateMeetLink: boolArg(args, "createMeetLink"),
	})
	if err != nil {
		return nil, &CapabilityError{Tool: ToolCreateEvent, Err: err}
	}

	return event, nil
}

func (d *Dispatcher) updateEvent(ctx context.Context, args map[string]any) (any, error) {
	attendees, err := d.resolveAll(ctx, stringSliceArg(args, "attendees"))
	if err != nil {
		return nil, err
	}

	event, err := d.cal.UpdateEvent(ctx, stringArg(args, "eventId"), gservice.EventInput{
		Title:       stringArg(args, "title"),
		Description: stringArg(args, "description"),
		Location:    stringArg(args, "location"),
		StartTime:   stringArg(args, "startTime"),
		EndTime:     stringArg(args, "endTime"),
		Timezone:    stringArg(args, "timezone"),
		Attendees:   attendees,
	})
	if err != nil {
		return nil, &CapabilityError{Tool: ToolUpdateEvent, Err: err}
	}

	return event, nil
}

type eventListPayload struct {
	Events []gservice.Event `json:"events"`
	Count  int              `json:"count"`
}

func (d *Dispatcher) listEvents(ctx context.Context, args map[string]any) (any, error) {
	events, err := d.cal.ListEvents(ctx, gservice.EventQuery{
		MaxResults: numberArg(args, "maxResults"),
		TimeMin:    stringArg(args, "timeMin"),
		TimeMax:    stringArg(args, "timeMax"),
	})
	if err != nil {
		return nil, &CapabilityError{Tool: ToolListEvents, Err: err}
	}

	return eventListPayload{Events: events, Count: len(events)}, nil
}

func (d *Dispatcher) searchEvents(ctx context.Context, args map[string]any) (any, error) {
	events, err := d.cal.SearchEvents(ctx, gservice.EventQuery{
		Query:      stringArg(args, "query"),
		MaxResults: numberArg(args, "maxResults"),
		TimeMin:    stringArg(args, "timeMin"),
		TimeMax:    stringArg(args, "timeMax"),
	})
	if err != nil {
		return nil, &CapabilityError{Tool: ToolSearchEvents, Err: err}
	}

	return eventListPayload{Events: events, Count: len(events)}, nil
}

func (d *Dispatcher) userProfile() (any, error) {
	p := d.sess.Profile()
	if p == nil {
		return nil, errors.New("no behavioral profile available for this session")
	}
	return p, nil
}

// resolveAll maps every entry to an address or fails the whole set. Partial
// delivery to only the resolvable recipients is never acceptable.
func (d *Dispatcher) resolveAll(ctx context.Context, entries []string) ([]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		addr, err := d.resolver.Resolve(ctx, entry)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// validateArgs checks the supplied arguments against the tool's declared
// parameters and fills in defaults. Unknown argument names are dropped.
func validateArgs(def Definition, supplied map[string]any) (map[string]any, error) {
	args := make(map[string]any, len(def.Params))

	for _, p := range def.Params {
		value, present := supplied[p.Name]
		if !present || value == nil {
			if p.Required {
				return nil, &ValidationError{Param: p.Name, Reason: "required parameter missing"}
			}
			if p.Default != nil {
				args[p.Name] = p.Default
			}
			continue
		}

		normalized, err := coerceType(p, value)
		if err != nil {
			return nil, err
		}
		args[p.Name] = normalized
	}

	return args, nil
}

func coerceType(p Param, value any) (any, error) {
	switch p.Type {
	case "string":
		s, ok := value.(string)
		if !ok {
			return nil, &ValidationError{Param: p.Name, Reason: "expected a string"}
		}
		if len(p.Enum) > 0 && !containsString(p.Enum, s) {
			return nil, &ValidationError{Param: p.Name, Reason: "value not in allowed set"}
		}
		return s, nil
	case "number":
		switch n := value.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return nil, &ValidationError{Param: p.Name, Reason: "expected a number"}
	case "boolean":
		b, ok := value.(bool)
		if !ok {
			return nil, &ValidationError{Param: p.Name, Reason: "expected a boolean"}
		}
		return b, nil
	case "array":
		return coerceStringSlice(p, value)
	}

	return value, nil
}

func coerceStringSlice(p Param, value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, &ValidationError{Param: p.Name, Reason: "expected an array of strings"}
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, &ValidationError{Param: p.Name, Reason: "expected an array of strings"}
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func numberArg(args map[string]any, name string) int64 {
	f, _ := args[name].(float64)
	return int64(f)
}

func boolArg(args map[string]any, name string) bool {
	b, _ := args[name].(bool)
	return b
}

func stringSliceArg(args map[string]any, name string) []string {
	s, _ := args[name].([]string)
	return s
}
