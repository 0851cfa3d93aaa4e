package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/voxmail/voxmail/internal/profile"
	"github.com/voxmail/voxmail/internal/tool"
)

// Invoker executes one tool call and returns the serialized result payload.
type Invoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (string, error)
}

type transport interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
}

// Session bridges one realtime connection. The processed set is owned by
// this session alone and dies with it; a reconnect gets a fresh Session.
type Session struct {
	conn      transport
	invoker   Invoker
	voice     string
	profile   *profile.Profile
	processed map[string]struct{}
	bootstrap bool
}

// NewSession creates a bridge for one freshly opened connection. prof may be
// nil for an unpersonalized session.
func NewSession(conn transport, invoker Invoker, voice string, prof *profile.Profile) *Session {
	return &Session{
		conn:      conn,
		invoker:   invoker,
		voice:     voice,
		profile:   prof,
		processed: make(map[string]struct{}),
	}
}

// Run consumes the event stream until the connection closes or ctx ends.
// Tool failures never terminate the session; only transport failures do.
func (s *Session) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var event Event
		if err := s.conn.ReadJSON(&event); err != nil {
			if errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "close") {
				return nil
			}
			return fmt.Errorf("conn.ReadJSON failed: %w", err)
		}

		if err := s.handle(ctx, &event); err != nil {
			return err
		}
	}
}

func (s *Session) handle(ctx context.Context, event *Event) error {
	switch event.Type {
	case eventSessionCreated:
		return s.sendBootstrap()
	case eventError:
		if event.Error != nil {
			log.Warn().Str("code", event.Error.Code).Str("message", event.Error.Message).
				Msg("realtime session reported error")
		}
		return nil
	}

	for _, call := range event.FunctionCalls() {
		if err := s.handleCall(ctx, call); err != nil {
			return err
		}
	}

	return nil
}

// sendBootstrap advertises the catalog and operating instructions exactly
// once per connection, gated on the transport's session.created signal.
func (s *Session) sendBootstrap() error {
	if s.bootstrap {
		return nil
	}
	s.bootstrap = true

	update := outboundEvent{
		Type:    "session.update",
		EventID: uuid.NewString(),
		Session: &sessionConfig{
			Instructions: instructions(s.profile),
			Voice:        s.voice,
			Tools:        tool.FunctionSpecs(),
			ToolChoice:   "auto",
		},
	}
	if err := s.conn.WriteJSON(update); err != nil {
		return fmt.Errorf("conn.WriteJSON session.update failed: %w", err)
	}

	if s.profile != nil {
		if err := s.sendPersonalization(); err != nil {
			return err
		}
	}

	return nil
}

func (s *Session) sendPersonalization() error {
	item := outboundEvent{
		Type:    "conversation.item.create",
		EventID: uuid.NewString(),
		Item: &conversationItem{
			Type: "message",
			Role: "user",
			Content: []messageContent{{
				Type: "input_text",
				Text: personalization(s.profile),
			}},
		},
	}
	if err := s.conn.WriteJSON(item); err != nil {
		return fmt.Errorf("conn.WriteJSON personalization failed: %w", err)
	}

	respond := outboundEvent{Type: "response.create", EventID: uuid.NewString()}
	if err := s.conn.WriteJSON(respond); err != nil {
		return fmt.Errorf("conn.WriteJSON response.create failed: %w", err)
	}

	return nil
}

// handleCall executes one extracted function call, deduplicating by call
// identifier. Every accepted call produces exactly one function_call_output
// event; invoker failures become an {error} payload so the model always
// gets closure.
func (s *Session) handleCall(ctx context.Context, call FunctionCall) error {
	if call.CallID == "" {
		return nil
	}
	if _, seen := s.processed[call.CallID]; seen {
		log.Debug().Str("call_id", call.CallID).Msg("duplicate function call discarded")
		return nil
	}
	s.processed[call.CallID] = struct{}{}

	output, err := s.invoker.Invoke(ctx, call.Name, call.Arguments)
	if err != nil {
		log.Warn().Str("tool", call.Name).Str("call_id", call.CallID).Err(err).
			Msg("tool invocation failed at transport")
		output = errorPayload(err)
	}

	result := outboundEvent{
		Type:    "conversation.item.create",
		EventID: uuid.NewString(),
		Item: &conversationItem{
			Type:   "function_call_output",
			CallID: call.CallID,
			Output: output,
		},
	}
	if err := s.conn.WriteJSON(result); err != nil {
		return fmt.Errorf("conn.WriteJSON function_call_output failed: %w", err)
	}

	respond := outboundEvent{Type: "response.create", EventID: uuid.NewString()}
	if err := s.conn.WriteJSON(respond); err != nil {
		return fmt.Errorf("conn.WriteJSON response.create failed: %w", err)
	}

	return nil
}

func errorPayload(err error) string {
	serialized, marshalErr := json.Marshal(map[string]string{"error": err.Error()})
	if marshalErr != nil {
		return `{"error":"tool invocation failed"}`
	}
	return string(serialized)
}

type outboundEvent struct {
	Type     string            `json:"type"`
	EventID  string            `json:"event_id,omitempty"`
	Session  *sessionConfig    `json:"session,omitempty"`
	Item     *conversationItem `json:"item,omitempty"`
	Response *responseConfig   `json:"response,omitempty"`
}

type sessionConfig struct {
	Instructions string              `json:"instructions,omitempty"`
	Voice        string              `json:"voice,omitempty"`
	Tools        []tool.FunctionSpec `json:"tools,omitempty"`
	ToolChoice   string              `json:"tool_choice,omitempty"`
}

type conversationItem struct {
	Type    string           `json:"type"`
	Role    string           `json:"role,omitempty"`
	CallID  string           `json:"call_id,omitempty"`
	Output  string           `json:"output,omitempty"`
	Content []messageContent `json:"content,omitempty"`
}

type messageContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseConfig struct {
	Instructions string `json:"instructions,omitempty"`
}

const baseInstructions = "You are a helpful voice assistant for email and calendar management. " +
	"Use the provided tools to read, send and organize the user's email and to manage calendar events. " +
	"Confirm before sending email or deleting anything. Keep spoken replies short and natural. " +
	"When a tool returns an error, explain it briefly and ask how to proceed."

func instructions(p *profile.Profile) string {
	if p == nil {
		return baseInstructions
	}

	var b strings.Builder
	b.WriteString(baseInstructions)

	if p.DisplayName != "" {
		fmt.Fprintf(&b, " The user's name is %s.", p.DisplayName)
	}
	if p.Tone != "" {
		fmt.Fprintf(&b, " Match their usual writing tone: %s.", p.Tone)
	}
	if p.Signature != "" {
		fmt.Fprintf(&b, " Sign outgoing email with: %s", p.Signature)
	}

	return b.String()
}

func personalization(p *profile.Profile) string {
	var b strings.Builder
	b.WriteString("Context about me for this session (do not read it back verbatim): ")

	encoded, err := json.Marshal(p)
	if err != nil {
		return b.String()
	}
	b.Write(encoded)
	b.WriteString(" Greet me briefly by name.")

	return b.String()
}
