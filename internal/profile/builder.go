package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/rs/zerolog/log"
)

const (
	maxSourceMessages = 1000
	maxChunkChars     = 4500
	maxChunks         = 5
	maxBodyChars      = 4000
)

// SentMessage is one outgoing email used as profiler input. To holds raw
// recipient header values ("Display Name <addr@host>" or bare addresses).
type SentMessage struct {
	Subject string
	From    string
	To      []string
	Body    string
}

type textConverter interface {
	Text(raw []byte) string
}

// Builder derives a Profile from sent mail. The LLM pipeline does the heavy
// lifting; heuristics take over when no client is configured or every LLM
// call fails.
type Builder struct {
	client *openai.Client
	model  string
	conv   textConverter
}

// NewBuilder creates a Builder. client may be nil to force heuristics.
func NewBuilder(client *openai.Client, model string, conv textConverter) *Builder {
	return &Builder{client: client, model: model, conv: conv}
}

// Build constructs a Profile from up to the 1,000 most recent sent messages.
// It never fails: an empty input yields an empty profile, and LLM errors
// degrade to heuristics.
func (b *Builder) Build(ctx context.Context, sent []SentMessage) *Profile {
	if len(sent) == 0 {
		return &Profile{}
	}
	if len(sent) > maxSourceMessages {
		sent = sent[:maxSourceMessages]
	}

	if b.client != nil {
		p, err := b.buildLLM(ctx, sent)
		if err == nil {
			return p
		}
		log.Warn().Err(err).Msg("LLM profile generation failed, using heuristics")
	}

	return b.buildHeuristic(sent)
}

func (b *Builder) buildLLM(ctx context.Context, sent []SentMessage) (*Profile, error) {
	chunks := b.chunkMessages(sent)

	partials := make([]json.RawMessage, 0, len(chunks))
	for _, chunk := range chunks {
		partial, err := b.analyzeChunk(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("analyzeChunk failed: %w", err)
		}
		partials = append(partials, partial)
	}

	merged, err := b.mergePartials(ctx, partials)
	if err != nil {
		return nil, fmt.Errorf("mergePartials failed: %w", err)
	}

	p := &Profile{}
	if err := json.Unmarshal(merged, p); err != nil {
		return nil, fmt.Errorf("json.Unmarshal failed: %w", err)
	}
	normalizeContacts(p)

	return p, nil
}

func (b *Builder) chunkMessages(sent []SentMessage) []string {
	var chunks []string
	var current strings.Builder

	for _, msg := range sent {
		body := b.conv.Text([]byte(msg.Body))
		if len(body) > maxBodyChars {
			body = body[:maxBodyChars]
		}

		subject := msg.Subject
		if len(subject) > 200 {
			subject = subject[:200]
		}

		block := strings.Join([]string{
			"Subject: " + subject,
			"From: " + msg.From,
			"To: " + strings.Join(msg.To, ", "),
			"Body:",
			body,
			"---",
		}, "\n")

		if current.Len() > 0 && current.Len()+len(block) > maxChunkChars {
			chunks = append(chunks, current.String())
			if len(chunks) == maxChunks {
				return chunks
			}
			current.Reset()
		}
		current.WriteString(block)
	}

	if current.Len() > 0 && len(chunks) < maxChunks {
		chunks = append(chunks, current.String())
	}

	return chunks
}

const profileSchemaHint = `{
  "name": "", "profession": "", "email": "", "tone": "", "signature": "",
  "frequentContacts": [], "coworkers": [], "typicalAvailability": [],
  "hobbies": [], "commonEmailIntents": [],
  "contacts": [{"name": "", "email": ""}],
  "averageSentenceLength": 0, "frequentPhrases": []
}`

func (b *Builder) analyzeChunk(ctx context.Context, chunk string) (json.RawMessage, error) {
	system := "You extract user behavioural profiles. Respond with strict JSON and nothing else."
	user := fmt.Sprintf("Using the e-mails below, build a partial profile with this schema:\n%s\nE-mails:\n%s",
		profileSchemaHint, chunk)

	return b.completeJSON(ctx, system, user)
}

func (b *Builder) mergePartials(ctx context.Context, partials []json.RawMessage) (json.RawMessage, error) {
	system := "You merge multiple partial user profiles into a single JSON profile. Respond with strict JSON and nothing else."

	var user strings.Builder
	user.WriteString("Merge the following JSON snippets into ONE complete profile. Return JSON only, same schema.\n")
	for i, p := range partials {
		fmt.Fprintf(&user, "\n### Profile %d\n%s\n", i+1, p)
	}

	return b.completeJSON(ctx, system, user.String())
}

func (b *Builder) completeJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("completions.New failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in completion response")
	}

	return firstJSONObject(resp.Choices[0].Message.Content)
}

// firstJSONObject extracts the outermost {...} span from an LLM reply that
// may carry prose around the JSON.
func firstJSONObject(content string) (json.RawMessage, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return nil, errors.New("no JSON object in completion content")
	}

	raw := json.RawMessage(content[start : end+1])
	if !json.Valid(raw) {
		return nil, errors.New("malformed JSON object in completion content")
	}

	return raw, nil
}

func (b *Builder) buildHeuristic(sent []SentMessage) *Profile {
	sample := sent
	if len(sample) > 10 {
		sample = sample[:10]
	}

	bodies := make([]string, 0, len(sample))
	for _, msg := range sample {
		bodies = append(bodies, b.conv.Text([]byte(msg.Body)))
	}

	p := &Profile{
		Tone:                  detectTone(bodies),
		AverageSentenceLength: averageSentenceLength(bodies),
		FrequentPhrases:       topBigrams(bodies, 5),
	}

	for _, body := range bodies {
		if sig := extractSignature(body); sig != "" {
			p.Signature = sig
			break
		}
	}

	harvestRecipients(p, sent)

	return p
}

func normalizeContacts(p *Profile) {
	contacts := p.Contacts
	p.Contacts = nil
	for _, c := range contacts {
		p.AddContact(c.Name, c.Email)
	}
}
