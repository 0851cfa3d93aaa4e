package profile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxmail/voxmail/internal/format"
	"github.com/voxmail/voxmail/internal/profile"
)

func TestBuildEmptyInput(t *testing.T) {
	b := profile.NewBuilder(nil, "", format.Converter{})

	p := b.Build(context.Background(), nil)

	require.NotNil(t, p)
	assert.Empty(t, p.Contacts)
	assert.Empty(t, p.Tone)
}

func TestBuildHeuristics(t *testing.T) {
	sent := []profile.SentMessage{
		{
			Subject: "Standup notes",
			From:    "Pat Doe <pat@acme.com>",
			To:      []string{"John Smith <john.smith@acme.com>"},
			Body:    "Hey John! Thanks for the notes. See you at the office tomorrow.\n\nThanks,\nPat",
		},
		{
			Subject: "Re: Budget",
			From:    "Pat Doe <pat@acme.com>",
			To:      []string{"John Smith <john.smith@acme.com>", "marie@vendor.io"},
			Body:    "Hi both! Numbers look fine. Thanks again!",
		},
		{
			Subject: "Lunch",
			From:    "Pat Doe <pat@acme.com>",
			To:      []string{"marie@vendor.io"},
			Body:    "Hey! Lunch at noon?",
		},
		{
			Subject: "Lunch again",
			From:    "Pat Doe <pat@acme.com>",
			To:      []string{"marie@vendor.io"},
			Body:    "Hey! Same place?",
		},
	}

	b := profile.NewBuilder(nil, "", format.Converter{})
	p := b.Build(context.Background(), sent)

	assert.Equal(t, "friendly and casual", p.Tone)
	assert.Equal(t, "pat@acme.com", p.PrimaryEmail)

	// marie appears three times, john twice
	require.Equal(t, []string{"marie@vendor.io", "john.smith@acme.com"}, p.FrequentContacts)
	assert.Equal(t, []string{"john.smith@acme.com"}, p.Coworkers)

	assert.Equal(t, "john.smith@acme.com", p.FindContact("John Smith"))
	assert.Greater(t, p.AverageSentenceLength, 0.0)
}

func TestBuildHeuristicSignature(t *testing.T) {
	sent := []profile.SentMessage{
		{
			From: "pat@acme.com",
			To:   []string{"a@b.com"},
			Body: "Got it. Will do by Friday.\n\nBest,\nPat Doe\nVP Engineering",
		},
	}

	b := profile.NewBuilder(nil, "", format.Converter{})
	p := b.Build(context.Background(), sent)

	assert.Contains(t, p.Signature, "Best")
	assert.Contains(t, p.Signature, "Pat Doe")
}

func TestAddContactDedup(t *testing.T) {
	p := &profile.Profile{}

	p.AddContact("John Smith", "js@x.com")
	p.AddContact("john smith", "other@x.com") // same name
	p.AddContact("Johnny", "JS@x.com")        // same address
	p.AddContact("Marie", "marie@y.com")

	require.Len(t, p.Contacts, 2)
	assert.Equal(t, profile.Contact{Name: "john smith", Email: "js@x.com"}, p.Contacts[0])
	assert.Equal(t, "js@x.com", p.FindContact("JOHN SMITH"))
	assert.Equal(t, "", p.FindContact("nobody"))
}
