package contact

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxmail/voxmail/internal/gservice"
	"github.com/voxmail/voxmail/internal/profile"
)

type profileSourceMock struct {
	p *profile.Profile
}

func (m *profileSourceMock) Profile() *profile.Profile { return m.p }

type sentScannerMock struct {
	ListSentFunc func(ctx context.Context, maxResults int64) ([]gservice.SentEmail, error)
	calls        int
}

func (m *sentScannerMock) ListSent(ctx context.Context, maxResults int64) ([]gservice.SentEmail, error) {
	m.calls++
	if m.ListSentFunc == nil {
		return nil, nil
	}
	return m.ListSentFunc(ctx, maxResults)
}

func TestResolveAddressPassthrough(t *testing.T) {
	scanner := &sentScannerMock{}
	r := NewResolver(&profileSourceMock{}, scanner)

	addr, err := r.Resolve(context.Background(), "someone@example.com")

	require.NoError(t, err)
	assert.Equal(t, "someone@example.com", addr)
	assert.Zero(t, scanner.calls)
}

func TestResolveExactContact(t *testing.T) {
	p := &profile.Profile{Contacts: []profile.Contact{
		{Name: "john smith", Email: "js@x.com"},
	}}
	scanner := &sentScannerMock{}
	r := NewResolver(&profileSourceMock{p: p}, scanner)

	addr, err := r.Resolve(context.Background(), "John Smith")

	require.NoError(t, err)
	assert.Equal(t, "js@x.com", addr)
	assert.Zero(t, scanner.calls)
}

func TestResolvePartialContact(t *testing.T) {
	p := &profile.Profile{Contacts: []profile.Contact{
		{Name: "alice wong", Email: "aw@x.com"},
		{Name: "john smith", Email: "js@x.com"},
	}}
	r := NewResolver(&profileSourceMock{p: p}, &sentScannerMock{})

	addr, err := r.Resolve(context.Background(), "John")

	require.NoError(t, err)
	assert.Equal(t, "js@x.com", addr)
}

func TestResolveFrequentContactFallback(t *testing.T) {
	p := &profile.Profile{
		FrequentContacts: []string{"boss@acme.com", "marie@vendor.io"},
	}
	r := NewResolver(&profileSourceMock{p: p}, &sentScannerMock{})

	addr, err := r.Resolve(context.Background(), "Marie")

	require.NoError(t, err)
	assert.Equal(t, "marie@vendor.io", addr)
}

func TestResolveSentHistoryPrefersHighestCount(t *testing.T) {
	scanner := &sentScannerMock{
		ListSentFunc: func(_ context.Context, _ int64) ([]gservice.SentEmail, error) {
			return []gservice.SentEmail{
				{To: []string{"marie@vendor.io"}},
				{To: []string{"Marie Lane <marie@vendor.io>"}},
				{To: []string{"marie@vendor.io", "marie.b@other.org"}},
			}, nil
		},
	}
	r := NewResolver(&profileSourceMock{}, scanner)

	addr, err := r.Resolve(context.Background(), "Marie")

	require.NoError(t, err)
	assert.Equal(t, "marie@vendor.io", addr)
	assert.Equal(t, 1, scanner.calls)
}

func TestResolveNotFound(t *testing.T) {
	p := &profile.Profile{Contacts: []profile.Contact{
		{Name: "john smith", Email: "js@x.com"},
	}}
	scanner := &sentScannerMock{
		ListSentFunc: func(_ context.Context, _ int64) ([]gservice.SentEmail, error) {
			return nil, nil
		},
	}
	r := NewResolver(&profileSourceMock{p: p}, scanner)

	_, err := r.Resolve(context.Background(), "nobody")

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nobody", notFound.Recipient)
}

func TestResolveScanFailureReportsNotFound(t *testing.T) {
	scanner := &sentScannerMock{
		ListSentFunc: func(_ context.Context, _ int64) ([]gservice.SentEmail, error) {
			return nil, errors.New("network down")
		},
	}
	r := NewResolver(&profileSourceMock{}, scanner)

	_, err := r.Resolve(context.Background(), "Marie")

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestResolveEmptyInput(t *testing.T) {
	r := NewResolver(&profileSourceMock{}, &sentScannerMock{})

	_, err := r.Resolve(context.Background(), "   ")

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}
