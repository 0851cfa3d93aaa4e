package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxmail/voxmail/internal/gservice"
)

func setupMCPSession(t *testing.T, d *Dispatcher) *mcp.ClientSession {
	t.Helper()

	server := NewMCPServer(d)
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ctx := context.Background()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientSession.Close() })

	return clientSession
}

func TestMCPListTools(t *testing.T) {
	session := setupMCPSession(t, newTestDispatcher(nil, nil, nil, nil))

	result, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, 0, len(result.Tools))
	for _, tl := range result.Tools {
		names = append(names, tl.Name)
	}

	for _, def := range Catalog() {
		assert.Contains(t, names, def.Name)
	}
}

func TestMCPCallTool(t *testing.T) {
	mail := &mailClientMock{
		ListInboxFunc: func(_ context.Context, maxResults int64, _ string) ([]gservice.EmailSummary, error) {
			return []gservice.EmailSummary{
				{ID: "1", Subject: "First", IsRead: false},
				{ID: "2", Subject: "Second", IsRead: true},
			}, nil
		},
	}
	session := setupMCPSession(t, newTestDispatcher(nil, mail, nil, nil))

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolListEmails,
		Arguments: map[string]any{"maxResults": 2},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)

	var payload struct {
		Emails      []gservice.EmailSummary `json:"emails"`
		UnreadCount int                     `json:"unreadCount"`
	}
	require.NoError(t, json.Unmarshal(
		[]byte(result.Content[0].(*mcp.TextContent).Text),
		&payload,
	))
	assert.Len(t, payload.Emails, 2)
	assert.Equal(t, 1, payload.UnreadCount)
}

func TestMCPCallToolErrorFlagged(t *testing.T) {
	session := setupMCPSession(t, newTestDispatcher(&sessionMock{authenticated: false}, nil, nil, nil))

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolListEmails,
		Arguments: map[string]any{},
	})
	require.NoError(t, err)
	require.True(t, result.IsError)

	text := result.Content[0].(*mcp.TextContent).Text
	assert.Contains(t, text, "authentication required")
}
