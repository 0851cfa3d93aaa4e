package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// NewHTTPInvoker creates an invoker posting calls to the dispatch endpoint.
// client may be nil to use http.DefaultClient.
func NewHTTPInvoker(endpoint string, client *http.Client) *HTTPInvoker {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPInvoker{endpoint: endpoint, client: client}
}

// HTTPInvoker forwards tool calls over the dispatcher's HTTP surface.
type HTTPInvoker struct {
	endpoint string
	client   *http.Client
}

type invokeRequest struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
}

type invokeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Invoke posts one call and returns the serialized result payload. Any
// transport-level failure surfaces as an error for the session to convert
// into an {error} payload.
func (i *HTTPInvoker) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	body, err := json.Marshal(invokeRequest{ToolName: name, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("json.Marshal failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("http.NewRequestWithContext failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("client.Do failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("io.ReadAll failed: %w", err)
	}

	var parsed invokeResponse
	if err := json.Unmarshal(payload, &parsed); err != nil || len(parsed.Content) == 0 {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("dispatch endpoint returned status %d", resp.StatusCode)
		}
		return "", errors.New("dispatch endpoint returned malformed response")
	}

	return parsed.Content[0].Text, nil
}
