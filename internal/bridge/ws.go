package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
)

const (
	realtimeWSURL       = "wss://api.openai.com/v1/realtime"
	realtimeSessionsURL = "https://api.openai.com/v1/realtime/sessions"
)

// Dial opens a websocket connection to the realtime API for a server-side
// bridge session. The returned connection satisfies the session transport.
func Dial(ctx context.Context, apiKey, model string) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+apiKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	endpoint := realtimeWSURL + "?model=" + url.QueryEscape(model)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	return conn, nil
}

// EphemeralToken is a short-lived client secret a browser can use to open
// its own realtime connection without seeing the API key.
type EphemeralToken struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
}

type mintRequest struct {
	Model string `json:"model"`
	Voice string `json:"voice,omitempty"`
}

type mintResponse struct {
	ClientSecret EphemeralToken `json:"client_secret"`
}

// MintEphemeralToken requests a short-lived realtime session credential.
// client may be nil to use http.DefaultClient.
func MintEphemeralToken(ctx context.Context, client *http.Client, apiKey, model, voice string) (*EphemeralToken, error) {
	if client == nil {
		client = http.DefaultClient
	}

	body, err := json.Marshal(mintRequest{Model: model, Voice: voice})
	if err != nil {
		return nil, fmt.Errorf("json.Marshal failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, realtimeSessionsURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client.Do failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("io.ReadAll failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("session mint failed with status %d: %s", resp.StatusCode, payload)
	}

	var parsed mintResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("json.Unmarshal failed: %w", err)
	}
	if parsed.ClientSecret.Value == "" {
		return nil, errors.New("session mint response missing client secret")
	}

	return &parsed.ClientSecret, nil
}
