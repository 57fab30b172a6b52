package sparkcentral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"va-bridge/internal/types"
)

// TokenScope is the scope requested for Virtual Agent API tokens.
const TokenScope = "client-read"

// APIError is returned for any non-2xx answer of the Virtual Agent API.
// A 404 usually means the conversation is not assigned to this virtual agent.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sparkcentral %s failed: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Action is a composite update of a conversation. Zero fields are sent as null so the
// platform leaves that aspect of the conversation untouched.
type Action struct {
	Text       string
	Attachment string
	Topics     []string
	Complete   types.Directive
}

type actionBody struct {
	SendMessage *outgoingMessage `json:"sendMessage"`
	ApplyTopics []string         `json:"applyTopics"`
	Complete    types.Directive  `json:"complete"`
}

type outgoingMessage struct {
	Text       *string `json:"text"`
	Attachment *string `json:"attachment"`
}

func (a Action) body() actionBody {
	b := actionBody{ApplyTopics: a.Topics, Complete: a.Complete}
	if a.Text != "" || a.Attachment != "" {
		b.SendMessage = &outgoingMessage{Text: optional(a.Text), Attachment: optional(a.Attachment)}
	}
	return b
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Client talks to the Virtual Agent REST API. Tokens are obtained with the OAuth2
// client-credentials flow and reused until they expire.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient builds a client for baseURL, e.g. https://public-api.sparkcentral.com (US)
// or https://public-api-eu.sparkcentral.com (EU).
func NewClient(baseURL, clientID, clientSecret string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     baseURL + "/virtual-agent/oauth2/token",
		Scopes:       []string{TokenScope},
	}
	// The token endpoint shares the timeout of the API calls.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
	hc := cc.Client(ctx)
	hc.Timeout = timeout
	return &Client{httpClient: hc, baseURL: baseURL}
}

func (c *Client) conversationPath(conversationID string) string {
	return c.baseURL + "/virtual-agent/conversations/" + url.PathEscape(conversationID)
}

func (c *Client) do(ctx context.Context, op, method, u, contentType string, body io.Reader) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sparkcentral %s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// UploadAttachment stores data under filename so a later Send can reference it. The
// attachment can only be used within the given conversation.
func (c *Client) UploadAttachment(ctx context.Context, conversationID string, data []byte, filename, contentType string) (int, error) {
	u := c.conversationPath(conversationID) + "/attachments/" + url.PathEscape(filename)
	return c.do(ctx, "upload attachment", http.MethodPut, u, contentType, bytes.NewReader(data))
}

// Send posts a composite action to the conversation.
func (c *Client) Send(ctx context.Context, conversationID string, action Action) (int, error) {
	b, err := json.Marshal(action.body())
	if err != nil {
		return 0, err
	}
	return c.do(ctx, "send", http.MethodPost, c.conversationPath(conversationID), "application/json", bytes.NewReader(b))
}
