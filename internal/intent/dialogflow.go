package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DialogflowScope is the OAuth2 scope the Dialogflow v2 API requires.
const DialogflowScope = "https://www.googleapis.com/auth/cloud-platform"

// DialogflowClient talks to the Dialogflow ES v2 REST API. The http client must attach
// Google credentials, e.g. one built by golang.org/x/oauth2/google.
type DialogflowClient struct {
	httpClient   *http.Client
	baseURL      string
	projectID    string
	languageCode string
}

func NewDialogflowClient(httpClient *http.Client, baseURL, projectID, languageCode string) *DialogflowClient {
	if languageCode == "" {
		languageCode = "en-US"
	}
	return &DialogflowClient{
		httpClient:   httpClient,
		baseURL:      strings.TrimRight(baseURL, "/"),
		projectID:    projectID,
		languageCode: languageCode,
	}
}

// Wire types (minimal fields used).

type dfContext struct {
	Name          string         `json:"name"`
	LifespanCount int            `json:"lifespanCount,omitempty"`
	Parameters    map[string]any `json:"parameters,omitempty"`
}

type dfTextInput struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode"`
}

type dfDetectIntentRequest struct {
	QueryInput struct {
		Text dfTextInput `json:"text"`
	} `json:"queryInput"`
}

type dfDetectIntentResponse struct {
	ResponseID  string `json:"responseId"`
	QueryResult struct {
		QueryText       string      `json:"queryText"`
		Action          string      `json:"action"`
		FulfillmentText string      `json:"fulfillmentText"`
		OutputContexts  []dfContext `json:"outputContexts"`
		Intent          struct {
			Name        string `json:"name"`
			DisplayName string `json:"displayName"`
		} `json:"intent"`
	} `json:"queryResult"`
}

type dfErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// CreateContext makes params available to the agent as #name.param for the next
// ContextLifespan turns of the conversation.
func (c *DialogflowClient) CreateContext(ctx context.Context, conversationID, name string, params map[string]any) error {
	session := SessionPath(c.projectID, conversationID)
	body := dfContext{
		Name:          session + "/contexts/" + name,
		LifespanCount: ContextLifespan,
		Parameters:    params,
	}
	return c.postJSON(ctx, "create context", "/v2/"+session+"/contexts", body, nil)
}

// Ask sends the contact's text to the agent and returns its answer.
func (c *DialogflowClient) Ask(ctx context.Context, conversationID, text string) (*Result, error) {
	var req dfDetectIntentRequest
	req.QueryInput.Text = dfTextInput{Text: text, LanguageCode: c.languageCode}

	var resp dfDetectIntentResponse
	if err := c.postJSON(ctx, "detect intent", "/v2/"+SessionPath(c.projectID, conversationID)+":detectIntent", req, &resp); err != nil {
		return nil, err
	}
	qr := resp.QueryResult
	out := &Result{
		FulfillmentText: qr.FulfillmentText,
		IntentName:      qr.Intent.DisplayName,
		Action:          qr.Action,
		OutputContexts:  make([]string, 0, len(qr.OutputContexts)),
	}
	for _, oc := range qr.OutputContexts {
		out.OutputContexts = append(out.OutputContexts, shortContextName(oc.Name))
	}
	return out, nil
}

func (c *DialogflowClient) postJSON(ctx context.Context, op, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Service: "dialogflow", Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		var e dfErrorResponse
		if json.Unmarshal(raw, &e) == nil && e.Error.Message != "" {
			msg = e.Error.Message
		}
		return &UpstreamError{Service: "dialogflow", Op: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Service: "dialogflow", Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
