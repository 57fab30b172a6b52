package giphy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// maxMediaBytes caps a downloaded GIF; Sparkcentral rejects larger attachments anyway.
const maxMediaBytes = 25 << 20

// ErrNoMedia is returned when Giphy has nothing for the tag.
var ErrNoMedia = errors.New("giphy: no media found")

type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("giphy %s failed: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Media is a downloaded GIF ready to be uploaded as an attachment.
type Media struct {
	Filename    string
	Data        []byte
	ContentType string
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	rating     string
}

func NewClient(baseURL, apiKey, rating string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		rating:     rating,
	}
}

// random endpoint response (minimal fields used). data is an empty array when nothing matches.
type randomResponse struct {
	Data json.RawMessage `json:"data"`
}

type gif struct {
	ID     string `json:"id"`
	Images struct {
		Original struct {
			URL string `json:"url"`
		} `json:"original"`
	} `json:"images"`
}

// Random looks up a random GIF for tag and downloads it. An empty tag means any GIF.
func (c *Client) Random(ctx context.Context, tag string) (*Media, error) {
	g, err := c.lookup(ctx, tag)
	if err != nil {
		return nil, err
	}
	data, contentType, err := c.fetch(ctx, g.Images.Original.URL)
	if err != nil {
		return nil, err
	}
	return &Media{Filename: filename(g), Data: data, ContentType: contentType}, nil
}

func (c *Client) lookup(ctx context.Context, tag string) (*gif, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	if tag != "" {
		q.Set("tag", tag)
	}
	if c.rating != "" {
		q.Set("rating", c.rating)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/gifs/random?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("giphy random: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Op: "random", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	var rr randomResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("giphy random: decode: %w", err)
	}
	raw := bytes.TrimSpace(rr.Data)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, ErrNoMedia
	}
	var g gif
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("giphy random: decode gif: %w", err)
	}
	if g.Images.Original.URL == "" {
		return nil, ErrNoMedia
	}
	return &g, nil
}

func (c *Client) fetch(ctx context.Context, mediaURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("giphy fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &APIError{Op: "fetch", StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("giphy fetch: %w", err)
	}
	if len(data) > maxMediaBytes {
		return nil, "", fmt.Errorf("giphy fetch: media larger than %d bytes", maxMediaBytes)
	}
	contentType := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err != nil || mt == "" {
		contentType = "image/gif"
	}
	return data, contentType, nil
}

// filename is "<gif id><ext of the media url>", defaulting to .gif.
func filename(g *gif) string {
	ext := ".gif"
	if u, err := url.Parse(g.Images.Original.URL); err == nil {
		if e := path.Ext(u.Path); e != "" {
			ext = e
		}
	}
	id := g.ID
	if id == "" {
		id = "giphy"
	}
	return id + ext
}
