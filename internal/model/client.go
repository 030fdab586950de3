package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultClientTimeout = 2 * time.Minute

// Client talks to a seq2seq inference server over HTTP JSON. The server owns
// model weights, tokenization and beam search; the client only moves prompts
// and token ids across the wire.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the inference server at baseURL. A
// non-positive timeout falls back to the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type loadRequest struct {
	Model string `json:"model"`
}

type loadResponse struct {
	Model    string `json:"model"`
	Revision string `json:"revision,omitempty"`
}

type tokenizeRequest struct {
	Model    string `json:"model"`
	Text     string `json:"text"`
	Truncate bool   `json:"truncate"`
}

type tokenizeResponse struct {
	IDs []int64 `json:"ids"`
}

type generateRequest struct {
	Model         string  `json:"model"`
	IDs           []int64 `json:"ids"`
	MaxNewTokens  int     `json:"max_new_tokens"`
	NumBeams      int     `json:"num_beams"`
	EarlyStopping bool    `json:"early_stopping"`
}

type generateResponse struct {
	IDs []int64 `json:"ids"`
}

type decodeRequest struct {
	Model             string  `json:"model"`
	IDs               []int64 `json:"ids"`
	SkipSpecialTokens bool    `json:"skip_special_tokens"`
}

type decodeResponse struct {
	Text string `json:"text"`
}

// Health describes the server's self-reported state.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Load asks the server to load the named model together with its tokenizer.
// Failures are reported as a *LoadError.
func (c *Client) Load(ctx context.Context, name string) (Handle, error) {
	var resp loadResponse
	if err := c.postJSON(ctx, "/v1/load", loadRequest{Model: name}, &resp); err != nil {
		return nil, &LoadError{Model: name, Err: err}
	}

	return &serverHandle{client: c, name: name}, nil
}

// HealthCheck pings the server's health endpoint.
func (c *Client) HealthCheck(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", nil)
	if err != nil {
		return Health{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Health{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return Health{}, fmt.Errorf("inference server %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return Health{}, fmt.Errorf("decode response: %w", err)
	}

	return health, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)

		return fmt.Errorf("inference server %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

type serverHandle struct {
	client *Client
	name   string
}

func (h *serverHandle) Name() string {
	return h.name
}

func (h *serverHandle) Tokenize(ctx context.Context, text string) ([]int64, error) {
	var resp tokenizeResponse
	if err := h.client.postJSON(ctx, "/v1/tokenize", tokenizeRequest{
		Model:    h.name,
		Text:     text,
		Truncate: true,
	}, &resp); err != nil {
		return nil, err
	}

	return resp.IDs, nil
}

func (h *serverHandle) Generate(ctx context.Context, ids []int64, opts GenerateOptions) ([]int64, error) {
	if opts.MaxNewTokens < 0 {
		opts.MaxNewTokens = 0
	}

	var resp generateResponse
	if err := h.client.postJSON(ctx, "/v1/generate", generateRequest{
		Model:         h.name,
		IDs:           ids,
		MaxNewTokens:  opts.MaxNewTokens,
		NumBeams:      opts.NumBeams,
		EarlyStopping: opts.EarlyStopping,
	}, &resp); err != nil {
		return nil, err
	}

	return resp.IDs, nil
}

func (h *serverHandle) Decode(ctx context.Context, ids []int64, skipSpecialTokens bool) (string, error) {
	var resp decodeResponse
	if err := h.client.postJSON(ctx, "/v1/decode", decodeRequest{
		Model:             h.name,
		IDs:               ids,
		SkipSpecialTokens: skipSpecialTokens,
	}, &resp); err != nil {
		return "", err
	}

	return resp.Text, nil
}
