package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	ferrors "github.com/darkmc/plugin-forge/internal/errors"
)

const (
	// DefaultBaseURL is the hosted AI gateway.
	DefaultBaseURL = "https://ai.gateway.lovable.dev/v1"
	// DefaultModel is used when a request names no model.
	DefaultModel = "google/gemini-2.5-flash"
)

// GatewayClient implements Client against an OpenAI-compatible
// chat-completions endpoint.
type GatewayClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  zerolog.Logger
}

// GatewayOption configures the client.
type GatewayOption func(*GatewayClient)

func WithBaseURL(url string) GatewayOption {
	return func(c *GatewayClient) { c.baseURL = url }
}

func WithModel(model string) GatewayOption {
	return func(c *GatewayClient) { c.model = model }
}

func WithHTTPClient(hc *http.Client) GatewayOption {
	return func(c *GatewayClient) { c.client = hc }
}

func WithLogger(l zerolog.Logger) GatewayOption {
	return func(c *GatewayClient) { c.logger = l }
}

// NewGatewayClient constructs a gateway client.
func NewGatewayClient(apiKey string, opts ...GatewayOption) *GatewayClient {
	c := &GatewayClient{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		model:   DefaultModel,
		client:  &http.Client{Timeout: 120 * time.Second},
		logger:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With().Str("component", "llm_gateway").Logger()
	return c
}

// ModelID returns the default model identifier.
func (c *GatewayClient) ModelID() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends a blocking chat-completion request. Rate-limit (429) and
// credit-exhaustion (402) responses map to typed errors so callers can decide
// retry behavior; 402 is never retryable.
func (c *GatewayClient) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	cr := chatRequest{Model: model}
	if req.System != "" {
		cr.Messages = append(cr.Messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		cr.Messages = append(cr.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(cr)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway http: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp.StatusCode, raw)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if out.Error != nil {
		return nil, ferrors.NewAPIError("gateway", resp.StatusCode, out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return nil, ferrors.NewAPIError("gateway", resp.StatusCode, "no choices in response")
	}

	c.logger.Debug().
		Str("model", model).
		Int("in_tokens", out.Usage.PromptTokens).
		Int("out_tokens", out.Usage.CompletionTokens).
		Dur("elapsed", time.Since(start)).
		Msg("gateway complete")

	return &Response{
		Text:         out.Choices[0].Message.Content,
		Model:        out.Model,
		InputTokens:  out.Usage.PromptTokens,
		OutputTokens: out.Usage.CompletionTokens,
	}, nil
}

func (c *GatewayClient) statusError(status int, raw []byte) error {
	msg := gatewayMessage(raw)
	apiErr := &ferrors.APIError{Service: "gateway", StatusCode: status, Message: msg}
	switch status {
	case http.StatusTooManyRequests:
		apiErr.Err = ferrors.ErrRateLimit
		if apiErr.Message == "" {
			apiErr.Message = "Rate limit exceeded. Please try again in a moment."
		}
	case http.StatusPaymentRequired:
		apiErr.Err = ferrors.ErrPaymentRequired
		if apiErr.Message == "" {
			apiErr.Message = "AI credits depleted. Please add credits to continue."
		}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		apiErr.Err = ferrors.ErrUnavailable
	}
	return apiErr
}

func gatewayMessage(raw []byte) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return ""
}
