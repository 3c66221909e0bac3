// Package llm talks to the AI gateway that backs plugin generation. The
// gateway speaks the OpenAI chat-completions dialect; model routing happens
// server-side from the model identifier.
package llm

import "context"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a blocking completion request. Model may be empty, in which case
// the client's default model is used.
type Request struct {
	Model    string
	System   string
	Messages []Message
}

// Response is the assistant's reply.
type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Client produces completions. Implemented by GatewayClient; tests substitute
// fakes.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
