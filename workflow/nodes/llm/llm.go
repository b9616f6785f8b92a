// Package llm abstracts chat-completion providers behind a single
// ChatModel interface for the llm-chat workflow node. Providers exist
// for Anthropic, OpenAI and Google Gemini, plus a scripted mock for
// tests.
package llm

import "context"

// Role identifies a message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is one chat-completion call. Model may override the
// provider's default; MaxTokens of zero uses the provider default.
type Request struct {
	Model     string
	System    string
	Messages  []Message
	MaxTokens int
}

// Response is the provider's answer. Tokens is the total token count
// the provider reports; the workflow node records it as usage.
type Response struct {
	Text   string
	Tokens int
}

// ChatModel is the provider contract. Implementations must be safe for
// concurrent use.
type ChatModel interface {
	Name() string
	Complete(ctx context.Context, req Request) (Response, error)
}
