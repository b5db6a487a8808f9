package domain

// ChatMessage is a single message in an OpenAI-compatible chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
