package model

// Chat limits enforced before anything is sent upstream.
const (
	MaxChatMessages      = 50
	MaxChatContentLength = 10000
)

// Chat roles
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
	ChatRoleSystem    = "system"
)

// ChatMessage is one turn of the conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /functions/v1/chat.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	Language string        `json:"language,omitempty"`
}

func IsValidChatRole(role string) bool {
	switch role {
	case ChatRoleUser, ChatRoleAssistant, ChatRoleSystem:
		return true
	}
	return false
}
