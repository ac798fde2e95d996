package api

// Role identifies the author of a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the conversation transcript.
type Turn struct {
	Role      Role     `json:"role"`
	Content   string   `json:"content"`
	Timestamp string   `json:"timestamp"`
	Sources   []string `json:"sources,omitempty"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message             string `json:"message"`
	ConversationHistory []Turn `json:"conversation_history"`
	UseRAG              bool   `json:"use_rag"`
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Message   string   `json:"message"`
	Timestamp string   `json:"timestamp"`
	Sources   []string `json:"sources,omitempty"`
}

// UploadResponse is returned once per successfully processed upload.
type UploadResponse struct {
	Filename string `json:"filename"`
	Pages    int    `json:"pages"`
	Chunks   int    `json:"chunks"`
	Message  string `json:"message"`
}

// DocumentInfo is the full document snapshot returned by GET /documents.
type DocumentInfo struct {
	TotalChunks int      `json:"total_chunks"`
	Documents   []string `json:"documents"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status           string `json:"status"`
	OpenAIConfigured bool   `json:"openai_configured"`
	APIBase          string `json:"api_base"`
	DocumentsLoaded  int    `json:"documents_loaded"`
}
